// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package newton

import (
	"math"
	"testing"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

func TestSolveRejectsRiglnk(t *testing.T) {
	g := locdyn.NewGraph()
	con := constraint.NewCon(1, constraint.RIGLNK, 1)
	g.Insert(con, nil, nil)
	st := NewDefaultState(false, 1e-3)
	_, err := Solve(g, st)
	if err != ErrRiglnkUnsupported {
		t.Fatalf("expected ErrRiglnkUnsupported, got %v", err)
	}
}

func TestSolveSkipsOpenContacts(t *testing.T) {
	g := locdyn.NewGraph()
	con := constraint.NewCon(1, constraint.CONTACT, 1)
	con.Gap = 1
	d := g.Insert(con, nil, nil)
	d.W = lin.M3{Xx: 1, Yy: 1, Zz: 1}
	st := NewDefaultState(true, 1e-3)
	iters, err := Solve(g, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iters != 0 {
		t.Fatalf("expected immediate convergence with no active constraints, got %d iterations", iters)
	}
}

func TestFValueFixpntStaticIsIdentity(t *testing.T) {
	con := constraint.NewCon(1, constraint.FIXPNT, 1)
	con.U = lin.V3{X: 1, Y: 2, Z: 3}
	st := &State{Dynamic: false}
	f := fValueReal(con, st)
	if !f.Eq(&con.U) {
		t.Fatalf("expected F(U)=U for static FIXPNT, got %+v", f)
	}
}

func TestMValueNonContactIsIdentity(t *testing.T) {
	con := constraint.NewCon(1, constraint.FIXPNT, 1)
	s := lin.V3{X: 3, Y: -1, Z: 4}
	m := mValueReal(con, s, 0)
	if !m.Eq(&s) {
		t.Fatalf("expected m(S)=S for a bilateral kind, got %+v", m)
	}
}

func TestMValueContactInsideConeIsIdentity(t *testing.T) {
	con := constraint.NewCon(1, constraint.CONTACT, 1)
	con.Mat.Mu = 0.5
	s := lin.V3{X: 0.1, Y: 0, Z: 1}
	m := mValueReal(con, s, 0)
	if !m.Eq(&s) {
		t.Fatalf("point inside the cone should project to itself, got %+v", m)
	}
}

func TestMValueContactBelowConeIsZero(t *testing.T) {
	con := constraint.NewCon(1, constraint.CONTACT, 1)
	con.Mat.Mu = 0.5
	s := lin.V3{X: 0, Y: 0, Z: -5}
	m := mValueReal(con, s, 0)
	if m.X != 0 || m.Y != 0 || m.Z != 0 {
		t.Fatalf("point below the reversed cone should project to zero, got %+v", m)
	}
}

func TestScaleVecRoundTripsThroughFrictionScaling(t *testing.T) {
	con := constraint.NewCon(1, constraint.CONTACT, 1)
	con.Mat.Mu = 0.25
	d := &locdyn.DiagBlock{ID: 1, Con: con}
	blocks := []*block{{d: d, off: 0}}

	v := []float64{1, 2, 3}
	scaled := scaleVec(blocks, v, true)
	if scaled[2] != 3*4 {
		t.Fatalf("expected normal component scaled by 1/mu=4, got %v", scaled[2])
	}
	if scaled[0] != 1 || scaled[1] != 2 {
		t.Fatalf("expected tangential components untouched, got %v %v", scaled[0], scaled[1])
	}
	back := scaleVec(blocks, scaled, false)
	for i := range v {
		if back[i] != v[i] {
			t.Fatalf("round trip mismatch at %d: got %v want %v", i, back[i], v[i])
		}
	}
}

func TestScaleFactorIsIdentityForBilateralKinds(t *testing.T) {
	con := constraint.NewCon(2, constraint.FIXPNT, 1)
	if scaleFactor(con) != 1 {
		t.Fatalf("expected unscaled factor for a bilateral kind, got %v", scaleFactor(con))
	}
}

func TestComplexStepJacobianOfLinearMapIsExact(t *testing.T) {
	// f(x) = (2x0, 3x1, 4x2) has Jacobian diag(2,3,4) everywhere.
	f := func(c cplx3) cplx3 { return cplx3{X: 2 * c.X, Y: 3 * c.Y, Z: 4 * c.Z} }
	jac := complexStepJacobian(f, [3]float64{1, 2, 3})
	want := [3][3]float64{{2, 0, 0}, {0, 3, 0}, {0, 0, 4}}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(jac[i][j]-want[i][j]) > 1e-9 {
				t.Fatalf("jac[%d][%d] = %v, want %v", i, j, jac[i][j], want[i][j])
			}
		}
	}
}
