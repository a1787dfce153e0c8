// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package kernel

import (
	"math"
	"testing"

	"github.com/nsmd/core/math/lin"
)

func TestFixpntStatic(t *testing.T) {
	p := &Params{
		Dynamic: false,
		W:       lin.M3{Xx: 2, Yy: 2, Zz: 2},
		B:       lin.V3{X: 1, Y: -1, Z: 0.5},
	}
	var U, R lin.V3
	if _, err := Fixpnt(p, &U, &R); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !U.Aeq(&lin.V3{}) {
		t.Fatalf("expected zero relative velocity, got %+v", U)
	}
}

func TestGlueIsFixpnt(t *testing.T) {
	p := &Params{W: lin.M3{Xx: 1, Yy: 1, Zz: 1}, B: lin.V3{X: 0.2, Y: 0.1, Z: -0.3}}
	var U1, R1, U2, R2 lin.V3
	Fixpnt(p, &U1, &R1)
	Glue(p, &U2, &R2)
	if !R1.Aeq(&R2) {
		t.Fatalf("glue should match fixpnt: %+v vs %+v", R1, R2)
	}
}

func TestFixdirLeavesTangentZero(t *testing.T) {
	p := &Params{
		Dynamic: true,
		W:       lin.M3{Xx: 1, Yy: 1, Zz: 3},
		B:       lin.V3{Z: 0.4},
		V:       lin.V3{Z: -0.4},
	}
	var U, R lin.V3
	if _, err := Fixdir(p, &U, &R); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if R.X != 0 || R.Y != 0 {
		t.Fatalf("tangential reaction should stay zero, got %+v", R)
	}
	if math.Abs(U.Z+p.V.Z) > 1e-9 {
		t.Fatalf("expected Uz=-Vz, got %+v", U)
	}
}

func TestVelodirHitsTarget(t *testing.T) {
	p := &Params{W: lin.M3{Xx: 1, Yy: 1, Zz: 2}, B: lin.V3{Z: 0.1}}
	var U, R lin.V3
	target := 0.7
	if _, err := Velodir(p, target, &U, &R); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(U.Z-target) > 1e-9 {
		t.Fatalf("expected Uz=%v, got %+v", target, U)
	}
}

func TestSpringDashpotPassesThroughExternalLaw(t *testing.T) {
	p := &Params{B: lin.V3{X: 1, Y: 2, Z: 3}}
	var U, R lin.V3
	if _, err := SpringDashpot(p, &U, &R); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !U.Aeq(&p.B) {
		t.Fatalf("expected U=B, got %+v", U)
	}
}

func TestRiglnkExplicitRestoresLength(t *testing.T) {
	rp := &RiglnkParams{
		Params: Params{
			Eps:     1e-9,
			MaxIter: 50,
			H:       0.01,
			W:       lin.M3{Xx: 1, Yy: 1, Zz: 1},
		},
		RefLength: 1.0,
		Length:    1.02,
		Explicit:  true,
	}
	var lambda float64
	var U, R lin.V3
	if _, err := Riglnk(rp, &lambda, &U, &R); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantGapRate := -(rp.Length - rp.RefLength) / rp.H
	if math.Abs(U.Z-wantGapRate) > 1e-6 {
		t.Fatalf("expected Uz=%v, got %v", wantGapRate, U.Z)
	}
}

func TestRiglnkImplicitConverges(t *testing.T) {
	rp := &RiglnkParams{
		Params: Params{
			Eps:     1e-8,
			MaxIter: 50,
			H:       0.01,
			W:       lin.M3{Xx: 1, Yy: 1, Zz: 1},
		},
		RefVector: lin.V3{Z: 1},
		RefLength: 1.0,
		Length:    1.05,
		Explicit:  false,
	}
	var lambda float64
	var U, R lin.V3
	iters, err := Riglnk(rp, &lambda, &U, &R)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iters == 0 {
		t.Fatal("expected at least one Newton iteration")
	}
}
