// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package merit

import (
	"testing"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

func TestResidualOpenContactIsZero(t *testing.T) {
	con := constraint.NewCon(1, constraint.CONTACT, 1)
	con.Gap = 0.5
	con.Flags.Set(constraint.FlagOpen)
	g := contactResidual(con, true, 0.01)
	if !g.Aeq(&lin.V3{}) {
		t.Fatalf("expected zero residual for open dynamic contact, got %+v", g)
	}
}

func TestResidualFixpntDynamic(t *testing.T) {
	con := constraint.NewCon(2, constraint.FIXPNT, 1)
	con.U = lin.V3{X: 0.1, Y: 0.2, Z: 0.3}
	con.V = lin.V3{X: -0.1, Y: -0.2, Z: -0.3}
	d := &locdyn.DiagBlock{Con: con}
	g := Residual(d, true, 0.01)
	if !g.Aeq(&lin.V3{}) {
		t.Fatalf("expected U+V to cancel, got %+v", g)
	}
}

func TestGlobalNormalizesByFreeEnergy(t *testing.T) {
	g := locdyn.NewGraph()
	con := constraint.NewCon(3, constraint.VELODIR, 1)
	con.Aux.SetVelodirTarget(1.0)
	con.U = lin.V3{Z: 1.0}
	d := g.Insert(con, nil, nil)
	d.A = lin.M3{Xx: 1, Yy: 1, Zz: 1}
	g.FreeEnergy = 2.0
	if got := Global(g, true, 0.01); got != 0 {
		t.Fatalf("expected zero merit for satisfied VELODIR, got %v", got)
	}
}
