// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package merit implements C3: the per-constraint residual g and the
// global merit M = (sum m_i) / max(free_energy, 1) used as the outer
// stopping test for both BGS and Newton (§4.3).
package merit

import (
	"math"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/kernel"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

// Residual computes g_i for a single DIAB per the §4.3 table. h is the
// global step; dynamic selects the dynamic/static dashed-normal
// formula (same convention as kernel.Params.Dynamic).
func Residual(d *locdyn.DiagBlock, dynamic bool, h float64) lin.V3 {
	con := d.Con
	switch con.Kind {
	case constraint.CONTACT:
		return contactResidual(con, dynamic, h)
	case constraint.FIXPNT, constraint.GLUE:
		if dynamic {
			var g lin.V3
			g.Add(&con.U, &con.V)
			return g
		}
		return con.U
	case constraint.FIXDIR:
		g := contactFixdirResidual(con, dynamic, h)
		return lin.V3{Z: g}
	case constraint.VELODIR:
		return lin.V3{Z: con.Aux.VelodirTarget() - con.U.Z}
	case constraint.RIGLNK:
		// con.Gap doubles as the current length violation (current
		// length minus rest length) for RIGLNK, the way CONTACT reuses
		// it as the contact gap (§4.3 "RIGLNK | g/h + U_n").
		return lin.V3{Z: con.Gap/h + con.U.Z}
	default:
		return lin.V3{}
	}
}

// contactResidual implements the CONTACT row: 0 for an open dynamic
// contact, otherwise (U_t, ûn+mu|Ut|) minus the cone projection of
// (R-U).
func contactResidual(con *constraint.Con, dynamic bool, h float64) lin.V3 {
	if dynamic && con.Gap > 0 {
		return lin.V3{}
	}
	ubar := dashedNormal(con, dynamic, h)
	ut := math.Hypot(con.U.X, con.U.Y)
	lhs := lin.V3{X: con.U.X, Y: con.U.Y, Z: ubar + con.Mat.Mu*ut}
	var diff lin.V3
	diff.Sub(&con.R, &con.U)
	proj := kernel.ConeProjection(&diff, con.Mat.Mu)
	var g lin.V3
	g.Sub(&lhs, &proj)
	return g
}

// contactFixdirResidual takes the normal component of the FIXPNT/GLUE
// row (U_n + V_n dynamic, U_n static), since FIXDIR's g is defined as
// the normal component of that row (§4.3).
func contactFixdirResidual(con *constraint.Con, dynamic bool, h float64) float64 {
	if dynamic {
		return con.U.Z + con.V.Z
	}
	return con.U.Z
}

func dashedNormal(con *constraint.Con, dynamic bool, h float64) float64 {
	if dynamic {
		return con.U.Z + con.Mat.E*math.Min(con.V.Z, 0)
	}
	return math.Max(con.Gap, 0)/h + con.U.Z
}

// Term computes m_i = 0.5*<A*g,g> for a single DIAB.
func Term(d *locdyn.DiagBlock, dynamic bool, h float64) float64 {
	g := Residual(d, dynamic, h)
	var ag lin.V3
	ag.MultMv(&d.A, &g)
	return 0.5 * ag.Dot(&g)
}

// Global computes M over every DIAB in the graph, normalised by the
// graph's free energy (floored at 1, per §4.3).
func Global(g *locdyn.Graph, dynamic bool, h float64) float64 {
	sum := 0.0
	for _, d := range g.All() {
		sum += Term(d, dynamic, h)
	}
	return sum / math.Max(g.FreeEnergy, 1)
}
