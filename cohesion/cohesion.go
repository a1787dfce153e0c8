// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package cohesion implements C8: the forward/backward change of
// variables that turns a cohesive contact into a standard cone LCP
// (§4.8). It implements locdyn.CohesionHook, wired in once by the
// engine at startup; locdyn never imports this package.
package cohesion

import (
	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

// Hook is the stateless cohesion change of variables. It carries no
// fields of its own: every quantity it needs (cohesion strength,
// release threshold) lives on the constraint's Material (§3).
type Hook struct{}

var _ locdyn.CohesionHook = Hook{}

// Forward shifts R[2] += c for every cohesive CONTACT and subtracts
// c*(W*e3) from B on the diagonal and from each neighbour's B via the
// corresponding W_ij*e3, turning the cohesive contact into a
// cohesion-free cone LCP (§4.8 "Forward change").
func (Hook) Forward(d *locdyn.DiagBlock, neighbour func(id uint64) *locdyn.DiagBlock) {
	con := d.Con
	if con.Kind != constraint.CONTACT || !con.Flags.Has(constraint.FlagCohesive) {
		return
	}
	c := con.Mat.Cohesion * con.Area
	con.R.Z += c

	e3 := lin.V3{Z: 1}
	var wb lin.V3
	wb.MultMv(&d.W, &e3)
	wb.Scale(&wb, c)
	d.B.Sub(&d.B, &wb)

	for _, ob := range d.Adjacent() {
		w := ob.ResolvedW()
		var nb lin.V3
		nb.MultMv(&w, &e3)
		nb.Scale(&nb, c)
		ob.Nbr.B.Sub(&ob.Nbr.B, &nb)
	}
}

// Backward restores R[2] -= c and the B shift Forward applied (to this
// DIAB and every neighbour Forward touched), so that a forward/
// backward pair with R otherwise unchanged by the solver reproduces
// the initial B exactly (§8 invariant 8). It then checks, if the
// contact separated (mode-I, R[2] < eps*c) or slipped past the cone
// under the restored reaction (mode-II, |R_t| + eps*c >= mu*R[2]),
// de-coheses it: clears the cohesive flag and zeroes the stored
// cohesion strength (§4.8 "Backward change").
func (Hook) Backward(d *locdyn.DiagBlock, neighbour func(id uint64) *locdyn.DiagBlock) {
	con := d.Con
	if con.Kind != constraint.CONTACT || !con.Flags.Has(constraint.FlagCohesive) {
		return
	}
	c := con.Mat.Cohesion * con.Area
	con.R.Z -= c

	e3 := lin.V3{Z: 1}
	var wb lin.V3
	wb.MultMv(&d.W, &e3)
	wb.Scale(&wb, c)
	d.B.Add(&d.B, &wb)

	for _, ob := range d.Adjacent() {
		w := ob.ResolvedW()
		var nb lin.V3
		nb.MultMv(&w, &e3)
		nb.Scale(&nb, c)
		ob.Nbr.B.Add(&ob.Nbr.B, &nb)
	}

	eps := con.Mat.Epsilon
	tangent := lin.V3{X: con.R.X, Y: con.R.Y}
	rt := tangent.Len()
	modeI := con.R.Z < eps*c
	modeII := rt+eps*c >= con.Mat.Mu*con.R.Z
	if modeI || modeII {
		con.Flags.Clear(constraint.FlagCohesive)
		con.Mat.Cohesion = 0
	}
}
