// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package kernel implements C1, the per-constraint diagonal solvers:
// projected gradient, De Saxce-Feng and semi-smooth Newton for
// Signorini-Coulomb contacts, plus the bilateral/unilateral kernels
// (FIXPNT, FIXDIR, VELODIR, RIGLNK, GLUE) and the spring-dashpot
// surface law (§4.1).
//
// Every kernel takes the same small set of parameters and mutates U
// and R in place, mirroring the way vu/physics' solver mutates
// solverBody/solverConstraint fields rather than returning new
// vectors on every inner iteration.
package kernel

import (
	"errors"
	"math"

	"github.com/nsmd/core/math/lin"
)

// ErrDiagonalDiverged reports that a kernel exceeded its inner
// iteration cap without reaching its relative-error tolerance.
var ErrDiagonalDiverged = errors.New("kernel: diagonal diverged")

// ErrDiagonalFailed reports a singular linear system or a NaN/Inf
// reaction, a hard failure distinct from slow convergence.
var ErrDiagonalFailed = errors.New("kernel: diagonal failed")

// Params bundles the inputs common to every diagonal kernel (§4.1):
// the step mode, tolerances, material law and the DIAB row this
// constraint occupies.
type Params struct {
	Dynamic  bool // dynamic step vs static/quasi-static.
	Eps      float64
	MaxIter  int
	H        float64 // global time step.
	Mu       float64 // friction coefficient.
	E        float64 // restitution.
	Gap      float64
	Rho      float64
	W        lin.M3
	B        lin.V3
	V        lin.V3 // previous-step local velocity.
}

// dashedNormal computes the "dashed normal velocity" ûₙ (glossary):
// Uₙ + e*min(Vₙ,0) in dynamic mode, max(g,0)/h + Uₙ otherwise.
func dashedNormal(p *Params, U *lin.V3) float64 {
	if p.Dynamic {
		return U.Z + p.E*math.Min(p.V.Z, 0)
	}
	return math.Max(p.Gap, 0)/p.H + U.Z
}

// relConverged is the relative-error stop test |delta R| / max(|R|,1) < eps.
func relConverged(deltaR *lin.V3, R *lin.V3, eps float64) bool {
	return deltaR.Len()/math.Max(R.Len(), 1) < eps
}

// openContact applies §4.1's opening rule for a dynamic contact whose
// gap is positive: R=0, U=B. Callers check this before iterating.
func openContact(p *Params, U, R *lin.V3) {
	R.SetS(0, 0, 0)
	U.Set(&p.B)
}

// isOpenDynamic reports whether a CONTACT kernel should short-circuit
// to the open-contact rule.
func isOpenDynamic(p *Params) bool { return p.Dynamic && p.Gap > 0 }

func finite3(v *lin.V3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// projectCone projects (Rt, Rn) onto the Coulomb cone: clamp Rn to be
// non-negative, then clamp the tangential magnitude to mu*Rn.
func projectCone(R *lin.V3, mu float64) {
	if R.Z < 0 {
		R.Z = 0
	}
	tlen := math.Hypot(R.X, R.Y)
	limit := mu * R.Z
	if tlen > limit && tlen > lin.Epsilon {
		scale := limit / tlen
		R.X *= scale
		R.Y *= scale
	}
}
