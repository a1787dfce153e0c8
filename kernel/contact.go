// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package kernel

import (
	"math"

	"github.com/nsmd/core/math/lin"
)

// ProjectedGradient iterates U <- B + W*R, takes a gradient trial
// step scaled by rho, and projects onto the Coulomb cone (§4.1
// "Projected gradient").
func ProjectedGradient(p *Params, U, R *lin.V3) (int, error) {
	if isOpenDynamic(p) {
		openContact(p, U, R)
		return 0, nil
	}
	for iter := 1; iter <= p.MaxIter; iter++ {
		U.MultMv(&p.W, R)
		U.Add(U, &p.B)
		ubar := dashedNormal(p, U)

		trial := lin.V3{X: R.X - p.Rho*U.X, Y: R.Y - p.Rho*U.Y, Z: R.Z - p.Rho*ubar}
		projectCone(&trial, p.Mu)

		var delta lin.V3
		delta.Sub(&trial, R)
		converged := relConverged(&delta, R, p.Eps)
		*R = trial
		if !finite3(R) {
			return iter, ErrDiagonalFailed
		}
		if converged {
			U.MultMv(&p.W, R)
			U.Add(U, &p.B)
			return iter, nil
		}
	}
	return p.MaxIter, ErrDiagonalDiverged
}

// DeSaxceFeng mirrors ProjectedGradient but folds the friction-cone
// coupling into the normal trial step, tauN = Rn - rho*(ubar +
// mu*|Ut|), before projecting onto the dual cone via the three cases
// named in §4.1: below, inside, apex-adjacent.
func DeSaxceFeng(p *Params, U, R *lin.V3) (int, error) {
	if isOpenDynamic(p) {
		openContact(p, U, R)
		return 0, nil
	}
	for iter := 1; iter <= p.MaxIter; iter++ {
		U.MultMv(&p.W, R)
		U.Add(U, &p.B)
		ut := math.Hypot(U.X, U.Y)
		ubar := dashedNormal(p, U)
		tauN := R.Z - p.Rho*(ubar+p.Mu*ut)

		trial := lin.V3{
			X: R.X - p.Rho*U.X,
			Y: R.Y - p.Rho*U.Y,
			Z: tauN,
		}
		deSaxceProject(&trial, p.Mu)

		var delta lin.V3
		delta.Sub(&trial, R)
		converged := relConverged(&delta, R, p.Eps)
		*R = trial
		if !finite3(R) {
			return iter, ErrDiagonalFailed
		}
		if converged {
			U.MultMv(&p.W, R)
			U.Add(U, &p.B)
			return iter, nil
		}
	}
	return p.MaxIter, ErrDiagonalDiverged
}

// deSaxceProject projects R onto the dual friction cone {|Rt| <= mu*Rn}.
func deSaxceProject(R *lin.V3, mu float64) { *R = ConeProjection(R, mu) }

// ConeProjection is the Moreau projection of v onto the second-order
// Coulomb cone {|v_t| <= mu*v_n}: three cases, below the (reversed)
// cone -> zero; inside the cone -> copy; apex-adjacent -> the standard
// analytical projection onto the boundary. Shared by the De Saxce-Feng
// kernel and the merit function's per-contact residual (§4.3, "F_cone
// ... projected via the real-cone normal").
func ConeProjection(v *lin.V3, mu float64) lin.V3 {
	rt := math.Hypot(v.X, v.Y)
	switch {
	case rt <= mu*v.Z:
		return *v
	case mu*rt <= -v.Z || (rt < lin.Epsilon && v.Z < 0):
		return lin.V3{}
	default:
		norm := math.Sqrt(1 + mu*mu)
		scale := (mu*rt + v.Z) / (norm * norm)
		nrm := mu * scale
		out := lin.V3{Z: scale}
		if rt > lin.Epsilon {
			out.X = v.X * nrm / rt
			out.Y = v.Y * nrm / rt
		}
		return out
	}
}
