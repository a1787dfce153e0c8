// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package kernel

import (
	"math"

	"github.com/nsmd/core/math/lin"
)

// SemismoothNewton solves the per-contact Signorini-Coulomb
// sub-problem with Newton's method, rebuilding a 3x3 Jacobian each
// iteration according to the current solution mode: open, sticking,
// sliding (non-degenerate), or sliding (degenerate, mu*d3==0). Every
// tenth iteration escalates the penalty rho by 10x; the kernel fails
// when rho overflows or a linear solve is singular (§4.1).
func SemismoothNewton(p *Params, U, R *lin.V3) (int, error) {
	if isOpenDynamic(p) {
		openContact(p, U, R)
		return 0, nil
	}
	rho := p.Rho
	for iter := 1; iter <= p.MaxIter; iter++ {
		U.MultMv(&p.W, R)
		U.Add(U, &p.B)

		var jac lin.M3
		var rhs lin.V3
		mode := classify(p, U, R)
		switch mode {
		case modeOpen:
			jac = lin.M3{Xx: 1, Yy: 1, Zz: 1}
			rhs = lin.V3{X: -R.X, Y: -R.Y, Z: -R.Z}
		case modeSticking:
			jac = p.W
			jac.Zx += 1 // unit normal coupling on row 3: sticking pins the tangential velocity to zero.
			ubar := dashedNormal(p, U)
			rhs = lin.V3{X: -U.X, Y: -U.Y, Z: -ubar}
		case modeSlidingNondeg:
			jac = slidingJacobian(p, U, rho)
			ubar := dashedNormal(p, U)
			rhs = lin.V3{X: -U.X, Y: -U.Y, Z: -ubar}
		case modeSlidingDeg:
			jac = degenerateJacobian(p, rho)
			rhs = lin.V3{X: -U.X, Y: -U.Y, Z: 0}
		}

		var delta lin.V3
		ok := lin.Solve3(&jac, &rhs, &delta)
		if !ok {
			return iter, ErrDiagonalFailed
		}

		trial := lin.V3{X: R.X + delta.X, Y: R.Y + delta.Y, Z: R.Z + delta.Z}
		projectCone(&trial, p.Mu)
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

		if iter%10 == 0 {
			rho *= 10
			if math.IsInf(rho, 1) {
				return iter, ErrDiagonalFailed
			}
		}
	}
	return p.MaxIter, ErrDiagonalDiverged
}

type mode int

const (
	modeOpen mode = iota
	modeSticking
	modeSlidingNondeg
	modeSlidingDeg
)

// classify picks the Newton branch for the current (U,R) iterate: the
// contact is open if the dashed normal velocity is negative
// (non-penetrating and separating), sticking if the tangential
// velocity |U_t| is below lin.Epsilon, sliding otherwise,
// with the degenerate sliding branch reserved for the cone-apex case
// mu*Rn == 0.
func classify(p *Params, U, R *lin.V3) mode {
	d3 := dashedNormal(p, U)
	if d3 < 0 {
		return modeOpen
	}
	ut := math.Hypot(U.X, U.Y)
	if ut < lin.Epsilon {
		return modeSticking
	}
	if p.Mu*R.Z < lin.Epsilon {
		return modeSlidingDeg
	}
	return modeSlidingNondeg
}

// slidingJacobian builds the Jacobian for the non-degenerate sliding
// branch: W with rho*mu*U_x/|U_t| added to its first diagonal entry and
// rho*mu*U_y/|U_t| added to its second. The normal row and column are
// W's own; no friction-normal coupling term is added.
func slidingJacobian(p *Params, U *lin.V3, rho float64) lin.M3 {
	jac := p.W
	ut := math.Max(math.Hypot(U.X, U.Y), lin.Epsilon)
	coupleX := p.Mu * U.X / ut
	coupleY := p.Mu * U.Y / ut
	jac.Xx += rho * coupleX
	jac.Yy += rho * coupleY
	return jac
}

// degenerateJacobian enforces homogeneous tangential tractions when
// the cone has collapsed to its apex (mu*Rn == 0).
func degenerateJacobian(p *Params, rho float64) lin.M3 {
	jac := p.W
	jac.Xx += rho
	jac.Yy += rho
	return jac
}
