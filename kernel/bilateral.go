// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package kernel

import (
	"math"

	"github.com/nsmd/core/math/lin"
)

// Fixpnt solves W*R = -V-B (dynamic) or -B (static) via the
// Cholesky-like symmetric solve, used by both FIXPNT and GLUE (§4.1).
func Fixpnt(p *Params, U, R *lin.V3) (int, error) {
	rhs := p.B
	if p.Dynamic {
		rhs.Add(&rhs, &p.V)
	}
	rhs.Scale(&rhs, -1)
	if ok := lin.SolveSym3(&p.W, &rhs, R); !ok {
		return 0, ErrDiagonalFailed
	}
	U.MultMv(&p.W, R)
	U.Add(U, &p.B)
	return 1, nil
}

// Glue is an alias of Fixpnt: a GLUE constraint enforces the same
// zero-relative-velocity equation, it is only distinguished upstream
// by its lifecycle (never removed on separation).
func Glue(p *Params, U, R *lin.V3) (int, error) { return Fixpnt(p, U, R) }

// Fixdir solves only the normal row: tangent reaction stays zero,
// Rn = -(Vn+Bn)/W[8] (dynamic) or -Bn/W[8] (§4.1).
func Fixdir(p *Params, U, R *lin.V3) (int, error) {
	if p.W.Zz == 0 {
		return 0, ErrDiagonalFailed
	}
	num := -p.B.Z
	if p.Dynamic {
		num -= p.V.Z
	}
	R.SetS(0, 0, num/p.W.Zz)
	U.MultMv(&p.W, R)
	U.Add(U, &p.B)
	return 1, nil
}

// Velodir targets a prescribed normal velocity Un = z supplied by the
// time-series sample: Rn = (z-Bn)/W[8] (§4.1).
func Velodir(p *Params, target float64, U, R *lin.V3) (int, error) {
	if p.W.Zz == 0 {
		return 0, ErrDiagonalFailed
	}
	R.SetS(0, 0, (target-p.B.Z)/p.W.Zz)
	U.MultMv(&p.W, R)
	U.Add(U, &p.B)
	return 1, nil
}

// SpringDashpot sets U=B and returns 0 without iterating (§4.1). R is
// left unchanged: no normal or tangential surface law is evaluated here.
func SpringDashpot(p *Params, U, R *lin.V3) (int, error) {
	U.Set(&p.B)
	return 0, nil
}

// RiglnkParams extends Params with the length-preserving distance
// constraint's reference vector and rest length (CON.Z, §4.1 RIGLNK).
type RiglnkParams struct {
	Params
	RefVector lin.V3  // reference direction/vector stored in CON.Z[0:3].
	RefLength float64 // rest length stored in CON.Z[3].
	Explicit  bool    // explicit (post half-step length) vs implicit Newton branch.
	Length    float64 // current length, supplied by the caller for the explicit branch.
}

// Riglnk solves the length-preserving distance constraint. The
// explicit branch uses the length already computed after the
// half-step; the implicit branch runs a small Newton iteration on the
// 4x4 augmented system (translation components plus the Lagrange
// multiplier lambda) described in §4.1.
func Riglnk(p *RiglnkParams, lambda *float64, U, R *lin.V3) (int, error) {
	if p.Explicit {
		g := p.Length - p.RefLength
		R.SetS(0, 0, -(g/p.H + U.Z))
		U.MultMv(&p.W, R)
		U.Add(U, &p.B)
		return 1, nil
	}
	return riglnkImplicit(p, lambda, U, R)
}

// riglnkImplicit assembles LRR, LRl, LL each iteration from the
// current reaction and multiplier, solves the augmented system, and
// updates R and lambda until |delta|/|R| < eps (§4.1).
func riglnkImplicit(p *RiglnkParams, lambda *float64, U, R *lin.V3) (int, error) {
	for iter := 1; iter <= p.MaxIter; iter++ {
		U.MultMv(&p.W, R)
		U.Add(U, &p.B)

		// LRR is the 3x3 reaction-reaction block (the Delassus W
		// itself); LRl couples the multiplier into the translational
		// rows via the reference direction; LL is the scalar
		// constraint-constraint block.
		lRl := p.RefVector
		var lRR lin.M3
		lRR = p.W
		g := U.Dot(&p.RefVector) + (p.Length-p.RefLength)/p.H

		// augmented 4x4 solve folded into a 3x3 Schur complement since
		// LRl is rank-1: solve LRR*dR = -(U) - LRl*dlambda for the
		// dlambda that also satisfies the length row.
		var wInvRefVec lin.V3
		if ok := lin.SolveSym3(&lRR, &lRl, &wInvRefVec); !ok {
			return iter, ErrDiagonalFailed
		}
		denom := lRl.Dot(&wInvRefVec)
		if math.Abs(denom) < lin.Epsilon {
			return iter, ErrDiagonalFailed
		}
		var wInvU lin.V3
		lin.SolveSym3(&lRR, U, &wInvU)
		dLambda := (g - lRl.Dot(&wInvU)) / denom

		var rhs lin.V3
		rhs.Scale(U, -1)
		var scaledRef lin.V3
		scaledRef.Scale(&lRl, dLambda)
		rhs.Sub(&rhs, &scaledRef)
		var dR lin.V3
		if ok := lin.SolveSym3(&lRR, &rhs, &dR); !ok {
			return iter, ErrDiagonalFailed
		}

		R.Add(R, &dR)
		*lambda += dLambda
		if !finite3(R) {
			return iter, ErrDiagonalFailed
		}
		if dR.Len()/math.Max(R.Len(), 1) < p.Eps {
			U.MultMv(&p.W, R)
			U.Add(U, &p.B)
			return iter, nil
		}
	}
	return p.MaxIter, ErrDiagonalDiverged
}
