// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package newton

import (
	"math"
	"math/cmplx"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/math/lin"
)

// fValue is F(U), the frictional-contact normal mapping of §4.7,
// evaluated with a complex argument so its Jacobian can be obtained by
// complex-step. Dispatch mirrors merit.Residual's per-kind table:
// CONTACT gets the (U_t, ubar+mu|U_t|) row; every bilateral kind
// reduces to an equality U (optionally offset by V or a target), which
// collapses C(U,R) to -F(U) once m is the identity for those kinds
// (see mValue).
func fValue(con *constraint.Con, st *State, u cplx3) cplx3 {
	switch con.Kind {
	case constraint.CONTACT:
		ut := cplxHypot(u.X, u.Y)
		var ubar complex128
		if st.Dynamic {
			ubar = u.Z + complex(con.Mat.E*math.Min(con.V.Z, 0), 0)
		} else {
			ubar = u.Z + complex(math.Max(con.Gap, 0)/st.H, 0)
		}
		return cplx3{X: u.X, Y: u.Y, Z: ubar + complex(con.Mat.Mu, 0)*ut}
	case constraint.FIXPNT, constraint.GLUE:
		if st.Dynamic {
			return cplx3{X: u.X + complex(con.V.X, 0), Y: u.Y + complex(con.V.Y, 0), Z: u.Z + complex(con.V.Z, 0)}
		}
		return u
	case constraint.FIXDIR:
		return cplx3{X: complex(con.R.X, 0), Y: complex(con.R.Y, 0), Z: u.Z}
	case constraint.VELODIR:
		return cplx3{X: complex(con.R.X, 0), Y: complex(con.R.Y, 0), Z: u.Z - complex(con.Aux.VelodirTarget(), 0)}
	default:
		return u
	}
}

func fValueReal(con *constraint.Con, st *State) lin.V3 {
	u := cplx3{X: complex(con.U.X, 0), Y: complex(con.U.Y, 0), Z: complex(con.U.Z, 0)}
	f := fValue(con, st, u)
	return lin.V3{X: real(f.X), Y: real(f.Y), Z: real(f.Z)}
}

// mValue is m(S), the normal-ray Coulomb-cone projection of §4.7. For
// CONTACT it is kernel.ConeProjection reimplemented over cplx3 (so its
// Jacobian can be complex-stepped too) with an optional C1 mollifier
// blending the three cases when omega>0. For every bilateral kind the
// "cone" degenerates to the whole space (no friction, no unilateral
// gap), so m is the identity.
func mValue(con *constraint.Con, s cplx3, omega float64) cplx3 {
	if con.Kind != constraint.CONTACT {
		return s
	}
	mu := con.Mat.Mu
	rtReal := math.Hypot(real(s.X), real(s.Y))
	zReal := real(s.Z)

	if omega <= 0 {
		switch {
		case rtReal <= mu*zReal:
			return s
		case mu*rtReal <= -zReal || (rtReal < 1e-12 && zReal < 0):
			return cplx3{}
		default:
			return coneBoundary(s, mu, rtReal)
		}
	}

	// Smoothed blend across the three regimes: a logistic mollifier of
	// half-width omega straddling each case boundary, so the operator
	// stays analytic near the cone edges instead of hard-switching
	// (§9 "a C1 mollifier to the eigenvalues of the 2x2 tangential
	// block").
	inside := sigmoid((rtReal - mu*zReal) / omega)
	below := sigmoid((-zReal - mu*rtReal) / omega)
	boundary := coneBoundary(s, mu, rtReal)
	// wZero = below is the weight on the zero branch; omitted from the
	// sum below since it always contributes the zero vector.
	wBoundary := inside * (1 - below)
	wIdentity := (1 - inside) * (1 - below)
	return cplx3{
		X: complex(wIdentity, 0)*s.X + complex(wBoundary, 0)*boundary.X,
		Y: complex(wIdentity, 0)*s.Y + complex(wBoundary, 0)*boundary.Y,
		Z: complex(wIdentity, 0)*s.Z + complex(wBoundary, 0)*boundary.Z,
	}
}

func coneBoundary(s cplx3, mu, rtReal float64) cplx3 {
	rt := cplxHypot(s.X, s.Y)
	norm := cmplx.Sqrt(complex(1+mu*mu, 0))
	scale := (complex(mu, 0)*rt + s.Z) / (norm * norm)
	nrm := complex(mu, 0) * scale
	out := cplx3{Z: scale}
	if rtReal > 1e-12 {
		out.X = s.X * nrm / rt
		out.Y = s.Y * nrm / rt
	}
	return out
}

func mValueReal(con *constraint.Con, s lin.V3, omega float64) lin.V3 {
	cs := cplx3{X: complex(s.X, 0), Y: complex(s.Y, 0), Z: complex(s.Z, 0)}
	m := mValue(con, cs, omega)
	return lin.V3{X: real(m.X), Y: real(m.Y), Z: real(m.Z)}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
