// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package newton

import (
	"errors"
	"math"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

// ErrRiglnkUnsupported reports that the active constraint set contains
// a RIGLNK, which the Newton system deliberately does not handle (§7
// "Unsupported mode: RIGLNK inside Newton").
var ErrRiglnkUnsupported = errors.New("newton: RIGLNK is not supported inside the Newton solver")

// ErrDiverged reports that the outer loop reached MaxOuter without the
// external merit falling below MeritVal.
var ErrDiverged = errors.New("newton: outer iteration cap reached")

// State is the smoothed semi-smooth Newton solver state of §4.7.
type State struct {
	Dynamic bool
	H       float64

	MaxOuter int

	// Epsilon, Omega are the current smoothing parameters (eps on the
	// operator's identity term, omega on the cone mollifier); Beta
	// gates the schedule update. All three mutate across outer
	// iterations per step 5's schedule.
	Epsilon, Omega, Beta float64

	// Kappa1, Kappa2, Eta, Eta1 are the schedule coefficients of step 5.
	Kappa1, Kappa2, Eta, Eta1 float64

	// Sigma is the GMRES relative-residual factor (step 2) and enters
	// the line-search acceptance test (step 4).
	Sigma float64
	// LineSearchRho is the sufficient-decrease coefficient rho in step 4.
	LineSearchRho float64
	// MinTheta is the smallest line-search step accepted before giving
	// up and taking the last trial (step 4, "theta >= 1e-6").
	MinTheta float64

	GMRESRestart int
	GMRESMaxIter int

	// MeritVal is the external-merit stopping threshold (step 6).
	MeritVal float64

	// History records |C| at the end of every outer iteration.
	History []float64
}

// NewDefaultState returns workable defaults for a first run.
func NewDefaultState(dynamic bool, h float64) *State {
	return &State{
		Dynamic:       dynamic,
		H:             h,
		MaxOuter:      50,
		Epsilon:       1e-2,
		Omega:         1e-2,
		Beta:          1,
		Kappa1:        1,
		Kappa2:        1,
		Eta:           0.9,
		Eta1:          0.9,
		Sigma:         1e-4,
		LineSearchRho: 1e-4,
		MinTheta:      1e-6,
		GMRESRestart:  20,
		GMRESMaxIter:  100,
		MeritVal:      1e-8,
	}
}

// block is one active (non-open, non-RIGLNK) DIAB entry in the
// Newton unknown vector, with its stacked-vector offset.
type block struct {
	d   *locdyn.DiagBlock
	off int
}

// Solve runs the Newton outer loop over every non-open constraint in
// g, mutating Con.R/Con.U in place, and returns the outer iteration
// count (§4.7).
func Solve(g *locdyn.Graph, st *State) (int, error) {
	all := g.All()
	blocks := make([]*block, 0, len(all))
	index := make(map[uint64]int, len(all))
	for _, d := range all {
		if d.Con.Kind == constraint.RIGLNK {
			return 0, ErrRiglnkUnsupported
		}
		if d.Con.Kind == constraint.CONTACT && isOpenDynamic(d.Con, st) {
			continue
		}
		index[d.ID] = len(blocks) * 3
		blocks = append(blocks, &block{d: d, off: len(blocks) * 3})
	}
	st.History = st.History[:0]

	n := len(blocks) * 3
	for outer := 0; outer < st.MaxOuter; outer++ {
		refreshU(blocks)
		cvec := buildResidual(blocks, st)
		cNorm := norm(cvec)
		st.History = append(st.History, cNorm)

		if externalMerit(g, st) < st.MeritVal {
			return outer, nil
		}

		jac := buildJacobians(blocks, st)
		op := buildOperator(blocks, index, n, jac, st.Epsilon)
		precond := buildPreconditioner(blocks, jac, st.Epsilon)

		// §4.7: "rows and columns corresponding to the normal equation
		// are scaled by 1/mu when mu>0; after convergence the scaling
		// is undone." Implemented as a per-block diagonal similarity
		// transform D=diag(1,1,1/mu) wrapped around the matrix-free
		// operator/preconditioner, so the linear solve runs in scaled
		// coordinates while Con.R/Con.U stay in physical units
		// throughout (other packages read them directly).
		scaledOp := scaleOperator(blocks, op)
		scaledPrecond := scalePrecond(blocks, precond)

		rhs := scaleCopy(-1, cvec)
		rhsScaled := scaleVec(blocks, rhs, true)
		drScaled, _ := FGMRES(scaledOp, rhsScaled, scaledPrecond, st.GMRESRestart, st.GMRESMaxIter, st.Sigma*math.Max(cNorm, 1e-300))
		dr := scaleVec(blocks, drScaled, false)
		du := applyW(blocks, index, dr)

		theta := lineSearch(blocks, st, cNorm, dr, du)
		for _, b := range blocks {
			b.d.Con.R.X += theta * dr[b.off]
			b.d.Con.R.Y += theta * dr[b.off+1]
			b.d.Con.R.Z += theta * dr[b.off+2]
			b.d.Con.U.X += theta * du[b.off]
			b.d.Con.U.Y += theta * du[b.off+1]
			b.d.Con.U.Z += theta * du[b.off+2]
		}

		if cNorm > st.Beta {
			updateSchedule(st, cNorm)
		}
	}
	return st.MaxOuter, ErrDiverged
}

// scaleFactor returns the diagonal scale 1/mu applied to a CONTACT
// block's normal row/column when mu>0 (§4.7 friction scaling); every
// other constraint kind is unscaled.
func scaleFactor(con *constraint.Con) float64 {
	if con.Kind == constraint.CONTACT && con.Mat.Mu > 0 {
		return 1 / con.Mat.Mu
	}
	return 1
}

// scaleVec applies D=diag(1,1,scaleFactor) (forward=true) or its
// inverse (forward=false) to the normal component of every active
// block in a stacked vector.
func scaleVec(blocks []*block, v []float64, forward bool) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	for _, b := range blocks {
		s := scaleFactor(b.d.Con)
		if !forward {
			s = 1 / s
		}
		out[b.off+2] *= s
	}
	return out
}

// scaleOperator conjugates op by D: scaledOp(x) = D*op(D^-1*x), so the
// linear system seen by the Krylov solver is already in scaled
// coordinates (§4.7 friction scaling).
func scaleOperator(blocks []*block, op Op) Op {
	return func(x []float64) []float64 {
		return scaleVec(blocks, op(scaleVec(blocks, x, false)), true)
	}
}

// scalePrecond applies the same similarity transform to the block
// preconditioner.
func scalePrecond(blocks []*block, precond Precond) Precond {
	if precond == nil {
		return nil
	}
	return func(r []float64) []float64 {
		return scaleVec(blocks, precond(scaleVec(blocks, r, false)), true)
	}
}

func isOpenDynamic(con *constraint.Con, st *State) bool {
	return st.Dynamic && con.Gap > 0
}

func refreshU(blocks []*block) {
	for _, b := range blocks {
		d := b.d
		var u lin.V3
		u.MultMv(&d.W, &d.Con.R)
		for _, ob := range d.Adjacent() {
			w := ob.ResolvedW()
			var wr lin.V3
			wr.MultMv(&w, &ob.Nbr.Con.R)
			u.Add(&u, &wr)
		}
		for _, ob := range d.External() {
			w := ob.ResolvedW()
			var wr lin.V3
			wr.MultMv(&w, &ob.Nbr.Con.R)
			u.Add(&u, &wr)
		}
		u.Add(&u, &d.B)
		d.Con.U = u
	}
}

// buildResidual evaluates c_i = m(R_i - F(U_i)) - R_i for every active
// block, the reduced second block of C(U,R) of §4.7 once U is
// eliminated via U=W*R+B (see system.go doc in DESIGN.md).
func buildResidual(blocks []*block, st *State) []float64 {
	out := make([]float64, len(blocks)*3)
	for _, b := range blocks {
		con := b.d.Con
		f := fValueReal(con, st)
		s := lin.V3{X: con.R.X - f.X, Y: con.R.Y - f.Y, Z: con.R.Z - f.Z}
		m := mValueReal(con, s, st.Omega)
		out[b.off] = m.X - con.R.X
		out[b.off+1] = m.Y - con.R.Y
		out[b.off+2] = m.Z - con.R.Z
	}
	return out
}

type jacobianPair struct {
	x, y [3][3]float64
}

// buildJacobians computes X_i = dF/dU and Y_i = I - dm/dS at the
// current iterate via complex-step differentiation (§9).
func buildJacobians(blocks []*block, st *State) map[uint64]jacobianPair {
	out := make(map[uint64]jacobianPair, len(blocks))
	for _, b := range blocks {
		con := b.d.Con
		x := complexStepJacobian(func(u cplx3) cplx3 { return fValue(con, st, u) }, [3]float64{con.U.X, con.U.Y, con.U.Z})
		f := fValueReal(con, st)
		s := [3]float64{con.R.X - f.X, con.R.Y - f.Y, con.R.Z - f.Z}
		dm := complexStepJacobian(func(sv cplx3) cplx3 { return mValue(con, sv, st.Omega) }, s)
		var y [3][3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				id := 0.0
				if i == j {
					id = 1
				}
				y[i][j] = id - dm[i][j]
			}
		}
		out[con.ID] = jacobianPair{x: x, y: y}
	}
	return out
}

func mat3Mul3(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// buildOperator returns the matrix-free action of (X*W + eps*I + Y)
// over the stacked ΔR vector (§4.7 step 2).
func buildOperator(blocks []*block, index map[uint64]int, n int, jac map[uint64]jacobianPair, eps float64) Op {
	return func(dr []float64) []float64 {
		du := applyW(blocks, index, dr)
		out := make([]float64, n)
		for _, b := range blocks {
			jp := jac[b.d.Con.ID]
			xdu := mat3Mul3(jp.x, [3]float64{du[b.off], du[b.off+1], du[b.off+2]})
			ydr := mat3Mul3(jp.y, [3]float64{dr[b.off], dr[b.off+1], dr[b.off+2]})
			out[b.off] = xdu[0] + eps*dr[b.off] + ydr[0]
			out[b.off+1] = xdu[1] + eps*dr[b.off+1] + ydr[1]
			out[b.off+2] = xdu[2] + eps*dr[b.off+2] + ydr[2]
		}
		return out
	}
}

// buildPreconditioner block-inverts T_i = X_i*W_ii + eps*X_i + Y_i for
// each active constraint (§4.7 step 1, "block-inverted for each 3x3").
func buildPreconditioner(blocks []*block, jac map[uint64]jacobianPair, eps float64) Precond {
	ts := make(map[uint64]lin.M3, len(blocks))
	for _, b := range blocks {
		jp := jac[b.d.Con.ID]
		xw := mat3Mat3(jp.x, b.d.W)
		var t lin.M3
		t.Xx = xw[0][0] + eps*jp.x[0][0] + jp.y[0][0]
		t.Xy = xw[0][1] + eps*jp.x[0][1] + jp.y[0][1]
		t.Xz = xw[0][2] + eps*jp.x[0][2] + jp.y[0][2]
		t.Yx = xw[1][0] + eps*jp.x[1][0] + jp.y[1][0]
		t.Yy = xw[1][1] + eps*jp.x[1][1] + jp.y[1][1]
		t.Yz = xw[1][2] + eps*jp.x[1][2] + jp.y[1][2]
		t.Zx = xw[2][0] + eps*jp.x[2][0] + jp.y[2][0]
		t.Zy = xw[2][1] + eps*jp.x[2][1] + jp.y[2][1]
		t.Zz = xw[2][2] + eps*jp.x[2][2] + jp.y[2][2]
		ts[b.d.Con.ID] = t
	}
	return func(r []float64) []float64 {
		out := make([]float64, len(r))
		for _, b := range blocks {
			t := ts[b.d.Con.ID]
			rhs := lin.V3{X: r[b.off], Y: r[b.off+1], Z: r[b.off+2]}
			var z lin.V3
			if !lin.Solve3(&t, &rhs, &z) {
				z = rhs // singular block: fall back to identity, let GMRES absorb it.
			}
			out[b.off], out[b.off+1], out[b.off+2] = z.X, z.Y, z.Z
		}
		return out
	}
}

func mat3Mat3(a [3][3]float64, w lin.M3) [3][3]float64 {
	wm := [3][3]float64{
		{w.Xx, w.Xy, w.Xz},
		{w.Yx, w.Yy, w.Yz},
		{w.Zx, w.Zy, w.Zz},
	}
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				s += a[i][k] * wm[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// applyW computes the global matrix-free action du = W*dr of the
// Delassus operator over the active block set, reusing each DIAB's
// own W and every adjacency's W_ij exactly as gs.localFreeVelocity
// walks the same graph for the BGS sweep.
func applyW(blocks []*block, index map[uint64]int, dr []float64) []float64 {
	out := make([]float64, len(dr))
	for _, b := range blocks {
		d := b.d
		local := lin.V3{X: dr[b.off], Y: dr[b.off+1], Z: dr[b.off+2]}
		var u lin.V3
		u.MultMv(&d.W, &local)
		for _, ob := range d.Adjacent() {
			joff, ok := index[ob.Nbr.ID]
			if !ok {
				continue // neighbour is open/excluded: contributes no perturbation.
			}
			w := ob.ResolvedW()
			nbrDr := lin.V3{X: dr[joff], Y: dr[joff+1], Z: dr[joff+2]}
			var wr lin.V3
			wr.MultMv(&w, &nbrDr)
			u.Add(&u, &wr)
		}
		for _, ob := range d.External() {
			joff, ok := index[ob.Nbr.ID]
			if !ok {
				continue
			}
			w := ob.ResolvedW()
			nbrDr := lin.V3{X: dr[joff], Y: dr[joff+1], Z: dr[joff+2]}
			var wr lin.V3
			wr.MultMv(&w, &nbrDr)
			u.Add(&u, &wr)
		}
		out[b.off], out[b.off+1], out[b.off+2] = u.X, u.Y, u.Z
	}
	return out
}

// lineSearch implements step 4: accept the first theta such that
// |C(U+theta*dU, R+theta*dR)| <= (1-theta*rho*(1-sigma))*|C|, halving
// theta from 1 down to MinTheta.
func lineSearch(blocks []*block, st *State, c0Norm float64, dr, du []float64) float64 {
	theta := 1.0
	for theta >= st.MinTheta {
		trial := trialResidual(blocks, st, theta, dr, du)
		if norm(trial) <= (1-theta*st.LineSearchRho*(1-st.Sigma))*c0Norm {
			return theta
		}
		theta *= 0.5
	}
	return st.MinTheta
}

func trialResidual(blocks []*block, st *State, theta float64, dr, du []float64) []float64 {
	out := make([]float64, len(blocks)*3)
	for _, b := range blocks {
		con := b.d.Con
		trialR := lin.V3{X: con.R.X + theta*dr[b.off], Y: con.R.Y + theta*dr[b.off+1], Z: con.R.Z + theta*dr[b.off+2]}
		trialU := lin.V3{X: con.U.X + theta*du[b.off], Y: con.U.Y + theta*du[b.off+1], Z: con.U.Z + theta*du[b.off+2]}
		savedR, savedU := con.R, con.U
		con.R, con.U = trialR, trialU
		f := fValueReal(con, st)
		s := lin.V3{X: con.R.X - f.X, Y: con.R.Y - f.Y, Z: con.R.Z - f.Z}
		m := mValueReal(con, s, st.Omega)
		con.R, con.U = savedR, savedU
		out[b.off] = m.X - trialR.X
		out[b.off+1] = m.Y - trialR.Y
		out[b.off+2] = m.Z - trialR.Z
	}
	return out
}

// updateSchedule applies step 5's eps/omega/beta update. omegaLambda
// is computed as 0.5*sqrt(delta): the closest-eigenvalue factor |alpha|
// of the friction-cone projection is taken as 1, so no block's
// eigendecomposition is materialized on any outer iteration.
func updateSchedule(st *State, cNorm float64) {
	delta := st.Kappa2 * cNorm * cNorm
	omegaLambda := 0.5 * math.Sqrt(delta)
	st.Epsilon = math.Min(st.Kappa1*cNorm*cNorm, st.Eta1*st.Epsilon)
	st.Omega = math.Min(st.Kappa2*cNorm*cNorm, math.Min(st.Eta1*st.Omega, omegaLambda))
	st.Beta *= st.Eta
}

// externalMerit recomputes the global merit with eps=omega=0, the
// "external" test of step 6. F itself has no eps/omega dependence, so
// only the mValueReal call below needs the forced omega=0.
func externalMerit(g *locdyn.Graph, st *State) float64 {
	sum := 0.0
	denom := math.Max(g.FreeEnergy, 1)
	for _, d := range g.All() {
		con := d.Con
		if con.Kind == constraint.RIGLNK {
			continue
		}
		if con.Kind == constraint.CONTACT && isOpenDynamic(con, st) {
			continue
		}
		f := fValueReal(con, st)
		s := lin.V3{X: con.R.X - f.X, Y: con.R.Y - f.Y, Z: con.R.Z - f.Z}
		m := mValueReal(con, s, 0)
		g3 := lin.V3{X: m.X - con.R.X, Y: m.Y - con.R.Y, Z: m.Z - con.R.Z}
		var ag lin.V3
		ag.MultMv(&d.A, &g3)
		sum += 0.5 * ag.Dot(&g3)
	}
	return sum / denom
}
