// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package gs implements C5: the single-threaded forward/backward block
// Gauss-Seidel sweep over a LOCDYN graph (§4.5).
package gs

import (
	"errors"
	"math"

	"github.com/cpmech/gosl/chk"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/kernel"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
)

// KernelSelector picks the diagonal kernel used for CONTACT
// constraints (§6 "Kernel selector").
type KernelSelector int

const (
	ProjectedGradient KernelSelector = iota
	DeSaxceFeng
	SemismoothNewton
)

// FailurePolicy selects what happens when a diagonal kernel fails
// (§6 "Failure policy", §7).
type FailurePolicy int

const (
	Continue FailurePolicy = iota
	Exit
	Callback
)

// ErrDiverged reports the outer loop reached its iteration cap without
// satisfying the tolerance or merit threshold (§7 "Global
// non-convergence").
var ErrDiverged = errors.New("gs: outer loop diverged")

// State is the GAUSS_SEIDEL solver state of §3.
type State struct {
	Eps          float64
	MaxIter      int
	KernelEps    float64
	KernelMaxIter int
	Kernel       KernelSelector
	Policy       FailurePolicy
	Reverse      bool // alternate sweep direction each outer iteration.
	Dynamic      bool
	H            float64

	// Callback is invoked under the Callback failure policy with the
	// failing DIAB's constraint id and the kernel error.
	Callback func(conID uint64, err error)

	// ErrHistory records the relative error of every outer iteration.
	ErrHistory []float64
}

// Sweep runs the BGS outer loop to State.MaxIter or until the relative
// error drops below State.Eps, returning the iteration count (§4.5).
func Sweep(g *locdyn.Graph, s *State) (int, error) {
	blocks := g.All()
	s.ErrHistory = s.ErrHistory[:0]
	for iter := 0; iter < s.MaxIter; iter++ {
		forward := !s.Reverse || iter%2 == 0
		errRel, err := sweepOnce(blocks, s, forward)
		s.ErrHistory = append(s.ErrHistory, errRel)
		if err != nil {
			return iter + 1, err
		}
		if errRel < s.Eps {
			return iter + 1, nil
		}
	}
	return s.MaxIter, ErrDiverged
}

// SweepOnce runs a single forward or backward pass over every DIAB in
// g, for callers that drive their own outer stopping test (the
// top-level Step orchestration checks the merit function after every
// pass rather than Sweep's own relative-error criterion).
func SweepOnce(g *locdyn.Graph, s *State, forward bool) (float64, error) {
	return sweepOnce(g.All(), s, forward)
}

// sweepOnce performs a single forward or backward pass over every
// DIAB, updating R/U in place and accumulating the relative error
// sum|deltaR|^2 / sum|R|^2 (§4.5 step e).
func sweepOnce(blocks []*locdyn.DiagBlock, s *State, forward bool) (float64, error) {
	sumDelta, sumR := 0.0, 0.0
	n := len(blocks)
	for i := 0; i < n; i++ {
		idx := i
		if !forward {
			idx = n - 1 - i
		}
		d := blocks[idx]
		prevR := d.Con.R

		bLoc := localFreeVelocity(d)
		iters, err := dispatch(d, s, bLoc)
		_ = iters
		if err != nil {
			switch s.Policy {
			case Continue:
				d.Con.R = prevR
			case Callback:
				if s.Callback != nil {
					s.Callback(d.Con.ID, err)
				}
				d.Con.R = prevR
			case Exit:
				return 0, err
			}
		}

		var delta lin.V3
		delta.Sub(&d.Con.R, &prevR)
		sumDelta += delta.LenSqr()
		sumR += d.Con.R.LenSqr()
	}
	return math.Sqrt(sumDelta) / math.Max(math.Sqrt(sumR), 1), nil
}

// UpdateOne runs the diagonal kernel for a single DIAB, computing its
// local free velocity from current neighbour reactions first (§4.5
// steps a-c). Exposed so callers that drive their own sweep order —
// the parallel package's banded sweeps (§4.6) — can update one
// constraint at a time instead of going through Sweep's whole-graph
// forward/backward loop.
func UpdateOne(d *locdyn.DiagBlock, s *State) (int, error) {
	bLoc := localFreeVelocity(d)
	return dispatch(d, s, bLoc)
}

// localFreeVelocity computes B_loc = B + sum_j W_ij*R_j, prefetching
// each neighbour's current reaction (§4.5 steps a-b).
func localFreeVelocity(d *locdyn.DiagBlock) lin.V3 {
	bLoc := d.B
	for _, ob := range d.Adjacent() {
		w := ob.ResolvedW()
		var wr lin.V3
		wr.MultMv(&w, &ob.Nbr.Con.R)
		bLoc.Add(&bLoc, &wr)
	}
	for _, ob := range d.External() {
		w := ob.ResolvedW()
		var wr lin.V3
		wr.MultMv(&w, &ob.Nbr.Con.R)
		bLoc.Add(&bLoc, &wr)
	}
	return bLoc
}

// dispatch invokes the diagonal kernel matching the constraint's kind,
// mutating d.Con.U and d.Con.R in place (§4.5 step c, §9 "Kernel
// dispatch").
func dispatch(d *locdyn.DiagBlock, s *State, bLoc lin.V3) (int, error) {
	con := d.Con
	switch con.Kind {
	case constraint.CONTACT:
		return dispatchContact(d, s, bLoc)
	case constraint.FIXPNT:
		p := params(d, s, bLoc)
		return kernel.Fixpnt(p, &con.U, &con.R)
	case constraint.GLUE:
		p := params(d, s, bLoc)
		return kernel.Glue(p, &con.U, &con.R)
	case constraint.FIXDIR:
		p := params(d, s, bLoc)
		return kernel.Fixdir(p, &con.U, &con.R)
	case constraint.VELODIR:
		p := params(d, s, bLoc)
		return kernel.Velodir(p, con.Aux.VelodirTarget(), &con.U, &con.R)
	case constraint.RIGLNK:
		rp := &kernel.RiglnkParams{
			Params:    *params(d, s, bLoc),
			RefVector: con.Aux.RiglnkVector(),
			RefLength: con.Aux.RiglnkLength(),
			Explicit:  true,
			Length:    con.Aux.RiglnkLength() + con.Gap,
		}
		var lambda float64
		return kernel.Riglnk(rp, &lambda, &con.U, &con.R)
	default:
		chk.Panic("gs: unknown constraint kind %v", con.Kind)
		return 0, nil
	}
}

func dispatchContact(d *locdyn.DiagBlock, s *State, bLoc lin.V3) (int, error) {
	con := d.Con
	if con.Mat.Law == constraint.SpringDashpot {
		p := params(d, s, bLoc)
		return kernel.SpringDashpot(p, &con.U, &con.R)
	}
	p := params(d, s, bLoc)
	switch s.Kernel {
	case ProjectedGradient:
		return kernel.ProjectedGradient(p, &con.U, &con.R)
	case DeSaxceFeng:
		return kernel.DeSaxceFeng(p, &con.U, &con.R)
	case SemismoothNewton:
		return kernel.SemismoothNewton(p, &con.U, &con.R)
	default:
		chk.Panic("gs: unknown kernel selector %v", s.Kernel)
		return 0, nil
	}
}

func params(d *locdyn.DiagBlock, s *State, bLoc lin.V3) *kernel.Params {
	return &kernel.Params{
		Dynamic: s.Dynamic,
		Eps:     s.KernelEps,
		MaxIter: s.KernelMaxIter,
		H:       s.H,
		Mu:      d.Con.Mat.Mu,
		E:       d.Con.Mat.E,
		Gap:     d.Con.Gap,
		Rho:     d.Rho,
		W:       d.W,
		B:       bLoc,
		V:       d.Con.V,
	}
}
