// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package core ties the eight components together into the single
// per-step entry point described in §2's data flow: LOCDYN assembly →
// cohesion forward → BGS or Newton iteration against the merit
// function → cohesion backward → reactions and velocities ready to
// read back off the graph.
package core

import (
	"errors"

	"github.com/nsmd/core/diag"
	"github.com/nsmd/core/gs"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/merit"
	"github.com/nsmd/core/newton"
	"github.com/nsmd/core/parallel"
)

// Method selects which of C5/C6/C7 drives the iteration (§2 data flow
// "either C5/C6 (BGS) or C7 (Newton)").
type Method int

const (
	GaussSeidel Method = iota
	ParallelGaussSeidel
	SemismoothNewton
)

// ErrDiverged reports that MaxOuter outer iterations ran without the
// merit function dropping below MeritTarget (§7 "Global
// non-convergence").
var ErrDiverged = errors.New("core: step did not converge within MaxOuter iterations")

// Config is the per-step solver configuration: which method drives the
// iteration, the shared merit stopping test, and the method-specific
// state each one needs.
type Config struct {
	Method     Method
	UpdateKind locdyn.UpdateKind
	H          float64
	Dynamic    bool
	Cohesion   locdyn.CohesionHook

	// MeritTarget and MaxOuter gate the BGS outer loop (§4.3 "used as
	// the outer stopping test"); the Newton method uses newton.State's
	// own MeritVal/MaxOuter instead, set independently on GS/Parallel/
	// Newton below.
	MeritTarget float64
	MaxOuter    int

	GS       *gs.State
	Parallel *parallel.State
	Coloring parallel.Coloring
	Newton   *newton.State

	// Verbose prints a per-iteration diagnostics line via diag.Verbose.
	Verbose bool
}

// Result reports what a Step call produced.
type Result struct {
	Iterations int
	Merit      float64
}

// Step runs one simulation step's constraint solve over g, per §2's
// data flow: g must already hold every CONTACT/FIXPNT/.../RIGLNK
// constraint for this step (inserted by the caller's broad phase,
// pruned through sparsify.Sparsifier beforehand).
func Step(g *locdyn.Graph, cfg *Config) (Result, error) {
	g.UpdateBegin(cfg.UpdateKind, cfg.H, cfg.Cohesion)
	defer g.UpdateEnd(cfg.Cohesion)

	if cfg.Method == SemismoothNewton {
		iters, err := newton.Solve(g, cfg.Newton)
		m := merit.Global(g, cfg.Dynamic, cfg.H)
		if cfg.Verbose {
			diag.Verbose(iters, 0, m)
		}
		return Result{Iterations: iters, Merit: m}, err
	}

	blocks := g.All()
	var bands map[uint64]parallel.Band
	if cfg.Method == ParallelGaussSeidel {
		bands = parallel.Classify(blocks, cfg.Coloring)
	}

	for outer := 0; outer < cfg.MaxOuter; outer++ {
		forward := !cfg.GS.Reverse || outer%2 == 0
		var sweepErr error
		if cfg.Method == ParallelGaussSeidel {
			sweepErr = parallel.Sweep(blocks, bands, cfg.Parallel, forward)
		} else {
			_, sweepErr = gs.SweepOnce(g, cfg.GS, forward)
		}

		m := merit.Global(g, cfg.Dynamic, cfg.H)
		if cfg.Verbose {
			diag.Verbose(outer+1, 0, m)
		}
		if sweepErr != nil && cfg.GS.Policy == gs.Exit {
			return Result{Iterations: outer + 1, Merit: m}, sweepErr
		}
		if m < cfg.MeritTarget {
			return Result{Iterations: outer + 1, Merit: m}, nil
		}
	}
	return Result{Iterations: cfg.MaxOuter, Merit: merit.Global(g, cfg.Dynamic, cfg.H)}, ErrDiverged
}
