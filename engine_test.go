// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package core

import (
	"testing"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/gs"
	"github.com/nsmd/core/locdyn"
	"github.com/nsmd/core/math/lin"
	"github.com/nsmd/core/parallel"
)

func fixpntGraph() (*locdyn.Graph, *constraint.Con) {
	g := locdyn.NewGraph()
	con := constraint.NewCon(1, constraint.FIXPNT, 1)
	d := g.Insert(con, nil, nil)
	d.W = lin.M3{Xx: 2, Yy: 2, Zz: 2}
	d.A = lin.M3{Xx: 0.5, Yy: 0.5, Zz: 0.5}
	d.B = lin.V3{X: 0.4, Y: -0.2, Z: 0.1}
	return g, con
}

func TestStepGaussSeidelConvergesIsolatedFixpnt(t *testing.T) {
	g, con := fixpntGraph()
	cfg := &Config{
		Method:      GaussSeidel,
		UpdateKind:  locdyn.UpNothing,
		H:           0.01,
		Dynamic:     false,
		MeritTarget: 1e-9,
		MaxOuter:    5,
		GS:          &gs.State{KernelEps: 1e-9, KernelMaxIter: 50, Kernel: gs.ProjectedGradient, Policy: gs.Continue, Dynamic: false, H: 0.01},
	}
	res, err := Step(g, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Iterations != 1 {
		t.Fatalf("expected a single isolated FIXPNT to converge in one outer iteration, got %d", res.Iterations)
	}
	if res.Merit > 1e-9 {
		t.Fatalf("expected merit below target, got %v", res.Merit)
	}
	if con.U.LenSqr() > 1e-12 {
		t.Fatalf("expected near-zero relative velocity, got %+v", con.U)
	}
}

func TestStepParallelGaussSeidelMatchesSerial(t *testing.T) {
	gSerial, conSerial := fixpntGraph()
	gParallel, conParallel := fixpntGraph()

	serialCfg := &Config{
		Method:      GaussSeidel,
		UpdateKind:  locdyn.UpNothing,
		H:           0.01,
		MeritTarget: 1e-9,
		MaxOuter:    5,
		GS:          &gs.State{KernelEps: 1e-9, KernelMaxIter: 50, Policy: gs.Continue, H: 0.01},
	}
	if _, err := Step(gSerial, serialCfg); err != nil {
		t.Fatalf("serial step failed: %v", err)
	}

	parallelCfg := &Config{
		Method:      ParallelGaussSeidel,
		UpdateKind:  locdyn.UpNothing,
		H:           0.01,
		MeritTarget: 1e-9,
		MaxOuter:    5,
		GS:          &gs.State{KernelEps: 1e-9, KernelMaxIter: 50, Policy: gs.Continue, H: 0.01},
		Parallel:    &parallel.State{GS: &gs.State{KernelEps: 1e-9, KernelMaxIter: 50, Policy: gs.Continue, H: 0.01}, Transport: parallel.NullTransport{}, Variant: parallel.MidLoop},
		Coloring:    parallel.Coloring{Self: 0, NeighbourColor: func(ob *locdyn.OffBlock) int { return 0 }},
	}
	if _, err := Step(gParallel, parallelCfg); err != nil {
		t.Fatalf("parallel step failed: %v", err)
	}

	if !conSerial.R.Eq(&conParallel.R) {
		t.Fatalf("serial R=%+v, parallel R=%+v", conSerial.R, conParallel.R)
	}
}

func TestStepDivergesWhenMeritUnreachable(t *testing.T) {
	g, _ := fixpntGraph()
	cfg := &Config{
		Method:      GaussSeidel,
		UpdateKind:  locdyn.UpNothing,
		H:           0.01,
		MeritTarget: -1, // unreachable: merit is always >= 0.
		MaxOuter:    3,
		GS:          &gs.State{KernelEps: 1e-9, KernelMaxIter: 50, Policy: gs.Continue, H: 0.01},
	}
	res, err := Step(g, cfg)
	if err != ErrDiverged {
		t.Fatalf("expected ErrDiverged, got %v", err)
	}
	if res.Iterations != cfg.MaxOuter {
		t.Fatalf("expected MaxOuter iterations, got %d", res.Iterations)
	}
}
