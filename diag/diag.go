// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package diag implements the timer region labels and per-rank
// statistics counters of §6, and the verbose solver output described
// in §7 "User-visible failure" (outer iteration count, relative error,
// merit, final line).
package diag

import "github.com/cpmech/gosl/io"

// Region names the timer regions exposed to front-ends (§6
// "Diagnostics labels").
type Region string

const (
	RegionLocdyn Region = "LOCDYN"
	RegionGSInit Region = "GSINIT"
	RegionGSRun  Region = "GSRUN"
	RegionGSCom  Region = "GSCOM"
	RegionGSMRun Region = "GSMRUN"
	RegionGSMCom Region = "GSMCOM"
	RegionGSExit Region = "GSEXIT"
	RegionParBal Region = "PARBAL"
	RegionConDet Region = "CONDET"
	RegionTimInt Region = "TIMINT"
)

// Stats is the per-rank statistics record of §6, extended per
// SPEC_FULL.md §C.3 with per-band cardinalities so the NOB variants'
// size-balance invariant is observable.
type Stats struct {
	Bodies             int
	Boxes              int
	Constraints         int
	ExternalConstraints int
	Sparsified          int
	Deletions           int
	BytesSent           int64

	// Band cardinalities from the last parallel BGS partition (§4.6,
	// §C.3); zero when running single-rank serial BGS.
	Bot, Top, Mid, Inb int
}

// Verbose prints the outer iteration count, relative error and merit,
// mirroring solfec's dom.c per-iteration verbose line (§7
// "User-visible failure").
func Verbose(iter int, errRel, merit float64) {
	io.Pf("iter % 4d  err % .3e  merit % .3e\n", iter, errRel, merit)
}

// Final prints the terminal summary line once the solver stops.
func Final(iter int, errRel, merit float64, err error) {
	if err != nil {
		io.Pfred("solver stopped at iter %d: err=%.3e merit=%.3e (%v)\n", iter, errRel, merit, err)
		return
	}
	io.Pfcyan("solver converged at iter %d: err=%.3e merit=%.3e\n", iter, errRel, merit)
}
