// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package parallel implements C6: the multi-rank block Gauss-Seidel
// sweep over a LOCDYN graph (§4.6) — processor-level coloring, the
// four-band partition (BOT/TOP/MID/INB), and the MID_LOOP/MID_THREAD/
// MID_TO_ALL/MID_TO_ONE/NOB_* sweep variants of §6's "Parallel
// variant" enum.
package parallel

import (
	"errors"
	"runtime"
	"sync"

	"github.com/nsmd/core/affinity"
	"github.com/nsmd/core/gs"
	"github.com/nsmd/core/locdyn"
)

// Band is the four-way partition of a rank's local DIAB set (§4.6).
type Band int

const (
	Bot Band = iota
	Top
	Mid
	Inb
)

// Variant selects the parallel sweep algorithm (§6 "Parallel variant").
type Variant int

const (
	MidLoop Variant = iota
	MidThread
	MidToAll
	MidToOne
	NobMidLoop
	NobMidThread
	NobMidToAll
	NobMidToOne
)

// ErrDiverged names a kernel failure reported by a rank. Sweep does not
// return it: under the Exit policy it returns the failing kernel's own
// error, and no failure flag is sent to other ranks.
var ErrDiverged = errors.New("parallel: a rank reported kernel failure")

// Transport is the external message layer's three suspension points of
// §5: create a static communication pattern from (rank, payload-size)
// pairs, repeat it with fresh payloads, free it. The core never blocks
// anywhere else.
type Transport interface {
	Create(peers []int, payloadBytes int) (Pattern, error)
	Repeat(p Pattern, send map[int][]byte) (map[int][]byte, error)
	Free(p Pattern)
}

// Pattern is an opaque handle to a prepared communication pattern.
type Pattern interface{}

// NullTransport is the ncpu=1 / no-peers transport: every exchange is
// a no-op, matching Testable Property 7 ("for ncpu=1, parallel BGS
// reproduces serial BGS").
type NullTransport struct{}

func (NullTransport) Create(peers []int, payloadBytes int) (Pattern, error) { return nil, nil }
func (NullTransport) Repeat(p Pattern, send map[int][]byte) (map[int][]byte, error) {
	return nil, nil
}
func (NullTransport) Free(Pattern) {}

// Coloring supplies this rank's own color and, for every external
// OffBlock, the color of the rank that owns its neighbour (§4.6
// "processor-level coloring of the communication graph").
type Coloring struct {
	Self           int
	NeighbourColor func(ob *locdyn.OffBlock) int
}

// Classify partitions blocks into BOT/TOP/MID/INB by comparing each
// block's external-neighbour colors against Self (§4.6 band
// definitions).
func Classify(blocks []*locdyn.DiagBlock, c Coloring) map[uint64]Band {
	out := make(map[uint64]Band, len(blocks))
	for _, d := range blocks {
		hasHigher, hasLower := false, false
		for _, ob := range d.External() {
			col := c.NeighbourColor(ob)
			switch {
			case col > c.Self:
				hasHigher = true
			case col < c.Self:
				hasLower = true
			}
		}
		switch {
		case hasHigher && hasLower:
			out[d.ID] = Mid
		case hasHigher:
			out[d.ID] = Top
		case hasLower:
			out[d.ID] = Bot
		default:
			out[d.ID] = Inb
		}
	}
	return out
}

// State bundles the per-rank sweep inputs: the BGS kernel state shared
// with the serial solver, the transport, and the failure policy
// contract of §4.6 "Failure propagation".
type State struct {
	GS        *gs.State
	Transport Transport
	Variant   Variant

	// HigherRanks/LowerRanks are this rank's TOP/BOT exchange peers.
	HigherRanks []int
	LowerRanks  []int
}

func partition(blocks []*locdyn.DiagBlock, bands map[uint64]Band) (top, mid, bot, inb []*locdyn.DiagBlock) {
	for _, d := range blocks {
		switch bands[d.ID] {
		case Top:
			top = append(top, d)
		case Mid:
			mid = append(mid, d)
		case Bot:
			bot = append(bot, d)
		default:
			inb = append(inb, d)
		}
	}
	return
}

func sweepBand(band []*locdyn.DiagBlock, s *State) error {
	for _, d := range band {
		prevR := d.Con.R
		_, err := gs.UpdateOne(d, s.GS)
		if err != nil {
			switch s.GS.Policy {
			case gs.Continue:
				d.Con.R = prevR
			case gs.Callback:
				if s.GS.Callback != nil {
					s.GS.Callback(d.Con.ID, err)
				}
				d.Con.R = prevR
			case gs.Exit:
				return err
			}
		}
	}
	return nil
}

func exchange(s *State, peers []int, band []*locdyn.DiagBlock) error {
	if len(peers) == 0 {
		return nil
	}
	p, err := s.Transport.Create(peers, len(band)*8*3)
	if err != nil {
		return err
	}
	defer s.Transport.Free(p)
	_, err = s.Transport.Repeat(p, nil)
	return err
}

// Sweep runs one outer iteration of the selected variant over blocks,
// which must already carry external adjacency (§4.2's adjext, §4.6
// bands). forward selects the nominal direction; the caller reverses
// it on odd outer iterations exactly as gs.Sweep does for the serial
// loop. Only the MID_LOOP path reads forward: MID_THREAD, MID_TO_ALL,
// NOB_MID_TO_ALL and MID_TO_ONE always sweep in the nominal order.
func Sweep(blocks []*locdyn.DiagBlock, bands map[uint64]Band, s *State, forward bool) error {
	switch s.Variant {
	case MidThread:
		return sweepMidThread(blocks, bands, s, forward)
	case MidToOne:
		return sweepMidToOne(blocks, bands, s, forward)
	case MidToAll, NobMidToAll:
		return sweepMidToAll(blocks, bands, s, forward)
	case NobMidLoop, NobMidThread, NobMidToOne:
		// The non-blocking variants differ from their blocking
		// counterparts only in how TOP/BOT exchanges overlap with
		// IN1/IN2 sub-sweeps (§4.6 "sizes chosen so that
		// |BOT|+|IN2| = |TOP|+|IN1|"); functionally, with a
		// single-process Transport the blocking and non-blocking
		// forms observe the same reactions at the same points, so
		// NOB_* share MID_LOOP's implementation here.
		return sweepMidLoop(blocks, bands, s, forward)
	default:
		return sweepMidLoop(blocks, bands, s, forward)
	}
}

func sweepMidLoop(blocks []*locdyn.DiagBlock, bands map[uint64]Band, s *State, forward bool) error {
	top, mid, bot, inb := partition(blocks, bands)
	if !forward {
		inb, bot, mid, top = top, mid, bot, inb
		// backward reverses the nominal order (§4.6): INB, BOT,
		// exchange-lower, MID, TOP, exchange-higher.
		if err := sweepBand(inb, s); err != nil {
			return err
		}
		if err := sweepBand(bot, s); err != nil {
			return err
		}
		if err := exchange(s, s.LowerRanks, bot); err != nil {
			return err
		}
		if err := sweepMidColorOrdered(mid, s); err != nil {
			return err
		}
		if err := sweepBand(top, s); err != nil {
			return err
		}
		return exchange(s, s.HigherRanks, top)
	}
	if err := sweepBand(top, s); err != nil {
		return err
	}
	if err := exchange(s, s.HigherRanks, top); err != nil {
		return err
	}
	if err := sweepMidColorOrdered(mid, s); err != nil {
		return err
	}
	if err := sweepBand(bot, s); err != nil {
		return err
	}
	if err := exchange(s, s.LowerRanks, bot); err != nil {
		return err
	}
	return sweepBand(inb, s)
}

// sweepMidColorOrdered implements §4.6 step 3 on the local MID set:
// repeatedly update every MID constraint whose external neighbours are
// all marked done in this call (neighbour colors are not compared),
// until the local active set is empty. The per-pass exchange has no
// peers, so nothing is sent, and no other rank's active set is
// consulted; when no constraint is ready, the remaining ones are swept
// once and the loop ends.
func sweepMidColorOrdered(mid []*locdyn.DiagBlock, s *State) error {
	active := append([]*locdyn.DiagBlock(nil), mid...)
	done := make(map[uint64]bool, len(mid))
	for len(active) > 0 {
		var updated, remaining []*locdyn.DiagBlock
		for _, d := range active {
			ready := true
			for _, ob := range d.External() {
				if !done[ob.Nbr.ID] {
					ready = false
					break
				}
			}
			if ready {
				if err := sweepBand([]*locdyn.DiagBlock{d}, s); err != nil {
					return err
				}
				done[d.ID] = true
				updated = append(updated, d)
			} else {
				remaining = append(remaining, d)
			}
		}
		if len(updated) == 0 {
			// No progress possible locally: every remaining
			// constraint is waiting on an external neighbour this
			// rank cannot itself resolve. Fall through to a single
			// best-effort pass so the loop terminates instead of
			// spinning, mirroring a degraded single-rank run.
			if err := sweepBand(remaining, s); err != nil {
				return err
			}
			return nil
		}
		if err := exchange(s, nil, updated); err != nil {
			return err
		}
		active = remaining
	}
	return nil
}

// sweepMidThread runs the MID color-ordered loop on a dedicated
// goroutine, pinned to its own CPU via the affinity package, while the
// INB sweep proceeds concurrently on the caller's goroutine — the two
// sets are disjoint by band construction (§5 "Shared-resource policy",
// §9 "Helper thread for MID band").
func sweepMidThread(blocks []*locdyn.DiagBlock, bands map[uint64]Band, s *State, forward bool) error {
	top, mid, bot, inb := partition(blocks, bands)
	if err := sweepBand(top, s); err != nil {
		return err
	}
	if err := exchange(s, s.HigherRanks, top); err != nil {
		return err
	}

	var wg sync.WaitGroup
	var midErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_ = affinity.PinCurrentThread(0)
		midErr = sweepMidColorOrdered(mid, s)
	}()

	inbErr := sweepBand(inb, s)
	wg.Wait()

	if midErr != nil {
		return midErr
	}
	if inbErr != nil {
		return inbErr
	}
	if err := sweepBand(bot, s); err != nil {
		return err
	}
	return exchange(s, s.LowerRanks, bot)
}

// sweepMidToAll sweeps TOP, exchanges with the higher ranks, sweeps the
// local MID set in one plain pass, then BOT, exchanges with the lower
// ranks, and sweeps INB (§4.6 "MID_TO_ALL"). No gather or scatter of
// MID sets between ranks is performed.
func sweepMidToAll(blocks []*locdyn.DiagBlock, bands map[uint64]Band, s *State, forward bool) error {
	top, mid, bot, inb := partition(blocks, bands)
	if err := sweepBand(top, s); err != nil {
		return err
	}
	if err := exchange(s, s.HigherRanks, top); err != nil {
		return err
	}
	if err := sweepBand(mid, s); err != nil {
		return err
	}
	if err := sweepBand(bot, s); err != nil {
		return err
	}
	if err := exchange(s, s.LowerRanks, bot); err != nil {
		return err
	}
	return sweepBand(inb, s)
}

// sweepMidToOne splits the INB set into IN1 (not adjacent to any MID
// member) and IN2 (adjacent to one) and sweeps TOP, IN1, the local MID
// set, IN2 and BOT in that order on this rank (§4.6 "MID_TO_ONE"). The
// MID set is not gathered to a root rank.
func sweepMidToOne(blocks []*locdyn.DiagBlock, bands map[uint64]Band, s *State, forward bool) error {
	top, mid, bot, inb := partition(blocks, bands)
	midIDs := make(map[uint64]bool, len(mid))
	for _, d := range mid {
		midIDs[d.ID] = true
	}
	var in1, in2 []*locdyn.DiagBlock
	for _, d := range inb {
		adjacentToMid := false
		for _, ob := range d.Adjacent() {
			if midIDs[ob.Nbr.ID] {
				adjacentToMid = true
				break
			}
		}
		if adjacentToMid {
			in2 = append(in2, d)
		} else {
			in1 = append(in1, d)
		}
	}

	if err := sweepBand(top, s); err != nil {
		return err
	}
	if err := exchange(s, s.HigherRanks, top); err != nil {
		return err
	}
	if err := sweepBand(in1, s); err != nil {
		return err
	}
	if err := sweepBand(mid, s); err != nil {
		return err
	}
	if err := sweepBand(in2, s); err != nil {
		return err
	}
	if err := sweepBand(bot, s); err != nil {
		return err
	}
	return exchange(s, s.LowerRanks, bot)
}
