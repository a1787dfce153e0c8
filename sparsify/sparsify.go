// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package sparsify implements C4: pruning redundant contact points
// produced by the broad phase (§4.4). A new CONTACT is dropped when an
// adjacent contact sharing both participating bodies has an area more
// than 1/Threshold times its own and the two underlying geometric
// objects are themselves topologically adjacent.
package sparsify

import "github.com/nsmd/core/constraint"

// DefaultThreshold is the area-ratio cutoff below which a new contact
// is considered redundant (§4.4).
const DefaultThreshold = 0.01

// Adjacency reports whether two CONTACT constraints' underlying
// geometric primitives are topologically adjacent (shared element,
// convex face, or sphere pair), as defined by the broad phase. Wired
// in by the caller; sparsify has no geometry of its own (§1 "out of
// scope: contact geometry primitives").
type Adjacency func(a, b *constraint.Con) bool

// Sparsifier prunes redundant contacts sharing both bodies with a
// larger-area neighbour, recording how many it dropped for
// diagnostics (§6 "sparsified").
type Sparsifier struct {
	Threshold float64
	Adjacent  Adjacency

	Dropped int
}

// New returns a Sparsifier at the default threshold.
func New(adjacent Adjacency) *Sparsifier {
	return &Sparsifier{Threshold: DefaultThreshold, Adjacent: adjacent}
}

// Keep reports whether candidate should be kept given the set of
// already-accepted contacts sharing its bodies (existing). Every
// existing contact sharing both bodies and adjacent in geometry whose
// area exceeds candidate's by 1/Threshold drops candidate.
func (s *Sparsifier) Keep(candidate *constraint.Con, existing []*constraint.Con) bool {
	for _, other := range existing {
		if !sameBodies(candidate, other) {
			continue
		}
		if s.Adjacent != nil && !s.Adjacent(candidate, other) {
			continue
		}
		if candidate.Area < s.Threshold*other.Area {
			s.Dropped++
			return false
		}
	}
	return true
}

// sameBodies reports whether a and b share the same participating
// body set (both master-only, or master+slave in either order).
func sameBodies(a, b *constraint.Con) bool {
	if a.HasSlave != b.HasSlave {
		return false
	}
	if !a.HasSlave {
		return a.MasterBody == b.MasterBody
	}
	return (a.MasterBody == b.MasterBody && a.SlaveBody == b.SlaveBody) ||
		(a.MasterBody == b.SlaveBody && a.SlaveBody == b.MasterBody)
}
