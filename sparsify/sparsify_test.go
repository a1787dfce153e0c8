// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package sparsify

import (
	"testing"

	"github.com/nsmd/core/constraint"
)

func TestDropsSmallAdjacentContact(t *testing.T) {
	big := constraint.NewCon(1, constraint.CONTACT, 10)
	big.SlaveBody, big.HasSlave = 20, true
	big.Area = 1.0

	small := constraint.NewCon(2, constraint.CONTACT, 10)
	small.SlaveBody, small.HasSlave = 20, true
	small.Area = 0.001

	s := New(func(a, b *constraint.Con) bool { return true })
	if s.Keep(small, []*constraint.Con{big}) {
		t.Fatal("expected small adjacent contact to be dropped")
	}
	if s.Dropped != 1 {
		t.Fatalf("expected Dropped=1, got %d", s.Dropped)
	}
}

func TestKeepsWhenNotAdjacent(t *testing.T) {
	big := constraint.NewCon(1, constraint.CONTACT, 10)
	big.SlaveBody, big.HasSlave = 20, true
	big.Area = 1.0

	small := constraint.NewCon(2, constraint.CONTACT, 10)
	small.SlaveBody, small.HasSlave = 20, true
	small.Area = 0.001

	s := New(func(a, b *constraint.Con) bool { return false })
	if !s.Keep(small, []*constraint.Con{big}) {
		t.Fatal("expected contact to survive when not topologically adjacent")
	}
}

func TestIdempotent(t *testing.T) {
	big := constraint.NewCon(1, constraint.CONTACT, 10)
	big.Area = 1.0
	s := New(func(a, b *constraint.Con) bool { return true })
	_ = s.Keep(big, nil)
	first := s.Dropped
	_ = s.Keep(big, nil)
	if s.Dropped != first {
		t.Fatalf("running sparsify twice with no new contacts should not drop again, got %d then %d", first, s.Dropped)
	}
}
