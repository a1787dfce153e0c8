// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package diag

import "testing"

func TestStatsBandBalance(t *testing.T) {
	s := Stats{Bot: 3, Top: 3, Mid: 2, Inb: 5}
	// NOB variants require |BOT|+|IN2| = |TOP|+|IN1|; here IN1=IN2=0
	// degenerates to the simpler BOT==TOP balance this test checks.
	if s.Bot != s.Top {
		t.Fatalf("expected balanced bands, got BOT=%d TOP=%d", s.Bot, s.Top)
	}
}
