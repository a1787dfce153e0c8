// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import (
	"testing"
)

func TestTransposeM3(t *testing.T) {
	m, want :=
		&M3{1, 2, 3,
			4, 5, 6,
			7, 8, 9},
		M3{1, 4, 7,
			2, 5, 8,
			3, 6, 9}
	if got := *m.Transpose(m); got != want {
		t.Errorf("got\n%swanted\n%s", (&got).Dump(), (&want).Dump())
	}
}
