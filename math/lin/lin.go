// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package lin provides the vector and matrix math used throughout the
// solver core: contact frames, reactions and the small dense linear
// systems that the diagonal kernels and local dynamics assembly solve.
//
// Package lin is part of the nsmd non-smooth multibody dynamics core.
package lin

// Design Notes:
//
// 1) This is a CPU based dense math library. It is called once per
//    constraint per outer iteration, so the same guidelines that applied
//    to the original per-frame rendering loops still apply here:
//     - avoid instantiating new structures
//     - use pointers to structures
//     - prefer multiply over divide
//
// 2) Wikipedia states: "In linear algebra, real numbers are called scalars...".
//    Currently the default scalar size is float64 since the underlying go math
//    package uses this size, and contact reactions need that precision.

import "math"

// Epsilon is used to distinguish when a float is close enough to a number.
// Wikipedia: "In set theory epsilon is the limit ordinal of the sequence..."
const Epsilon float64 = 0.000001

// Aeq (~=) almost-equals returns true if the difference between a and b is
// so small that it doesn't matter.
func Aeq(a, b float64) bool { return math.Abs(a-b) < Epsilon }
