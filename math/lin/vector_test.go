// SPDX-FileCopyrightText : © 2014-2022 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package lin

import (
	"testing"
)

// While the functions below are not complicated, they are foundational such that it is
// better to test each one of them then have the bugs discovered later from other code.
// Where applicable, check that the output vector can also be used as one or both
// of the input vectors.

func TestSetV3(t *testing.T) {
	v, a := &V3{}, &V3{1, 2, 3}
	if !v.Set(a).Eq(a) {
		t.Errorf(format, v.Dump(), a.Dump())
	}
}

func TestAddV3(t *testing.T) {
	v, want := &V3{1, 2, 3}, &V3{2, 4, 6}
	if !v.Add(v, v).Eq(want) {
		t.Errorf(format, v.Dump(), want.Dump())
	}
}

func TestSubtractV3(t *testing.T) {
	v, want := &V3{1, 2, 3}, &V3{0, 0, 0}
	if !v.Sub(v, v).Eq(want) {
		t.Errorf(format, v.Dump(), want.Dump())
	}
}

func TestScaleV3(t *testing.T) {
	v, want := &V3{1, 2, 3}, &V3{2, 4, 6}
	if !v.Scale(v, 2).Eq(want) {
		t.Errorf(format, v.Dump(), want.Dump())
	}
}

func TestDotV3(t *testing.T) {
	v, a := &V3{1, 2, 3}, &V3{2, 4, 8}
	if v.Dot(a) != 34 || v.Dot(v) != 14 {
		t.Error("Invalid dot product")
	}
}

func TestLengthV3(t *testing.T) {
	v := &V3{9, 2, 6}
	if v.Len() != 11 {
		t.Error("Invalid length", v.Len())
	}
	if v.LenSqr() != 121 {
		t.Error("Invalid length squared", v.LenSqr())
	}
}

func TestCrossV3(t *testing.T) {
	v, b, want := &V3{3, -3, 1}, &V3{4, 9, 2}, &V3{-15, -2, 39}
	if !v.Cross(v, b).Eq(want) {
		t.Errorf(format, v.Dump(), want.Dump())
	}
}

func TestMultMvV3(t *testing.T) {
	v, want, m := &V3{1, 2, 3}, &V3{14, 14, 14},
		&M3{1, 2, 3,
			1, 2, 3,
			1, 2, 3}
	if !v.MultMv(m, v).Eq(want) {
		t.Errorf(format, v.Dump(), want.Dump())
	}
}

func TestAeqV3(t *testing.T) {
	v, a := &V3{1, 2, 3}, &V3{1.0000001, 2, 3}
	if !v.Aeq(a) {
		t.Errorf(format, v.Dump(), a.Dump())
	}
}

// unit tests
// ============================================================================
// benchmarking.

// Check golang efficiency for different method signatures and heap/stack
// memory allocation. Run go test -bench=".*Sub*" to get something like:
//     BenchmarkV3Sub	    1000000000	    2.51 ns/op
//     BenchmarkV3SubNew	  50000000	   68.1  ns/op
//     BenchmarkV3SubScalar	 500000000	    3.58 ns/op
//     BenchmarkV3SubNoCall	2000000000	    1.43 ns/op

func BenchmarkV3Sub(b *testing.B) {
	v, a, o := &V3{}, &V3{2, 2, 2}, &V3{1, 1, 1}
	for cnt := 0; cnt < b.N; cnt++ {
		v = v.Sub(a, o)
	}
}
func BenchmarkV3SubNew(b *testing.B) {
	var v *V3
	a, o := &V3{2, 2, 2}, &V3{1, 1, 1}
	for cnt := 0; cnt < b.N; cnt++ {
		v = a.subNew(o)
	}
	v.X = 0 // Otherwise compiler complains about unused variables.
}
func BenchmarkV3SubScalar(b *testing.B) {
	var x, y, z float64
	for cnt := 0; cnt < b.N; cnt++ {
		x, y, z = subScalars(2, 2, 2, 1, 1, 1)
	}
	if x == 1 && y == 1 && z == 1 {
		// Otherwise compiler complains about unused variables.
	}
}
func BenchmarkV3SubNoCall(b *testing.B) {
	var x, y, z float64
	for cnt := 0; cnt < b.N; cnt++ {
		x, y, z = 2-1, 2-1, 2-1
	}
	if x == 1 && y == 1 && z == 1 {
		// Otherwise compiler complains about unused variables.
	}
}

// subNew creates a new V3 that contains the subtraction of vector b from a.
// Used to benchmark how struct allocation affects execution time.
func (a *V3) subNew(b *V3) *V3 { return &V3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// subScalars just does the basic subtraction. Used to benchmark how passing
// lots of float parameter affects execution time.
func subScalars(ax, ay, az, bx, by, bz float64) (x, y, z float64) { return ax - bx, ay - by, az - bz }
