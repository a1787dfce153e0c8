// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "testing"

func TestSolveSym3Identity(t *testing.T) {
	m := &M3{Xx: 1, Yy: 1, Zz: 1}
	b := &V3{X: 1, Y: 2, Z: 3}
	out := &V3{}
	if ok := SolveSym3(m, b, out); !ok {
		t.Fatal("expected identity system to solve")
	}
	if !out.Aeq(b) {
		t.Errorf(format, out.Dump(), b.Dump())
	}
}

func TestSolveSym3Diagonal(t *testing.T) {
	m := &M3{Xx: 2, Yy: 4, Zz: 8}
	b := &V3{X: 4, Y: 8, Z: 16}
	out := &V3{}
	if ok := SolveSym3(m, b, out); !ok {
		t.Fatal("expected diagonal system to solve")
	}
	want := &V3{X: 2, Y: 2, Z: 2}
	if !out.Aeq(want) {
		t.Errorf(format, out.Dump(), want.Dump())
	}
}

func TestSolveSym3Singular(t *testing.T) {
	m := &M3{} // all zero: singular.
	b := &V3{X: 1, Y: 1, Z: 1}
	out := &V3{}
	if ok := SolveSym3(m, b, out); ok {
		t.Fatal("expected singular system to fail")
	}
}

func TestMaxEigSym3Diagonal(t *testing.T) {
	m := &M3{Xx: 2, Yy: 5, Zz: 1}
	lambda := MaxEigSym3(m)
	if !Aeq(lambda, 5) {
		t.Errorf("want 5, got %f", lambda)
	}
}
