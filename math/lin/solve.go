// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// solve.go adds the small dense-system helpers needed by the local
// dynamics assembly (C2) and the diagonal kernels (C1): solving a
// 3x3 symmetric positive (semi-)definite system in place, and
// estimating the largest eigenvalue of a symmetric 3x3 matrix so the
// solver can derive a diagonal relaxation scale rho = 1/lambda_max(W).

// SolveSym3 solves m*x = b for a symmetric 3x3 matrix m, returning x.
// Uses a Cholesky-like decomposition; m is expected to be SPD (the W
// diagonal block of an integrable constraint always is, see LOCDYN).
// The out vector may alias b. Returns false if m is singular to
// working precision, in which case out is left as the zero vector.
func SolveSym3(m *M3, b *V3, out *V3) bool {
	// Cholesky L*L^T = m, solved directly since 3x3 is cheap to unroll.
	if m.Xx <= 0 {
		out.SetS(0, 0, 0)
		return false
	}
	l11 := math.Sqrt(m.Xx)
	l21 := m.Yx / l11
	l31 := m.Zx / l11
	d22 := m.Yy - l21*l21
	if d22 <= Epsilon {
		out.SetS(0, 0, 0)
		return false
	}
	l22 := math.Sqrt(d22)
	l32 := (m.Zy - l31*l21) / l22
	d33 := m.Zz - l31*l31 - l32*l32
	if d33 <= Epsilon {
		out.SetS(0, 0, 0)
		return false
	}
	l33 := math.Sqrt(d33)

	// forward solve L*y = b
	y1 := b.X / l11
	y2 := (b.Y - l21*y1) / l22
	y3 := (b.Z - l31*y1 - l32*y2) / l33

	// backward solve L^T*x = y
	x3 := y3 / l33
	x2 := (y2 - l32*x3) / l22
	x1 := (y1 - l21*x2 - l31*x3) / l11
	out.SetS(x1, x2, x3)
	return true
}

// Solve3 solves m*x = b for a general (not necessarily symmetric) 3x3
// matrix m using Gaussian elimination with partial pivoting. Used by
// the semi-smooth Newton diagonal kernel, whose per-mode Jacobian is
// not symmetric in the sliding case. Returns false if m is singular.
func Solve3(m *M3, b *V3, out *V3) bool {
	a := [3][4]float64{
		{m.Xx, m.Xy, m.Xz, b.X},
		{m.Yx, m.Yy, m.Yz, b.Y},
		{m.Zx, m.Zy, m.Zz, b.Z},
	}
	for col := 0; col < 3; col++ {
		piv := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < 3; r++ {
			if v := math.Abs(a[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best < Epsilon {
			out.SetS(0, 0, 0)
			return false
		}
		a[col], a[piv] = a[piv], a[col]
		for r := 0; r < 3; r++ {
			if r == col {
				continue
			}
			factor := a[r][col] / a[col][col]
			for c := col; c < 4; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}
	out.SetS(a[0][3]/a[0][0], a[1][3]/a[1][1], a[2][3]/a[2][2])
	return true
}

// MaxEigSym3 estimates the largest eigenvalue of the symmetric 3x3
// matrix m using power iteration. W is always symmetric positive
// (semi-)definite by construction (LOCDYN invariant 4), so the
// iteration converges monotonically from any non-zero seed.
func MaxEigSym3(m *M3) float64 {
	v := &V3{X: 1, Y: 1, Z: 1}
	w := &V3{}
	lambda := 0.0
	for i := 0; i < 32; i++ {
		w.MultMv(m, v)
		n := w.Len()
		if n < Epsilon {
			return 0
		}
		w.Scale(w, 1/n)
		next := w.Dot(v.MultMv(m, w))
		if math.Abs(next-lambda) < Epsilon*math.Max(1, math.Abs(next)) {
			lambda = next
			v.Set(w)
			break
		}
		lambda = next
		v.Set(w)
	}
	return lambda
}
