// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package newton implements C7: the smoothed semi-smooth Newton
// system over the full constraint set (§4.7), including its CR/GMRES
// inner linear solver restored from original_source/ext/krylov per
// SPEC_FULL.md §C.1.
//
// The inner solvers are hand-rolled, matrix-free, function-pointer
// style operators mirroring HYPRE's own krylov/gmres.h and
// krylov/cgnr.h interface (Matvec/InnerProd/Axpy callbacks rather than
// a concrete sparse matrix type) — the original vendors its own
// Krylov methods instead of linking an external solver library, so
// this reimplementation keeps that same choice rather than reaching
// for a third-party linear-algebra package (see DESIGN.md).
package newton

import "math"

// Op is a matrix-free linear operator: y = A*x. The Newton system's
// operator (X*W + eps*I + Y) never materializes as a dense matrix; it
// is applied block-by-block over the LOCDYN graph (see system.go).
type Op func(x []float64) []float64

// Precond is a right preconditioner z = T^-1*r.
type Precond func(r []float64) []float64

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 { return math.Sqrt(dot(a, a)) }

func axpy(alpha float64, x []float64, y []float64) {
	for i := range y {
		y[i] += alpha * x[i]
	}
}

func scaleCopy(alpha float64, x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = alpha * x[i]
	}
	return out
}

// FGMRES solves A*x = b to absolute tolerance tol using flexible
// GMRES with right preconditioner precond (may be nil for unpreconditioned
// GMRES), restarting every restart iterations, up to maxIter total
// applications of A. Returns the solution and the iteration count
// (§4.7 step 2, "Flexible GMRES with T as right preconditioner").
func FGMRES(a Op, b []float64, precond Precond, restart, maxIter int, tol float64) ([]float64, int) {
	n := len(b)
	x := make([]float64, n)
	total := 0
	for total < maxIter {
		r := residual(a, x, b)
		beta := norm(r)
		if beta < tol {
			return x, total
		}
		m := restart
		if maxIter-total < m {
			m = maxIter - total
		}
		v := make([][]float64, m+1)
		z := make([][]float64, m)
		h := make([][]float64, m+1)
		for i := range h {
			h[i] = make([]float64, m)
		}
		g := make([]float64, m+1)
		v[0] = scaleCopy(1/beta, r)
		g[0] = beta

		cs := make([]float64, m)
		sn := make([]float64, m)
		k := 0
		for ; k < m; k++ {
			if precond != nil {
				z[k] = precond(v[k])
			} else {
				z[k] = v[k]
			}
			w := a(z[k])
			total++
			for i := 0; i <= k; i++ {
				h[i][k] = dot(w, v[i])
				axpy(-h[i][k], v[i], w)
			}
			h[k+1][k] = norm(w)
			if h[k+1][k] < 1e-300 {
				v[k+1] = make([]float64, n)
			} else {
				v[k+1] = scaleCopy(1/h[k+1][k], w)
			}
			for i := 0; i < k; i++ {
				applyGivens(h[i], h[i+1], cs[i], sn[i], k)
			}
			cs[k], sn[k] = givens(h[k][k], h[k+1][k])
			h[k][k] = cs[k]*h[k][k] + sn[k]*h[k+1][k]
			h[k+1][k] = 0
			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]
			if math.Abs(g[k+1]) < tol || total >= maxIter {
				k++
				break
			}
		}
		y := backSolve(h, g, k)
		for i := 0; i < k; i++ {
			axpy(y[i], z[i], x)
		}
	}
	return x, total
}

func residual(a Op, x, b []float64) []float64 {
	ax := a(x)
	r := make([]float64, len(b))
	for i := range b {
		r[i] = b[i] - ax[i]
	}
	return r
}

func applyGivens(hi, hip1 []float64, c, s float64, k int) {
	tmp := c*hi[k] + s*hip1[k]
	hip1[k] = -s*hi[k] + c*hip1[k]
	hi[k] = tmp
}

func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if math.Abs(b) > math.Abs(a) {
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		c = t * s
		return
	}
	t := b / a
	c = 1 / math.Sqrt(1+t*t)
	s = t * c
	return
}

func backSolve(h [][]float64, g []float64, k int) []float64 {
	y := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		sum := g[i]
		for j := i + 1; j < k; j++ {
			sum -= h[i][j] * y[j]
		}
		y[i] = sum / h[i][i]
	}
	return y
}

// CR solves A*x = b by the conjugate residual method, valid when A is
// symmetric (not necessarily positive definite), mirroring
// ext/krylov/cgnr.h's role alongside gmres.h for the symmetric case.
func CR(a Op, b []float64, maxIter int, tol float64) ([]float64, int) {
	n := len(b)
	x := make([]float64, n)
	r := residual(a, x, b)
	if norm(r) < tol {
		return x, 0
	}
	p := make([]float64, n)
	copy(p, r)
	ar := a(r)
	ap := make([]float64, n)
	copy(ap, ar)
	rAr := dot(r, ar)
	for iter := 0; iter < maxIter; iter++ {
		apap := dot(ap, ap)
		if apap < 1e-300 {
			return x, iter
		}
		alpha := rAr / apap
		axpy(alpha, p, x)
		axpy(-alpha, ap, r)
		if norm(r) < tol {
			return x, iter + 1
		}
		ar = a(r)
		rArNew := dot(r, ar)
		beta := rArNew / rAr
		rAr = rArNew
		for i := range p {
			p[i] = r[i] + beta*p[i]
			ap[i] = ar[i] + beta*ap[i]
		}
	}
	return x, maxIter
}
