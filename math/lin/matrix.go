// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// Matrix provides the 3x3 dense matrix type used throughout the solver
// core: a DIAB's Delassus operator W, its inverse A = W^-1, and the
// per-contact Jacobian frames assembled in LOCDYN.
//
// Note that this matrix implementation does not attempt to be all
// inclusive; it only carries the operations the solver actually calls
// over W/A/Jacobian matrices, not a general purpose matrix library.
//
// This matrix implementation uses explicitly indexed, Row-Major, matrix
// members as follows:
//          3x3 M3
//	     [Xx, Xy, Xz]  X-Axis
//	     [Yx, Yy, Yz]  Y-Axis
//	     [Zx, Zy, Zz]  Z-Axis

// M3 is a 3x3 matrix where the matrix elements are individually addressable.
type M3 struct {
	Xx, Xy, Xz float64 // indices 0, 1, 2  [00, 01, 02]  X-Axis
	Yx, Yy, Yz float64 // indices 3, 4, 5  [10, 11, 12]  Y-Axis
	Zx, Zy, Zz float64 // indices 6, 7, 8  [20, 21, 22]  Z-Axis
}

// Transpose updates m to be the reflection of matrix a over its diagonal.
// This essentially changes row-major order to column-major order
// or vice-versa.
//    [ Xx Xy Xz ]    [ Xx Yx Zx ]
//    [ Yx Yy Yz ] => [ Xy Yy Zy ]
//    [ Zx Zy Zz ]    [ Xz Yz Zz ]
// The input matrix a is not changed. Matrix m may be used as the input parameter.
// The updated matrix m is returned.
func (m *M3) Transpose(a *M3) *M3 {
	t_Xy, t_Xz, t_Yz := a.Xy, a.Xz, a.Yz
	m.Xx, m.Xy, m.Xz = a.Xx, a.Yx, a.Zx
	m.Yx, m.Yy, m.Yz = t_Xy, a.Yy, a.Zy
	m.Zx, m.Zy, m.Zz = t_Xz, t_Yz, a.Zz
	return m
}
