// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package newton

import "math/cmplx"

// cplx3 is a 3-component complex vector, kept distinct from lin.V3 so
// that a real operand can never silently flow into a complex-step
// evaluation without an explicit conversion (§9 "must use a complex
// scalar type distinct from real operands to avoid hidden coercions").
type cplx3 struct{ X, Y, Z complex128 }

func toCplx3(v [3]float64) cplx3 { return cplx3{complex(v[0], 0), complex(v[1], 0), complex(v[2], 0)} }

func (c cplx3) real() [3]float64 {
	return [3]float64{real(c.X), real(c.Y), real(c.Z)}
}

func (c cplx3) imag() [3]float64 {
	return [3]float64{imag(c.X), imag(c.Y), imag(c.Z)}
}

// complexStepJacobian evaluates the 3x3 Jacobian of f at x using
// complex-step differentiation: perturb each coordinate by i*h, the
// derivative along that column is Im(f(x+ih))/h, accurate to machine
// precision with no subtractive cancellation (§9 "the Jacobian of the
// smoothed friction operator is obtained by evaluating F with a purely
// imaginary perturbation").
func complexStepJacobian(f func(cplx3) cplx3, x [3]float64) [3][3]float64 {
	const h = 1e-20
	base := toCplx3(x)
	var jac [3][3]float64
	for col := 0; col < 3; col++ {
		px := base
		switch col {
		case 0:
			px.X += complex(0, h)
		case 1:
			px.Y += complex(0, h)
		case 2:
			px.Z += complex(0, h)
		}
		fv := f(px)
		im := fv.imag()
		jac[0][col] = im[0] / h
		jac[1][col] = im[1] / h
		jac[2][col] = im[2] / h
	}
	return jac
}

func cplxHypot(x, y complex128) complex128 {
	return cmplx.Sqrt(x*x + y*y)
}
