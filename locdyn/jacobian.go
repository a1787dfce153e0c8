// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package locdyn

import "github.com/nsmd/core/math/lin"

// lever computes r = point - bodyOrigin for a rigid body, the arm used
// to turn a point velocity/force into linear+angular components. This
// is the same construction the teacher used for torqueAxis in
// solver.go's setupContactConstraint, generalized to any constraint kind.
func lever(point, bodyOrigin *lin.V3) lin.V3 {
	return lin.V3{X: point.X - bodyOrigin.X, Y: point.Y - bodyOrigin.Y, Z: point.Z - bodyOrigin.Z}
}

// applyH maps a body's generalized velocity (linear, angular) at a
// lever arm r into the constraint's local 3-frame: local = base*(v + w x r).
func applyH(base *lin.M3, r, linear, angular *lin.V3) lin.V3 {
	var wr, vp, local lin.V3
	wr.Cross(angular, r)
	vp.Add(linear, &wr)
	local.MultMv(base, &vp)
	return local
}

// applyHT maps a local 3-frame force f back to a body's generalized
// force (linear, torque): linear = base^T*f, torque = r x linear.
func applyHT(base *lin.M3, r *lin.V3, f *lin.V3) (linear, torque lin.V3) {
	var baseT lin.M3
	baseT.Transpose(base)
	linear.MultMv(&baseT, f)
	torque.Cross(r, &linear)
	return linear, torque
}
