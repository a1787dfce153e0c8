// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package domain declares the small trait-like interface the solver
// core uses to talk to bodies it does not own. Body kinematics,
// integration (rigid, pseudo-rigid, FEM), and shape representation all
// live outside this module; the core only ever calls back into a Body
// for its inverse-mass action and its current/free velocity.
//
// This mirrors vu/physics' original split between the Body interface
// and the solver: the solver borrows bodies, it never constructs or
// integrates them.
package domain

import "github.com/nsmd/core/math/lin"

// Kind enumerates the body's integration scheme. The adjacency test in
// LOCDYN and the rowupdate caching decision both depend on it.
type Kind int

const (
	Obstacle      Kind = iota // immovable, infinite mass.
	Rigid                     // 6 generalized DOF, configuration changes every step.
	PseudoRigid               // 6 DOF plus deformation modes; configuration changes every step.
	FiniteElement             // nodal DOF; rowupdate only set for implicit FEM.
)

// Body is the only interface the solver core requires from the outer
// domain. A concrete body additionally carries shape, mesh and
// integration state that the core never touches directly.
type Body interface {
	ID() uint64 // stable identifier, used as a map key by LOCDYN.
	Kind() Kind
	Movable() bool  // false for obstacles: infinite mass, never updated.
	InvMass() float64
	InvInertiaWorld() *lin.M3 // oriented inverse inertia tensor, identity for non-rotating DOF.

	// Origin is the body's current world-space reference point, used
	// only to turn a constraint's spatial point into a lever arm (the
	// same role vu/physics' body.world.Loc plays in setupContactConstraint).
	// It is the single piece of configuration the core reads; everything
	// else about body kinematics stays external.
	Origin() *lin.V3

	// Velocity returns the body's current generalized velocity v(t),
	// split into linear and angular parts.
	Velocity() (linear, angular *lin.V3)

	// FreeVelocity returns v_free(t), the velocity the integrator
	// predicts in the absence of constraint reactions.
	FreeVelocity() (linear, angular *lin.V3)

	// RowUpdate reports whether this body's configuration changed
	// since the last step. LOCDYN reuses a DIAB's W, A and rho when
	// every participating body reports false (see §4.2 "update cost
	// is amortised").
	RowUpdate() bool

	// ApplyMinv maps a generalized force/impulse (linear, angular) to
	// the resulting generalized velocity M^-1*v. Obstacles return zero.
	ApplyMinv(forceLinear, forceAngular *lin.V3) (velLinear, velAngular *lin.V3)
}

// StepInfo carries the per-step parameters supplied by the
// time-integrator collaborator (§6 Time-integrator -> core).
type StepInfo struct {
	H       float64 // global time step.
	Dynamic bool    // true for a dynamic (transient) step, false for quasi-static.
}
