// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package constraint holds the CON data model (§3): the per-constraint
// record shared by local dynamics assembly, the diagonal kernels, the
// BGS and Newton solvers, and the cohesion hook. A CON never holds a
// strong reference to its DIAB; LOCDYN owns that association.
package constraint

import (
	"math"

	"github.com/nsmd/core/math/lin"
)

// Kind identifies the constraint equation a CON enforces.
type Kind int

const (
	CONTACT Kind = iota
	FIXPNT
	FIXDIR
	VELODIR
	RIGLNK
	GLUE
)

func (k Kind) String() string {
	switch k {
	case CONTACT:
		return "CONTACT"
	case FIXPNT:
		return "FIXPNT"
	case FIXDIR:
		return "FIXDIR"
	case VELODIR:
		return "VELODIR"
	case RIGLNK:
		return "RIGLNK"
	case GLUE:
		return "GLUE"
	default:
		return "UNKNOWN"
	}
}

// SurfaceLaw selects the per-contact friction/contact model supplied
// by the (external) material database.
type SurfaceLaw int

const (
	SignoriniCoulomb SurfaceLaw = iota
	SpringDashpot
)

// Flags is a bitmask tracking the lifecycle and solution state of a CON.
type Flags uint32

const (
	FlagSticking Flags = 1 << iota
	FlagOpen
	FlagCohesive
	FlagFresh    // freshly created this step, not yet warm-started.
	FlagIDLocked // identifier-locked: external code pinned this CON's id.
	FlagExternal // this CON is a read-mostly mirror of a remote parent.
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }
func (f *Flags) Set(bit Flags)     { *f |= bit }
func (f *Flags) Clear(bit Flags)   { *f &^= bit }

// Material holds the per-contact surface parameters delivered by the
// external surface-material database (§6).
type Material struct {
	Mu      float64 // friction coefficient.
	E       float64 // restitution.
	Cohesion float64 // cohesion strength c.
	Epsilon float64 // cohesion-release threshold ε.
	Law     SurfaceLaw
}

// Z is the 4-double auxiliary scratch slot: VELODIR stores a scalar
// target value in Z[0]; RIGLNK stores a reference vector (Z[0:3]) and
// its rest length (Z[3]).
type Z [4]float64

func (z *Z) VelodirTarget() float64  { return z[0] }
func (z *Z) SetVelodirTarget(v float64) { z[0] = v }

func (z *Z) RiglnkVector() lin.V3 { return lin.V3{X: z[0], Y: z[1], Z: z[2]} }
func (z *Z) RiglnkLength() float64 { return z[3] }
func (z *Z) SetRiglnk(v lin.V3, length float64) {
	z[0], z[1], z[2], z[3] = v.X, v.Y, v.Z, length
}

// Con is a single constraint equation: the CON record of §3.
type Con struct {
	ID uint64

	Kind Kind
	Mat  Material

	MasterBody uint64 // required.
	SlaveBody  uint64 // zero if there is no slave (e.g. FIXPNT against ground).
	HasSlave   bool

	Point lin.V3 // spatial point in world coordinates.
	RefM  lin.V3 // referential point on the master body (local to master).
	RefS  lin.V3 // referential point on the slave body (local to slave), valid iff HasSlave.

	Base lin.M3 // local orthonormal base; rows are t1, t2, n (lin.M3 stores basis vectors row-major).
	Area float64
	Gap  float64

	Aux Z

	R lin.V3 // reaction.
	U lin.V3 // local relative velocity.
	V lin.V3 // previous-step local relative velocity.

	Flags Flags
}

// NewCon allocates a CON with sane defaults (no cohesion, dry contact).
func NewCon(id uint64, kind Kind, master uint64) *Con {
	return &Con{ID: id, Kind: kind, MasterBody: master}
}

// Feasible checks the two physical-contact invariants of §3/§8: normal
// non-negativity and the Coulomb cone. Non-CONTACT kinds are trivially
// feasible since they are not subject to the cone.
func (c *Con) Feasible(tol float64) bool {
	if c.Kind != CONTACT {
		return true
	}
	if c.Flags.Has(FlagOpen) {
		return c.R.X == 0 && c.R.Y == 0 && c.R.Z == 0
	}
	if c.R.Z < -tol {
		return false
	}
	tangent := math.Hypot(c.R.X, c.R.Y)
	return tangent <= c.Mat.Mu*c.R.Z+tol
}
