// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package locdyn

import (
	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/domain"
	"github.com/nsmd/core/math/lin"
)

// CohesionHook lets the cohesion package (C8) subtract/restore its
// contribution without locdyn importing it back; the engine wires
// this in once at startup. Left nil, update_begin/update_end run
// without any cohesion adjustment.
type CohesionHook interface {
	Forward(d *DiagBlock, neighbour func(id uint64) *DiagBlock)
	Backward(d *DiagBlock, neighbour func(id uint64) *DiagBlock)
}

// UpdateBegin rebuilds W/A/rho (and, for UpAll, V/B and off-diagonal
// blocks) for every DIAB whose bodies moved, then runs the cohesion
// forward change, per §4.2 update_begin.
func (g *Graph) UpdateBegin(kind UpdateKind, h float64, cohesion CohesionHook) {
	g.FreeEnergy = 0
	if kind == UpNothing {
		return
	}
	for _, d := range g.All() {
		moved := d.masterBody.RowUpdate() || (d.slaveBody != nil && d.slaveBody.RowUpdate())
		first := d.W == (lin.M3{})
		if kind == UpPenalty || moved || first {
			d.leverM = lever(&d.Con.Point, bodyOrigin(d.masterBody))
			if d.slaveBody != nil {
				d.leverS = lever(&d.Con.Point, bodyOrigin(d.slaveBody))
			}
			assembleDiagonal(d, h)
			d.rowupdate = true
		} else {
			d.rowupdate = false
		}
		if kind == UpAll {
			assembleFreeTerms(d)
			for _, ob := range d.adj {
				if !ob.isMirror {
					assembleOffDiagonal(d, ob, h)
				}
			}
		}
		if cohesion != nil {
			cohesion.Forward(d, g.Get)
		}
		g.accumulateFreeEnergy(d)
	}
}

// UpdateEnd runs the cohesion backward change and marks every block
// as unchanged for the next step, per §4.2 update_end.
func (g *Graph) UpdateEnd(cohesion CohesionHook) {
	for _, d := range g.All() {
		if cohesion != nil {
			cohesion.Backward(d, g.Get)
		}
		d.rowupdate = false
	}
}

func bodyOrigin(b domain.Body) *lin.V3 { return b.Origin() }

// hTMinvH computes one column of h*H_i*Minv*H_j^T through a shared
// body: probe with the local unit axis `col` of constraint j's frame,
// push it through baseJ's transpose and j's lever arm to a world
// force/torque, apply the body's inverse mass, then project the
// resulting velocity into constraint i's frame using i's lever arm.
// The diagonal case (i == j) calls this with baseI == baseJ and
// leverI == leverJ.
func hTMinvHColumn(baseI, baseJ *lin.M3, leverI, leverJ *lin.V3, body domain.Body, col int, h float64) lin.V3 {
	var f lin.V3
	switch col {
	case 0:
		f = lin.V3{X: 1}
	case 1:
		f = lin.V3{Y: 1}
	case 2:
		f = lin.V3{Z: 1}
	}
	var baseJT lin.M3
	baseJT.Transpose(baseJ)
	var fWorld, torque lin.V3
	fWorld.MultMv(&baseJT, &f)
	torque.Cross(leverJ, &fWorld)
	velLin, velAng := body.ApplyMinv(&fWorld, &torque)
	var wr, vp, local lin.V3
	wr.Cross(velAng, leverI)
	vp.Add(velLin, &wr)
	local.MultMv(baseI, &vp)
	local.Scale(&local, h)
	return local
}

func setColumn(w *lin.M3, col int, v *lin.V3) {
	switch col {
	case 0:
		w.Xx, w.Yx, w.Zx = w.Xx+v.X, w.Yx+v.Y, w.Zx+v.Z
	case 1:
		w.Xy, w.Yy, w.Zy = w.Xy+v.X, w.Yy+v.Y, w.Zy+v.Z
	case 2:
		w.Xz, w.Yz, w.Zz = w.Xz+v.X, w.Yz+v.Y, w.Zz+v.Z
	}
}

// assembleDiagonal computes W, A and rho for a single DIAB (§4.2
// steps 3-4). Self-contact (master == slave) folds both bodies'
// contributions onto the one combined H, matching the "for self-
// contact a single combined H" note.
func assembleDiagonal(d *DiagBlock, h float64) {
	var w lin.M3
	base := &d.Con.Base
	for col := 0; col < 3; col++ {
		v := hTMinvHColumn(base, base, &d.leverM, &d.leverM, d.masterBody, col, h)
		if d.slaveBody != nil {
			vs := hTMinvHColumn(base, base, &d.leverS, &d.leverS, d.slaveBody, col, h)
			v.Add(&v, &vs)
		}
		setColumn(&w, col, &v)
	}
	d.W = w
	buildInverse(d)
	d.Rho = 0
	if lmax := lin.MaxEigSym3(&d.W); lmax > lin.Epsilon {
		d.Rho = 1 / lmax
	}
}

// buildInverse sets d.A = d.W^-1 one column at a time via SolveSym3.
func buildInverse(d *DiagBlock) {
	e0 := lin.V3{X: 1}
	e1 := lin.V3{Y: 1}
	e2 := lin.V3{Z: 1}
	var c0, c1, c2 lin.V3
	lin.SolveSym3(&d.W, &e0, &c0)
	lin.SolveSym3(&d.W, &e1, &c1)
	lin.SolveSym3(&d.W, &e2, &c2)
	d.A = lin.M3{
		Xx: c0.X, Xy: c1.X, Xz: c2.X,
		Yx: c0.Y, Yy: c1.Y, Yz: c2.Y,
		Zx: c0.Z, Zy: c1.Z, Zz: c2.Z,
	}
}

// assembleFreeTerms computes V and B for a DIAB (§4.2 step 2).
func assembleFreeTerms(d *DiagBlock) {
	base := &d.Con.Base
	mLin, mAng := d.masterBody.Velocity()
	mFreeLin, mFreeAng := d.masterBody.FreeVelocity()
	v := applyH(base, &d.leverM, mLin, mAng)
	b := applyH(base, &d.leverM, mFreeLin, mFreeAng)
	if d.slaveBody != nil {
		sLin, sAng := d.slaveBody.Velocity()
		sFreeLin, sFreeAng := d.slaveBody.FreeVelocity()
		vS := applyH(base, &d.leverS, sLin, sAng)
		bS := applyH(base, &d.leverS, sFreeLin, sFreeAng)
		v.Sub(&v, &vS)
		b.Sub(&b, &bS)
	}
	d.Con.V = v
	d.B = b
}

// assembleOffDiagonal computes W_ij for a local neighbour pair that
// interact through the body ob.Through (§4.2 step 5/6).
func assembleOffDiagonal(d *DiagBlock, ob *OffBlock, h float64) {
	body, lever := d.bodyFor(ob.Through)
	if body == nil {
		ob.W = lin.M3{}
		return
	}
	_, nbrLever := ob.Nbr.bodyFor(ob.Through)
	var w lin.M3
	for col := 0; col < 3; col++ {
		v := hTMinvHColumn(&d.Con.Base, &ob.Nbr.Con.Base, lever, nbrLever, body, col, h)
		setColumn(&w, col, &v)
	}
	ob.W = w
}

func (d *DiagBlock) bodyFor(bodyID uint64) (domain.Body, *lin.V3) {
	if d.Con.MasterBody == bodyID {
		return d.masterBody, &d.leverM
	}
	if d.Con.HasSlave && d.Con.SlaveBody == bodyID {
		return d.slaveBody, &d.leverS
	}
	return nil, nil
}

// accumulateFreeEnergy adds 0.5*<A*B,B> for this DIAB into the
// graph-level free energy normaliser, skipping open dynamic contacts.
func (g *Graph) accumulateFreeEnergy(d *DiagBlock) {
	if d.Con.Flags.Has(constraint.FlagOpen) {
		return
	}
	var ab lin.V3
	ab.MultMv(&d.A, &d.B)
	g.FreeEnergy += 0.5 * ab.Dot(&d.B)
}
