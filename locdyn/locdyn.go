// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package locdyn implements C2, the local dynamics operator: assembly
// of the Delassus/W matrix, its inverse A, the free-motion term B, the
// diagonal relaxation scale rho, and the adjacency graph linking
// neighbouring constraints that share a body (§4.2, §9).
//
// The graph mirrors vu/physics' contactPair bookkeeping (manifold
// merge/refresh by pair id) but replaces its Bullet-derived per-pair
// solver constraints with the DIAB/OFFB model of §3: a constraint owns
// exactly one diagonal block, and every pair of constraints that can
// interact through a shared body gets one mirrored off-diagonal block.
package locdyn

import (
	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/domain"
	"github.com/nsmd/core/math/lin"
)

// UpdateKind selects how much of a DIAB gets rebuilt by update_begin,
// matching the solver-specific needs named in §4.2.
type UpdateKind int

const (
	UpNothing UpdateKind = iota // body-space solver: nothing to rebuild.
	UpPenalty                   // UPPES: penalty method, W/A only.
	UpAll                       // UPALL: full rebuild including V/B and the local off-diagonal blocks; external (adjext) blocks are not reassembled.
)

// OffBlock is an off-diagonal block W_ij between two DIAB that share a
// body (§3 OFFB).
type OffBlock struct {
	W       lin.M3     // 3x3 coupling block.
	Through uint64     // id of the shared body this interaction passes through.
	Nbr     *DiagBlock // the neighbour DIAB this block couples to.

	// mirror points at the partner OffBlock on Nbr whose W is this
	// block's transpose; only one of a mirrored pair is ever actually
	// assembled (§4.2 step 5, "symmetric-copy tagging").
	mirror    *OffBlock
	isMirror  bool // true if W must be obtained by transposing mirror.W.
	external  bool // true if Nbr lives on a different rank (adjext).
}

// ResolvedW returns the block's W, materializing it from the mirror
// partner's transpose on first use if this block is a mirror.
func (o *OffBlock) ResolvedW() lin.M3 {
	if o.isMirror && o.mirror != nil {
		var wt lin.M3
		wt.Transpose(&o.mirror.W)
		o.W = wt
	}
	return o.W
}

// DiagBlock is the per-constraint row of the Delassus system (§3 DIAB).
type DiagBlock struct {
	ID uint64 // same id as the owning constraint.
	Con *constraint.Con

	W   lin.M3  // Delassus operator for this constraint.
	A   lin.M3  // A = W^-1.
	B   lin.V3  // free-motion term.
	Rho float64 // 1/lambda_max(W).

	adj    []*OffBlock // local neighbours.
	adjext []*OffBlock // cross-rank neighbours, populated under distributed execution.

	rowupdate bool // true if a participating body moved since last step.

	masterBody domain.Body
	slaveBody  domain.Body // nil when the constraint has no slave.

	// lever arms, recomputed at update_begin from the body's world
	// position and the constraint's referential points.
	leverM lin.V3
	leverS lin.V3
}

// Adjacent returns the local off-diagonal neighbours of this block.
func (d *DiagBlock) Adjacent() []*OffBlock { return d.adj }

// External returns the cross-rank off-diagonal neighbours.
func (d *DiagBlock) External() []*OffBlock { return d.adjext }

// Graph is LOCDYN: the doubly-linked (here, map + slice backed) list
// of DIAB nodes plus the object pools that own OffBlock allocation.
// Graph is the exclusive owner of every DiagBlock and OffBlock it
// creates (§3 ownership rules).
type Graph struct {
	order []uint64              // stable iteration order, insertion order.
	dias  map[uint64]*DiagBlock // id -> DIAB.
	bodies map[uint64][]*DiagBlock // body id -> DIAB touching it, for adjacency discovery.

	// FreeEnergy accumulates 0.5*<A*B,B> over the last update_begin
	// pass, skipping open dynamic contacts (§4.2 "Free energy").
	FreeEnergy float64

	// Adjacent reports whether two constraints on a shared body may
	// interact. The default (nil) admits every pair; callers wire in
	// the broad phase's element/node adjacency test for explicit FEM
	// bodies per §4.2 step "the adjacency test depends on the body's
	// integration scheme".
	Adjacent func(a, b *constraint.Con, body domain.Body) bool
}

// NewGraph creates an empty LOCDYN.
func NewGraph() *Graph {
	return &Graph{
		dias:   make(map[uint64]*DiagBlock),
		bodies: make(map[uint64][]*DiagBlock),
	}
}

// Get returns the DIAB for a constraint id, or nil.
func (g *Graph) Get(id uint64) *DiagBlock { return g.dias[id] }

// All returns every DIAB in stable insertion order.
func (g *Graph) All() []*DiagBlock {
	out := make([]*DiagBlock, 0, len(g.order))
	for _, id := range g.order {
		if d, ok := g.dias[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Insert allocates a DIAB for con and links it into the graph,
// creating mirrored OffBlock pairs with every existing constraint that
// shares master or slave and can interact (§4.2 insert).
func (g *Graph) Insert(con *constraint.Con, master domain.Body, slave domain.Body) *DiagBlock {
	d := &DiagBlock{ID: con.ID, Con: con, masterBody: master, slaveBody: slave}
	g.dias[con.ID] = d
	g.order = append(g.order, con.ID)

	g.linkBody(con.MasterBody, d, con, master)
	if con.HasSlave {
		g.linkBody(con.SlaveBody, d, con, slave)
	}
	return d
}

// linkBody registers d against bodyID's constraint list and creates
// mirrored off-diagonal blocks with every constraint already touching
// that body (excluding d itself), provided Graph.Adjacent allows it.
func (g *Graph) linkBody(bodyID uint64, d *DiagBlock, con *constraint.Con, body domain.Body) {
	for _, other := range g.bodies[bodyID] {
		if other == d {
			continue
		}
		if g.Adjacent != nil && !g.Adjacent(con, other.Con, body) {
			continue
		}
		g.link(d, other, bodyID)
	}
	g.bodies[bodyID] = append(g.bodies[bodyID], d)
}

// link creates a mirrored pair of OffBlocks between a and b through
// the shared body. Only one side is marked as the one to assemble;
// the other is a mirror obtained by transposition (§4.2 step 5).
func (g *Graph) link(a, b *DiagBlock, through uint64) {
	fwd := &OffBlock{Through: through, Nbr: b}
	bwd := &OffBlock{Through: through, Nbr: a, isMirror: true}
	fwd.mirror = bwd
	bwd.mirror = fwd
	a.adj = append(a.adj, fwd)
	b.adj = append(b.adj, bwd)
}

// Remove unlinks dia and deallocates every OffBlock pointing at it,
// local and external (§4.2 remove).
func (g *Graph) Remove(id uint64) {
	d, ok := g.dias[id]
	if !ok {
		return
	}
	for _, list := range [][]*OffBlock{d.adj, d.adjext} {
		for _, ob := range list {
			ob.Nbr.adj = removeBlockTo(ob.Nbr.adj, d)
			ob.Nbr.adjext = removeBlockTo(ob.Nbr.adjext, d)
		}
	}
	delete(g.dias, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	for bid, list := range g.bodies {
		g.bodies[bid] = removeDia(list, d)
	}
}

func removeBlockTo(blocks []*OffBlock, target *DiagBlock) []*OffBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if b.Nbr != target {
			out = append(out, b)
		}
	}
	return out
}

func removeDia(list []*DiagBlock, target *DiagBlock) []*DiagBlock {
	out := list[:0]
	for _, d := range list {
		if d != target {
			out = append(out, d)
		}
	}
	return out
}
