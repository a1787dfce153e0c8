// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package persist implements the CON persistence record of §6: kind,
// participating body ids, referential points, reaction, base, gap,
// area, surface-pair code and kind-specific transferable state
// (VELODIR time-series reference, RIGLNK vector/length), encoded
// big-endian per the XDR convention named in §6. The constraint id is
// written as 64 bits and body ids as 32 bits; the record holds no file
// offsets.
//
// Standard-library encoding/binary is used rather than a third-party
// serialization library: see DESIGN.md's persist entry for why no
// ecosystem codec in the retrieval pack fits a fixed-layout XDR-style
// record better than a direct binary.Write/Read pass.
package persist

import (
	"encoding/binary"
	"io"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/math/lin"
)

// record is the fixed-layout wire shape of a persisted CON. Field
// order matches §6's list; kind-specific Aux is always written as the
// full 4-double scratch slot regardless of which kind populates it,
// keeping the record fixed-size.
type record struct {
	ID         uint64
	Kind       int32
	Pad        int32 // always zero; binary.Write packs fields with no alignment.
	MasterBody uint32
	SlaveBody  uint32
	HasSlave   uint32
	Point      [3]float64
	RefM       [3]float64
	RefS       [3]float64
	Base       [9]float64
	Area       float64
	Gap        float64
	Aux        [4]float64
	R          [3]float64
	U          [3]float64
	V          [3]float64
	Flags      uint32
	Law        int32
	Mu, E, Cohesion, Epsilon float64
}

// WriteCon encodes con big-endian onto w, XDR-style.
func WriteCon(w io.Writer, con *constraint.Con) error {
	rec := toRecord(con)
	return binary.Write(w, binary.BigEndian, &rec)
}

// ReadCon decodes a CON previously written by WriteCon.
func ReadCon(r io.Reader) (*constraint.Con, error) {
	var rec record
	if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
		return nil, err
	}
	return fromRecord(&rec), nil
}

func toRecord(con *constraint.Con) record {
	var rec record
	rec.ID = con.ID
	rec.Kind = int32(con.Kind)
	rec.MasterBody = uint32(con.MasterBody)
	rec.SlaveBody = uint32(con.SlaveBody)
	if con.HasSlave {
		rec.HasSlave = 1
	}
	rec.Point = [3]float64{con.Point.X, con.Point.Y, con.Point.Z}
	rec.RefM = [3]float64{con.RefM.X, con.RefM.Y, con.RefM.Z}
	rec.RefS = [3]float64{con.RefS.X, con.RefS.Y, con.RefS.Z}
	rec.Base = [9]float64{
		con.Base.Xx, con.Base.Xy, con.Base.Xz,
		con.Base.Yx, con.Base.Yy, con.Base.Yz,
		con.Base.Zx, con.Base.Zy, con.Base.Zz,
	}
	rec.Area = con.Area
	rec.Gap = con.Gap
	rec.Aux = con.Aux
	rec.R = [3]float64{con.R.X, con.R.Y, con.R.Z}
	rec.U = [3]float64{con.U.X, con.U.Y, con.U.Z}
	rec.V = [3]float64{con.V.X, con.V.Y, con.V.Z}
	rec.Flags = uint32(con.Flags)
	rec.Law = int32(con.Mat.Law)
	rec.Mu, rec.E, rec.Cohesion, rec.Epsilon = con.Mat.Mu, con.Mat.E, con.Mat.Cohesion, con.Mat.Epsilon
	return rec
}

func fromRecord(rec *record) *constraint.Con {
	con := constraint.NewCon(rec.ID, constraint.Kind(rec.Kind), uint64(rec.MasterBody))
	con.SlaveBody = uint64(rec.SlaveBody)
	con.HasSlave = rec.HasSlave != 0
	con.Point = vec3(rec.Point)
	con.RefM = vec3(rec.RefM)
	con.RefS = vec3(rec.RefS)
	con.Base.Xx, con.Base.Xy, con.Base.Xz = rec.Base[0], rec.Base[1], rec.Base[2]
	con.Base.Yx, con.Base.Yy, con.Base.Yz = rec.Base[3], rec.Base[4], rec.Base[5]
	con.Base.Zx, con.Base.Zy, con.Base.Zz = rec.Base[6], rec.Base[7], rec.Base[8]
	con.Area = rec.Area
	con.Gap = rec.Gap
	con.Aux = rec.Aux
	con.R = vec3(rec.R)
	con.U = vec3(rec.U)
	con.V = vec3(rec.V)
	con.Flags = constraint.Flags(rec.Flags)
	con.Mat.Law = constraint.SurfaceLaw(rec.Law)
	con.Mat.Mu, con.Mat.E, con.Mat.Cohesion, con.Mat.Epsilon = rec.Mu, rec.E, rec.Cohesion, rec.Epsilon
	return con
}

func vec3(a [3]float64) lin.V3 {
	return lin.V3{X: a[0], Y: a[1], Z: a[2]}
}
