// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package persist

import (
	"bytes"
	"testing"

	"github.com/nsmd/core/constraint"
	"github.com/nsmd/core/math/lin"
)

func TestWriteReadConRoundTrip(t *testing.T) {
	con := constraint.NewCon(42, constraint.CONTACT, 7)
	con.SlaveBody, con.HasSlave = 9, true
	con.Point = lin.V3{X: 1, Y: 2, Z: 3}
	con.Area = 0.25
	con.Gap = -0.001
	con.Aux.SetVelodirTarget(1.5)
	con.R = lin.V3{Z: 10}
	con.Mat.Mu = 0.3
	con.Mat.Cohesion = 0.1
	con.Flags.Set(constraint.FlagSticking)

	var buf bytes.Buffer
	if err := WriteCon(&buf, con); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadCon(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != con.ID || got.MasterBody != con.MasterBody || got.SlaveBody != con.SlaveBody {
		t.Fatalf("id/body mismatch: %+v", got)
	}
	if !got.Point.Aeq(&con.Point) || !got.R.Aeq(&con.R) {
		t.Fatalf("vector mismatch: got %+v want %+v", got, con)
	}
	if got.Mat.Mu != con.Mat.Mu || got.Mat.Cohesion != con.Mat.Cohesion {
		t.Fatalf("material mismatch: %+v", got.Mat)
	}
	if !got.Flags.Has(constraint.FlagSticking) {
		t.Fatal("expected sticking flag to survive round trip")
	}
}
