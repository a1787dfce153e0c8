// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

//go:build !linux

package affinity

// PinCurrentThread is a no-op outside Linux: the MID-band helper
// thread still runs, just without a pinned CPU affinity.
func PinCurrentThread(cpu int) error { return nil }
