// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

//go:build linux

// Package affinity pins the MID-band helper thread (§4.6 MID_THREAD,
// §9 "Helper thread for MID band") to a single CPU so it does not
// contend with the INB sweep running concurrently on the same rank.
package affinity

import "golang.org/x/sys/unix"

// PinCurrentThread binds the calling OS thread to cpu. Callers must
// have already locked the goroutine to its OS thread via
// runtime.LockOSThread, matching the single long-lived MID worker
// model of §9.
func PinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
