// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package config

import (
	"testing"

	"github.com/nsmd/core/gs"
)

func TestLoadGaussSeidel(t *testing.T) {
	doc := []byte(`
eps: 1e-6
maxiter: 200
kernel_eps: 1e-9
kernel_maxiter: 50
kernel: DE_SAXCE_FENG
failure_policy: EXIT
reverse: true
dynamic: true
h: 0.001
`)
	s, err := LoadGaussSeidel(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kernel != gs.DeSaxceFeng || s.Policy != gs.Exit || !s.Reverse || s.MaxIter != 200 {
		t.Fatalf("unexpected parsed state: %+v", s)
	}
}

func TestLoadGaussSeidelUnknownKernel(t *testing.T) {
	doc := []byte("kernel: NOT_A_KERNEL\n")
	if _, err := LoadGaussSeidel(doc); err == nil {
		t.Fatal("expected error for unknown kernel selector")
	}
}

func TestLoadNewton(t *testing.T) {
	doc := []byte(`
merit_target: 1e-8
maxiter: 100
linear_maxiter: 30
epsilon: 1e-4
omega: 1e-3
line_search_rho: 0.1
line_search_sigma: 1e-4
`)
	cfg, err := LoadNewton(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxIter != 100 || cfg.LinearMaxIter != 30 {
		t.Fatalf("unexpected parsed config: %+v", cfg)
	}
}
