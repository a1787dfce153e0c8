// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package config loads the GAUSS_SEIDEL and Newton solver state
// records (§3) from a YAML document, the way vu/load's Shd loads a
// shader configuration: unmarshal into a string/number based struct,
// then translate the string enum fields into their typed values.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nsmd/core/gs"
)

// gaussSeidelConfig is the YAML-facing shape of gs.State; string enum
// fields keep the document readable, mirroring load.shaderConfig.
type gaussSeidelConfig struct {
	Eps           float64 `yaml:"eps"`
	MaxIter       int     `yaml:"maxiter"`
	KernelEps     float64 `yaml:"kernel_eps"`
	KernelMaxIter int     `yaml:"kernel_maxiter"`
	Kernel        string  `yaml:"kernel"` // PROJECTED_GRADIENT | DE_SAXCE_FENG | SEMISMOOTH_NEWTON
	Policy        string  `yaml:"failure_policy"` // CONTINUE | EXIT | CALLBACK
	Reverse       bool    `yaml:"reverse"`
	Dynamic       bool    `yaml:"dynamic"`
	H             float64 `yaml:"h"`
}

// LoadGaussSeidel parses a YAML document into a gs.State (§3 "Gauss-
// Seidel solver state").
func LoadGaussSeidel(data []byte) (*gs.State, error) {
	var cfg gaussSeidelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: gauss_seidel yaml: %w", err)
	}
	kernel, err := parseKernel(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	policy, err := parsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &gs.State{
		Eps:           cfg.Eps,
		MaxIter:       cfg.MaxIter,
		KernelEps:     cfg.KernelEps,
		KernelMaxIter: cfg.KernelMaxIter,
		Kernel:        kernel,
		Policy:        policy,
		Reverse:       cfg.Reverse,
		Dynamic:       cfg.Dynamic,
		H:             cfg.H,
	}, nil
}

func parseKernel(s string) (gs.KernelSelector, error) {
	switch s {
	case "", "PROJECTED_GRADIENT":
		return gs.ProjectedGradient, nil
	case "DE_SAXCE_FENG":
		return gs.DeSaxceFeng, nil
	case "SEMISMOOTH_NEWTON":
		return gs.SemismoothNewton, nil
	default:
		return 0, fmt.Errorf("config: unknown kernel selector %q", s)
	}
}

func parsePolicy(s string) (gs.FailurePolicy, error) {
	switch s {
	case "", "CONTINUE":
		return gs.Continue, nil
	case "EXIT":
		return gs.Exit, nil
	case "CALLBACK":
		return gs.Callback, nil
	default:
		return 0, fmt.Errorf("config: unknown failure policy %q", s)
	}
}

// newtonConfig is the YAML-facing shape of the Newton solver state
// (§3 "Newton solver state").
type newtonConfig struct {
	MeritTarget  float64 `yaml:"merit_target"`
	MaxIter      int     `yaml:"maxiter"`
	LinearMaxIter int    `yaml:"linear_maxiter"`
	Epsilon      float64 `yaml:"epsilon"` // diagonal regularisation.
	Omega        float64 `yaml:"omega"`   // cone-projection smoothing.
	LineSearchRho float64 `yaml:"line_search_rho"`
	LineSearchSigma float64 `yaml:"line_search_sigma"`
}

// NewtonConfig holds the parsed Newton solver state, kept as plain
// data here since the newton package's solver struct also carries
// mutable iteration history the config layer should not own.
type NewtonConfig struct {
	MeritTarget     float64
	MaxIter         int
	LinearMaxIter   int
	Epsilon         float64
	Omega           float64
	LineSearchRho   float64
	LineSearchSigma float64
}

// LoadNewton parses a YAML document into a NewtonConfig.
func LoadNewton(data []byte) (*NewtonConfig, error) {
	var cfg newtonConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: newton yaml: %w", err)
	}
	return &NewtonConfig{
		MeritTarget:     cfg.MeritTarget,
		MaxIter:         cfg.MaxIter,
		LinearMaxIter:   cfg.LinearMaxIter,
		Epsilon:         cfg.Epsilon,
		Omega:           cfg.Omega,
		LineSearchRho:   cfg.LineSearchRho,
		LineSearchSigma: cfg.LineSearchSigma,
	}, nil
}
