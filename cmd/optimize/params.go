// Package main tunes schooling and steering parameters with gonum optimize.
package main

import (
	"github.com/pthm-cable/shoal/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	field func(*config.Config) *float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Flocking
			{Name: "separation_weight", Path: "prey.separation_weight", Min: 0.5, Max: 3.0, Default: 1.5,
				field: func(c *config.Config) *float64 { return &c.Prey.SeparationWeight }},
			{Name: "alignment_weight", Path: "prey.alignment_weight", Min: 0.2, Max: 2.5, Default: 1.0,
				field: func(c *config.Config) *float64 { return &c.Prey.AlignmentWeight }},
			{Name: "cohesion_weight", Path: "prey.cohesion_weight", Min: 0.2, Max: 2.5, Default: 1.0,
				field: func(c *config.Config) *float64 { return &c.Prey.CohesionWeight }},
			{Name: "neighbor_radius", Path: "prey.neighbor_radius", Min: 2.0, Max: 8.0, Default: 4.0,
				field: func(c *config.Config) *float64 { return &c.Prey.NeighborRadius }},
			{Name: "separation_distance", Path: "prey.separation_distance", Min: 0.5, Max: 2.0, Default: 1.0,
				field: func(c *config.Config) *float64 { return &c.Prey.SeparationDistance }},
			{Name: "wander_strength", Path: "prey.wander_strength", Min: 0.0, Max: 1.5, Default: 0.5,
				field: func(c *config.Config) *float64 { return &c.Prey.WanderStrength }},
			// Escape (safe_distance stays above the flee_distance bound)
			{Name: "flee_distance", Path: "prey.flee_distance", Min: 1.5, Max: 5.0, Default: 3.0,
				field: func(c *config.Config) *float64 { return &c.Prey.FleeDistance }},
			{Name: "flee_speed", Path: "prey.flee_speed", Min: 4.0, Max: 12.0, Default: 8.0,
				field: func(c *config.Config) *float64 { return &c.Prey.FleeSpeed }},
			// Steering
			{Name: "smooth_time", Path: "steering.smooth_time", Min: 0.1, Max: 1.0, Default: 0.3,
				field: func(c *config.Config) *float64 { return &c.Steering.SmoothTime }},
			{Name: "avoid_strength", Path: "steering.avoid_strength", Min: 0.5, Max: 4.0, Default: 1.5,
				field: func(c *config.Config) *float64 { return &c.Steering.AvoidStrength }},
			{Name: "detect_distance", Path: "steering.detect_distance", Min: 2.0, Max: 8.0, Default: 4.0,
				field: func(c *config.Config) *float64 { return &c.Steering.DetectDistance }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg and refreshes derived values.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		*spec.field(cfg) = clamped[i]
	}
	// Separation never reaches past the neighbor radius.
	cfg.Prey.SeparationDistance = min(cfg.Prey.SeparationDistance, cfg.Prey.NeighborRadius)
	cfg.Prey.SafeDistance = max(cfg.Prey.SafeDistance, cfg.Prey.FleeDistance)
	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.field(cfg)
	}
	return v
}
