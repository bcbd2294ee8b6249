// Package flocking computes separation, alignment and cohesion for schooling agents.
package flocking

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/geom"
)

// Sample is one agent's position and velocity as of the previous tick.
type Sample struct {
	Entity ecs.Entity
	Pos    mgl64.Vec3
	Vel    mgl64.Vec3
}

// Snapshot is a frozen view of a species, captured once at tick start.
// Reading from it never observes velocities written during the tick.
type Snapshot struct {
	samples []Sample
}

// Reset empties the snapshot, keeping capacity.
func (s *Snapshot) Reset() {
	s.samples = s.samples[:0]
}

// Capture appends samples.
func (s *Snapshot) Capture(samples ...Sample) {
	s.samples = append(s.samples, samples...)
}

// Len returns the number of captured samples.
func (s *Snapshot) Len() int {
	return len(s.samples)
}

// Neighbors appends samples within radius of pos, excluding self and any
// entity alive rejects. alive may be nil.
func (s *Snapshot) Neighbors(dst []Sample, self ecs.Entity, pos mgl64.Vec3, radius float64, alive func(ecs.Entity) bool) []Sample {
	r2 := radius * radius
	for _, n := range s.samples {
		if n.Entity == self {
			continue
		}
		d := n.Pos.Sub(pos)
		if d.Dot(d) > r2 {
			continue
		}
		if alive != nil && !alive(n.Entity) {
			continue
		}
		dst = append(dst, n)
	}
	return dst
}

// Weights scale the three flocking rules.
type Weights struct {
	Separation float64
	Alignment  float64
	Cohesion   float64
}

// Params configures the engine.
type Params struct {
	NeighborRadius     float64
	SeparationDistance float64
	Weights            Weights
}

// ParamsFromConfig converts the prey config section.
func ParamsFromConfig(c config.PreyConfig) Params {
	return Params{
		NeighborRadius:     c.NeighborRadius,
		SeparationDistance: c.SeparationDistance,
		Weights: Weights{
			Separation: c.SeparationWeight,
			Alignment:  c.AlignmentWeight,
			Cohesion:   c.CohesionWeight,
		},
	}
}

// Vectors holds the unweighted rule outputs.
type Vectors struct {
	Separation mgl64.Vec3
	Alignment  mgl64.Vec3
	Cohesion   mgl64.Vec3
}

// Engine evaluates the rules. It is stateless apart from its params.
type Engine struct {
	Params Params
}

// NewEngine creates an engine.
func NewEngine(p Params) *Engine {
	return &Engine{Params: p}
}

// Compute evaluates the rules for an agent at pos against neighbors.
func (e *Engine) Compute(pos mgl64.Vec3, neighbors []Sample) Vectors {
	var v Vectors
	if len(neighbors) == 0 {
		return v
	}

	sepDist := e.Params.SeparationDistance
	var sep, align, centroid mgl64.Vec3
	sepCount, alignCount := 0, 0

	for _, n := range neighbors {
		offset := pos.Sub(n.Pos)
		d := offset.Len()
		if d > geom.Epsilon && d < sepDist {
			sep = sep.Add(offset.Mul(1 / d))
			sepCount++
		}
		if dir := geom.NormalizeOr(n.Vel, mgl64.Vec3{}); dir.Len() > 0 {
			align = align.Add(dir)
			alignCount++
		}
		centroid = centroid.Add(n.Pos)
	}

	if sepCount > 0 {
		v.Separation = sep.Mul(1 / float64(sepCount))
	}
	if alignCount > 0 {
		v.Alignment = geom.NormalizeOr(align.Mul(1/float64(alignCount)), mgl64.Vec3{})
	}
	centroid = centroid.Mul(1 / float64(len(neighbors)))
	v.Cohesion = geom.NormalizeOr(centroid.Sub(pos), mgl64.Vec3{})
	return v
}

// Combine weights the rules, normalizes and scales to speed. An isolated
// or balanced agent keeps its heading.
func (e *Engine) Combine(v Vectors, heading mgl64.Vec3, speed float64) mgl64.Vec3 {
	w := e.Params.Weights
	sum := v.Separation.Mul(w.Separation).
		Add(v.Alignment.Mul(w.Alignment)).
		Add(v.Cohesion.Mul(w.Cohesion))
	return geom.NormalizeOr(sum, geom.NormalizeOr(heading, geom.Forward)).Mul(speed)
}
