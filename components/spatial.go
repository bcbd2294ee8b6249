package components

import "github.com/go-gl/mathgl/mgl64"

// Transform is an entity's root position and orientation.
// Agents with a segmented body read and write their head anchor instead.
type Transform struct {
	Pos    mgl64.Vec3
	Orient mgl64.Quat
}

// Motion holds the velocity committed on the last tick.
type Motion struct {
	Velocity mgl64.Vec3
}

// Steering is per-agent smoothing state, mutated only by the steering controller.
type Steering struct {
	Smoothed  mgl64.Vec3 // smoothed movement direction
	VelRef    mgl64.Vec3 // SmoothDamp velocity reference
	LastAvoid mgl64.Vec3 // last avoidance sample (zero when clear)
}
