// Package steering turns a desired heading into a smoothed, obstacle-aware
// position and orientation update.
package steering

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/geom"
)

// ErrInvalidParams is returned by NewController for parameters that cannot converge.
var ErrInvalidParams = errors.New("invalid steering params")

// lateralEpsilon is the sideways component below which a reversing
// direction counts as head-on.
const lateralEpsilon = 1e-3

// Params configures the shared controller.
type Params struct {
	SmoothTime     float64
	AvoidStrength  float64
	DetectDistance float64
	SpreadDeg      float64
	RayCount       int
}

// ParamsFromConfig converts the steering config section.
func ParamsFromConfig(c config.SteeringConfig) Params {
	return Params{
		SmoothTime:     c.SmoothTime,
		AvoidStrength:  c.AvoidStrength,
		DetectDistance: c.DetectDistance,
		SpreadDeg:      c.RaySpreadDeg,
		RayCount:       c.RayCount,
	}
}

func (p Params) validate() error {
	switch {
	case !(p.SmoothTime > 0):
		return fmt.Errorf("%w: smooth time %v", ErrInvalidParams, p.SmoothTime)
	case !(p.DetectDistance > 0):
		return fmt.Errorf("%w: detect distance %v", ErrInvalidParams, p.DetectDistance)
	case p.RayCount < 1:
		return fmt.Errorf("%w: ray count %d", ErrInvalidParams, p.RayCount)
	case p.AvoidStrength < 0:
		return fmt.Errorf("%w: avoid strength %v", ErrInvalidParams, p.AvoidStrength)
	}
	return nil
}

// Input is one agent's steering request for a tick.
type Input struct {
	Pos      mgl64.Vec3
	Orient   mgl64.Quat
	Desired  mgl64.Vec3
	Samples  []Sample
	Speed    float64
	TurnRate float64 // degrees per second
	DT       float64
	State    components.Steering
}

// Output is the committed result of Steer.
type Output struct {
	Pos      mgl64.Vec3
	Orient   mgl64.Quat
	State    components.Steering
	Avoiding bool
}

// Controller is shared by all agents; it holds no per-agent state.
type Controller struct {
	params Params
	rays   RayCaster
	fan    []mgl64.Vec3 // yaw offsets as unit directions relative to +Z
	buf    []Sample
}

// NewController validates params and precomputes the ray fan.
// rc may be nil, in which case Sense returns no hits.
func NewController(p Params, rc RayCaster) (*Controller, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	c := &Controller{params: p, rays: rc}
	c.fan = fanOffsets(p.RayCount, p.SpreadDeg)
	c.buf = make([]Sample, 0, p.RayCount)
	return c, nil
}

// Params returns the controller configuration.
func (c *Controller) Params() Params {
	return c.params
}

// Steer applies avoidance, smoothing, capped turning and translation.
// A zero or negative dt returns the input unchanged.
func (c *Controller) Steer(in Input) Output {
	out := Output{Pos: in.Pos, Orient: in.Orient, State: in.State}
	if !(in.DT > 0) {
		return out
	}

	heading := geom.HeadingOf(in.Orient)
	desired := geom.NormalizeOr(geom.Horizontal(in.Desired), heading)

	final := desired
	out.State.LastAvoid = mgl64.Vec3{}
	if avoid, ok := c.Avoidance(heading, in.Samples); ok {
		out.Avoiding = true
		out.State.LastAvoid = avoid
		final = c.blend(desired, avoid, heading, in.Samples)
	}

	current := geom.Horizontal(in.State.Smoothed)
	if current.Len() < geom.Epsilon {
		current = heading
	}
	smoothed, vel := SmoothDamp(current, final, in.State.VelRef, c.params.SmoothTime, in.DT)
	smoothed = geom.Horizontal(smoothed)
	if !geom.Finite(smoothed) || !geom.Finite(vel) {
		smoothed, vel = heading, mgl64.Vec3{}
	}
	out.State.Smoothed = smoothed
	out.State.VelRef = geom.Horizontal(vel)

	dir := geom.NormalizeOr(smoothed, heading)
	out.Orient = RotateTowards(in.Orient, dir, in.TurnRate*in.DT)
	out.Pos = in.Pos.Add(smoothed.Mul(in.Speed * in.DT))
	if !geom.Finite(out.Pos) {
		out.Pos = in.Pos
	}
	return out
}

// blend adds avoidance to the desired direction. When the result points
// back along the heading with no sideways part, it is pushed toward the
// less obstructed side so the agent turns instead of braking in place.
func (c *Controller) blend(desired, avoid, heading mgl64.Vec3, samples []Sample) mgl64.Vec3 {
	right := geom.Right(heading)
	sum := desired.Add(avoid.Mul(c.params.AvoidStrength))
	final := geom.NormalizeOr(sum, mgl64.Vec3{})

	if math.Abs(final.Dot(right)) > lateralEpsilon || final.Dot(heading) > 0 {
		return final
	}

	side := right
	if c.obstruction(samples, right) > c.obstruction(samples, right.Mul(-1)) {
		side = right.Mul(-1)
	}
	return geom.NormalizeOr(final.Add(side), side)
}

// obstruction sums hit weights of rays leaning toward side.
func (c *Controller) obstruction(samples []Sample, side mgl64.Vec3) float64 {
	var total float64
	for _, s := range samples {
		if !s.Blocked || s.Dir.Dot(side) <= lateralEpsilon {
			continue
		}
		total += c.weight(s.Hit.Distance)
	}
	return total
}

func (c *Controller) weight(dist float64) float64 {
	return geom.Clamp(1-dist/c.params.DetectDistance, 0, 1)
}

// SmoothDamp moves current toward target with a critically damped spring
// and never overshoots. It returns the new value and velocity reference.
func SmoothDamp(current, target, vel mgl64.Vec3, smoothTime, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	if !(dt > 0) || !(smoothTime > 0) {
		return current, vel
	}
	omega := 2 / smoothTime
	x := omega * dt
	decay := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current.Sub(target)
	temp := vel.Add(change.Mul(omega)).Mul(dt)
	newVel := vel.Sub(temp.Mul(omega)).Mul(decay)
	out := target.Add(change.Add(temp).Mul(decay))

	// Overshoot clamp
	if target.Sub(current).Dot(out.Sub(target)) > 0 {
		out = target
		newVel = mgl64.Vec3{}
	}
	return out, newVel
}

// RotateTowards yaws orient toward dir by at most maxDeg degrees.
func RotateTowards(orient mgl64.Quat, dir mgl64.Vec3, maxDeg float64) mgl64.Quat {
	heading := geom.HeadingOf(orient)
	h := geom.Horizontal(dir)
	if h.Len() < geom.Epsilon || maxDeg <= 0 {
		return geom.YawQuat(geom.Yaw(heading))
	}
	from := geom.Yaw(heading)
	delta := geom.WrapAngle(geom.Yaw(h) - from)
	limit := mgl64.DegToRad(maxDeg)
	delta = geom.Clamp(delta, -limit, limit)
	return geom.YawQuat(from + delta)
}
