package steering

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/geom"
)

// Hit describes where a sensing ray met an obstacle.
type Hit struct {
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// RayCaster answers obstacle ray queries.
type RayCaster interface {
	Raycast(origin, dir mgl64.Vec3, maxDist float64) (Hit, bool)
}

// Sample is one ray of the sensing fan.
type Sample struct {
	Dir     mgl64.Vec3
	Hit     Hit
	Blocked bool
}

// fanOffsets spreads n unit directions over spreadDeg around +Z.
func fanOffsets(n int, spreadDeg float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, n)
	if n == 1 {
		out[0] = geom.Forward
		return out
	}
	spread := mgl64.DegToRad(spreadDeg)
	step := spread / float64(n-1)
	for i := range out {
		out[i] = geom.YawQuat(-spread/2 + step*float64(i)).Rotate(geom.Forward)
	}
	return out
}

// Sense casts the ray fan around the agent's horizontal heading.
// The returned slice is reused by the next call.
func (c *Controller) Sense(pos mgl64.Vec3, orient mgl64.Quat) []Sample {
	c.buf = c.buf[:0]
	yaw := geom.YawQuat(geom.Yaw(geom.HeadingOf(orient)))
	for _, off := range c.fan {
		dir := yaw.Rotate(off)
		s := Sample{Dir: dir}
		if c.rays != nil {
			if hit, ok := c.rays.Raycast(pos, dir, c.params.DetectDistance); ok {
				s.Hit, s.Blocked = hit, true
			}
		}
		c.buf = append(c.buf, s)
	}
	return c.buf
}

// Avoidance averages the reflections of every blocked ray off its hit
// normal, weighted by proximity. It reports false when nothing is within
// the detect distance.
func (c *Controller) Avoidance(heading mgl64.Vec3, samples []Sample) (mgl64.Vec3, bool) {
	var sum mgl64.Vec3
	hits := 0
	for _, s := range samples {
		if !s.Blocked || s.Hit.Distance > c.params.DetectDistance {
			continue
		}
		d := s.Dir
		n := s.Hit.Normal
		reflected := d.Sub(n.Mul(2 * d.Dot(n)))
		sum = sum.Add(reflected.Mul(c.weight(s.Hit.Distance)))
		hits++
	}
	if hits == 0 {
		return mgl64.Vec3{}, false
	}
	avg := geom.Horizontal(sum.Mul(1 / float64(hits)))
	return geom.NormalizeOr(avg, heading.Mul(-1)), true
}
