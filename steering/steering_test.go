package steering

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/geom"
)

// planeCaster is an infinite wall at z = Z facing -Z.
type planeCaster struct{ Z float64 }

func (p planeCaster) Raycast(origin, dir mgl64.Vec3, maxDist float64) (Hit, bool) {
	if dir[2] <= 0 {
		return Hit{}, false
	}
	t := (p.Z - origin[2]) / dir[2]
	if t < 0 || t > maxDist {
		return Hit{}, false
	}
	return Hit{Point: origin.Add(dir.Mul(t)), Normal: mgl64.Vec3{0, 0, -1}, Distance: t}, true
}

func testParams() Params {
	return Params{SmoothTime: 0.3, AvoidStrength: 1.5, DetectDistance: 4, SpreadDeg: 90, RayCount: 5}
}

func mustController(t *testing.T, rc RayCaster) *Controller {
	t.Helper()
	c, err := NewController(testParams(), rc)
	if err != nil {
		t.Fatalf("NewController error = %v", err)
	}
	return c
}

func TestNewControllerRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Params)
	}{
		{"zero smooth time", func(p *Params) { p.SmoothTime = 0 }},
		{"nan smooth time", func(p *Params) { p.SmoothTime = math.NaN() }},
		{"no rays", func(p *Params) { p.RayCount = 0 }},
		{"negative detect", func(p *Params) { p.DetectDistance = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mod(&p)
			if _, err := NewController(p, nil); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("NewController error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestHeadOnWallTurnsSideways(t *testing.T) {
	c := mustController(t, planeCaster{Z: 3})

	pos := mgl64.Vec3{}
	orient := geom.YawQuat(0)
	var state components.Steering
	dt := 1.0 / 60

	steps := int(testParams().SmoothTime / dt)
	lateral := 0.0
	for i := 0; i < steps; i++ {
		out := c.Steer(Input{
			Pos:      pos,
			Orient:   orient,
			Desired:  mgl64.Vec3{0, 0, 1},
			Samples:  c.Sense(pos, orient),
			Speed:    2,
			TurnRate: 90,
			DT:       dt,
			State:    state,
		})
		pos, orient, state = out.Pos, out.Orient, out.State
		lateral = math.Abs(state.Smoothed[0])
		if lateral > 1e-3 {
			break
		}
	}
	if lateral <= 1e-3 {
		t.Errorf("smoothed direction %v has no lateral component after %d ticks", state.Smoothed, steps)
	}
}

func TestSteerZeroDeltaIsNoop(t *testing.T) {
	c := mustController(t, nil)
	in := Input{
		Pos:      mgl64.Vec3{1, -1, 2},
		Orient:   geom.YawQuat(0.4),
		Desired:  mgl64.Vec3{1, 0, 0},
		Speed:    3,
		TurnRate: 90,
		State:    components.Steering{Smoothed: mgl64.Vec3{0, 0, 1}},
	}
	out := c.Steer(in)
	if out.Pos != in.Pos || out.Orient != in.Orient || out.State != in.State {
		t.Errorf("Steer with dt=0 mutated state: %+v", out)
	}
}

func TestSteerDegenerateDesiredKeepsForward(t *testing.T) {
	c := mustController(t, nil)
	orient := geom.YawQuat(math.Pi / 2) // facing +X

	out := c.Steer(Input{
		Orient:   orient,
		Desired:  mgl64.Vec3{0, 5, 0}, // purely vertical projects to zero
		Speed:    2,
		TurnRate: 90,
		DT:       0.1,
	})
	if !geom.Finite(out.Pos) || !geom.FiniteQuat(out.Orient) {
		t.Fatalf("non-finite output %+v", out)
	}
	if out.Pos[0] <= 0 || math.Abs(out.Pos[2]) > 1e-9 {
		t.Errorf("Pos = %v, want movement along +X", out.Pos)
	}
}

func TestRotateTowardsIsCapped(t *testing.T) {
	q := RotateTowards(geom.YawQuat(0), mgl64.Vec3{1, 0, 0}, 30)
	got := mgl64.RadToDeg(geom.Yaw(geom.HeadingOf(q)))
	if math.Abs(got-30) > 1e-6 {
		t.Errorf("yaw = %v deg, want 30", got)
	}

	q = RotateTowards(geom.YawQuat(0), mgl64.Vec3{1, 0, 1}, 90)
	got = mgl64.RadToDeg(geom.Yaw(geom.HeadingOf(q)))
	if math.Abs(got-45) > 1e-6 {
		t.Errorf("yaw = %v deg, want 45 (target within cap)", got)
	}
}

func TestSmoothDampConvergesWithoutOvershoot(t *testing.T) {
	current := mgl64.Vec3{0, 0, 1}
	target := mgl64.Vec3{1, 0, 0}
	var vel mgl64.Vec3

	for i := 0; i < 600; i++ {
		current, vel = SmoothDamp(current, target, vel, 0.3, 1.0/60)
		if current[0] > 1+1e-9 {
			t.Fatalf("tick %d overshot: %v", i, current)
		}
	}
	if !current.ApproxEqualThreshold(target, 1e-6) {
		t.Errorf("current = %v, want ~%v", current, target)
	}
}

func TestAvoidanceReflectsOffNormal(t *testing.T) {
	c := mustController(t, nil)
	dir := mgl64.Vec3{1, 0, 1}.Normalize()
	samples := []Sample{{
		Dir:     dir,
		Hit:     Hit{Normal: mgl64.Vec3{0, 0, -1}, Distance: 2},
		Blocked: true,
	}}

	avoid, ok := c.Avoidance(geom.Forward, samples)
	if !ok {
		t.Fatal("Avoidance reported no hit")
	}
	want := mgl64.Vec3{1, 0, -1}.Normalize()
	if !avoid.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("avoid = %v, want %v", avoid, want)
	}

	samples[0].Hit.Distance = 5 // beyond detect distance
	if _, ok := c.Avoidance(geom.Forward, samples); ok {
		t.Error("hit beyond detect distance counted")
	}
}

func TestSenseFanSpread(t *testing.T) {
	c := mustController(t, nil)
	samples := c.Sense(mgl64.Vec3{}, geom.YawQuat(0))
	if len(samples) != 5 {
		t.Fatalf("len(samples) = %d, want 5", len(samples))
	}
	first := mgl64.RadToDeg(geom.Yaw(samples[0].Dir))
	last := mgl64.RadToDeg(geom.Yaw(samples[4].Dir))
	if math.Abs(first+45) > 1e-6 || math.Abs(last-45) > 1e-6 {
		t.Errorf("fan edges = %v, %v deg, want -45, 45", first, last)
	}
}
