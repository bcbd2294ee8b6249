package behavior

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/flocking"
)

func TestPreyFleeHysteresis(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg)
	self := h.spawn(components.KindPrey, mgl64.Vec3{0, -1, 0}, 0.4)
	player := h.spawn(components.KindPlayer, mgl64.Vec3{5, -1, 0}, 1)

	p := NewPrey(cfg)
	steps := []struct {
		name   string
		threat float64 // player x
		want   string
	}{
		{"between flee and safe distance", 5, "schooling"},
		{"inside flee distance", 2, "fleeing"},
		{"back between distances", 5, "fleeing"},
		{"just inside safe distance", 7.9, "fleeing"},
		{"out of sight", 12, "schooling"},
	}
	for _, s := range steps {
		h.move(player, mgl64.Vec3{s.threat, -1, 0})
		h.tick(p, self, 0.1)
		if got := p.State(); got != s.want {
			t.Fatalf("%s: State() = %q, want %q", s.name, got, s.want)
		}
	}
}

func TestPreyIgnoresSmallerCarnivore(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg)
	self := h.spawn(components.KindPrey, mgl64.Vec3{0, -1, 0}, 0.6)
	h.spawn(components.KindCarnivore, mgl64.Vec3{1, -1, 0}, 0.5)

	p := NewPrey(cfg)
	h.tick(p, self, 0.1)
	if p.StateID() != PreySchooling {
		t.Errorf("State() = %q, want schooling near a smaller carnivore", p.State())
	}
}

func TestPreyAlarmForcesFleeing(t *testing.T) {
	cfg := config.Default()
	cfg.Prey.AlarmHold = 0
	h := newHarness(t, cfg)
	self := h.spawn(components.KindPrey, mgl64.Vec3{0, -1, 0}, 0.4)
	threatPos := mgl64.Vec3{-3, -1, 0}

	p := NewPrey(cfg)
	h.tick(p, self, 0.1)
	if p.StateID() != PreySchooling {
		t.Fatalf("State() = %q, want schooling before the alarm", p.State())
	}

	a, _ := h.reg.View(self)
	h.ctx.Self = a
	p.Alarm(h.ctx, h.spawn(components.KindCarnivore, mgl64.Vec3{-30, -1, -30}, 2), threatPos)
	if p.StateID() != PreyFleeing {
		t.Fatalf("State() = %q right after Alarm, want fleeing", p.State())
	}

	// Nothing is visible, yet the next tick still flees from the alarm source.
	in := h.tick(p, self, 0.1)
	if p.StateID() != PreyFleeing {
		t.Fatalf("State() = %q on the tick after Alarm, want fleeing", p.State())
	}
	if in.Speed != cfg.Prey.FleeSpeed {
		t.Errorf("Speed = %v, want flee speed %v", in.Speed, cfg.Prey.FleeSpeed)
	}

	h.tick(p, self, 0.1)
	if p.StateID() != PreySchooling {
		t.Errorf("State() = %q once the alarm lapsed, want schooling", p.State())
	}
}

func TestPreyFleesAwayFromAlarmSource(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg)
	self := h.spawn(components.KindPrey, mgl64.Vec3{0, -1, 0}, 0.4)
	threat := h.spawn(components.KindCarnivore, mgl64.Vec3{-20, -1, 0}, 2)

	p := NewPrey(cfg)
	a, _ := h.reg.View(self)
	h.ctx.Self = a
	p.Alarm(h.ctx, threat, mgl64.Vec3{-20, -1, 0})

	in := h.tick(p, self, 0.1)
	dir := in.Desired.Normalize()
	if dir.Dot(mgl64.Vec3{1, 0, 0}) < 0.7 {
		t.Errorf("flee direction %v, want away from the threat within jitter", dir)
	}
	if dir[1] != 0 {
		t.Errorf("flee direction %v has a vertical component", dir)
	}
}

func TestPreySchoolingSpeedIsCapped(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg)
	self := h.spawn(components.KindPrey, mgl64.Vec3{0, -1, 0}, 0.4)
	mate := h.spawn(components.KindPrey, mgl64.Vec3{0.5, -1, 0}, 0.4)

	h.ctx.Flock.Reset()
	h.ctx.Flock.Capture(
		flocking.Sample{Entity: self, Pos: mgl64.Vec3{0, -1, 0}, Vel: mgl64.Vec3{0, 0, 3}},
		flocking.Sample{Entity: mate, Pos: mgl64.Vec3{0.5, -1, 0}, Vel: mgl64.Vec3{3, 0, 0}},
	)

	p := NewPrey(cfg)
	for i := 0; i < 20; i++ {
		in := h.tick(p, self, 0.1)
		if in.Speed > cfg.Prey.NormalSpeed+1e-9 {
			t.Fatalf("tick %d Speed = %v, above normal speed %v", i, in.Speed, cfg.Prey.NormalSpeed)
		}
		if in.Speed < minCruise {
			t.Fatalf("tick %d Speed = %v, below cruise floor", i, in.Speed)
		}
	}
}
