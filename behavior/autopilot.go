package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
)

// Autopilot drives the player in headless runs. It runs from larger
// carnivores, otherwise heads for the nearest seaweed, star or edible fish,
// and roams along the wander field when nothing is in sight.
type Autopilot struct {
	cfg config.PlayerConfig
}

// NewAutopilot creates an autopilot for the configured player.
func NewAutopilot(cfg *config.Config) *Autopilot {
	return &Autopilot{cfg: cfg.Player}
}

// Command implements PlayerInput.
func (a *Autopilot) Command(ctx *Context, dt float64) PlayerCommand {
	self := ctx.Self
	heading := geom.HeadingOf(self.Orient)

	me, ok := ctx.Env.Party(self.Entity)
	if !ok {
		return PlayerCommand{}
	}

	if !me.Invulnerable {
		threat, ok := ctx.Perception.FindNearest(self.Pos, a.cfg.DetectionRange, self.Entity, perception.IsCarnivoreAtLeast(me.Size))
		if ok {
			return PlayerCommand{
				Turn:     steerToward(heading, self.Pos.Sub(threat.Pos)),
				Throttle: 1,
				Sprint:   true,
				Dive:     threat.Dist < a.cfg.EatRange*2,
			}
		}
	}

	edible := func(c perception.Candidate) bool {
		switch {
		case c.Kind == components.KindSeaweed:
			return c.Remaining > 0
		case c.Kind == components.KindStar:
			return true
		case c.Kind.IsFish() && c.Kind != components.KindPlayer:
			return me.Super || c.Size < me.Size
		}
		return false
	}
	target, ok := ctx.Perception.FindNearest(self.Pos, a.cfg.DetectionRange, self.Entity, edible)
	if !ok {
		dir := heading
		if ctx.Wander != nil {
			dir = ctx.Wander.Direction(self.Pos, ctx.Time)
		}
		return PlayerCommand{Turn: steerToward(heading, dir), Throttle: 0.6}
	}

	turn := steerToward(heading, target.Pos.Sub(self.Pos))
	reach := a.cfg.EatRange
	if me.Super {
		reach *= a.cfg.SuperEatRangeMult
	}
	throttle := 1.0
	if math.Abs(turn) > 0.9 {
		throttle = 0.3
	}
	return PlayerCommand{
		Turn:     turn,
		Throttle: throttle,
		Eat:      target.Kind != components.KindStar && target.Dist <= reach,
	}
}

// steerToward maps the signed yaw error to a turn command. A quarter turn
// or more saturates.
func steerToward(heading, dir mgl64.Vec3) float64 {
	if geom.Horizontal(dir).Len() < geom.Epsilon {
		return 0
	}
	err := geom.WrapAngle(geom.Yaw(dir) - geom.Yaw(heading))
	return geom.Clamp(err/(math.Pi/4), -1, 1)
}
