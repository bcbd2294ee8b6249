package game

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/flocking"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/steering"
	"github.com/pthm-cable/shoal/telemetry"
)

// boundsMargin keeps committed positions strictly inside the volume walls.
const boundsMargin = 0.05

// captureFlock freezes prey positions and last tick's velocities.
func (w *World) captureFlock() {
	flock := w.ctx.Flock
	flock.Reset()
	for _, e := range w.reg.Entities(components.KindPrey) {
		a, ok := w.reg.View(e)
		if !ok {
			continue
		}
		flock.Capture(flocking.Sample{Entity: e, Pos: a.Pos, Vel: a.Motion.Velocity})
	}
}

// updateEnvironment advances resources, the super timer, pollution and
// star pickups.
func (w *World) updateEnvironment(dt float64) {
	w.reg.RegrowResources(dt)

	player, ok := w.reg.View(w.player)
	if !ok || w.playerBehavior == nil {
		w.reg.Flush()
		return
	}
	pb := w.playerBehavior

	if pb.UpdateSuper(dt) {
		w.setSuper(false)
	}

	for _, zone := range w.cfg.Pollution {
		if player.Pos.Sub(geom.Vec(zone.Center)).Len() <= zone.Radius {
			size, err := w.env.SetSize(w.player, player.Body.Size-w.cfg.Player.ShrinkRate*dt)
			if err == nil {
				player.Body.Size = size
			}
		}
	}

	w.nearby = w.reg.OverlapSphere(w.nearby[:0], player.Pos, w.cfg.Stars.PickupRadius)
	for _, c := range w.nearby {
		if !perception.IsStar(c) {
			continue
		}
		pickup, _, ok := w.reg.Pickup(c.Entity)
		if !ok {
			continue
		}
		w.reg.RequestDespawn(c.Entity)
		w.collector.RecordStar()
		started := pb.Collect(pickup.Value)
		w.events = append(w.events, telemetry.NewStarEvent(w.tick, w.playerID, pb.Score()))
		if started {
			w.setSuper(true)
		}
	}
	w.reg.Flush()
}

func (w *World) setSuper(active bool) {
	w.events = append(w.events, telemetry.NewSuperEvent(w.tick, w.playerID, active))
	w.listener.SuperMode(active)
	if active {
		slog.Info("super_on", "tick", w.tick, "duration", w.cfg.Player.SuperDuration)
	} else {
		slog.Info("super_off", "tick", w.tick)
	}
}

// updateAgents ticks every agent in kind order, then spawn order. Agents
// removed earlier in the tick are skipped. Time is charged per agent to
// the behavior, steering and flush phases.
func (w *World) updateAgents(dt float64, mark time.Time) time.Time {
	w.order = w.order[:0]
	for _, kind := range components.FishKinds {
		w.order = w.reg.AppendEntities(w.order, kind)
	}

	for _, e := range w.order {
		a, ok := w.reg.View(e)
		if !ok {
			continue
		}
		b, ok := w.behaviors[e]
		if !ok {
			continue
		}
		w.ctx.Self = a
		w.ctx.Time = w.time
		intent := b.Tick(&w.ctx, dt)
		mark = w.perf.Lap(telemetry.PhaseBehavior, mark)

		w.apply(e, intent, dt)
		mark = w.perf.Lap(telemetry.PhaseSteering, mark)

		w.reg.Flush()
		mark = w.perf.Lap(telemetry.PhaseFlush, mark)
	}
	return mark
}

// apply commits an intent. Direct intents move as given within the volume
// and outside obstacles; the rest go through the steering controller.
func (w *World) apply(e ecs.Entity, in behavior.Intent, dt float64) {
	cur, ok := w.reg.View(e)
	if !ok {
		return
	}

	if in.Direct {
		top := w.cfg.World.SurfaceY + w.cfg.Player.JumpHeight
		pos := w.clampToVolume(in.Pos, top)
		if w.obstacles.Blocked(pos) {
			pos = cur.Pos
		}
		vel := pos.Sub(cur.Pos).Mul(1 / dt)
		_ = w.reg.Commit(e, pos, in.Orient, cur.Steering, vel)
		return
	}

	speed := in.Speed
	if in.Hold {
		speed = 0
	}
	out := w.steer.Steer(steering.Input{
		Pos:      cur.Pos,
		Orient:   cur.Orient,
		Desired:  in.Desired,
		Samples:  w.steer.Sense(cur.Pos, cur.Orient),
		Speed:    speed,
		TurnRate: cur.Body.TurnRate,
		DT:       dt,
		State:    cur.Steering,
	})
	if out.Avoiding {
		w.collector.RecordAvoidance()
	}

	pos := w.clampToVolume(out.Pos, w.cfg.World.SurfaceY)
	if w.obstacles.Blocked(pos) {
		pos = cur.Pos
	}
	_ = w.reg.Commit(e, pos, out.Orient, out.State, out.State.Smoothed.Mul(speed))
}

// clampToVolume keeps p inside the volume with its Y capped at top.
func (w *World) clampToVolume(p mgl64.Vec3, top float64) mgl64.Vec3 {
	lo := geom.Vec(w.cfg.World.Min).Add(mgl64.Vec3{boundsMargin, boundsMargin, boundsMargin})
	hi := geom.Vec(w.cfg.World.Max).Sub(mgl64.Vec3{boundsMargin, 0, boundsMargin})
	hi[1] = top
	return geom.ClampVec(p, lo, hi)
}
