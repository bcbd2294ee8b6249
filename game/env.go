package game

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/predation"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
)

// worldEnv is the registry as behaviors see it, plus the predation hooks.
// It layers player modifiers on parties and records telemetry for bites,
// growth, kills and alarms.
type worldEnv struct {
	*registry.Registry
	w *World
}

// Party implements behavior.Env.
func (e *worldEnv) Party(ent ecs.Entity) (predation.Party, bool) {
	a, ok := e.View(ent)
	if !ok {
		return predation.Party{}, false
	}
	p := a.Party()
	if ent == e.w.player && e.w.playerBehavior != nil {
		p = e.w.playerBehavior.Party(p)
	}
	return p, true
}

// SetSize implements behavior.Env.
func (e *worldEnv) SetSize(ent ecs.Entity, size float64) (float64, error) {
	got, err := e.Registry.SetSize(ent, size)
	if err != nil {
		return got, err
	}
	if id, ok := e.Identity(ent); ok {
		e.w.lifetimes.UpdateSize(id.ID, got)
	}
	return got, nil
}

// BiteResource implements behavior.Env. The biter is the agent whose
// tick is running.
func (e *worldEnv) BiteResource(ent ecs.Entity) bool {
	if !e.Registry.BiteResource(ent) {
		return false
	}
	e.w.collector.RecordBite()
	e.w.lifetimes.RecordBite(e.w.ctx.Self.Identity.ID)
	return true
}

// Attempted implements predation.AttemptObserver.
func (e *worldEnv) Attempted(eater, _ predation.Party) {
	e.w.collector.RecordAttempt()
	e.w.lifetimes.RecordAttempt(eater.Identity.ID)
}

// PlayerEaten implements predation.Hooks.
func (e *worldEnv) PlayerEaten(killer components.Identity) {
	w := e.w
	if w.playerDead {
		return
	}
	w.playerDead = true
	w.killer = killer
	var size float64
	if w.playerAgent != nil {
		w.playerAgent.NotifyEaten(killer.Name)
		size = w.playerAgent.Size()
	}
	w.events = append(w.events, telemetry.NewPlayerDeathEvent(w.tick, killer, w.playerID))
	slog.Info("player_died", "killer", killer.Name, "killer_id", killer.ID, "size", size, "tick", w.tick)
}

// Eaten implements predation.Hooks.
func (e *worldEnv) Eaten(eater, victim predation.Party, nutrition float64) {
	w := e.w
	w.collector.RecordPredation(victim.Kind())
	w.lifetimes.RecordKill(eater.Identity.ID)
	w.events = append(w.events, telemetry.NewPredationEvent(w.tick, eater.Identity, victim.Identity, nutrition))

	if eater.Entity == w.player && victim.Kind().IsFish() {
		w.eaten++
		w.listener.FishEaten(w.eaten)
	}
}

// Alarm implements predation.Hooks. Every prey behavior within radius of
// center is forced to flee from threat.
func (e *worldEnv) Alarm(center mgl64.Vec3, radius float64, threat ecs.Entity) {
	w := e.w
	threatPos := center
	threatID := components.Identity{}
	if a, ok := w.reg.View(threat); ok {
		threatPos = a.Pos
		threatID = a.Identity
	}

	// The registry reuses its query buffer, so collect into our own first.
	w.nearby = w.reg.OverlapSphere(w.nearby[:0], center, radius)
	alerted := 0
	for _, c := range w.nearby {
		if c.Kind != components.KindPrey {
			continue
		}
		prey, ok := w.behaviors[c.Entity].(*behavior.Prey)
		if !ok {
			continue
		}
		a, ok := w.reg.View(c.Entity)
		if !ok {
			continue
		}
		w.alarmCtx = w.ctx
		w.alarmCtx.Self = a
		prey.Alarm(&w.alarmCtx, threat, threatPos)
		w.lifetimes.RecordAlarm(a.Identity.ID)
		alerted++
	}

	w.collector.RecordAlarm(alerted)
	w.events = append(w.events, telemetry.NewAlarmEvent(w.tick, threatID, alerted))
}
