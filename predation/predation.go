// Package predation resolves whether one agent can eat another and applies
// the consequences.
package predation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/geom"
)

// Party is an eater or candidate as seen at resolution time.
type Party struct {
	Entity   ecs.Entity
	Identity components.Identity
	Pos      mgl64.Vec3
	Size     float64 // effective size, multipliers applied

	Eatable      bool
	Invulnerable bool
	Super        bool // bypasses the size check when eating

	Nutrition         float64
	NutritionFromSize bool
}

// Kind returns the party's species tag.
func (p Party) Kind() components.Kind {
	return p.Identity.Kind
}

// Yield returns the nutrition the party provides when eaten.
func (p Party) Yield() float64 {
	if p.NutritionFromSize {
		return p.Size
	}
	return p.Nutrition
}

// Outcome is the result of TryEat.
type Outcome struct {
	Nutrition    float64
	Eaten        bool
	Blocked      bool // candidate was invulnerable
	PlayerKilled bool
}

// Registry is the subset of the agent registry the resolver mutates.
type Registry interface {
	Alive(e ecs.Entity) bool
	Remove(e ecs.Entity) error
}

// Hooks receives resolution side effects.
type Hooks interface {
	// PlayerEaten fires once when the player is caught.
	PlayerEaten(killer components.Identity)
	// Eaten fires after a candidate was removed.
	Eaten(eater, victim Party, nutrition float64)
	// Alarm asks prey around center to flee from threat.
	Alarm(center mgl64.Vec3, radius float64, threat ecs.Entity)
}

// AttemptObserver may be implemented by Hooks to see every attempt on a
// live candidate, before the outcome is known.
type AttemptObserver interface {
	Attempted(eater, candidate Party)
}

// Resolver applies the eating rules.
type Resolver struct {
	reg         Registry
	hooks       Hooks
	alarmRadius float64
}

// NewResolver creates a resolver. hooks may be nil.
func NewResolver(reg Registry, hooks Hooks, alarmRadius float64) *Resolver {
	if hooks == nil {
		hooks = nopHooks{}
	}
	return &Resolver{reg: reg, hooks: hooks, alarmRadius: alarmRadius}
}

// CanEat reports whether eater may eat candidate right now.
// Invulnerability is checked before size.
func CanEat(eater, candidate Party) bool {
	if !candidate.Eatable || candidate.Invulnerable {
		return false
	}
	return eater.Super || eater.Size > candidate.Size
}

// TryEat resolves one predation attempt. The candidate is removed from
// the registry immediately on success.
func (r *Resolver) TryEat(eater, candidate Party) Outcome {
	if !candidate.Eatable || !r.reg.Alive(candidate.Entity) {
		return Outcome{}
	}
	if obs, ok := r.hooks.(AttemptObserver); ok {
		obs.Attempted(eater, candidate)
	}
	if candidate.Invulnerable {
		return Outcome{Blocked: true}
	}
	if !CanEat(eater, candidate) {
		return Outcome{}
	}

	if candidate.Kind() == components.KindPlayer {
		r.hooks.PlayerEaten(eater.Identity)
		_ = r.reg.Remove(candidate.Entity)
		r.hooks.Eaten(eater, candidate, 0)
		return Outcome{Eaten: true, PlayerKilled: true}
	}

	nutrition := candidate.Yield()
	if err := r.reg.Remove(candidate.Entity); err != nil {
		return Outcome{}
	}
	if candidate.Kind() == components.KindPrey {
		r.hooks.Alarm(candidate.Pos, r.alarmRadius, eater.Entity)
	}
	r.hooks.Eaten(eater, candidate, nutrition)
	return Outcome{Nutrition: nutrition, Eaten: true}
}

// Grow applies nutrition to size, clamped to [min, max].
func Grow(size, nutrition, min, max float64) float64 {
	return geom.Clamp(size+nutrition, min, max)
}

type nopHooks struct{}

func (nopHooks) PlayerEaten(components.Identity)       {}
func (nopHooks) Eaten(Party, Party, float64)           {}
func (nopHooks) Alarm(mgl64.Vec3, float64, ecs.Entity) {}
