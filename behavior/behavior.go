// Package behavior implements per-species decision making. Each agent owns
// a Behavior whose state machine runs once per tick and produces an Intent
// for the steering controller.
package behavior

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/flocking"
	"github.com/pthm-cable/shoal/fsm"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
	"github.com/pthm-cable/shoal/registry"
)

// Behavior is the polymorphic per-agent strategy.
type Behavior interface {
	Kind() components.Kind
	Tick(ctx *Context, dt float64) Intent
	State() string
}

// Env is the world surface a behavior may read and mutate during its tick.
// Every lookup re-reads live state; removed entities report ok=false.
type Env interface {
	Alive(e ecs.Entity) bool
	View(e ecs.Entity) (registry.Agent, bool)
	Party(e ecs.Entity) (predation.Party, bool)
	SetSize(e ecs.Entity, size float64) (float64, error)
	Resource(e ecs.Entity) (components.Resource, mgl64.Vec3, bool)
	BiteResource(e ecs.Entity) bool
}

// TransitionFunc observes state changes.
type TransitionFunc func(e ecs.Entity, kind components.Kind, from, to string)

// Context carries everything a behavior may use for one agent's tick.
// The game rebuilds Self for every agent and reuses the rest.
type Context struct {
	Self registry.Agent
	Time float64 // simulation clock in seconds

	Env        Env
	Perception *perception.Resolver
	Flock      *flocking.Snapshot
	Flocking   *flocking.Engine
	Predation  *predation.Resolver
	Rng        *rand.Rand
	Wander     *WanderField
	Cfg        *config.Config

	OnTransition TransitionFunc
}

// Intent is a behavior's request to the steering controller.
type Intent struct {
	Desired mgl64.Vec3 // direction; zero keeps the current heading
	Speed   float64
	Hold    bool // stay in place

	// Direct bypasses steering and commits Pos and Orient as given.
	Direct bool
	Pos    mgl64.Vec3
	Orient mgl64.Quat
}

func seek(from, to mgl64.Vec3, speed float64) Intent {
	return Intent{Desired: to.Sub(from), Speed: speed}
}

func away(from, threat mgl64.Vec3, speed float64) Intent {
	return Intent{Desired: from.Sub(threat), Speed: speed}
}

func mustValidate[T any](t *fsm.Table[T]) *fsm.Table[T] {
	if err := t.Validate(); err != nil {
		panic("behavior: " + err.Error())
	}
	return t
}

// start enters the initial state on first use.
func start[T any](m *fsm.Machine[T], ctx T) {
	if m.State() == fsm.StateNone {
		// Tables are validated when built, so Init cannot fail here.
		_ = m.Init(ctx)
	}
}

// observe wires a machine's transitions to the context hook.
func observe[T any](m *fsm.Machine[T], table *fsm.Table[T], kind components.Kind, ctx func() *Context) {
	m.OnTransition = func(from, to fsm.StateID) {
		c := ctx()
		if c == nil || c.OnTransition == nil {
			return
		}
		c.OnTransition(c.Self.Entity, kind, table.Name(from), table.Name(to))
	}
}
