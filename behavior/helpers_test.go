package behavior

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/flocking"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
	"github.com/pthm-cable/shoal/registry"
)

// testEnv adds invulnerability flags on top of a real registry.
type testEnv struct {
	*registry.Registry
	invulnerable map[ecs.Entity]bool
}

func (e *testEnv) Party(ent ecs.Entity) (predation.Party, bool) {
	a, ok := e.View(ent)
	if !ok {
		return predation.Party{}, false
	}
	p := a.Party()
	p.Invulnerable = e.invulnerable[ent]
	return p, true
}

type hookLog struct {
	killers []components.Identity
	eaten   int
	alarms  int
}

func (h *hookLog) PlayerEaten(k components.Identity)                { h.killers = append(h.killers, k) }
func (h *hookLog) Eaten(predation.Party, predation.Party, float64) { h.eaten++ }
func (h *hookLog) Alarm(mgl64.Vec3, float64, ecs.Entity)           { h.alarms++ }

type harness struct {
	t     *testing.T
	cfg   *config.Config
	reg   *registry.Registry
	env   *testEnv
	hooks *hookLog
	ctx   *Context
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	reg := registry.New(registry.Config{
		Min:      geom.Vec(cfg.World.Min),
		Max:      geom.Vec(cfg.World.Max),
		CellSize: cfg.World.GridCellSize,
	})
	env := &testEnv{Registry: reg, invulnerable: map[ecs.Entity]bool{}}
	hooks := &hookLog{}
	return &harness{
		t:     t,
		cfg:   cfg,
		reg:   reg,
		env:   env,
		hooks: hooks,
		ctx: &Context{
			Env:        env,
			Perception: perception.NewResolver(reg),
			Flock:      &flocking.Snapshot{},
			Flocking:   flocking.NewEngine(flocking.ParamsFromConfig(cfg.Prey)),
			Predation:  predation.NewResolver(reg, hooks, cfg.Derived.AlarmRadius),
			Rng:        rand.New(rand.NewSource(7)),
			Wander:     NewWanderField(7, cfg.Prey.WanderScale),
			Cfg:        cfg,
		},
	}
}

func (h *harness) spawn(kind components.Kind, pos mgl64.Vec3, size float64) ecs.Entity {
	return h.reg.Spawn(registry.SpawnSpec{
		Kind:   kind,
		Pos:    pos,
		Orient: mgl64.QuatIdent(),
		Body: components.Body{
			Size:      size,
			MinSize:   0.1,
			MaxSize:   10,
			BaseSpeed: 2,
			TurnRate:  90,
			Nutrition: 0.1,
		},
	})
}

func (h *harness) seaweed(pos mgl64.Vec3, amount float64) ecs.Entity {
	return h.reg.SpawnResource(pos, components.Resource{Amount: amount, Total: 1, Bite: 0.1})
}

func (h *harness) move(e ecs.Entity, pos mgl64.Vec3) {
	h.t.Helper()
	a, ok := h.reg.View(e)
	if !ok {
		h.t.Fatalf("move: %v is not alive", e)
	}
	if err := h.reg.Commit(e, pos, a.Orient, a.Steering, a.Motion.Velocity); err != nil {
		h.t.Fatalf("Commit error = %v", err)
	}
}

// tick runs one behavior tick for e and applies direct intents.
func (h *harness) tick(b Behavior, e ecs.Entity, dt float64) Intent {
	h.t.Helper()
	a, ok := h.reg.View(e)
	if !ok {
		h.t.Fatalf("tick: %v is not alive", e)
	}
	h.ctx.Self = a
	in := b.Tick(h.ctx, dt)
	h.ctx.Time += dt
	if in.Direct {
		if err := h.reg.Commit(e, in.Pos, in.Orient, a.Steering, a.Motion.Velocity); err != nil {
			h.t.Fatalf("Commit error = %v", err)
		}
	}
	return in
}
