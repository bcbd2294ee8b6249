package behavior

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/fsm"
	"github.com/pthm-cable/shoal/perception"
)

// Herbivore states.
const (
	HerbivoreWandering fsm.StateID = iota + 1
	HerbivoreSeeking
	HerbivoreEating
	HerbivoreResting
)

var herbivoreTable = sync.OnceValue(func() *fsm.Table[*Herbivore] {
	t := fsm.NewTable[*Herbivore](HerbivoreWandering)

	wander := t.AddState(HerbivoreWandering, "wandering")
	wander.OnEnter = (*Herbivore).enterWander
	wander.OnUpdate = (*Herbivore).wander

	seeking := t.AddState(HerbivoreSeeking, "seeking")
	seeking.OnEnter = (*Herbivore).enterSeeking
	seeking.OnUpdate = (*Herbivore).seek

	t.AddState(HerbivoreEating, "eating").OnUpdate = (*Herbivore).eat

	resting := t.AddState(HerbivoreResting, "resting")
	resting.OnEnter = (*Herbivore).enterResting
	resting.OnUpdate = (*Herbivore).rest

	t.AddTransition(HerbivoreWandering, fsm.Transition[*Herbivore]{
		TargetID: HerbivoreSeeking,
		Guard:    func(h *Herbivore) bool { return h.hunger <= 0 },
	})

	t.AddTransition(HerbivoreSeeking, fsm.Transition[*Herbivore]{
		TargetID: HerbivoreWandering,
		Guard:    func(h *Herbivore) bool { return !h.hasTarget },
	})
	t.AddTransition(HerbivoreSeeking, fsm.Transition[*Herbivore]{TargetID: HerbivoreEating, Guard: (*Herbivore).inReach})

	t.AddTransition(HerbivoreEating, fsm.Transition[*Herbivore]{
		TargetID: HerbivoreResting,
		Guard:    func(h *Herbivore) bool { return h.sated },
	})
	t.AddTransition(HerbivoreEating, fsm.Transition[*Herbivore]{
		TargetID: HerbivoreSeeking,
		Guard:    func(h *Herbivore) bool { return h.exhausted || !h.inReach() },
	})

	t.AddTransition(HerbivoreResting, fsm.Transition[*Herbivore]{
		TargetID: HerbivoreWandering,
		Guard:    func(h *Herbivore) bool { return h.machine.TimeInState() >= h.cfg.IdleTime },
	})

	return mustValidate(t)
})

// Herbivore grazes seaweed on a hunger timer and rests after some meals.
type Herbivore struct {
	cfg    config.HerbivoreConfig
	arrive float64

	machine *fsm.Machine[*Herbivore]
	ctx     *Context
	dt      float64
	intent  Intent

	hunger float64

	target     ecs.Entity
	targetPos  mgl64.Vec3
	targetDist float64
	hasTarget  bool
	sated      bool
	exhausted  bool

	roam wanderer
}

// NewHerbivore creates a herbivore behavior with a full stomach.
func NewHerbivore(cfg *config.Config) *Herbivore {
	table := herbivoreTable()
	h := &Herbivore{
		cfg:     cfg.Herbivore,
		arrive:  cfg.Steering.ArriveDistance,
		machine: fsm.NewMachine(table),
		hunger:  cfg.Herbivore.HungerThreshold,
	}
	observe(h.machine, table, components.KindHerbivore, func() *Context { return h.ctx })
	return h
}

// Kind implements Behavior.
func (h *Herbivore) Kind() components.Kind { return components.KindHerbivore }

// State implements Behavior.
func (h *Herbivore) State() string { return h.machine.StateName() }

// StateID returns the active state.
func (h *Herbivore) StateID() fsm.StateID { return h.machine.State() }

// Hunger returns seconds until the herbivore looks for food. It goes
// negative while it is hungry.
func (h *Herbivore) Hunger() float64 { return h.hunger }

// Tick implements Behavior.
func (h *Herbivore) Tick(ctx *Context, dt float64) Intent {
	h.ctx, h.dt = ctx, dt
	start(h.machine, h)

	h.hunger -= dt
	switch h.machine.State() {
	case HerbivoreSeeking:
		h.scan()
	case HerbivoreEating:
		h.refresh()
	}

	h.intent = Intent{Speed: h.cfg.MoveSpeed}
	h.machine.Update(h, dt)
	return h.intent
}

// scan picks the nearest eatable seaweed in detection range.
func (h *Herbivore) scan() {
	self := h.ctx.Self
	cand, ok := h.ctx.Perception.FindNearest(self.Pos, h.cfg.DetectionRange, self.Entity, perception.IsEdibleResource)
	h.hasTarget = ok
	if ok {
		h.target, h.targetPos, h.targetDist = cand.Entity, cand.Pos, cand.Dist
	}
}

// refresh re-reads the resource being eaten.
func (h *Herbivore) refresh() {
	if !h.hasTarget {
		return
	}
	res, pos, ok := h.ctx.Env.Resource(h.target)
	if !ok || !res.Eatable() {
		h.hasTarget = false
		return
	}
	h.targetPos = pos
	h.targetDist = pos.Sub(h.ctx.Self.Pos).Len()
}

func (h *Herbivore) inReach() bool {
	return h.hasTarget && h.targetDist <= h.cfg.EatRange
}

func (h *Herbivore) enterWander() {
	h.roam.pick(h.ctx, h.cfg.WanderRadius, h.cfg.WanderTime)
}

func (h *Herbivore) wander() {
	h.intent = h.roam.step(h.ctx, h.dt, h.cfg.WanderRadius, h.cfg.WanderTime, h.arrive, h.cfg.MoveSpeed)
}

func (h *Herbivore) enterSeeking() {
	h.exhausted = false
	h.scan()
}

func (h *Herbivore) seek() {
	if h.hasTarget {
		h.intent = seek(h.ctx.Self.Pos, h.targetPos, h.cfg.MoveSpeed)
	}
}

// eat takes one bite per tick. A successful bite resets hunger and may
// end the meal.
func (h *Herbivore) eat() {
	h.intent = Intent{Desired: h.targetPos.Sub(h.ctx.Self.Pos), Hold: true}
	if !h.hasTarget {
		return
	}
	if !h.ctx.Env.BiteResource(h.target) {
		h.exhausted = true
		return
	}
	h.hunger = h.cfg.HungerThreshold
	if h.ctx.Rng.Float64() < h.cfg.RestChance {
		h.sated = true
	}
}

func (h *Herbivore) enterResting() {
	h.sated = false
	h.hasTarget = false
}

func (h *Herbivore) rest() {
	h.intent = Intent{Hold: true}
}
