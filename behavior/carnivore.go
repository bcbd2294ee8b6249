package behavior

import (
	"math"
	"sync"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/fsm"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
)

// Carnivore states.
const (
	CarnivoreWandering fsm.StateID = iota + 1
	CarnivoreChasing
	CarnivoreAttacking
	CarnivoreFleeing
)

// attackLeash is the multiple of eat range at which an attack turns back
// into a chase.
const attackLeash = 1.5

var carnivoreTable = sync.OnceValue(func() *fsm.Table[*Carnivore] {
	t := fsm.NewTable[*Carnivore](CarnivoreWandering)

	wander := t.AddState(CarnivoreWandering, "wandering")
	wander.OnEnter = (*Carnivore).enterWander
	wander.OnUpdate = (*Carnivore).wander

	t.AddState(CarnivoreChasing, "chasing").OnUpdate = (*Carnivore).chase
	t.AddState(CarnivoreAttacking, "attacking").OnUpdate = (*Carnivore).attack
	t.AddState(CarnivoreFleeing, "fleeing").OnUpdate = (*Carnivore).flee

	t.AddTransition(CarnivoreWandering, fsm.Transition[*Carnivore]{
		TargetID: CarnivoreChasing,
		Guard:    func(c *Carnivore) bool { return c.inAggro() && c.shouldChase() },
	})
	t.AddTransition(CarnivoreWandering, fsm.Transition[*Carnivore]{
		TargetID: CarnivoreFleeing,
		Guard:    func(c *Carnivore) bool { return c.inAggro() && c.shouldFlee() },
	})

	t.AddTransition(CarnivoreChasing, fsm.Transition[*Carnivore]{TargetID: CarnivoreFleeing, Guard: (*Carnivore).shouldFlee})
	t.AddTransition(CarnivoreChasing, fsm.Transition[*Carnivore]{TargetID: CarnivoreWandering, Guard: (*Carnivore).lost})
	t.AddTransition(CarnivoreChasing, fsm.Transition[*Carnivore]{
		TargetID: CarnivoreAttacking,
		Guard:    func(c *Carnivore) bool { return c.targetDist <= c.cfg.EatRange },
	})

	t.AddTransition(CarnivoreAttacking, fsm.Transition[*Carnivore]{TargetID: CarnivoreFleeing, Guard: (*Carnivore).shouldFlee})
	t.AddTransition(CarnivoreAttacking, fsm.Transition[*Carnivore]{
		TargetID: CarnivoreWandering,
		Guard:    func(c *Carnivore) bool { return c.killed || c.lost() },
	})
	t.AddTransition(CarnivoreAttacking, fsm.Transition[*Carnivore]{
		TargetID: CarnivoreChasing,
		Guard:    func(c *Carnivore) bool { return c.targetDist > c.cfg.EatRange*attackLeash },
	})

	t.AddTransition(CarnivoreFleeing, fsm.Transition[*Carnivore]{TargetID: CarnivoreWandering, Guard: (*Carnivore).lost})
	t.AddTransition(CarnivoreFleeing, fsm.Transition[*Carnivore]{TargetID: CarnivoreChasing, Guard: (*Carnivore).shouldChase})

	return mustValidate(t)
})

// Carnivore hunts the player and, optionally, smaller fish. Chase and flee
// decisions share a size margin so that near-equal sizes produce neither.
type Carnivore struct {
	cfg    config.CarnivoreConfig
	arrive float64

	machine *fsm.Machine[*Carnivore]
	ctx     *Context
	dt      float64
	intent  Intent

	target     predation.Party
	targetDist float64
	hasTarget  bool

	roam       wanderer
	clock      float64
	lastAttack float64
	killed     bool
}

// NewCarnivore creates a carnivore behavior.
func NewCarnivore(cfg *config.Config) *Carnivore {
	table := carnivoreTable()
	c := &Carnivore{
		cfg:        cfg.Carnivore,
		arrive:     cfg.Steering.ArriveDistance,
		machine:    fsm.NewMachine(table),
		lastAttack: math.Inf(-1),
	}
	observe(c.machine, table, components.KindCarnivore, func() *Context { return c.ctx })
	return c
}

// Kind implements Behavior.
func (c *Carnivore) Kind() components.Kind { return components.KindCarnivore }

// State implements Behavior.
func (c *Carnivore) State() string { return c.machine.StateName() }

// StateID returns the active state.
func (c *Carnivore) StateID() fsm.StateID { return c.machine.State() }

// Tick implements Behavior.
func (c *Carnivore) Tick(ctx *Context, dt float64) Intent {
	c.ctx, c.dt = ctx, dt
	c.clock += dt
	start(c.machine, c)

	c.scan()
	c.intent = Intent{Speed: c.cfg.MoveSpeed}
	c.machine.Update(c, dt)
	return c.intent
}

// scan re-acquires the nearest target inside detection range.
func (c *Carnivore) scan() {
	self := c.ctx.Self
	pred := perception.IsPlayer
	if c.cfg.HuntNPC {
		pred = perception.Either(perception.IsPlayer, perception.IsSmallerFish(self.Body.Size))
	}

	c.hasTarget = false
	cand, ok := c.ctx.Perception.FindNearest(self.Pos, c.cfg.DetectionRange, self.Entity, pred)
	if !ok {
		return
	}
	party, ok := c.ctx.Env.Party(cand.Entity)
	if !ok {
		return
	}
	c.target, c.targetDist, c.hasTarget = party, cand.Dist, true
}

func (c *Carnivore) lost() bool {
	return !c.hasTarget
}

func (c *Carnivore) inAggro() bool {
	return c.hasTarget && c.targetDist <= c.cfg.AggroRange
}

// shouldChase requires a clear size advantage over a vulnerable target.
func (c *Carnivore) shouldChase() bool {
	if !c.hasTarget || c.target.Invulnerable {
		return false
	}
	return c.ctx.Self.Body.Size > c.target.Size+c.cfg.SizeAdvantage
}

// shouldFlee is true for invulnerable targets and for clearly larger ones.
func (c *Carnivore) shouldFlee() bool {
	if !c.hasTarget {
		return false
	}
	if c.target.Invulnerable {
		return true
	}
	return c.target.Size > c.ctx.Self.Body.Size+c.cfg.SizeAdvantage
}

func (c *Carnivore) enterWander() {
	c.killed = false
	c.roam.pick(c.ctx, c.cfg.WanderRadius, c.cfg.WanderTime)
}

func (c *Carnivore) wander() {
	c.intent = c.roam.step(c.ctx, c.dt, c.cfg.WanderRadius, c.cfg.WanderTime, c.arrive, c.cfg.MoveSpeed)
}

func (c *Carnivore) chase() {
	if c.hasTarget {
		c.intent = seek(c.ctx.Self.Pos, c.target.Pos, c.cfg.ChaseSpeed)
	}
}

func (c *Carnivore) flee() {
	if c.hasTarget {
		c.intent = away(c.ctx.Self.Pos, c.target.Pos, c.cfg.FleeSpeed)
	}
}

// attack bites once per cooldown while closing in.
func (c *Carnivore) attack() {
	if !c.hasTarget {
		return
	}
	c.intent = seek(c.ctx.Self.Pos, c.target.Pos, c.cfg.ChaseSpeed)
	if c.clock-c.lastAttack < c.cfg.AttackCooldown {
		return
	}
	c.lastAttack = c.clock

	self := c.ctx.Self
	eater, ok := c.ctx.Env.Party(self.Entity)
	if !ok {
		return
	}
	out := c.ctx.Predation.TryEat(eater, c.target)
	if !out.Eaten {
		return
	}
	c.killed = true
	if !out.PlayerKilled && out.Nutrition > 0 {
		size := predation.Grow(self.Body.Size, out.Nutrition*c.cfg.GrowthScale, self.Body.MinSize, self.Body.MaxSize)
		_, _ = c.ctx.Env.SetSize(self.Entity, size)
	}
}
