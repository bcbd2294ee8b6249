package behavior

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/flocking"
	"github.com/pthm-cable/shoal/fsm"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
)

// Prey states.
const (
	PreySchooling fsm.StateID = iota + 1
	PreyFleeing
)

// minCruise is the speed below which a schooling fish is nudged forward.
const minCruise = 0.1

var preyTable = sync.OnceValue(func() *fsm.Table[*Prey] {
	t := fsm.NewTable[*Prey](PreySchooling)

	t.AddState(PreySchooling, "schooling").OnUpdate = (*Prey).school
	t.AddState(PreyFleeing, "fleeing").OnUpdate = (*Prey).flee

	t.AddTransition(PreySchooling, fsm.Transition[*Prey]{
		TargetID: PreyFleeing,
		Guard:    func(p *Prey) bool { return p.hasThreat && p.threatDist <= p.cfg.FleeDistance },
	})
	t.AddTransition(PreyFleeing, fsm.Transition[*Prey]{TargetID: PreySchooling, Guard: (*Prey).calm})

	return mustValidate(t)
})

// Prey schools with its own species and flees from the player and from
// carnivores at least its size. An alarm from a nearby kill forces it to
// flee even when it cannot see the threat.
type Prey struct {
	cfg config.PreyConfig

	machine *fsm.Machine[*Prey]
	ctx     *Context
	dt      float64
	intent  Intent

	threat     ecs.Entity
	threatPos  mgl64.Vec3
	threatDist float64
	hasThreat  bool

	alarmThreat  ecs.Entity
	alarmPos     mgl64.Vec3
	alarmFresh   bool // set by Alarm, consumed by the next Tick
	alarmLatched bool // true for the whole tick after an alarm
	alarmLeft    float64

	bias      mgl64.Vec3
	biasLeft  float64
	neighbors []flocking.Sample
}

// NewPrey creates a prey behavior.
func NewPrey(cfg *config.Config) *Prey {
	table := preyTable()
	p := &Prey{
		cfg:       cfg.Prey,
		machine:   fsm.NewMachine(table),
		neighbors: make([]flocking.Sample, 0, 32),
	}
	observe(p.machine, table, components.KindPrey, func() *Context { return p.ctx })
	return p
}

// Kind implements Behavior.
func (p *Prey) Kind() components.Kind { return components.KindPrey }

// State implements Behavior.
func (p *Prey) State() string { return p.machine.StateName() }

// StateID returns the active state.
func (p *Prey) StateID() fsm.StateID { return p.machine.State() }

// Alarmed reports whether an alarm is still holding the fish in Fleeing.
func (p *Prey) Alarmed() bool {
	return p.alarmFresh || p.alarmLatched || p.alarmLeft > 0
}

// Alarm forces the fish into Fleeing from threat. It stays there through
// its next tick and for the configured hold, whatever it perceives.
func (p *Prey) Alarm(ctx *Context, threat ecs.Entity, threatPos mgl64.Vec3) {
	p.ctx = ctx
	start(p.machine, p)
	p.alarmThreat, p.alarmPos = threat, threatPos
	p.alarmFresh = true
	p.alarmLeft = p.cfg.AlarmHold
	p.machine.Force(p, PreyFleeing)
}

// Tick implements Behavior.
func (p *Prey) Tick(ctx *Context, dt float64) Intent {
	p.ctx, p.dt = ctx, dt
	start(p.machine, p)

	p.alarmLatched = p.alarmFresh
	p.alarmFresh = false
	if !p.alarmLatched {
		p.alarmLeft = max(0, p.alarmLeft-dt)
	}

	p.scan()
	p.intent = Intent{Speed: p.cfg.NormalSpeed}
	p.machine.Update(p, dt)
	return p.intent
}

// scan finds the nearest threat in detection range.
func (p *Prey) scan() {
	self := p.ctx.Self
	pred := perception.Either(perception.IsPlayer, perception.IsCarnivoreAtLeast(self.Body.Size))
	cand, ok := p.ctx.Perception.FindNearest(self.Pos, p.cfg.DetectionRange, self.Entity, pred)
	p.hasThreat = ok
	if ok {
		p.threat, p.threatPos, p.threatDist = cand.Entity, cand.Pos, cand.Dist
	}
}

func (p *Prey) calm() bool {
	if p.alarmLatched || p.alarmLeft > 0 {
		return false
	}
	return !p.hasThreat || p.threatDist > p.cfg.SafeDistance
}

// school integrates flocking and wander bias into the last velocity.
func (p *Prey) school() {
	ctx, self := p.ctx, p.ctx.Self
	heading := geom.HeadingOf(self.Orient)

	accel := heading.Mul(p.cfg.NormalSpeed)
	if ctx.Flock != nil && ctx.Flocking != nil {
		p.neighbors = ctx.Flock.Neighbors(p.neighbors[:0], self.Entity, self.Pos, p.cfg.NeighborRadius, ctx.Env.Alive)
		accel = ctx.Flocking.Combine(ctx.Flocking.Compute(self.Pos, p.neighbors), heading, p.cfg.NormalSpeed)
	}

	p.biasLeft -= p.dt
	if p.biasLeft <= 0 && ctx.Wander != nil {
		p.bias = ctx.Wander.Direction(self.Pos, ctx.Time)
		p.biasLeft = p.cfg.WanderInterval
	}
	accel = accel.Add(p.bias.Mul(p.cfg.WanderStrength * p.cfg.NormalSpeed))

	vel := geom.Horizontal(self.Motion.Velocity.Add(accel.Mul(p.dt)))
	vel = geom.ClampLen(vel, p.cfg.NormalSpeed)
	if vel.Len() < minCruise {
		vel = heading.Mul(p.cfg.NormalSpeed * 0.5)
	}
	p.intent = Intent{Desired: vel, Speed: vel.Len()}
}

// flee runs from the visible threat, or from the alarm source when
// nothing is visible. The direction is jittered on the horizontal axes.
func (p *Prey) flee() {
	self := p.ctx.Self
	from := p.threatPos
	if !p.hasThreat {
		if a, ok := p.ctx.Env.View(p.alarmThreat); ok {
			p.alarmPos = a.Pos
		}
		from = p.alarmPos
	}

	dir := geom.Horizontal(self.Pos.Sub(from))
	dir = geom.NormalizeOr(dir, geom.HeadingOf(self.Orient))
	j := p.cfg.FleeJitter
	dir[0] += (p.ctx.Rng.Float64()*2 - 1) * j
	dir[2] += (p.ctx.Rng.Float64()*2 - 1) * j
	dir = geom.NormalizeOr(dir, geom.HeadingOf(self.Orient))

	p.intent = Intent{Desired: dir, Speed: p.cfg.FleeSpeed}
}
