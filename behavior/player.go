package behavior

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/fsm"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
)

// Player vertical states.
const (
	PlayerSwimming fsm.StateID = iota + 1
	PlayerDiving
	PlayerJumping
	PlayerSurfacing
)

// PlayerCommand is one tick of player control.
type PlayerCommand struct {
	Turn     float64 // -1..1, positive turns right
	Throttle float64 // -1..1
	Sprint   bool
	Dive     bool // held
	Eat      bool
}

// PlayerInput produces commands. Implementations may read the context to
// drive the player without a human.
type PlayerInput interface {
	Command(ctx *Context, dt float64) PlayerCommand
}

var playerTable = sync.OnceValue(func() *fsm.Table[*Player] {
	t := fsm.NewTable[*Player](PlayerSwimming)

	t.AddState(PlayerSwimming, "swimming").OnUpdate = (*Player).swim
	t.AddState(PlayerDiving, "diving").OnUpdate = (*Player).dive

	jump := t.AddState(PlayerJumping, "jumping")
	jump.OnEnter = func(p *Player) { p.vertVel = p.cfg.JumpSpeed }
	jump.OnUpdate = (*Player).jump

	t.AddState(PlayerSurfacing, "surfacing").OnUpdate = (*Player).surface

	diving := func(p *Player) bool { return p.cmd.Dive }
	t.AddTransition(PlayerSwimming, fsm.Transition[*Player]{TargetID: PlayerDiving, Guard: diving})
	t.AddTransition(PlayerDiving, fsm.Transition[*Player]{
		TargetID: PlayerJumping,
		Guard:    func(p *Player) bool { return !p.cmd.Dive },
	})
	t.AddTransition(PlayerJumping, fsm.Transition[*Player]{TargetID: PlayerDiving, Guard: diving})
	t.AddTransition(PlayerJumping, fsm.Transition[*Player]{
		TargetID: PlayerSurfacing,
		Guard:    func(p *Player) bool { return p.vertVel <= 0 },
	})
	t.AddTransition(PlayerSurfacing, fsm.Transition[*Player]{TargetID: PlayerDiving, Guard: diving})
	t.AddTransition(PlayerSurfacing, fsm.Transition[*Player]{
		TargetID: PlayerSwimming,
		Guard:    func(p *Player) bool { return p.pos[1] == p.surfaceY },
	})

	return mustValidate(t)
})

// Player is the controllable fish. It moves directly from its commands
// rather than through the steering controller, and its vertical motion
// (dive, jump, return to the surface) is a small state machine.
type Player struct {
	cfg      config.PlayerConfig
	surfaceY float64
	input    PlayerInput

	machine *fsm.Machine[*Player]
	ctx     *Context
	dt      float64
	cmd     PlayerCommand

	pos     mgl64.Vec3
	orient  mgl64.Quat
	vertVel float64

	super  predation.Super
	score  int
	size   float64
	dead   bool
	killer string

	reach []perception.Candidate
}

// NewPlayer creates the player behavior. A nil input leaves the player idle.
func NewPlayer(cfg *config.Config, input PlayerInput) *Player {
	table := playerTable()
	p := &Player{
		cfg:      cfg.Player,
		surfaceY: cfg.World.SurfaceY,
		input:    input,
		machine:  fsm.NewMachine(table),
		super:    predation.NewSuper(cfg.Player),
		size:     cfg.Player.Size,
	}
	observe(p.machine, table, components.KindPlayer, func() *Context { return p.ctx })
	return p
}

// Kind implements Behavior.
func (p *Player) Kind() components.Kind { return components.KindPlayer }

// State implements Behavior.
func (p *Player) State() string { return p.machine.StateName() }

// StateID returns the active vertical state.
func (p *Player) StateID() fsm.StateID { return p.machine.State() }

// PlayerAgent is what predators and the game see of the player.
type PlayerAgent interface {
	IsInvulnerable() bool
	Size() float64
	NotifyEaten(killer string)
}

// IsInvulnerable implements PlayerAgent.
func (p *Player) IsInvulnerable() bool { return p.super.Active() }

// Size implements PlayerAgent. It is the size as of the last tick.
func (p *Player) Size() float64 { return p.size }

// NotifyEaten implements PlayerAgent and marks the player dead.
func (p *Player) NotifyEaten(killer string) {
	p.dead = true
	p.killer = killer
}

// Dead reports whether the player was eaten, and by whom.
func (p *Player) Dead() (bool, string) { return p.dead, p.killer }

// Super exposes the invulnerability timer.
func (p *Player) Super() *predation.Super { return &p.super }

// Score returns the collected star points.
func (p *Player) Score() int { return p.score }

// Collect adds star points and reports whether super mode just started.
func (p *Player) Collect(points int) bool {
	p.score += points
	if p.score >= p.cfg.SuperScore && !p.super.Active() {
		return p.super.Activate()
	}
	return false
}

// UpdateSuper advances the super timer and reports expiry.
func (p *Player) UpdateSuper(dt float64) bool {
	return p.super.Update(dt)
}

// Party builds the player's predation view from a raw agent copy.
func (p *Player) Party(a predation.Party) predation.Party {
	a.Size = p.super.EffectiveSize(a.Size)
	a.Invulnerable = p.super.Active()
	a.Super = p.super.Active()
	return a
}

// Tick implements Behavior.
func (p *Player) Tick(ctx *Context, dt float64) Intent {
	p.ctx, p.dt = ctx, dt
	self := ctx.Self
	p.size = self.Body.Size
	if p.dead {
		return Intent{Hold: true}
	}
	start(p.machine, p)

	p.cmd = PlayerCommand{}
	if p.input != nil {
		p.cmd = p.input.Command(ctx, dt)
	}

	speed := p.cfg.MoveSpeed
	if p.cmd.Sprint {
		speed = p.cfg.SprintSpeed
	}
	turn := geom.Clamp(p.cmd.Turn, -1, 1) * mgl64.DegToRad(p.cfg.TurnRate) * dt
	p.orient = geom.YawQuat(geom.Yaw(geom.HeadingOf(self.Orient)) + turn)
	throttle := geom.Clamp(p.cmd.Throttle, -1, 1)
	p.pos = self.Pos.Add(geom.HeadingOf(p.orient).Mul(throttle * speed * dt))

	p.machine.Update(p, dt)

	if p.cmd.Eat {
		p.eat()
	}
	return Intent{Direct: true, Pos: p.pos, Orient: p.orient, Speed: math.Abs(throttle) * speed}
}

func (p *Player) swim() {
	p.pos[1] = p.surfaceY
}

func (p *Player) dive() {
	p.vertVel = 0
	p.pos[1] = math.Max(p.pos[1]-p.cfg.DiveSpeed*p.dt, p.cfg.MaxDiveDepth)
}

// jump rises until velocity runs out or the apex is reached.
func (p *Player) jump() {
	top := p.surfaceY + p.cfg.JumpHeight
	p.pos[1] += p.vertVel * p.dt
	p.vertVel -= p.cfg.Gravity * p.dt
	if p.pos[1] >= top {
		p.pos[1] = top
		p.vertVel = 0
	}
}

// surface moves back to the surface at gravity speed from either side.
func (p *Player) surface() {
	step := p.cfg.Gravity * p.dt
	if p.pos[1] > p.surfaceY {
		p.pos[1] = math.Max(p.pos[1]-step, p.surfaceY)
	} else {
		p.pos[1] = math.Min(p.pos[1]+step, p.surfaceY)
	}
}

// eat bites the nearest seaweed in reach, or failing that eats the
// nearest fish in reach that is edible.
func (p *Player) eat() {
	ctx, self := p.ctx, p.ctx.Self
	reach := p.super.EatRange(p.cfg.EatRange)

	if c, ok := ctx.Perception.FindNearest(p.pos, reach, self.Entity, perception.IsEdibleResource); ok {
		if ctx.Env.BiteResource(c.Entity) {
			p.grow(p.cfg.GrowthPerBite)
			return
		}
	}

	eater, ok := ctx.Env.Party(self.Entity)
	if !ok {
		return
	}
	fish := func(c perception.Candidate) bool {
		return c.Kind.IsFish() && c.Kind != components.KindPlayer
	}
	p.reach = ctx.Perception.Within(p.reach[:0], p.pos, reach, self.Entity, fish)
	for _, c := range p.reach {
		victim, ok := ctx.Env.Party(c.Entity)
		if !ok || !predation.CanEat(eater, victim) {
			continue
		}
		if out := ctx.Predation.TryEat(eater, victim); out.Eaten {
			p.grow(out.Nutrition)
			return
		}
	}
}

func (p *Player) grow(delta float64) {
	body := p.ctx.Self.Body
	size := predation.Grow(p.size, delta, body.MinSize, body.MaxSize)
	if got, err := p.ctx.Env.SetSize(p.ctx.Self.Entity, size); err == nil {
		p.size = got
	}
}
