package game

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
	"github.com/pthm-cable/shoal/vizfeed"
)

type listenerLog struct {
	killers []components.Identity
	eaten   []int
	wins    int
	super   []bool
}

func (l *listenerLog) PlayerDied(k components.Identity) { l.killers = append(l.killers, k) }
func (l *listenerLog) FishEaten(n int)                  { l.eaten = append(l.eaten, n) }
func (l *listenerLog) Victory()                         { l.wins++ }
func (l *listenerLog) SuperMode(on bool)                { l.super = append(l.super, on) }

type frameLog struct{ frames []vizfeed.Frame }

func (f *frameLog) Broadcast(fr vizfeed.Frame) { f.frames = append(f.frames, fr) }

type fakeAnchor struct {
	pos     mgl64.Vec3
	orient  mgl64.Quat
	spacing float64
	moves   int
}

func (a *fakeAnchor) HeadTransform() (mgl64.Vec3, mgl64.Quat) { return a.pos, a.orient }
func (a *fakeAnchor) MoveHead(pos mgl64.Vec3, orient mgl64.Quat) {
	a.pos, a.orient = pos, orient
	a.moves++
}
func (a *fakeAnchor) SetSegmentSpacing(s float64) { a.spacing = s }

// emptyConfig has no initial population, resources or autopilot.
func emptyConfig() *config.Config {
	cfg := config.Default()
	cfg.Spawner.Carnivores, cfg.Spawner.Herbivores = 0, 0
	cfg.Spawner.Prey.InitialMin, cfg.Spawner.Prey.InitialMax, cfg.Spawner.Prey.MinAlive = 0, 0, 0
	cfg.Seaweed.Count, cfg.Stars.Count = 0, 0
	cfg.Game.Autopilot = false
	return cfg
}

func newTestWorld(t *testing.T, cfg *config.Config, opts Options) *World {
	t.Helper()
	w, err := NewWorld(cfg, opts)
	if err != nil {
		t.Fatalf("NewWorld() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func (w *World) testSpawn(kind components.Kind, pos mgl64.Vec3, size float64) ecs.Entity {
	var fc config.FishConfig
	switch kind {
	case components.KindCarnivore:
		fc = w.cfg.Carnivore.FishConfig
	case components.KindHerbivore:
		fc = w.cfg.Herbivore.FishConfig
	default:
		fc = w.cfg.Prey.FishConfig
	}
	return w.spawnFish(kind, pos, fishBody(fc, size))
}

func mustParty(t *testing.T, w *World, e ecs.Entity) predation.Party {
	t.Helper()
	p, ok := w.env.Party(e)
	if !ok {
		t.Fatalf("Party(%v) not found", e)
	}
	return p
}

func TestNewWorldRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Steering.SmoothTime = 0
	if _, err := NewWorld(cfg, Options{}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("NewWorld() error = %v, want ErrInvalid", err)
	}
}

func TestTickDelta(t *testing.T) {
	w := newTestWorld(t, emptyConfig(), Options{})

	if err := w.Tick(-0.1); !errors.Is(err, ErrNegativeDelta) {
		t.Errorf("Tick(-0.1) error = %v, want ErrNegativeDelta", err)
	}
	if err := w.Tick(0); err != nil {
		t.Errorf("Tick(0) error = %v", err)
	}
	if w.TickCount() != 0 || w.Time() != 0 {
		t.Errorf("after Tick(0): tick=%d time=%v, want 0, 0", w.TickCount(), w.Time())
	}
	if err := w.Tick(0.02); err != nil {
		t.Fatalf("Tick(0.02) error = %v", err)
	}
	if w.TickCount() != 1 {
		t.Errorf("TickCount() = %d, want 1", w.TickCount())
	}
}

func TestSizeAndBoundsHoldEveryTick(t *testing.T) {
	w := newTestWorld(t, config.Default(), Options{Seed: 3})
	cfg := w.Config()
	lo, hi := geom.Vec(cfg.World.Min), geom.Vec(cfg.World.Max)
	top := cfg.World.SurfaceY + cfg.Player.JumpHeight

	for i := 0; i < 900; i++ {
		if err := w.Tick(cfg.World.DT); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		w.Registry().ForEachFish(func(a registry.Agent) {
			b := a.Body
			if b.Size < b.MinSize || b.Size > b.MaxSize {
				t.Fatalf("tick %d: %s size = %v, want within [%v, %v]", i, a.Identity.Name, b.Size, b.MinSize, b.MaxSize)
			}
			if !geom.Finite(a.Pos) {
				t.Fatalf("tick %d: %s has non-finite position %v", i, a.Identity.Name, a.Pos)
			}
			for k := 0; k < 3; k++ {
				upper := hi[k]
				if k == 1 {
					upper = top
				}
				if a.Pos[k] < lo[k] || a.Pos[k] > upper {
					t.Fatalf("tick %d: %s left the volume at %v", i, a.Identity.Name, a.Pos)
				}
			}
		})
	}
}

func TestPreyAlarmSpreadsThroughWorld(t *testing.T) {
	w := newTestWorld(t, emptyConfig(), Options{NoPlayer: true})

	shark := w.testSpawn(components.KindCarnivore, mgl64.Vec3{0, -1, 0}, 1.5)
	victim := w.testSpawn(components.KindPrey, mgl64.Vec3{0.5, -1, 0}, 0.4)
	near := w.testSpawn(components.KindPrey, mgl64.Vec3{3, -1, 0}, 0.4)
	far := w.testSpawn(components.KindPrey, mgl64.Vec3{20, -1, 20}, 0.4)

	out := w.ctx.Predation.TryEat(mustParty(t, w, shark), mustParty(t, w, victim))
	if !out.Eaten {
		t.Fatalf("TryEat() = %+v, want eaten", out)
	}

	if _, ok := w.Registry().View(victim); ok {
		t.Error("victim still visible after being eaten")
	}
	if c, ok := w.ctx.Perception.FindNearest(mgl64.Vec3{0.5, -1, 0}, 0.5, shark, perception.IsKind(components.KindPrey)); ok {
		t.Errorf("perception found %v at the victim's spot", c.Entity)
	}
	if _, ok := w.Behavior(victim); ok {
		t.Error("victim behavior kept after removal")
	}

	nb, _ := w.Behavior(near)
	if p := nb.(*behavior.Prey); !p.Alarmed() || p.StateID() != behavior.PreyFleeing {
		t.Errorf("near prey alarmed=%v state=%q, want alarmed and fleeing", p.Alarmed(), p.State())
	}
	fb, _ := w.Behavior(far)
	if p := fb.(*behavior.Prey); p.Alarmed() {
		t.Error("prey outside the alarm radius was alarmed")
	}

	// The alarm holds the fish in Fleeing through its next tick.
	if err := w.Tick(w.cfg.World.DT); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if p := nb.(*behavior.Prey); p.StateID() != behavior.PreyFleeing {
		t.Errorf("near prey state after tick = %q, want fleeing", p.State())
	}
}

func TestPlayerVictoryFiresOnce(t *testing.T) {
	cfg := emptyConfig()
	cfg.Game.TotalFishCount = 2
	log := &listenerLog{}
	w := newTestWorld(t, cfg, Options{Listener: log})

	player, ok := w.Player()
	if !ok {
		t.Fatal("Player() not alive")
	}
	for i := 0; i < 2; i++ {
		prey := w.testSpawn(components.KindPrey, mgl64.Vec3{1, -1, -15}, 0.3)
		if out := w.ctx.Predation.TryEat(mustParty(t, w, player), mustParty(t, w, prey)); !out.Eaten {
			t.Fatalf("player TryEat() = %+v, want eaten", out)
		}
	}
	for i := 0; i < 3; i++ {
		if err := w.Tick(cfg.World.DT); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	if w.Eaten() != 2 {
		t.Errorf("Eaten() = %d, want 2", w.Eaten())
	}
	if len(log.eaten) != 2 || log.eaten[1] != 2 {
		t.Errorf("FishEaten calls = %v, want [1 2]", log.eaten)
	}
	if log.wins != 1 || !w.Victory() {
		t.Errorf("Victory calls = %d (Victory() = %v), want exactly 1", log.wins, w.Victory())
	}
}

func TestPlayerDeathReportedOnce(t *testing.T) {
	log := &listenerLog{}
	w := newTestWorld(t, emptyConfig(), Options{Listener: log})

	player, _ := w.Player()
	shark := w.testSpawn(components.KindCarnivore, mgl64.Vec3{0, -0.5, -14}, 2)
	sharkID, _ := w.Registry().Identity(shark)

	out := w.ctx.Predation.TryEat(mustParty(t, w, shark), mustParty(t, w, player))
	if !out.PlayerKilled {
		t.Fatalf("TryEat() = %+v, want player killed", out)
	}
	for i := 0; i < 3; i++ {
		if err := w.Tick(w.cfg.World.DT); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	if len(log.killers) != 1 || log.killers[0].ID != sharkID.ID {
		t.Errorf("PlayerDied calls = %v, want one with %s", log.killers, sharkID.Name)
	}
	if _, ok := w.Player(); ok {
		t.Error("Player() still alive after being eaten")
	}
	if dead, killer := w.PlayerBehavior().Dead(); !dead || killer != sharkID.Name {
		t.Errorf("Dead() = %v, %q, want true, %q", dead, killer, sharkID.Name)
	}
	if !w.Registry().Alive(shark) {
		t.Error("NPCs stopped after the player died")
	}
}

func TestInvulnerablePlayerCannotBeEaten(t *testing.T) {
	log := &listenerLog{}
	w := newTestWorld(t, emptyConfig(), Options{Listener: log})
	player, _ := w.Player()

	w.Registry().SpawnPickup(geom.Vec(w.cfg.Player.Spawn), w.cfg.Player.SuperScore)
	if err := w.Tick(w.cfg.World.DT); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(log.super) != 1 || !log.super[0] {
		t.Fatalf("SuperMode calls = %v, want [true]", log.super)
	}
	if w.Registry().Count(components.KindStar) != 0 {
		t.Error("star not despawned after pickup")
	}

	shark := w.testSpawn(components.KindCarnivore, mgl64.Vec3{0, -0.5, -14}, 4)
	out := w.ctx.Predation.TryEat(mustParty(t, w, shark), mustParty(t, w, player))
	if out.Eaten || !out.Blocked {
		t.Errorf("TryEat() on super player = %+v, want blocked", out)
	}
}

func TestPreyTopUp(t *testing.T) {
	cfg := emptyConfig()
	cfg.Spawner.Prey.MinAlive = 3
	cfg.Spawner.Prey.CheckInterval = 0.01
	w := newTestWorld(t, cfg, Options{NoPlayer: true})

	if err := w.Tick(cfg.World.DT); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if n := w.Registry().Count(components.KindPrey); n != 3 {
		t.Errorf("prey after top-up = %d, want 3", n)
	}
}

func TestPollutionShrinksPlayer(t *testing.T) {
	cfg := emptyConfig()
	cfg.Player.Spawn = [3]float64{15, 0, 15}
	cfg.Pollution = []config.SphereConfig{{Center: [3]float64{15, 0, 15}, Radius: 3}}
	cfg.Player.ShrinkRate = 0.3
	w := newTestWorld(t, cfg, Options{})

	for i := 0; i < 60; i++ {
		if err := w.Tick(cfg.World.DT); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}
	player, _ := w.Player()
	a, _ := w.Registry().View(player)
	if want := cfg.Player.Size - 0.3; math.Abs(a.Body.Size-want) > 1e-6 {
		t.Errorf("player size = %v, want %v", a.Body.Size, want)
	}
}

func TestAnchorFollowsPlayer(t *testing.T) {
	cfg := emptyConfig()
	anchor := &fakeAnchor{pos: geom.Vec(cfg.Player.Spawn), orient: mgl64.QuatIdent()}
	w := newTestWorld(t, cfg, Options{Anchor: anchor})

	if want := cfg.Player.SegmentSpacing * cfg.Player.Size; anchor.spacing != want {
		t.Errorf("segment spacing = %v, want %v", anchor.spacing, want)
	}
	if err := w.Tick(cfg.World.DT); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if anchor.moves != 1 {
		t.Errorf("MoveHead calls = %d, want 1", anchor.moves)
	}
}

func TestFrameAndJournal(t *testing.T) {
	j, err := telemetry.OpenJournal(":memory:")
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })

	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 0.1
	feed := &frameLog{}
	var windows []telemetry.WindowStats
	w := newTestWorld(t, cfg, Options{
		Seed:          9,
		Journal:       j,
		Feed:          feed,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	fish := 0
	for _, k := range components.FishKinds {
		fish += w.Registry().Count(k)
	}
	for i := 0; i < 12; i++ {
		if err := w.Tick(cfg.World.DT); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}

	if len(feed.frames) != 12 {
		t.Fatalf("frames = %d, want 12", len(feed.frames))
	}
	last := feed.frames[len(feed.frames)-1]
	if last.Tick != 12 || len(last.Agents) != w.Registry().Total() {
		t.Errorf("last frame tick=%d agents=%d, want 12 and %d", last.Tick, len(last.Agents), w.Registry().Total())
	}
	if len(windows) != 2 {
		t.Errorf("windows flushed = %d, want 2", len(windows))
	}

	rows, err := j.Events(telemetry.EventSpawn)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(rows) != fish {
		t.Errorf("spawn events = %d, want %d", len(rows), fish)
	}
}
