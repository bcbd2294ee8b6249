// Package game owns the simulated volume: it spawns agents, runs their
// behaviors through steering each tick, and reports what happened.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/flocking"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/spatial"
	"github.com/pthm-cable/shoal/steering"
	"github.com/pthm-cable/shoal/telemetry"
)

// ErrNegativeDelta is returned by Tick for a negative time step.
var ErrNegativeDelta = errors.New("negative time step")

// World holds the complete simulation state.
type World struct {
	cfg *config.Config
	rng *rand.Rand

	reg       *registry.Registry
	obstacles *spatial.Obstacles
	steer     *steering.Controller
	env       *worldEnv

	// ctx is shared by every agent; Self is rebuilt per agent.
	ctx      behavior.Context
	alarmCtx behavior.Context

	behaviors map[ecs.Entity]behavior.Behavior
	order     []ecs.Entity
	nearby    []perception.Candidate

	player         ecs.Entity
	playerBehavior *behavior.Player
	playerAgent    behavior.PlayerAgent
	playerID       components.Identity
	playerDead     bool
	killer         components.Identity
	deathReported  bool
	listener       Listener

	// State
	tick       int32
	time       float64
	spawnTimer float64
	eaten      int
	victory    bool

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	lifetimes     *telemetry.LifetimeTracker
	output        *telemetry.OutputManager
	journal       *telemetry.Journal
	feed          FrameSink
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	events        []telemetry.Event
	finished      []*telemetry.LifetimeStats
}

// NewWorld validates cfg and builds a populated world. cfg is copied; nil
// means the embedded defaults.
func NewWorld(cfg *config.Config, opts Options) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	cfg.Recompute()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	volMin, volMax := geom.Vec(cfg.World.Min), geom.Vec(cfg.World.Max)
	boxes := make([]spatial.Box, len(cfg.Obstacles))
	for i, b := range cfg.Obstacles {
		boxes[i] = spatial.Box{Name: fmt.Sprintf("obstacle-%d", i), Min: geom.Vec(b.Min), Max: geom.Vec(b.Max)}
	}
	obstacles, err := spatial.NewObstacles(volMin, volMax, boxes)
	if err != nil {
		return nil, fmt.Errorf("building obstacles: %w", err)
	}
	steer, err := steering.NewController(steering.ParamsFromConfig(cfg.Steering), obstacles)
	if err != nil {
		return nil, fmt.Errorf("building steering: %w", err)
	}
	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	listener := opts.Listener
	if listener == nil {
		listener = nopListener{}
	}

	w := &World{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		reg:           registry.New(registry.Config{Min: volMin, Max: volMax, CellSize: cfg.World.GridCellSize}),
		obstacles:     obstacles,
		steer:         steer,
		behaviors:     make(map[ecs.Entity]behavior.Behavior),
		listener:      listener,
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.World.DT),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks:     telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		lifetimes:     telemetry.NewLifetimeTracker(),
		output:        output,
		journal:       opts.Journal,
		feed:          opts.Feed,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	w.env = &worldEnv{Registry: w.reg, w: w}
	w.reg.OnRemove = w.onRemove

	w.ctx = behavior.Context{
		Env:          w.env,
		Perception:   perception.NewResolver(w.reg),
		Flock:        &flocking.Snapshot{},
		Flocking:     flocking.NewEngine(flocking.ParamsFromConfig(cfg.Prey)),
		Predation:    predation.NewResolver(w.reg, w.env, cfg.Derived.AlarmRadius),
		Rng:          w.rng,
		Wander:       behavior.NewWanderField(opts.Seed, cfg.Prey.WanderScale),
		Cfg:          cfg,
		OnTransition: w.onTransition,
	}

	w.spawnInitialPopulation(opts)
	return w, nil
}

// Tick advances the simulation by dt seconds.
func (w *World) Tick(dt float64) error {
	if dt < 0 || math.IsNaN(dt) {
		return fmt.Errorf("%w: %v", ErrNegativeDelta, dt)
	}
	if dt == 0 {
		return nil
	}

	mark := w.perf.StartTick()
	w.captureFlock()
	mark = w.perf.Lap(telemetry.PhaseFlock, mark)

	w.updateEnvironment(dt)
	mark = w.perf.Lap(telemetry.PhaseEnvironment, mark)

	mark = w.updateAgents(dt, mark)
	w.tick++
	w.time += dt

	w.updateLifecycle(dt)
	mark = w.perf.Lap(telemetry.PhaseLifecycle, mark)

	w.flushTelemetry()
	w.publishFrame()
	w.perf.Lap(telemetry.PhaseTelemetry, mark)
	w.perf.EndTick()
	return nil
}

// Registry exposes the agent registry for read access.
func (w *World) Registry() *registry.Registry { return w.reg }

// Config returns the world's own copy of the configuration.
func (w *World) Config() *config.Config { return w.cfg }

// Player returns the player entity. ok is false once it has been eaten or
// when the world runs without a player.
func (w *World) Player() (ecs.Entity, bool) {
	return w.player, w.reg.Alive(w.player)
}

// PlayerBehavior returns the player controller, or nil without a player.
func (w *World) PlayerBehavior() *behavior.Player { return w.playerBehavior }

// Behavior returns the behavior driving e.
func (w *World) Behavior(e ecs.Entity) (behavior.Behavior, bool) {
	b, ok := w.behaviors[e]
	return b, ok
}

// Eaten returns the number of fish the player has eaten.
func (w *World) Eaten() int { return w.eaten }

// Victory reports whether the player has eaten enough fish.
func (w *World) Victory() bool { return w.victory }

// TickCount returns the number of completed ticks.
func (w *World) TickCount() int32 { return w.tick }

// Time returns the simulation clock in seconds.
func (w *World) Time() float64 { return w.time }

// Close writes pending journal records and closes the CSV output.
func (w *World) Close() error {
	w.writeJournal()
	return w.output.Close()
}
