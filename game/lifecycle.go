package game

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
)

// placementTries bounds the search for an unobstructed spawn point.
const placementTries = 20

// spawnInitialPopulation creates the player, the NPC fish, the prey school
// and the static resources.
func (w *World) spawnInitialPopulation(opts Options) {
	cfg := w.cfg

	if !opts.NoPlayer {
		w.spawnPlayer(opts)
	}
	for i := 0; i < cfg.Spawner.Carnivores; i++ {
		w.spawnFish(components.KindCarnivore, w.randomSwimPoint(), fishBody(cfg.Carnivore.FishConfig, cfg.Carnivore.Size))
	}
	for i := 0; i < cfg.Spawner.Herbivores; i++ {
		w.spawnFish(components.KindHerbivore, w.randomSwimPoint(), fishBody(cfg.Herbivore.FishConfig, cfg.Herbivore.Size))
	}

	ps := cfg.Spawner.Prey
	n := ps.InitialMin
	if ps.InitialMax > ps.InitialMin {
		n += w.rng.Intn(ps.InitialMax - ps.InitialMin + 1)
	}
	w.spawnPrey(n)

	for i := 0; i < cfg.Seaweed.Count; i++ {
		w.reg.SpawnResource(w.randomSwimPoint(), components.Resource{
			Amount:     cfg.Seaweed.TotalSize,
			Total:      cfg.Seaweed.TotalSize,
			Bite:       cfg.Seaweed.Bite,
			RegrowRate: cfg.Seaweed.RegrowRate,
		})
	}
	for i := 0; i < cfg.Stars.Count; i++ {
		p := w.randomPoint(cfg.World.SurfaceY, 0)
		w.reg.SpawnPickup(p, cfg.Stars.PointValue)
	}

	slog.Info("world_spawned",
		"prey", n,
		"carnivores", w.reg.Count(components.KindCarnivore),
		"herbivores", w.reg.Count(components.KindHerbivore),
		"seaweed", w.reg.Count(components.KindSeaweed),
		"stars", w.reg.Count(components.KindStar),
		"obstacles", w.obstacles.Len(),
	)
}

func (w *World) spawnPlayer(opts Options) {
	pc := w.cfg.Player
	input := opts.Input
	if input == nil && w.cfg.Game.Autopilot {
		input = behavior.NewAutopilot(w.cfg)
	}
	w.playerBehavior = behavior.NewPlayer(w.cfg, input)
	w.playerAgent = w.playerBehavior

	e := w.reg.Spawn(registry.SpawnSpec{
		Kind:   components.KindPlayer,
		Name:   "player",
		Pos:    geom.Vec(pc.Spawn),
		Orient: mgl64.QuatIdent(),
		Body:   fishBody(pc.FishConfig, pc.Size),
	})
	w.player = e
	w.playerID, _ = w.reg.Identity(e)
	w.register(e, w.playerBehavior)

	if opts.Anchor != nil {
		if err := w.reg.Attach(e, opts.Anchor, pc.SegmentSpacing); err != nil {
			slog.Warn("anchor_attach_failed", "error", err)
		}
	}
}

// spawnPrey places n prey in the spawner disc with random sizes.
func (w *World) spawnPrey(n int) int {
	ps := w.cfg.Spawner.Prey
	center := geom.Vec(ps.Center)
	spawned := 0
	for i := 0; i < n; i++ {
		pos := center
		for try := 0; try < placementTries; try++ {
			pos = center.Add(geom.RandomInDisc(w.rng, ps.Radius))
			pos = w.clampToVolume(pos, w.cfg.World.SurfaceY)
			if !w.obstacles.Blocked(pos) {
				break
			}
		}
		size := ps.SizeMin + w.rng.Float64()*(ps.SizeMax-ps.SizeMin)
		w.spawnFish(components.KindPrey, pos, fishBody(w.cfg.Prey.FishConfig, size))
		spawned++
	}
	return spawned
}

// spawnFish registers a fish with a behavior for its kind.
func (w *World) spawnFish(kind components.Kind, pos mgl64.Vec3, body components.Body) ecs.Entity {
	e := w.reg.Spawn(registry.SpawnSpec{
		Kind:   kind,
		Pos:    pos,
		Orient: geom.YawQuat(w.rng.Float64() * 2 * math.Pi),
		Body:   body,
	})

	var b behavior.Behavior
	switch kind {
	case components.KindCarnivore:
		b = behavior.NewCarnivore(w.cfg)
	case components.KindHerbivore:
		b = behavior.NewHerbivore(w.cfg)
	case components.KindPrey:
		b = behavior.NewPrey(w.cfg)
	}
	if b != nil {
		w.register(e, b)
	}
	return e
}

func (w *World) register(e ecs.Entity, b behavior.Behavior) {
	w.behaviors[e] = b
	a, ok := w.reg.View(e)
	if !ok {
		return
	}
	w.collector.RecordSpawn(a.Identity.Kind)
	w.lifetimes.Register(a.Identity, w.tick, a.Body.Size)
	w.events = append(w.events, telemetry.NewSpawnEvent(w.tick, a.Identity))
}

// fishBody builds a body from a species section.
func fishBody(fc config.FishConfig, size float64) components.Body {
	return components.Body{
		Size:              size,
		MinSize:           fc.MinSize,
		MaxSize:           fc.MaxSize,
		BaseSpeed:         fc.MoveSpeed,
		TurnRate:          fc.TurnRate,
		Nutrition:         fc.Nutrition,
		NutritionFromSize: fc.NutritionFromSize,
	}
}

// randomSwimPoint returns an unobstructed point in the NPC swim layer.
func (w *World) randomSwimPoint() mgl64.Vec3 {
	sp := w.cfg.Spawner
	var p mgl64.Vec3
	for try := 0; try < placementTries; try++ {
		p = w.randomPoint(sp.Depth, sp.DepthJitter)
		if !w.obstacles.Blocked(p) {
			break
		}
	}
	return p
}

// randomPoint picks a horizontal position inside the volume at depth +/- jitter.
func (w *World) randomPoint(depth, jitter float64) mgl64.Vec3 {
	lo, hi := w.cfg.World.Min, w.cfg.World.Max
	m := 1.0
	p := mgl64.Vec3{
		lo[0] + m + w.rng.Float64()*(hi[0]-lo[0]-2*m),
		depth + jitter*(2*w.rng.Float64()-1),
		lo[2] + m + w.rng.Float64()*(hi[2]-lo[2]-2*m),
	}
	return w.clampToVolume(p, w.cfg.World.SurfaceY)
}

// onRemove observes every fish removal, including predation kills.
func (w *World) onRemove(a registry.Agent) {
	w.collector.RecordDeath(a.Identity.Kind)
	if s := w.lifetimes.Remove(a.Identity.ID, w.tick, w.cfg.World.DT); s != nil {
		w.finished = append(w.finished, s)
	}
	w.events = append(w.events, telemetry.NewDeathEvent(w.tick, a.Identity))
	delete(w.behaviors, a.Entity)
}

func (w *World) onTransition(_ ecs.Entity, _ components.Kind, _, _ string) {
	w.collector.RecordTransition()
}

// updateLifecycle tops up the prey school and reports end-of-game events.
func (w *World) updateLifecycle(dt float64) {
	ps := w.cfg.Spawner.Prey
	w.spawnTimer += dt
	if w.spawnTimer >= ps.CheckInterval {
		w.spawnTimer = 0
		if alive := w.reg.Count(components.KindPrey); alive < ps.MinAlive {
			n := w.spawnPrey(ps.MinAlive - alive)
			slog.Info("prey_topup", "tick", w.tick, "alive", alive, "spawned", n)
		}
	}

	if w.playerDead && !w.deathReported {
		w.deathReported = true
		w.listener.PlayerDied(w.killer)
	}

	goal := w.cfg.Game.TotalFishCount
	if !w.victory && w.playerBehavior != nil && goal > 0 && w.eaten >= goal {
		w.victory = true
		w.events = append(w.events, telemetry.NewVictoryEvent(w.tick, w.playerID, w.eaten))
		w.listener.Victory()
		slog.Info("victory", "tick", w.tick, "eaten", w.eaten)
	}
}
