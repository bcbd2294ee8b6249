package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/game"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
)

// Fitness component weights.
const (
	weightDeaths   = 1.0 // prey deaths per simulated minute
	weightSpread   = 0.5 // school spread in neighbor radii
	weightWall     = 2.0 // fraction of samples pinned to the volume boundary
	weightStranded = 1.0 // fraction of samples with no neighbor in range

	sampleEverySec = 0.5
	warmupSec      = 5.0
	wallMargin     = 0.25
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastMetrics runMetrics // seed-averaged metrics from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// runMetrics summarizes one headless run.
type runMetrics struct {
	DeathsPerMin float64
	Spread       float64 // mean distance to the school centroid, in neighbor radii
	WallFraction float64
	Stranded     float64
	Alarms       int
}

// LastMetrics returns the metrics from the most recent evaluation.
func (fe *FitnessEvaluator) LastMetrics() runMetrics {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMetrics
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runMetrics, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	fitness := make([]float64, len(results))
	var avg runMetrics
	for i, r := range results {
		fitness[i] = computeFitness(r)
		avg.DeathsPerMin += r.DeathsPerMin
		avg.Spread += r.Spread
		avg.WallFraction += r.WallFraction
		avg.Stranded += r.Stranded
		avg.Alarms += r.Alarms
	}
	n := float64(len(results))
	avg.DeathsPerMin /= n
	avg.Spread /= n
	avg.WallFraction /= n
	avg.Stranded /= n
	avg.Alarms /= len(results)

	fe.mu.Lock()
	fe.lastMetrics = avg
	fe.mu.Unlock()

	// Penalize seed-to-seed variance so lucky seeds do not win.
	mean, std := stat.MeanStdDev(fitness, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean + 0.25*std
}

// runSimulation executes a single headless NPC-only run.
func (fe *FitnessEvaluator) runSimulation(base *config.Config, seed int64) runMetrics {
	cfg := base.Clone()
	var windows []telemetry.WindowStats
	w, err := game.NewWorld(cfg, game.Options{
		Seed:     seed,
		NoPlayer: true,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})
	if err != nil {
		slog.Error("invalid candidate config", "seed", seed, "error", err)
		return runMetrics{DeathsPerMin: math.Inf(1)}
	}
	defer w.Close()

	dt := cfg.World.DT
	sampleTicks := max(1, int32(sampleEverySec/dt))
	warmupTicks := int32(warmupSec / dt)

	var s sampler
	s.init(cfg)
	for w.TickCount() < fe.maxTicks {
		if err := w.Tick(dt); err != nil {
			slog.Error("tick failed", "seed", seed, "error", err)
			break
		}
		if t := w.TickCount(); t >= warmupTicks && t%sampleTicks == 0 {
			s.sample(w.Registry())
		}
	}

	var deaths, alarms int
	for _, win := range windows {
		deaths += win.PreyDeaths
		alarms += win.Alarms
	}
	minutes := float64(w.TickCount()) * dt / 60
	m := s.metrics()
	m.DeathsPerMin = float64(deaths) / max(minutes, 1e-9)
	m.Alarms = alarms
	return m
}

// computeFitness calculates the scalar fitness (lower = better).
func computeFitness(m runMetrics) float64 {
	return weightDeaths*m.DeathsPerMin +
		weightSpread*m.Spread +
		weightWall*m.WallFraction +
		weightStranded*m.Stranded
}

// sampler accumulates school shape measurements.
type sampler struct {
	lo, hi   mgl64.Vec3
	radius   float64
	spreads  []float64
	walls    int
	stranded int
	samples  int
	pos      []mgl64.Vec3
}

func (s *sampler) init(cfg *config.Config) {
	s.lo, s.hi = geom.Vec(cfg.World.Min), geom.Vec(cfg.World.Max)
	s.radius = cfg.Prey.NeighborRadius
}

func (s *sampler) sample(reg *registry.Registry) {
	s.pos = s.pos[:0]
	reg.ForEachFish(func(a registry.Agent) {
		if a.Identity.Kind == components.KindPrey {
			s.pos = append(s.pos, a.Pos)
		}
	})
	if len(s.pos) == 0 {
		return
	}

	var centroid mgl64.Vec3
	for _, p := range s.pos {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(s.pos)))

	dists := make([]float64, len(s.pos))
	for i, p := range s.pos {
		dists[i] = p.Sub(centroid).Len()
		if s.nearWall(p) {
			s.walls++
		}
		if !s.hasNeighbor(i) {
			s.stranded++
		}
		s.samples++
	}
	s.spreads = append(s.spreads, stat.Mean(dists, nil)/s.radius)
}

func (s *sampler) nearWall(p mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if k == 1 {
			// The surface is open water, only the floor counts.
			if p[k]-s.lo[k] < wallMargin {
				return true
			}
			continue
		}
		if p[k]-s.lo[k] < wallMargin || s.hi[k]-p[k] < wallMargin {
			return true
		}
	}
	return false
}

func (s *sampler) hasNeighbor(i int) bool {
	for j, q := range s.pos {
		if j != i && q.Sub(s.pos[i]).Len() <= s.radius {
			return true
		}
	}
	return false
}

func (s *sampler) metrics() runMetrics {
	var m runMetrics
	if len(s.spreads) > 0 {
		m.Spread = stat.Mean(s.spreads, nil)
	}
	if s.samples > 0 {
		m.WallFraction = float64(s.walls) / float64(s.samples)
		m.Stranded = float64(s.stranded) / float64(s.samples)
	}
	return m
}
