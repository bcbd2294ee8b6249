package telemetry

import "github.com/pthm-cable/shoal/components"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	spawns      [components.NumKinds]int
	deaths      [components.NumKinds]int
	attempts    int
	predations  int
	playerKills int
	alarms      int
	alerted     int
	bites       int
	transitions int
	avoidance   int
	stars       int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		if n := int32(windowDurationSec / dt); n > 1 {
			ticksPerWindow = n
		}
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSpawn records an agent entering the world.
func (c *Collector) RecordSpawn(kind components.Kind) {
	if kind < components.NumKinds {
		c.spawns[kind]++
	}
}

// RecordDeath records an agent leaving the world.
func (c *Collector) RecordDeath(kind components.Kind) {
	if kind < components.NumKinds {
		c.deaths[kind]++
	}
}

// RecordAttempt records a predation attempt, successful or not.
func (c *Collector) RecordAttempt() {
	c.attempts++
}

// RecordPredation records a successful predation. Player deaths count separately.
func (c *Collector) RecordPredation(victim components.Kind) {
	c.predations++
	if victim == components.KindPlayer {
		c.playerKills++
	}
}

// RecordAlarm records one alarm burst and how many prey it reached.
func (c *Collector) RecordAlarm(alerted int) {
	c.alarms++
	c.alerted += alerted
}

// RecordBite records a seaweed bite.
func (c *Collector) RecordBite() {
	c.bites++
}

// RecordTransition records a state machine transition.
func (c *Collector) RecordTransition() {
	c.transitions++
}

// RecordAvoidance records a tick in which steering deflected around an obstacle.
func (c *Collector) RecordAvoidance() {
	c.avoidance++
}

// RecordStar records a collected pickup.
func (c *Collector) RecordStar() {
	c.stars++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Population is the state sampled at window end.
type Population struct {
	Prey       int
	Carnivores int
	Herbivores int
	Seaweed    float64 // total remaining seaweed amount

	PreySizes      []float64
	CarnivoreSizes []float64

	PlayerAlive bool
	PlayerSize  float64
	PlayerScore int
	FishEaten   int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, pop Population) WindowStats {
	var hitRate float64
	if c.attempts > 0 {
		hitRate = float64(c.predations) / float64(c.attempts)
	}

	prey := ComputeSizeStats(pop.PreySizes)
	carn := ComputeSizeStats(pop.CarnivoreSizes)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		PreyCount:      pop.Prey,
		CarnivoreCount: pop.Carnivores,
		HerbivoreCount: pop.Herbivores,
		SeaweedTotal:   pop.Seaweed,

		PreySpawns: c.spawns[components.KindPrey],
		PreyDeaths: c.deaths[components.KindPrey],
		FishDeaths: c.deaths[components.KindCarnivore] + c.deaths[components.KindHerbivore],

		Attempts:    c.attempts,
		Predations:  c.predations,
		PlayerKills: c.playerKills,
		HitRate:     hitRate,

		Alarms:      c.alarms,
		Alerted:     c.alerted,
		Bites:       c.bites,
		Transitions: c.transitions,
		Avoidance:   c.avoidance,
		Stars:       c.stars,

		PreySizeMean: prey.Mean,
		PreySizeStd:  prey.Std,
		PreySizeP10:  prey.P10,
		PreySizeP50:  prey.P50,
		PreySizeP90:  prey.P90,

		CarnivoreSizeMean: carn.Mean,
		CarnivoreSizeStd:  carn.Std,
		CarnivoreSizeP10:  carn.P10,
		CarnivoreSizeP50:  carn.P50,
		CarnivoreSizeP90:  carn.P90,

		PlayerAlive: pop.PlayerAlive,
		PlayerSize:  pop.PlayerSize,
		PlayerScore: pop.PlayerScore,
		FishEaten:   pop.FishEaten,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.spawns = [components.NumKinds]int{}
	c.deaths = [components.NumKinds]int{}
	c.attempts = 0
	c.predations = 0
	c.playerKills = 0
	c.alarms = 0
	c.alerted = 0
	c.bites = 0
	c.transitions = 0
	c.avoidance = 0
	c.stars = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
