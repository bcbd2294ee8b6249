package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies a timed slice of the world tick. Agent phases are
// accumulated across every agent updated in the tick.
type Phase int

const (
	PhaseFlock       Phase = iota // prey snapshot capture
	PhaseEnvironment              // regrowth, super timer, pollution, stars
	PhaseBehavior                 // perception and state machines
	PhaseSteering                 // ray fan, steer and commit
	PhaseFlush                    // deferred despawns
	PhaseLifecycle                // top-ups, victory and death events
	PhaseTelemetry                // window flush, journal, viz frame
	NumPhases
)

var phaseNames = [NumPhases]string{
	"flock", "environment", "behavior", "steering", "flush", "lifecycle", "telemetry",
}

func (p Phase) String() string {
	if p < 0 || p >= NumPhases {
		return "unknown"
	}
	return phaseNames[p]
}

type tickTiming struct {
	total  time.Duration
	phases [NumPhases]time.Duration
}

// PerfCollector keeps per-phase tick timings over a rolling window.
type PerfCollector struct {
	ring  []tickTiming
	next  int
	count int

	cur       tickTiming
	tickStart time.Time
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]tickTiming, window)}
}

// StartTick resets the per-phase accumulators and returns the start time,
// ready to be passed to Lap.
func (p *PerfCollector) StartTick() time.Time {
	p.cur = tickTiming{}
	p.tickStart = time.Now()
	return p.tickStart
}

// Lap charges the time since mark to phase and returns the new mark.
func (p *PerfCollector) Lap(phase Phase, mark time.Time) time.Time {
	now := time.Now()
	p.cur.phases[phase] += now.Sub(mark)
	return now
}

// EndTick stores the tick in the window.
func (p *PerfCollector) EndTick() {
	p.cur.total = time.Since(p.tickStart)
	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// PerfStats aggregates the window.
type PerfStats struct {
	AvgTick, MinTick, MaxTick time.Duration

	PhaseAvg [NumPhases]time.Duration
	PhasePct [NumPhases]float64 // share of the average tick

	TicksPerSecond float64
}

// Stats aggregates the ticks currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var sums [NumPhases]time.Duration
	for i, t := range p.ring[:p.count] {
		total += t.total
		if i == 0 || t.total < s.MinTick {
			s.MinTick = t.total
		}
		s.MaxTick = max(s.MaxTick, t.total)
		for ph, d := range t.phases {
			sums[ph] += d
		}
	}

	n := time.Duration(p.count)
	s.AvgTick = total / n
	for ph := range sums {
		s.PhaseAvg[ph] = sums[ph] / n
		if s.AvgTick > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgTick)
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	return s
}

// LogStats logs the window at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4+int(NumPhases))
	attrs = append(attrs,
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("min_tick_us", s.MinTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	)
	for ph := Phase(0); ph < NumPhases; ph++ {
		if pct := s.PhasePct[ph]; pct >= 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfRow is one perf.csv line.
type PerfRow struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	FlockPct       float64 `csv:"flock_pct"`
	EnvironmentPct float64 `csv:"environment_pct"`
	BehaviorPct    float64 `csv:"behavior_pct"`
	SteeringPct    float64 `csv:"steering_pct"`
	FlushPct       float64 `csv:"flush_pct"`
	LifecyclePct   float64 `csv:"lifecycle_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// Row flattens the stats for perf.csv.
func (s PerfStats) Row(windowEnd int32) PerfRow {
	return PerfRow{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTick.Microseconds(),
		MaxTickUS:      s.MaxTick.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		FlockPct:       s.PhasePct[PhaseFlock],
		EnvironmentPct: s.PhasePct[PhaseEnvironment],
		BehaviorPct:    s.PhasePct[PhaseBehavior],
		SteeringPct:    s.PhasePct[PhaseSteering],
		FlushPct:       s.PhasePct[PhaseFlush],
		LifecyclePct:   s.PhasePct[PhaseLifecycle],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
