package telemetry

import (
	"github.com/google/uuid"

	"github.com/pthm-cable/shoal/components"
)

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	Identity        components.Identity
	BirthTick       int32
	DeathTick       int32
	SurvivalTimeSec float64

	// Predation
	Attempts int
	Kills    int

	// Grazing
	Bites int

	// Alarms this agent was caught up in
	Alarms int

	PeakSize float64
}

// LifetimeTracker manages per-agent lifetime statistics, keyed by identity.
type LifetimeTracker struct {
	stats map[uuid.UUID]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uuid.UUID]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new agent.
func (lt *LifetimeTracker) Register(id components.Identity, birthTick int32, size float64) {
	lt.stats[id.ID] = &LifetimeStats{
		Identity:  id,
		BirthTick: birthTick,
		PeakSize:  size,
	}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(id uuid.UUID) *LifetimeStats {
	return lt.stats[id]
}

// Remove drops an agent's stats and returns them with survival time filled in.
func (lt *LifetimeTracker) Remove(id uuid.UUID, tick int32, dt float64) *LifetimeStats {
	s := lt.stats[id]
	if s == nil {
		return nil
	}
	delete(lt.stats, id)
	s.DeathTick = tick
	s.SurvivalTimeSec = float64(tick-s.BirthTick) * dt
	return s
}

// RecordAttempt increments the predation attempt count.
func (lt *LifetimeTracker) RecordAttempt(id uuid.UUID) {
	if s := lt.stats[id]; s != nil {
		s.Attempts++
	}
}

// RecordKill increments the kill count.
func (lt *LifetimeTracker) RecordKill(id uuid.UUID) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordBite increments the seaweed bite count.
func (lt *LifetimeTracker) RecordBite(id uuid.UUID) {
	if s := lt.stats[id]; s != nil {
		s.Bites++
	}
}

// RecordAlarm increments the alarms received.
func (lt *LifetimeTracker) RecordAlarm(id uuid.UUID) {
	if s := lt.stats[id]; s != nil {
		s.Alarms++
	}
}

// UpdateSize tracks peak size.
func (lt *LifetimeTracker) UpdateSize(id uuid.UUID, size float64) {
	if s := lt.stats[id]; s != nil && size > s.PeakSize {
		s.PeakSize = size
	}
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
