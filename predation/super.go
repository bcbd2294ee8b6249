package predation

import "github.com/pthm-cable/shoal/config"

// Super is the timed invulnerability state. While active its owner cannot
// be eaten, eats regardless of size and gets range and size multipliers.
type Super struct {
	Duration     float64
	EatRangeMult float64
	SizeMult     float64

	remaining float64
}

// NewSuper reads durations and multipliers from the player config.
func NewSuper(c config.PlayerConfig) Super {
	return Super{
		Duration:     c.SuperDuration,
		EatRangeMult: c.SuperEatRangeMult,
		SizeMult:     c.SuperSizeMult,
	}
}

// Activate starts the timer. It cannot be re-armed while active.
func (s *Super) Activate() bool {
	if s.Active() {
		return false
	}
	s.remaining = s.Duration
	return true
}

// Active reports whether the state is on.
func (s *Super) Active() bool {
	return s.remaining > 0
}

// Update advances the timer and reports whether it expired on this call.
func (s *Super) Update(dt float64) bool {
	if !s.Active() || dt <= 0 {
		return false
	}
	s.remaining -= dt
	if s.remaining <= 0 {
		s.remaining = 0
		return true
	}
	return false
}

// EatRange scales base while active.
func (s *Super) EatRange(base float64) float64 {
	if s.Active() {
		return base * s.EatRangeMult
	}
	return base
}

// EffectiveSize scales base while active.
func (s *Super) EffectiveSize(base float64) float64 {
	if s.Active() {
		return base * s.SizeMult
	}
	return base
}
