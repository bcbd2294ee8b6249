package game

import (
	"github.com/pthm-cable/shoal/behavior"
	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
	"github.com/pthm-cable/shoal/vizfeed"
)

// Listener receives game events. Calls happen on the simulation goroutine
// during Tick.
type Listener interface {
	PlayerDied(killer components.Identity)
	FishEaten(count int)
	Victory()
	SuperMode(active bool)
}

type nopListener struct{}

func (nopListener) PlayerDied(components.Identity) {}
func (nopListener) FishEaten(int)                  {}
func (nopListener) Victory()                       {}
func (nopListener) SuperMode(bool)                 {}

// FrameSink receives one frame per tick.
type FrameSink interface {
	Broadcast(vizfeed.Frame)
}

// Options holds configuration for world initialization.
type Options struct {
	Seed int64

	// Input drives the player. When nil the autopilot is used if the
	// config enables it, otherwise the player idles.
	Input    behavior.PlayerInput
	Listener Listener
	Anchor   registry.BodyAnchor // optional segmented body for the player
	NoPlayer bool

	LogStats      bool                              // log window stats via slog
	StatsCallback func(stats telemetry.WindowStats) // called on each window flush
	OutputDir     string                            // CSV output directory (empty = disabled)
	Journal       *telemetry.Journal                // event journal, owned by the caller
	Feed          FrameSink
}
