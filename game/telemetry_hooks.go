package game

import (
	"log/slog"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/registry"
	"github.com/pthm-cable/shoal/telemetry"
	"github.com/pthm-cable/shoal/vizfeed"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (w *World) flushTelemetry() {
	if !w.collector.ShouldFlush(w.tick) {
		return
	}

	stats := w.collector.Flush(w.tick, w.samplePopulation())
	perfStats := w.perf.Stats()

	if w.statsCallback != nil {
		w.statsCallback(stats)
	}

	if w.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := w.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := w.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	if err := w.journal.RecordWindow(stats); err != nil {
		slog.Error("failed to journal window", "error", err)
	}

	for _, bm := range w.bookmarks.Check(stats) {
		if w.logStats {
			bm.LogBookmark()
		}
		if err := w.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}

	w.writeJournal()
}

// samplePopulation collects counts and size distributions at window end.
func (w *World) samplePopulation() telemetry.Population {
	pop := telemetry.Population{
		Prey:       w.reg.Count(components.KindPrey),
		Carnivores: w.reg.Count(components.KindCarnivore),
		Herbivores: w.reg.Count(components.KindHerbivore),
		FishEaten:  w.eaten,
	}

	w.reg.ForEachFish(func(a registry.Agent) {
		switch a.Identity.Kind {
		case components.KindPrey:
			pop.PreySizes = append(pop.PreySizes, a.Body.Size)
		case components.KindCarnivore:
			pop.CarnivoreSizes = append(pop.CarnivoreSizes, a.Body.Size)
		case components.KindPlayer:
			pop.PlayerAlive = true
			pop.PlayerSize = a.Body.Size
		}
		w.lifetimes.UpdateSize(a.Identity.ID, a.Body.Size)
	})

	for _, e := range w.reg.Entities(components.KindSeaweed) {
		if res, _, ok := w.reg.Resource(e); ok {
			pop.Seaweed += res.Amount
		}
	}
	if w.playerBehavior != nil {
		pop.PlayerScore = w.playerBehavior.Score()
	}
	return pop
}

// writeJournal drains buffered events and finished lifetimes.
func (w *World) writeJournal() {
	if w.journal == nil {
		w.events = w.events[:0]
		w.finished = w.finished[:0]
		return
	}
	if len(w.events) > 0 {
		if err := w.journal.RecordEvents(w.events); err != nil {
			slog.Error("failed to journal events", "count", len(w.events), "error", err)
		}
		w.events = w.events[:0]
	}
	for _, s := range w.finished {
		if err := w.journal.RecordLifetime(s); err != nil {
			slog.Error("failed to journal lifetime", "agent", s.Identity.Name, "error", err)
		}
	}
	w.finished = w.finished[:0]
}

// Frame returns the current world state as a viz frame.
func (w *World) Frame() vizfeed.Frame {
	f := vizfeed.Frame{
		Tick:      w.tick,
		Time:      w.time,
		FishEaten: w.eaten,
		Victory:   w.victory,
		Agents:    make([]vizfeed.Agent, 0, w.reg.Total()),
	}
	if pb := w.playerBehavior; pb != nil {
		f.Score = pb.Score()
	}
	if w.playerAgent != nil {
		f.Super = w.playerAgent.IsInvulnerable()
	}

	w.reg.ForEachFish(func(a registry.Agent) {
		agent := vizfeed.Agent{
			ID:   a.Identity.ID.String(),
			Name: a.Identity.Name,
			Kind: a.Identity.Kind.String(),
			Pos:  [3]float64(a.Pos),
			Yaw:  geom.Yaw(geom.HeadingOf(a.Orient)),
			Size: a.Body.Size,
		}
		if b, ok := w.behaviors[a.Entity]; ok {
			agent.State = b.State()
		}
		f.Agents = append(f.Agents, agent)
	})
	for _, e := range w.reg.Entities(components.KindSeaweed) {
		res, pos, ok := w.reg.Resource(e)
		id, _ := w.reg.Identity(e)
		if ok {
			f.Agents = append(f.Agents, vizfeed.Agent{ID: id.ID.String(), Name: id.Name, Kind: id.Kind.String(), Pos: [3]float64(pos), Size: res.Amount})
		}
	}
	for _, e := range w.reg.Entities(components.KindStar) {
		_, pos, ok := w.reg.Pickup(e)
		id, _ := w.reg.Identity(e)
		if ok {
			f.Agents = append(f.Agents, vizfeed.Agent{ID: id.ID.String(), Name: id.Name, Kind: id.Kind.String(), Pos: [3]float64(pos)})
		}
	}
	return f
}

func (w *World) publishFrame() {
	if w.feed == nil {
		return
	}
	w.feed.Broadcast(w.Frame())
}
