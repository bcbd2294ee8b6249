package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/shoal/components"
)

func TestCollectorFlushResets(t *testing.T) {
	c := NewCollector(1, 0.1)
	if got := c.WindowDurationTicks(); got != 10 {
		t.Fatalf("WindowDurationTicks() = %d, want 10", got)
	}

	c.RecordSpawn(components.KindPrey)
	c.RecordSpawn(components.KindPrey)
	c.RecordDeath(components.KindPrey)
	c.RecordDeath(components.KindHerbivore)
	c.RecordAttempt()
	c.RecordAttempt()
	c.RecordAttempt()
	c.RecordAttempt()
	c.RecordPredation(components.KindPrey)
	c.RecordPredation(components.KindPlayer)
	c.RecordAlarm(6)
	c.RecordAlarm(2)
	c.RecordBite()
	c.RecordStar()

	if c.ShouldFlush(9) {
		t.Error("ShouldFlush(9) = true before the window ended")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("ShouldFlush(10) = false at window end")
	}

	s := c.Flush(10, Population{Prey: 5, PreySizes: []float64{0.3, 0.5}})
	checks := []struct {
		name      string
		got, want int
	}{
		{"PreySpawns", s.PreySpawns, 2},
		{"PreyDeaths", s.PreyDeaths, 1},
		{"FishDeaths", s.FishDeaths, 1},
		{"Attempts", s.Attempts, 4},
		{"Predations", s.Predations, 2},
		{"PlayerKills", s.PlayerKills, 1},
		{"Alarms", s.Alarms, 2},
		{"Alerted", s.Alerted, 8},
		{"Bites", s.Bites, 1},
		{"Stars", s.Stars, 1},
		{"PreyCount", s.PreyCount, 5},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}
	if math.Abs(s.PreySizeMean-0.4) > 1e-9 {
		t.Errorf("PreySizeMean = %v, want 0.4", s.PreySizeMean)
	}
	if math.Abs(s.SimTimeSec-1) > 1e-9 {
		t.Errorf("SimTimeSec = %v, want 1", s.SimTimeSec)
	}

	next := c.Flush(20, Population{})
	if next.Attempts != 0 || next.Alarms != 0 || next.PreySpawns != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if next.WindowStartTick != 10 {
		t.Errorf("WindowStartTick = %d, want 10", next.WindowStartTick)
	}
}
