package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/shoal/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSchoolCrash BookmarkType = "school_crash"
	BookmarkMassAlarm   BookmarkType = "mass_alarm"
	BookmarkApexGrowth  BookmarkType = "apex_growth"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPreyPeak int     // peak prey count since the last crash
	apexBaseline   float64 // mean carnivore size since the last growth bookmark
}

// NewBookmarkDetector creates a detector with the given history size and thresholds.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		cfg:         cfg,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkMassAlarm(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkSchoolCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkApexGrowth(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.PreyCount > bd.recentPreyPeak {
		bd.recentPreyPeak = stats.PreyCount
	}
	if bd.apexBaseline == 0 && stats.CarnivoreCount > 0 {
		bd.apexBaseline = stats.CarnivoreSizeMean
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// History returns the retained windows, oldest first once the buffer wrapped.
func (bd *BookmarkDetector) History() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkSchoolCrash(stats WindowStats) *Bookmark {
	if bd.recentPreyPeak == 0 {
		return nil
	}

	c := bd.cfg.SchoolCrash
	drop := 1.0 - float64(stats.PreyCount)/float64(bd.recentPreyPeak)
	if drop > c.DropPercent && bd.recentPreyPeak-stats.PreyCount >= c.MinDrop {
		oldPeak := bd.recentPreyPeak
		bd.recentPreyPeak = stats.PreyCount
		return &Bookmark{
			Type:        BookmarkSchoolCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("School shrank %.0f%% from peak %d to %d", drop*100, oldPeak, stats.PreyCount),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkMassAlarm(stats WindowStats) *Bookmark {
	minAlarms := bd.cfg.MassAlarm.MinAlarms
	if minAlarms <= 0 || stats.Alarms < minAlarms {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkMassAlarm,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d alarms reached %d prey in one window", stats.Alarms, stats.Alerted),
	}
}

func (bd *BookmarkDetector) checkApexGrowth(stats WindowStats) *Bookmark {
	if bd.apexBaseline <= 0 || stats.CarnivoreCount == 0 {
		return nil
	}

	growth := stats.CarnivoreSizeMean/bd.apexBaseline - 1
	if growth >= bd.cfg.ApexGrowth.GrowthPercent {
		old := bd.apexBaseline
		bd.apexBaseline = stats.CarnivoreSizeMean
		return &Bookmark{
			Type:        BookmarkApexGrowth,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean carnivore size grew %.0f%% from %.2f to %.2f", growth*100, old, stats.CarnivoreSizeMean),
		}
	}
	return nil
}
