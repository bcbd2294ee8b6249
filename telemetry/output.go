package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/shoal/config"
)

// Files written into the output directory.
const (
	WindowsFile   = "telemetry.csv"
	PerfFile      = "perf.csv"
	BookmarksFile = "bookmarks.csv"
	ConfigFile    = "config.yaml"
)

// table is an append-only CSV file. The header goes out with the first rows.
type table struct {
	name   string
	f      *os.File
	header bool
}

func (t *table) append(rows any) error {
	var err error
	if t.header {
		err = gocsv.MarshalWithoutHeaders(rows, t.f)
	} else {
		err = gocsv.Marshal(rows, t.f)
		t.header = err == nil
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", t.name, err)
	}
	return nil
}

func (t *table) close() error {
	if t.f == nil {
		return nil
	}
	return t.f.Close()
}

// OutputManager writes one run's CSV tables and config snapshot. A nil
// manager discards everything.
type OutputManager struct {
	dir       string
	windows   table
	perf      table
	bookmarks table
}

// NewOutputManager creates dir and the CSV files in it. An empty dir
// disables output and returns a nil manager.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:       dir,
		windows:   table{name: WindowsFile},
		perf:      table{name: PerfFile},
		bookmarks: table{name: BookmarksFile},
	}
	for _, t := range om.tables() {
		f, err := os.Create(filepath.Join(dir, t.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", t.name, err)
		}
		t.f = f
	}
	return om, nil
}

func (om *OutputManager) tables() []*table {
	return []*table{&om.windows, &om.perf, &om.bookmarks}
}

// WriteConfig snapshots the run configuration.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteTelemetry appends one stats window.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.windows.append([]WindowStats{stats})
}

// WritePerf appends the perf window ending at windowEnd.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return om.perf.append([]PerfRow{stats.Row(windowEnd)})
}

// WriteBookmark appends one bookmark.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.append([]Bookmark{b})
}

// Close closes every file and reports all failures.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, t := range om.tables() {
		if err := t.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}
