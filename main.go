package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/game"
	"github.com/pthm-cable/shoal/telemetry"
	"github.com/pthm-cable/shoal/vizfeed"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	journalPath := flag.String("journal", "", "SQLite event journal path (empty = disabled)")
	vizAddr := flag.String("viz-addr", "", "Serve the websocket viz feed on this address (e.g. :8080)")
	realtime := flag.Bool("realtime", false, "Pace ticks to wall-clock time")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	noPlayer := flag.Bool("no-player", false, "Run NPCs only")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
		cfg.Recompute()
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if err := run(cfg, runOptions{
		seed:     rngSeed,
		maxTicks: *maxTicks,
		realtime: *realtime,
		journal:  *journalPath,
		vizAddr:  *vizAddr,
		game: game.Options{
			Seed:      rngSeed,
			LogStats:  *logStats,
			OutputDir: *outputDir,
			NoPlayer:  *noPlayer,
		},
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	seed     int64
	maxTicks int
	realtime bool
	journal  string
	vizAddr  string
	game     game.Options
}

func run(cfg *config.Config, opts runOptions) error {
	if opts.journal != "" {
		j, err := telemetry.OpenJournal(opts.journal)
		if err != nil {
			return err
		}
		defer j.Close()
		opts.game.Journal = j
	}

	if opts.vizAddr != "" {
		feed := vizfeed.NewServer()
		defer feed.Close()
		opts.game.Feed = feed

		mux := http.NewServeMux()
		mux.Handle("/ws", feed.Handler())
		srv := &http.Server{Addr: opts.vizAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("viz server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("viz feed listening", "addr", opts.vizAddr, "path", "/ws")
	}

	opts.game.Listener = logListener{}
	w, err := game.NewWorld(cfg, opts.game)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dt := cfg.World.DT
	slog.Info("starting simulation",
		"seed", opts.seed,
		"dt", dt,
		"max_ticks", opts.maxTicks,
		"realtime", opts.realtime,
	)

	var pace *time.Ticker
	if opts.realtime {
		pace = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer pace.Stop()
	}

	for {
		if err := w.Tick(dt); err != nil {
			return err
		}
		if opts.maxTicks > 0 && int(w.TickCount()) >= opts.maxTicks {
			slog.Info("max ticks reached", "tick", w.TickCount())
			return nil
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				slog.Info("interrupted", "tick", w.TickCount())
				return nil
			case <-pace.C:
			}
		} else if ctx.Err() != nil {
			slog.Info("interrupted", "tick", w.TickCount())
			return nil
		}
	}
}

// logListener reports game events for headless runs.
type logListener struct{}

func (logListener) PlayerDied(killer components.Identity) {
	slog.Info("game_over", "killer", killer.Name)
}

func (logListener) FishEaten(count int) {
	slog.Debug("fish_eaten", "count", count)
}

func (logListener) Victory() {
	slog.Info("game_won")
}

func (logListener) SuperMode(active bool) {
	slog.Debug("super_mode", "active", active)
}
