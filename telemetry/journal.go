package telemetry

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Journal is an append-only SQLite log of events, window stats and
// finished lifetimes. It never stores live agent state.
type Journal struct {
	conn *sqlx.DB
}

// EventRow is one stored event.
type EventRow struct {
	ID         int64   `db:"id"`
	Tick       int32   `db:"tick"`
	Kind       string  `db:"kind"`
	ActorID    string  `db:"actor_id"`
	ActorName  string  `db:"actor_name"`
	TargetID   string  `db:"target_id"`
	TargetName string  `db:"target_name"`
	Amount     float64 `db:"amount"`
}

// OpenJournal opens or creates a journal at path. ":memory:" keeps it in RAM.
func OpenJournal(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_name TEXT NOT NULL,
		amount REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		window_end INTEGER PRIMARY KEY,
		sim_time REAL NOT NULL,
		prey INTEGER NOT NULL,
		carnivores INTEGER NOT NULL,
		herbivores INTEGER NOT NULL,
		predations INTEGER NOT NULL,
		alarms INTEGER NOT NULL,
		prey_size_mean REAL NOT NULL,
		carnivore_size_mean REAL NOT NULL,
		fish_eaten INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lifetimes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		birth_tick INTEGER NOT NULL,
		death_tick INTEGER NOT NULL,
		survival_sec REAL NOT NULL,
		attempts INTEGER NOT NULL,
		kills INTEGER NOT NULL,
		bites INTEGER NOT NULL,
		alarms INTEGER NOT NULL,
		peak_size REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// RecordEvent appends one event.
func (j *Journal) RecordEvent(e Event) error {
	if j == nil {
		return nil
	}
	var targetID string
	if e.Target.Name != "" {
		targetID = e.Target.ID.String()
	}
	_, err := j.conn.Exec(`INSERT INTO events
		(tick, kind, actor_id, actor_name, target_id, target_name, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Tick, e.Type.String(), e.Actor.ID.String(), e.Actor.Name, targetID, e.Target.Name, e.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// RecordEvents appends a batch of events in one transaction.
func (j *Journal) RecordEvents(events []Event) error {
	if j == nil || len(events) == 0 {
		return nil
	}

	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(tick, kind, actor_id, actor_name, target_id, target_name, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		var targetID string
		if e.Target.Name != "" {
			targetID = e.Target.ID.String()
		}
		if _, err := stmt.Exec(e.Tick, e.Type.String(), e.Actor.ID.String(), e.Actor.Name, targetID, e.Target.Name, e.Amount); err != nil {
			return fmt.Errorf("insert %s event: %w", e.Type, err)
		}
	}
	return tx.Commit()
}

// RecordWindow stores the headline numbers of a stats window.
func (j *Journal) RecordWindow(s WindowStats) error {
	if j == nil {
		return nil
	}
	_, err := j.conn.Exec(`INSERT OR REPLACE INTO windows
		(window_end, sim_time, prey, carnivores, herbivores, predations, alarms,
		 prey_size_mean, carnivore_size_mean, fish_eaten)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.WindowEndTick, s.SimTimeSec, s.PreyCount, s.CarnivoreCount, s.HerbivoreCount,
		s.Predations, s.Alarms, s.PreySizeMean, s.CarnivoreSizeMean, s.FishEaten,
	)
	if err != nil {
		return fmt.Errorf("insert window %d: %w", s.WindowEndTick, err)
	}
	return nil
}

// RecordLifetime stores a finished lifetime.
func (j *Journal) RecordLifetime(s *LifetimeStats) error {
	if j == nil || s == nil {
		return nil
	}
	_, err := j.conn.Exec(`INSERT OR REPLACE INTO lifetimes
		(id, name, kind, birth_tick, death_tick, survival_sec, attempts, kills, bites, alarms, peak_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Identity.ID.String(), s.Identity.Name, s.Identity.Kind.String(),
		s.BirthTick, s.DeathTick, s.SurvivalTimeSec,
		s.Attempts, s.Kills, s.Bites, s.Alarms, s.PeakSize,
	)
	if err != nil {
		return fmt.Errorf("insert lifetime %s: %w", s.Identity.Name, err)
	}
	return nil
}

// Events returns stored events of one type in insertion order.
func (j *Journal) Events(t EventType) ([]EventRow, error) {
	var rows []EventRow
	err := j.conn.Select(&rows, `SELECT id, tick, kind, actor_id, actor_name, target_id, target_name, amount
		FROM events WHERE kind = ? ORDER BY id`, t.String())
	if err != nil {
		return nil, fmt.Errorf("select %s events: %w", t, err)
	}
	return rows, nil
}

// CountLifetimes returns the number of stored lifetimes of kind name.
func (j *Journal) CountLifetimes(kind string) (int, error) {
	var n int
	if err := j.conn.Get(&n, `SELECT COUNT(*) FROM lifetimes WHERE kind = ?`, kind); err != nil {
		return 0, fmt.Errorf("count lifetimes: %w", err)
	}
	return n, nil
}
