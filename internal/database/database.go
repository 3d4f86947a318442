package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per directory per cycle
const (
	ActionPurge = "PURGE" // purge ran (possibly removing nothing)
	ActionSkip  = "SKIP"  // sentinel missing, directory left alone
	ActionSweep = "SWEEP" // marker sweep ran
	ActionError = "ERROR" // the pass aborted
)

// HistoryDB manages the SQLite database for housekeeping history
type HistoryDB struct {
	db *sql.DB
}

// RunRecord is one pass over one directory
type RunRecord struct {
	ID           int64
	Timestamp    time.Time
	Directory    string
	Action       string
	Expired      int
	Evicted      int
	Reclaimed    int
	Stale        int
	Orphaned     int
	Failed       int
	ErrorMessage string
}

// Removed is the number of entries the pass deleted
func (r RunRecord) Removed() int {
	return r.Expired + r.Evicted + r.Reclaimed
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto parses DATETIME columns back into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping does not create the file; a query does
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// The daemon writes while tempsweep-query reads
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}
	return hdb, nil
}

func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS purge_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		directory TEXT NOT NULL,
		action TEXT NOT NULL,

		expired INTEGER NOT NULL DEFAULT 0,
		evicted INTEGER NOT NULL DEFAULT 0,
		reclaimed INTEGER NOT NULL DEFAULT 0,
		stale INTEGER NOT NULL DEFAULT 0,
		orphaned INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,

		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON purge_runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_directory ON purge_runs(directory);
	CREATE INDEX IF NOT EXISTS idx_runs_action ON purge_runs(action);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRun inserts one pass into the history. A zero Timestamp means now.
func (d *HistoryDB) RecordRun(r RunRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	var errMsg sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := d.db.Exec(`
	INSERT INTO purge_runs (
		timestamp, directory, action,
		expired, evicted, reclaimed, stale, orphaned, failed,
		error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Timestamp.UTC(),
		r.Directory,
		r.Action,
		r.Expired,
		r.Evicted,
		r.Reclaimed,
		r.Stale,
		r.Orphaned,
		r.Failed,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("record %s run for %s: %w", r.Action, r.Directory, err)
	}
	return nil
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *HistoryDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (d *HistoryDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM purge_runs").Scan(&totalRecords); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	// Aggregates come back as text, not DATETIME
	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM purge_runs").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
