package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/picdedup/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "picdedup.db"

// timeLayout stores timestamps in UTC with a fixed width so they sort as
// text.
const timeLayout = "2006-01-02 15:04:05.000000000"

// HistoryDB provides SQLite-based storage for run history and thumbnail
// mappings.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per pipeline run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		workdir TEXT NOT NULL,
		detectors TEXT NOT NULL,
		images INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		unique_images INTEGER NOT NULL,
		groups_left INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_workdir ON runs(workdir);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Stages belong to a run
	CREATE TABLE IF NOT EXISTS stages (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		stage_index INTEGER NOT NULL,
		kind TEXT NOT NULL,
		file_name TEXT NOT NULL,
		unique_images INTEGER NOT NULL,
		groups_left INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		new_unique INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, stage_index)
	);

	-- Thumbnail names mapped back to their source images
	CREATE TABLE IF NOT EXISTS thumbnails (
		workdir TEXT NOT NULL,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		orientation INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (workdir, name)
	);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one recorded pipeline run.
type Run struct {
	// ID is a UUID assigned by SaveRun when empty.
	ID string `json:"id"`

	// WorkDir is the absolute working directory.
	WorkDir string `json:"workdir"`

	// Detectors lists the detector kinds in stage order.
	Detectors []string `json:"detectors"`

	// Images is the number of thumbnails the run started with.
	Images int `json:"images"`

	// Failed is the number of unreadable thumbnails.
	Failed int `json:"failed"`

	// Unique is the number of unique images in the final descriptor.
	Unique int `json:"unique"`

	// Groups is the number of groups in the final descriptor.
	Groups int `json:"groups"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall time of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Stages is filled by GetRun; ListRuns leaves it empty.
	Stages []Stage `json:"stages,omitempty"`
}

// Stage is one recorded stage of a run.
type Stage struct {
	Index     int           `json:"index"`
	Kind      string        `json:"kind"`
	FileName  string        `json:"file_name"`
	Unique    int           `json:"unique"`
	Groups    int           `json:"groups"`
	Removed   int           `json:"removed"`
	NewUnique int           `json:"new_unique"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// SaveRun stores run and its stages in one transaction.
// An empty run.ID is replaced by a new UUID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *Run) (err error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	detectorsJSON, err := json.Marshal(run.Detectors)
	if err != nil {
		return fmt.Errorf("failed to serialize detectors: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, workdir, detectors, images, failed, unique_images, groups_left, started_at, elapsed_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.WorkDir,
		string(detectorsJSON),
		run.Images,
		run.Failed,
		run.Unique,
		run.Groups,
		formatTimestamp(run.StartedAt),
		int64(run.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, s := range run.Stages {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO stages (run_id, stage_index, kind, file_name, unique_images, groups_left, removed, new_unique, failed, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			s.Index,
			s.Kind,
			s.FileName,
			s.Unique,
			s.Groups,
			s.Removed,
			s.NewUnique,
			s.Failed,
			int64(s.Duration),
		)
		if err != nil {
			return fmt.Errorf("failed to insert stage %d: %w", s.Index, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, workdir, detectors, images, failed, unique_images, groups_left, started_at, elapsed_ns`

// ListRuns returns the runs recorded for workdir, newest first, without
// their stages. An empty workdir lists every run.
func (h *HistoryDB) ListRuns(ctx context.Context, workdir string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]any, 0, 1)
	if workdir != "" {
		query += " AND workdir = ?"
		args = append(args, workdir)
	}
	query += " ORDER BY started_at DESC, rowid DESC"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or starts with id, with its
// stages in order.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		id, len(id), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	rows.Close()

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}

	run := matches[0]
	run.Stages, err = h.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (h *HistoryDB) stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT stage_index, kind, file_name, unique_images, groups_left, removed, new_unique, failed, duration_ns
	FROM stages
	WHERE run_id = ?
	ORDER BY stage_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stages: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var s Stage
		var duration int64
		if err := rows.Scan(&s.Index, &s.Kind, &s.FileName, &s.Unique, &s.Groups,
			&s.Removed, &s.NewUnique, &s.Failed, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		s.Duration = time.Duration(duration)
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// SaveMappings replaces the thumbnail mappings recorded for workdir.
func (h *HistoryDB) SaveMappings(ctx context.Context, workdir string, mappings []model.Mapping) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM thumbnails WHERE workdir = ?`, workdir); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO thumbnails (workdir, name, source, orientation)
	VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mapping insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err = stmt.ExecContext(ctx, workdir, m.Name, m.Source, m.Orientation); err != nil {
			return fmt.Errorf("failed to insert mapping %s: %w", m.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mappings: %w", err)
	}
	return nil
}

// Mappings returns the thumbnail mappings recorded for workdir ordered by
// thumbnail name.
func (h *HistoryDB) Mappings(ctx context.Context, workdir string) ([]model.Mapping, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT name, source, orientation FROM thumbnails
	WHERE workdir = ?
	ORDER BY name
	`, workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to get mappings: %w", err)
	}
	defer rows.Close()

	var mappings []model.Mapping
	for rows.Next() {
		var m model.Mapping
		if err := rows.Scan(&m.Name, &m.Source, &m.Orientation); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// LookupSource returns the source image of thumbnail name in workdir.
func (h *HistoryDB) LookupSource(ctx context.Context, workdir, name string) (string, error) {
	var source string
	err := h.db.QueryRowContext(ctx,
		`SELECT source FROM thumbnails WHERE workdir = ? AND name = ?`,
		workdir, name,
	).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrMappingNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up mapping: %w", err)
	}
	return source, nil
}

// scanRun reads one row selected with runColumns.
func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run           Run
		detectorsJSON string
		startedAt     string
		elapsed       int64
	)
	if err := rows.Scan(&run.ID, &run.WorkDir, &detectorsJSON, &run.Images, &run.Failed,
		&run.Unique, &run.Groups, &startedAt, &elapsed); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(detectorsJSON), &run.Detectors); err != nil {
		return nil, fmt.Errorf("failed to parse detectors of run %s: %w", run.ID, err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.Elapsed = time.Duration(elapsed)
	return &run, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
