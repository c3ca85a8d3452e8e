package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/southctrl/yt-cipher/internal/model"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    player_url  TEXT NOT NULL,
    worker_id   INTEGER NOT NULL,
    sig_count   INTEGER NOT NULL,
    nsig_count  INTEGER NOT NULL,
    error       TEXT NOT NULL,
    wait_ms     INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    queued_at   DATETIME NOT NULL,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
)`

const createPlayersTable = `
CREATE TABLE IF NOT EXISTS players (
    player_key TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    size       INTEGER NOT NULL,
    fetched_at DATETIME NOT NULL
)`

const jobColumns = `id, status, player_url, worker_id, sig_count, nsig_count,
	error, wait_ms, duration_ms, queued_at, started_at, finished_at`

// ErrNotFound is returned when a job is not found.
var ErrNotFound = errors.New("job not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: opens its own empty database.
	if dbPath == memoryDSN {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for name, ddl := range map[string]string{"jobs": createJobsTable, "players": createPlayersTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create %s table: %w", name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordJob inserts the history row of a settled job.
func (s *SQLiteStore) RecordJob(ctx context.Context, j *model.JobRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Status, j.PlayerURL, j.WorkerID, j.SigCount, j.NSigCount,
		j.Error, j.WaitMS, j.DurationMS, j.QueuedAt, j.StartedAt, j.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*model.JobRecord, error) {
	j := &model.JobRecord{}
	err := r.Scan(
		&j.ID, &j.Status, &j.PlayerURL, &j.WorkerID, &j.SigCount, &j.NSigCount,
		&j.Error, &j.WaitMS, &j.DurationMS, &j.QueuedAt, &j.StartedAt, &j.FinishedAt,
	)
	return j, err
}

// GetJob retrieves a job record by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListJobs returns a paginated list of jobs ordered by finished_at DESC,
// along with the total count of all jobs.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit, offset int) ([]*model.JobRecord, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY finished_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, total, nil
}

// GetJobStats aggregates counts and average latencies over all recorded jobs.
func (s *SQLiteStore) GetJobStats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{
		CountByStatus: make(map[string]int),
		CountByWorker: make(map[int]int),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(wait_ms), 0), COALESCE(AVG(duration_ms), 0) FROM jobs`,
	).Scan(&stats.Total, &stats.AvgWaitMS, &stats.AvgDurationMS)
	if err != nil {
		return nil, fmt.Errorf("aggregate jobs: %w", err)
	}

	if err := s.countBy(ctx, "status", func(rows *sql.Rows) error {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		stats.CountByStatus[status] = n
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.countBy(ctx, "worker_id", func(rows *sql.Rows) error {
		var worker, n int
		if err := rows.Scan(&worker, &n); err != nil {
			return err
		}
		stats.CountByWorker[worker] = n
		return nil
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy runs a GROUP BY count over one jobs column. column is always a
// constant supplied by this package.
func (s *SQLiteStore) countBy(ctx context.Context, column string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM jobs GROUP BY "+column,
	)
	if err != nil {
		return fmt.Errorf("count jobs by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}

// UpsertPlayer records a persisted player script in the cache manifest.
// A refetch of the same key replaces the previous row.
func (s *SQLiteStore) UpsertPlayer(ctx context.Context, p *model.PlayerEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (player_key, url, size, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(player_key) DO UPDATE SET url = excluded.url, size = excluded.size,
			fetched_at = excluded.fetched_at`,
		p.Key, p.URL, p.Size, p.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// ListPlayers returns every manifest entry, most recently fetched first.
func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]*model.PlayerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_key, url, size, fetched_at FROM players ORDER BY fetched_at DESC, player_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []*model.PlayerEntry
	for rows.Next() {
		p := &model.PlayerEntry{}
		if err := rows.Scan(&p.Key, &p.URL, &p.Size, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}
