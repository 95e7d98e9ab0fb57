// Package store persists fill-run records in Postgres and holds the
// distributed state (cancellation flags, cached wordlist/dupe-index blobs)
// that lets multiple fillserver instances share a run.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/hoverbird/ingrid-core/pkg/solver"
)

// FillRun is a persisted record of one submit-grid-for-filling request.
type FillRun struct {
	ID                 string     `json:"id"`
	Template           string     `json:"template"`
	MinScore           int        `json:"minScore"`
	MaxSharedSubstring int        `json:"maxSharedSubstring"`
	Status             string     `json:"status"` // "running", "completed", "failed"
	Grid               string     `json:"grid,omitempty"`
	States             int        `json:"states"`
	Backtracks         int        `json:"backtracks"`
	Retries            int        `json:"retries"`
	FailureReason      string     `json:"failureReason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store wraps a Postgres connection (run records) and a Redis client
// (distributed abort flags and cached collaborator blobs).
type Store struct {
	DB    *sql.DB
	Redis *redis.Client
}

func New(postgresURL, redisURL string) (*Store, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("store: failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: failed to ping postgres: %w", err)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("store: failed to ping redis: %w", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return err
	}
	return s.Redis.Close()
}

// InitSchema creates the fill_runs table if it does not already exist.
func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fill_runs (
		id VARCHAR(36) PRIMARY KEY,
		template TEXT NOT NULL,
		min_score INTEGER NOT NULL DEFAULT 0,
		max_shared_substring INTEGER NOT NULL DEFAULT 5,
		status VARCHAR(20) NOT NULL DEFAULT 'running',
		grid TEXT,
		states INTEGER NOT NULL DEFAULT 0,
		backtracks INTEGER NOT NULL DEFAULT 0,
		retries INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP
	);
	`
	_, err := s.DB.Exec(schema)
	return err
}

func (s *Store) CreateFillRun(run *FillRun) error {
	_, err := s.DB.Exec(`
		INSERT INTO fill_runs (id, template, min_score, max_shared_substring, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Template, run.MinScore, run.MaxSharedSubstring, run.Status, run.CreatedAt)
	return err
}

func (s *Store) GetFillRun(id string) (*FillRun, error) {
	run := &FillRun{}
	var grid, failureReason sql.NullString
	var completedAt sql.NullTime

	err := s.DB.QueryRow(`
		SELECT id, template, min_score, max_shared_substring, status, grid,
		       states, backtracks, retries, failure_reason, created_at, completed_at
		FROM fill_runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Template, &run.MinScore, &run.MaxSharedSubstring, &run.Status, &grid,
		&run.States, &run.Backtracks, &run.Retries, &failureReason, &run.CreatedAt, &completedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.Grid = grid.String
	run.FailureReason = failureReason.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// CompleteFillRun records a successful fill.
func (s *Store) CompleteFillRun(id, grid string, stats solver.Statistics) error {
	_, err := s.DB.Exec(`
		UPDATE fill_runs
		SET status = $2, grid = $3, states = $4, backtracks = $5, retries = $6, completed_at = $7
		WHERE id = $1
	`, id, StatusCompleted, grid, stats.States, stats.Backtracks, stats.Retries, time.Now())
	return err
}

// FailFillRun records a run that ended in solver.FillFailure.
func (s *Store) FailFillRun(id string, failure *solver.FillFailure) error {
	_, err := s.DB.Exec(`
		UPDATE fill_runs
		SET status = $2, backtracks = $3, failure_reason = $4, completed_at = $5
		WHERE id = $1
	`, id, StatusFailed, failure.Backtracks, failure.Error(), time.Now())
	return err
}

func (s *Store) ListRecentFillRuns(limit, offset int) ([]*FillRun, error) {
	rows, err := s.DB.Query(`
		SELECT id, template, min_score, max_shared_substring, status, grid,
		       states, backtracks, retries, failure_reason, created_at, completed_at
		FROM fill_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*FillRun
	for rows.Next() {
		run := &FillRun{}
		var grid, failureReason sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Template, &run.MinScore, &run.MaxSharedSubstring, &run.Status, &grid,
			&run.States, &run.Backtracks, &run.Retries, &failureReason, &run.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Grid = grid.String
		run.FailureReason = failureReason.String
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// abortKeyPrefix namespaces the distributed cancellation flag so a fill
// run's abort signal can be set by one fillserver instance (handling the
// cancel request) and observed by another (running the search).
const abortKeyPrefix = "ingrid:abort:"

func (s *Store) RequestAbort(ctx context.Context, runID string) error {
	return s.Redis.Set(ctx, abortKeyPrefix+runID, "1", time.Hour).Err()
}

func (s *Store) IsAbortRequested(ctx context.Context, runID string) (bool, error) {
	n, err := s.Redis.Exists(ctx, abortKeyPrefix+runID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ClearAbort(ctx context.Context, runID string) error {
	return s.Redis.Del(ctx, abortKeyPrefix+runID).Err()
}

// WatchAbort polls the distributed abort flag for runID every interval and
// flips abort once it is set, so a solver.Config's Abort field reflects a
// cancellation requested from any fillserver instance. It returns a stop
// function that ends the polling goroutine.
func (s *Store) WatchAbort(runID string, abort *atomic.Bool, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if requested, err := s.IsAbortRequested(ctx, runID); err == nil && requested {
					abort.Store(true)
					return
				}
			}
		}
	}()

	return cancel
}

const blobKeyPrefix = "ingrid:blob:"

// CacheBlob stores an arbitrary byte blob (a serialized wordlist or
// dupe-index) under key for ttl, so repeated runs against the same
// wordlist skip re-parsing it from disk.
func (s *Store) CacheBlob(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.Redis.Set(ctx, blobKeyPrefix+key, data, ttl).Err()
}

// GetCachedBlob returns the blob and true if present, or nil and false if
// the cache missed.
func (s *Store) GetCachedBlob(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.Redis.Get(ctx, blobKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
