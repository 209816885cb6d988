package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobdeck/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS seen_jobs (
		job_id     TEXT PRIMARY KEY,
		first_seen INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seeded_searches (
		name      TEXT PRIMARY KEY,
		seeded_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS saved_jobs (
		job_id     TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		company    TEXT NOT NULL DEFAULT '',
		saved_at   INTEGER NOT NULL,
		applied_at INTEGER
	)`,
}

// SQLiteStore keeps seen job IDs for watches and the user's saved and
// applied jobs. Timestamps are stored as Unix seconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// HasSeen returns true if the given job ID has already been recorded.
func (s *SQLiteStore) HasSeen(jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seen_jobs WHERE job_id = ?", jobID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", jobID, err)
	}
	return true, nil
}

// MarkSeen records a job ID as seen. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkSeen(jobID string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO seen_jobs (job_id, first_seen) VALUES (?, ?)", jobID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("marking job %s as seen: %w", jobID, err)
	}
	return nil
}

// Cleanup deletes seen-job entries older than the given duration. Saved
// jobs are never cleaned up.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan).Unix()
	_, err := s.db.Exec("DELETE FROM seen_jobs WHERE first_seen < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up seen jobs older than %v: %w", olderThan, err)
	}
	return nil
}

// IsSeeded returns true once the named search has completed its first poll.
func (s *SQLiteStore) IsSeeded(search string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM seeded_searches WHERE name = ?", search).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seeded status for %s: %w", search, err)
	}
	return true, nil
}

// MarkSeeded records that the named search has its backlog in seen_jobs.
// Cleanup never removes it.
func (s *SQLiteStore) MarkSeeded(search string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO seeded_searches (name, seeded_at) VALUES (?, ?)", search, s.now().Unix())
	if err != nil {
		return fmt.Errorf("marking search %s as seeded: %w", search, err)
	}
	return nil
}

// MarkSaved records a saved job. Saving again refreshes the title and
// company but keeps the original save time.
func (s *SQLiteStore) MarkSaved(job model.Job) error {
	_, err := s.db.Exec(`INSERT INTO saved_jobs (job_id, title, company, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET title = excluded.title, company = excluded.company`,
		job.ID, job.Title, job.Company.Name, s.now().Unix())
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

// Unsave removes a saved job. Removing an unknown job is a no-op.
func (s *SQLiteStore) Unsave(jobID string) error {
	if _, err := s.db.Exec("DELETE FROM saved_jobs WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("unsaving job %s: %w", jobID, err)
	}
	return nil
}

// IsSaved returns true if the job is saved.
func (s *SQLiteStore) IsSaved(jobID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM saved_jobs WHERE job_id = ?", jobID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking saved status for %s: %w", jobID, err)
	}
	return true, nil
}

// MarkApplied records an application, saving the job first if needed.
func (s *SQLiteStore) MarkApplied(job model.Job) error {
	now := s.now().Unix()
	_, err := s.db.Exec(`INSERT INTO saved_jobs (job_id, title, company, saved_at, applied_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET applied_at = excluded.applied_at`,
		job.ID, job.Title, job.Company.Name, now, now)
	if err != nil {
		return fmt.Errorf("marking job %s as applied: %w", job.ID, err)
	}
	return nil
}

// ListSaved returns saved jobs, most recently saved first.
func (s *SQLiteStore) ListSaved() ([]model.SavedJob, error) {
	rows, err := s.db.Query("SELECT job_id, title, company, saved_at, applied_at FROM saved_jobs ORDER BY saved_at DESC, job_id")
	if err != nil {
		return nil, fmt.Errorf("listing saved jobs: %w", err)
	}
	defer rows.Close()

	var out []model.SavedJob
	for rows.Next() {
		var (
			sj        model.SavedJob
			savedAt   int64
			appliedAt sql.NullInt64
		)
		if err := rows.Scan(&sj.ID, &sj.Title, &sj.Company, &savedAt, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning saved job: %w", err)
		}
		sj.SavedAt = time.Unix(savedAt, 0)
		if appliedAt.Valid {
			t := time.Unix(appliedAt.Int64, 0)
			sj.AppliedAt = &t
		}
		out = append(out, sj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing saved jobs: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
