package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// ErrStoreLocked is returned when another process already owns the store.
var ErrStoreLocked = errors.New("job store is locked by another process")

// Open initializes or connects to the job database at path and acquires the
// single-writer lock. The caller must Close the store to release the lock.
func Open(path string) (*Store, error) {
	lock := flock.New(lockPath(path))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, ErrStoreLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path, lock: lock}, nil
}

// Close closes the database connection and releases the writer lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Register inserts a new pending job for key unless one already exists.
// Re-registering an existing key is a no-op: accumulated stage outputs are
// never overwritten by a re-scan.
func (s *Store) Register(ctx context.Context, key, contextLabel string) error {
	if key == "" {
		return errors.New("job key must not be empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (source_path, context, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(source_path) DO NOTHING`,
		key,
		contextLabel,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	return nil
}

// Get fetches a job by key. Returns nil when the key is unknown.
func (s *Store) Get(ctx context.Context, key string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE source_path = ?`, key)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update atomically advances a job's status and merges the supplied fields,
// stamping updated_at. Unknown keys are a silent no-op; callers must register
// before updating. Status never moves backwards: an update carrying an
// earlier status keeps the stored one while still merging fields.
func (s *Store) Update(ctx context.Context, key string, status Status, fields Fields) error {
	if _, ok := statusRank[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}

	current, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}

	next := status
	if next.Before(current.Status) {
		next = current.Status
	}

	proxyPath := mergeColumn(current.ProxyPath, fields.ProxyPath)
	remoteName := mergeColumn(current.RemoteName, fields.RemoteName)
	remoteURI := mergeColumn(current.RemoteURI, fields.RemoteURI)
	analysisJSON := mergeColumn(current.AnalysisJSON, fields.AnalysisJSON)
	errorMessage := mergeColumn(current.ErrorMessage, fields.ErrorMessage)
	if fields.ClearError {
		errorMessage = ""
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, proxy_path = ?, remote_name = ?, remote_uri = ?,
             analysis_json = ?, error_message = ?, updated_at = ?
         WHERE source_path = ?`,
		next,
		nullableString(proxyPath),
		nullableString(remoteName),
		nullableString(remoteURI),
		nullableString(analysisJSON),
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		key,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ByStatus returns jobs matching exactly the given status. Order is stable
// within one store but callers must not depend on it across runs.
func (s *Store) ByStatus(ctx context.Context, status Status) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, source_path`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// List returns all jobs ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at, source_path`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const jobColumns = "source_path, context, status, created_at, updated_at, proxy_path, remote_name, remote_uri, analysis_json, error_message"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		key          string
		contextLabel string
		statusStr    string
		createdRaw   string
		updatedRaw   string
		proxyPath    sql.NullString
		remoteName   sql.NullString
		remoteURI    sql.NullString
		analysisJSON sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(
		&key,
		&contextLabel,
		&statusStr,
		&createdRaw,
		&updatedRaw,
		&proxyPath,
		&remoteName,
		&remoteURI,
		&analysisJSON,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	job := &Job{
		Key:          key,
		Context:      contextLabel,
		Status:       Status(statusStr),
		ProxyPath:    proxyPath.String,
		RemoteName:   remoteName.String,
		RemoteURI:    remoteURI.String,
		AnalysisJSON: analysisJSON.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func mergeColumn(current, incoming string) string {
	if incoming == "" {
		return current
	}
	return incoming
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func lockPath(dbPath string) string {
	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)
	return filepath.Join(dir, "."+base+".lock")
}
