package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"splitmerge/internal/chunk"
	"splitmerge/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed-width so started_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	runColumns = `id, started_at, finished_at, model, template_name, content_path,
        content_chars, content_digest, status, phase, split, chunk_count, chunk_chars,
        prompt_tokens, completion_tokens, tokens_limit, error_message`
)

// Store persists run records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Digest returns the hex BLAKE3 digest of content.
func Digest(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Begin records a new running entry. A run ID is generated when start.ID is empty.
func (s *Store) Begin(ctx context.Context, start Start) (*Run, error) {
	id := strings.TrimSpace(start.ID)
	if id == "" {
		id = uuid.NewString()
	}
	run := &Run{
		ID:            id,
		StartedAt:     time.Now().UTC(),
		Model:         start.Model,
		TemplateName:  start.TemplateName,
		ContentPath:   start.ContentPath,
		ContentChars:  chunk.Len(start.Content),
		ContentDigest: Digest(start.Content),
		Status:        StatusRunning,
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, model, template_name, content_path,
            content_chars, content_digest, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(timeLayout),
		run.Model,
		run.TemplateName,
		run.ContentPath,
		run.ContentChars,
		run.ContentDigest,
		string(run.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish stamps the final state on a run.
func (s *Store) Finish(ctx context.Context, id string, finish Finish) error {
	if finish.Status == "" || finish.Status == StatusRunning {
		return fmt.Errorf("finish run %s: terminal status required", id)
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, status = ?, phase = ?, split = ?,
                chunk_count = ?, chunk_chars = ?, prompt_tokens = ?,
                completion_tokens = ?, tokens_limit = ?, error_message = ?
            WHERE id = ?`,
			time.Now().UTC().Format(timeLayout),
			string(finish.Status),
			finish.Phase,
			boolToInt(finish.Split),
			finish.Chunks,
			finish.ChunkChars,
			finish.PromptTokens,
			finish.CompletionTokens,
			finish.TokensLimit,
			finish.Error,
			id,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// Get fetches one run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Clear deletes finished runs and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM runs WHERE status != ?", string(StatusRunning))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll deletes every run, including ones still marked running.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM runs")
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear all runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		status     string
		split      int
	)
	if err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.Model,
		&run.TemplateName,
		&run.ContentPath,
		&run.ContentChars,
		&run.ContentDigest,
		&status,
		&run.Phase,
		&split,
		&run.Chunks,
		&run.ChunkChars,
		&run.PromptTokens,
		&run.CompletionTokens,
		&run.TokensLimit,
		&run.Error,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Split = split != 0
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	return &run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
