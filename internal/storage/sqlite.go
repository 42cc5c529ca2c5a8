package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kensa/internal/models"
)

// SQLiteStorage implements HistoryStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		review_model TEXT NOT NULL,
		embed_model TEXT NOT NULL,
		decision TEXT NOT NULL,
		no_result INTEGER NOT NULL,
		blockers INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		nits INTEGER NOT NULL,
		context_chunks INTEGER NOT NULL,
		diff_chars INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_review_runs_created_at ON review_runs(created_at);

	CREATE TABLE IF NOT EXISTS review_comments (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		inline INTEGER NOT NULL,
		file TEXT,
		line INTEGER,
		severity TEXT,
		comment TEXT NOT NULL,
		snippet TEXT,
		PRIMARY KEY (run_id, inline, position),
		FOREIGN KEY (run_id) REFERENCES review_runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun inserts a run and its comments in one transaction. CreatedAt is set if zero.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *models.ReviewRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_runs (id, created_at, review_model, embed_model, decision, no_result,
		   blockers, warnings, nits, context_chunks, diff_chars)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.ReviewModel, run.EmbedModel, string(run.Decision), run.NoResult,
		run.Counts.Blocker, run.Counts.Warning, run.Counts.Nit, run.ContextChunks, run.DiffChars,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO review_comments (run_id, position, inline, file, line, severity, comment, snippet)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range run.Findings {
		if _, err := stmt.ExecContext(ctx, run.ID, i, true, f.File, f.Line, string(f.Severity), f.Comment, f.Snippet); err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}
	for i, g := range run.General {
		if _, err := stmt.ExecContext(ctx, run.ID, i, false, g.File, nil, nil, g.Comment, nil); err != nil {
			return fmt.Errorf("failed to insert remark: %w", err)
		}
	}
	return tx.Commit()
}

// GetRun returns a run with its comments.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.ReviewRun, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadComments(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first, without their comments.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.ReviewRun, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ReviewRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of recorded runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const selectRuns = `SELECT id, created_at, review_model, embed_model, decision, no_result,
	blockers, warnings, nits, context_chunks, diff_chars FROM review_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*models.ReviewRun, error) {
	var run models.ReviewRun
	var decision string
	err := sc.Scan(&run.ID, &run.CreatedAt, &run.ReviewModel, &run.EmbedModel, &decision, &run.NoResult,
		&run.Counts.Blocker, &run.Counts.Warning, &run.Counts.Nit, &run.ContextChunks, &run.DiffChars)
	if err != nil {
		return nil, err
	}
	run.Decision = models.Decision(decision)
	return &run, nil
}

func (s *SQLiteStorage) loadComments(ctx context.Context, run *models.ReviewRun) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT inline, file, line, severity, comment, snippet
		 FROM review_comments WHERE run_id = ? ORDER BY inline DESC, position`, run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var inline bool
		var file, severity, snippet sql.NullString
		var line sql.NullInt64
		var comment string
		if err := rows.Scan(&inline, &file, &line, &severity, &comment, &snippet); err != nil {
			return err
		}
		if inline {
			run.Findings = append(run.Findings, models.Finding{
				File:     file.String,
				Line:     int(line.Int64),
				Severity: models.Severity(severity.String),
				Comment:  comment,
				Snippet:  snippet.String,
			})
		} else {
			run.General = append(run.General, models.Remark{File: file.String, Comment: comment})
		}
	}
	return rows.Err()
}

var _ HistoryStore = (*SQLiteStorage)(nil)
