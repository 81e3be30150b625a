package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/okikae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		find_term TEXT NOT NULL,
		replace_term TEXT NOT NULL,
		case_sensitive INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		count INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun implements Storage. Archive contents are not persisted, only the
// per-file report.
func (s *SQLiteStorage) SaveRun(ctx context.Context, summary *models.BatchSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, find_term, replace_term, case_sensitive, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		summary.ID, summary.Request.Find, summary.Request.Replace,
		summary.Request.CaseSensitive, summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, o := range summary.Outcomes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_files (run_id, position, filename, status, count, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			summary.ID, i, o.Filename, string(o.Status), o.Count, o.Error,
		)
		if err != nil {
			return fmt.Errorf("insert outcome %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun implements Storage.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.BatchSummary, error) {
	summary := &models.BatchSummary{}
	var caseSensitive bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, find_term, replace_term, case_sensitive, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&summary.ID, &summary.Request.Find, &summary.Request.Replace, &caseSensitive, &summary.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	summary.Request.CaseSensitive = caseSensitive

	if err := s.loadOutcomes(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// ListRuns implements Storage.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*models.BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, find_term, replace_term, case_sensitive, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.BatchSummary
	for rows.Next() {
		summary := &models.BatchSummary{}
		var caseSensitive bool
		if err := rows.Scan(&summary.ID, &summary.Request.Find, &summary.Request.Replace, &caseSensitive, &summary.CreatedAt); err != nil {
			return nil, err
		}
		summary.Request.CaseSensitive = caseSensitive
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, summary := range summaries {
		if err := s.loadOutcomes(ctx, summary); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func (s *SQLiteStorage) loadOutcomes(ctx context.Context, summary *models.BatchSummary) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, status, count, error
		 FROM run_files WHERE run_id = ? ORDER BY position`, summary.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		o := &models.Outcome{}
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&o.Filename, &status, &o.Count, &errMsg); err != nil {
			return err
		}
		o.Status = models.OutcomeStatus(status)
		o.Error = errMsg.String
		summary.Outcomes = append(summary.Outcomes, o)
	}
	return rows.Err()
}

// CountRuns implements Storage.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Close implements Storage.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
