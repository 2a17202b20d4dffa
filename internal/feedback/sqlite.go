package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pft-interpreter-server/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReview scans a row into a Review struct.
func scanReview(s scanner) (*Review, error) {
	r := &Review{}
	var enginePattern, engineSeverity, reviewerPattern, reviewerSeverity string

	err := s.Scan(
		&r.ID, &r.ReportID, &r.Reviewer,
		&enginePattern, &engineSeverity,
		&reviewerPattern, &reviewerSeverity, &r.ReviewerAgreed,
		&r.ExpertImpression, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.EnginePattern = domain.Pattern(enginePattern)
	r.EngineSeverity = domain.Severity(engineSeverity)
	r.ReviewerPattern = domain.Pattern(reviewerPattern)
	r.ReviewerSeverity = domain.Severity(reviewerSeverity)
	return r, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		reviewer TEXT NOT NULL DEFAULT '',
		engine_pattern TEXT NOT NULL,
		engine_severity TEXT NOT NULL DEFAULT '',
		reviewer_pattern TEXT NOT NULL,
		reviewer_severity TEXT NOT NULL DEFAULT '',
		reviewer_agreed INTEGER NOT NULL DEFAULT 0,
		expert_impression TEXT DEFAULT '',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(report_id, reviewer)
	);

	CREATE INDEX IF NOT EXISTS idx_report_id ON reviews(report_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates one reviewer's feedback for a report.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	if review.ReportID == "" {
		return fmt.Errorf("save review: report ID is required")
	}
	if !review.ReviewerPattern.IsValid() {
		return fmt.Errorf("save review: %w", domain.ErrInvalidPattern)
	}

	now := time.Now()

	// Check if exists
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM reviews WHERE report_id = ? AND reviewer = ?",
		review.ReportID, review.Reviewer,
	).Scan(&existingID)

	if err == nil {
		// Update existing
		review.ID = existingID
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE reviews SET
				engine_pattern = ?,
				engine_severity = ?,
				reviewer_pattern = ?,
				reviewer_severity = ?,
				reviewer_agreed = ?,
				expert_impression = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(review.EnginePattern),
			string(review.EngineSeverity),
			string(review.ReviewerPattern),
			string(review.ReviewerSeverity),
			review.ReviewerAgreed,
			review.ExpertImpression,
			review.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("save review: %w", err)
	}

	// Insert new
	review.CreatedAt = now
	review.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (
			report_id, reviewer,
			engine_pattern, engine_severity,
			reviewer_pattern, reviewer_severity, reviewer_agreed,
			expert_impression, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.ReportID, review.Reviewer,
		string(review.EnginePattern), string(review.EngineSeverity),
		string(review.ReviewerPattern), string(review.ReviewerSeverity), review.ReviewerAgreed,
		review.ExpertImpression, review.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}

	review.ID, _ = res.LastInsertId()
	return nil
}

// Get retrieves one reviewer's feedback for a report.
func (s *SQLiteStore) Get(ctx context.Context, reportID, reviewer string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, reviewer,
			engine_pattern, engine_severity,
			reviewer_pattern, reviewer_severity, reviewer_agreed,
			expert_impression, notes, created_at, updated_at
		FROM reviews WHERE report_id = ? AND reviewer = ?
	`, reportID, reviewer)

	review, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListRecent returns the most recent reviews, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, reviewer,
			engine_pattern, engine_severity,
			reviewer_pattern, reviewer_severity, reviewer_agreed,
			expert_impression, notes, created_at, updated_at
		FROM reviews ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("list reviews: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// GetStats summarizes reviewer agreement with the engine.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(reviewer_agreed), 0),
			COALESCE(SUM(CASE WHEN engine_pattern = reviewer_pattern THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN engine_severity = reviewer_severity THEN 1 ELSE 0 END), 0)
		FROM reviews
	`).Scan(&stats.Total, &stats.Agreed, &stats.PatternMatches, &stats.SeverityMatches)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	if stats.Total > 0 {
		stats.AgreementRate = float64(stats.Agreed) / float64(stats.Total)
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
