package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// RatingStorage handles analyst rating persistence
type RatingStorage struct {
	m      *Manager
	logger arbor.ILogger
}

func validateRating(r models.Rating) error {
	if r.Ticker == "" {
		return fmt.Errorf("rating missing ticker")
	}
	if r.Rating == "" {
		return fmt.Errorf("rating missing rating label")
	}
	if r.SourceDocumentID == "" {
		return fmt.Errorf("rating missing source_document_id")
	}
	return nil
}

// Insert stores one rating observation and returns its row id.
func (s *RatingStorage) Insert(ctx context.Context, r models.Rating) (int64, error) {
	if err := validateRating(r); err != nil {
		return 0, err
	}
	if !s.m.Available() {
		return 0, nil
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	result, err := s.m.q().ExecContext(ctx, `
		INSERT INTO ratings (ticker, analyst, firm, rating, confidence, timestamp, source_document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Ticker, r.Analyst, r.Firm, r.Rating, r.Confidence, r.Timestamp.Unix(), r.SourceDocumentID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert rating: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch stores ratings all-or-nothing. When the manager has an
// open transaction the batch joins it; otherwise it runs in its own.
func (s *RatingStorage) InsertBatch(ctx context.Context, ratings []models.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// Malformed input is a programming error: fail before any write
	for i, r := range ratings {
		if err := validateRating(r); err != nil {
			return fmt.Errorf("rating %d: %w", i, err)
		}
	}
	if !s.m.Available() {
		return nil
	}

	if s.m.inTx() {
		for _, r := range ratings {
			if _, err := s.Insert(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := s.m.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ratings (ticker, analyst, firm, rating, confidence, timestamp, source_document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range ratings {
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.Ticker, r.Analyst, r.Firm, r.Rating, r.Confidence, r.Timestamp.Unix(), r.SourceDocumentID,
		); err != nil {
			return fmt.Errorf("failed to insert rating: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLatest returns the most recent rating for a ticker, or nil when
// none is stored.
func (s *RatingStorage) GetLatest(ctx context.Context, ticker string) (*models.Rating, error) {
	if !s.m.Available() {
		return nil, nil
	}

	row := s.m.q().QueryRowContext(ctx, `
		SELECT id, ticker, analyst, firm, rating, confidence, timestamp, source_document_id
		FROM ratings
		WHERE ticker = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, ticker)

	r, err := scanRating(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest rating: %w", err)
	}
	return r, nil
}

// GetHistory returns up to limit ratings for a ticker, newest first.
func (s *RatingStorage) GetHistory(ctx context.Context, ticker string, limit int) ([]models.Rating, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, ticker, analyst, firm, rating, confidence, timestamp, source_document_id
		FROM ratings
		WHERE ticker = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	return collectRatings(rows)
}

// GetByFirm returns up to limit ratings issued by a firm, newest first.
func (s *RatingStorage) GetByFirm(ctx context.Context, firm string, limit int) ([]models.Rating, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, ticker, analyst, firm, rating, confidence, timestamp, source_document_id
		FROM ratings
		WHERE firm = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, firm, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings by firm: %w", err)
	}
	defer rows.Close()

	return collectRatings(rows)
}

// Count returns the total number of stored ratings.
func (s *RatingStorage) Count(ctx context.Context) (int, error) {
	if !s.m.Available() {
		return 0, nil
	}

	var count int
	if err := s.m.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRating(row rowScanner) (*models.Rating, error) {
	var r models.Rating
	var ts int64
	if err := row.Scan(&r.ID, &r.Ticker, &r.Analyst, &r.Firm, &r.Rating, &r.Confidence, &ts, &r.SourceDocumentID); err != nil {
		return nil, err
	}
	r.Timestamp = time.Unix(ts, 0)
	return &r, nil
}

func collectRatings(rows *sql.Rows) ([]models.Rating, error) {
	var ratings []models.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return ratings, nil
}
