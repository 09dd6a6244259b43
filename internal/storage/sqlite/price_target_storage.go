package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// PriceTargetStorage handles price target persistence
type PriceTargetStorage struct {
	m      *Manager
	logger arbor.ILogger
}

func validatePriceTarget(pt models.PriceTarget) error {
	if pt.Ticker == "" {
		return fmt.Errorf("price target missing ticker")
	}
	if pt.TargetPrice <= 0 {
		return fmt.Errorf("price target missing target_price")
	}
	if pt.SourceDocumentID == "" {
		return fmt.Errorf("price target missing source_document_id")
	}
	return nil
}

// Insert stores one price target observation and returns its row id.
func (s *PriceTargetStorage) Insert(ctx context.Context, pt models.PriceTarget) (int64, error) {
	if err := validatePriceTarget(pt); err != nil {
		return 0, err
	}
	if !s.m.Available() {
		return 0, nil
	}
	if pt.Timestamp.IsZero() {
		pt.Timestamp = time.Now()
	}
	if pt.Currency == "" {
		pt.Currency = "USD"
	}

	result, err := s.m.q().ExecContext(ctx, `
		INSERT INTO price_targets (ticker, analyst, firm, target_price, currency, confidence, timestamp, source_document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, pt.Ticker, pt.Analyst, pt.Firm, pt.TargetPrice, pt.Currency, pt.Confidence, pt.Timestamp.Unix(), pt.SourceDocumentID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert price target: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch stores price targets all-or-nothing, joining the manager
// transaction when one is open.
func (s *PriceTargetStorage) InsertBatch(ctx context.Context, targets []models.PriceTarget) error {
	if len(targets) == 0 {
		return nil
	}
	for i, pt := range targets {
		if err := validatePriceTarget(pt); err != nil {
			return fmt.Errorf("price target %d: %w", i, err)
		}
	}
	if !s.m.Available() {
		return nil
	}

	if s.m.inTx() {
		for _, pt := range targets {
			if _, err := s.Insert(ctx, pt); err != nil {
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
		INSERT INTO price_targets (ticker, analyst, firm, target_price, currency, confidence, timestamp, source_document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, pt := range targets {
		if pt.Timestamp.IsZero() {
			pt.Timestamp = time.Now()
		}
		if pt.Currency == "" {
			pt.Currency = "USD"
		}
		if _, err := stmt.ExecContext(ctx,
			pt.Ticker, pt.Analyst, pt.Firm, pt.TargetPrice, pt.Currency, pt.Confidence, pt.Timestamp.Unix(), pt.SourceDocumentID,
		); err != nil {
			return fmt.Errorf("failed to insert price target: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLatest returns the most recent price target for a ticker, or nil.
func (s *PriceTargetStorage) GetLatest(ctx context.Context, ticker string) (*models.PriceTarget, error) {
	if !s.m.Available() {
		return nil, nil
	}

	row := s.m.q().QueryRowContext(ctx, `
		SELECT id, ticker, analyst, firm, target_price, currency, confidence, timestamp, source_document_id
		FROM price_targets
		WHERE ticker = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, ticker)

	pt, err := scanPriceTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest price target: %w", err)
	}
	return pt, nil
}

// GetHistory returns up to limit price targets for a ticker, newest first.
func (s *PriceTargetStorage) GetHistory(ctx context.Context, ticker string, limit int) ([]models.PriceTarget, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, ticker, analyst, firm, target_price, currency, confidence, timestamp, source_document_id
		FROM price_targets
		WHERE ticker = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price target history: %w", err)
	}
	defer rows.Close()

	return collectPriceTargets(rows)
}

// GetByFirm returns up to limit price targets issued by a firm, newest first.
func (s *PriceTargetStorage) GetByFirm(ctx context.Context, firm string, limit int) ([]models.PriceTarget, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, ticker, analyst, firm, target_price, currency, confidence, timestamp, source_document_id
		FROM price_targets
		WHERE firm = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, firm, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price targets by firm: %w", err)
	}
	defer rows.Close()

	return collectPriceTargets(rows)
}

// Count returns the total number of stored price targets.
func (s *PriceTargetStorage) Count(ctx context.Context) (int, error) {
	if !s.m.Available() {
		return 0, nil
	}

	var count int
	if err := s.m.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM price_targets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count price targets: %w", err)
	}
	return count, nil
}

func scanPriceTarget(row rowScanner) (*models.PriceTarget, error) {
	var pt models.PriceTarget
	var ts int64
	if err := row.Scan(&pt.ID, &pt.Ticker, &pt.Analyst, &pt.Firm, &pt.TargetPrice, &pt.Currency, &pt.Confidence, &ts, &pt.SourceDocumentID); err != nil {
		return nil, err
	}
	pt.Timestamp = time.Unix(ts, 0)
	return &pt, nil
}

func collectPriceTargets(rows *sql.Rows) ([]models.PriceTarget, error) {
	var targets []models.PriceTarget
	for rows.Next() {
		pt, err := scanPriceTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price target: %w", err)
		}
		targets = append(targets, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price targets: %w", err)
	}
	return targets, nil
}
