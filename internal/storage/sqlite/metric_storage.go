package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// MetricStorage handles financial metric persistence
type MetricStorage struct {
	m      *Manager
	logger arbor.ILogger
}

func validateMetric(m models.Metric) error {
	if m.Ticker == "" {
		return fmt.Errorf("metric missing ticker")
	}
	if m.MetricType == "" {
		return fmt.Errorf("metric missing metric_type")
	}
	if m.MetricValue == "" {
		return fmt.Errorf("metric missing metric_value")
	}
	if m.SourceDocumentID == "" {
		return fmt.Errorf("metric missing source_document_id")
	}
	return nil
}

// Insert stores one metric observation and returns its row id.
func (s *MetricStorage) Insert(ctx context.Context, m models.Metric) (int64, error) {
	if err := validateMetric(m); err != nil {
		return 0, err
	}
	if !s.m.Available() {
		return 0, nil
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	result, err := s.m.q().ExecContext(ctx, `
		INSERT INTO metrics (ticker, metric_type, metric_value, period, confidence, source_document_id, table_index, row_index, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Ticker, m.MetricType, m.MetricValue, m.Period, m.Confidence, m.SourceDocumentID, m.TableIndex, m.RowIndex, m.Timestamp.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert metric: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch stores metrics all-or-nothing, joining the manager
// transaction when one is open.
func (s *MetricStorage) InsertBatch(ctx context.Context, metrics []models.Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	for i, m := range metrics {
		if err := validateMetric(m); err != nil {
			return fmt.Errorf("metric %d: %w", i, err)
		}
	}
	if !s.m.Available() {
		return nil
	}

	if s.m.inTx() {
		for _, m := range metrics {
			if _, err := s.Insert(ctx, m); err != nil {
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
		INSERT INTO metrics (ticker, metric_type, metric_value, period, confidence, source_document_id, table_index, row_index, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			m.Ticker, m.MetricType, m.MetricValue, m.Period, m.Confidence, m.SourceDocumentID, m.TableIndex, m.RowIndex, m.Timestamp.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLatest returns the most recent observation of a metric type for a
// ticker, or nil when none is stored.
func (s *MetricStorage) GetLatest(ctx context.Context, ticker, metricType string) (*models.Metric, error) {
	if !s.m.Available() {
		return nil, nil
	}

	row := s.m.q().QueryRowContext(ctx, `
		SELECT id, ticker, metric_type, metric_value, period, confidence, source_document_id, table_index, row_index, timestamp
		FROM metrics
		WHERE ticker = ? AND metric_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, ticker, metricType)

	m, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metric: %w", err)
	}
	return m, nil
}

// GetByPeriod returns the most recent observation of a metric type for
// a specific reporting period, or nil.
func (s *MetricStorage) GetByPeriod(ctx context.Context, ticker, metricType, period string) (*models.Metric, error) {
	if !s.m.Available() {
		return nil, nil
	}

	row := s.m.q().QueryRowContext(ctx, `
		SELECT id, ticker, metric_type, metric_value, period, confidence, source_document_id, table_index, row_index, timestamp
		FROM metrics
		WHERE ticker = ? AND metric_type = ? AND period = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, ticker, metricType, period)

	m, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metric by period: %w", err)
	}
	return m, nil
}

// GetHistory returns up to limit observations of a metric type for a
// ticker, newest first.
func (s *MetricStorage) GetHistory(ctx context.Context, ticker, metricType string, limit int) ([]models.Metric, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, ticker, metric_type, metric_value, period, confidence, source_document_id, table_index, row_index, timestamp
		FROM metrics
		WHERE ticker = ? AND metric_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, ticker, metricType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric history: %w", err)
	}
	defer rows.Close()

	var metrics []models.Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}
	return metrics, nil
}

// Count returns the total number of stored metrics.
func (s *MetricStorage) Count(ctx context.Context) (int, error) {
	if !s.m.Available() {
		return 0, nil
	}

	var count int
	if err := s.m.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return count, nil
}

func scanMetric(row rowScanner) (*models.Metric, error) {
	var m models.Metric
	var ts int64
	if err := row.Scan(&m.ID, &m.Ticker, &m.MetricType, &m.MetricValue, &m.Period, &m.Confidence, &m.SourceDocumentID, &m.TableIndex, &m.RowIndex, &ts); err != nil {
		return nil, err
	}
	m.Timestamp = time.Unix(ts, 0)
	return &m, nil
}
