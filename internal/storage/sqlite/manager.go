package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
)

// querier abstracts *sql.DB and *sql.Tx so table storages run against
// whichever handle the manager currently owns.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Manager is the signal store facade: one connection, one optional
// open transaction, and the five fact-table storages.
type Manager struct {
	db     *SQLiteDB
	logger arbor.ILogger

	mu sync.Mutex
	tx *sql.Tx

	Ratings       *RatingStorage
	Metrics       *MetricStorage
	PriceTargets  *PriceTargetStorage
	Entities      *EntityStorage
	Relationships *RelationshipStorage
}

// NewManager opens the signal store and wires the table storages.
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (*Manager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}
	return newManager(db, logger), nil
}

// NewUnavailableManager returns a manager whose every operation is a
// no-op returning zero values. Used when the store cannot be opened so
// ingestion degrades to semantic-only persistence instead of failing.
func NewUnavailableManager(logger arbor.ILogger) *Manager {
	return newManager(nil, logger)
}

func newManager(db *SQLiteDB, logger arbor.ILogger) *Manager {
	m := &Manager{db: db, logger: logger}
	m.Ratings = &RatingStorage{m: m, logger: logger}
	m.Metrics = &MetricStorage{m: m, logger: logger}
	m.PriceTargets = &PriceTargetStorage{m: m, logger: logger}
	m.Entities = &EntityStorage{m: m, logger: logger}
	m.Relationships = &RelationshipStorage{m: m, logger: logger}
	return m
}

// Available reports whether the backing database is usable.
func (m *Manager) Available() bool {
	return m != nil && m.db != nil
}

// Begin opens the manager transaction. Callers compose multi-table
// writes per document between Begin and Commit; Rollback undoes them
// without affecting other committed documents.
func (m *Manager) Begin(ctx context.Context) error {
	if !m.Available() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	tx, err := m.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	m.tx = tx
	return nil
}

// Commit commits the open manager transaction.
func (m *Manager) Commit() error {
	if !m.Available() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	err := m.tx.Commit()
	m.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the open manager transaction. Safe to call when no
// transaction is open.
func (m *Manager) Rollback() error {
	if !m.Available() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return nil
	}
	err := m.tx.Rollback()
	m.tx = nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// q returns the active transaction if one is open, the raw connection
// otherwise.
func (m *Manager) q() querier {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tx != nil {
		return m.tx
	}
	return m.db.db
}

// inTx reports whether a manager transaction is open. Batch inserts
// join it instead of opening their own.
func (m *Manager) inTx() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx != nil
}

// Close rolls back any open transaction and closes the database.
func (m *Manager) Close() error {
	if !m.Available() {
		return nil
	}
	m.Rollback()
	return m.db.Close()
}
