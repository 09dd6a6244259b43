package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// EntityStorage handles graph entity persistence. Inserts upsert on
// entity_id so re-ingesting a document overwrites instead of
// duplicating.
type EntityStorage struct {
	m      *Manager
	logger arbor.ILogger
}

func validateEntity(e models.EntityRecord) error {
	if e.EntityID == "" {
		return fmt.Errorf("entity missing entity_id")
	}
	if e.EntityType == "" {
		return fmt.Errorf("entity missing entity_type")
	}
	if e.EntityName == "" {
		return fmt.Errorf("entity missing entity_name")
	}
	if e.SourceDocumentID == "" {
		return fmt.Errorf("entity missing source_document_id")
	}
	return nil
}

// Upsert inserts or overwrites the entity keyed by entity_id.
func (s *EntityStorage) Upsert(ctx context.Context, e models.EntityRecord) error {
	if err := validateEntity(e); err != nil {
		return err
	}
	if !s.m.Available() {
		return nil
	}

	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	_, err = s.m.q().ExecContext(ctx, `
		INSERT INTO entities (entity_id, entity_type, entity_name, confidence, source_document_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			entity_type = excluded.entity_type,
			entity_name = excluded.entity_name,
			confidence = excluded.confidence,
			source_document_id = excluded.source_document_id,
			metadata = excluded.metadata,
			updated_at = strftime('%s','now')
	`, e.EntityID, e.EntityType, e.EntityName, e.Confidence, e.SourceDocumentID, metadata)
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

// UpsertBatch upserts entities all-or-nothing, joining the manager
// transaction when one is open.
func (s *EntityStorage) UpsertBatch(ctx context.Context, entities []models.EntityRecord) error {
	if len(entities) == 0 {
		return nil
	}
	for i, e := range entities {
		if err := validateEntity(e); err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
	}
	if !s.m.Available() {
		return nil
	}

	if s.m.inTx() {
		for _, e := range entities {
			if err := s.Upsert(ctx, e); err != nil {
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
		INSERT INTO entities (entity_id, entity_type, entity_name, confidence, source_document_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			entity_type = excluded.entity_type,
			entity_name = excluded.entity_name,
			confidence = excluded.confidence,
			source_document_id = excluded.source_document_id,
			metadata = excluded.metadata,
			updated_at = strftime('%s','now')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		metadata, err := marshalMetadata(e.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.EntityID, e.EntityType, e.EntityName, e.Confidence, e.SourceDocumentID, metadata,
		); err != nil {
			return fmt.Errorf("failed to upsert entity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID returns the entity with the given entity_id, or nil.
func (s *EntityStorage) GetByID(ctx context.Context, entityID string) (*models.EntityRecord, error) {
	if !s.m.Available() {
		return nil, nil
	}

	row := s.m.q().QueryRowContext(ctx, `
		SELECT id, entity_id, entity_type, entity_name, confidence, source_document_id, metadata
		FROM entities
		WHERE entity_id = ?
	`, entityID)

	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return e, nil
}

// GetByType returns up to limit entities of one type.
func (s *EntityStorage) GetByType(ctx context.Context, entityType string, limit int) ([]models.EntityRecord, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, entity_id, entity_type, entity_name, confidence, source_document_id, metadata
		FROM entities
		WHERE entity_type = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities by type: %w", err)
	}
	defer rows.Close()

	var entities []models.EntityRecord
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return entities, nil
}

// Count returns the total number of stored entities.
func (s *EntityStorage) Count(ctx context.Context) (int, error) {
	if !s.m.Available() {
		return 0, nil
	}

	var count int
	if err := s.m.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

func scanEntity(row rowScanner) (*models.EntityRecord, error) {
	var e models.EntityRecord
	var metadata sql.NullString
	if err := row.Scan(&e.ID, &e.EntityID, &e.EntityType, &e.EntityName, &e.Confidence, &e.SourceDocumentID, &metadata); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode entity metadata: %w", err)
		}
	}
	return &e, nil
}

func marshalMetadata(metadata map[string]interface{}) (interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}
