package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// RelationshipStorage handles graph relationship persistence.
// Append-only: relationships have no natural unique key and dedup is a
// downstream concern.
type RelationshipStorage struct {
	m      *Manager
	logger arbor.ILogger
}

func validateRelationship(r models.RelationshipRecord) error {
	if r.SourceEntity == "" {
		return fmt.Errorf("relationship missing source_entity")
	}
	if r.TargetEntity == "" {
		return fmt.Errorf("relationship missing target_entity")
	}
	if r.RelationshipType == "" {
		return fmt.Errorf("relationship missing relationship_type")
	}
	if r.SourceDocumentID == "" {
		return fmt.Errorf("relationship missing source_document_id")
	}
	return nil
}

// Insert appends one relationship and returns its row id.
func (s *RelationshipStorage) Insert(ctx context.Context, r models.RelationshipRecord) (int64, error) {
	if err := validateRelationship(r); err != nil {
		return 0, err
	}
	if !s.m.Available() {
		return 0, nil
	}

	metadata, err := marshalMetadata(r.Metadata)
	if err != nil {
		return 0, err
	}

	result, err := s.m.q().ExecContext(ctx, `
		INSERT INTO relationships (source_entity, target_entity, relationship_type, confidence, source_document_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.SourceEntity, r.TargetEntity, r.RelationshipType, r.Confidence, r.SourceDocumentID, metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to insert relationship: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch appends relationships all-or-nothing, joining the
// manager transaction when one is open.
func (s *RelationshipStorage) InsertBatch(ctx context.Context, relationships []models.RelationshipRecord) error {
	if len(relationships) == 0 {
		return nil
	}
	for i, r := range relationships {
		if err := validateRelationship(r); err != nil {
			return fmt.Errorf("relationship %d: %w", i, err)
		}
	}
	if !s.m.Available() {
		return nil
	}

	if s.m.inTx() {
		for _, r := range relationships {
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
		INSERT INTO relationships (source_entity, target_entity, relationship_type, confidence, source_document_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range relationships {
		metadata, err := marshalMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.SourceEntity, r.TargetEntity, r.RelationshipType, r.Confidence, r.SourceDocumentID, metadata,
		); err != nil {
			return fmt.Errorf("failed to insert relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBySource returns up to limit relationships originating from an
// entity.
func (s *RelationshipStorage) GetBySource(ctx context.Context, sourceEntity string, limit int) ([]models.RelationshipRecord, error) {
	return s.query(ctx, `WHERE source_entity = ?`, sourceEntity, limit)
}

// GetByType returns up to limit relationships of one type.
func (s *RelationshipStorage) GetByType(ctx context.Context, relationshipType string, limit int) ([]models.RelationshipRecord, error) {
	return s.query(ctx, `WHERE relationship_type = ?`, relationshipType, limit)
}

func (s *RelationshipStorage) query(ctx context.Context, where, arg string, limit int) ([]models.RelationshipRecord, error) {
	if !s.m.Available() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.m.q().QueryContext(ctx, `
		SELECT id, source_entity, target_entity, relationship_type, confidence, source_document_id, metadata
		FROM relationships `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var relationships []models.RelationshipRecord
	for rows.Next() {
		var r models.RelationshipRecord
		var metadata sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceEntity, &r.TargetEntity, &r.RelationshipType, &r.Confidence, &r.SourceDocumentID, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode relationship metadata: %w", err)
			}
		}
		relationships = append(relationships, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return relationships, nil
}

// Count returns the total number of stored relationships.
func (s *RelationshipStorage) Count(ctx context.Context) (int, error) {
	if !s.m.Available() {
		return 0, nil
	}

	var count int
	if err := s.m.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return count, nil
}
