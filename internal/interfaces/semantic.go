package interfaces

import (
	"context"

	"github.com/ternarybob/signum/internal/models"
)

// SemanticHit is one scored result from the semantic document index.
type SemanticHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// SemanticIndex is the document-level search layer consulted for
// WHY/HOW/EXPLAIN queries. Treated as an opaque capability by the
// router and the ingest pipeline.
type SemanticIndex interface {
	IndexDocument(ctx context.Context, docID string, meta models.DocumentMeta, enhancedText string) error
	Search(ctx context.Context, query string, limit int) ([]SemanticHit, error)
	Close() error
}
