// Package interfaces defines the dependency-injection contracts between
// the ingestion core and its collaborators.
package interfaces

import (
	"github.com/ternarybob/signum/internal/models"
)

// EntityExtractor turns free text plus document metadata into typed,
// confidence-scored entity candidates. The in-tree implementation is
// rule-based; callers must treat the contract as opaque.
type EntityExtractor interface {
	ExtractEntities(text string, meta models.DocumentMeta) models.ExtractionResult
}
