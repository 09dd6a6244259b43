// Package semantic provides the document-level search index consulted
// for WHY/HOW/EXPLAIN queries. The current implementation is a local
// term-overlap index over BadgerDB; callers only see the
// interfaces.SemanticIndex capability, so a hosted vector backend can
// replace it without touching the router or the ingest pipeline.
package semantic

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/interfaces"
	"github.com/ternarybob/signum/internal/models"
)

// DocumentRecord is the indexed form of one ingested document.
type DocumentRecord struct {
	DocID     string `badgerhold:"key"`
	Subject   string
	From      string
	Body      string
	Terms     map[string]int
	IndexedAt time.Time
}

// Index is a badgerhold-backed SemanticIndex.
type Index struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

var _ interfaces.SemanticIndex = (*Index)(nil)

// NewIndex opens the semantic index at the configured path.
func NewIndex(logger arbor.ILogger, config *common.BadgerConfig) (*Index, error) {
	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor
	if config.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create semantic index directory: %w", err)
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open semantic index: %w", err)
	}

	logger.Info().Str("path", config.Path).Bool("in_memory", config.InMemory).Msg("Semantic index opened")
	return &Index{store: store, logger: logger}, nil
}

// IndexDocument stores the document with precomputed term frequencies.
// Re-indexing the same document id overwrites the previous record.
func (i *Index) IndexDocument(ctx context.Context, docID string, meta models.DocumentMeta, enhancedText string) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	record := DocumentRecord{
		DocID:     docID,
		Subject:   meta.Subject,
		From:      meta.From,
		Body:      meta.Body,
		Terms:     termFrequencies(meta.Subject + " " + meta.Body + " " + enhancedText),
		IndexedAt: time.Now(),
	}

	if err := i.store.Upsert(docID, &record); err != nil {
		return fmt.Errorf("failed to index document %s: %w", docID, err)
	}

	i.logger.Debug().Str("doc_id", docID).Int("terms", len(record.Terms)).Msg("Document indexed")
	return nil
}

// Search scores every indexed document against the query terms and
// returns the top hits. Zero-score documents are excluded.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]interfaces.SemanticHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	var records []DocumentRecord
	if err := i.store.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to scan semantic index: %w", err)
	}

	var hits []interfaces.SemanticHit
	for _, record := range records {
		score := scoreDocument(record, queryTerms)
		if score <= 0 {
			continue
		}
		hits = append(hits, interfaces.SemanticHit{
			DocumentID: record.DocID,
			Title:      record.Subject,
			Snippet:    snippet(record.Body, queryTerms),
			Score:      score,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the underlying store.
func (i *Index) Close() error {
	return i.store.Close()
}

// scoreDocument is the fraction of query terms present in the document,
// with a small bonus for terms appearing in the subject line.
func scoreDocument(record DocumentRecord, queryTerms []string) float64 {
	subjectTerms := termFrequencies(record.Subject)

	matched := 0.0
	for _, term := range queryTerms {
		if record.Terms[term] > 0 {
			matched++
			if subjectTerms[term] > 0 {
				matched += 0.5
			}
		}
	}
	if matched == 0 {
		return 0
	}

	score := matched / float64(len(queryTerms))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// snippet returns a short window of the body around the first query
// term match, falling back to the opening of the body.
func snippet(body string, queryTerms []string) string {
	const window = 140

	lower := strings.ToLower(body)
	start := -1
	for _, term := range queryTerms {
		if idx := strings.Index(lower, term); idx >= 0 && (start < 0 || idx < start) {
			start = idx
		}
	}
	if start < 0 {
		start = 0
	}

	from := start - window/2
	if from < 0 {
		from = 0
	}
	to := from + window
	if to > len(body) {
		to = len(body)
	}

	text := strings.TrimSpace(body[from:to])
	if from > 0 {
		text = "..." + text
	}
	if to < len(body) {
		text += "..."
	}
	return text
}

var termRe = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "did": true, "do": true,
	"does": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "their": true, "this": true, "to": true, "was": true,
	"what": true, "with": true,
}

func tokenize(text string) []string {
	var terms []string
	for _, term := range termRe.FindAllString(strings.ToLower(text), -1) {
		if stopwords[term] {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range tokenize(text) {
		freq[term]++
	}
	return freq
}
