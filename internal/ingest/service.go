// Package ingest runs the document pipeline: entity extraction, table
// metric extraction, graph build and dual-write into the signal store
// and the semantic index.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/extract"
	"github.com/ternarybob/signum/internal/graph"
	"github.com/ternarybob/signum/internal/interfaces"
	"github.com/ternarybob/signum/internal/models"
	"github.com/ternarybob/signum/internal/storage/sqlite"
)

// Service processes documents one at a time. Each document's
// extraction-to-dual-write sequence runs in one signal store
// transaction; a store failure degrades that document to semantic-only
// persistence instead of aborting the batch.
type Service struct {
	cfg       common.IngestConfig
	extractor interfaces.EntityExtractor
	tables    *extract.TableExtractor
	builder   *graph.Builder
	store     *sqlite.Manager
	index     interfaces.SemanticIndex
	logger    arbor.ILogger
}

// NewService wires the pipeline from configuration.
func NewService(logger arbor.ILogger, config *common.Config, store *sqlite.Manager, index interfaces.SemanticIndex) *Service {
	validator := extract.NewTickerValidator(extract.DefaultValidatorConfig())
	return &Service{
		cfg:       config.Ingest,
		extractor: extract.NewRuleExtractor(validator, logger),
		tables:    extract.NewTableExtractor(config.Extraction, logger),
		builder:   graph.NewBuilder(config.Ingest, logger),
		store:     store,
		index:     index,
		logger:    logger,
	}
}

// ProcessDocument runs one document through the full pipeline and
// returns the graph built for it.
func (s *Service) ProcessDocument(ctx context.Context, doc models.IngestDocument) (*models.Graph, error) {
	docID := doc.Meta.UID
	if docID == "" {
		docID = common.NewDocumentID()
	}

	entities := s.extractor.ExtractEntities(doc.Meta.Body, doc.Meta)
	for _, att := range doc.Attachments {
		entities.Merge(s.tables.ExtractAttachment(att))
	}
	extract.AssignPrimaryTicker(&entities)

	g := s.builder.BuildEmailGraph(docID, doc.Meta, entities, doc.Attachments)
	if validation := graph.ValidateGraph(g); !validation.Valid {
		s.logger.Warn().
			Str("document_id", docID).
			Strs("errors", validation.Errors).
			Msg("Built graph failed validation")
	}

	if err := s.writeSignalStore(ctx, docID, doc.Meta, entities, g); err != nil {
		// Other documents keep flowing; this one survives in the
		// semantic index only.
		s.logger.Warn().
			Err(err).
			Str("document_id", docID).
			Msg("Signal store write failed, continuing with semantic-only persistence")
	}

	if err := s.index.IndexDocument(ctx, docID, doc.Meta, enhancedText(doc.Meta, entities)); err != nil {
		s.logger.Warn().
			Err(err).
			Str("document_id", docID).
			Msg("Semantic indexing failed")
	}

	s.logger.Info().
		Str("document_id", docID).
		Int("tickers", len(entities.Tickers)).
		Int("ratings", len(entities.Ratings)).
		Int("metrics", len(entities.Metrics)).
		Int("nodes", len(g.Nodes)).
		Msg("Document processed")

	return g, nil
}

// writeSignalStore persists every extracted fact for one document in a
// single transaction.
func (s *Service) writeSignalStore(ctx context.Context, docID string, meta models.DocumentMeta, entities models.ExtractionResult, g *models.Graph) error {
	if !s.store.Available() {
		return nil
	}

	if err := s.store.Begin(ctx); err != nil {
		return err
	}

	err := func() error {
		if err := s.store.Ratings.InsertBatch(ctx, ratingsFor(docID, meta, entities)); err != nil {
			return fmt.Errorf("ratings: %w", err)
		}
		if err := s.store.PriceTargets.InsertBatch(ctx, priceTargetsFor(docID, meta, entities)); err != nil {
			return fmt.Errorf("price targets: %w", err)
		}
		if err := s.store.Metrics.InsertBatch(ctx, metricsFor(docID, meta, entities)); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		if err := s.store.Entities.UpsertBatch(ctx, entityRecordsFor(docID, g)); err != nil {
			return fmt.Errorf("entities: %w", err)
		}
		if err := s.store.Relationships.InsertBatch(ctx, relationshipRecordsFor(docID, g)); err != nil {
			return fmt.Errorf("relationships: %w", err)
		}
		return nil
	}()
	if err != nil {
		s.store.Rollback()
		return err
	}

	return s.store.Commit()
}

func ratingsFor(docID string, meta models.DocumentMeta, entities models.ExtractionResult) []models.Rating {
	var ratings []models.Rating
	for _, r := range entities.Ratings {
		if r.Ticker == "" {
			continue
		}
		ratings = append(ratings, models.Rating{
			Ticker:           r.Ticker,
			Analyst:          r.Analyst,
			Firm:             r.Firm,
			Rating:           r.Rating,
			Confidence:       r.Confidence,
			Timestamp:        meta.Date,
			SourceDocumentID: docID,
		})
	}
	return ratings
}

func priceTargetsFor(docID string, meta models.DocumentMeta, entities models.ExtractionResult) []models.PriceTarget {
	var targets []models.PriceTarget
	for _, pt := range entities.PriceTargets {
		if pt.Ticker == "" || pt.Target <= 0 {
			continue
		}
		targets = append(targets, models.PriceTarget{
			Ticker:           pt.Ticker,
			Analyst:          pt.Analyst,
			Firm:             pt.Firm,
			TargetPrice:      pt.Target,
			Currency:         pt.Currency,
			Confidence:       pt.Confidence,
			Timestamp:        meta.Date,
			SourceDocumentID: docID,
		})
	}
	return targets
}

func metricsFor(docID string, meta models.DocumentMeta, entities models.ExtractionResult) []models.Metric {
	var metrics []models.Metric
	for _, m := range entities.Metrics {
		if m.Ticker == "" {
			continue
		}
		metrics = append(metrics, models.Metric{
			Ticker:           m.Ticker,
			MetricType:       m.MetricType,
			MetricValue:      m.MetricValue,
			Period:           m.Period,
			Confidence:       m.Confidence,
			TableIndex:       m.TableIndex,
			RowIndex:         m.RowIndex,
			Timestamp:        meta.Date,
			SourceDocumentID: docID,
		})
	}
	return metrics
}

func entityRecordsFor(docID string, g *models.Graph) []models.EntityRecord {
	records := make([]models.EntityRecord, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		records = append(records, models.EntityRecord{
			EntityID:         node.ID,
			EntityType:       string(node.Type),
			EntityName:       node.Name,
			Confidence:       node.Confidence,
			SourceDocumentID: docID,
			Metadata:         node.Properties,
		})
	}
	return records
}

func relationshipRecordsFor(docID string, g *models.Graph) []models.RelationshipRecord {
	records := make([]models.RelationshipRecord, 0, len(g.Edges))
	for _, edge := range g.Edges {
		metadata := map[string]interface{}{"weight": edge.Weight}
		for k, v := range edge.Properties {
			metadata[k] = v
		}
		records = append(records, models.RelationshipRecord{
			SourceEntity:     edge.Source,
			TargetEntity:     edge.Target,
			RelationshipType: string(edge.Type),
			Confidence:       edge.Confidence,
			SourceDocumentID: docID,
			Metadata:         metadata,
		})
	}
	return records
}

// enhancedText augments the raw body with extracted facts so semantic
// search can match on normalized entity names.
func enhancedText(meta models.DocumentMeta, entities models.ExtractionResult) string {
	var parts []string

	for _, t := range entities.Tickers {
		parts = append(parts, t.Symbol)
	}
	for _, c := range entities.Companies {
		parts = append(parts, c.Name)
	}
	for _, r := range entities.Ratings {
		parts = append(parts, fmt.Sprintf("%s rated %s by %s", r.Ticker, r.Rating, r.Firm))
	}
	for _, pt := range entities.PriceTargets {
		parts = append(parts, fmt.Sprintf("%s price target %.2f %s", pt.Ticker, pt.Target, pt.Currency))
	}
	for _, m := range entities.Metrics {
		parts = append(parts, fmt.Sprintf("%s %s %s %s", m.Ticker, m.MetricType, m.MetricValue, m.Period))
	}
	for _, t := range entities.Topics {
		parts = append(parts, t.Topic)
	}

	return strings.Join(parts, "\n")
}

// ProcessDirectory ingests every JSON document in a drop directory.
// Individual document failures are logged and skipped; cancellation is
// honored between documents, never mid-document.
func (s *Service) ProcessDirectory(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list drop directory: %w", err)
	}
	sort.Strings(paths)

	processed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		doc, err := readDocument(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable document")
			continue
		}
		if doc.Meta.SourceFile == "" {
			doc.Meta.SourceFile = filepath.Base(path)
		}

		if _, err := s.ProcessDocument(ctx, *doc); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Document processing failed")
			continue
		}
		processed++
	}

	s.logger.Info().Str("dir", dir).Int("processed", processed).Int("found", len(paths)).Msg("Drop directory processed")
	return processed, nil
}

func readDocument(path string) (*models.IngestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.IngestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// Watch runs the drop directory on the configured cron schedule until
// the context is canceled. One pass runs immediately on startup.
func (s *Service) Watch(ctx context.Context) error {
	if _, err := s.ProcessDirectory(ctx, s.cfg.DropDir); err != nil && err != context.Canceled {
		s.logger.Warn().Err(err).Msg("Initial ingest pass failed")
	}

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.ProcessDirectory(ctx, s.cfg.DropDir); err != nil && err != context.Canceled {
			s.logger.Warn().Err(err).Msg("Scheduled ingest pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.logger.Info().Str("schedule", s.cfg.Schedule).Str("dir", s.cfg.DropDir).Msg("Watching drop directory")

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
