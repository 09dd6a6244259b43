package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
	"github.com/ternarybob/signum/internal/semantic"
	"github.com/ternarybob/signum/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Manager) {
	t.Helper()

	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()
	config.Storage.SQLite.Path = filepath.Join(t.TempDir(), "signum_test.db")
	config.Storage.Badger.InMemory = true

	store, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := semantic.NewIndex(logger, &config.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	return NewService(logger, config, store, index), store
}

func researchDocument() models.IngestDocument {
	return models.IngestDocument{
		Meta: models.DocumentMeta{
			UID:     "doc_e2e",
			From:    "research@bank.example",
			Subject: "NVDA Q2 update",
			Date:    time.Now().Add(-24 * time.Hour),
			Body:    "Goldman Sachs rates NVDA BUY with a price target of $500. Operating margin was 62.3% in Q2 2024.",
		},
	}
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	g, err := service.ProcessDocument(ctx, researchDocument())
	require.NoError(t, err)

	rating, err := store.Ratings.GetLatest(ctx, "NVDA")
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, "BUY", rating.Rating)
	assert.Equal(t, "Goldman Sachs", rating.Firm)
	assert.Equal(t, "doc_e2e", rating.SourceDocumentID)

	target, err := store.PriceTargets.GetLatest(ctx, "NVDA")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.InDelta(t, 500.0, target.TargetPrice, 0.001)

	metric, err := store.Metrics.GetByPeriod(ctx, "NVDA", "Operating Margin", "Q2 2024")
	require.NoError(t, err)
	require.NotNil(t, metric)
	assert.Equal(t, "62.3%", metric.MetricValue)

	nodeIDs := map[string]bool{}
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = true
	}
	assert.True(t, nodeIDs["DOCUMENT:doc_e2e"])
	assert.True(t, nodeIDs["TICKER:NVDA"])

	edgeTypes := map[models.EdgeType]bool{}
	for _, e := range g.Edges {
		edgeTypes[e.Type] = true
	}
	assert.True(t, edgeTypes[models.EdgeSentBy])
	assert.True(t, edgeTypes[models.EdgeMentions])
	assert.True(t, edgeTypes[models.EdgeRates])
	assert.True(t, edgeTypes[models.EdgePriceTargets])

	entity, err := store.Entities.GetByID(ctx, "TICKER:NVDA")
	require.NoError(t, err)
	require.NotNil(t, entity)

	relationships, err := store.Relationships.GetBySource(ctx, "DOCUMENT:doc_e2e", 50)
	require.NoError(t, err)
	assert.NotEmpty(t, relationships)
}

func TestProcessDocumentTableAttachment(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	doc := researchDocument()
	doc.Meta.UID = "doc_tables"
	doc.Attachments = []models.AttachmentResult{
		{
			Filename:         "q2.xlsx",
			ProcessingStatus: "processed",
			ExtractedData: models.ExtractedData{
				Tables: []models.Table{
					{
						Columns: []string{"Metric", "Q2 2025", "Q2 2024"},
						Data: []map[string]string{
							{"Metric": "Revenue", "Q2 2025": "$26.97B", "Q2 2024": "$22.1B"},
						},
					},
				},
			},
		},
	}

	_, err := service.ProcessDocument(ctx, doc)
	require.NoError(t, err)

	metric, err := store.Metrics.GetByPeriod(ctx, "NVDA", "Revenue", "Q2 2025")
	require.NoError(t, err)
	require.NotNil(t, metric)
	assert.Equal(t, "$26.97B", metric.MetricValue, "table metrics inherit the document's primary ticker")
}

func TestProcessDocumentStoreUnavailable(t *testing.T) {
	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()
	config.Storage.Badger.InMemory = true

	store := sqlite.NewUnavailableManager(logger)
	index, err := semantic.NewIndex(logger, &config.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	service := NewService(logger, config, store, index)

	g, err := service.ProcessDocument(context.Background(), researchDocument())
	require.NoError(t, err, "store outage degrades to semantic-only persistence")
	assert.NotEmpty(t, g.Nodes)

	hits, err := index.Search(context.Background(), "NVDA operating margin", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestProcessDocumentGeneratesID(t *testing.T) {
	service, _ := newTestService(t)

	doc := researchDocument()
	doc.Meta.UID = ""

	g, err := service.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)

	docNode := g.Nodes[0]
	assert.Contains(t, docNode.ID, "DOCUMENT:doc_")
}

func TestProcessDirectory(t *testing.T) {
	service, store := newTestService(t)
	dir := t.TempDir()

	writeDoc := func(name string, doc models.IngestDocument) {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}

	good := researchDocument()
	good.Meta.UID = "doc_dir_1"
	writeDoc("one.json", good)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	processed, err := service.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, processed, "unreadable documents are skipped, not fatal")

	rating, err := store.Ratings.GetLatest(context.Background(), "NVDA")
	require.NoError(t, err)
	require.NotNil(t, rating)
}

func TestProcessDirectoryCancellation(t *testing.T) {
	service, _ := newTestService(t)
	dir := t.TempDir()

	data, err := json.Marshal(researchDocument())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.json"), data, 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processed, err := service.ProcessDirectory(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, processed)
}
