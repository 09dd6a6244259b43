package query

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
	"github.com/ternarybob/signum/internal/router"
	"github.com/ternarybob/signum/internal/semantic"
	"github.com/ternarybob/signum/internal/storage/sqlite"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *sqlite.Manager, *semantic.Index) {
	t.Helper()

	logger := arbor.NewLogger()

	store, err := sqlite.NewManager(logger, &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "signum_test.db"),
		CacheSizeMB:   16,
		WALMode:       true,
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := semantic.NewIndex(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	dispatcher := NewDispatcher(logger, store, index, common.QueryConfig{
		CacheTTL:      "5m",
		SemanticLimit: 5,
		HistoryLimit:  10,
	})
	return dispatcher, store, index
}

func seedRating(t *testing.T, store *sqlite.Manager) {
	t.Helper()
	_, err := store.Ratings.Insert(context.Background(), models.Rating{
		Ticker:           "NVDA",
		Firm:             "Goldman Sachs",
		Rating:           "BUY",
		Confidence:       0.85,
		Timestamp:        time.Now().Add(-time.Hour),
		SourceDocumentID: "doc_1",
	})
	require.NoError(t, err)
}

func TestExecuteStructuredRating(t *testing.T) {
	dispatcher, store, _ := newTestDispatcher(t)
	seedRating(t, store)

	result, err := dispatcher.Execute(context.Background(), "What's NVDA's latest rating?")
	require.NoError(t, err)

	assert.Equal(t, router.StructuredRating, result.Type)
	assert.Contains(t, result.Answer, "BUY")
	assert.Contains(t, result.Answer, "Goldman Sachs")
	assert.Empty(t, result.Semantic)
	assert.False(t, result.Cached)
}

func TestExecuteSemantic(t *testing.T) {
	dispatcher, _, index := newTestDispatcher(t)

	require.NoError(t, index.IndexDocument(context.Background(), "doc_1", models.DocumentMeta{
		Subject: "NVDA upgrade rationale",
		Body:    "Goldman Sachs upgraded NVDA on data center momentum.",
	}, ""))

	result, err := dispatcher.Execute(context.Background(), "Why did Goldman upgrade NVDA?")
	require.NoError(t, err)

	assert.Equal(t, router.SemanticWhy, result.Type)
	assert.Empty(t, result.Structured)
	require.NotEmpty(t, result.Semantic)
	assert.Contains(t, result.Answer, "NVDA upgrade rationale")
}

func TestExecuteHybridStructuredFirst(t *testing.T) {
	dispatcher, store, index := newTestDispatcher(t)
	seedRating(t, store)

	require.NoError(t, index.IndexDocument(context.Background(), "doc_1", models.DocumentMeta{
		Subject: "NVDA rating change",
		Body:    "The rating changed on data center momentum.",
	}, ""))

	result, err := dispatcher.Execute(context.Background(), "What's NVDA's rating and why did it change?")
	require.NoError(t, err)

	assert.Equal(t, router.Hybrid, result.Type)
	assert.NotEmpty(t, result.Structured)
	assert.NotEmpty(t, result.Semantic)

	structuredAt := strings.Index(result.Answer, "BUY")
	semanticAt := strings.Index(result.Answer, "NVDA rating change")
	require.GreaterOrEqual(t, structuredAt, 0)
	require.GreaterOrEqual(t, semanticAt, 0)
	assert.Less(t, structuredAt, semanticAt, "structured facts lead the merged answer")
}

func TestExecuteNoData(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)

	result, err := dispatcher.Execute(context.Background(), "What's ZZZZ's latest rating?")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "no data found")
}

func TestExecuteCaching(t *testing.T) {
	dispatcher, store, _ := newTestDispatcher(t)
	seedRating(t, store)

	first, err := dispatcher.Execute(context.Background(), "What's NVDA's latest rating?")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := dispatcher.Execute(context.Background(), "what's nvda's LATEST rating?")
	require.NoError(t, err)
	assert.True(t, second.Cached, "cache key is case-insensitive")
	assert.Equal(t, first.Answer, second.Answer)
}

func TestExecuteEmptyQuery(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t)

	_, err := dispatcher.Execute(context.Background(), "   ")
	assert.Error(t, err)
}
