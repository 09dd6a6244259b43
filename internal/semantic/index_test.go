package semantic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func TestIndexAndSearch(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexDocument(ctx, "doc_1", models.DocumentMeta{
		Subject: "NVDA upgrade rationale",
		From:    "research@bank.example",
		Date:    time.Now(),
		Body:    "Goldman Sachs upgraded NVDA on data center momentum and improving supply.",
	}, "NVDA rated BUY by Goldman Sachs"))

	require.NoError(t, index.IndexDocument(ctx, "doc_2", models.DocumentMeta{
		Subject: "Utility sector weekly",
		Body:    "Regulated utilities traded sideways this week.",
	}, ""))

	hits, err := index.Search(ctx, "why did Goldman upgrade NVDA", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "doc_1", hits[0].DocumentID)
	assert.Equal(t, "NVDA upgrade rationale", hits[0].Title)
	assert.NotEmpty(t, hits[0].Snippet)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.LessOrEqual(t, hits[0].Score, 1.0)

	for _, hit := range hits {
		assert.NotEqual(t, "doc_2", hit.DocumentID, "zero-score documents are excluded")
	}
}

func TestIndexDocumentOverwrites(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	meta := models.DocumentMeta{Subject: "first pass", Body: "alpha beta"}
	require.NoError(t, index.IndexDocument(ctx, "doc_1", meta, ""))

	meta.Subject = "second pass"
	meta.Body = "gamma delta"
	require.NoError(t, index.IndexDocument(ctx, "doc_1", meta, ""))

	hits, err := index.Search(ctx, "gamma", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second pass", hits[0].Title)

	hits, err = index.Search(ctx, "alpha", 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "re-indexing replaces the previous record")
}

func TestSearchLimit(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	for _, id := range []string{"doc_1", "doc_2", "doc_3"} {
		require.NoError(t, index.IndexDocument(ctx, id, models.DocumentMeta{
			Subject: "semiconductor note",
			Body:    "semiconductor demand outlook",
		}, ""))
	}

	hits, err := index.Search(ctx, "semiconductor", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchStopwordsOnly(t *testing.T) {
	index := newTestIndex(t)

	hits, err := index.Search(context.Background(), "the and of", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexDocumentRequiresID(t *testing.T) {
	index := newTestIndex(t)

	err := index.IndexDocument(context.Background(), "", models.DocumentMeta{}, "")
	assert.Error(t, err)
}
