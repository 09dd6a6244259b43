package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
)

func newTestBuilder() *Builder {
	return NewBuilder(common.IngestConfig{
		MinEntityConfidence: 0.5,
		AttachmentEdgeScore: 0.95,
	}, arbor.NewLogger())
}

func testMeta() models.DocumentMeta {
	return models.DocumentMeta{
		UID:     "doc_test",
		From:    "research@bank.example",
		Subject: "NVDA Q2 update",
		Date:    time.Now().Add(-48 * time.Hour),
	}
}

func TestNodeID(t *testing.T) {
	tests := []struct {
		nodeType models.NodeType
		name     string
		want     string
	}{
		{models.NodeTicker, "NVDA", "TICKER:NVDA"},
		{models.NodeCompany, "Goldman Sachs", "COMPANY:GOLDMAN_SACHS"},
		{models.NodeTopic, "data center!", "TOPIC:DATA_CENTER"},
		{models.NodeSender, "a@b.co", "SENDER:A_B_CO"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeID(tt.nodeType, tt.name))
		})
	}
}

func TestBuildEmailGraph(t *testing.T) {
	builder := newTestBuilder()
	meta := testMeta()

	entities := models.ExtractionResult{
		Tickers: []models.TickerMention{
			{Symbol: "NVDA", Evidence: models.Evidence{Confidence: 0.85}},
			{Symbol: "WEAK", Evidence: models.Evidence{Confidence: 0.3}},
		},
		Ratings: []models.RatingCall{
			{Ticker: "NVDA", Rating: "BUY", Firm: "Goldman Sachs", Evidence: models.Evidence{Confidence: 0.85}},
		},
		PriceTargets: []models.PriceTargetCall{
			{Ticker: "NVDA", Target: 500, Currency: "USD", Evidence: models.Evidence{Confidence: 0.8}},
		},
	}

	g := builder.BuildEmailGraph("doc_test", meta, entities, nil)

	nodeIDs := map[string]*models.Node{}
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = n
	}
	require.Contains(t, nodeIDs, "DOCUMENT:doc_test")
	require.Contains(t, nodeIDs, NodeID(models.NodeSender, meta.From))
	require.Contains(t, nodeIDs, "TICKER:NVDA")
	assert.NotContains(t, nodeIDs, "TICKER:WEAK", "below-threshold entities are dropped")

	edgeTypes := map[models.EdgeType]int{}
	for _, e := range g.Edges {
		edgeTypes[e.Type]++
		assert.Contains(t, nodeIDs, e.Source)
		assert.Contains(t, nodeIDs, e.Target)
		assert.InDelta(t, EdgeWeight(e.Type, e.Confidence), e.Weight, 0.001)
	}
	assert.Equal(t, 1, edgeTypes[models.EdgeSentBy])
	assert.Equal(t, 1, edgeTypes[models.EdgeMentions])
	assert.Equal(t, 1, edgeTypes[models.EdgeRates])
	assert.Equal(t, 1, edgeTypes[models.EdgePriceTargets])

	validation := ValidateGraph(g)
	assert.True(t, validation.Valid, "errors: %v", validation.Errors)
}

func TestBuildEmailGraphFallback(t *testing.T) {
	builder := newTestBuilder()
	meta := testMeta()

	g := builder.BuildEmailGraph("doc_test", meta, models.ExtractionResult{}, nil)

	require.Len(t, g.Nodes, 2, "failed extraction still yields document + sender")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, models.EdgeSentBy, g.Edges[0].Type)
}

func TestBuildEmailGraphAttachmentsAndReplies(t *testing.T) {
	builder := newTestBuilder()
	meta := testMeta()
	meta.InReplyTo = "<parent@bank.example>"

	attachments := []models.AttachmentResult{
		{Filename: "q2-tables.xlsx", ProcessingStatus: "processed"},
	}

	g := builder.BuildEmailGraph("doc_test", meta, models.ExtractionResult{}, attachments)

	var attachEdge, replyEdge *models.Edge
	for _, e := range g.Edges {
		switch e.Type {
		case models.EdgeAttaches:
			attachEdge = e
		case models.EdgeRepliesTo:
			replyEdge = e
		}
	}

	require.NotNil(t, attachEdge)
	assert.InDelta(t, 0.95, attachEdge.Confidence, 0.001)

	require.NotNil(t, replyEdge)
	assert.Equal(t, "DOCUMENT:reply_"+common.HashID(meta.InReplyTo), replyEdge.Target)

	validation := ValidateGraph(g)
	assert.True(t, validation.Valid, "errors: %v", validation.Errors)
}

func TestBuildEmailGraphSentiment(t *testing.T) {
	builder := newTestBuilder()
	meta := testMeta()
	meta.Sentiment = "positive"

	entities := models.ExtractionResult{
		Tickers: []models.TickerMention{
			{Symbol: "NVDA", Evidence: models.Evidence{Confidence: 0.85}},
		},
	}

	g := builder.BuildEmailGraph("doc_test", meta, entities, nil)

	for _, e := range g.Edges {
		switch e.Type {
		case models.EdgeMentions:
			assert.Equal(t, "positive", e.Properties["sentiment"])
			assert.Contains(t, e.Properties, "days_ago")
		case models.EdgeSentBy:
			assert.NotContains(t, e.Properties, "sentiment", "sentiment only on mention-like edges")
		}
	}
}

func TestEdgeWeights(t *testing.T) {
	assert.InDelta(t, 1.0, BaseWeight(models.EdgeSentBy), 0.001)
	assert.InDelta(t, 0.85, BaseWeight(models.EdgeRates), 0.001)
	assert.InDelta(t, 0.5, BaseWeight(models.EdgeType("FOREIGN")), 0.001, "unknown types rank low but stay usable")
	assert.InDelta(t, 0.68, EdgeWeight(models.EdgeMentions, 0.85), 0.001)
	assert.True(t, IsBidirectional(models.EdgeCompetesWith))
	assert.False(t, IsBidirectional(models.EdgeSentBy))
}
