package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/signum/internal/models"
)

func wellFormedGraph() *models.Graph {
	return &models.Graph{
		Nodes: []*models.Node{
			{ID: "DOCUMENT:doc_1", Type: models.NodeDocument, Name: "update", Confidence: 1.0},
			{ID: "TICKER:NVDA", Type: models.NodeTicker, Name: "NVDA", Confidence: 0.85},
			{ID: "SENDER:A_B_CO", Type: models.NodeSender, Name: "a@b.co", Confidence: 1.0},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "DOCUMENT:doc_1", Target: "TICKER:NVDA", Type: models.EdgeMentions, Confidence: 0.85},
			{ID: "e2", Source: "DOCUMENT:doc_1", Target: "SENDER:A_B_CO", Type: models.EdgeSentBy, Confidence: 1.0},
		},
	}
}

func TestValidateGraphWellFormed(t *testing.T) {
	result := ValidateGraph(wellFormedGraph())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateGraphDanglingEdge(t *testing.T) {
	g := wellFormedGraph()
	g.Edges = append(g.Edges, &models.Edge{
		ID:         "e3",
		Source:     "DOCUMENT:doc_1",
		Target:     "TICKER:MISSING",
		Type:       models.EdgeMentions,
		Confidence: 0.8,
	})

	result := ValidateGraph(g)

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "TICKER:MISSING")
}

func TestValidateGraphStructuralErrors(t *testing.T) {
	g := &models.Graph{
		Nodes: []*models.Node{
			{ID: "", Type: models.NodeDocument},
			{ID: "TICKER:NVDA", Type: ""},
		},
		Edges: []*models.Edge{
			{ID: "", Source: "TICKER:NVDA", Target: "TICKER:NVDA", Type: models.EdgeMentions},
			{ID: "e1", Source: "", Target: "TICKER:NVDA", Type: models.EdgeMentions},
		},
	}

	result := ValidateGraph(g)

	assert.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 4)
}

func TestValidateGraphWarnings(t *testing.T) {
	g := wellFormedGraph()
	g.Nodes[1].Confidence = 1.5
	g.Edges[0].Type = models.EdgeType("FOREIGN")

	result := ValidateGraph(g)

	assert.True(t, result.Valid, "out-of-range confidence and unknown types are warnings only")
	assert.Len(t, result.Warnings, 2)
}

func TestValidateGraphNil(t *testing.T) {
	result := ValidateGraph(nil)
	assert.False(t, result.Valid)
}

func TestStats(t *testing.T) {
	g := wellFormedGraph()
	g.Nodes = append(g.Nodes, &models.Node{
		ID: "TOPIC:AI", Type: models.NodeTopic, Name: "AI", Confidence: 0.4,
	})
	g.Edges = append(g.Edges, &models.Edge{
		ID: "e3", Source: "DOCUMENT:doc_1", Target: "TOPIC:AI", Type: models.EdgeDiscusses, Confidence: 0.6,
	})

	stats := Stats(g)

	assert.Equal(t, 4, stats.NodeCount)
	assert.Equal(t, 3, stats.EdgeCount)
	assert.Equal(t, 1, stats.NodeTypes["TICKER"])
	assert.Equal(t, 1, stats.NodeTypes["TOPIC"])
	assert.Equal(t, 1, stats.EdgeTypes["SENT_BY"])
	assert.Equal(t, 1, stats.EdgeTypes["DISCUSSES"])

	// nodes: 1.0, 0.85, 1.0, 0.4 / edges: 0.85, 1.0, 0.6
	assert.Equal(t, 5, stats.HighConfidence)
	assert.Equal(t, 1, stats.MediumConfidence)
	assert.Equal(t, 1, stats.LowConfidence)
}

func TestStatsNil(t *testing.T) {
	stats := Stats(nil)
	assert.Zero(t, stats.NodeCount)
	assert.NotNil(t, stats.NodeTypes)
}
