package graph

import (
	"github.com/ternarybob/signum/internal/models"
)

// Stats computes per-type counts and a three-bucket confidence
// histogram over nodes and edges combined: > 0.8 high, [0.5, 0.8]
// medium, < 0.5 low.
func Stats(g *models.Graph) models.GraphStats {
	stats := models.GraphStats{
		NodeTypes: make(map[string]int),
		EdgeTypes: make(map[string]int),
	}
	if g == nil {
		return stats
	}

	bucket := func(confidence float64) {
		switch {
		case confidence > 0.8:
			stats.HighConfidence++
		case confidence >= 0.5:
			stats.MediumConfidence++
		default:
			stats.LowConfidence++
		}
	}

	stats.NodeCount = len(g.Nodes)
	for _, n := range g.Nodes {
		stats.NodeTypes[string(n.Type)]++
		bucket(n.Confidence)
	}

	stats.EdgeCount = len(g.Edges)
	for _, e := range g.Edges {
		stats.EdgeTypes[string(e.Type)]++
		bucket(e.Confidence)
	}

	return stats
}
