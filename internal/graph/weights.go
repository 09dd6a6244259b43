// Package graph builds the typed, confidence-weighted document graph
// from merged extraction output.
package graph

import (
	"github.com/ternarybob/signum/internal/models"
)

// baseWeights is the closed per-type weight table. Edge weight is
// always base x confidence; no other call site carries weight constants.
var baseWeights = map[models.EdgeType]float64{
	models.EdgeSentBy:       1.0,
	models.EdgeAttaches:     0.9,
	models.EdgeRates:        0.85,
	models.EdgePriceTargets: 0.85,
	models.EdgeMentions:     0.8,
	models.EdgeDependsOn:    0.8,
	models.EdgeDiscusses:    0.7,
	models.EdgeExposedTo:    0.7,
	models.EdgeSuppliesTo:   0.7,
	models.EdgeRepliesTo:    0.6,
	models.EdgeCompetesWith: 0.6,
}

// BaseWeight returns the base weight for an edge type. Unknown types
// fall back to 0.5 so foreign edges stay usable but rank low.
func BaseWeight(t models.EdgeType) float64 {
	if w, ok := baseWeights[t]; ok {
		return w
	}
	return 0.5
}

// EdgeWeight is the scoring function: per-type base weight scaled by
// extraction confidence.
func EdgeWeight(t models.EdgeType, confidence float64) float64 {
	return BaseWeight(t) * confidence
}

// IsBidirectional reports whether an edge type is symmetric.
func IsBidirectional(t models.EdgeType) bool {
	return t == models.EdgeCompetesWith
}

// KnownEdgeType reports whether t is in the closed edge-type set.
func KnownEdgeType(t models.EdgeType) bool {
	_, ok := baseWeights[t]
	return ok
}

// KnownNodeType reports whether t is one of the modelled node types.
func KnownNodeType(t models.NodeType) bool {
	switch t {
	case models.NodeDocument, models.NodeSender, models.NodeAttachment,
		models.NodeTicker, models.NodeCompany, models.NodePerson,
		models.NodeTopic, models.NodeRisk, models.NodeOpportunity,
		models.NodeMetric:
		return true
	}
	return false
}
