package graph

import (
	"fmt"

	"github.com/ternarybob/signum/internal/models"
)

// ValidateGraph checks structural integrity. Missing ids/types and
// dangling edge endpoints are errors; out-of-range confidence and
// unknown types are warnings only.
func ValidateGraph(g *models.Graph) models.ValidationResult {
	result := models.ValidationResult{Valid: true}
	if g == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "graph is nil")
		return result
	}

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("node %d has no id", i))
			continue
		}
		if n.Type == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("node %s has no type", n.ID))
		} else if !KnownNodeType(n.Type) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("node %s has unknown type %s", n.ID, n.Type))
		}
		if n.Confidence < 0 || n.Confidence > 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("node %s confidence %.3f outside [0,1]", n.ID, n.Confidence))
		}
		nodeIDs[n.ID] = true
	}

	for i, e := range g.Edges {
		switch {
		case e.ID == "":
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %d has no id", i))
		case e.Source == "" || e.Target == "":
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %s missing endpoint", e.ID))
		case e.Type == "":
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %s has no type", e.ID))
		}
		if e.Source != "" && !nodeIDs[e.Source] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %s references unknown source node %s", e.ID, e.Source))
		}
		if e.Target != "" && !nodeIDs[e.Target] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %s references unknown target node %s", e.ID, e.Target))
		}
		if e.Type != "" && !KnownEdgeType(e.Type) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("edge %s has unknown type %s", e.ID, e.Type))
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("edge %s confidence %.3f outside [0,1]", e.ID, e.Confidence))
		}
	}

	return result
}
