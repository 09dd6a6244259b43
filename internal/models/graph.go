package models

// NodeType categorizes graph nodes
type NodeType string

const (
	NodeDocument    NodeType = "DOCUMENT"
	NodeSender      NodeType = "SENDER"
	NodeAttachment  NodeType = "ATTACHMENT"
	NodeTicker      NodeType = "TICKER"
	NodeCompany     NodeType = "COMPANY"
	NodePerson      NodeType = "PERSON"
	NodeTopic       NodeType = "TOPIC"
	NodeRisk        NodeType = "RISK"
	NodeOpportunity NodeType = "OPPORTUNITY"
	NodeMetric      NodeType = "METRIC"
)

// EdgeType categorizes graph edges
type EdgeType string

const (
	EdgeSentBy       EdgeType = "SENT_BY"
	EdgeMentions     EdgeType = "MENTIONS"
	EdgeDiscusses    EdgeType = "DISCUSSES"
	EdgeRates        EdgeType = "RATES"
	EdgePriceTargets EdgeType = "PRICE_TARGETS"
	EdgeAttaches     EdgeType = "ATTACHES"
	EdgeRepliesTo    EdgeType = "REPLIES_TO"
	EdgeSuppliesTo   EdgeType = "SUPPLIES_TO"
	EdgeDependsOn    EdgeType = "DEPENDS_ON"
	EdgeExposedTo    EdgeType = "EXPOSED_TO"
	EdgeCompetesWith EdgeType = "COMPETES_WITH"
)

// Node is one graph node. ID is deterministic ("{TYPE}:{normalized_name}"
// for entities) so re-ingestion reuses rather than duplicates.
type Node struct {
	ID               string                 `json:"id"`
	Type             NodeType               `json:"type"`
	Name             string                 `json:"name"`
	Confidence       float64                `json:"confidence"`
	SourceDocumentID string                 `json:"source_document_id"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
}

// Edge is one typed, confidence-weighted directed link.
// Weight = per-type base weight x confidence.
type Edge struct {
	ID               string                 `json:"id"`
	Source           string                 `json:"source"`
	Target           string                 `json:"target"`
	Type             EdgeType               `json:"type"`
	Confidence       float64                `json:"confidence"`
	Weight           float64                `json:"weight"`
	SourceDocumentID string                 `json:"source_document_id"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
}

// Graph is the node/edge output of building one document.
type Graph struct {
	Nodes    []*Node                `json:"nodes"`
	Edges    []*Edge                `json:"edges"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// GraphStats summarizes a graph: per-type counts and a three-bucket
// confidence histogram over edges and nodes.
type GraphStats struct {
	NodeCount        int            `json:"node_count"`
	EdgeCount        int            `json:"edge_count"`
	NodeTypes        map[string]int `json:"node_types"`
	EdgeTypes        map[string]int `json:"edge_types"`
	HighConfidence   int            `json:"high_confidence"`   // > 0.8
	MediumConfidence int            `json:"medium_confidence"` // 0.5 - 0.8
	LowConfidence    int            `json:"low_confidence"`    // < 0.5
}

// ValidationResult represents the outcome of validating a graph
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
