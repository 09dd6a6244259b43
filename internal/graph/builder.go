package graph

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
)

// Edge types that carry document sentiment when present.
var sentimentEdgeTypes = map[models.EdgeType]bool{
	models.EdgeMentions:     true,
	models.EdgeDiscusses:    true,
	models.EdgeRates:        true,
	models.EdgePriceTargets: true,
}

var nodeNameCleaner = regexp.MustCompile(`[^A-Z0-9]+`)

// Builder assembles a document graph from extraction output.
type Builder struct {
	minConfidence    float64
	attachConfidence float64
	logger           arbor.ILogger
}

// NewBuilder creates a graph builder with the configured entity
// confidence threshold.
func NewBuilder(cfg common.IngestConfig, logger arbor.ILogger) *Builder {
	minConfidence := cfg.MinEntityConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5
	}
	attachConfidence := cfg.AttachmentEdgeScore
	if attachConfidence <= 0 {
		attachConfidence = 0.95
	}
	return &Builder{
		minConfidence:    minConfidence,
		attachConfidence: attachConfidence,
		logger:           logger,
	}
}

// build collects nodes and edges for one document; nodes are
// deterministically keyed so repeated mentions reuse one node.
type build struct {
	docID     string
	sentiment string
	nodes     map[string]*models.Node
	order     []string
	edges     []*models.Edge
	edgeSeen  map[string]int
}

// NodeID returns the deterministic entity key "{TYPE}:{normalized_name}".
func NodeID(t models.NodeType, name string) string {
	normalized := strings.Trim(nodeNameCleaner.ReplaceAllString(strings.ToUpper(name), "_"), "_")
	return string(t) + ":" + normalized
}

// BuildEmailGraph builds the graph for one document: the document node
// always exists, a sender node when known, and one node plus typed
// document edge per entity above the confidence threshold. A document
// that fails extraction entirely still produces the document + sender
// fallback rather than vanishing from the graph.
func (b *Builder) BuildEmailGraph(docID string, meta models.DocumentMeta, entities models.ExtractionResult, attachments []models.AttachmentResult) *models.Graph {
	g := &build{
		docID:     docID,
		sentiment: meta.Sentiment,
		nodes:     make(map[string]*models.Node),
		edgeSeen:  make(map[string]int),
	}

	docNodeID := "DOCUMENT:" + docID
	g.addNode(&models.Node{
		ID:               docNodeID,
		Type:             models.NodeDocument,
		Name:             meta.Subject,
		Confidence:       1.0,
		SourceDocumentID: docID,
		Properties: map[string]interface{}{
			"from":        meta.From,
			"date":        meta.Date,
			"source_file": meta.SourceFile,
		},
	})

	if meta.From != "" {
		senderID := NodeID(models.NodeSender, meta.From)
		g.addNode(&models.Node{
			ID:               senderID,
			Type:             models.NodeSender,
			Name:             meta.From,
			Confidence:       1.0,
			SourceDocumentID: docID,
		})
		g.addEdge(docNodeID, senderID, models.EdgeSentBy, 1.0, meta.Date, nil)
	}

	for i, att := range attachments {
		name := att.Filename
		if name == "" {
			name = fmt.Sprintf("attachment_%d", i)
		}
		attID := NodeID(models.NodeAttachment, name)
		g.addNode(&models.Node{
			ID:               attID,
			Type:             models.NodeAttachment,
			Name:             name,
			Confidence:       b.attachConfidence,
			SourceDocumentID: docID,
			Properties: map[string]interface{}{
				"processing_status": att.ProcessingStatus,
				"table_count":       len(att.ExtractedData.Tables),
			},
		})
		g.addEdge(docNodeID, attID, models.EdgeAttaches, b.attachConfidence, meta.Date, nil)
	}

	b.addEntities(g, docNodeID, docID, meta, entities)

	if meta.InReplyTo != "" {
		parentID := "DOCUMENT:reply_" + common.HashID(meta.InReplyTo)
		g.addNode(&models.Node{
			ID:               parentID,
			Type:             models.NodeDocument,
			Name:             meta.InReplyTo,
			Confidence:       0.9,
			SourceDocumentID: docID,
			Properties:       map[string]interface{}{"placeholder": true},
		})
		g.addEdge(docNodeID, parentID, models.EdgeRepliesTo, 0.9, meta.Date, nil)
	}

	graph := &models.Graph{
		Nodes: make([]*models.Node, 0, len(g.order)),
		Edges: g.edges,
		Metadata: map[string]interface{}{
			"document_id": docID,
			"built_at":    time.Now().UTC(),
		},
	}
	for _, id := range g.order {
		graph.Nodes = append(graph.Nodes, g.nodes[id])
	}

	b.logger.Debug().
		Str("document_id", docID).
		Int("nodes", len(graph.Nodes)).
		Int("edges", len(graph.Edges)).
		Msg("Built document graph")

	return graph
}

func (b *Builder) addEntities(g *build, docNodeID, docID string, meta models.DocumentMeta, entities models.ExtractionResult) {
	for _, t := range entities.Tickers {
		if t.Confidence < b.minConfidence {
			continue
		}
		id := g.entityNode(models.NodeTicker, t.Symbol, t.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgeMentions, t.Confidence, meta.Date,
			map[string]interface{}{"context": t.Context})
	}

	for _, c := range entities.Companies {
		if c.Confidence < b.minConfidence {
			continue
		}
		id := g.entityNode(models.NodeCompany, c.Name, c.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgeDiscusses, c.Confidence, meta.Date,
			map[string]interface{}{"context": c.Context})
	}

	for _, p := range entities.People {
		if p.Confidence < b.minConfidence {
			continue
		}
		id := g.entityNode(models.NodePerson, p.Name, p.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgeMentions, p.Confidence, meta.Date,
			map[string]interface{}{"context": p.Context, "role": p.Role})
	}

	for _, t := range entities.Topics {
		if t.Confidence < b.minConfidence {
			continue
		}
		nodeType := models.NodeTopic
		edgeType := models.EdgeDiscusses
		switch t.Category {
		case "risk":
			nodeType = models.NodeRisk
			edgeType = models.EdgeExposedTo
		case "opportunity":
			nodeType = models.NodeOpportunity
		}
		id := g.entityNode(nodeType, t.Topic, t.Confidence, docID)
		g.addEdge(docNodeID, id, edgeType, t.Confidence, meta.Date,
			map[string]interface{}{"context": t.Context})
	}

	for _, r := range entities.Ratings {
		if r.Confidence < b.minConfidence || r.Ticker == "" {
			continue
		}
		id := g.entityNode(models.NodeTicker, r.Ticker, r.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgeRates, r.Confidence, meta.Date,
			map[string]interface{}{"rating": r.Rating, "firm": r.Firm, "analyst": r.Analyst})
	}

	for _, pt := range entities.PriceTargets {
		if pt.Confidence < b.minConfidence || pt.Ticker == "" {
			continue
		}
		id := g.entityNode(models.NodeTicker, pt.Ticker, pt.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgePriceTargets, pt.Confidence, meta.Date,
			map[string]interface{}{"target": pt.Target, "currency": pt.Currency, "firm": pt.Firm})
	}

	for _, m := range entities.Metrics {
		if m.Confidence < b.minConfidence {
			continue
		}
		id := g.entityNode(models.NodeMetric, m.MetricType, m.Confidence, docID)
		g.addEdge(docNodeID, id, models.EdgeDiscusses, m.Confidence, meta.Date,
			map[string]interface{}{"value": m.MetricValue, "period": m.Period, "ticker": m.Ticker})
	}
}

// entityNode creates or reuses the deterministically-keyed node,
// keeping the highest confidence seen.
func (g *build) entityNode(t models.NodeType, name string, confidence float64, docID string) string {
	id := NodeID(t, name)
	if existing, ok := g.nodes[id]; ok {
		if confidence > existing.Confidence {
			existing.Confidence = confidence
		}
		return id
	}
	g.addNode(&models.Node{
		ID:               id,
		Type:             t,
		Name:             name,
		Confidence:       confidence,
		SourceDocumentID: docID,
	})
	return id
}

func (g *build) addNode(n *models.Node) {
	if _, ok := g.nodes[n.ID]; ok {
		return
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

func (g *build) addEdge(source, target string, t models.EdgeType, confidence float64, docDate time.Time, props map[string]interface{}) {
	if props == nil {
		props = map[string]interface{}{}
	}
	if !docDate.IsZero() {
		props["days_ago"] = int(time.Since(docDate).Hours() / 24)
	}
	if g.sentiment != "" && sentimentEdgeTypes[t] {
		props["sentiment"] = g.sentiment
	}

	key := string(t) + ":" + source + ":" + target
	g.edgeSeen[key]++
	id := key
	if n := g.edgeSeen[key]; n > 1 {
		id = fmt.Sprintf("%s#%d", key, n)
	}

	g.edges = append(g.edges, &models.Edge{
		ID:               id,
		Source:           source,
		Target:           target,
		Type:             t,
		Confidence:       confidence,
		Weight:           EdgeWeight(t, confidence),
		SourceDocumentID: g.docID,
		Properties:       props,
	})
}
