package models

import "time"

// Rating is one stored analyst rating observation. Append-only; the
// latest rating for a ticker is resolved by max timestamp.
type Rating struct {
	ID               int64     `json:"id"`
	Ticker           string    `json:"ticker"`
	Analyst          string    `json:"analyst,omitempty"`
	Firm             string    `json:"firm,omitempty"`
	Rating           string    `json:"rating"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
	SourceDocumentID string    `json:"source_document_id"`
}

// PriceTarget is one stored price target observation.
type PriceTarget struct {
	ID               int64     `json:"id"`
	Ticker           string    `json:"ticker"`
	Analyst          string    `json:"analyst,omitempty"`
	Firm             string    `json:"firm,omitempty"`
	TargetPrice      float64   `json:"target_price"`
	Currency         string    `json:"currency"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
	SourceDocumentID string    `json:"source_document_id"`
}

// Metric is one stored financial metric observation. MetricValue keeps
// the original string form so sign and units survive round-trips.
type Metric struct {
	ID               int64     `json:"id"`
	Ticker           string    `json:"ticker"`
	MetricType       string    `json:"metric_type"`
	MetricValue      string    `json:"metric_value"`
	Period           string    `json:"period,omitempty"`
	Confidence       float64   `json:"confidence"`
	TableIndex       int       `json:"table_index,omitempty"`
	RowIndex         int       `json:"row_index,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	SourceDocumentID string    `json:"source_document_id"`
}

// EntityRecord is a stored graph entity. EntityID is the stable upsert
// key ("{TYPE}:{normalized_name}").
type EntityRecord struct {
	ID               int64                  `json:"id"`
	EntityID         string                 `json:"entity_id"`
	EntityType       string                 `json:"entity_type"`
	EntityName       string                 `json:"entity_name"`
	Confidence       float64                `json:"confidence"`
	SourceDocumentID string                 `json:"source_document_id"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// RelationshipRecord is a stored graph edge. Append-only; there is no
// natural unique key and dedup is a downstream concern.
type RelationshipRecord struct {
	ID               int64                  `json:"id"`
	SourceEntity     string                 `json:"source_entity"`
	TargetEntity     string                 `json:"target_entity"`
	RelationshipType string                 `json:"relationship_type"`
	Confidence       float64                `json:"confidence"`
	SourceDocumentID string                 `json:"source_document_id"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}
