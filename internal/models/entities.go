package models

// Evidence carries the confidence score and surrounding context shared
// by every extracted candidate, whatever its category.
type Evidence struct {
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
}

// TickerMention is a candidate stock symbol found in text.
type TickerMention struct {
	Symbol string `json:"symbol"`
	Evidence
}

// CompanyMention is a candidate company name found in text.
type CompanyMention struct {
	Name string `json:"name"`
	Evidence
}

// PersonMention is a candidate person (analyst, executive) found in text.
type PersonMention struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Evidence
}

// TopicMention is a candidate discussion topic, risk or opportunity.
type TopicMention struct {
	Topic    string `json:"topic"`
	Category string `json:"category,omitempty"` // "topic", "risk", "opportunity"
	Evidence
}

// RatingCall is an analyst rating attributed to a ticker.
type RatingCall struct {
	Ticker  string `json:"ticker"`
	Rating  string `json:"rating"`
	Analyst string `json:"analyst,omitempty"`
	Firm    string `json:"firm,omitempty"`
	Evidence
}

// PriceTargetCall is a price target attributed to a ticker.
type PriceTargetCall struct {
	Ticker   string  `json:"ticker"`
	Target   float64 `json:"target"`
	Currency string  `json:"currency"`
	Analyst  string  `json:"analyst,omitempty"`
	Firm     string  `json:"firm,omitempty"`
	Evidence
}

// FinancialMetric is a named metric value for a ticker, either inline
// from text or derived from a table row.
type FinancialMetric struct {
	Ticker      string `json:"ticker,omitempty"`
	MetricType  string `json:"metric_type"`
	MetricValue string `json:"metric_value"` // Original sign/format preserved
	Period      string `json:"period"`       // "Q2 2024", "FY2024", "YoY", "Unknown"
	TableIndex  int    `json:"table_index,omitempty"`
	RowIndex    int    `json:"row_index,omitempty"`
	Evidence
}

// ExtractionResult groups every candidate category produced for one
// document, plus an overall confidence.
type ExtractionResult struct {
	Tickers      []TickerMention   `json:"tickers"`
	Companies    []CompanyMention  `json:"companies"`
	People       []PersonMention   `json:"people"`
	Topics       []TopicMention    `json:"topics"`
	Ratings      []RatingCall      `json:"ratings"`
	PriceTargets []PriceTargetCall `json:"price_targets"`
	Metrics      []FinancialMetric `json:"financial_metrics"`
	Confidence   float64           `json:"confidence"`
}

// Merge folds another extraction result into this one. Overall
// confidence takes the maximum of the two, so a strong table extraction
// is not diluted by weak text extraction.
func (r *ExtractionResult) Merge(other ExtractionResult) {
	r.Tickers = append(r.Tickers, other.Tickers...)
	r.Companies = append(r.Companies, other.Companies...)
	r.People = append(r.People, other.People...)
	r.Topics = append(r.Topics, other.Topics...)
	r.Ratings = append(r.Ratings, other.Ratings...)
	r.PriceTargets = append(r.PriceTargets, other.PriceTargets...)
	r.Metrics = append(r.Metrics, other.Metrics...)
	if other.Confidence > r.Confidence {
		r.Confidence = other.Confidence
	}
}

// IsEmpty reports whether no candidates were extracted in any category.
func (r *ExtractionResult) IsEmpty() bool {
	return len(r.Tickers) == 0 &&
		len(r.Companies) == 0 &&
		len(r.People) == 0 &&
		len(r.Topics) == 0 &&
		len(r.Ratings) == 0 &&
		len(r.PriceTargets) == 0 &&
		len(r.Metrics) == 0
}
