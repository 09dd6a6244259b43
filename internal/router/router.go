// Package router classifies natural-language research queries and maps
// them to the storage layers that can answer them. Classification is
// pure and synchronous: no I/O, no shared mutable state.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/signum/internal/models"
)

// QueryType identifies which layer(s) answer a query and how.
type QueryType string

const (
	StructuredRating QueryType = "STRUCTURED_RATING"
	StructuredMetric QueryType = "STRUCTURED_METRIC"
	StructuredPrice  QueryType = "STRUCTURED_PRICE"
	SemanticWhy      QueryType = "SEMANTIC_WHY"
	SemanticHow      QueryType = "SEMANTIC_HOW"
	SemanticExplain  QueryType = "SEMANTIC_EXPLAIN"
	Hybrid           QueryType = "HYBRID"
)

// Router holds the classification pattern tables. Constructed once and
// injected so deployments can customize the vocabulary.
type Router struct {
	ratingKeywords   []string
	priceKeywords    []string
	metricKeywords   []string
	whyKeywords      []string
	howKeywords      []string
	explainKeywords  []string
	tickerExclusions map[string]bool
	metricTable      []metricKeyword
	periodPatterns   []periodPattern
}

type metricKeyword struct {
	keyword    string
	metricType string
}

type periodPattern struct {
	re        *regexp.Regexp
	canonical func(match string) string
}

// NewRouter builds a router with the default pattern tables.
func NewRouter() *Router {
	return &Router{
		// "upgrade"/"downgrade" are deliberately absent: those verbs ask
		// about a change event, which the narrative layer answers better
		// than a latest-value lookup.
		ratingKeywords:  []string{"rating", "rated", "rates", "recommendation", "rec"},
		priceKeywords:   []string{"price target", "target price", "pt"},
		metricKeywords:  []string{"revenue", "sales", "margin", "eps", "earnings", "net income", "cash flow", "ebitda", "growth", "guidance"},
		whyKeywords:     []string{"why", "reason", "rationale", "driver", "cause"},
		howKeywords:     []string{"how"},
		explainKeywords: []string{"explain", "describe", "summarize", "tell me about", "what happened", "context"},
		tickerExclusions: map[string]bool{
			"WHAT": true, "WHY": true, "HOW": true, "WHO": true, "WHEN": true,
			"WHERE": true, "WHICH": true, "SHOW": true, "THE": true, "AND": true,
			"FOR": true, "DID": true, "ME": true, "MY": true, "IS": true,
			"ARE": true, "WAS": true, "HAS": true, "ITS": true, "ABOUT": true,
			"EPS": true, "PT": true, "FY": true, "TTM": true, "YOY": true,
			"QOQ": true, "USD": true, "EUR": true, "GBP": true, "CEO": true,
			"CFO": true, "IPO": true, "ETF": true,
		},
		metricTable: []metricKeyword{
			{"operating margin", "Operating Margin"},
			{"gross margin", "Gross Margin"},
			{"net margin", "Net Margin"},
			{"profit margin", "Profit Margin"},
			{"free cash flow", "Free Cash Flow"},
			{"cash flow", "Cash Flow"},
			{"earnings per share", "EPS"},
			{"net income", "Net Income"},
			{"revenue", "Revenue"},
			{"sales", "Revenue"},
			{"eps", "EPS"},
			{"ebitda", "EBITDA"},
			{"guidance", "Guidance"},
			{"growth", "Growth"},
			{"margin", "Margin"},
		},
		periodPatterns: []periodPattern{
			{regexp.MustCompile(`(?i)\bQ([1-4])\s+(\d{4})\b`), func(m string) string { return strings.ToUpper(m) }},
			{regexp.MustCompile(`(?i)\bFY\s?(\d{2,4})\b`), func(m string) string {
				digits := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(m), "FY"))
				return "FY" + digits
			}},
			{regexp.MustCompile(`(?i)\bTTM\b`), func(m string) string { return "TTM" }},
			{regexp.MustCompile(`\b(19|20)\d{2}\b`), func(m string) string { return m }},
		},
	}
}

// RouteQuery classifies one query. Both pattern families matching
// yields HYBRID, which takes priority over either alone.
func (r *Router) RouteQuery(query string) (QueryType, float64) {
	lower := strings.ToLower(query)

	structured, structuredType := r.matchStructured(lower)
	semantic, semanticType, semanticConfidence := r.matchSemantic(lower)

	switch {
	case structured && semantic:
		return Hybrid, 0.85
	case semantic:
		return semanticType, semanticConfidence
	case structured:
		return structuredType, 0.90
	default:
		return SemanticExplain, 0.50
	}
}

// StructuredSubtype returns the structured classification a query
// would receive, ignoring semantic patterns. HYBRID callers use it to
// pick which fact table serves the structured half.
func (r *Router) StructuredSubtype(query string) (QueryType, bool) {
	matched, t := r.matchStructured(strings.ToLower(query))
	return t, matched
}

func (r *Router) matchStructured(lower string) (bool, QueryType) {
	if containsAny(lower, r.ratingKeywords) {
		return true, StructuredRating
	}
	if containsAny(lower, r.priceKeywords) {
		return true, StructuredPrice
	}
	if containsAny(lower, r.metricKeywords) {
		return true, StructuredMetric
	}
	return false, ""
}

func (r *Router) matchSemantic(lower string) (bool, QueryType, float64) {
	if containsAny(lower, r.whyKeywords) {
		return true, SemanticWhy, 0.90
	}
	if containsAny(lower, r.howKeywords) {
		return true, SemanticHow, 0.88
	}
	if containsAny(lower, r.explainKeywords) {
		return true, SemanticExplain, 0.85
	}
	return false, "", 0
}

// ShouldUseSignalStore reports whether the signal store must be
// consulted for this query type.
func ShouldUseSignalStore(t QueryType) bool {
	switch t {
	case StructuredRating, StructuredMetric, StructuredPrice, Hybrid:
		return true
	}
	return false
}

// ShouldUseSemantic reports whether the semantic index must be
// consulted for this query type.
func ShouldUseSemantic(t QueryType) bool {
	switch t {
	case SemanticWhy, SemanticHow, SemanticExplain, Hybrid:
		return true
	}
	return false
}

// containsAny reports whether any keyword appears in the text as a
// whole word. Plain substring matching would let "how" match inside
// "show" and misroute lookups.
func containsAny(lower string, keywords []string) bool {
	for _, keyword := range keywords {
		if containsWord(lower, keyword) {
			return true
		}
	}
	return false
}

func containsWord(text, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if (start == 0 || !isWordChar(text[start-1])) && (end == len(text) || !isWordChar(text[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

var tickerTokenRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// ExtractTicker returns the first 2-5 letter uppercase token that is
// not a common word, or "" when none is present.
func (r *Router) ExtractTicker(query string) string {
	for _, token := range tickerTokenRe.FindAllString(query, -1) {
		if !r.tickerExclusions[token] {
			return token
		}
	}
	return ""
}

// ExtractMetricInfo maps the query to a canonical metric type and
// reporting period. Either may be empty when nothing matches.
func (r *Router) ExtractMetricInfo(query string) (string, string) {
	lower := strings.ToLower(query)

	metricType := ""
	for _, entry := range r.metricTable {
		if strings.Contains(lower, entry.keyword) {
			metricType = entry.metricType
			break
		}
	}

	period := ""
	for _, pattern := range r.periodPatterns {
		if match := pattern.re.FindString(query); match != "" {
			period = pattern.canonical(match)
			break
		}
	}

	return metricType, period
}

// FormatResult renders a signal store lookup for display, branching on
// which fact schema the result matches. Nil or empty results yield an
// explicit no-data message.
func FormatResult(query string, result interface{}) string {
	switch v := result.(type) {
	case *models.Rating:
		if v == nil {
			break
		}
		return fmt.Sprintf("%s: %s by %s (%s, confidence %.2f, as of %s)",
			v.Ticker, v.Rating, v.Firm, v.Analyst, v.Confidence, v.Timestamp.Format("2006-01-02"))
	case *models.PriceTarget:
		if v == nil {
			break
		}
		return fmt.Sprintf("%s: price target %.2f %s by %s (confidence %.2f, as of %s)",
			v.Ticker, v.TargetPrice, v.Currency, v.Firm, v.Confidence, v.Timestamp.Format("2006-01-02"))
	case *models.Metric:
		if v == nil {
			break
		}
		return fmt.Sprintf("%s: %s = %s (%s, confidence %.2f)",
			v.Ticker, v.MetricType, v.MetricValue, v.Period, v.Confidence)
	case []models.Rating:
		if len(v) == 0 {
			break
		}
		lines := make([]string, 0, len(v))
		for i := range v {
			lines = append(lines, FormatResult(query, &v[i]))
		}
		return strings.Join(lines, "\n")
	case []models.PriceTarget:
		if len(v) == 0 {
			break
		}
		lines := make([]string, 0, len(v))
		for i := range v {
			lines = append(lines, FormatResult(query, &v[i]))
		}
		return strings.Join(lines, "\n")
	case []models.Metric:
		if len(v) == 0 {
			break
		}
		lines := make([]string, 0, len(v))
		for i := range v {
			lines = append(lines, FormatResult(query, &v[i]))
		}
		return strings.Join(lines, "\n")
	}
	return fmt.Sprintf("no data found for %q", query)
}
