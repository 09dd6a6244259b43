package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/models"
)

// Matcher is one independent extraction rule. Each produces its own
// category-tagged, confidence-scored candidates; the extractor folds
// them together.
type Matcher interface {
	Name() string
	Match(text string) models.ExtractionResult
}

// RuleExtractor is the in-tree EntityExtractor: a pipeline of regex
// rule matchers with ticker validation applied to the folded output.
type RuleExtractor struct {
	matchers  []Matcher
	validator *TickerValidator
	logger    arbor.ILogger
}

// NewRuleExtractor builds the default matcher pipeline.
func NewRuleExtractor(validator *TickerValidator, logger arbor.ILogger) *RuleExtractor {
	return &RuleExtractor{
		matchers: []Matcher{
			&ratingMatcher{},
			&priceTargetMatcher{},
			&metricMatcher{},
			&tickerMatcher{validator: validator},
			&companyMatcher{},
			&personMatcher{},
			&topicMatcher{},
		},
		validator: validator,
		logger:    logger,
	}
}

// ExtractEntities runs every matcher over the text and folds the
// results. Ticker candidates are filtered through the validator and
// fact candidates missing a ticker inherit the document's primary one.
func (e *RuleExtractor) ExtractEntities(text string, meta models.DocumentMeta) models.ExtractionResult {
	var result models.ExtractionResult

	for _, m := range e.matchers {
		matched := m.Match(text)
		if matched.IsEmpty() {
			continue
		}
		e.logger.Trace().Str("matcher", m.Name()).Msg("Matcher produced candidates")
		result.Merge(matched)
	}

	e.validator.FilterTickers(&result)
	AssignPrimaryTicker(&result)
	result.Confidence = overallConfidence(&result)

	return result
}

// overallConfidence is the mean confidence over all kept candidates.
func overallConfidence(r *models.ExtractionResult) float64 {
	sum, n := 0.0, 0
	add := func(c float64) { sum += c; n++ }

	for _, t := range r.Tickers {
		add(t.Confidence)
	}
	for _, c := range r.Companies {
		add(c.Confidence)
	}
	for _, p := range r.People {
		add(p.Confidence)
	}
	for _, t := range r.Topics {
		add(t.Confidence)
	}
	for _, rc := range r.Ratings {
		add(rc.Confidence)
	}
	for _, pt := range r.PriceTargets {
		add(pt.Confidence)
	}
	for _, m := range r.Metrics {
		add(m.Confidence)
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// context returns a window of text around a match for evidence storage.
func contextWindow(text string, start, end int) string {
	lo := start - 60
	if lo < 0 {
		lo = 0
	}
	hi := end + 60
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// -- rating matcher --

var ratingRe = regexp.MustCompile(
	`\b([A-Z][\w&.]*(?:\s+[A-Z][\w&.]*){0,3})\s+` +
		`(?:rates|rated|upgrades|downgrades|maintains|reiterates)\s+` +
		`([A-Z]{1,5})\s+(?:to\s+|at\s+|with\s+)?` +
		`((?i:strong buy|strong sell|buy|sell|hold|neutral|overweight|underweight|outperform|underperform))\b`)

type ratingMatcher struct{}

func (m *ratingMatcher) Name() string { return "rating" }

func (m *ratingMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult

	for _, idx := range ratingRe.FindAllStringSubmatchIndex(text, -1) {
		groups := ratingRe.FindStringSubmatch(text[idx[0]:idx[1]])
		if groups == nil {
			continue
		}
		firm := strings.TrimSpace(groups[1])
		ticker := groups[2]
		rating := strings.ToUpper(groups[3])
		ctx := contextWindow(text, idx[0], idx[1])

		result.Ratings = append(result.Ratings, models.RatingCall{
			Ticker:   ticker,
			Rating:   rating,
			Firm:     firm,
			Evidence: models.Evidence{Confidence: 0.85, Context: ctx},
		})
		result.Tickers = append(result.Tickers, models.TickerMention{
			Symbol:   ticker,
			Evidence: models.Evidence{Confidence: 0.85, Context: ctx},
		})
		result.Companies = append(result.Companies, models.CompanyMention{
			Name:     firm,
			Evidence: models.Evidence{Confidence: 0.8, Context: ctx},
		})
	}

	return result
}

// -- price target matcher --

var priceTargetRe = regexp.MustCompile(
	`(?i)(?:price\s+target|target\s+price|target|\bPT\b)\s*(?:of|at|to|:)?\s*([\$€£]?)(\d[\d,]*(?:\.\d+)?)\b`)

type priceTargetMatcher struct{}

func (m *priceTargetMatcher) Name() string { return "price_target" }

func (m *priceTargetMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult

	for _, idx := range priceTargetRe.FindAllStringSubmatchIndex(text, -1) {
		groups := priceTargetRe.FindStringSubmatch(text[idx[0]:idx[1]])
		if groups == nil {
			continue
		}
		target := parseFloat(groups[2])
		if target <= 0 {
			continue
		}

		result.PriceTargets = append(result.PriceTargets, models.PriceTargetCall{
			Target:   target,
			Currency: currencyFromSymbol(groups[1]),
			Evidence: models.Evidence{
				Confidence: 0.8,
				Context:    contextWindow(text, idx[0], idx[1]),
			},
		})
	}

	return result
}

func currencyFromSymbol(symbol string) string {
	switch symbol {
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return "USD"
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// -- metric matcher --

var (
	marginRe  = regexp.MustCompile(`(?i)\b(operating|gross|net|ebitda|profit)\s+margin\s+(?:of\s+|at\s+|was\s+)?(-?\d+(?:\.\d+)?)\s*%`)
	revenueRe = regexp.MustCompile(`(?i)\brevenue\s+(?:of|at|was|reached)?\s*([\$€£]?\d[\d,]*(?:\.\d+)?\s*[BbMm]?n?)\b`)
	epsRe     = regexp.MustCompile(`(?i)\bEPS\s+(?:of\s+)?(-?[\$€£]?\d+(?:\.\d+)?)\b`)
)

type metricMatcher struct{}

func (m *metricMatcher) Name() string { return "metric" }

func (m *metricMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult

	for _, idx := range marginRe.FindAllStringSubmatchIndex(text, -1) {
		groups := marginRe.FindStringSubmatch(text[idx[0]:idx[1]])
		ctx := contextWindow(text, idx[0], idx[1])
		result.Metrics = append(result.Metrics, models.FinancialMetric{
			MetricType:  titleCase(groups[1] + " margin"),
			MetricValue: groups[2] + "%",
			Period:      DerivePeriod(ctx),
			Evidence:    models.Evidence{Confidence: 0.8, Context: ctx},
		})
	}

	for _, idx := range revenueRe.FindAllStringSubmatchIndex(text, -1) {
		groups := revenueRe.FindStringSubmatch(text[idx[0]:idx[1]])
		ctx := contextWindow(text, idx[0], idx[1])
		result.Metrics = append(result.Metrics, models.FinancialMetric{
			MetricType:  "Revenue",
			MetricValue: strings.TrimSpace(groups[1]),
			Period:      DerivePeriod(ctx),
			Evidence:    models.Evidence{Confidence: 0.75, Context: ctx},
		})
	}

	for _, idx := range epsRe.FindAllStringSubmatchIndex(text, -1) {
		groups := epsRe.FindStringSubmatch(text[idx[0]:idx[1]])
		ctx := contextWindow(text, idx[0], idx[1])
		result.Metrics = append(result.Metrics, models.FinancialMetric{
			MetricType:  "EPS",
			MetricValue: groups[1],
			Period:      DerivePeriod(ctx),
			Evidence:    models.Evidence{Confidence: 0.75, Context: ctx},
		})
	}

	return result
}

// -- ticker matcher --

var tickerCandidateRe = regexp.MustCompile(`\b[A-Z]{2,5}(?:\.[A-Z]{1,4})?\b`)

type tickerMatcher struct {
	validator *TickerValidator
}

func (m *tickerMatcher) Name() string { return "ticker" }

func (m *tickerMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult
	seen := map[string]bool{}

	for _, idx := range tickerCandidateRe.FindAllStringIndex(text, -1) {
		symbol := text[idx[0]:idx[1]]
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		ctx := contextWindow(text, idx[0], idx[1])
		confidence := 0.6 + m.validator.EnhanceTickerConfidence(symbol, ctx)
		if confidence > 1.0 {
			confidence = 1.0
		}

		result.Tickers = append(result.Tickers, models.TickerMention{
			Symbol:   symbol,
			Evidence: models.Evidence{Confidence: confidence, Context: ctx},
		})
	}

	return result
}

// -- company matcher --

var (
	companySuffixRe = regexp.MustCompile(`\b([A-Z][A-Za-z&]+(?:\s+[A-Z][A-Za-z&]+)*)\s+(?:Inc|Corp|Corporation|Ltd|PLC|Group|Holdings)\b`)

	// Sell-side firms that rarely carry a corporate suffix in prose.
	knownFirms = []string{
		"Goldman Sachs", "Morgan Stanley", "JPMorgan", "Bank of America",
		"UBS", "Citi", "Citigroup", "Barclays", "Jefferies", "Bernstein",
		"Macquarie", "Deutsche Bank", "Wells Fargo", "RBC",
	}
)

type companyMatcher struct{}

func (m *companyMatcher) Name() string { return "company" }

func (m *companyMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult
	seen := map[string]bool{}

	for _, idx := range companySuffixRe.FindAllStringSubmatchIndex(text, -1) {
		groups := companySuffixRe.FindStringSubmatch(text[idx[0]:idx[1]])
		name := strings.TrimSpace(text[idx[0]:idx[1]])
		if groups == nil || seen[name] {
			continue
		}
		seen[name] = true
		result.Companies = append(result.Companies, models.CompanyMention{
			Name:     name,
			Evidence: models.Evidence{Confidence: 0.75, Context: contextWindow(text, idx[0], idx[1])},
		})
	}

	for _, firm := range knownFirms {
		pos := strings.Index(text, firm)
		if pos < 0 || seen[firm] {
			continue
		}
		seen[firm] = true
		result.Companies = append(result.Companies, models.CompanyMention{
			Name:     firm,
			Evidence: models.Evidence{Confidence: 0.8, Context: contextWindow(text, pos, pos+len(firm))},
		})
	}

	return result
}

// -- person matcher --

var analystRe = regexp.MustCompile(`(?i)\banalyst\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})`)

type personMatcher struct{}

func (m *personMatcher) Name() string { return "person" }

func (m *personMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult

	for _, idx := range analystRe.FindAllStringSubmatchIndex(text, -1) {
		groups := analystRe.FindStringSubmatch(text[idx[0]:idx[1]])
		result.People = append(result.People, models.PersonMention{
			Name:     groups[1],
			Role:     "analyst",
			Evidence: models.Evidence{Confidence: 0.7, Context: contextWindow(text, idx[0], idx[1])},
		})
	}

	return result
}

// -- topic matcher --

var topicKeywords = []struct {
	keyword  string
	category string
}{
	{"artificial intelligence", "topic"},
	{"data center", "topic"},
	{"cloud computing", "topic"},
	{"semiconductor", "topic"},
	{"electric vehicle", "topic"},
	{"interest rates", "topic"},
	{"inflation", "topic"},
	{"supply chain", "topic"},
	{"tariff", "risk"},
	{"litigation", "risk"},
	{"regulatory risk", "risk"},
	{"headwind", "risk"},
	{"downside risk", "risk"},
	{"competition risk", "risk"},
	{"tailwind", "opportunity"},
	{"upside potential", "opportunity"},
	{"growth opportunity", "opportunity"},
	{"market share gain", "opportunity"},
}

type topicMatcher struct{}

func (m *topicMatcher) Name() string { return "topic" }

func (m *topicMatcher) Match(text string) models.ExtractionResult {
	var result models.ExtractionResult
	lower := strings.ToLower(text)

	for _, tk := range topicKeywords {
		pos := strings.Index(lower, tk.keyword)
		if pos < 0 {
			continue
		}
		result.Topics = append(result.Topics, models.TopicMention{
			Topic:    titleCase(tk.keyword),
			Category: tk.category,
			Evidence: models.Evidence{Confidence: 0.6, Context: contextWindow(text, pos, pos+len(tk.keyword))},
		})
	}

	return result
}
