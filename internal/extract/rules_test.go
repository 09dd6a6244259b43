package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signum/internal/models"
)

func newTestRuleExtractor() *RuleExtractor {
	return NewRuleExtractor(NewTickerValidator(DefaultValidatorConfig()), arbor.NewLogger())
}

func TestExtractEntitiesRatingSentence(t *testing.T) {
	extractor := newTestRuleExtractor()

	text := "Goldman Sachs rates NVDA BUY with a price target of $500. Operating margin was 62.3% in Q2 2024."
	result := extractor.ExtractEntities(text, models.DocumentMeta{})

	require.Len(t, result.Ratings, 1)
	assert.Equal(t, "NVDA", result.Ratings[0].Ticker)
	assert.Equal(t, "BUY", result.Ratings[0].Rating)
	assert.Equal(t, "Goldman Sachs", result.Ratings[0].Firm)

	require.Len(t, result.PriceTargets, 1)
	assert.Equal(t, "NVDA", result.PriceTargets[0].Ticker, "price target inherits the primary ticker")
	assert.InDelta(t, 500.0, result.PriceTargets[0].Target, 0.001)
	assert.Equal(t, "USD", result.PriceTargets[0].Currency)

	require.NotEmpty(t, result.Metrics)
	assert.Equal(t, "Operating Margin", result.Metrics[0].MetricType)
	assert.Equal(t, "62.3%", result.Metrics[0].MetricValue)
	assert.Equal(t, "Q2 2024", result.Metrics[0].Period)
	assert.Equal(t, "NVDA", result.Metrics[0].Ticker)

	tickers := make([]string, 0, len(result.Tickers))
	for _, m := range result.Tickers {
		tickers = append(tickers, m.Symbol)
	}
	assert.Contains(t, tickers, "NVDA")
	assert.NotContains(t, tickers, "BUY", "rating words are filtered out")

	companies := make([]string, 0, len(result.Companies))
	for _, c := range result.Companies {
		companies = append(companies, c.Name)
	}
	assert.Contains(t, companies, "Goldman Sachs")

	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestExtractEntitiesCurrencies(t *testing.T) {
	extractor := newTestRuleExtractor()

	result := extractor.ExtractEntities("Barclays maintains AZN hold with target price of £120.50", models.DocumentMeta{})

	require.Len(t, result.PriceTargets, 1)
	assert.Equal(t, "GBP", result.PriceTargets[0].Currency)
	assert.InDelta(t, 120.50, result.PriceTargets[0].Target, 0.001)
}

func TestExtractEntitiesTopicsAndPeople(t *testing.T) {
	extractor := newTestRuleExtractor()

	text := "Per analyst Jane Smith, data center demand is a tailwind but tariff exposure remains a headwind for AMD."
	result := extractor.ExtractEntities(text, models.DocumentMeta{})

	require.NotEmpty(t, result.People)
	assert.Equal(t, "Jane Smith", result.People[0].Name)
	assert.Equal(t, "analyst", result.People[0].Role)

	categories := map[string]string{}
	for _, topic := range result.Topics {
		categories[topic.Topic] = topic.Category
	}
	assert.Equal(t, "topic", categories["Data Center"])
	assert.Equal(t, "opportunity", categories["Tailwind"])
	assert.Equal(t, "risk", categories["Tariff"])
}

func TestExtractEntitiesEmptyText(t *testing.T) {
	extractor := newTestRuleExtractor()

	result := extractor.ExtractEntities("", models.DocumentMeta{})

	assert.True(t, result.IsEmpty())
	assert.Zero(t, result.Confidence)
}

func TestAssignPrimaryTicker(t *testing.T) {
	result := models.ExtractionResult{
		Tickers: []models.TickerMention{
			{Symbol: "AAPL", Evidence: models.Evidence{Confidence: 0.6}},
			{Symbol: "NVDA", Evidence: models.Evidence{Confidence: 0.9}},
		},
		Ratings: []models.RatingCall{
			{Rating: "BUY", Evidence: models.Evidence{Confidence: 0.8}},
			{Ticker: "AAPL", Rating: "HOLD", Evidence: models.Evidence{Confidence: 0.8}},
		},
		Metrics: []models.FinancialMetric{
			{MetricType: "Revenue", MetricValue: "$26.97B"},
		},
	}

	AssignPrimaryTicker(&result)

	assert.Equal(t, "NVDA", result.Ratings[0].Ticker, "blank ticker filled from highest-confidence mention")
	assert.Equal(t, "AAPL", result.Ratings[1].Ticker, "existing ticker untouched")
	assert.Equal(t, "NVDA", result.Metrics[0].Ticker)
}

func TestPrimaryTickerEmpty(t *testing.T) {
	var result models.ExtractionResult
	assert.Equal(t, "", PrimaryTicker(&result))

	AssignPrimaryTicker(&result)
	assert.Empty(t, result.Ratings)
}
