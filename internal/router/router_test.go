package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/signum/internal/models"
)

func TestRouteQuery(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		query         string
		wantType      QueryType
		minConfidence float64
	}{
		{"What's NVDA's latest rating?", StructuredRating, 0.85},
		{"Why did Goldman upgrade NVDA?", SemanticWhy, 0.85},
		{"What's NVDA's rating and why did it change?", Hybrid, 0.80},
		{"Show me the price target for AAPL", StructuredPrice, 0.85},
		{"Show me Q2 2024 revenue for AAPL", StructuredMetric, 0.85},
		{"How does TSMC capacity affect NVDA supply?", SemanticHow, 0.80},
		{"Explain the data center thesis", SemanticExplain, 0.80},
		{"anything at all", SemanticExplain, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gotType, confidence := r.RouteQuery(tt.query)
			assert.Equal(t, tt.wantType, gotType)
			assert.GreaterOrEqual(t, confidence, tt.minConfidence)
		})
	}
}

func TestRouteQueryDefaultConfidence(t *testing.T) {
	r := NewRouter()

	_, confidence := r.RouteQuery("anything at all")
	assert.InDelta(t, 0.50, confidence, 0.001, "uncertain queries fall back to the reasoning layer at low confidence")
}

func TestLayerSelection(t *testing.T) {
	assert.True(t, ShouldUseSignalStore(StructuredRating))
	assert.True(t, ShouldUseSignalStore(Hybrid))
	assert.False(t, ShouldUseSignalStore(SemanticWhy))

	assert.True(t, ShouldUseSemantic(SemanticHow))
	assert.True(t, ShouldUseSemantic(Hybrid))
	assert.False(t, ShouldUseSemantic(StructuredMetric))
}

func TestExtractTicker(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		query string
		want  string
	}{
		{"Show me AAPL rating", "AAPL"},
		{"What's NVDA's latest rating?", "NVDA"},
		{"WHY did it drop", ""},
		{"compare MSFT and GOOG", "MSFT"},
		{"no ticker here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ExtractTicker(tt.query))
		})
	}
}

func TestExtractMetricInfo(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		query      string
		wantMetric string
		wantPeriod string
	}{
		{"Show me Q2 2024 revenue for AAPL", "Revenue", "Q2 2024"},
		{"operating margin in FY2024", "Operating Margin", "FY2024"},
		{"TTM free cash flow for MSFT", "Free Cash Flow", "TTM"},
		{"EPS for 2023", "EPS", "2023"},
		{"latest rating", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			metric, period := r.ExtractMetricInfo(tt.query)
			assert.Equal(t, tt.wantMetric, metric)
			assert.Equal(t, tt.wantPeriod, period)
		})
	}
}

func TestFormatResult(t *testing.T) {
	ts := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rating", func(t *testing.T) {
		out := FormatResult("q", &models.Rating{
			Ticker: "NVDA", Rating: "BUY", Firm: "Goldman Sachs", Analyst: "Jane Smith",
			Confidence: 0.85, Timestamp: ts,
		})
		assert.Contains(t, out, "NVDA")
		assert.Contains(t, out, "BUY")
		assert.Contains(t, out, "Goldman Sachs")
		assert.Contains(t, out, "2025-08-01")
	})

	t.Run("price target", func(t *testing.T) {
		out := FormatResult("q", &models.PriceTarget{
			Ticker: "NVDA", TargetPrice: 500, Currency: "USD", Firm: "Goldman Sachs",
			Confidence: 0.8, Timestamp: ts,
		})
		assert.Contains(t, out, "500.00 USD")
	})

	t.Run("metric", func(t *testing.T) {
		out := FormatResult("q", &models.Metric{
			Ticker: "NVDA", MetricType: "Operating Margin", MetricValue: "62.3%",
			Period: "Q2 2024", Confidence: 0.95,
		})
		assert.Contains(t, out, "Operating Margin")
		assert.Contains(t, out, "62.3%")
		assert.Contains(t, out, "Q2 2024")
	})

	t.Run("rating history", func(t *testing.T) {
		out := FormatResult("q", []models.Rating{
			{Ticker: "NVDA", Rating: "BUY", Timestamp: ts},
			{Ticker: "NVDA", Rating: "HOLD", Timestamp: ts},
		})
		assert.Contains(t, out, "BUY")
		assert.Contains(t, out, "HOLD")
	})

	t.Run("no data", func(t *testing.T) {
		assert.Equal(t, `no data found for "missing query"`, FormatResult("missing query", nil))

		var rating *models.Rating
		assert.Contains(t, FormatResult("q", rating), "no data found")

		assert.Contains(t, FormatResult("q", []models.Metric{}), "no data found")
	})
}
