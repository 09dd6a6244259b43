package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/signum/internal/models"
)

func TestValidateTicker(t *testing.T) {
	validator := NewTickerValidator(DefaultValidatorConfig())

	tests := []struct {
		name       string
		candidate  string
		context    string
		confidence float64
		want       bool
	}{
		{
			name:       "allow-listed single letter",
			candidate:  "V",
			context:    "",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "pronoun without marker",
			candidate:  "I",
			context:    "I think the quarter was strong",
			confidence: 0.5,
			want:       false,
		},
		{
			name:       "pronoun rescued by ticker marker",
			candidate:  "I",
			context:    "ticker I represents Intelligent Systems",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "rating word with parenthetical only",
			candidate:  "BUY",
			context:    "(BUY) rating",
			confidence: 0.5,
			want:       false,
		},
		{
			name:       "rating word with exchange marker",
			candidate:  "BUY",
			context:    "see NASDAQ:BUY for the listing",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "deny-listed word with parenthetical",
			candidate:  "CEO",
			context:    "the company (CEO) filing",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "structural match",
			candidate:  "NVDA",
			context:    "",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "exchange suffix",
			candidate:  "BHP.AX",
			context:    "",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "high confidence always wins",
			candidate:  "I",
			context:    "",
			confidence: 0.95,
			want:       true,
		},
		{
			name:       "single letter not allow-listed",
			candidate:  "Q",
			context:    "",
			confidence: 0.5,
			want:       false,
		},
		{
			name:       "four digit numeric code",
			candidate:  "7203",
			context:    "",
			confidence: 0.5,
			want:       true,
		},
		{
			name:       "too long",
			candidate:  "TOOLONGX",
			context:    "",
			confidence: 0.5,
			want:       false,
		},
		{
			name:       "empty candidate",
			candidate:  "",
			context:    "",
			confidence: 0.95,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validator.ValidateTicker(tt.candidate, tt.context, tt.confidence)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnhanceTickerConfidence(t *testing.T) {
	validator := NewTickerValidator(DefaultValidatorConfig())

	tests := []struct {
		name    string
		ticker  string
		context string
		want    float64
	}{
		{
			name:    "exchange prefix",
			ticker:  "NVDA",
			context: "listed as NASDAQ:NVDA yesterday",
			want:    0.3,
		},
		{
			name:    "ticker keyword",
			ticker:  "NVDA",
			context: "ticker: NVDA climbed today",
			want:    0.25,
		},
		{
			name:    "parenthetical",
			ticker:  "NVDA",
			context: "Nvidia (NVDA) climbed today",
			want:    0.2,
		},
		{
			name:    "finance vocabulary only",
			ticker:  "NVDA",
			context: "the stock climbed today",
			want:    0.1,
		},
		{
			name:    "stacked markers capped",
			ticker:  "NVDA",
			context: "Nvidia (NVDA) NASDAQ:NVDA price target raised",
			want:    0.4,
		},
		{
			name:    "no context",
			ticker:  "NVDA",
			context: "",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validator.EnhanceTickerConfidence(tt.ticker, tt.context)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestFilterTickers(t *testing.T) {
	validator := NewTickerValidator(DefaultValidatorConfig())

	result := models.ExtractionResult{
		Tickers: []models.TickerMention{
			{Symbol: "NVDA", Evidence: models.Evidence{Confidence: 0.6}},
			{Symbol: "BUY", Evidence: models.Evidence{Confidence: 0.6, Context: "(BUY) rating"}},
			{Symbol: "THE", Evidence: models.Evidence{Confidence: 0.6}},
		},
		Companies: []models.CompanyMention{
			{Name: "Goldman Sachs", Evidence: models.Evidence{Confidence: 0.8}},
		},
	}

	validator.FilterTickers(&result)

	assert.Len(t, result.Tickers, 1)
	assert.Equal(t, "NVDA", result.Tickers[0].Symbol)
	assert.Len(t, result.Companies, 1, "other categories pass through untouched")
}
