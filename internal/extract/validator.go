// Package extract turns noisy research text and attachment tables into
// typed, confidence-scored entity candidates without NLP infrastructure.
package extract

import (
	"regexp"
	"strings"

	"github.com/ternarybob/signum/internal/models"
)

// ValidatorConfig holds the curated lists the ticker validator runs
// against. Constructed once and injected so tenants can customize.
type ValidatorConfig struct {
	// SingleLetterAllow lists the single-letter symbols that actually
	// trade (e.g. V for Visa, F for Ford).
	SingleLetterAllow []string
	// DenyList holds uppercase words that look like tickers but almost
	// never are: pronouns, currency codes, titles.
	DenyList []string
	// RatingWords are deny-listed rating labels. Stricter than the
	// general deny list: a bare "(BUY)" parenthetical does not rescue
	// them, only an explicit ticker/symbol/exchange marker does.
	RatingWords []string
}

// DefaultValidatorConfig returns the curated default lists.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		SingleLetterAllow: []string{
			"A", "B", "C", "D", "F", "K", "L", "M", "O", "T", "V", "X",
		},
		DenyList: []string{
			// Pronouns and common words
			"I", "IT", "HE", "WE", "YOU", "THEY", "THE", "AND", "FOR",
			"ARE", "ALL", "NEW", "NOW", "ONE", "CAN", "HAS", "WAS",
			// Currency codes
			"USD", "EUR", "GBP", "AUD", "JPY", "CAD", "CHF", "CNY",
			// Titles
			"CEO", "CFO", "CTO", "COO", "MD", "VP", "DR", "MR", "MS",
			// Finance jargon
			"EPS", "ETF", "IPO", "GDP", "YOY", "QOQ", "FY", "EBITDA",
		},
		RatingWords: []string{
			"BUY", "SELL", "HOLD", "STRONG", "NEUTRAL", "OVERWEIGHT",
			"UNDERWEIGHT", "OUTPERFORM", "UNDERPERFORM",
		},
	}
}

var (
	// 2-5 letters with optional exchange suffix, or 4/6-digit numeric codes
	structuralPattern = regexp.MustCompile(`^(?:[A-Z]{2,5}(?:\.[A-Z]{1,4})?|\d{4}|\d{6})$`)
	numericPattern    = regexp.MustCompile(`^\d+$`)
)

// TickerValidator filters candidate ticker symbols to cut false
// positives from all-caps prose.
type TickerValidator struct {
	singleAllow map[string]bool
	deny        map[string]bool
	ratingWords map[string]bool
}

// NewTickerValidator builds a validator from the given lists.
func NewTickerValidator(cfg ValidatorConfig) *TickerValidator {
	v := &TickerValidator{
		singleAllow: make(map[string]bool, len(cfg.SingleLetterAllow)),
		deny:        make(map[string]bool, len(cfg.DenyList)+len(cfg.RatingWords)),
		ratingWords: make(map[string]bool, len(cfg.RatingWords)),
	}
	for _, s := range cfg.SingleLetterAllow {
		v.singleAllow[strings.ToUpper(s)] = true
	}
	for _, s := range cfg.DenyList {
		v.deny[strings.ToUpper(s)] = true
	}
	for _, s := range cfg.RatingWords {
		upper := strings.ToUpper(s)
		v.deny[upper] = true
		v.ratingWords[upper] = true
	}
	return v
}

// ValidateTicker decides whether a candidate symbol should be kept.
// High extractor confidence (>= 0.9) always wins; single letters need
// the allow list or an explicit context marker; deny-listed words need
// an explicit context marker; everything else must fit the structural
// pattern.
func (v *TickerValidator) ValidateTicker(candidate, context string, confidence float64) bool {
	candidate = strings.ToUpper(strings.TrimSpace(candidate))
	if candidate == "" {
		return false
	}

	if confidence >= 0.9 {
		return true
	}

	if len(candidate) == 1 {
		return v.singleAllow[candidate] || v.hasExplicitMarker(candidate, context)
	}

	if v.deny[candidate] {
		return v.hasExplicitMarker(candidate, context)
	}

	if structuralPattern.MatchString(candidate) {
		return true
	}

	// Outside length bounds, or numeric with a length that no exchange uses
	if len(candidate) < 2 || len(candidate) > 6 {
		return false
	}
	if numericPattern.MatchString(candidate) {
		return len(candidate) == 4 || len(candidate) == 6
	}

	return false
}

// hasExplicitMarker checks for context that unambiguously marks the
// candidate as a ticker. Rating words only accept the ticker/symbol
// and EXCHANGE:X forms; "(BUY)" in a rating sentence proves nothing.
func (v *TickerValidator) hasExplicitMarker(candidate, context string) bool {
	if context == "" {
		return false
	}

	escaped := regexp.QuoteMeta(candidate)
	markers := []string{
		`(?i)\bticker:?\s*` + escaped + `\b`,
		`(?i)\bsymbol:?\s*` + escaped + `\b`,
		`\b[A-Z]{2,10}:` + escaped + `\b`, // NASDAQ:NVDA style
	}
	if !v.ratingWords[candidate] {
		markers = append(markers, `\(`+escaped+`\)`)
	}

	for _, m := range markers {
		if regexp.MustCompile(m).MatchString(context) {
			return true
		}
	}
	return false
}

// FilterTickers drops invalid ticker candidates from an extraction
// result. Other categories pass through untouched.
func (v *TickerValidator) FilterTickers(result *models.ExtractionResult) {
	kept := result.Tickers[:0]
	for _, t := range result.Tickers {
		if v.ValidateTicker(t.Symbol, t.Context, t.Confidence) {
			kept = append(kept, t)
		}
	}
	result.Tickers = kept
}

// EnhanceTickerConfidence recomputes a confidence delta from contextual
// markers. Pure: validator state is never touched.
func (v *TickerValidator) EnhanceTickerConfidence(ticker, context string) float64 {
	if ticker == "" || context == "" {
		return 0
	}

	escaped := regexp.QuoteMeta(strings.ToUpper(strings.TrimSpace(ticker)))
	delta := 0.0

	if regexp.MustCompile(`\b[A-Z]{2,10}:` + escaped + `\b`).MatchString(context) {
		delta += 0.3
	}
	if regexp.MustCompile(`(?i)\b(?:ticker|symbol):?\s*` + escaped + `\b`).MatchString(context) {
		delta += 0.25
	}
	if regexp.MustCompile(`\(` + escaped + `\)`).MatchString(context) {
		delta += 0.2
	}
	if regexp.MustCompile(`(?i)\b(?:shares?|stock|price target)\b`).MatchString(context) {
		delta += 0.1
	}

	if delta > 0.4 {
		delta = 0.4
	}
	return delta
}
