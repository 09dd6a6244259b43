package extract

import (
	"github.com/ternarybob/signum/internal/models"
)

// AssignPrimaryTicker fills the ticker field of ratings, price targets
// and metrics that were extracted without one, using the document's
// highest-confidence ticker mention. Table rows rarely repeat the
// symbol on every line; the surrounding document supplies it.
func AssignPrimaryTicker(result *models.ExtractionResult) {
	primary := PrimaryTicker(result)
	if primary == "" {
		return
	}

	for i := range result.Ratings {
		if result.Ratings[i].Ticker == "" {
			result.Ratings[i].Ticker = primary
		}
	}
	for i := range result.PriceTargets {
		if result.PriceTargets[i].Ticker == "" {
			result.PriceTargets[i].Ticker = primary
		}
	}
	for i := range result.Metrics {
		if result.Metrics[i].Ticker == "" {
			result.Metrics[i].Ticker = primary
		}
	}
}

// PrimaryTicker returns the highest-confidence ticker mention, or ""
// when the document has none.
func PrimaryTicker(result *models.ExtractionResult) string {
	primary := ""
	best := 0.0
	for _, t := range result.Tickers {
		if t.Confidence > best {
			best = t.Confidence
			primary = t.Symbol
		}
	}
	return primary
}
