// Package query dispatches classified queries to the signal store and
// the semantic index and merges their answers.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/interfaces"
	"github.com/ternarybob/signum/internal/router"
	"github.com/ternarybob/signum/internal/storage/sqlite"
)

// Result is one answered query.
type Result struct {
	Query      string                   `json:"query"`
	Type       router.QueryType         `json:"type"`
	Confidence float64                  `json:"confidence"`
	Answer     string                   `json:"answer"`
	Structured string                   `json:"structured,omitempty"`
	Semantic   []interfaces.SemanticHit `json:"semantic,omitempty"`
	Cached     bool                     `json:"cached"`
}

// Dispatcher routes queries and consults the layer(s) the
// classification demands. Answers are cached briefly since research
// sessions tend to repeat lookups.
type Dispatcher struct {
	store         *sqlite.Manager
	index         interfaces.SemanticIndex
	router        *router.Router
	cache         *gocache.Cache
	logger        arbor.ILogger
	semanticLimit int
	historyLimit  int
}

// NewDispatcher wires the dispatcher from configuration.
func NewDispatcher(logger arbor.ILogger, store *sqlite.Manager, index interfaces.SemanticIndex, config common.QueryConfig) *Dispatcher {
	ttl, err := time.ParseDuration(config.CacheTTL)
	if err != nil || ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Dispatcher{
		store:         store,
		index:         index,
		router:        router.NewRouter(),
		cache:         gocache.New(ttl, 2*ttl),
		logger:        logger,
		semanticLimit: config.SemanticLimit,
		historyLimit:  config.HistoryLimit,
	}
}

// Execute classifies and answers one query.
func (d *Dispatcher) Execute(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	cacheKey := strings.ToLower(query)
	if cached, found := d.cache.Get(cacheKey); found {
		result := cached.(*Result)
		copied := *result
		copied.Cached = true
		return &copied, nil
	}

	queryType, confidence := d.router.RouteQuery(query)
	result := &Result{
		Query:      query,
		Type:       queryType,
		Confidence: confidence,
	}

	if router.ShouldUseSignalStore(queryType) {
		structured, err := d.answerStructured(ctx, query, queryType)
		if err != nil {
			return nil, err
		}
		result.Structured = structured
	}

	if router.ShouldUseSemantic(queryType) {
		hits, err := d.index.Search(ctx, query, d.semanticLimit)
		if err != nil {
			return nil, fmt.Errorf("semantic search failed: %w", err)
		}
		result.Semantic = hits
	}

	result.Answer = mergeAnswer(query, result)

	d.logger.Debug().
		Str("type", string(queryType)).
		Float64("confidence", confidence).
		Int("semantic_hits", len(result.Semantic)).
		Msg("Query answered")

	d.cache.Set(cacheKey, result, gocache.DefaultExpiration)
	return result, nil
}

// answerStructured consults the fact table matching the query's
// structured classification.
func (d *Dispatcher) answerStructured(ctx context.Context, query string, queryType router.QueryType) (string, error) {
	subtype := queryType
	if queryType == router.Hybrid {
		if t, ok := d.router.StructuredSubtype(query); ok {
			subtype = t
		} else {
			return "", nil
		}
	}

	ticker := d.router.ExtractTicker(query)
	if ticker == "" {
		return router.FormatResult(query, nil), nil
	}
	wantHistory := containsFold(query, "history") || containsFold(query, "over time")

	switch subtype {
	case router.StructuredRating:
		if wantHistory {
			ratings, err := d.store.Ratings.GetHistory(ctx, ticker, d.historyLimit)
			if err != nil {
				return "", err
			}
			return router.FormatResult(query, ratings), nil
		}
		rating, err := d.store.Ratings.GetLatest(ctx, ticker)
		if err != nil {
			return "", err
		}
		return router.FormatResult(query, rating), nil

	case router.StructuredPrice:
		if wantHistory {
			targets, err := d.store.PriceTargets.GetHistory(ctx, ticker, d.historyLimit)
			if err != nil {
				return "", err
			}
			return router.FormatResult(query, targets), nil
		}
		target, err := d.store.PriceTargets.GetLatest(ctx, ticker)
		if err != nil {
			return "", err
		}
		return router.FormatResult(query, target), nil

	case router.StructuredMetric:
		metricType, period := d.router.ExtractMetricInfo(query)
		if metricType == "" {
			return router.FormatResult(query, nil), nil
		}
		if period != "" {
			metric, err := d.store.Metrics.GetByPeriod(ctx, ticker, metricType, period)
			if err != nil {
				return "", err
			}
			return router.FormatResult(query, metric), nil
		}
		metric, err := d.store.Metrics.GetLatest(ctx, ticker, metricType)
		if err != nil {
			return "", err
		}
		return router.FormatResult(query, metric), nil
	}

	return "", nil
}

// mergeAnswer renders the final answer. For HYBRID the structured
// facts lead and the narrative hits follow, so the reader sees the
// current position before the reasoning behind it.
func mergeAnswer(query string, result *Result) string {
	var sections []string

	if result.Structured != "" {
		sections = append(sections, result.Structured)
	}

	if len(result.Semantic) > 0 {
		lines := make([]string, 0, len(result.Semantic))
		for _, hit := range result.Semantic {
			lines = append(lines, fmt.Sprintf("[%.2f] %s: %s", hit.Score, hit.Title, hit.Snippet))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return fmt.Sprintf("no data found for %q", query)
	}
	return strings.Join(sections, "\n\n")
}

func containsFold(text, substr string) bool {
	return strings.Contains(strings.ToLower(text), substr)
}
