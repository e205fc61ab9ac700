// Package sources implements the marketplace fetchers. Each fetcher turns
// one search term into raw candidates for the reconciliation engine and
// declares whether a successful pass covers the marketplace completely.
// Fetchers filter for relevance but never stamp dates or touch the store;
// batching, worker fan-out and failure handling belong to the run pipeline.
package sources

import (
	"context"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/cache"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

// Fetcher is the capability every marketplace implements. The engine and
// pipeline depend only on this interface, never on concrete sources.
type Fetcher interface {
	// Source identifies the marketplace this fetcher scrapes.
	Source() models.Source

	// Exhaustive reports whether a successful Fetch returns the complete
	// current result set for a term. Only exhaustive sources let absent
	// stored listings be inferred sold.
	Exhaustive() bool

	// Fetch returns the raw candidates for one search term. An error means
	// the pass was incomplete and must not drive staleness decisions.
	Fetch(ctx context.Context, term string) ([]models.Candidate, error)
}

// Enabled builds the fetcher set selected by configuration, in the fixed
// source order used for reporting.
func Enabled(cfg config.SourcesConfig, client *fetch.Client, snapshots cache.Cache, scorer *match.Scorer, log *logger.Logger) []Fetcher {
	var fetchers []Fetcher
	if cfg.Gumtree.Enabled {
		fetchers = append(fetchers, NewGumtree(cfg.Gumtree, client, scorer, log))
	}
	if cfg.AutoTrader.Enabled {
		fetchers = append(fetchers, NewAutoTrader(cfg.AutoTrader, client, log))
	}
	if cfg.WeBuyCars.Enabled {
		fetchers = append(fetchers, NewWeBuyCars(cfg.WeBuyCars, snapshots, scorer, log))
	}
	return fetchers
}
