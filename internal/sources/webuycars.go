package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/cache"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/listing"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
)

// InventoryKey is the snapshot cache key the WeBuyCars inventory dump is
// stored under. The refresher writes it; the fetcher reads it.
const InventoryKey = "inventory"

// makeModelFloor is the fraction of term words that must appear in a stock
// item's make+model before the title is even scored. Keeps "BMW G 310" from
// reaching the scorer against a "BMW C 400" item on loose word overlap.
const makeModelFloor = 0.6

// StockItem is one vehicle in the WeBuyCars inventory snapshot. Price and
// kilometers are nil when the feed omitted them, which is different from
// zero.
type StockItem struct {
	StockNumber string   `json:"stock_number"`
	Title       string   `json:"title"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Price       *float64 `json:"price"`
	Kilometers  *float64 `json:"kilometers"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`
}

// WeBuyCars searches the locally cached WeBuyCars inventory instead of the
// site. The snapshot is refreshed out of band by a headless-browser script;
// an ordinary tracker run never talks to webuycars.co.za. Because a pass
// only ever sees whatever snapshot happens to be cached, this source is
// never exhaustive and absence from a pass says nothing about a listing
// being gone.
type WeBuyCars struct {
	cfg       config.WeBuyCarsConfig
	snapshots cache.Cache
	scorer    *match.Scorer
	log       *logger.Logger
}

func NewWeBuyCars(cfg config.WeBuyCarsConfig, snapshots cache.Cache, scorer *match.Scorer, log *logger.Logger) *WeBuyCars {
	return &WeBuyCars{
		cfg:       cfg,
		snapshots: snapshots,
		scorer:    scorer,
		log:       log.With("source", models.SourceWeBuyCars),
	}
}

func (w *WeBuyCars) Source() models.Source { return models.SourceWeBuyCars }

// Exhaustive is false: candidates come from a periodically refreshed cache,
// so absence from one pass must never be read as sold.
func (w *WeBuyCars) Exhaustive() bool { return false }

// Fetch searches the cached inventory for one term. A missing or expired
// snapshot yields no candidates and a warning, not an error; the operator
// needs to run the cache refresher.
func (w *WeBuyCars) Fetch(ctx context.Context, term string) ([]models.Candidate, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, search.ErrEmptySearchTerm
	}

	snap, err := w.snapshots.Get(ctx, models.SourceWeBuyCars, InventoryKey)
	if err != nil {
		return nil, fmt.Errorf("reading webuycars snapshot: %w", err)
	}
	if snap == nil {
		w.log.Warn("inventory snapshot missing or expired, run the cache refresher", "term", trimmed)
		return nil, nil
	}

	var stock []StockItem
	if err := json.Unmarshal([]byte(snap.PayloadJSON), &stock); err != nil {
		return nil, fmt.Errorf("decoding webuycars snapshot: %w", err)
	}

	variations, err := search.Variations(trimmed)
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	seen := make(map[string]bool)

	for _, variation := range variations {
		found := 0
		for _, item := range stock {
			if item.StockNumber == "" || seen[item.StockNumber] {
				continue
			}
			if !w.relevant(item, variation) {
				continue
			}
			seen[item.StockNumber] = true
			candidates = append(candidates, w.candidate(item, trimmed))
			found++
		}
		// Most specific phrasing first; once one matches, the broader ones
		// would only dilute.
		if found > 0 {
			w.log.Debug("variation matched stock, skipping broader phrasings",
				"variation", variation, "candidates", found)
			break
		}
	}

	w.log.Info("snapshot search complete",
		"term", trimmed,
		"stock", len(stock),
		"candidates", len(candidates),
		"snapshot_age", time.Since(snap.FetchedAt).Round(time.Minute).String())
	return candidates, nil
}

// relevant gates a stock item on the make+model word floor, then scores the
// full title. The floor is a containment check, not a score: every term
// word pulls its weight or the item never reaches the scorer.
func (w *WeBuyCars) relevant(item StockItem, term string) bool {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return false
	}

	fullName := strings.ToLower(strings.TrimSpace(item.Make + " " + item.Model))
	matching := 0
	for _, word := range words {
		if strings.Contains(fullName, word) {
			matching++
		}
	}
	if float64(matching)/float64(len(words)) < makeModelFloor {
		return false
	}

	return w.scorer.IsMatch(item.Title, term, w.cfg.Threshold)
}

// candidate renders a stock item into the common candidate shape. The
// original search term does the grouping even when a variation matched.
func (w *WeBuyCars) candidate(item StockItem, term string) models.Candidate {
	price := models.NotAvailable
	if item.Price != nil {
		price = listing.FormatPrice(*item.Price)
	}

	kilometers := ""
	if item.Kilometers != nil {
		kilometers = listing.FormatThousands(*item.Kilometers) + " km"
	}

	return models.Candidate{
		Source:     models.SourceWeBuyCars,
		RawID:      item.StockNumber,
		Title:      item.Title,
		Price:      price,
		URL:        item.URL,
		SearchTerm: term,
		Kilometers: kilometers,
		Location:   item.Location,
	}
}
