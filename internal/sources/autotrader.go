package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
)

const autotraderHost = "https://www.autotrader.co.za"

// AutoTrader scrapes autotrader.co.za bike search pages. The site is queried
// by brand and model path segments, and its result markup uses generated
// class names with stable prefixes, so tiles are selected by class prefix
// rather than exact class. Search phrasings are tried most specific first
// and the walk stops as soon as one phrasing yields accepted candidates, so
// broad fallback queries cannot dilute a good specific result.
type AutoTrader struct {
	cfg    config.AutoTraderConfig
	client *fetch.Client
	log    *logger.Logger
}

func NewAutoTrader(cfg config.AutoTraderConfig, client *fetch.Client, log *logger.Logger) *AutoTrader {
	return &AutoTrader{
		cfg:    cfg,
		client: client,
		log:    log.With("source", models.SourceAutoTrader),
	}
}

func (a *AutoTrader) Source() models.Source { return models.SourceAutoTrader }

// Exhaustive is true: a completed variation walk covers everything
// AutoTrader currently lists for the term.
func (a *AutoTrader) Exhaustive() bool { return true }

// Fetch searches AutoTrader for one term. Terms without a brand and a model
// cannot be formed into a search path and are skipped with a warning.
func (a *AutoTrader) Fetch(ctx context.Context, term string) ([]models.Candidate, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, search.ErrEmptySearchTerm
	}

	parts := strings.Fields(trimmed)
	if len(parts) < 2 {
		a.log.Warn("term needs a brand and a model, skipping", "term", trimmed)
		return nil, nil
	}
	brand := strings.ToLower(parts[0])

	variations, err := search.Variations(trimmed)
	if err != nil {
		return nil, err
	}
	if len(variations) > 1 {
		a.log.Debug("trying search variations", "term", trimmed, "variations", len(variations))
	}

	var candidates []models.Candidate
	seen := make(map[string]bool)

	for _, variation := range variations {
		varParts := strings.Fields(variation)
		if len(varParts) < 2 {
			continue
		}
		model := strings.Join(varParts[1:], " ")

		pageURL := fmt.Sprintf("%s/%s/%s", a.cfg.BaseURL, brand, url.PathEscape(model))
		a.log.Debug("trying variation", "variation", variation, "url", pageURL)

		body, err := a.client.Get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("fetching autotrader results for %q: %w", variation, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parsing autotrader results: %w", err)
		}

		found := a.parseResults(doc, trimmed, seen)
		candidates = append(candidates, found...)
		if len(found) > 0 {
			a.log.Debug("variation produced candidates, skipping broader phrasings",
				"variation", variation, "candidates", len(found))
			break
		}
	}

	a.log.Info("search complete", "term", trimmed, "candidates", len(candidates))
	return candidates, nil
}

// parseResults extracts the result tiles of one page. Candidates are always
// checked against the original term, not the variation that found the page,
// so a widened query cannot lower the bar. seen carries ids across
// variations of the same term.
func (a *AutoTrader) parseResults(doc *goquery.Document, term string, seen map[string]bool) []models.Candidate {
	var candidates []models.Candidate

	doc.Find("a[class^='b-result-tile']").Each(func(_ int, tile *goquery.Selection) {
		title := selectionText(tile.Find("span[class^='e-make-model-title']").First())
		if title == "" || strings.EqualFold(title, "undefined") {
			return
		}

		if !match.ModelRelevant(title, term, a.cfg.Threshold) {
			a.log.Debug("tile failed model relevance check", "title", title, "term", term)
			return
		}

		price := selectionText(tile.Find("h2[class^='e-price']").First())
		if price == "" {
			return
		}

		href, ok := tile.Attr("href")
		if !ok || href == "" {
			return
		}

		rawID := path.Base(strings.SplitN(href, "?", 2)[0])
		if rawID == "" || rawID == "." || rawID == "/" || seen[rawID] {
			return
		}
		seen[rawID] = true

		kilometers, condition := parseSpecs(tile)

		if !strings.HasPrefix(href, "http") {
			href = autotraderHost + href
		}

		candidates = append(candidates, models.Candidate{
			Source:     models.SourceAutoTrader,
			RawID:      rawID,
			Title:      title,
			Price:      price,
			URL:        href,
			SearchTerm: term,
			Kilometers: kilometers,
			Condition:  condition,
			Location:   selectionText(tile.Find("span[class^='e-suburb']").First()),
		})
	})

	return candidates
}

// parseSpecs reads the specification chips on a tile. A chip mentioning km
// is the odometer reading; used/new/demo chips are the condition.
func parseSpecs(tile *goquery.Selection) (kilometers, condition string) {
	tile.Find("[class^='b-vehicle-specifications']").First().
		Find("[class^='e-text']").Each(func(_ int, chip *goquery.Selection) {
		text := selectionText(chip)
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "km"):
			kilometers = text
		case lower == "used" || lower == "new" || lower == "demo":
			condition = text
		}
	})
	return kilometers, condition
}

// selectionText collapses a selection's text to single spaces. Non-breaking
// spaces inside odometer readings collapse along with ordinary whitespace.
func selectionText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
