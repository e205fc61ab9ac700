package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
)

// autotraderResultsPage mimics the generated class names the live site
// serves: stable prefix, volatile suffix. It carries one good tile, one tile
// for a different model number, an "undefined" placeholder tile, a tile
// without a price, and a repeat of the good tile under another query string.
const autotraderResultsPage = `<!DOCTYPE html>
<html><body>
<div class="b-search-results__kXj29dD1">
  <a class="b-result-tile__nUiUiFtR93FVbMOF" href="/bikes-for-sale/honda/cb-500-x/26013799?sort=PriceLow">
    <span class="e-make-model-title__yWb_LfShP7iz22PX">Honda CB 500 X</span>
    <h2 class="e-price__IA1Hxg4LkKwwRqMB">R&nbsp;94&nbsp;900</h2>
    <div class="b-vehicle-specifications__G33kWAOWZs0tmFIT">
      <span class="e-text__XJ7raWOpNHUkT6ZU">24&nbsp;000 km</span>
      <span class="e-text__XJ7raWOpNHUkT6ZU">Used</span>
      <span class="e-text__XJ7raWOpNHUkT6ZU">500 cc</span>
    </div>
    <span class="e-suburb__eiCxIOrnXW9SrLIq">Boksburg, Gauteng</span>
  </a>
  <a class="b-result-tile__nUiUiFtR93FVbMOF" href="/bikes-for-sale/honda/cb-650-r/26099999">
    <span class="e-make-model-title__yWb_LfShP7iz22PX">Honda CB 650 R</span>
    <h2 class="e-price__IA1Hxg4LkKwwRqMB">R&nbsp;119&nbsp;900</h2>
  </a>
  <a class="b-result-tile__nUiUiFtR93FVbMOF" href="/bikes-for-sale/honda/undefined/26088888">
    <span class="e-make-model-title__yWb_LfShP7iz22PX">undefined</span>
    <h2 class="e-price__IA1Hxg4LkKwwRqMB">R&nbsp;50&nbsp;000</h2>
  </a>
  <a class="b-result-tile__nUiUiFtR93FVbMOF" href="/bikes-for-sale/honda/cb-500-x/26077777?x=1">
    <span class="e-make-model-title__yWb_LfShP7iz22PX">Honda CB 500 X Adventure</span>
  </a>
  <a class="b-result-tile__nUiUiFtR93FVbMOF" href="/bikes-for-sale/honda/cb-500-x/26013799?sort=DateNew">
    <span class="e-make-model-title__yWb_LfShP7iz22PX">Honda CB 500 X</span>
    <h2 class="e-price__IA1Hxg4LkKwwRqMB">R&nbsp;94&nbsp;900</h2>
  </a>
</div>
</body></html>`

func testAutoTrader(t *testing.T, cfg config.AutoTraderConfig, client *fetch.Client) *AutoTrader {
	t.Helper()
	return NewAutoTrader(cfg, client, logger.New("error"))
}

func TestAutoTraderParseResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(autotraderResultsPage))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	a := testAutoTrader(t, config.AutoTraderConfig{Threshold: 0.5}, nil)
	candidates := a.parseResults(doc, "Honda CB 500 X", make(map[string]bool))

	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(candidates), candidates)
	}

	c := candidates[0]
	if c.Source != models.SourceAutoTrader {
		t.Errorf("Source = %q, want %q", c.Source, models.SourceAutoTrader)
	}
	if c.RawID != "26013799" {
		t.Errorf("RawID = %q, want the last path segment without query", c.RawID)
	}
	if c.Title != "Honda CB 500 X" {
		t.Errorf("Title = %q, want Honda CB 500 X", c.Title)
	}
	if c.Price != "R 94 900" {
		t.Errorf("Price = %q, want R 94 900 with collapsed spacing", c.Price)
	}
	if c.Kilometers != "24 000 km" {
		t.Errorf("Kilometers = %q, want 24 000 km", c.Kilometers)
	}
	if c.Condition != "Used" {
		t.Errorf("Condition = %q, want Used", c.Condition)
	}
	if c.Location != "Boksburg, Gauteng" {
		t.Errorf("Location = %q, want Boksburg, Gauteng", c.Location)
	}
	want := "https://www.autotrader.co.za/bikes-for-sale/honda/cb-500-x/26013799?sort=PriceLow"
	if c.URL != want {
		t.Errorf("URL = %q, want %q", c.URL, want)
	}
	if c.SearchTerm != "Honda CB 500 X" {
		t.Errorf("SearchTerm = %q, want the original term", c.SearchTerm)
	}
}

func TestAutoTraderFetchStopsAfterProductiveVariation(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		// The exact phrasing finds nothing; the first widened phrasing
		// serves results. Anything after that is a bug.
		if strings.HasSuffix(r.URL.Path, "/CB") {
			_, _ = w.Write([]byte(autotraderResultsPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body><p>No results</p></body></html>`))
	}))
	defer srv.Close()

	client := fetch.New(config.FetchConfig{UserAgent: "tracker-test", Timeout: 5 * time.Second})
	a := testAutoTrader(t, config.AutoTraderConfig{
		Threshold: 0.5,
		BaseURL:   srv.URL + "/bikes-for-sale",
	}, client)

	candidates, err := a.Fetch(context.Background(), "Honda CB 500 X")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].SearchTerm != "Honda CB 500 X" {
		t.Errorf("SearchTerm = %q, want the original term even via a variation", candidates[0].SearchTerm)
	}

	wantPaths := []string{
		"/bikes-for-sale/honda/CB 500 X",
		"/bikes-for-sale/honda/CB",
	}
	if len(paths) != len(wantPaths) {
		t.Fatalf("requested %d pages %v, want %d: broader phrasings must not run", len(paths), paths, len(wantPaths))
	}
	for i, want := range wantPaths {
		if paths[i] != want {
			t.Errorf("request %d = %q, want %q", i, paths[i], want)
		}
	}
}

func TestAutoTraderFetchSingleWordTerm(t *testing.T) {
	a := testAutoTrader(t, config.AutoTraderConfig{Threshold: 0.5}, nil)

	candidates, err := a.Fetch(context.Background(), "Honda")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates for a brand-only term, want 0", len(candidates))
	}
}

func TestAutoTraderFetchEmptyTerm(t *testing.T) {
	a := testAutoTrader(t, config.AutoTraderConfig{Threshold: 0.5}, nil)

	if _, err := a.Fetch(context.Background(), ""); !errors.Is(err, search.ErrEmptySearchTerm) {
		t.Errorf("Fetch error = %v, want ErrEmptySearchTerm", err)
	}
}

func TestAutoTraderFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unhappy", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := fetch.New(config.FetchConfig{UserAgent: "tracker-test", Timeout: 5 * time.Second})
	a := testAutoTrader(t, config.AutoTraderConfig{Threshold: 0.5, BaseURL: srv.URL + "/bikes-for-sale"}, client)

	if _, err := a.Fetch(context.Background(), "Honda CB 500 X"); err == nil {
		t.Fatal("Fetch succeeded against a failing server, want error")
	}
}
