package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
)

// gumtreeResultsPage carries one good ad, one ad for a different brand, one
// ad without a price, a repeat of the good ad, and one ad without an id.
const gumtreeResultsPage = `<!DOCTYPE html>
<html><body>
<div class="related-ads">
  <span class="related-item" data-adid="1316986970">
    <a class="related-ad-title" href="/a-motorcycles-scooters/boksburg/2024-honda-rebel-500/1316986970">
      <span> 2024 Honda <b>Rebel 500</b> </span>
    </a>
    <span class="ad-price"> R 85,000 </span>
  </span>
  <span class="related-item" data-adid="1316111111">
    <a class="related-ad-title" href="/a-motorcycles-scooters/durban/vespa-primavera/1316111111">
      <span>2019 Vespa Primavera 150</span>
    </a>
    <span class="ad-price">R 52,000</span>
  </span>
  <span class="related-item" data-adid="1316222222">
    <a class="related-ad-title" href="/a-motorcycles-scooters/pretoria/honda-rebel/1316222222">
      <span>Honda Rebel 500 2022 model</span>
    </a>
  </span>
  <span class="related-item" data-adid="1316986970">
    <a class="related-ad-title" href="/a-motorcycles-scooters/boksburg/2024-honda-rebel-500/1316986970">
      <span>2024 Honda Rebel 500</span>
    </a>
    <span class="ad-price">R 85,000</span>
  </span>
  <span class="related-item">
    <a class="related-ad-title" href="/a-motorcycles-scooters/cape-town/honda-rebel/no-id">
      <span>Honda Rebel 500 ABS</span>
    </a>
    <span class="ad-price">R 79,000</span>
  </span>
</div>
</body></html>`

func testGumtree(t *testing.T, cfg config.GumtreeConfig, client *fetch.Client) *Gumtree {
	t.Helper()
	return NewGumtree(cfg, client, match.NewScorer(0, 0), logger.New("error"))
}

func parseGumtreePage(t *testing.T) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(gumtreeResultsPage))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return root
}

func TestGumtreeParseResults(t *testing.T) {
	g := testGumtree(t, config.GumtreeConfig{Threshold: 0.435}, nil)

	candidates := g.parseResults(parseGumtreePage(t), "Honda Rebel 500")
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(candidates), candidates)
	}

	c := candidates[0]
	if c.Source != models.SourceGumtree {
		t.Errorf("Source = %q, want %q", c.Source, models.SourceGumtree)
	}
	if c.RawID != "1316986970" {
		t.Errorf("RawID = %q, want 1316986970", c.RawID)
	}
	if c.Title != "2024 Honda Rebel 500" {
		t.Errorf("Title = %q, want collapsed nested text", c.Title)
	}
	if c.Price != "R 85,000" {
		t.Errorf("Price = %q, want R 85,000", c.Price)
	}
	want := "https://www.gumtree.co.za/a-motorcycles-scooters/boksburg/2024-honda-rebel-500/1316986970"
	if c.URL != want {
		t.Errorf("URL = %q, want %q", c.URL, want)
	}
	if c.SearchTerm != "Honda Rebel 500" {
		t.Errorf("SearchTerm = %q, want the original term", c.SearchTerm)
	}
}

func TestGumtreeThresholdDrivesFiltering(t *testing.T) {
	// A near-zero threshold lets the wrong-brand ad through, proving the
	// filter is the configured threshold and not a hardcoded rule.
	g := testGumtree(t, config.GumtreeConfig{Threshold: 0.05}, nil)

	candidates := g.parseResults(parseGumtreePage(t), "Honda Rebel 500")
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[1].RawID != "1316111111" {
		t.Errorf("second candidate = %q, want the Vespa ad", candidates[1].RawID)
	}
}

func TestGumtreeFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(gumtreeResultsPage))
	}))
	defer srv.Close()

	client := fetch.New(config.FetchConfig{UserAgent: "tracker-test", Timeout: 5 * time.Second})
	g := testGumtree(t, config.GumtreeConfig{
		Threshold: 0.435,
		BaseURL:   srv.URL + "/s-motorcycles-scooters/v1c9027p1",
	}, client)

	candidates, err := g.Fetch(context.Background(), "Honda Rebel 500")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "Honda Rebel 500" {
		t.Errorf("search query = %q, want the term", gotQuery)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1", len(candidates))
	}
}

func TestGumtreeFetchEmptyTerm(t *testing.T) {
	g := testGumtree(t, config.GumtreeConfig{Threshold: 0.435}, nil)

	if _, err := g.Fetch(context.Background(), "   "); !errors.Is(err, search.ErrEmptySearchTerm) {
		t.Errorf("Fetch error = %v, want ErrEmptySearchTerm", err)
	}
}

func TestGumtreeFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	client := fetch.New(config.FetchConfig{UserAgent: "tracker-test", Timeout: 5 * time.Second})
	g := testGumtree(t, config.GumtreeConfig{Threshold: 0.435, BaseURL: srv.URL}, client)

	if _, err := g.Fetch(context.Background(), "Honda Rebel 500"); err == nil {
		t.Fatal("Fetch succeeded against a failing server, want error")
	}
}
