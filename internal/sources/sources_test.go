package sources

import (
	"testing"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

func TestEnabledSelectsConfiguredSources(t *testing.T) {
	cfg := config.SourcesConfig{
		Gumtree:    config.GumtreeConfig{Enabled: true, Threshold: 0.435},
		AutoTrader: config.AutoTraderConfig{Enabled: false, Threshold: 0.5},
		WeBuyCars:  config.WeBuyCarsConfig{Enabled: true, Threshold: 0.4575},
	}

	fetchers := Enabled(cfg, nil, nil, match.NewScorer(0, 0), logger.New("error"))

	want := []models.Source{models.SourceGumtree, models.SourceWeBuyCars}
	if len(fetchers) != len(want) {
		t.Fatalf("got %d fetchers, want %d", len(fetchers), len(want))
	}
	for i, source := range want {
		if fetchers[i].Source() != source {
			t.Errorf("fetcher %d = %q, want %q", i, fetchers[i].Source(), source)
		}
	}
}

func TestSiteSourcesAreExhaustive(t *testing.T) {
	g := NewGumtree(config.GumtreeConfig{}, nil, match.NewScorer(0, 0), logger.New("error"))
	if !g.Exhaustive() {
		t.Error("Gumtree must be exhaustive: a search covers the whole site")
	}

	a := NewAutoTrader(config.AutoTraderConfig{}, nil, logger.New("error"))
	if !a.Exhaustive() {
		t.Error("AutoTrader must be exhaustive: a variation walk covers the whole site")
	}
}
