package reconcile

import (
	"testing"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

var (
	runOne   = time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	runTwo   = time.Date(2026, 8, 21, 8, 0, 0, 0, time.UTC)
	runThree = time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC)
)

func testEngine(t *testing.T, at time.Time) *Engine {
	t.Helper()
	return &Engine{
		log: logger.New("error"),
		now: func() time.Time { return at },
	}
}

func rebelCandidate(price string) models.Candidate {
	return models.Candidate{
		Source:     models.SourceGumtree,
		RawID:      "1316986970",
		Title:      "2024 Honda Rebel 500",
		Price:      price,
		URL:        "https://www.gumtree.co.za/a-motorcycles-scooters/1316986970",
		SearchTerm: "Honda Rebel 500",
	}
}

func gumtreeBatch(exhaustive bool, candidates ...models.Candidate) models.Batch {
	return models.Batch{
		Source:     models.SourceGumtree,
		Exhaustive: exhaustive,
		Candidates: candidates,
	}
}

func TestReconcileNewListing(t *testing.T) {
	e := testEngine(t, runOne)

	res := e.Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	if len(res.NewlyAdded) != 1 {
		t.Fatalf("expected 1 newly added, got %d", len(res.NewlyAdded))
	}
	if len(res.PriceChanges) != 0 || len(res.RemovedStale) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("expected a clean add, got %+v", res)
	}
	if len(res.Store) != 1 {
		t.Fatalf("expected 1 stored listing, got %d", len(res.Store))
	}

	l, ok := res.Store["gumtree_1316986970"]
	if !ok {
		t.Fatal("expected listing keyed by gumtree_1316986970")
	}
	if len(l.PriceHistory) != 1 {
		t.Fatalf("expected 1 price observation, got %d", len(l.PriceHistory))
	}
	if l.PriceHistory[0].Price != "R 85,000" {
		t.Errorf("expected first observation R 85,000, got %q", l.PriceHistory[0].Price)
	}
	if !l.FoundDate.Equal(runOne) || !l.LastSeen.Equal(runOne) {
		t.Errorf("expected found/last seen stamped %v, got %v / %v", runOne, l.FoundDate.Time, l.LastSeen.Time)
	}
}

func TestReconcileUnchangedListing(t *testing.T) {
	first := testEngine(t, runOne).Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	res := testEngine(t, runTwo).Reconcile(first.Store, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	if len(res.NewlyAdded) != 0 || len(res.PriceChanges) != 0 || len(res.RemovedStale) != 0 {
		t.Fatalf("expected nothing reported for an unchanged listing, got %+v", res)
	}

	l := res.Store["gumtree_1316986970"]
	if l == nil {
		t.Fatal("listing missing after unchanged run")
	}
	if len(l.PriceHistory) != 1 {
		t.Errorf("unchanged price must not grow history, got %d entries", len(l.PriceHistory))
	}
	if !l.FoundDate.Equal(runOne) {
		t.Errorf("found date must survive later runs, got %v", l.FoundDate.Time)
	}
	if !l.LastSeen.Equal(runTwo) {
		t.Errorf("expected last seen advanced to %v, got %v", runTwo, l.LastSeen.Time)
	}
}

func TestReconcilePriceChanged(t *testing.T) {
	first := testEngine(t, runOne).Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	res := testEngine(t, runTwo).Reconcile(first.Store, []models.Batch{gumtreeBatch(true, rebelCandidate("R 78,000"))})

	if len(res.PriceChanges) != 1 {
		t.Fatalf("expected 1 price change, got %d", len(res.PriceChanges))
	}
	change := res.PriceChanges[0]
	if change.OldPrice != "R 85,000" || change.NewPrice != "R 78,000" {
		t.Errorf("unexpected prices: old %q new %q", change.OldPrice, change.NewPrice)
	}
	if change.Delta != -7000 {
		t.Errorf("expected delta -7000, got %v", change.Delta)
	}
	if !change.Dropped() {
		t.Error("expected change classified as a drop")
	}

	l := res.Store["gumtree_1316986970"]
	if len(l.PriceHistory) != 2 {
		t.Fatalf("expected 2 history entries after a price change, got %d", len(l.PriceHistory))
	}
	if l.Price != "R 78,000" {
		t.Errorf("expected stored price updated to R 78,000, got %q", l.Price)
	}
	if !l.FoundDate.Equal(runOne) {
		t.Errorf("found date must survive price changes, got %v", l.FoundDate.Time)
	}
}

func TestReconcileStaleRemoved(t *testing.T) {
	first := testEngine(t, runOne).Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	res := testEngine(t, runTwo).Reconcile(first.Store, []models.Batch{gumtreeBatch(true)})

	if len(res.RemovedStale) != 1 {
		t.Fatalf("expected 1 stale removal, got %d", len(res.RemovedStale))
	}
	if res.RemovedStale[0].ID != "gumtree_1316986970" {
		t.Errorf("unexpected stale listing %q", res.RemovedStale[0].ID)
	}
	if len(res.Store) != 0 {
		t.Errorf("expected empty store after stale removal, got %d listings", len(res.Store))
	}
}

func TestReconcileNonExhaustivePreserves(t *testing.T) {
	first := testEngine(t, runOne).Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	res := testEngine(t, runTwo).Reconcile(first.Store, []models.Batch{gumtreeBatch(false)})

	if len(res.RemovedStale) != 0 {
		t.Fatalf("non-exhaustive batch must never remove listings, got %d", len(res.RemovedStale))
	}
	l := res.Store["gumtree_1316986970"]
	if l == nil {
		t.Fatal("expected listing preserved for non-exhaustive source")
	}
	if !l.LastSeen.Equal(runOne) {
		t.Errorf("preserved listing must keep its last seen, got %v", l.LastSeen.Time)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	batches := []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))}
	first := testEngine(t, runOne).Reconcile(nil, batches)

	res := testEngine(t, runTwo).Reconcile(first.Store, batches)

	if len(res.NewlyAdded) != 0 || len(res.PriceChanges) != 0 || len(res.RemovedStale) != 0 {
		t.Errorf("repeat reconciliation must report nothing: %+v", res)
	}
	if got := len(res.Store["gumtree_1316986970"].PriceHistory); got != 1 {
		t.Errorf("repeat reconciliation must not grow history, got %d entries", got)
	}
}

func TestReconcileStalenessScopedToBatchSource(t *testing.T) {
	autotrader := &models.Listing{
		ID:         "autotrader_26492411",
		Title:      "2021 Suzuki V-Strom 250",
		Price:      "R 62,500",
		PriceValue: 62500,
		URL:        "https://www.autotrader.co.za/bikes/26492411",
		SearchTerm: "Suzuki V-Strom 250",
		Source:     models.SourceAutoTrader,
		FoundDate:  models.NewWallTime(runOne),
		LastSeen:   models.NewWallTime(runOne),
		PriceHistory: []models.PriceObservation{
			{Date: models.NewWallTime(runOne), Price: "R 62,500"},
		},
	}
	previous := models.Store{autotrader.ID: autotrader}

	res := testEngine(t, runTwo).Reconcile(previous, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	if len(res.RemovedStale) != 0 {
		t.Fatalf("a gumtree batch must not remove autotrader listings, got %d", len(res.RemovedStale))
	}
	if res.Store["autotrader_26492411"] == nil {
		t.Error("expected autotrader listing carried over untouched")
	}
	if len(res.Store) != 2 {
		t.Errorf("expected 2 listings in store, got %d", len(res.Store))
	}
}

func TestReconcileDuplicateIDLaterWins(t *testing.T) {
	res := testEngine(t, runOne).Reconcile(nil, []models.Batch{
		gumtreeBatch(true, rebelCandidate("R 85,000"), rebelCandidate("R 83,500")),
	})

	if len(res.NewlyAdded) != 1 {
		t.Fatalf("duplicate ids must collapse to one listing, got %d added", len(res.NewlyAdded))
	}
	l := res.Store["gumtree_1316986970"]
	if l.Price != "R 83,500" {
		t.Errorf("expected the later occurrence to win, got %q", l.Price)
	}
	if len(l.PriceHistory) != 1 {
		t.Errorf("duplicates must never be summed into history, got %d entries", len(l.PriceHistory))
	}
}

func TestReconcileSkipsBadCandidates(t *testing.T) {
	missingTitle := rebelCandidate("R 85,000")
	missingTitle.RawID = "555"
	missingTitle.Title = ""

	noPrice := models.Candidate{
		Source:     models.SourceGumtree,
		RawID:      "777",
		Title:      "2019 KTM Duke 390",
		Price:      "POA",
		URL:        "https://www.gumtree.co.za/a-motorcycles-scooters/777",
		SearchTerm: "KTM Duke 390",
	}

	res := testEngine(t, runOne).Reconcile(nil, []models.Batch{
		gumtreeBatch(true, missingTitle, noPrice, rebelCandidate("R 85,000")),
	})

	if len(res.NewlyAdded) != 1 {
		t.Fatalf("good candidate must survive bad neighbours, got %d added", len(res.NewlyAdded))
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped candidates, got %d", len(res.Skipped))
	}
	reasons := map[string]bool{}
	for _, s := range res.Skipped {
		reasons[s.Reason] = true
	}
	if !reasons["malformed candidate"] || !reasons["unparsable price"] {
		t.Errorf("unexpected skip reasons: %+v", res.Skipped)
	}
}

func TestReconcileLeavesPreviousStoreUntouched(t *testing.T) {
	first := testEngine(t, runOne).Reconcile(nil, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})
	previous := first.Store

	testEngine(t, runTwo).Reconcile(previous, []models.Batch{gumtreeBatch(true, rebelCandidate("R 78,000"))})
	testEngine(t, runThree).Reconcile(previous, []models.Batch{gumtreeBatch(true)})

	l := previous["gumtree_1316986970"]
	if l == nil {
		t.Fatal("previous store lost its listing")
	}
	if l.Price != "R 85,000" {
		t.Errorf("previous store mutated: price now %q", l.Price)
	}
	if len(l.PriceHistory) != 1 {
		t.Errorf("previous store history mutated: %d entries", len(l.PriceHistory))
	}
	if !l.LastSeen.Equal(runOne) {
		t.Errorf("previous store last seen mutated: %v", l.LastSeen.Time)
	}
}

func TestReconcileBackfillsEmptyHistory(t *testing.T) {
	legacy := &models.Listing{
		ID:         "gumtree_1316986970",
		Title:      "2024 Honda Rebel 500",
		Price:      "R 85,000",
		PriceValue: 85000,
		URL:        "https://www.gumtree.co.za/a-motorcycles-scooters/1316986970",
		SearchTerm: "Honda Rebel 500",
		Source:     models.SourceGumtree,
		FoundDate:  models.NewWallTime(runOne),
		LastSeen:   models.NewWallTime(runOne),
	}
	previous := models.Store{legacy.ID: legacy}

	res := testEngine(t, runTwo).Reconcile(previous, []models.Batch{gumtreeBatch(true, rebelCandidate("R 85,000"))})

	if len(res.PriceChanges) != 0 {
		t.Fatalf("backfilling history is not a price change, got %d", len(res.PriceChanges))
	}
	l := res.Store["gumtree_1316986970"]
	if len(l.PriceHistory) != 1 {
		t.Fatalf("expected history backfilled to 1 entry, got %d", len(l.PriceHistory))
	}
	if l.PriceHistory[0].Price != "R 85,000" {
		t.Errorf("unexpected backfilled observation %q", l.PriceHistory[0].Price)
	}
}

func TestReconcileMultipleBatches(t *testing.T) {
	vstrom := models.Candidate{
		Source:     models.SourceAutoTrader,
		RawID:      "26492411",
		Title:      "2021 Suzuki V-Strom 250",
		Price:      "R 62,500",
		URL:        "https://www.autotrader.co.za/bikes/26492411",
		SearchTerm: "Suzuki V-Strom 250",
	}

	res := testEngine(t, runOne).Reconcile(nil, []models.Batch{
		gumtreeBatch(true, rebelCandidate("R 85,000")),
		{Source: models.SourceAutoTrader, Exhaustive: true, Candidates: []models.Candidate{vstrom}},
		{Source: models.SourceWeBuyCars, Exhaustive: false},
	})

	if len(res.NewlyAdded) != 2 {
		t.Fatalf("expected 2 newly added across batches, got %d", len(res.NewlyAdded))
	}
	if res.NewlyAdded[0].Source != models.SourceGumtree || res.NewlyAdded[1].Source != models.SourceAutoTrader {
		t.Errorf("expected additions in batch order, got %v then %v",
			res.NewlyAdded[0].Source, res.NewlyAdded[1].Source)
	}
	if len(res.Store) != 2 {
		t.Errorf("expected 2 stored listings, got %d", len(res.Store))
	}
}
