// Package reconcile merges freshly fetched marketplace batches into the
// persisted listing store. It decides, per listing, whether the run saw a
// new listing, an unchanged one, a price change, or a disappearance, and
// produces a complete replacement store alongside a report of what moved.
package reconcile

import (
	"errors"
	"sort"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/listing"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

// Result is the outcome of a reconciliation run. Store is the full
// replacement state; the remaining fields describe what changed relative
// to the previous store.
type Result struct {
	Store        models.Store
	NewlyAdded   []*models.Listing
	PriceChanges []models.PriceChange
	RemovedStale []*models.Listing
	Skipped      []models.SkippedCandidate
}

// Engine reconciles per-source candidate batches against a previous store.
type Engine struct {
	log *logger.Logger
	now func() time.Time
}

// New returns an engine that stamps listings with the wall clock.
func New(log *logger.Logger) *Engine {
	return &Engine{log: log, now: time.Now}
}

// Reconcile folds the given batches into a copy of the previous store and
// returns the replacement state. The previous store is never mutated, so a
// failed run cannot leave partially applied changes behind.
//
// Listings from sources that produced no batch are carried over untouched.
// Listings absent from an exhaustive batch are removed as stale; batches
// marked non-exhaustive only ever add or update.
func (e *Engine) Reconcile(previous models.Store, batches []models.Batch) Result {
	now := e.now()
	updated := make(models.Store, len(previous))
	for id, l := range previous {
		updated[id] = l
	}

	res := Result{}

	for _, batch := range batches {
		current, order, skipped := e.collectBatch(batch)
		res.Skipped = append(res.Skipped, skipped...)

		for _, id := range order {
			built := current[id]
			prev, exists := updated[id]
			if !exists {
				e.admitNew(built, now)
				updated[id] = built
				res.NewlyAdded = append(res.NewlyAdded, built)
				continue
			}

			merged, change := e.mergeExisting(prev, built, now)
			updated[id] = merged
			if change != nil {
				res.PriceChanges = append(res.PriceChanges, *change)
			}
		}

		if batch.Exhaustive {
			res.RemovedStale = append(res.RemovedStale, e.removeStale(updated, previous, batch.Source, current)...)
		} else {
			e.log.Debug("preserving stored listings for non-exhaustive source", "source", batch.Source)
		}
	}

	sort.Slice(res.RemovedStale, func(i, j int) bool {
		return res.RemovedStale[i].ID < res.RemovedStale[j].ID
	})

	res.Store = updated
	return res
}

// collectBatch builds each candidate and folds the batch into an id-keyed
// map. When a batch carries the same id twice the later occurrence wins and
// the earlier is dropped with a warning. Candidates that fail to build are
// skipped rather than aborting the batch.
func (e *Engine) collectBatch(batch models.Batch) (map[models.ListingID]*models.Listing, []models.ListingID, []models.SkippedCandidate) {
	current := make(map[models.ListingID]*models.Listing, len(batch.Candidates))
	order := make([]models.ListingID, 0, len(batch.Candidates))
	var skipped []models.SkippedCandidate

	for _, cand := range batch.Candidates {
		built, err := listing.Build(cand)
		if err != nil {
			reason := "malformed candidate"
			if errors.Is(err, listing.ErrUnparsablePrice) {
				reason = "unparsable price"
			}
			skipped = append(skipped, models.SkippedCandidate{
				Source: batch.Source,
				Title:  cand.Title,
				Reason: reason,
			})
			e.log.Warn("skipping candidate",
				"source", batch.Source,
				"title", cand.Title,
				"error", err)
			continue
		}

		if _, dup := current[built.ID]; dup {
			e.log.Warn("duplicate listing id in batch, keeping later occurrence",
				"source", batch.Source,
				"id", built.ID)
		} else {
			order = append(order, built.ID)
		}
		current[built.ID] = built
	}

	return current, order, skipped
}

// admitNew stamps a first-seen listing and seeds its price history.
func (e *Engine) admitNew(l *models.Listing, now time.Time) {
	l.FoundDate = models.NewWallTime(now)
	l.LastSeen = models.NewWallTime(now)
	RecordObservation(l, l.PriceValue, l.Price, now)
	e.log.Info("new listing found",
		"source", l.Source,
		"id", l.ID,
		"title", l.Title,
		"price", l.Price)
}

// mergeExisting combines a freshly built listing with its stored
// predecessor. The fresh listing supplies every current field; the
// predecessor contributes its found date and accumulated price history.
// A non-nil change is returned when the price moved.
func (e *Engine) mergeExisting(prev, built *models.Listing, now time.Time) (*models.Listing, *models.PriceChange) {
	merged := *built
	merged.FoundDate = prev.FoundDate
	merged.PriceHistory = append([]models.PriceObservation(nil), prev.PriceHistory...)
	merged.LastSeen = models.NewWallTime(now)

	oldValue, oldErr := listing.ParsePrice(prev.Price)
	changed := oldErr == nil && oldValue != merged.PriceValue

	RecordObservation(&merged, merged.PriceValue, merged.Price, now)

	if !changed {
		return &merged, nil
	}

	change := &models.PriceChange{
		Listing:  &merged,
		OldPrice: prev.Price,
		NewPrice: merged.Price,
		Delta:    merged.PriceValue - oldValue,
	}
	direction := "increased"
	if change.Dropped() {
		direction = "dropped"
	}
	e.log.Info("price "+direction,
		"source", merged.Source,
		"id", merged.ID,
		"old", change.OldPrice,
		"new", change.NewPrice)
	return &merged, change
}

// removeStale deletes listings for the batch source that existed before
// this run but were absent from the batch. Listings admitted this run are
// always present in current, so only carried-over entries can be removed.
func (e *Engine) removeStale(updated, previous models.Store, source models.Source, current map[models.ListingID]*models.Listing) []*models.Listing {
	var removed []*models.Listing
	for id, l := range updated {
		if l.Source != source {
			continue
		}
		if _, seen := current[id]; seen {
			continue
		}
		if _, carried := previous[id]; !carried {
			continue
		}
		delete(updated, id)
		removed = append(removed, l)
		e.log.Info("removing stale listing",
			"source", source,
			"id", id,
			"title", l.Title)
	}
	return removed
}
