// Package pipeline drives one tracker run: fan out every (source, term)
// fetch over a bounded worker pool, assemble one batch per source, then
// reconcile against the persisted store and swap it atomically. All
// candidates are collected before reconciliation starts because staleness
// decisions need the complete current batch per source.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/reconcile"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/sources"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/store"
)

type Pipeline struct {
	storePath string
	fetchers  []sources.Fetcher
	engine    *reconcile.Engine
	log       *logger.Logger
	workers   int
}

func New(storePath string, fetchers []sources.Fetcher, workers int, log *logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		storePath: storePath,
		fetchers:  fetchers,
		engine:    reconcile.New(log),
		log:       log,
		workers:   workers,
	}
}

// Run executes one full pass for the given search terms. The store is
// loaded, reconciled in memory and written back atomically; a corrupt
// store aborts before any fetching happens.
func (p *Pipeline) Run(ctx context.Context, terms []string) (reconcile.Result, error) {
	previous, err := store.Load(p.storePath)
	if err != nil {
		return reconcile.Result{}, err
	}

	batches := p.collect(ctx, terms)
	result := p.engine.Reconcile(previous, batches)

	if err := store.Save(p.storePath, result.Store); err != nil {
		return reconcile.Result{}, err
	}
	return result, nil
}

type fetchJob struct {
	index   int
	fetcher sources.Fetcher
	term    string
}

type fetchOutcome struct {
	index      int
	source     models.Source
	candidates []models.Candidate
	err        error
}

// collect runs every (fetcher, term) pair over the worker pool and folds
// the outcomes into one batch per source, in fetcher order. A failed fetch
// degrades its source's batch to non-exhaustive for this run: an
// incomplete pass must never read as a mass delisting. An empty search
// term only skips that term.
func (p *Pipeline) collect(ctx context.Context, terms []string) []models.Batch {
	jobs := make([]fetchJob, 0, len(p.fetchers)*len(terms))
	for _, fetcher := range p.fetchers {
		for _, term := range terms {
			jobs = append(jobs, fetchJob{index: len(jobs), fetcher: fetcher, term: term})
		}
	}

	outcomes := make([]fetchOutcome, len(jobs))
	jobCh := make(chan fetchJob)

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				candidates, err := job.fetcher.Fetch(ctx, job.term)
				outcomes[job.index] = fetchOutcome{
					index:      job.index,
					source:     job.fetcher.Source(),
					candidates: candidates,
					err:        err,
				}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	failed := make(map[models.Source]bool)
	bySource := make(map[models.Source][]models.Candidate)
	for _, outcome := range outcomes {
		if outcome.err != nil {
			if errors.Is(outcome.err, search.ErrEmptySearchTerm) {
				p.log.Warn("skipping empty search term", "source", outcome.source)
				continue
			}
			failed[outcome.source] = true
			p.log.Error("fetch failed, treating source as non-exhaustive this run",
				"source", outcome.source,
				"error", outcome.err)
			continue
		}
		bySource[outcome.source] = append(bySource[outcome.source], outcome.candidates...)
	}

	batches := make([]models.Batch, 0, len(p.fetchers))
	for _, fetcher := range p.fetchers {
		source := fetcher.Source()
		batches = append(batches, models.Batch{
			Source:     source,
			Exhaustive: fetcher.Exhaustive() && !failed[source],
			Candidates: bySource[source],
		})
	}
	return batches
}
