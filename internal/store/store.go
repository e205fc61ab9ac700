// Package store persists the listing store as a JSON document. The on-disk
// shape is a contract shared with the dashboard and export layers: a map of
// listing id to listing, price history as an ordered array of {date, price}
// pairs, dates in day-month-year wall time.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/listing"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

// ErrCorrupt marks a store file that exists but cannot be decoded. A
// corrupt store is fatal to a run; silently starting over would discard
// every accumulated price history.
var ErrCorrupt = errors.New("listing store is corrupt")

// Load reads the store at path. A missing file is a normal first run and
// yields an empty store. Numeric price values are re-derived from the
// display strings because only the display form is persisted.
func Load(path string) (models.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Store{}, nil
		}
		return nil, fmt.Errorf("failed to read listing store: %w", err)
	}

	var s models.Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, path, err)
	}

	for id, l := range s {
		l.ID = id
		if v, err := listing.ParsePrice(l.Price); err == nil {
			l.PriceValue = v
		}
	}
	return s, nil
}

// Save writes the store to path atomically: the document is written to a
// temporary file in the same directory and renamed over the target, so a
// crash mid-write never leaves a truncated store behind.
func Save(path string, s models.Store) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode listing store: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".listings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write listing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close listing store: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace listing store: %w", err)
	}
	return nil
}
