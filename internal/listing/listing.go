// Package listing assembles canonical listing records from raw per-source
// fields. Building is pure: identifiers are a deterministic function of
// source and raw id, and no timestamps are stamped here; provenance dates
// and the first price observation belong to reconciliation.
package listing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

var (
	// ErrUnparsablePrice marks a candidate whose price string holds no
	// usable amount. Local to one candidate, never fatal to a batch.
	ErrUnparsablePrice = errors.New("unparsable price")

	// ErrMalformedCandidate marks a candidate missing a required field.
	ErrMalformedCandidate = errors.New("malformed candidate")
)

// Build turns a raw candidate into a canonical listing. The returned listing
// has an empty price history and zero found/last-seen dates; the
// reconciliation engine stamps those when it first observes the listing.
func Build(c models.Candidate) (*models.Listing, error) {
	if !c.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrMalformedCandidate, string(c.Source))
	}

	rawID := strings.TrimSpace(c.RawID)
	if rawID == "" {
		return nil, fmt.Errorf("%w: missing raw id", ErrMalformedCandidate)
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrMalformedCandidate)
	}

	url := strings.TrimSpace(c.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: missing url", ErrMalformedCandidate)
	}

	term := strings.TrimSpace(c.SearchTerm)
	if term == "" {
		return nil, fmt.Errorf("%w: missing search term", ErrMalformedCandidate)
	}

	display := strings.TrimSpace(c.Price)
	value, err := ParsePrice(display)
	if err != nil {
		return nil, err
	}

	return &models.Listing{
		ID:           models.NewListingID(c.Source, rawID),
		Title:        title,
		Price:        display,
		PriceValue:   value,
		PriceHistory: []models.PriceObservation{},
		URL:          url,
		SearchTerm:   term,
		Source:       c.Source,
		Kilometers:   orNotAvailable(c.Kilometers),
		Location:     orNotAvailable(c.Location),
		Condition:    orNotAvailable(c.Condition),
	}, nil
}

// ParsePrice converts a display price like "R 85,000" into its numeric rand
// value. The "R" prefix and thousand separators are stripped, commas and
// spaces both; anything that does not reduce to a number is
// ErrUnparsablePrice.
func ParsePrice(display string) (float64, error) {
	clean := strings.TrimSpace(display)
	if clean == "" || strings.EqualFold(clean, models.NotAvailable) {
		return 0, fmt.Errorf("%w: %q", ErrUnparsablePrice, display)
	}

	clean = strings.ReplaceAll(clean, "R", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.Join(strings.Fields(clean), "")

	parsed, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsablePrice, display)
	}
	return parsed, nil
}

// FormatPrice renders a numeric rand value in the display form used across
// the store and dashboard, e.g. 85000 -> "R 85,000".
func FormatPrice(value float64) string {
	if value < 0 {
		return "R -" + FormatThousands(-value)
	}
	return "R " + FormatThousands(value)
}

// FormatThousands rounds a value to a whole number and groups the digits,
// e.g. 12500 -> "12,500". Shared by price and kilometer rendering.
func FormatThousands(value float64) string {
	rounded := int64(math.Round(value))
	if rounded < 0 {
		rounded = -rounded
	}

	digits := strconv.FormatInt(rounded, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}
	return grouped.String()
}

func orNotAvailable(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return models.NotAvailable
	}
	return trimmed
}
