package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Source identifies a marketplace a listing was scraped from.
type Source string

const (
	SourceAutoTrader Source = "AutoTrader"
	SourceGumtree    Source = "Gumtree"
	SourceWeBuyCars  Source = "WeBuyCars"
)

func (s Source) Valid() bool {
	return s == SourceAutoTrader || s == SourceGumtree || s == SourceWeBuyCars
}

func (s Source) String() string {
	return string(s)
}

// Slug returns the lowercase form used in listing identifiers, config keys
// and cache rows.
func (s Source) Slug() string {
	return strings.ToLower(string(s))
}

func (s Source) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid source: %s", s)
	}
	return s.String(), nil
}

func (s *Source) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into Source")
	}

	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Source", value)
	}

	source := Source(str)
	if !source.Valid() {
		return fmt.Errorf("invalid source: %s", str)
	}

	*s = source
	return nil
}

// ParseSource resolves a source from either its display name or its slug.
func ParseSource(name string) (Source, bool) {
	for _, s := range []Source{SourceAutoTrader, SourceGumtree, SourceWeBuyCars} {
		if strings.EqualFold(name, s.String()) {
			return s, true
		}
	}
	return "", false
}

// ListingID is the stable identifier of a listing within the persisted
// store. The construction rule is part of the store's on-disk contract:
// lowercase source name, an underscore, then the source's own raw id, e.g.
// "gumtree_9876543210" or "webuycars_S123456". Same source + raw id always
// yields the same identifier, which is what makes cross-run deduplication
// work.
type ListingID string

func NewListingID(source Source, rawID string) ListingID {
	return ListingID(source.Slug() + "_" + strings.TrimSpace(rawID))
}

func (id ListingID) String() string {
	return string(id)
}

// WallTimeLayout is the textual date form used everywhere in the persisted
// store: day-month-year with a 24h clock.
const WallTimeLayout = "02-01-2006 15:04:05"

// WallTime is a time.Time that marshals to the store's textual date form.
type WallTime struct {
	time.Time
}

func NewWallTime(t time.Time) WallTime {
	return WallTime{Time: t}
}

func (t WallTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(WallTimeLayout) + `"`), nil
}

func (t *WallTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(WallTimeLayout, raw)
	if err != nil {
		return fmt.Errorf("parsing wall time %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// NotAvailable marks an optional listing field the source did not provide.
// Stored explicitly so renderers never have to distinguish missing from
// empty.
const NotAvailable = "N/A"

// Candidate is a raw, not-yet-trusted record from one source for one search
// term. It only lives for the duration of a scrape pass; the Listing Builder
// turns accepted candidates into Listings.
type Candidate struct {
	Source     Source
	RawID      string
	Title      string
	Price      string
	URL        string
	SearchTerm string
	Kilometers string
	Location   string
	Condition  string
}

// PriceObservation is one timestamped price sample in a listing's history.
// Never mutated or removed once appended.
type PriceObservation struct {
	Date  WallTime `json:"date"`
	Price string   `json:"price"`
}

// Listing is the canonical persisted record for one source/search-term
// pairing. The JSON field names are an interface contract shared with the
// dashboard and any external tooling reading the store; do not rename them.
type Listing struct {
	ID           ListingID          `json:"id"`
	Title        string             `json:"title"`
	Price        string             `json:"price"`
	PriceHistory []PriceObservation `json:"price_history"`
	URL          string             `json:"url"`
	SearchTerm   string             `json:"search_term"`
	Source       Source             `json:"source"`
	FoundDate    WallTime           `json:"found_date"`
	LastSeen     WallTime           `json:"last_seen"`
	Kilometers   string             `json:"kilometers"`
	Location     string             `json:"location"`
	Condition    string             `json:"condition"`

	// PriceValue is the parsed numeric form of Price in rand, derived by the
	// listing builder for comparisons. Not persisted; re-derived from the
	// display string wherever a loaded store needs it.
	PriceValue float64 `json:"-"`
}

// LastObservation returns the most recent price observation, or false when
// the history is empty.
func (l *Listing) LastObservation() (PriceObservation, bool) {
	if len(l.PriceHistory) == 0 {
		return PriceObservation{}, false
	}
	return l.PriceHistory[len(l.PriceHistory)-1], true
}

// Store is the full persisted set of listings keyed by identifier. It is
// loaded at run start, owned exclusively by the reconciliation engine for
// the duration of the run, and swapped out whole at run end.
type Store map[ListingID]*Listing

// BySearchTerm groups listings by the search term that found them.
func (s Store) BySearchTerm() map[string][]*Listing {
	grouped := make(map[string][]*Listing)
	for _, l := range s {
		grouped[l.SearchTerm] = append(grouped[l.SearchTerm], l)
	}
	return grouped
}

// BySource groups listings by marketplace.
func (s Store) BySource() map[Source][]*Listing {
	grouped := make(map[Source][]*Listing)
	for _, l := range s {
		grouped[l.Source] = append(grouped[l.Source], l)
	}
	return grouped
}

// Batch is one source's complete scrape output for a run. Exhaustive means
// the source was fully re-queried this run, so listings absent from the
// batch may be inferred sold/removed. A fetcher that failed part-way must
// hand back Exhaustive=false no matter what the source would normally be,
// otherwise a network blip would read as a mass delisting.
type Batch struct {
	Source     Source
	Exhaustive bool
	Candidates []Candidate
}

// PriceChange reports one repriced listing from a reconciliation pass.
// Delta is new minus old in rand, negative for a drop.
type PriceChange struct {
	Listing  *Listing `json:"listing"`
	OldPrice string   `json:"old_price"`
	NewPrice string   `json:"new_price"`
	Delta    float64  `json:"delta"`
}

// Dropped reports whether the change was a price drop.
func (c PriceChange) Dropped() bool {
	return c.Delta < 0
}

// SkippedCandidate records a candidate excluded from reconciliation and why.
// These surface in logs and run summaries; they are never silently dropped.
type SkippedCandidate struct {
	Source Source `json:"source"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// SourceSnapshot is a cached raw payload from one marketplace, keyed by
// source and cache key. WeBuyCars inventory dumps live here between browser
// refreshes; HTML result pages may be cached here during tuning runs.
type SourceSnapshot struct {
	ID          int64     `json:"id" db:"id"`
	Source      Source    `json:"source" db:"source"`
	CacheKey    string    `json:"cache_key" db:"cache_key"`
	PayloadJSON string    `json:"payload_json" db:"payload_json"`
	ETag        *string   `json:"etag,omitempty" db:"etag"`
	FetchedAt   time.Time `json:"fetched_at" db:"fetched_at"`
	TTLSeconds  int       `json:"ttl_seconds" db:"ttl_seconds"`
}
