// Package report renders the outputs of a tracker run: the static
// dashboard published for GitHub-Pages-style hosting, machine-readable
// listing exports, and the console summary table.
package report

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/listing"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/reconcile"
)

//go:embed views/*.html views/*.css
var viewFS embed.FS

// stampLayout is the last-updated form shown on the dashboard, slashed
// day-month-year like the rest of the site copy.
const stampLayout = "02/01/2006 15:04:05"

// Generator renders run artifacts into a directory.
type Generator struct {
	appName string
	dir     string
	tmpl    *template.Template
	now     func() time.Time
}

func NewGenerator(appName, dir string) (*Generator, error) {
	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"formatDate":    formatDate,
		"priceDrop":     PriceDrop,
		"previousPrice": previousPrice,
	}).ParseFS(viewFS, "views/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard template: %w", err)
	}

	return &Generator{
		appName: appName,
		dir:     dir,
		tmpl:    tmpl,
		now:     time.Now,
	}, nil
}

// listingGroup is one dashboard section, either a tracked bike or a
// marketplace, with its listings in a stable order.
type listingGroup struct {
	Name     string
	Listings []*models.Listing
}

type dashboardData struct {
	AppName       string
	Timestamp     string
	TotalListings int
	BikesTracked  []string
	SourceCount   int
	ByBike        []listingGroup
	BySource      []listingGroup
}

// runChanges is the shape of changes.json, consumed by the dashboard
// server's /api/changes route and by anyone polling the published site.
type runChanges struct {
	GeneratedAt  models.WallTime           `json:"generated_at"`
	NewlyAdded   []*models.Listing         `json:"newly_added"`
	PriceChanges []models.PriceChange      `json:"price_changes"`
	RemovedStale []*models.Listing         `json:"removed_stale"`
	Skipped      []models.SkippedCandidate `json:"skipped"`
}

// Generate writes the full artifact set: index.html, styles.css,
// listings.json, listings.csv and changes.json. Artifacts are complete
// replacements, never incremental edits.
func (g *Generator) Generate(s models.Store, result reconcile.Result, bikesTracked []string) error {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	if err := g.generateDashboard(s, bikesTracked); err != nil {
		return err
	}
	if err := g.copyStylesheet(); err != nil {
		return err
	}
	if err := g.generateJSON(s); err != nil {
		return err
	}
	if err := g.generateCSV(s); err != nil {
		return err
	}
	return g.generateChanges(result)
}

func (g *Generator) generateDashboard(s models.Store, bikesTracked []string) error {
	bySource := groupsOf(s.BySource())

	data := dashboardData{
		AppName:       g.appName,
		Timestamp:     g.now().Format(stampLayout),
		TotalListings: len(s),
		BikesTracked:  bikesTracked,
		SourceCount:   len(bySource),
		ByBike:        groupsOfStrings(s.BySearchTerm()),
		BySource:      bySource,
	}

	file, err := os.Create(filepath.Join(g.dir, "index.html"))
	if err != nil {
		return fmt.Errorf("creating dashboard file: %w", err)
	}
	defer file.Close()

	if err := g.tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}

func (g *Generator) copyStylesheet() error {
	css, err := viewFS.ReadFile("views/styles.css")
	if err != nil {
		return fmt.Errorf("reading embedded stylesheet: %w", err)
	}
	if err := os.WriteFile(filepath.Join(g.dir, "styles.css"), css, 0644); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}
	return nil
}

func (g *Generator) generateJSON(s models.Store) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding listings export: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(g.dir, "listings.json"), data, 0644); err != nil {
		return fmt.Errorf("writing listings export: %w", err)
	}
	return nil
}

func (g *Generator) generateCSV(s models.Store) error {
	file, err := os.Create(filepath.Join(g.dir, "listings.csv"))
	if err != nil {
		return fmt.Errorf("creating csv export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"id", "title", "price", "kilometers", "location", "condition",
		"source", "search_term", "url", "found_date", "last_seen",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, l := range sortedListings(s) {
		row := []string{
			l.ID.String(), l.Title, l.Price, l.Kilometers, l.Location,
			l.Condition, l.Source.String(), l.SearchTerm, l.URL,
			l.FoundDate.Format(models.WallTimeLayout),
			l.LastSeen.Format(models.WallTimeLayout),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing csv export: %w", err)
	}
	return nil
}

func (g *Generator) generateChanges(result reconcile.Result) error {
	changes := runChanges{
		GeneratedAt:  models.NewWallTime(g.now()),
		NewlyAdded:   emptied(result.NewlyAdded),
		PriceChanges: result.PriceChanges,
		RemovedStale: emptied(result.RemovedStale),
		Skipped:      result.Skipped,
	}
	if changes.PriceChanges == nil {
		changes.PriceChanges = []models.PriceChange{}
	}
	if changes.Skipped == nil {
		changes.Skipped = []models.SkippedCandidate{}
	}

	data, err := json.MarshalIndent(changes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run changes: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(g.dir, "changes.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run changes: %w", err)
	}
	return nil
}

// emptied keeps the JSON shape stable: absent result slices render as []
// rather than null.
func emptied(listings []*models.Listing) []*models.Listing {
	if listings == nil {
		return []*models.Listing{}
	}
	return listings
}

func groupsOfStrings(grouped map[string][]*models.Listing) []listingGroup {
	groups := make([]listingGroup, 0, len(grouped))
	for name, listings := range grouped {
		sortListings(listings)
		groups = append(groups, listingGroup{Name: name, Listings: listings})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

func groupsOf(grouped map[models.Source][]*models.Listing) []listingGroup {
	groups := make([]listingGroup, 0, len(grouped))
	for source, listings := range grouped {
		sortListings(listings)
		groups = append(groups, listingGroup{Name: source.String(), Listings: listings})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

func sortListings(listings []*models.Listing) {
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
}

func sortedListings(s models.Store) []*models.Listing {
	listings := make([]*models.Listing, 0, len(s))
	for _, l := range s {
		listings = append(listings, l)
	}
	sortListings(listings)
	return listings
}

func formatDate(t models.WallTime) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// PriceDrop reports whether a listing's latest observation is below the
// one before it, for the dashboard badge.
func PriceDrop(l *models.Listing) bool {
	n := len(l.PriceHistory)
	if n < 2 {
		return false
	}
	latest, err := listing.ParsePrice(l.PriceHistory[n-1].Price)
	if err != nil {
		return false
	}
	prior, err := listing.ParsePrice(l.PriceHistory[n-2].Price)
	if err != nil {
		return false
	}
	return latest < prior
}

// previousPrice is the display price before the latest observation, shown
// struck through next to the drop badge.
func previousPrice(l *models.Listing) string {
	n := len(l.PriceHistory)
	if n < 2 {
		return ""
	}
	return l.PriceHistory[n-2].Price
}
