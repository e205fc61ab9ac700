package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/reconcile"
)

type sourceCounts struct {
	added    int
	repriced int
	stale    int
	skipped  int
}

// WriteSummary prints the per-source run summary table followed by the
// notable listings, mirroring the end-of-run console report.
func WriteSummary(w io.Writer, result reconcile.Result) {
	counts := make(map[models.Source]*sourceCounts)
	at := func(s models.Source) *sourceCounts {
		if counts[s] == nil {
			counts[s] = &sourceCounts{}
		}
		return counts[s]
	}

	for _, l := range result.NewlyAdded {
		at(l.Source).added++
	}
	for _, c := range result.PriceChanges {
		at(c.Listing.Source).repriced++
	}
	for _, l := range result.RemovedStale {
		at(l.Source).stale++
	}
	for _, s := range result.Skipped {
		at(s.Source).skipped++
	}

	names := make([]models.Source, 0, len(counts))
	for s := range counts {
		names = append(names, s)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	rows := [][]string{{"Source", "New", "Repriced", "Stale", "Skipped"}}
	total := sourceCounts{}
	for _, s := range names {
		c := counts[s]
		rows = append(rows, []string{
			s.String(),
			strconv.Itoa(c.added),
			strconv.Itoa(c.repriced),
			strconv.Itoa(c.stale),
			strconv.Itoa(c.skipped),
		})
		total.added += c.added
		total.repriced += c.repriced
		total.stale += c.stale
		total.skipped += c.skipped
	}
	rows = append(rows, []string{
		"Total",
		strconv.Itoa(total.added),
		strconv.Itoa(total.repriced),
		strconv.Itoa(total.stale),
		strconv.Itoa(total.skipped),
	})

	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "RUN SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	writeTable(w, rows)

	for _, l := range result.NewlyAdded {
		fmt.Fprintf(w, "  NEW   [%s] %s - %s\n", l.Source, l.Title, l.Price)
	}
	for _, c := range result.PriceChanges {
		arrow := "up"
		if c.Dropped() {
			arrow = "down"
		}
		fmt.Fprintf(w, "  PRICE [%s] %s: %s -> %s (%s R%.0f)\n",
			c.Listing.Source, c.Listing.Title, c.OldPrice, c.NewPrice, arrow, abs(c.Delta))
	}
	for _, l := range result.RemovedStale {
		fmt.Fprintf(w, "  GONE  [%s] %s\n", l.Source, l.Title)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// writeTable renders rows with runewidth-aware column padding so the table
// stays aligned even when titles carry wide characters.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for i, row := range rows {
		var b strings.Builder
		for col, cell := range row {
			b.WriteString("  ")
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[col]-runewidth.StringWidth(cell)))
		}
		fmt.Fprintln(w, b.String())
		if i == 0 {
			sep := make([]string, len(row))
			for col := range row {
				sep[col] = strings.Repeat("-", widths[col])
			}
			fmt.Fprintln(w, "  "+strings.Join(sep, "  "))
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
