package reconcile

import (
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/listing"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

// RecordObservation appends a timestamped price observation to a listing
// when the price differs from the most recent recorded one. Equal prices
// never produce a duplicate entry: the history is a change log, not a
// per-run snapshot log. Observations are never reordered or removed.
//
// The returned delta is new minus old and is only meaningful when hadPrior
// is true; hadPrior is false for the first observation and for a history
// whose latest entry holds no comparable numeric price.
func RecordObservation(l *models.Listing, price float64, display string, at time.Time) (appended bool, delta float64, hadPrior bool) {
	last, ok := l.LastObservation()
	if ok {
		lastValue, err := listing.ParsePrice(last.Price)
		if err == nil {
			if lastValue == price {
				return false, 0, true
			}
			appendObservation(l, display, at)
			return true, price - lastValue, true
		}
		// Latest entry is not comparable; record the new price so the
		// history regains a usable tail.
		appendObservation(l, display, at)
		return true, 0, false
	}

	appendObservation(l, display, at)
	return true, 0, false
}

func appendObservation(l *models.Listing, display string, at time.Time) {
	l.PriceHistory = append(l.PriceHistory, models.PriceObservation{
		Date:  models.NewWallTime(at),
		Price: display,
	})
}
