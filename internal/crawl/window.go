package crawl

import (
	"errors"
	"fmt"
	"time"

	"github.com/marknadsdata/insider-crawler/internal/normalize"
)

// ErrInvalidConfiguration marks bad crawl configuration. It is returned
// before any network or database access.
var ErrInvalidConfiguration = errors.New("invalid crawl configuration")

// epochDate is the default exclusive stopping boundary: far enough in the
// past that a default crawl only ever stops on the page bound.
var epochDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock returns the current time. Extracted so window defaults are testable.
type Clock interface {
	Now() time.Time
}

// Window is the [End, Start] publication-date range within which records are
// collected. Start is the inclusive upper bound; End is the exclusive
// stopping boundary: a row published exactly on End terminates the crawl.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow parses the configured window bounds. An empty start defaults to
// yesterday, an empty end to the fixed epoch date.
func NewWindow(startDate, endDate string, clock Clock) (Window, error) {
	w := Window{End: epochDate}

	if startDate == "" {
		now := clock.Now()
		y, m, d := now.AddDate(0, 0, -1).Date()
		w.Start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else {
		start, err := time.Parse(normalize.DateLayout, startDate)
		if err != nil {
			return Window{}, fmt.Errorf("%w: start_date %q: %v", ErrInvalidConfiguration, startDate, err)
		}
		w.Start = start
	}

	if endDate != "" {
		end, err := time.Parse(normalize.DateLayout, endDate)
		if err != nil {
			return Window{}, fmt.Errorf("%w: end_date %q: %v", ErrInvalidConfiguration, endDate, err)
		}
		w.End = end
	}

	if !w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: end_date %s must be before start_date %s",
			ErrInvalidConfiguration, w.End.Format(normalize.DateLayout), w.Start.Format(normalize.DateLayout))
	}
	return w, nil
}

// Contains reports whether a publication date falls inside the window.
func (w Window) Contains(pub time.Time) bool {
	return pub.After(w.End) && !pub.After(w.Start)
}

// Terminates reports whether a publication date hits the stopping boundary.
// Any date at or beyond the boundary terminates: rows arrive newest first,
// so if no row was published exactly on End the crawl must still stop at
// the first older one.
func (w Window) Terminates(pub time.Time) bool {
	return !pub.After(w.End)
}

// TooRecent reports whether a publication date lies above the upper bound.
func (w Window) TooRecent(pub time.Time) bool {
	return pub.After(w.Start)
}
