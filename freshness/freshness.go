// Package freshness decides whether a stored record is stale relative to the
// portal's reported last-update timestamp.
//
// All comparisons happen in UTC. The portal reports naive local times, so
// timestamps without a zone are interpreted in the configured location
// (Asia/Kolkata by default).
package freshness

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Timestamp layouts observed in listing responses, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Oracle compares local freshness markers against remote update timestamps.
type Oracle struct {
	loc    *time.Location
	logger *slog.Logger

	mu     sync.Mutex
	warned map[string]struct{}
}

// New creates an Oracle. A nil location defaults to Asia/Kolkata (falling
// back to a fixed IST offset if the zone database is unavailable); a nil
// logger defaults to slog.Default.
func New(loc *time.Location, logger *slog.Logger) *Oracle {
	if loc == nil {
		var err error
		loc, err = time.LoadLocation("Asia/Kolkata")
		if err != nil {
			loc = time.FixedZone("IST", 5*3600+1800)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{loc: loc, logger: logger, warned: make(map[string]struct{})}
}

// Stale reports whether a copy stored at storedAsOf is outdated by
// remoteUpdatedAt. A blank remote timestamp never marks a record stale: once
// a valid copy exists it stays fresh until the listing says otherwise. An
// unparseable timestamp also reports fresh — failing open avoids refetch
// storms from malformed listing metadata — and is surfaced as a warning once
// per distinct value.
func (o *Oracle) Stale(storedAsOf time.Time, remoteUpdatedAt string) bool {
	remote := strings.TrimSpace(remoteUpdatedAt)
	if remote == "" {
		return false
	}
	t, ok := o.parse(remote)
	if !ok {
		o.warnOnce(remote)
		return false
	}
	return storedAsOf.UTC().Before(t.UTC())
}

func (o *Oracle) parse(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, o.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (o *Oracle) warnOnce(value string) {
	o.mu.Lock()
	_, seen := o.warned[value]
	if !seen {
		o.warned[value] = struct{}{}
	}
	o.mu.Unlock()
	if !seen {
		o.logger.Warn("freshness: unparseable remote timestamp, treating as fresh", "value", value)
	}
}
