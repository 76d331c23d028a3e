package plan

import (
	"time"

	"github.com/teambition/rrule-go"

	"letivo/internal/calendar"
)

// Occurrence is one calendar event placed on a concrete date inside the
// requested plan period.
type Occurrence struct {
	When  time.Time
	Key   string // the event's canonical DD/MM key
	Label string
}

// EventsInPeriod expands year-independent DD/MM events into the concrete
// dates they land on within [start, end]. Each key behaves as a yearly
// recurrence, so a period crossing New Year still picks up janeiro events
// with the following year. Keys that do not parse are skipped; out-of-range
// day/month values roll over the way the upstream data always has.
func EventsInPeriod(events []calendar.Event, start, end time.Time) []Occurrence {
	var out []Occurrence
	for _, ev := range events {
		day, month, ok := calendar.SplitKey(ev.Date)
		if !ok {
			continue
		}

		// Seed the rule one year before the period so the first in-range
		// occurrence is never missed. time.Date normalizes overflowing
		// day/month values before the rule ever sees them.
		seed := time.Date(start.Year()-1, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.YEARLY,
			Dtstart: seed,
		})
		if err != nil {
			continue
		}

		for _, when := range r.Between(start, end, true) {
			out = append(out, Occurrence{When: when, Key: ev.Date, Label: ev.Label})
		}
	}
	return out
}
