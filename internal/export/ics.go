package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"letivo/internal/calendar"
)

// BuildICS serializes the school calendar as a subscribable ICS feed. Each
// event is an all-day VEVENT in the given year, recurring yearly because the
// stored keys are day/month pairs with no year of their own. Keys that do not
// name a real date in that year are left out of the feed.
func BuildICS(events []calendar.Event, name string, year int) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//letivo//calendario-letivo//PT")
	cal.SetXWRCalName(fmt.Sprintf("%s %d", name, year))

	now := time.Now().UTC()
	for i, ev := range events {
		key := strings.TrimSpace(ev.Date)
		if !calendar.ValidKey(key, year) {
			continue
		}
		day, month, _ := calendar.SplitKey(key)
		start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

		uid := fmt.Sprintf("%04d%02d%02d-%d@letivo", year, month, day, i)
		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(now)
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ve.SetSummary(ev.Label)
		ve.AddRrule("FREQ=YEARLY")
	}

	return cal.Serialize()
}
