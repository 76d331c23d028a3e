package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Event is one calendar entry from the remote sheet, with its date already
// normalized to the canonical "DD/MM" key. Events carry no identity beyond
// their position in the fetched list.
type Event struct {
	Date  string `json:"data"`
	Color string `json:"cor"`
	Label string `json:"legenda"`
}

// Palette maps category color tokens to concrete color values.
type Palette map[string]string

// Resolve returns the concrete color for a token. Tokens not present in the
// palette are treated as literal color values and returned unchanged.
func (p Palette) Resolve(token string) string {
	if c, ok := p[strings.TrimSpace(token)]; ok {
		return c
	}
	return strings.TrimSpace(token)
}

// WeekendTint holds the background colors applied to event-free weekend cells.
type WeekendTint struct {
	Saturday string
	Sunday   string
}

// DayCell is a single day of a rendered month. Cells are built fresh on every
// render pass and never mutated afterwards.
type DayCell struct {
	Day     int          `json:"dia"`
	Weekday time.Weekday `json:"dia_semana"`
	Events  []Event      `json:"eventos,omitempty"`
	Weekend bool         `json:"fim_de_semana"`

	// Color is the resolved background for the cell: the first event's color,
	// else the weekend tint, else empty.
	Color string `json:"cor,omitempty"`
}

// EventTitle returns the per-event heading shown when a cell is inspected:
// "Evento N" when the day holds more than one event, otherwise "Informação".
func (c DayCell) EventTitle(i int) string {
	if len(c.Events) > 1 {
		return fmt.Sprintf("Evento %d", i+1)
	}
	return "Informação"
}

// Month is one rendered month of the calendar.
type Month struct {
	Index   int       `json:"mes"` // 0-based calendar month, janeiro = 0
	Year    int       `json:"ano"`
	Name    string    `json:"nome"`
	Leading int       `json:"espacadores"` // spacer cells before day 1
	Cells   []DayCell `json:"dias"`
}

// Window is the span of months currently displayed. It is derived from the
// UI selection on every render and never persisted.
type Window struct {
	StartMonth int `json:"mes_inicial"` // 0-based offset from janeiro
	Year       int `json:"ano"`
	Span       int `json:"modo"` // 1, 3, 6 or 12
}

// Valid reports whether the window uses one of the supported spans.
func (w Window) Valid() bool {
	switch w.Span {
	case 1, 3, 6, 12:
		return true
	}
	return false
}

// MonthNames are the uppercase Portuguese month names used across all views.
var MonthNames = [12]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// WeekdayLetters are the single-letter Portuguese weekday headers, Sunday
// first: domingo, segunda, terça, quarta, quinta, sexta, sábado.
var WeekdayLetters = [7]string{"D", "S", "T", "Q", "Q", "S", "S"}

// DayKey builds the canonical key for a day of a 0-based month.
func DayKey(day, monthIdx int) string {
	return fmt.Sprintf("%02d/%02d", day, monthIdx+1)
}

// BuildMonth lays out one month of the calendar.
//
// monthIdxAbs is the 0-based month offset from janeiro of anchorYear; offsets
// of 12 and beyond roll the year forward. The returned month carries
// Leading spacer cells (the weekday of day 1, Sunday = 0) so day 1 lands in
// the correct column of a 7-column grid, followed by one cell per day.
// Every event whose canonical date equals the day key attaches to that cell
// in fetch order.
func BuildMonth(monthIdxAbs, anchorYear int, events []Event, pal Palette, tint WeekendTint) Month {
	year := anchorYear + monthIdxAbs/12
	monthIdx := monthIdxAbs % 12

	first := time.Date(year, time.Month(monthIdx+1), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := time.Date(year, time.Month(monthIdx+2), 0, 0, 0, 0, 0, time.UTC).Day()
	leading := int(first.Weekday())

	cells := make([]DayCell, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		key := DayKey(d, monthIdx)

		var dayEvents []Event
		for _, ev := range events {
			if strings.TrimSpace(ev.Date) == key {
				dayEvents = append(dayEvents, ev)
			}
		}

		wd := time.Weekday((leading + d - 1) % 7)
		cell := DayCell{
			Day:     d,
			Weekday: wd,
			Events:  dayEvents,
			Weekend: wd == time.Saturday || wd == time.Sunday,
		}

		switch {
		case len(dayEvents) > 0:
			cell.Color = pal.Resolve(dayEvents[0].Color)
		case wd == time.Saturday:
			cell.Color = tint.Saturday
		case wd == time.Sunday:
			cell.Color = tint.Sunday
		}

		cells = append(cells, cell)
	}

	return Month{
		Index:   monthIdx,
		Year:    year,
		Name:    MonthNames[monthIdx],
		Leading: leading,
		Cells:   cells,
	}
}

// BuildWindow lays out every month of the window in display order.
func BuildWindow(w Window, events []Event, pal Palette, tint WeekendTint) []Month {
	months := make([]Month, 0, w.Span)
	for i := 0; i < w.Span; i++ {
		months = append(months, BuildMonth(w.StartMonth+i, w.Year, events, pal, tint))
	}
	return months
}
