package export

import (
	"strings"
	"testing"

	"letivo/internal/calendar"
	"letivo/internal/config"
)

func testPalette() calendar.Palette {
	return calendar.Palette{"vermelho": "#ef4444", "verde": "#22c55e"}
}

func testTint() calendar.WeekendTint {
	return calendar.WeekendTint{Saturday: "#facc15", Sunday: "#a3e635"}
}

func TestBuildCalendarDocumentPagination(t *testing.T) {
	doc := BuildCalendarDocument(2026, nil, nil, testPalette(), testTint())

	if len(doc.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if len(p.Months) != 6 {
			t.Errorf("page %d holds %d months, want 6", i, len(p.Months))
		}
	}
	if doc.Pages[0].Months[0].Name != "JANEIRO" || doc.Pages[1].Months[0].Name != "JULHO" {
		t.Errorf("page split = %q / %q, want JANEIRO / JULHO",
			doc.Pages[0].Months[0].Name, doc.Pages[1].Months[0].Name)
	}
	if !strings.Contains(doc.Pages[1].Title, "continuação") {
		t.Errorf("second page title = %q", doc.Pages[1].Title)
	}
}

func TestMonthRowsPaddedToSeven(t *testing.T) {
	doc := BuildCalendarDocument(2026, nil, nil, testPalette(), testTint())

	for _, p := range doc.Pages {
		for _, m := range p.Months {
			days := 0
			for _, row := range m.Rows {
				if len(row) != 7 {
					t.Fatalf("%s: row holds %d cells, want 7", m.Name, len(row))
				}
				for _, c := range row {
					if c.Day > 0 {
						days++
					}
				}
			}
			if days < 28 || days > 31 {
				t.Errorf("%s carries %d day cells", m.Name, days)
			}
		}
	}

	// February 2026 starts on a Sunday: exactly four rows, no leading pad.
	feb := doc.Pages[0].Months[1]
	if len(feb.Rows) != 4 {
		t.Errorf("FEVEREIRO 2026 has %d rows, want 4", len(feb.Rows))
	}
	if feb.Rows[0][0].Day != 1 {
		t.Errorf("FEVEREIRO 2026 first cell day = %d, want 1", feb.Rows[0][0].Day)
	}
}

func TestCellColors(t *testing.T) {
	events := []calendar.Event{
		{Date: "16/02", Color: "vermelho", Label: "FERIADO - CARNAVAL"},
	}
	doc := BuildCalendarDocument(2026, events, nil, testPalette(), testTint())
	feb := doc.Pages[0].Months[1]

	var holiday, saturday, plain PrintCell
	for _, row := range feb.Rows {
		for _, c := range row {
			switch c.Day {
			case 16:
				holiday = c
			case 7:
				saturday = c
			case 3:
				plain = c
			}
		}
	}

	if holiday.Background != "#ef4444" || holiday.Foreground != "#ffffff" {
		t.Errorf("event cell = %+v", holiday)
	}
	if saturday.Background != "#facc15" || saturday.Foreground != "#000000" {
		t.Errorf("saturday cell = %+v", saturday)
	}
	if plain.Background != "#ffffff" {
		t.Errorf("weekday cell = %+v", plain)
	}
}

func TestMonthEventListKeepsFetchOrder(t *testing.T) {
	events := []calendar.Event{
		{Date: "25/02", Label: "SEGUNDO"},
		{Date: "16/02", Label: "PRIMEIRO"},
		{Date: "10/03", Label: "OUTRO MÊS"},
	}
	doc := BuildCalendarDocument(2026, events, nil, testPalette(), testTint())
	feb := doc.Pages[0].Months[1]

	if len(feb.Events) != 2 {
		t.Fatalf("got %d event lines, want 2: %+v", len(feb.Events), feb.Events)
	}
	if feb.Events[0].Label != "SEGUNDO" || feb.Events[1].Label != "PRIMEIRO" {
		t.Errorf("event order = %+v, want fetch order kept", feb.Events)
	}
}

func TestRenderCalendarHTML(t *testing.T) {
	legend := []config.Category{
		{Label: "FERIADO", Color: "vermelho"},
		{Label: "CONSELHO DE CLASSE", Color: "#123456"},
	}
	events := []calendar.Event{
		{Date: "16/02", Color: "vermelho", Label: "FERIADO - CARNAVAL"},
	}

	out, err := RenderCalendarHTML(BuildCalendarDocument(2026, events, legend, testPalette(), testTint()))
	if err != nil {
		t.Fatalf("RenderCalendarHTML: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		`data-ready="true"`,
		"CALENDÁRIO LETIVO 2026",
		"<th>D</th><th>S</th><th>T</th><th>Q</th><th>Q</th><th>S</th><th>S</th>",
		"FEVEREIRO 2026",
		"FERIADO - CARNAVAL",
		"LEGENDA",
		"#123456",
		`class="quebra"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestBuildICS(t *testing.T) {
	events := []calendar.Event{
		{Date: "16/02", Label: "FERIADO - CARNAVAL"},
		{Date: "40/13", Label: "INVÁLIDO"},
	}

	feed := BuildICS(events, "Calendário Letivo", 2026)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"SUMMARY:FERIADO - CARNAVAL",
		"RRULE:FREQ=YEARLY",
		"DTSTART;VALUE=DATE:20260216",
	} {
		if !strings.Contains(feed, want) {
			t.Errorf("feed missing %q", want)
		}
	}
	if strings.Contains(feed, "INVÁLIDO") {
		t.Error("feed carries an event with an impossible date")
	}
}
