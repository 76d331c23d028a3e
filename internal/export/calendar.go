package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"letivo/internal/calendar"
	"letivo/internal/config"
)

// PrintCell is one table cell of a printed month. Day 0 marks a padding
// cell: the leading/trailing blanks that square every row off to 7 columns.
type PrintCell struct {
	Day        int
	Background string
	Foreground string
}

// EventLine is one "date – label" line under a month's table.
type EventLine struct {
	Date  string
	Label string
}

// MonthTable is one month of the printable document.
type MonthTable struct {
	Name   string
	Year   int
	Rows   [][]PrintCell // every row holds exactly 7 cells
	Events []EventLine
}

// LegendEntry pairs a category label with its resolved color.
type LegendEntry struct {
	Label string
	Color string
}

// Page is one printed page: a title, six months, and the legend block.
type Page struct {
	Title  string
	Months []MonthTable
}

// CalendarDocument describes the full-year printable calendar: two pages of
// six months each, sharing one legend. Building it touches no network or
// storage; rendering and PDF conversion happen elsewhere.
type CalendarDocument struct {
	Year     int
	Weekdays [7]string
	Pages    []Page
	Legend   []LegendEntry
}

// BuildCalendarDocument assembles the printable layout for all 12 months of
// year. The output is deterministic for a fixed (year, events) pair.
func BuildCalendarDocument(year int, events []calendar.Event, legend []config.Category, pal calendar.Palette, tint calendar.WeekendTint) CalendarDocument {
	months := make([]MonthTable, 0, 12)
	for idx := 0; idx < 12; idx++ {
		months = append(months, monthTable(calendar.BuildMonth(idx, year, events, pal, tint), events))
	}

	doc := CalendarDocument{
		Year:     year,
		Weekdays: calendar.WeekdayLetters,
		Pages: []Page{
			{Title: fmt.Sprintf("CALENDÁRIO LETIVO %d", year), Months: months[:6]},
			{Title: fmt.Sprintf("CALENDÁRIO LETIVO %d (continuação)", year), Months: months[6:]},
		},
	}
	for _, c := range legend {
		doc.Legend = append(doc.Legend, LegendEntry{Label: c.Label, Color: pal.Resolve(c.Color)})
	}
	return doc
}

func monthTable(m calendar.Month, all []calendar.Event) MonthTable {
	cells := make([]PrintCell, 0, m.Leading+len(m.Cells)+6)
	for i := 0; i < m.Leading; i++ {
		cells = append(cells, paddingCell())
	}
	for _, c := range m.Cells {
		pc := PrintCell{Day: c.Day, Background: "#ffffff", Foreground: "#000000"}
		if c.Color != "" {
			pc.Background = c.Color
		}
		if len(c.Events) > 0 {
			pc.Foreground = "#ffffff"
		}
		cells = append(cells, pc)
	}
	for len(cells)%7 != 0 {
		cells = append(cells, paddingCell())
	}

	rows := make([][]PrintCell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}

	return MonthTable{
		Name:   m.Name,
		Year:   m.Year,
		Rows:   rows,
		Events: monthEvents(all, m.Index),
	}
}

func paddingCell() PrintCell {
	return PrintCell{Background: "#ffffff", Foreground: "#000000"}
}

// monthEvents lists the events whose key names this 0-based month, keeping
// the order they were fetched in. A key with an impossible day still lists
// here even though no grid cell carries it; that mirrors how the data has
// always been displayed.
func monthEvents(events []calendar.Event, monthIdx int) []EventLine {
	var out []EventLine
	for _, ev := range events {
		_, month, ok := calendar.SplitKey(ev.Date)
		if !ok || month-1 != monthIdx {
			continue
		}
		out = append(out, EventLine{Date: strings.TrimSpace(ev.Date), Label: ev.Label})
	}
	return out
}

var calendarTmpl = template.Must(template.New("calendar").Parse(`<!doctype html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Calendário Letivo {{.Year}}</title>
<style>
  body { font-family: Arial, sans-serif; font-size: 9pt; color: #000; background: #fff; margin: 0; padding: 10mm 5mm; }
  h1 { text-align: center; font-size: 14pt; margin: 0 0 8mm 0; }
  .pagina { text-align: center; line-height: 1.2; }
  .quebra { page-break-before: always; }
  .mes { width: 60mm; display: inline-block; vertical-align: top; margin: 0 2mm 6mm 2mm; page-break-inside: avoid; }
  .mes-titulo { text-align: center; font-weight: bold; background: #f0f0f0; padding: 2mm; border: 1px solid #000; font-size: 10pt; }
  table { width: 100%; border-collapse: collapse; text-align: center; font-size: 8pt; }
  th, td { border: 1px solid #000; padding: 1mm; height: 6mm; }
  td { font-weight: bold; }
  .eventos { font-size: 7pt; padding: 2mm 1mm; text-align: left; line-height: 1.3; }
  .eventos div { margin-bottom: 1mm; }
  .legenda { margin-top: 12mm; border: 1px solid #000; padding: 4mm 5mm; font-size: 8pt; background: #f9f9f9; page-break-inside: avoid; text-align: left; }
  .legenda-titulo { font-weight: bold; margin-bottom: 2mm; text-align: center; }
  .legenda-colunas { column-count: 2; column-gap: 12mm; }
  .legenda-item { margin-bottom: 1.5mm; break-inside: avoid; }
  .bolinha { display: inline-block; width: 9mm; height: 9mm; border-radius: 50%; vertical-align: middle; margin-right: 3mm; }
</style>
</head>
<body data-ready="true">
{{- $doc := . -}}
{{- range $i, $p := .Pages}}
<section{{if $i}} class="quebra"{{end}}>
<h1>{{$p.Title}}</h1>
<div class="pagina">
{{- range $p.Months}}
<div class="mes">
<div class="mes-titulo">{{.Name}} {{.Year}}</div>
<table>
<tr>{{range $doc.Weekdays}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td style="background:{{.Background}};color:{{.Foreground}}">{{if .Day}}{{.Day}}{{end}}</td>{{end}}</tr>
{{- end}}
</table>
<div class="eventos">
{{- range .Events}}
<div><b>{{.Date}}</b> &ndash; {{.Label}}</div>
{{- end}}
</div>
</div>
{{- end}}
</div>
<div class="legenda">
<div class="legenda-titulo">LEGENDA</div>
<div class="legenda-colunas">
{{- range $doc.Legend}}
<div class="legenda-item"><span class="bolinha" style="background:{{.Color}}"></span>{{.Label}}</div>
{{- end}}
</div>
</div>
</section>
{{- end}}
</body>
</html>
`))

// RenderCalendarHTML renders the document as the standalone page the PDF
// printer navigates to.
func RenderCalendarHTML(doc CalendarDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
