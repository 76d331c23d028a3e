package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"letivo/internal/plan"
)

// PlanDocument is the printable lesson plan: header metadata plus the
// generated prose already rendered to HTML.
type PlanDocument struct {
	Title    string
	Teacher  string
	Subject  string
	Grade    string
	Period   string
	Schedule string
	Body     template.HTML
}

// BuildPlanDocument pairs a validated request with the generated plan text.
// The request must have passed Validate before the text was generated, so a
// failure here means the caller skipped that step.
func BuildPlanDocument(r plan.Request, generated string) (PlanDocument, error) {
	start, end, err := r.Validate()
	if err != nil {
		return PlanDocument{}, err
	}

	body, err := plan.RenderMarkdown(generated)
	if err != nil {
		return PlanDocument{}, err
	}

	planType := strings.ToUpper(strings.TrimSpace(r.Type))
	return PlanDocument{
		Title:    fmt.Sprintf("PLANEJAMENTO %s", planType),
		Teacher:  strings.TrimSpace(r.Teacher),
		Subject:  strings.TrimSpace(r.Subject),
		Grade:    strings.TrimSpace(r.Grade),
		Period:   fmt.Sprintf("%s a %s", displayDate(start), displayDate(end)),
		Schedule: r.ScheduleSummary(),
		Body:     body,
	}, nil
}

func displayDate(t time.Time) string {
	return t.Format("02/01/2006")
}

var planTmpl = template.Must(template.New("plan").Parse(`<!doctype html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Arial, sans-serif; font-size: 10pt; color: #000; background: #fff; margin: 0; padding: 12mm 14mm; line-height: 1.45; }
  h1 { text-align: center; font-size: 14pt; margin: 0 0 6mm 0; }
  .cabecalho { border: 1px solid #000; padding: 3mm 5mm; margin-bottom: 8mm; font-size: 9pt; }
  .cabecalho div { margin: 1mm 0; }
  .cabecalho b { display: inline-block; min-width: 28mm; }
  .corpo hr { border: none; border-top: 1px solid #999; margin: 4mm 0; }
  .corpo ul { margin: 1mm 0 3mm 0; }
  .corpo strong { display: inline-block; margin-top: 2mm; }
</style>
</head>
<body data-ready="true">
<h1>{{.Title}}</h1>
<div class="cabecalho">
<div><b>Professor(a):</b> {{.Teacher}}</div>
<div><b>Disciplina:</b> {{.Subject}}</div>
<div><b>Ano/Série:</b> {{.Grade}}</div>
<div><b>Período:</b> {{.Period}}</div>
<div><b>Grade:</b> {{.Schedule}}</div>
</div>
<div class="corpo">
{{.Body}}
</div>
</body>
</html>
`))

// RenderPlanHTML renders the document as the standalone page the PDF printer
// navigates to.
func RenderPlanHTML(doc PlanDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := planTmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
