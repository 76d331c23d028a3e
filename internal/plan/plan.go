package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"letivo/internal/calendar"
)

// Types lists the accepted plan spans, in menu order.
var Types = []string{"SEMANAL", "MENSAL", "BIMESTRAL", "TRIMESTRAL", "SEMESTRAL", "ANUAL"}

// weekdayNames maps schedule weekdays to their Portuguese labels, Monday
// first to match how teachers read a timetable.
var weekdayNames = []struct {
	Day   time.Weekday
	Label string
}{
	{time.Monday, "Segunda"},
	{time.Tuesday, "Terça"},
	{time.Wednesday, "Quarta"},
	{time.Thursday, "Quinta"},
	{time.Friday, "Sexta"},
	{time.Saturday, "Sábado"},
	{time.Sunday, "Domingo"},
}

// Request carries everything the teacher fills in before generating a plan.
type Request struct {
	Type     string `json:"tipo"`
	Teacher  string `json:"professor"`
	Subject  string `json:"disciplina"`
	Grade    string `json:"turma"`
	Start    string `json:"inicio"` // ISO YYYY-MM-DD
	End      string `json:"fim"`
	Contents string `json:"conteudos"`

	// WeeklyLessons maps weekday (0=Sunday..6=Saturday) to lessons taught
	// that day. At least one entry must be positive.
	WeeklyLessons map[time.Weekday]int `json:"grade"`
}

var (
	ErrMissingFields = errors.New("preencha professor, disciplina, datas e conteúdos")
	ErrNoLessonDays  = errors.New("defina as aulas da semana")
	ErrBadPeriod     = errors.New("período inválido")
)

// Validate checks the required fields and parses the period. All failures
// block locally; nothing is sent upstream for an incomplete request.
func (r Request) Validate() (start, end time.Time, err error) {
	if strings.TrimSpace(r.Teacher) == "" ||
		strings.TrimSpace(r.Subject) == "" ||
		strings.TrimSpace(r.Contents) == "" ||
		r.Start == "" || r.End == "" {
		return time.Time{}, time.Time{}, ErrMissingFields
	}

	hasLessons := false
	for _, n := range r.WeeklyLessons {
		if n > 0 {
			hasLessons = true
			break
		}
	}
	if !hasLessons {
		return time.Time{}, time.Time{}, ErrNoLessonDays
	}

	start, err = time.ParseInLocation("2006-01-02", r.Start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrBadPeriod
	}
	end, err = time.ParseInLocation("2006-01-02", r.End, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrBadPeriod
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrBadPeriod
	}

	planType := strings.ToUpper(strings.TrimSpace(r.Type))
	for _, t := range Types {
		if t == planType {
			return start, end, nil
		}
	}
	return time.Time{}, time.Time{}, fmt.Errorf("tipo de plano desconhecido: %q", r.Type)
}

// ScheduleSummary renders the weekly timetable as "Segunda (2 aulas),
// Sexta (1 aula)", skipping zero days.
func (r Request) ScheduleSummary() string {
	var parts []string
	for _, wd := range weekdayNames {
		n := r.WeeklyLessons[wd.Day]
		if n <= 0 {
			continue
		}
		unit := "aulas"
		if n == 1 {
			unit = "aula"
		}
		parts = append(parts, fmt.Sprintf("%s (%d %s)", wd.Label, n, unit))
	}
	return strings.Join(parts, ", ")
}

// BuildPrompt validates the request and assembles the structured prompt sent
// to the language model. Calendar events that fall inside the period are
// included so the model plans around holidays and school milestones.
func BuildPrompt(r Request, events []calendar.Event) (string, error) {
	start, end, err := r.Validate()
	if err != nil {
		return "", err
	}

	occ := EventsInPeriod(events, start, end)
	sort.Slice(occ, func(i, j int) bool { return occ[i].When.Before(occ[j].When) })

	eventLines := make([]string, 0, len(occ))
	for _, o := range occ {
		eventLines = append(eventLines, fmt.Sprintf("%s: %s", o.Key, o.Label))
	}
	eventSummary := "Nenhum."
	if len(eventLines) > 0 {
		eventSummary = strings.Join(eventLines, " | ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Aja como um Coordenador Pedagógico sênior. Gere um Planejamento %s DETALHADO.\n\n",
		strings.ToUpper(strings.TrimSpace(r.Type)))
	b.WriteString("DADOS:\n")
	fmt.Fprintf(&b, "Professor(a): %s\n", strings.TrimSpace(r.Teacher))
	fmt.Fprintf(&b, "Disciplina: %s\n", strings.TrimSpace(r.Subject))
	fmt.Fprintf(&b, "Ano/Série: %s\n", strings.TrimSpace(r.Grade))
	fmt.Fprintf(&b, "Período: %s a %s\n", r.Start, r.End)
	fmt.Fprintf(&b, "Grade: %s\n", r.ScheduleSummary())
	fmt.Fprintf(&b, "Conteúdos: %s\n", strings.TrimSpace(r.Contents))
	fmt.Fprintf(&b, "Eventos Calendário: %s\n", eventSummary)
	b.WriteString(`
REGRAS IMPORTANTES:
1. "INÍCIO DO MÓDULO" NÃO É FERIADO. É dia letivo normal.
2. Liste TODAS as datas que têm aula conforme a Grade Semanal.
3. Formato:
   DATA (em negrito)
   • Aula X: Título da Aula
     Tema: Descrição breve do assunto.
   ________________________________________

Gere o plano agora.
`)
	return b.String(), nil
}
