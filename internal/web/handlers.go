package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"

	"letivo/internal/calendar"
	"letivo/internal/export"
	appLog "letivo/internal/log"
	"letivo/internal/plan"
	"letivo/internal/sheet"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requireSession resolves the caller's session or answers 401. Expired and
// missing sessions look the same to the client.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.sessions.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Sessão expirada. Faça login novamente.")
		return nil, false
	}
	return sess, true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "Método não permitido.")
		return false
	}
	return true
}

// handleSession reports the caller's state and hands out the CSRF token the
// UI must echo on every mutating call.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	resp := struct {
		Authenticated bool   `json:"autenticado"`
		Email         string `json:"email,omitempty"`
		Screen        Screen `json:"tela"`
		CSRFToken     string `json:"csrf_token"`
	}{
		Screen:    ScreenLogin,
		CSRFToken: csrf.Token(r),
	}
	if sess, ok := s.sessions.FromRequest(r); ok {
		resp.Authenticated = true
		resp.Email = sess.Email
		resp.Screen = sess.Screen
	}
	writeJSON(w, http.StatusOK, resp)
}

type credentials struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}
	if strings.TrimSpace(creds.Email) == "" || strings.TrimSpace(creds.Senha) == "" {
		writeError(w, http.StatusBadRequest, "Informe e-mail e senha.")
		return
	}

	ok, err := s.sheet.Authenticate(r.Context(), creds.Email, creds.Senha)
	if err != nil {
		appLog.Error("login verification failed", err)
		writeError(w, http.StatusBadGateway, "Não foi possível verificar o acesso. Tente novamente.")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "E-mail ou senha inválidos.")
		return
	}

	sess := s.sessions.Create(strings.ToLower(strings.TrimSpace(creds.Email)))
	setSessionCookie(w, sess)
	appLog.Info("login", "email", sess.Email)

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "sucesso",
		"tela":   sess.Screen,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if c, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.Delete(c.Value)
	}
	clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "sucesso",
		"tela":   ScreenLogin,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}
	if strings.TrimSpace(creds.Email) == "" || strings.TrimSpace(creds.Senha) == "" {
		writeError(w, http.StatusBadRequest, "Informe e-mail e senha.")
		return
	}

	err := s.sheet.Register(r.Context(), creds.Email, creds.Senha)
	switch {
	case errors.Is(err, sheet.ErrUserExists):
		writeError(w, http.StatusConflict, "E-mail já cadastrado.")
		return
	case err != nil:
		appLog.Error("registration failed", err)
		writeError(w, http.StatusBadGateway, "Não foi possível concluir o cadastro. Tente novamente.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"status": "sucesso"})
}

// handleNavigate moves the session between screens, rejecting moves the
// state machine does not allow.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var body struct {
		Screen string `json:"tela"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}

	target := Screen(strings.ToUpper(strings.TrimSpace(body.Screen)))
	if !target.Valid() {
		writeError(w, http.StatusBadRequest, "Tela desconhecida.")
		return
	}
	if !CanTransition(sess.Screen, target) {
		writeError(w, http.StatusConflict, "Navegação inválida.")
		return
	}

	s.sessions.SetScreen(sess.Token, target)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "sucesso",
		"tela":   target,
	})
}

// handleEvents renders the requested window of months.
//
// GET /api/events?ano=2026&mes=0&modo=12
//   - ano:  anchor year (defaults to the configured school year)
//   - mes:  0-based starting month
//   - modo: window span in months (1, 3, 6 or 12)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	q := r.URL.Query()
	win := calendar.Window{
		StartMonth: parseIntDefault(q.Get("mes"), 0),
		Year:       parseIntDefault(q.Get("ano"), s.cfg.BaseYear),
		Span:       parseIntDefault(q.Get("modo"), 12),
	}
	if !win.Valid() || win.StartMonth < 0 || win.StartMonth > 11 {
		writeError(w, http.StatusBadRequest, "Modo de exibição inválido.")
		return
	}

	events := s.cachedEvents(r.Context())
	months := calendar.BuildWindow(win, events, s.palette(), s.tint())

	writeJSON(w, http.StatusOK, map[string]any{
		"ano":     win.Year,
		"meses":   months,
		"legenda": s.cfg.Legend,
	})
}

// handleBatch parses free-text dates and appends them to the sheet. Nothing
// is written when no line yields a date.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var body struct {
		Text     string `json:"texto"`
		Category string `json:"categoria"`
		Color    string `json:"cor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}

	entries := calendar.ParseBatch(body.Text, body.Category)
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "Nenhuma data válida encontrada.")
		return
	}

	rows := make([]sheet.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, sheet.Row{Date: e.Date, Color: body.Color, Label: e.Label})
	}

	result, err := s.sheet.SaveBatch(r.Context(), rows)
	if err != nil {
		appLog.Error("batch save failed", err)
		writeError(w, http.StatusBadGateway, "Não foi possível salvar as datas. Tente novamente.")
		return
	}

	s.invalidateEvents()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "sucesso",
		"criadas": result.Created,
	})
}

// handlePlanGenerate validates the request, folds in-period calendar events
// into the prompt, and returns the generated plan as text and HTML.
func (s *Server) handlePlanGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var req plan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}

	prompt, err := plan.BuildPrompt(req, s.cachedEvents(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.planner.Generate(r.Context(), prompt)
	switch {
	case errors.Is(err, plan.ErrNoAPIKey):
		writeError(w, http.StatusServiceUnavailable, "Geração de planos não configurada.")
		return
	case err != nil:
		appLog.Error("plan generation failed", err)
		writeError(w, http.StatusBadGateway, "Não foi possível gerar o plano. Tente novamente.")
		return
	}

	html, err := plan.RenderMarkdown(text)
	if err != nil {
		appLog.Error("plan markdown render failed", err)
		writeError(w, http.StatusInternalServerError, "Não foi possível formatar o plano.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "sucesso",
		"plano":  text,
		"html":   html,
	})
}

// handleCalendarPDF prints the full-year calendar. The rendered page is
// parked behind a ticket and a headless Chromium prints it from there.
func (s *Server) handleCalendarPDF(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	year := parseIntDefault(r.URL.Query().Get("ano"), s.cfg.BaseYear)
	doc := export.BuildCalendarDocument(year, s.cachedEvents(r.Context()), s.cfg.Legend, s.palette(), s.tint())

	html, err := export.RenderCalendarHTML(doc)
	if err != nil {
		appLog.Error("calendar export render failed", err)
		writeError(w, http.StatusInternalServerError, "Não foi possível montar o calendário.")
		return
	}

	s.servePDF(w, r, html, fmt.Sprintf("calendario-letivo-%d.pdf", year))
}

// handlePlanPDF prints a previously generated lesson plan.
func (s *Server) handlePlanPDF(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var body struct {
		plan.Request
		Text string `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição malformada.")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "Gere o plano antes de exportar.")
		return
	}

	doc, err := export.BuildPlanDocument(body.Request, body.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	html, err := export.RenderPlanHTML(doc)
	if err != nil {
		appLog.Error("plan export render failed", err)
		writeError(w, http.StatusInternalServerError, "Não foi possível montar o plano.")
		return
	}

	s.servePDF(w, r, html, "planejamento.pdf")
}

// servePDF parks html behind a ticket, prints it through Chromium, and
// streams the PDF back as a download.
func (s *Server) servePDF(w http.ResponseWriter, r *http.Request, html []byte, filename string) {
	token := s.newTicket(html)
	url := s.selfURL("/export/page?t=" + token)

	pdf, err := export.PrintPDF(r.Context(), export.PrintOptions{URL: url})
	if err != nil {
		appLog.Error("pdf print failed", err, "filename", filename)
		writeError(w, http.StatusBadGateway, "Não foi possível gerar o PDF. Tente novamente.")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// handleExportPage serves a ticketed export page. No session: the headless
// browser is the only intended caller, and tickets are unguessable and
// short-lived.
func (s *Server) handleExportPage(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	html, ok := s.ticketHTML(r.URL.Query().Get("t"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// handleICS serves the subscribable feed. The feed carries only the shared
// school calendar, so it is readable without a session; calendar apps
// cannot log in.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	year := parseIntDefault(r.URL.Query().Get("ano"), s.cfg.BaseYear)
	feed := export.BuildICS(s.cachedEvents(r.Context()), "Calendário Letivo", year)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
