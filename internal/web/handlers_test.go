package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"letivo/internal/config"
)

// sheetBackend fakes the spreadsheet API: a users tab with one account, an
// events tab with one holiday, and a recorder for appended rows.
type sheetBackend struct {
	mu     sync.Mutex
	saved  []map[string]string
	server *httptest.Server
}

func newSheetBackend(t *testing.T) *sheetBackend {
	t.Helper()
	b := &sheetBackend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tab := r.URL.Query().Get("sheet")
		switch {
		case tab == "Usuarios" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"Email": "prof@escola.br", "Senha": "s3nh4"},
			})
		case tab == "Calendario" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"Data": "2026-02-16", "Cor": "vermelho", "Legenda": "FERIADO - CARNAVAL"},
			})
		case tab == "Calendario" && r.Method == http.MethodPost:
			var body struct {
				Data []map[string]string `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			b.mu.Lock()
			b.saved = append(b.saved, body.Data...)
			n := len(body.Data)
			b.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]int{"created": n})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *sheetBackend) savedRows() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.saved...)
}

// newTestServer builds a Server against the fake backend. Tests go through
// s.mux directly; the CSRF wrapper is exercised by the browser, not here.
func newTestServer(t *testing.T, backend *sheetBackend) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Sheet.BaseURL = backend.server.URL
	cfg.Sheet.TimeoutSeconds = 5
	cfg.CacheTTLSeconds = 300
	cfg.Normalize()
	return NewServer(cfg, true)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/login",
		map[string]string{"email": "Prof@Escola.br", "senha": "s3nh4"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	rec := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/session", nil, cookie)
	body := decodeBody(t, rec)
	if body["autenticado"] != true || body["tela"] != "DASHBOARD" {
		t.Errorf("session after login = %v", body)
	}
	if body["email"] != "prof@escola.br" {
		t.Errorf("session email = %v, want lowercased", body["email"])
	}
}

func TestLoginRejected(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	rec := doJSON(t, s, http.MethodPost, "/api/login",
		map[string]string{"email": "prof@escola.br", "senha": "errada"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login = %d, want 401", rec.Code)
	}
	if msg := decodeBody(t, rec)["mensagem"]; msg != "E-mail ou senha inválidos." {
		t.Errorf("mensagem = %v", msg)
	}
}

func TestEventsRequireSession(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	rec := doJSON(t, s, http.MethodGet, "/api/events", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("events without session = %d, want 401", rec.Code)
	}
}

func TestEventsWindow(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/events?ano=2026&mes=0&modo=12", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("events = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Year   int `json:"ano"`
		Months []struct {
			Name  string `json:"nome"`
			Cells []struct {
				Day   int    `json:"dia"`
				Color string `json:"cor"`
			} `json:"dias"`
		} `json:"meses"`
		Legend []config.Category `json:"legenda"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(body.Months) != 12 || body.Months[0].Name != "JANEIRO" {
		t.Fatalf("months = %d, first = %q", len(body.Months), body.Months[0].Name)
	}
	if len(body.Legend) == 0 {
		t.Error("legend missing from events response")
	}

	// The backend's ISO date must land normalized on 16 February, resolved
	// through the palette.
	feb := body.Months[1]
	if feb.Cells[15].Day != 16 || feb.Cells[15].Color != "#ef4444" {
		t.Errorf("holiday cell = %+v", feb.Cells[15])
	}
}

func TestEventsRejectsBadSpan(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/events?modo=4", nil, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("modo=4 = %d, want 400", rec.Code)
	}
}

func TestBatchWithoutValidDates(t *testing.T) {
	backend := newSheetBackend(t)
	s := newTestServer(t, backend)
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/events/batch",
		map[string]string{"texto": "nada aqui\n\nsó texto", "categoria": "FERIADO", "cor": "vermelho"}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("batch = %d, want 400", rec.Code)
	}
	if msg := decodeBody(t, rec)["mensagem"]; msg != "Nenhuma data válida encontrada." {
		t.Errorf("mensagem = %v", msg)
	}
	if rows := backend.savedRows(); len(rows) != 0 {
		t.Errorf("nothing should have been written, got %v", rows)
	}
}

func TestBatchSave(t *testing.T) {
	backend := newSheetBackend(t)
	s := newTestServer(t, backend)
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/events/batch", map[string]string{
		"texto":     "16/02 - Carnaval\n21/04",
		"categoria": "FERIADO",
		"cor":       "vermelho",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["criadas"]; got != float64(2) {
		t.Errorf("criadas = %v, want 2", got)
	}

	rows := backend.savedRows()
	if len(rows) != 2 {
		t.Fatalf("saved %d rows, want 2", len(rows))
	}
	if rows[0]["Data"] != "16/02" || rows[0]["Legenda"] != "FERIADO - CARNAVAL" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1]["Legenda"] != "FERIADO" || rows[1]["Cor"] != "vermelho" {
		t.Errorf("second row = %v", rows[1])
	}
}

func TestNavigate(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	cookie := login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/navigate", map[string]string{"tela": "CALENDAR"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("DASHBOARD -> CALENDAR = %d: %s", rec.Code, rec.Body.String())
	}

	// Back to LOGIN, from where CALENDAR is unreachable.
	rec = doJSON(t, s, http.MethodPost, "/api/navigate", map[string]string{"tela": "LOGIN"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("CALENDAR -> LOGIN = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/navigate", map[string]string{"tela": "CALENDAR"}, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("LOGIN -> CALENDAR = %d, want 409", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/navigate", map[string]string{"tela": "OUTRA"}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown screen = %d, want 400", rec.Code)
	}
}

func TestExportPageTicket(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))

	rec := doJSON(t, s, http.MethodGet, "/export/page?t=desconhecido", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ticket = %d, want 404", rec.Code)
	}

	token := s.newTicket([]byte(`<html data-ready="true"></html>`))
	rec = doJSON(t, s, http.MethodGet, "/export/page?t="+token, nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "data-ready") {
		t.Fatalf("ticket page = %d %q", rec.Code, rec.Body.String())
	}
}

func TestICSFeed(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))

	rec := doJSON(t, s, http.MethodGet, "/api/export/ics?ano=2026", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ics = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	feed := rec.Body.String()
	if !strings.Contains(feed, "BEGIN:VCALENDAR") || !strings.Contains(feed, "FERIADO - CARNAVAL") {
		t.Errorf("feed = %q", feed)
	}
}

func TestStaleFetchNeverOverwritesNewer(t *testing.T) {
	s := newTestServer(t, newSheetBackend(t))
	ctx := context.Background()

	s.refreshEvents(ctx)
	s.eventsMu.RLock()
	applied, count := s.appliedSeq, len(s.events)
	s.eventsMu.RUnlock()
	if applied != 1 || count != 1 {
		t.Fatalf("first refresh: appliedSeq = %d, events = %d", applied, count)
	}

	// Pretend a newer fetch already landed; the next refresh draws a lower
	// sequence number and its result must be discarded.
	s.eventsMu.Lock()
	s.appliedSeq = 10
	s.events = nil
	s.eventsMu.Unlock()

	s.refreshEvents(ctx)

	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	if s.appliedSeq != 10 || s.events != nil {
		t.Errorf("stale fetch applied: appliedSeq = %d, events = %v", s.appliedSeq, s.events)
	}
}
