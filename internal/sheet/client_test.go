package sheet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"letivo/internal/config"
)

func testClient(baseURL string) *Client {
	return New(config.SheetConfig{
		BaseURL:        baseURL,
		EventsSheet:    "Calendario",
		UsersSheet:     "Usuarios",
		TimeoutSeconds: 5,
	})
}

func TestFetchEventsMixedShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sheet"); got != "Calendario" {
			t.Errorf("sheet param = %q, want Calendario", got)
		}
		// Uppercase headers, lowercase headers, and a numeric serial date.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Data": "16/02", "Cor": "vermelho", "Legenda": "FERIADO - CARNAVAL"},
			{"data": "2026-04-21", "cor": "azul", "legenda": "TIRADENTES"},
			{"Data": 46069, "Cor": "verde", "Legenda": "SERIAL"}
		]`))
	}))
	defer srv.Close()

	events := testClient(srv.URL).FetchEvents(context.Background())
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	want := []RawEvent{
		{Date: "16/02", Color: "vermelho", Label: "FERIADO - CARNAVAL"},
		{Date: "2026-04-21", Color: "azul", Label: "TIRADENTES"},
		{Date: "46069", Color: "verde", Label: "SERIAL"},
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

// Transport failure on the read path degrades to an empty list so the
// calendar stays interactive.
func TestFetchEventsDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if events := testClient(srv.URL).FetchEvents(context.Background()); len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}

	// Unreachable endpoint behaves the same.
	dead := testClient("http://127.0.0.1:1")
	if events := dead.FetchEvents(context.Background()); len(events) != 0 {
		t.Errorf("got %d events from dead endpoint, want 0", len(events))
	}
}

func TestSaveBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body struct {
			Data []Row `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Data) != 2 || body.Data[0].Date != "16/02" || body.Data[0].Color != "vermelho" {
			t.Errorf("unexpected payload: %+v", body.Data)
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"created": 2})
	}))
	defer srv.Close()

	rows := []Row{
		{Date: "16/02", Color: "vermelho", Label: "FERIADO - CARNAVAL"},
		{Date: "18/02", Color: "vermelho", Label: "FERIADO - CINZAS"},
	}
	res, err := testClient(srv.URL).SaveBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("created = %d, want 2", res.Created)
	}
}

func TestSaveBatchFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).SaveBatch(context.Background(), []Row{{Date: "16/02"}}); err == nil {
		t.Fatal("expected error on non-2xx save")
	}

	if _, err := testClient(srv.URL).SaveBatch(context.Background(), nil); err == nil {
		t.Fatal("expected error on empty batch")
	}
}

func usersServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sheet"); got != "Usuarios" {
			t.Errorf("sheet param = %q, want Usuarios", got)
		}
		_, _ = w.Write([]byte(`[
			{"Email": "Maria@Escola.br", "Senha": "segredo"},
			{"E-mail": "joao@escola.br", "senha": " outra "}
		]`))
	}))
}

func TestAuthenticate(t *testing.T) {
	srv := usersServer(t)
	defer srv.Close()
	c := testClient(srv.URL)

	tests := []struct {
		name  string
		email string
		senha string
		want  bool
	}{
		{"exact match", "Maria@Escola.br", "segredo", true},
		{"case-insensitive identifier", "maria@escola.br", "segredo", true},
		{"trimmed input", "  MARIA@ESCOLA.BR  ", " segredo ", true},
		{"alternate header casing", "joao@escola.br", "outra", true},
		{"wrong secret", "maria@escola.br", "Segredo", false},
		{"unknown identifier", "ana@escola.br", "segredo", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := c.Authenticate(context.Background(), tt.email, tt.senha)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Authenticate(%q, %q) = %v, want %v", tt.email, tt.senha, ok, tt.want)
			}
		})
	}
}

// Authentication is a write-path style failure: transport errors propagate
// so the login screen can show a message instead of a silent denial.
func TestAuthenticateTransportError(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	if _, err := c.Authenticate(context.Background(), "a@b.c", "x"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	srv := usersServer(t)
	defer srv.Close()

	err := testClient(srv.URL).Register(context.Background(), "MARIA@escola.br", "nova")
	if err != ErrUserExists {
		t.Fatalf("err = %v, want ErrUserExists", err)
	}
}

func TestFieldString(t *testing.T) {
	row := map[string]any{
		"Data":    json.Number("46069"),
		"legenda": "minúsculo",
		"Cor":     "",
		"cor":     "azul",
	}
	if got := fieldString(row, "Data", "data"); got != "46069" {
		t.Errorf("numeric field = %q, want 46069", got)
	}
	if got := fieldString(row, "Legenda", "legenda"); got != "minúsculo" {
		t.Errorf("fallback key = %q", got)
	}
	// Empty values lose to later keys.
	if got := fieldString(row, "Cor", "cor"); got != "azul" {
		t.Errorf("empty-first = %q, want azul", got)
	}
	if got := fieldString(row, "Ausente"); got != "" {
		t.Errorf("missing key = %q, want empty", got)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://sheetdb.io/api/v1/abc123"); got != "https://sheetdb.io/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
	if got := redactURL("no-scheme"); got != "sheet://...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}
