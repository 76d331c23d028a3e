package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/robfig/cron/v3"

	"letivo/internal/calendar"
	"letivo/internal/config"
	appLog "letivo/internal/log"
	"letivo/internal/plan"
	"letivo/internal/sheet"
)

// Server provides the HTTP surface: the JSON API, the embedded UI, and the
// internal export pages the PDF printer navigates to.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux

	sessions *SessionStore
	sheet    *sheet.Client
	planner  *plan.Client
	cron     *cron.Cron

	// Event cache. fetchSeq numbers every fetch as it starts; appliedSeq is
	// the number of the fetch whose result the cache currently holds. A fetch
	// may only install its result while its number is still the highest, so a
	// slow stale response can never overwrite a newer one.
	eventsMu   sync.RWMutex
	events     []calendar.Event
	eventsAt   time.Time
	fetchSeq   uint64
	appliedSeq uint64

	// Export tickets: short-lived, single-purpose HTML pages keyed by an
	// unguessable token, so headless Chromium can reach them without a
	// session cookie.
	ticketsMu sync.Mutex
	tickets   map[string]ticket
}

type ticket struct {
	html    []byte
	expires time.Time
}

const ticketTTL = 2 * time.Minute

// embeddedStatic contains the single-page UI.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, debug bool) *Server {
	s := &Server{
		cfg:      cfg,
		debug:    debug,
		mux:      http.NewServeMux(),
		sessions: NewSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		sheet:    sheet.New(cfg.Sheet),
		planner:  plan.NewClient(cfg.Plan),
		cron:     cron.New(),
		tickets:  make(map[string]ticket),
	}
	s.registerRoutes()
	return s
}

// Handler returns the full handler chain: CSRF protection around the mux.
// Export pages and the ICS feed are GETs and pass through untouched; every
// mutating API call must carry the token handed out by /api/session.
func (s *Server) Handler() http.Handler {
	protect := csrf.Protect(csrfKey(),
		csrf.Path("/"),
		csrf.Secure(!s.debug),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusForbidden, "Requisição inválida. Recarregue a página.")
		})),
	)
	return protect(s.mux)
}

// csrfKey returns the 32-byte CSRF auth key: LETIVO_CSRF_KEY (hex) when set,
// otherwise a random key, which invalidates outstanding tokens on restart.
func csrfKey() []byte {
	if env := os.Getenv("LETIVO_CSRF_KEY"); env != "" {
		if key, err := hex.DecodeString(env); err == nil && len(key) == 32 {
			return key
		}
		appLog.Error("LETIVO_CSRF_KEY is not 32 hex-encoded bytes, using a random key", nil)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("csrf key generation failed: " + err.Error())
	}
	return key
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.HandleFunc("/api/register", s.handleRegister)
	s.mux.HandleFunc("/api/navigate", s.handleNavigate)

	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/batch", s.handleBatch)

	s.mux.HandleFunc("/api/plan/generate", s.handlePlanGenerate)

	s.mux.HandleFunc("/api/export/calendar.pdf", s.handleCalendarPDF)
	s.mux.HandleFunc("/api/export/plan.pdf", s.handlePlanPDF)
	s.mux.HandleFunc("/api/export/ics", s.handleICS)

	// Internal pages for the PDF printer, reachable by ticket only.
	s.mux.HandleFunc("/export/page", s.handleExportPage)

	s.mux.Handle("/", s.staticFileServer())
}

// StartRefresh schedules the background event refresh and primes the cache
// once so the first page load is warm.
func (s *Server) StartRefresh(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		s.refreshEvents(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()

	go s.refreshEvents(ctx)
	return nil
}

// StopRefresh stops the cron scheduler and waits for a running job.
func (s *Server) StopRefresh() {
	<-s.cron.Stop().Done()
}

// refreshEvents fetches the events tab and installs the normalized result,
// guarded by the fetch sequence so overlapping fetches apply in start order.
func (s *Server) refreshEvents(ctx context.Context) {
	s.eventsMu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.eventsMu.Unlock()

	raw := s.sheet.FetchEvents(ctx)
	events := make([]calendar.Event, 0, len(raw))
	for _, r := range raw {
		events = append(events, calendar.Event{
			Date:  calendar.Normalize(r.Date),
			Color: r.Color,
			Label: r.Label,
		})
	}

	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	if seq <= s.appliedSeq {
		appLog.Debug("stale event fetch discarded", "seq", seq, "applied", s.appliedSeq)
		return
	}
	s.appliedSeq = seq
	s.events = events
	s.eventsAt = time.Now()
	appLog.Debug("event cache refreshed", "seq", seq, "events", len(events))
}

// cachedEvents returns the cached events, refreshing first when the cache is
// older than the configured TTL. A failed refresh leaves an empty list; the
// calendar renders blank rather than erroring.
func (s *Server) cachedEvents(ctx context.Context) []calendar.Event {
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second

	s.eventsMu.RLock()
	fresh := !s.eventsAt.IsZero() && time.Since(s.eventsAt) < ttl
	events := s.events
	s.eventsMu.RUnlock()
	if fresh {
		return events
	}

	s.refreshEvents(ctx)

	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return s.events
}

// invalidateEvents forces the next read to refetch, after a write.
func (s *Server) invalidateEvents() {
	s.eventsMu.Lock()
	s.eventsAt = time.Time{}
	s.eventsMu.Unlock()
}

func (s *Server) palette() calendar.Palette {
	return calendar.Palette(s.cfg.Palette)
}

func (s *Server) tint() calendar.WeekendTint {
	return calendar.WeekendTint{Saturday: s.cfg.SaturdayTint, Sunday: s.cfg.SundayTint}
}

// newTicket stores an export page and returns its token.
func (s *Server) newTicket(html []byte) string {
	token := uuid.NewString()

	s.ticketsMu.Lock()
	now := time.Now()
	for t, tk := range s.tickets {
		if now.After(tk.expires) {
			delete(s.tickets, t)
		}
	}
	s.tickets[token] = ticket{html: html, expires: now.Add(ticketTTL)}
	s.ticketsMu.Unlock()
	return token
}

func (s *Server) ticketHTML(token string) ([]byte, bool) {
	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()

	tk, ok := s.tickets[token]
	if !ok || time.Now().After(tk.expires) {
		delete(s.tickets, token)
		return nil, false
	}
	return tk.html, true
}

// selfURL builds an URL to this server for the headless browser. The listen
// address may have a wildcard host; loopback stands in for it.
func (s *Server) selfURL(path string) string {
	host, port, err := net.SplitHostPort(s.cfg.Listen)
	if err != nil || host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
		if err == nil && port != "" {
			return "http://" + net.JoinHostPort(host, port) + path
		}
		return "http://" + host + ":8080" + path
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/export/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

// writeError writes the standard failure envelope. Messages are user-facing
// and shown verbatim by the UI.
func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Status  string `json:"status"`
		Message string `json:"mensagem"`
	}
	writeJSON(w, status, errResp{Status: "erro", Message: msg})
}
