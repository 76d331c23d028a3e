package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"letivo/internal/config"
	appLog "letivo/internal/log"
)

// RawEvent is one calendar row as stored in the spreadsheet, before date
// normalization. Field values arrive however the sheet author typed them.
type RawEvent struct {
	Date  string
	Color string
	Label string
}

// Row is the wire shape of one appended calendar row. Column names match the
// spreadsheet header.
type Row struct {
	Date  string `json:"Data"`
	Color string `json:"Cor"`
	Label string `json:"Legenda"`
}

// SaveResult reports the outcome of a batch append.
type SaveResult struct {
	Created int
}

// ErrUserExists is returned by Register when the identifier is already taken.
var ErrUserExists = errors.New("e-mail já cadastrado")

// Client talks to the row-oriented spreadsheet API that backs the app. It is
// the only persistence path: reads are whole-tab fetches, writes are
// append-only, and there is no update or delete.
type Client struct {
	baseURL     string
	eventsSheet string
	usersSheet  string
	client      *http.Client
}

// New builds a Client from configuration.
func New(cfg config.SheetConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		eventsSheet: cfg.EventsSheet,
		usersSheet:  cfg.UsersSheet,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// tabURL builds the endpoint for one spreadsheet tab.
func (c *Client) tabURL(tab string) string {
	return c.baseURL + "?sheet=" + url.QueryEscape(tab)
}

// FetchEvents returns every calendar row from the events tab. Transport or
// decode failures degrade to an empty list: the calendar renders blank and
// stays interactive rather than failing the view.
func (c *Client) FetchEvents(ctx context.Context) []RawEvent {
	rows, err := c.getRows(ctx, c.eventsSheet)
	if err != nil {
		appLog.Error("event fetch failed, serving empty calendar", err, "url", redactURL(c.baseURL))
		return nil
	}

	out := make([]RawEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawEvent{
			Date:  fieldString(r, "Data", "data"),
			Color: fieldString(r, "Cor", "cor"),
			Label: fieldString(r, "Legenda", "legenda"),
		})
	}
	appLog.Debug("event fetch completed", "rows", len(out))
	return out
}

// SaveBatch appends rows to the events tab and reports how many the API
// created. Unlike reads, write failures are returned so the caller can show
// the user a message.
func (c *Client) SaveBatch(ctx context.Context, rows []Row) (SaveResult, error) {
	if len(rows) == 0 {
		return SaveResult{}, errors.New("no rows to save")
	}

	payload, err := json.Marshal(map[string]any{"data": rows})
	if err != nil {
		return SaveResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tabURL(c.eventsSheet), bytes.NewReader(payload))
	if err != nil {
		return SaveResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SaveResult{}, fmt.Errorf("save batch: %s", resp.Status)
	}

	var body struct {
		Created int `json:"created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// The append went through; fall back to the row count.
		appLog.Error("save response decode failed, assuming full batch", err)
		return SaveResult{Created: len(rows)}, nil
	}
	if body.Created == 0 {
		body.Created = len(rows)
	}

	appLog.Info("batch saved", "rows", len(rows), "created", body.Created)
	return SaveResult{Created: body.Created}, nil
}

// Authenticate checks the identifier/secret pair against the users tab.
// Identifiers compare case-insensitively, secrets exactly, both trimmed.
// The secret travels and is stored in the sheet as plain text; that is an
// upstream property of the data source, not something this client can fix.
func (c *Client) Authenticate(ctx context.Context, email, senha string) (bool, error) {
	rows, err := c.getRows(ctx, c.usersSheet)
	if err != nil {
		return false, fmt.Errorf("user lookup: %w", err)
	}

	wantEmail := strings.ToLower(strings.TrimSpace(email))
	wantSenha := strings.TrimSpace(senha)

	for _, r := range rows {
		e := strings.ToLower(strings.TrimSpace(fieldString(r, "Email", "email", "E-mail")))
		s := strings.TrimSpace(fieldString(r, "Senha", "senha"))
		if e != "" && e == wantEmail && s == wantSenha {
			return true, nil
		}
	}
	return false, nil
}

// Register appends a new user row, refusing identifiers already present.
func (c *Client) Register(ctx context.Context, email, senha string) error {
	rows, err := c.getRows(ctx, c.usersSheet)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}

	wantEmail := strings.ToLower(strings.TrimSpace(email))
	for _, r := range rows {
		e := strings.ToLower(strings.TrimSpace(fieldString(r, "Email", "email", "E-mail")))
		if e == wantEmail {
			return ErrUserExists
		}
	}

	payload, err := json.Marshal(map[string]any{
		"data": []map[string]string{{
			"Email": strings.TrimSpace(email),
			"Senha": strings.TrimSpace(senha),
		}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tabURL(c.usersSheet), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("register: %s", resp.Status)
	}
	appLog.Info("user registered", "email", wantEmail)
	return nil
}

// getRows fetches one tab and decodes it as a list of loosely-typed rows.
// Numbers are kept as json.Number so serial date cells survive stringly.
func (c *Client) getRows(ctx context.Context, tab string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tabURL(tab), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// fieldString resolves one field from a row with varying header casing. Keys
// are tried in order and the first present, non-empty value wins; numeric
// cells are stringified verbatim.
func fieldString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := row[k]
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case nil:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// redactURL hides the spreadsheet identifier when the base URL is logged.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "sheet://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return u[:i+3+j] + "/...(redacted)"
	}
	return u
}
