package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Category is one legend entry: a label paired with a display color. The
// color may be a palette token or a literal value; it is resolved at render
// time. Categories are reference data, not editable through the app.
type Category struct {
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`
}

// SheetConfig describes the remote row-oriented spreadsheet API that acts as
// the only store: one tab for users, one for calendar events.
type SheetConfig struct {
	// BaseURL is the API endpoint, e.g. "https://sheetdb.io/api/v1/<id>".
	BaseURL string `yaml:"base_url" json:"base_url"`
	// EventsSheet and UsersSheet name the spreadsheet tabs.
	EventsSheet string `yaml:"events_sheet" json:"events_sheet"`
	UsersSheet  string `yaml:"users_sheet" json:"users_sheet"`
	// TimeoutSeconds bounds each request to the sheet API.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// PlanConfig describes the generative-language API used for lesson plans.
type PlanConfig struct {
	// Endpoint is the API root, without a trailing slash.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Model    string `yaml:"model" json:"model"`
	// APIKey may be left empty in the file; LETIVO_GEMINI_API_KEY is then
	// read from the environment so the key stays out of the config file.
	APIKey string `yaml:"api_key,omitempty" json:"-"`
	// TimeoutSeconds bounds a single generation request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// BaseYear is the school year the calendar opens on.
	BaseYear int `yaml:"base_year" json:"base_year"`

	// RefreshCron schedules the background refresh of the event cache,
	// e.g. "*/15 * * * *".
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheTTLSeconds is how long fetched events are served without a
	// refresh on the request path.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	// SessionTTLMinutes is the lifetime of a login session.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" json:"session_ttl_minutes"`

	Sheet SheetConfig `yaml:"sheet" json:"sheet"`
	Plan  PlanConfig  `yaml:"plan" json:"plan"`

	// Palette maps category color tokens to concrete color values.
	Palette map[string]string `yaml:"palette" json:"palette"`

	// Legend is the fixed list of event categories shown below the grid and
	// on every export page.
	Legend []Category `yaml:"legend" json:"legend"`

	// SaturdayTint / SundayTint color event-free weekend cells.
	SaturdayTint string `yaml:"saturday_tint" json:"saturday_tint"`
	SundayTint   string `yaml:"sunday_tint" json:"sunday_tint"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		BaseYear:          2026,
		RefreshCron:       "*/15 * * * *",
		CacheTTLSeconds:   30,
		SessionTTLMinutes: 24 * 60,
		Sheet: SheetConfig{
			EventsSheet:    "Calendario",
			UsersSheet:     "Usuarios",
			TimeoutSeconds: 15,
		},
		Plan: PlanConfig{
			Endpoint:       "https://generativelanguage.googleapis.com",
			Model:          "gemini-1.5-flash",
			TimeoutSeconds: 90,
		},
		Palette: map[string]string{
			"vermelho": "#ef4444",
			"laranja":  "#f97316",
			"amarelo":  "#eab308",
			"verde":    "#22c55e",
			"azul":     "#3b82f6",
			"roxo":     "#a855f7",
			"rosa":     "#ec4899",
			"ciano":    "#06b6d4",
			"cinza":    "#6b7280",
		},
		Legend: []Category{
			{Label: "FERIADO", Color: "vermelho"},
			{Label: "RECESSO ESCOLAR", Color: "laranja"},
			{Label: "INÍCIO DO MÓDULO", Color: "verde"},
			{Label: "SÁBADO LETIVO", Color: "azul"},
			{Label: "CONSELHO DE CLASSE", Color: "roxo"},
			{Label: "REUNIÃO PEDAGÓGICA", Color: "ciano"},
			{Label: "AVALIAÇÃO", Color: "rosa"},
			{Label: "FÉRIAS", Color: "cinza"},
		},
		SaturdayTint: "#facc15",
		SundayTint:   "#a3e635",
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.BaseYear <= 0 {
		c.BaseYear = def.BaseYear
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = def.CacheTTLSeconds
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = def.SessionTTLMinutes
	}
	if c.Sheet.EventsSheet == "" {
		c.Sheet.EventsSheet = def.Sheet.EventsSheet
	}
	if c.Sheet.UsersSheet == "" {
		c.Sheet.UsersSheet = def.Sheet.UsersSheet
	}
	if c.Sheet.TimeoutSeconds <= 0 {
		c.Sheet.TimeoutSeconds = def.Sheet.TimeoutSeconds
	}
	if c.Plan.Endpoint == "" {
		c.Plan.Endpoint = def.Plan.Endpoint
	}
	if c.Plan.Model == "" {
		c.Plan.Model = def.Plan.Model
	}
	if c.Plan.TimeoutSeconds <= 0 {
		c.Plan.TimeoutSeconds = def.Plan.TimeoutSeconds
	}
	if c.Plan.APIKey == "" {
		c.Plan.APIKey = os.Getenv("LETIVO_GEMINI_API_KEY")
	}
	if c.Palette == nil {
		c.Palette = def.Palette
	}
	if len(c.Legend) == 0 {
		c.Legend = def.Legend
	}
	if c.SaturdayTint == "" {
		c.SaturdayTint = def.SaturdayTint
	}
	if c.SundayTint == "" {
		c.SundayTint = def.SundayTint
	}
}

// Load loads configuration from the given YAML path. A missing file is a
// first run: the default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".letivo-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
