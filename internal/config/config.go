package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"madcal/internal/model"
	"madcal/internal/monitor"
	"madcal/internal/ordering"
)

// Environment variables that override the Telegram settings, so secrets can
// stay out of the YAML file.
const (
	EnvTelegramToken  = "MADCAL_TELEGRAM_TOKEN"
	EnvTelegramChatID = "MADCAL_TELEGRAM_CHAT_ID"
)

// Event source formats.
const (
	FormatJSON = "json"
	FormatICS  = "ics"
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// EventsConfig describes where show runs come from.
type EventsConfig struct {
	// URL is an http(s) endpoint, file:// URL or local path.
	URL string `yaml:"url" json:"url"`
	// Format is "json" (array of event records) or "ics".
	Format string `yaml:"format" json:"format"`
}

// ExclusionsConfig points at the per-show excluded days document.
type ExclusionsConfig struct {
	URL string `yaml:"url" json:"url"`
}

// ItemsConfig points at the monitored musicals. Database wins over URL when
// both are set.
type ItemsConfig struct {
	URL      string `yaml:"url" json:"url"`
	Database string `yaml:"database" json:"database"`
}

// MonitorConfig lists ticket pages whose content is watched for updates.
type MonitorConfig struct {
	Pages []monitor.Page `yaml:"pages" json:"pages"`
	// FromItems also watches every URL of the tracked items.
	FromItems bool `yaml:"from_items" json:"from_items"`
	// TimeoutSeconds bounds each page request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// WindowConfig clamps the visible calendar range (inclusive).
type WindowConfig struct {
	MinDate string `yaml:"min_date" json:"min_date"`
	MaxDate string `yaml:"max_date" json:"max_date"`
}

// TelegramConfig enables Telegram alerts when both fields are set.
type TelegramConfig struct {
	Token  string `yaml:"token" json:"-"`
	ChatID int64  `yaml:"chat_id" json:"chat_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone decides what "today" is when hiding past runs.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") for the change
	// tracker's refresh loop.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the HTTP cache of fetched sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Events     EventsConfig     `yaml:"events" json:"events"`
	Exclusions ExclusionsConfig `yaml:"exclusions" json:"exclusions"`
	Items      ItemsConfig      `yaml:"items" json:"items"`
	Monitor    MonitorConfig    `yaml:"monitor" json:"monitor"`

	// PreferredOrder lists shows that sort first within a day, in order.
	PreferredOrder []string `yaml:"preferred_order" json:"preferred_order"`

	Window WindowConfig `yaml:"window" json:"window"`

	// HidePast drops runs that ended before today unless a request asks
	// for them.
	HidePast bool `yaml:"hide_past" json:"hide_past"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Events:   EventsConfig{URL: "./data/events.json", Format: FormatJSON},
		Items:    ItemsConfig{URL: "./data/items.json"},
		HidePast: true,
	}
	c.Exclusions.URL = "./data/exclusions.json"
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Madrid"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/feed-cache"
	}

	switch strings.ToLower(strings.TrimSpace(c.Events.Format)) {
	case FormatICS:
		c.Events.Format = FormatICS
	default:
		c.Events.Format = FormatJSON
	}

	if c.PreferredOrder == nil {
		c.PreferredOrder = append([]string(nil), ordering.DefaultPreferred...)
	}
	if c.Window.MinDate == "" {
		c.Window.MinDate = "2025-01-01"
	}
	if c.Window.MaxDate == "" {
		c.Window.MaxDate = "2026-12-31"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Monitor.TimeoutSeconds <= 0 {
		c.Monitor.TimeoutSeconds = 10
	}
}

// ApplyEnv overrides file values with the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// MonitorEnabled reports whether any page is to be watched.
func (c *Config) MonitorEnabled() bool {
	return len(c.Monitor.Pages) > 0 || c.Monitor.FromItems
}

// MonitorTimeout is the per-page request timeout.
func (c *Config) MonitorTimeout() time.Duration {
	return time.Duration(c.Monitor.TimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether both token and chat id are known.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}

// Location returns the configured timezone, or UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today is the current calendar day in the configured timezone.
func (c *Config) Today(now time.Time) model.Day {
	return model.DayOf(now.In(c.Location()))
}

// WindowDays parses the visible window. Unparseable bounds are zero, i.e.
// unbounded.
func (c *Config) WindowDays() (min, max model.Day) {
	min, _ = model.ParseDay(c.Window.MinDate)
	max, _ = model.ParseDay(c.Window.MaxDate)
	return min, max
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is read and defaults are filled in.
//
// Environment overrides are applied in both cases, after the file is saved.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			err := Save(path, cfg)
			cfg.ApplyEnv()
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".madcal-config-*.tmp")
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

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
