package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobdeck/internal/model"
)

// Config is the root configuration for jobdeck.
type Config struct {
	API       APIConfig
	Sources   map[string]time.Duration // per-source timeouts, keyed by source name
	Search    SearchConfig
	Suggest   SuggestConfig
	Insights  InsightsConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Watch     WatchConfig
}

// APIConfig points at the job backend.
type APIConfig struct {
	BaseURL   string
	Token     string // expanded from env var by Load, sent as a bearer token
	UserAgent string
	Timeout   time.Duration // default per-request timeout
}

// SearchConfig controls paging and the free-text debounce.
type SearchConfig struct {
	PageSize          int
	Debounce          time.Duration
	FallbackSearchURL string // apply link prefix for jobs without one
}

// SuggestConfig controls autocomplete.
type SuggestConfig struct {
	Limit int
}

// InsightsConfig holds the defaults for the insights panels.
type InsightsConfig struct {
	UserID   string `yaml:"user_id"`
	Limit    int    `yaml:"limit"`
	Position string `yaml:"position"`
}

// FetchConfig caps the parallel fan-out.
type FetchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // 0 means unlimited
}

// RateLimitConfig controls request spacing per host.
type RateLimitConfig struct {
	MinDelay time.Duration
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig controls the saved-search watcher.
type WatchConfig struct {
	Interval     time.Duration
	Schedule     string        // standard cron expression; overrides Interval when set
	MaxAge       time.Duration // drop jobs posted longer ago; zero keeps all
	Pages        int           // result pages read per poll
	Pause        time.Duration // gap between searches in one cycle
	Retain       time.Duration // seen records older than this are pruned
	MetricsAddr  string        // serve Prometheus metrics here when set, e.g. ":9090"
	Notification NotificationConfig
	Searches     []WatchSearch
}

// CronSchedule parses Schedule. It returns nil when no schedule is set.
func (w WatchConfig) CronSchedule() (cron.Schedule, error) {
	if w.Schedule == "" {
		return nil, nil
	}
	return cron.ParseStandard(w.Schedule)
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// WatchSearch is one saved search, written as a shareable query string.
type WatchSearch struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

const (
	defaultTimeout       = 10 * time.Second
	defaultPageSize      = 20
	defaultDebounce      = 300 * time.Millisecond
	defaultSuggestLimit  = 8
	defaultInsightsLimit = 10
	defaultStorePath     = "jobdeck.db"
	defaultUserAgent     = "jobdeck"
	defaultFallbackURL   = "https://www.google.com/search?q="
	defaultWatchInterval = 15 * time.Minute
	defaultWatchPause    = time.Second
	defaultWatchRetain   = 30 * 24 * time.Hour
	maxPageSize          = 100
	slackWebhookPrefix   = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	API       rawAPIConfig      `yaml:"api"`
	Sources   map[string]string `yaml:"sources"`
	Search    rawSearchConfig   `yaml:"search"`
	Suggest   SuggestConfig     `yaml:"suggest"`
	Insights  InsightsConfig    `yaml:"insights"`
	Fetch     FetchConfig       `yaml:"fetch"`
	RateLimit rawRateLimit      `yaml:"rate_limit"`
	Store     StoreConfig       `yaml:"store"`
	Watch     rawWatchConfig    `yaml:"watch"`
}

type rawAPIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

type rawSearchConfig struct {
	PageSize          int    `yaml:"page_size"`
	Debounce          string `yaml:"debounce"`
	FallbackSearchURL string `yaml:"fallback_search_url"`
}

type rawRateLimit struct {
	MinDelay string `yaml:"min_delay"`
}

type rawWatchConfig struct {
	Interval     string             `yaml:"interval"`
	Schedule     string             `yaml:"schedule"`
	MaxAge       string             `yaml:"max_age"`
	Pages        int                `yaml:"pages"`
	Pause        string             `yaml:"pause"`
	Retain       string             `yaml:"retain"`
	MetricsAddr  string             `yaml:"metrics_addr"`
	Notification NotificationConfig `yaml:"notification"`
	Searches     []WatchSearch      `yaml:"searches"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:   strings.TrimRight(raw.API.BaseURL, "/"),
			Token:     raw.API.Token,
			UserAgent: orDefault(raw.API.UserAgent, defaultUserAgent),
		},
		Sources: make(map[string]time.Duration),
		Search: SearchConfig{
			PageSize:          raw.Search.PageSize,
			FallbackSearchURL: orDefault(raw.Search.FallbackSearchURL, defaultFallbackURL),
		},
		Suggest:  raw.Suggest,
		Insights: raw.Insights,
		Fetch:    raw.Fetch,
		Store:    StoreConfig{Path: orDefault(raw.Store.Path, defaultStorePath)},
		Watch: WatchConfig{
			Schedule:     strings.TrimSpace(raw.Watch.Schedule),
			MetricsAddr:  raw.Watch.MetricsAddr,
			Pages:        raw.Watch.Pages,
			Notification: raw.Watch.Notification,
			Searches:     raw.Watch.Searches,
		},
	}

	durations := []struct {
		key  string
		raw  string
		def  time.Duration
		dest *time.Duration
	}{
		{"api.timeout", raw.API.Timeout, defaultTimeout, &cfg.API.Timeout},
		{"search.debounce", raw.Search.Debounce, defaultDebounce, &cfg.Search.Debounce},
		{"rate_limit.min_delay", raw.RateLimit.MinDelay, 0, &cfg.RateLimit.MinDelay},
		{"watch.interval", raw.Watch.Interval, defaultWatchInterval, &cfg.Watch.Interval},
		{"watch.max_age", raw.Watch.MaxAge, 0, &cfg.Watch.MaxAge},
		{"watch.pause", raw.Watch.Pause, defaultWatchPause, &cfg.Watch.Pause},
		{"watch.retain", raw.Watch.Retain, defaultWatchRetain, &cfg.Watch.Retain},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.raw, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	for name, rawTimeout := range raw.Sources {
		d, err := time.ParseDuration(rawTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse sources[%q]: %w", name, err)
		}
		cfg.Sources[name] = d
	}

	if cfg.Search.PageSize == 0 {
		cfg.Search.PageSize = defaultPageSize
	}
	if cfg.Suggest.Limit == 0 {
		cfg.Suggest.Limit = defaultSuggestLimit
	}
	if cfg.Insights.Limit == 0 {
		cfg.Insights.Limit = defaultInsightsLimit
	}
	if cfg.Watch.Pages == 0 {
		cfg.Watch.Pages = 1
	}
	if cfg.Watch.Notification.Type == "" {
		cfg.Watch.Notification.Type = "log"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", cfg.API.Timeout)
	}

	known := append([]string{model.SourceJobs}, model.InsightSources...)
	for name, d := range cfg.Sources {
		if !slices.Contains(known, name) {
			return fmt.Errorf("sources: unknown source %q (known: %s)", name, strings.Join(known, ", "))
		}
		if d <= 0 {
			return fmt.Errorf("sources[%q] must be positive, got %v", name, d)
		}
	}

	if cfg.Search.PageSize < 1 || cfg.Search.PageSize > maxPageSize {
		return fmt.Errorf("search.page_size must be between 1 and %d, got %d", maxPageSize, cfg.Search.PageSize)
	}
	if cfg.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative, got %v", cfg.Search.Debounce)
	}
	if cfg.Suggest.Limit < 0 {
		return fmt.Errorf("suggest.limit must not be negative, got %d", cfg.Suggest.Limit)
	}
	if cfg.Fetch.MaxConcurrency < 0 {
		return fmt.Errorf("fetch.max_concurrency must not be negative, got %d", cfg.Fetch.MaxConcurrency)
	}
	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay)
	}

	return validateWatch(cfg.Watch)
}

func validateWatch(w WatchConfig) error {
	if w.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %v", w.Interval)
	}
	if w.MaxAge < 0 {
		return fmt.Errorf("watch.max_age must not be negative, got %v", w.MaxAge)
	}
	if w.Pages < 1 {
		return fmt.Errorf("watch.pages must be at least 1, got %d", w.Pages)
	}
	if _, err := w.CronSchedule(); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}

	names := make(map[string]bool, len(w.Searches))
	for i, s := range w.Searches {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("watch.searches[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("watch.searches: duplicate name %q", s.Name)
		}
		names[s.Name] = true
	}

	switch w.Notification.Type {
	case "log":
	case "slack":
		if w.Notification.WebhookURL == "" {
			return fmt.Errorf("watch.notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(w.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("watch.notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("watch.notification.type must be \"log\" or \"slack\", got %q", w.Notification.Type)
	}

	return nil
}

// SourceTimeout returns the configured timeout for a source, falling back to API.Timeout.
func (c *Config) SourceTimeout(name string) time.Duration {
	if d, ok := c.Sources[name]; ok {
		return d
	}
	return c.API.Timeout
}
