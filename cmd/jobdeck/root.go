package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/api"
	"github.com/amishk599/jobdeck/internal/config"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/notifier"
	"github.com/amishk599/jobdeck/internal/ratelimit"
	"github.com/amishk599/jobdeck/internal/service"
	"github.com/amishk599/jobdeck/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "jobdeck",
	Short:        "Search, track and watch job listings from the terminal",
	Long:         "jobdeck searches a job backend, normalizes its listings, shows market insights and watches saved searches for new jobs.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBDECK_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBDECK_CONFIG env var > "./config.yaml"
// A .env file in the working directory is loaded first so ${VARS} in the
// config can come from it; variables already set win.
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()

	if path == "" {
		if env := os.Getenv("JOBDECK_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setupLogger logs to stderr so command output on stdout stays clean.
func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// app is what every command needs: config, logger and the service.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *service.Service
	store  *store.SQLiteStore // nil when opened without persistence
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// newApp loads the config and wires the service. With persist false no
// database is opened and nothing is recorded locally.
func newApp(persist bool) (*app, error) {
	return newAppWithLogger(persist, setupLogger(debug))
}

func newAppWithLogger(persist bool, logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Debug("config loaded",
		"base_url", cfg.API.BaseURL,
		"timeout", cfg.API.Timeout.String(),
		"page_size", cfg.Search.PageSize,
		"store", cfg.Store.Path,
	)

	a := &app{cfg: cfg, logger: logger}

	var saved model.SavedStore = store.NewNopStore()
	if persist {
		sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = sqlStore
		saved = sqlStore
	}

	svc, err := buildService(cfg, saved, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func buildService(cfg *config.Config, saved model.SavedStore, logger *slog.Logger) (*service.Service, error) {
	// Per-request deadlines come from the fetcher.
	httpClient := &http.Client{}

	fetcher := fetch.New(fetch.Options{
		Client:         httpClient,
		UserAgent:      cfg.API.UserAgent,
		Token:          cfg.API.Token,
		DefaultTimeout: cfg.API.Timeout,
		MaxConcurrency: cfg.Fetch.MaxConcurrency,
		Limiter:        ratelimit.NewHostLimiter(cfg.RateLimit.MinDelay),
		Logger:         logger,
	})

	client, err := api.New(cfg.API.BaseURL, fetcher, api.Options{
		PageSize:       cfg.Search.PageSize,
		SourceTimeouts: sourceTimeouts(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	return service.New(client, saved, service.Options{
		FallbackSearchURL: cfg.Search.FallbackSearchURL,
		SuggestLimit:      cfg.Suggest.Limit,
	}, logger), nil
}

// sourceTimeouts resolves a deadline for every known source so the client
// never has to fall back on its own.
func sourceTimeouts(cfg *config.Config) map[string]time.Duration {
	names := append([]string{model.SourceJobs}, model.InsightSources...)
	out := make(map[string]time.Duration, len(names))
	for _, name := range names {
		out[name] = cfg.SourceTimeout(name)
	}
	return out
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Watch.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		httpClient := &http.Client{Timeout: 30 * time.Second}
		return notifier.NewSlackNotifier(cfg.Watch.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}
