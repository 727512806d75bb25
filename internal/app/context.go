package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/config"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/db"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/advisor"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/migrate"
)

// Options select the workspace and optional overrides used to assemble an App.
type Options struct {
	Workspace   string
	ConfigPath  string
	DatabaseURL string
	Logger      *slog.Logger
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// App bundles the open store, loaded config and a ready engine.
type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Logger *slog.Logger
}

// Open loads config, opens and migrates the store and wires the engine.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		if logger, err = NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
			return nil, err
		}
	}
	url := opts.DatabaseURL
	if url == "" {
		url = cfg.Database.URL
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, URL: url})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	adv, err := NewAdvisor(cfg, getenv)
	if err != nil {
		conn.Close()
		return nil, err
	}
	eng := engine.New(conn, cfg)
	eng.Advisor = adv
	eng.Logger = logger
	logger.Debug("app ready", "workspace", opts.Workspace, "advisor", cfg.Advisor.Provider)
	return &App{DB: conn, Config: cfg, Engine: eng, Logger: logger}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func loadConfig(opts Options) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.FromFile(opts.ConfigPath)
	}
	return config.Load(opts.Workspace)
}

// NewAdvisor builds the suggestion generator selected by config.
func NewAdvisor(cfg *config.Config, getenv func(string) string) (advisor.Advisor, error) {
	switch cfg.Advisor.Provider {
	case config.ProviderOpenAI:
		key := strings.TrimSpace(getenv(cfg.Advisor.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("advisor provider openai requires %s to be set", cfg.Advisor.APIKeyEnv)
		}
		return advisor.NewOpenAI(advisor.OpenAIConfig{
			APIKey:  key,
			BaseURL: cfg.Advisor.BaseURL,
			Model:   cfg.Advisor.Model,
		}), nil
	case config.ProviderNone, "":
		return advisor.Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown advisor provider %q", cfg.Advisor.Provider)
}

// NewLogger returns a slog logger writing text or json at the given level.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("log format must be text or json (got %q)", format)
}
