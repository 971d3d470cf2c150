package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/ansuz/internal/generate"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// App holds the wired services shared by the server, the MCP server and
// the one-shot CLI commands.
type App struct {
	Config    *Config
	Logger    *slog.Logger
	DB        *store.DB
	Files     *storage.FS
	Broker    *sse.Broker
	Notes     *noteservice.Service
	Proposals *proposal.Service
	Sync      *reconcile.Service
	Backend   string
}

// Open builds the App from options. Callers must Close it.
func Open(opts ...Option) (*App, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	for _, dir := range []string{filepath.Dir(cfg.SQLite.Path), cfg.Backup.Dir, cfg.Sources.Dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	files, err := storage.NewFS(cfg.Sources.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	genOpts, err := cfg.Proposal.GeneratorOptions()
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	proposer, err := generate.New(genOpts, logger)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	var notifier proposal.Notifier = broker
	if app.notifier != nil {
		notifier = app.notifier
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Files:   files,
		Broker:  broker,
		Backend: genOpts.Backend.String(),
	}
	a.Notes = noteservice.NewService(db, files, broker, noteservice.Options{
		MaxSourceChars: cfg.Proposal.MaxSourceChars,
		Backend:        a.Backend,
		Logger:         logger,
	})
	a.Proposals = proposal.NewService(db, proposer, notifier, cfg.Proposal.ServiceConfig(), logger)
	a.Sync = reconcile.NewService(db, db, cfg.Mochi.ClientFactory(logger), reconcile.Config{
		DefaultAPIKey:  cfg.Mochi.APIKey,
		DefaultDeckID:  cfg.Mochi.DeckID,
		PageSize:       cfg.Mochi.PageSize,
		MaxSourceChars: cfg.Proposal.MaxSourceChars,
		BackupDir:      cfg.Backup.Dir,
	}, logger)

	logger.Info("Configuration loaded",
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("sources_dir", cfg.Sources.Dir),
		slog.String("backend", a.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return a, nil
}

// Close stops the broker and closes the database.
func (a *App) Close() error {
	a.Broker.Close()
	return a.DB.Close()
}
