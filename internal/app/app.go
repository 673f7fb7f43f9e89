// Package app wires configuration, backend, session and surfaces into a
// running playground.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/thiagokokada/gitgud/internal/config"
	"github.com/thiagokokada/gitgud/internal/git"
	"github.com/thiagokokada/gitgud/internal/layout"
	"github.com/thiagokokada/gitgud/internal/server"
	"github.com/thiagokokada/gitgud/internal/session"
	"github.com/thiagokokada/gitgud/internal/terminal"
)

type App struct {
	cfg     config.Config
	backend git.Backend
	session *session.Session
	server  *server.Server
	layout  layout.Options
	watcher *server.Watcher
}

// SetupLogging installs the process-wide slog handler.
func SetupLogging(w io.Writer, verbose bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "gitgud",
		Level:           level,
		ReportTimestamp: true,
	})
	slog.SetDefault(slog.New(logger))
}

// Build opens the repository, seeds it when empty and creates the session
// and HTTP server. It does not start anything.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	created, err := git.Seed(ctx, backend)
	if err != nil {
		return nil, err
	}
	if created {
		slog.Info("initialized training repository", slog.String("path", backend.RepoPath()))
	}

	pref := layout.ThemePreferenceFromString(cfg.Theme)
	a := &App{
		cfg:     cfg,
		backend: backend,
		layout: layout.Options{
			LaneSpacing:   cfg.Layout.LaneSpacing,
			CommitSpacing: cfg.Layout.CommitSpacing,
			Palette:       layout.PaletteForPreference(pref),
		},
	}
	slog.Debug("resolved palette", slog.String("theme", pref.String()), slog.String("palette", a.layout.Palette.Name))
	a.session = session.New(backend, session.Options{DefaultBranch: cfg.DefaultBranch})
	if err := a.session.RefreshStatus(ctx); err != nil {
		slog.Warn("initial status", slog.Any("error", err))
	}
	a.server = server.New(a.session, server.Options{Addr: cfg.Addr, Layout: a.layout})
	return a, nil
}

// OpenBackend returns the backend selected by cfg.
func OpenBackend(cfg config.Config) (git.Backend, error) {
	opts := cfg.GitOptions()
	switch cfg.Backend {
	case config.BackendMemory:
		return git.NewMemory(opts), nil
	case config.BackendCLI:
		return git.OpenCLI(cfg.Repo, opts)
	case config.BackendNative, "":
		if err := os.MkdirAll(cfg.Repo, 0o755); err != nil {
			return nil, fmt.Errorf("create repository directory: %w", err)
		}
		return git.OpenNative(cfg.Repo, opts)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (a *App) Session() *session.Session { return a.session }
func (a *App) Server() *server.Server    { return a.server }

// Run builds the playground from cfg and serves it until ctx is canceled or,
// when a terminal is attached, until the prompt exits.
func Run(ctx context.Context, cfg config.Config) error {
	a, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Start(ctx)
}

func (a *App) Start(ctx context.Context) error {
	if a.cfg.Watch {
		a.startWatcher(ctx)
	}
	termOpts := terminal.Options{Layout: a.layout}
	switch a.cfg.Mode {
	case config.ModeServe:
		return a.server.ListenAndServe(ctx)
	case config.ModeTerminal:
		return terminal.Run(ctx, a.session, termOpts)
	default:
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		errCh := make(chan error, 1)
		go func() { errCh <- a.server.ListenAndServe(ctx) }()
		termErr := terminal.Run(ctx, a.session, termOpts)
		cancel()
		return errors.Join(termErr, <-errCh)
	}
}

func (a *App) startWatcher(ctx context.Context) {
	path := a.backend.RepoPath()
	if path == "" {
		slog.Debug("in-memory repository, not watching")
		return
	}
	w, err := server.Watch(ctx, path, server.DefaultWatchDelay, a.session.RefreshStatus)
	if err != nil {
		slog.Error("auto refresh disabled", slog.Any("error", err))
		return
	}
	a.watcher = w
}

// Close stops the watcher and server and waits for pending refreshes.
func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
		a.watcher = nil
	}
	a.server.Close()
	a.session.Wait()
}
