// Package app wires settings, storage and the HTTP server into the
// keyflick service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/plugin"
	"github.com/ayusman/keyflick/internal/server"
	"github.com/ayusman/keyflick/internal/store"
)

// ShutdownTimeout bounds how long in-flight requests may take once Run's
// context is cancelled.
const ShutdownTimeout = 5 * time.Second

// Config holds configuration options for the application.
type Config struct {
	// ConfigPath is the TOML settings file. A missing file means defaults.
	ConfigPath string
	// DBPath is the trace database. Empty disables persistence.
	DBPath string
	// StaticDir, if set, is served at the root.
	StaticDir string
	// PluginDir holds the plugins that bindings can run. Empty disables
	// plugins.
	PluginDir string
}

// App owns the long-lived pieces of a running service.
type App struct {
	config   Config
	settings *config.Holder
	store    *store.Store
	plugins  *plugin.Manager
	server   *server.Server
}

// New loads the settings, opens the store and builds the server. Settings
// persisted through the API take precedence over the config file.
func New(cfg Config) (*App, error) {
	a := &App{config: cfg}

	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		a.store = st
	}

	settings, err := a.loadSettings()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.settings = config.NewHolder(settings)

	if cfg.PluginDir != "" {
		a.plugins = plugin.NewManager(cfg.PluginDir)
		if err := a.plugins.Discover(); err != nil {
			slog.Warn("failed to discover plugins", "dir", cfg.PluginDir, "error", err)
		}
	}

	a.server = server.New(server.Config{
		Settings:  a.settings,
		Store:     a.store,
		Baseline:  a.baseline,
		StaticDir: cfg.StaticDir,
		Plugins:   a.plugins,
	})
	return a, nil
}

// Settings returns the live settings.
func (a *App) Settings() *config.Holder {
	return a.settings
}

// Store returns the trace store, or nil when persistence is disabled.
func (a *App) Store() *store.Store {
	return a.store
}

// Plugins returns the plugin manager, or nil when plugins are disabled.
func (a *App) Plugins() *plugin.Manager {
	return a.plugins
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Reload re-reads the config file and any persisted override, and
// rescans the plugin directory. Invalid settings leave the current
// snapshot in place.
func (a *App) Reload() error {
	if a.plugins != nil {
		if err := a.plugins.Discover(); err != nil {
			slog.Warn("failed to rescan plugins", "error", err)
		}
	}

	settings, err := a.loadSettings()
	if err != nil {
		return err
	}
	if err := a.settings.Store(settings); err != nil {
		return err
	}
	a.server.Metrics().SettingsChanged("reload")
	slog.Info("settings reloaded", "path", a.config.ConfigPath)
	return nil
}

// Run listens on addr and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, l)
}

// Serve serves on l until ctx is cancelled, then shuts the server down.
// SIGHUP triggers Reload.
func (a *App) Serve(ctx context.Context, l net.Listener) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(l)
	}()
	slog.Info("server started", "addr", l.Addr().String())

	for {
		select {
		case <-hup:
			if err := a.Reload(); err != nil {
				slog.Error("failed to reload settings", "error", err)
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()

			slog.Info("shutting down")
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		}
	}
}

// Close waits for queued plugin runs and releases the store.
func (a *App) Close() error {
	var err error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		err = a.server.Close(ctx)
		cancel()
	}
	if a.store != nil {
		err = errors.Join(err, a.store.Close())
	}
	return err
}

func (a *App) baseline() (config.Settings, error) {
	return config.Load(a.config.ConfigPath)
}

func (a *App) loadSettings() (config.Settings, error) {
	settings, err := a.baseline()
	if err != nil {
		return config.Settings{}, err
	}
	if a.store == nil {
		return settings, nil
	}

	persisted := settings
	err = a.store.Settings().GetJSON(config.StoreKey, &persisted)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return settings, nil
	case err != nil:
		slog.Warn("ignoring persisted settings", "error", err)
		return settings, nil
	}

	if err := persisted.Validate(); err != nil {
		slog.Warn("ignoring invalid persisted settings", "error", err)
		return settings, nil
	}
	return persisted, nil
}
