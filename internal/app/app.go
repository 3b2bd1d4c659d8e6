// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/evidence"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/localcore"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
	"github.com/tildaslashalef/incidentdeck/internal/safety"
	"github.com/tildaslashalef/incidentdeck/internal/session"
)

// App represents the application instance with its dependencies
type App struct {
	Config       *config.Config
	Client       *gateway.Client
	Sessions     *session.Store
	Views        *session.ViewStore
	Orchestrator *session.Orchestrator
	Evidence     *evidence.Service
	Transfers    *safety.Transfer

	// Core is non-nil only in local mode, where the command boundary is
	// served in-process instead of over HTTP.
	Core *localcore.Core

	picker *switchPicker
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}
	logger := loggy.GetGlobalLogger()

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
		"mode", transportMode(cfg),
	)

	transport, core, err := initTransport(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := gateway.NewClient(gateway.New(transport, logger))

	sessions := session.NewStore()
	views := session.NewViewStore()
	preflight := safety.NewPreflight(client, logger)
	picker := &switchPicker{}

	app := &App{
		Config:       cfg,
		Client:       client,
		Sessions:     sessions,
		Views:        views,
		Orchestrator: session.NewOrchestrator(client, sessions, views, preflight, picker, cfg.Workspace.DefaultPath, logger),
		Evidence:     evidence.NewService(client, logger),
		Transfers:    safety.NewTransfer(client, logger),
		Core:         core,
		picker:       picker,
	}

	// Non-fatal: a missing or unreadable session file just starts empty.
	sessions.Load(context.Background(), client, logger)

	loggy.Info("Application initialized successfully")
	return app, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initTransport chooses the command transport: the in-process local core
// by default, or HTTP when a remote core endpoint is configured.
func initTransport(cfg *config.Config, logger *loggy.Logger) (gateway.Transport, *localcore.Core, error) {
	if cfg.Gateway.Endpoint == "" {
		core, err := localcore.New(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local core: %w", err)
		}
		return core, core, nil
	}

	transport := gateway.NewHTTPTransport(cfg.Gateway, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ReadyTimeout)
	defer cancel()
	if err := transport.WaitReady(ctx, cfg.Gateway.ReadyTimeout); err != nil {
		return nil, nil, fmt.Errorf("core service not ready at %s: %w", cfg.Gateway.Endpoint, err)
	}
	return transport, nil, nil
}

func transportMode(cfg *config.Config) string {
	if cfg.Gateway.Endpoint == "" {
		return "local"
	}
	return "remote"
}

// SetPicker installs the interactive path picker used when a workspace
// switch is requested without an explicit path. Without one, such
// switches are abandoned.
func (app *App) SetPicker(p session.Picker) {
	app.picker.set(p)
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if app.Core != nil {
		if err := app.Core.Close(); err != nil {
			loggy.Error("Error closing local core", "error", err)
		}
	}
	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}

// switchPicker is a settable indirection over the session picker, so the
// orchestrator can be wired before any UI exists.
type switchPicker struct {
	mu    sync.Mutex
	inner session.Picker
}

func (p *switchPicker) set(inner session.Picker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inner = inner
}

func (p *switchPicker) ChoosePath(mode session.Mode) (string, bool, error) {
	p.mu.Lock()
	inner := p.inner
	p.mu.Unlock()

	if inner == nil {
		return "", false, nil
	}
	return inner.ChoosePath(mode)
}
