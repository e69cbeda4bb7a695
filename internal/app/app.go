package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dot5_panel/internal/engine"
	"dot5_panel/internal/panel"
	"dot5_panel/internal/panel/render"
	"dot5_panel/internal/service/web"
	"dot5_panel/internal/shared/logger"
	"dot5_panel/internal/shared/types"
)

// App 组装引擎客户端、面板控制器、WebSocket Hub 与 Web 服务器。
type App struct {
	cfg        *types.Config
	controller *panel.Controller
	hub        *web.Hub
	server     *http.Server

	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

// New builds the application from cfg.
func New(cfg *types.Config) *App {
	client := engine.NewClient(cfg.EngineConf.BaseURL, EngineTimeout(cfg))
	controller := panel.NewController(client, ControllerOptions(cfg))

	hub := web.NewHub()
	controller.SetNotifier(hub)

	return &App{
		cfg:        cfg,
		controller: controller,
		hub:        hub,
	}
}

// EngineTimeout converts the configured request timeout; 0 means none.
func EngineTimeout(cfg *types.Config) time.Duration {
	if cfg.EngineConf.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(cfg.EngineConf.RequestTimeout * float64(time.Second))
}

// ControllerOptions maps the [panel] section onto controller options.
func ControllerOptions(cfg *types.Config) panel.Options {
	return panel.Options{
		Render:         render.Options{ErrorMaxLen: cfg.PanelConf.ErrorMaxLen},
		ExportFilename: cfg.PanelConf.ExportFilename,
		DefaultForm: panel.CheckForm{
			Timeout:    cfg.PanelConf.DefaultTimeout,
			MaxWorkers: cfg.PanelConf.DefaultMaxWorkers,
			TryPorts:   cfg.PanelConf.DefaultTryPorts,
		},
	}
}

// Controller exposes the panel controller.
func (a *App) Controller() *panel.Controller {
	return a.controller
}

// Run starts the hub and the web panel and blocks until a termination signal.
func (a *App) Run() {
	logger.Info().
		Str("engine", a.cfg.EngineConf.BaseURL).
		Int("web_port", a.cfg.PanelConf.WebPort).
		Bool("auth", a.cfg.PanelConf.WebUser != "" && a.cfg.PanelConf.WebPassword != "").
		Msg("Starting DOT 5 panel...")

	go a.hub.Run()
	a.server = web.StartServer(&a.waitGroup, a.cfg, a.controller, a.hub)
	if a.server == nil {
		logger.Warn().Msg("Web UI is not running, nothing to serve.")
		a.hub.Stop()
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down...")

	a.Stop()
	a.waitGroup.Wait()
}

// Stop gracefully shuts down the server.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.server.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Web server shutdown did not complete cleanly.")
			}
		}
		a.hub.Stop()
	})
}
