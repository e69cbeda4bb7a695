package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"

	"dot5_panel/internal/shared/logger"
	"dot5_panel/internal/shared/types"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed templates
var templateFiles embed.FS

type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf("[WebServer] Connection accepted from: %s", conn.RemoteAddr())
	}
	return conn, err
}

// basicAuthMiddleware 在配置了 web_user 和 web_password 时强制 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewMux builds the panel's routes.
func NewMux(cfg *types.Config, controller PanelController, hub *Hub) (http.Handler, error) {
	handler := NewHandler(controller)
	mux := http.NewServeMux()

	webUser := cfg.PanelConf.WebUser
	webPassword := cfg.PanelConf.WebPassword

	mux.Handle("/", basicAuthMiddleware(http.HandlerFunc(handler.HandleIndex), webUser, webPassword))
	mux.Handle("/check", basicAuthMiddleware(http.HandlerFunc(handler.HandleCheck), webUser, webPassword))
	mux.Handle("/export", basicAuthMiddleware(http.HandlerFunc(handler.HandleExport), webUser, webPassword))
	mux.Handle("/api/state", basicAuthMiddleware(http.HandlerFunc(handler.HandleState), webUser, webPassword))

	// 状态推送包含运行 ID，同样需要认证
	mux.Handle("/ws", basicAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}), webUser, webPassword))

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub filesystem for static assets: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	return mux, nil
}

// StartServer starts the web panel in the background and returns the
// server so the caller can shut it down. It returns nil when the web UI is
// disabled or could not bind.
func StartServer(wg *sync.WaitGroup, cfg *types.Config, controller PanelController, hub *Hub) *http.Server {
	l := logger.WithComponent("Web")
	if cfg.PanelConf.WebPort <= 0 {
		l.Info().Msg("Web UI is disabled (web_port is 0 or not set).")
		return nil
	}

	mux, err := NewMux(cfg, controller, hub)
	if err != nil {
		l.Error().Err(err).Msg("Failed to build web routes.")
		return nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.PanelConf.WebPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		l.Error().Err(err).Str("addr", addr).Msg("FAILED to start Web UI.")
		return nil
	}

	l.Info().Msgf("SUCCESS: Web UI is listening on http://%s", addr)

	srv := &http.Server{Handler: mux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(loggingListener{Listener: listener}); err != nil && err != http.ErrServerClosed {
			l.Error().Err(err).Msg("Web server error.")
		}
		l.Info().Msg("Web server stopped.")
	}()
	return srv
}
