package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"dot5_panel/internal/panel"
	"dot5_panel/internal/panel/export"
	"dot5_panel/internal/panel/render"
	"dot5_panel/internal/shared/logger"
)

// PanelController defines what the web handler needs from the panel.
// This decouples the web package from how the controller is built.
type PanelController interface {
	Check(ctx context.Context, form panel.CheckForm) (*render.View, error)
	Export(ctx context.Context) (*export.Artifact, error)
	Snapshot() panel.State
}

type pageData struct {
	State  panel.State
	Notice string
	Table  template.HTML
}

type Handler struct {
	controller PanelController
	page       *template.Template
}

func NewHandler(controller PanelController) *Handler {
	return &Handler{
		controller: controller,
		page:       template.Must(template.ParseFS(templateFiles, "templates/index.html")),
	}
}

// HandleIndex 处理 GET / 请求，渲染面板。
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.renderPage(w, http.StatusOK, "")
}

// HandleCheck 处理 POST /check 请求。
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := panel.CheckForm{
		IPs:        r.PostFormValue("ips"),
		Timeout:    r.PostFormValue("timeout"),
		MaxWorkers: r.PostFormValue("max_workers"),
		TryPorts:   r.PostFormValue("try_ports"),
	}

	_, err := h.controller.Check(r.Context(), form)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, panel.ErrEmptyInput):
		h.renderPage(w, http.StatusBadRequest, panel.NoticeEmptyInput)
	case errors.Is(err, panel.ErrCheckInProgress):
		h.renderPage(w, http.StatusConflict, panel.NoticeCheckBusy)
	default:
		// 详细错误只写日志，页面上只显示状态行
		h.renderPage(w, http.StatusBadGateway, "")
	}
}

// HandleExport 处理 POST /export 请求，返回 CSV 附件。
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	art, err := h.controller.Export(r.Context())
	if err != nil {
		h.renderPage(w, http.StatusBadGateway, panel.NoticeExportFailed)
		return
	}
	if art == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	art.ServeHTTP(w, r)
}

// HandleState 处理 GET /api/state 请求
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusFromState(h.controller.Snapshot()))
}

func (h *Handler) renderPage(w http.ResponseWriter, code int, notice string) {
	state := h.controller.Snapshot()
	data := pageData{State: state, Notice: notice}
	if state.View != nil {
		// 视图中的所有字段在 render 包中已经转义
		data.Table = template.HTML(state.View.HTML())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := h.page.Execute(w, data); err != nil {
		l := logger.WithComponent("Web")
		l.Error().Err(err).Msg("Failed to render panel page.")
	}
}
