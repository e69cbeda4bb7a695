package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dot5_panel/internal/panel/export"
	"dot5_panel/internal/panel/input"
	"dot5_panel/internal/panel/render"
	"dot5_panel/internal/panel/request"
	"dot5_panel/internal/panel/session"
	"dot5_panel/internal/shared/logger"
	"dot5_panel/internal/shared/types"
)

// User-facing texts.
const (
	MsgChecking          = "Checking…"
	MsgEngineUnreachable = "Error contacting server. Is DOT 5 running?"
	NoticeEmptyInput     = "Please paste IPs (IP or IP:PORT or user:pass@IP:PORT)"
	NoticeExportFailed   = "Error exporting CSV"
	NoticeCheckBusy      = "A check is already running, please wait for it to finish."
)

var (
	ErrEmptyInput        = errors.New("no candidates to check")
	ErrCheckInProgress   = errors.New("a check is already in progress")
	ErrEngineUnreachable = errors.New("could not reach the checking service")
	ErrExportFailed      = errors.New("csv export failed")
)

// Engine 是控制器依赖的远端检测引擎。
type Engine interface {
	CheckBulk(ctx context.Context, req types.CheckRequest) ([]types.ResultRecord, error)
	export.CSVExporter
}

// Notifier is told about every completed check.
type Notifier interface {
	ResultsUpdated(state State)
}

// CheckForm 是检测表单的原始值。
type CheckForm struct {
	IPs        string
	Timeout    string
	MaxWorkers string
	TryPorts   string
}

// State is a snapshot of everything the panel shows.
type State struct {
	Status        string
	View          *render.View // nil before the first check, while checking and after a failed check
	Busy          bool
	ExportEnabled bool
	Form          CheckForm
	RunID         string
}

// Options configure a Controller.
type Options struct {
	Render         render.Options
	ExportFilename string
	DefaultForm    CheckForm
}

// Controller 是面板的顶层控制器，独占会话状态与当前视图。
// 同一时刻只允许一个检测在途；Store 的代次令牌保证旧响应不会覆盖新结果。
type Controller struct {
	engine   Engine
	store    *session.Store
	renderer *render.Renderer
	exporter *export.Exporter
	notifier Notifier

	mu     sync.Mutex
	busy   bool
	status string
	view   *render.View
	form   CheckForm
}

// NewController wires the pipeline around engine.
func NewController(engine Engine, opts Options) *Controller {
	store := session.New()
	return &Controller{
		engine:   engine,
		store:    store,
		renderer: render.New(opts.Render),
		exporter: export.New(engine, store, opts.ExportFilename),
		form:     opts.DefaultForm,
	}
}

// SetNotifier registers the listener for completed checks.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Check runs one batch check end to end.
func (c *Controller) Check(ctx context.Context, form CheckForm) (*render.View, error) {
	l := logger.WithComponent("Panel/Controller")

	candidates := input.ParseCandidates(form.IPs)
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrCheckInProgress
	}
	c.busy = true
	c.status = MsgChecking
	c.view = nil
	c.form = form
	c.mu.Unlock()

	tok := c.store.Begin()
	req := request.Build(candidates, request.Fields{
		Timeout:    form.Timeout,
		MaxWorkers: form.MaxWorkers,
		TryPorts:   form.TryPorts,
	})
	l.Info().
		Str("run_id", tok.RunID).
		Int("candidates", len(req.IPs)).
		Float64("timeout", req.Timeout).
		Int("max_workers", req.MaxWorkers).
		Ints("try_ports", req.TryPorts).
		Msg("Submitting batch check.")

	records, err := c.engine.CheckBulk(ctx, req)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.status = MsgEngineUnreachable
		c.mu.Unlock()
		l.Error().Err(err).Str("run_id", tok.RunID).Msg("Batch check failed.")
		c.notify()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnreachable, err)
	}

	view := c.renderer.Render(records)
	if c.store.Commit(tok, records) {
		c.view = view
		c.status = view.Summary
	} else {
		l.Warn().Str("run_id", tok.RunID).Msg("Discarding results of a superseded check.")
	}
	c.mu.Unlock()

	l.Info().
		Str("run_id", tok.RunID).
		Int("total", view.Total).
		Int("real", view.Real).
		Int("fake", view.Fake).
		Msg("Batch check finished.")
	c.notify()
	return view, nil
}

// Export asks the engine for a CSV of the current session. A nil artifact
// with a nil error means there was nothing to export.
func (c *Controller) Export(ctx context.Context) (*export.Artifact, error) {
	art, err := c.exporter.Export(ctx)
	if err != nil {
		l := logger.WithComponent("Panel/Controller")
		l.Error().Err(err).Msg("CSV export failed.")
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return art, nil
}

// Snapshot returns the current panel state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:        c.status,
		View:          c.view,
		Busy:          c.busy,
		ExportEnabled: c.store.Len() > 0,
		Form:          c.form,
		RunID:         c.store.RunID(),
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	n := c.notifier
	c.mu.Unlock()
	if n != nil {
		n.ResultsUpdated(c.Snapshot())
	}
}
