package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"dot5_panel/internal/engine"
	"dot5_panel/internal/panel"
	"dot5_panel/internal/shared/config"
	"dot5_panel/internal/shared/types"
)

type fakeEngineServer struct {
	*httptest.Server
	checkCalls  atomic.Int32
	exportCalls atomic.Int32
	failCheck   atomic.Bool
}

func newFakeEngineServer(t *testing.T) *fakeEngineServer {
	t.Helper()
	f := &fakeEngineServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-bulk", func(w http.ResponseWriter, r *http.Request) {
		f.checkCalls.Add(1)
		if f.failCheck.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"input":"1.1.1.1","status":"real","http_status":200,"elapsed_ms":42},
			{"input":"2.2.2.2:8080","status":"fake","error":"<b>refused</b>","fake_source_url":"https://www.proxyscrape.com/free"}
		]`)
	})
	mux.HandleFunc("/api/export-csv", func(w http.ResponseWriter, r *http.Request) {
		f.exportCalls.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, "input,status\n1.1.1.1,real\n2.2.2.2:8080,fake\n")
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestPanel(t *testing.T, cfg *types.Config) (http.Handler, *fakeEngineServer) {
	t.Helper()
	eng := newFakeEngineServer(t)
	ctrl := panel.NewController(engine.NewClient(eng.URL, 0), panel.Options{
		DefaultForm: panel.CheckForm{Timeout: "6", MaxWorkers: "20", TryPorts: config.DefaultTryPorts},
	})
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	ctrl.SetNotifier(hub)

	mux, err := NewMux(cfg, ctrl, hub)
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	return mux, eng
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func page(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return doc
}

func TestIndex_InitialState(t *testing.T) {
	h, _ := newTestPanel(t, config.Default())
	rec := do(h, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := page(t, rec)
	if _, disabled := doc.Find("#exportBtn").Attr("disabled"); !disabled {
		t.Error("export button should be disabled before the first check")
	}
	if v, _ := doc.Find("#ports").Attr("value"); v != config.DefaultTryPorts {
		t.Errorf("ports prefill = %q", v)
	}
	if doc.Find("#results .item").Length() != 0 {
		t.Error("results table should be empty")
	}
}

func TestCheck_EmptyInputShowsNotice(t *testing.T) {
	h, eng := newTestPanel(t, config.Default())
	rec := do(h, http.MethodPost, "/check", url.Values{"ips": {"  \n "}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := page(t, rec).Find("#notice").Text(); got != panel.NoticeEmptyInput {
		t.Errorf("notice = %q", got)
	}
	if eng.checkCalls.Load() != 0 {
		t.Error("engine was called for empty input")
	}
}

func TestCheck_RendersResultsAndEnablesExport(t *testing.T) {
	h, eng := newTestPanel(t, config.Default())
	rec := do(h, http.MethodPost, "/check", url.Values{"ips": {"1.1.1.1\n2.2.2.2:8080"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if eng.checkCalls.Load() != 1 {
		t.Errorf("engine calls = %d", eng.checkCalls.Load())
	}

	rec = do(h, http.MethodGet, "/", nil)
	raw := rec.Body.String()
	if strings.Contains(raw, "<b>refused</b>") {
		t.Error("engine error text rendered as raw markup")
	}
	doc := page(t, rec)
	if got := doc.Find("#stats").Text(); got != "Total: 2 • ✅ Real: 1 • ❌ Fake: 1" {
		t.Errorf("stats = %q", got)
	}
	if _, disabled := doc.Find("#exportBtn").Attr("disabled"); disabled {
		t.Error("export button should be enabled")
	}
	if got := doc.Find("#results a.fake-source").Text(); got != "ProxyScrape" {
		t.Errorf("fake source label = %q", got)
	}
	if got := doc.Find("#ipInput").Text(); got != "1.1.1.1\n2.2.2.2:8080" {
		t.Errorf("textarea = %q", got)
	}
}

func TestCheck_EngineFailure(t *testing.T) {
	h, eng := newTestPanel(t, config.Default())
	eng.failCheck.Store(true)

	rec := do(h, http.MethodPost, "/check", url.Values{"ips": {"1.1.1.1"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := page(t, rec)
	if got := doc.Find("#stats").Text(); got != panel.MsgEngineUnreachable {
		t.Errorf("stats = %q", got)
	}
	if doc.Find("#results .item").Length() != 0 {
		t.Error("partial results rendered")
	}
}

func TestExport(t *testing.T) {
	h, eng := newTestPanel(t, config.Default())

	rec := do(h, http.MethodPost, "/export", nil)
	if rec.Code != http.StatusSeeOther || eng.exportCalls.Load() != 0 {
		t.Fatalf("empty export: status=%d calls=%d", rec.Code, eng.exportCalls.Load())
	}

	do(h, http.MethodPost, "/check", url.Values{"ips": {"1.1.1.1"}})
	rec = do(h, http.MethodPost, "/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "dot5_results.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "input,status\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestState(t *testing.T) {
	h, _ := newTestPanel(t, config.Default())
	do(h, http.MethodPost, "/check", url.Values{"ips": {"1.1.1.1"}})

	rec := do(h, http.MethodGet, "/api/state", nil)
	var st PanelStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Total != 2 || st.Real != 1 || st.Fake != 1 || !st.ExportEnabled || st.Busy {
		t.Errorf("state = %+v", st)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.Default()
	cfg.PanelConf.WebUser = "admin"
	cfg.PanelConf.WebPassword = "secret"
	h, _ := newTestPanel(t, cfg)

	if rec := do(h, http.MethodGet, "/", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", rec.Code)
	}

	// the websocket handshake is refused before any upgrade
	if rec := do(h, http.MethodGet, "/ws", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /ws status = %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	h, _ := newTestPanel(t, config.Default())
	if rec := do(h, http.MethodGet, "/static/app.js", nil); rec.Code != http.StatusOK {
		t.Errorf("app.js status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}
