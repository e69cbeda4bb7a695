package render

import (
	"fmt"
	"strconv"
	"strings"

	"dot5_panel/internal/shared/types"
)

// Placeholder is shown for every absent optional field.
const Placeholder = "-"

const defaultErrorMaxLen = 120

// Options 控制渲染细节。
type Options struct {
	ErrorMaxLen int // 错误文本截断长度 (rune)，<=0 时使用 120
}

// SourceLink 是 fake 结果的来源链接，所有字段均已转义。
type SourceLink struct {
	Label string
	URL   string
	Href  string // 仅 http/https 链接可点击，否则为空
}

// Row 是结果表中的一行。所有字符串字段均已做 HTML 转义。
type Row struct {
	Input      string
	Status     string // 转义后的原始状态，用作 CSS class
	StatusText string
	HTTPStatus string
	FinalURL   string
	Proxy      string
	Elapsed    string
	Error      string
	PortsTried string
	Source     string
	FakeSource *SourceLink
}

// View is the rendered result set plus its aggregate summary.
type View struct {
	Rows          []Row
	Total         int
	Real          int
	Fake          int
	Summary       string
	ExportEnabled bool
}

// Renderer turns engine verdicts into an escaped tabular view.
type Renderer struct {
	errorMaxLen int
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	n := opts.ErrorMaxLen
	if n <= 0 {
		n = defaultErrorMaxLen
	}
	return &Renderer{errorMaxLen: n}
}

// Render classifies and renders records. It never fails: absent fields
// degrade to the placeholder.
func (r *Renderer) Render(records []types.ResultRecord) *View {
	v := &View{
		Rows:  make([]Row, 0, len(records)),
		Total: len(records),
	}
	for _, rec := range records {
		if rec.IsReal() {
			v.Real++
		} else {
			v.Fake++
		}
		v.Rows = append(v.Rows, r.renderRow(rec))
	}
	v.Summary = Summary(v.Total, v.Real, v.Fake)
	v.ExportEnabled = v.Total > 0
	return v
}

// Summary formats the one-line aggregate.
func Summary(total, real, fake int) string {
	return fmt.Sprintf("Total: %d • ✅ Real: %d • ❌ Fake: %d", total, real, fake)
}

func (r *Renderer) renderRow(rec types.ResultRecord) Row {
	row := Row{
		Input:      orPlaceholder(rec.Input),
		Status:     Escape(rec.Status),
		StatusText: orPlaceholder(strings.ToUpper(rec.Status)),
		HTTPStatus: Placeholder,
		FinalURL:   optString(rec.FinalURL),
		Proxy:      optString(rec.NormalizedProxy),
		Elapsed:    Placeholder,
		Error:      Placeholder,
		PortsTried: Placeholder,
		Source:     optString(rec.Source),
	}

	if code, ok := rec.HTTPStatus.Get(); ok {
		row.HTTPStatus = strconv.Itoa(code)
	}
	if ms, ok := rec.ElapsedMS.Get(); ok {
		row.Elapsed = strconv.FormatFloat(ms, 'f', -1, 64) + "ms"
	}
	if msg, ok := rec.Error.Get(); ok && msg != "" {
		row.Error = Escape(truncate(msg, r.errorMaxLen))
	}
	if ports, ok := rec.PortsTried.Get(); ok && len(ports) > 0 {
		parts := make([]string, len(ports))
		for i, p := range ports {
			parts[i] = strconv.Itoa(p)
		}
		row.PortsTried = strings.Join(parts, ", ")
	}
	if rec.Status == types.StatusFake {
		if u, ok := rec.FakeSourceURL.Get(); ok && u != "" {
			link := &SourceLink{
				Label: Escape(SourceLabel(u)),
				URL:   Escape(u),
			}
			if linkable(u) {
				link.Href = link.URL
			}
			row.FakeSource = link
		}
	}
	return row
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return Escape(s)
}

func optString(o types.Opt[string]) string {
	s, _ := o.Get()
	return orPlaceholder(s)
}

// HTML writes the result table fragment. Output is deterministic for a
// given view; every interpolated value was escaped in Render.
func (v *View) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="item header">`)
	sb.WriteString(`<div class="code small"><strong>Input</strong></div>`)
	sb.WriteString(`<div class="small"><strong>Status</strong></div>`)
	sb.WriteString(`<div class="small"><strong>HTTP</strong></div>`)
	sb.WriteString(`<div class="small"><strong>Proxy / Info</strong></div>`)
	sb.WriteString(`<div class="small"><strong>Ports</strong></div>`)
	sb.WriteString(`<div class="small"><strong>Source</strong></div>`)
	sb.WriteString(`<div class="small"><strong>Fake Source</strong></div>`)
	sb.WriteString("</div>\n")

	for _, row := range v.Rows {
		sb.WriteString(`<div class="item">`)
		fmt.Fprintf(&sb, `<div class="code">%s</div>`, row.Input)
		fmt.Fprintf(&sb, `<div><span class="status badge %s">%s</span></div>`, row.Status, row.StatusText)
		fmt.Fprintf(&sb, `<div class="small">%s</div>`, row.HTTPStatus)
		fmt.Fprintf(&sb, `<div class="small code" title="%s">%s`, row.FinalURL, row.Proxy)
		if row.Elapsed != Placeholder {
			fmt.Fprintf(&sb, ` • %s`, row.Elapsed)
		}
		if row.Error != Placeholder {
			fmt.Fprintf(&sb, ` • err: %s`, row.Error)
		}
		sb.WriteString(`</div>`)
		fmt.Fprintf(&sb, `<div class="small">%s</div>`, row.PortsTried)
		fmt.Fprintf(&sb, `<div class="small">%s</div>`, row.Source)
		switch {
		case row.FakeSource != nil && row.FakeSource.Href != "":
			fmt.Fprintf(&sb, `<div class="small"><a class="fake-source" href="%s" title="%s" target="_blank" rel="noopener noreferrer">%s</a></div>`,
				row.FakeSource.Href, row.FakeSource.URL, row.FakeSource.Label)
		case row.FakeSource != nil:
			fmt.Fprintf(&sb, `<div class="small"><span class="fake-source" title="%s">%s</span></div>`,
				row.FakeSource.URL, row.FakeSource.Label)
		default:
			fmt.Fprintf(&sb, `<div class="small">%s</div>`, Placeholder)
		}
		sb.WriteString("</div>\n")
	}
	return sb.String()
}
