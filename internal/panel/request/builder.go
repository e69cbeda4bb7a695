package request

import (
	"regexp"
	"strconv"
	"strings"

	"dot5_panel/internal/shared/types"
)

const (
	DefaultTimeout    = 6.0
	DefaultMaxWorkers = 20
)

var (
	floatPrefixRe = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	intPrefixRe   = regexp.MustCompile(`^[+-]?\d+`)
)

// Fields 是表单中的原始字段值。
type Fields struct {
	Timeout    string
	MaxWorkers string
	TryPorts   string
}

// Build 组装 /api/check-bulk 的请求体。没有副作用，提交由调用方负责。
func Build(candidates []string, f Fields) types.CheckRequest {
	params := ParseParameters(f)
	ips := make([]string, len(candidates))
	copy(ips, candidates)
	return types.CheckRequest{
		IPs:        ips,
		Timeout:    params.Timeout,
		MaxWorkers: params.MaxWorkers,
		TryPorts:   params.TryPorts,
	}
}

// ParseParameters 解析表单字段，无法解析的数值使用默认值。
func ParseParameters(f Fields) types.CheckParameters {
	return types.CheckParameters{
		Timeout:    ParseTimeout(f.Timeout),
		MaxWorkers: ParseMaxWorkers(f.MaxWorkers),
		TryPorts:   ParsePorts(f.TryPorts),
	}
}

// ParseTimeout reads a float the way a browser's parseFloat does:
// the longest numeric prefix wins, anything else falls back to 6.
func ParseTimeout(s string) float64 {
	if v, ok := parseFloatPrefix(s); ok {
		return v
	}
	return DefaultTimeout
}

// ParseMaxWorkers reads a base-10 integer prefix, falling back to 20.
func ParseMaxWorkers(s string) int {
	if v, ok := parseIntPrefix(s); ok {
		return v
	}
	return DefaultMaxWorkers
}

// ParsePorts 按逗号拆分端口列表，静默丢弃无法解析的项。
func ParsePorts(s string) []int {
	ports := make([]int, 0)
	for _, tok := range strings.Split(s, ",") {
		if p, ok := parseIntPrefix(tok); ok {
			ports = append(ports, p)
		}
	}
	return ports
}

func parseFloatPrefix(s string) (float64, bool) {
	m := floatPrefixRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntPrefix(s string) (int, bool) {
	m := intPrefixRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}
