package types

import "encoding/json"

// Verdict values reported by the checking engine.
const (
	StatusReal = "real"
	StatusFake = "fake"
)

// Opt 表示一个可能缺失的值，用于代替 nil 指针或零值哨兵。
type Opt[T any] struct {
	val T
	ok  bool
}

// Some wraps a present value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{val: v, ok: true}
}

// None returns an absent value.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.val, o.ok
}

// Present reports whether the value is set.
func (o Opt[T]) Present() bool {
	return o.ok
}

// MarshalJSON encodes an absent value as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.val)
}

// CheckParameters 是一次批量检测的可调参数。
type CheckParameters struct {
	Timeout    float64 // 单次探测超时 (秒)
	MaxWorkers int     // 引擎并发提示
	TryPorts   []int   // 仅有 IP 时尝试的端口
}

// CheckRequest 是 POST /api/check-bulk 的请求体。
type CheckRequest struct {
	IPs        []string `json:"ips"`
	Timeout    float64  `json:"timeout"`
	MaxWorkers int      `json:"max_workers"`
	TryPorts   []int    `json:"try_ports"`
}

// Params returns the tunable part of the request.
func (r CheckRequest) Params() CheckParameters {
	return CheckParameters{Timeout: r.Timeout, MaxWorkers: r.MaxWorkers, TryPorts: r.TryPorts}
}

// ResultRecord 是引擎对单个候选代理给出的结论。
// 所有可选字段在网络边界处已经完成类型校正，渲染逻辑不再做类型判断。
type ResultRecord struct {
	Input           string       `json:"input"`
	Status          string       `json:"status"`
	HTTPStatus      Opt[int]     `json:"http_status"`
	FinalURL        Opt[string]  `json:"final_url"`
	NormalizedProxy Opt[string]  `json:"normalized_proxy"`
	ElapsedMS       Opt[float64] `json:"elapsed_ms"`
	Error           Opt[string]  `json:"error"`
	PortsTried      Opt[[]int]   `json:"ports_tried"`
	Source          Opt[string]  `json:"source"`
	FakeSourceURL   Opt[string]  `json:"fake_source_url"`
}

// IsReal reports whether the record counts toward the real bucket.
// Anything other than the literal "real" is fake.
func (r ResultRecord) IsReal() bool {
	return r.Status == StatusReal
}

// ExportRequest 是 POST /api/export-csv 的请求体。
type ExportRequest struct {
	Results []ResultRecord `json:"results"`
}
