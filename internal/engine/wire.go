package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"dot5_panel/internal/shared/types"
)

// decodeResults 在网络边界解析 /api/check-bulk 的响应。
// 响应必须是 JSON 数组；数组内每个字段都做宽松的类型校正，
// 缺失、null、类型不符或空字符串一律视为"不存在"。
func decodeResults(body []byte) ([]types.ResultRecord, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(body, &rawItems); err != nil {
		return nil, fmt.Errorf("decode check-bulk response: %w", err)
	}
	if rawItems == nil {
		return nil, fmt.Errorf("decode check-bulk response: expected array, got null")
	}

	records := make([]types.ResultRecord, 0, len(rawItems))
	for _, item := range rawItems {
		var fields map[string]json.RawMessage
		// 非对象元素 (null、数字等) 退化为一条所有字段缺失的记录
		_ = json.Unmarshal(item, &fields)
		records = append(records, coerceRecord(fields))
	}
	return records, nil
}

func coerceRecord(f map[string]json.RawMessage) types.ResultRecord {
	input, _ := coerceString(f["input"]).Get()
	status, _ := coerceString(f["status"]).Get()
	return types.ResultRecord{
		Input:           input,
		Status:          status,
		HTTPStatus:      coerceInt(f["http_status"]),
		FinalURL:        coerceString(f["final_url"]),
		NormalizedProxy: coerceString(f["normalized_proxy"]),
		ElapsedMS:       coerceFloat(f["elapsed_ms"]),
		Error:           coerceString(f["error"]),
		PortsTried:      coerceInts(f["ports_tried"]),
		Source:          coerceString(f["source"]),
		FakeSourceURL:   coerceString(f["fake_source_url"]),
	}
}

func coerceString(raw json.RawMessage) types.Opt[string] {
	if isNull(raw) {
		return types.None[string]()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return types.None[string]()
		}
		return types.Some(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return types.Some(n.String())
	}
	return types.None[string]()
}

func coerceFloat(raw json.RawMessage) types.Opt[float64] {
	if isNull(raw) {
		return types.None[float64]()
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return types.Some(v)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return types.Some(v)
		}
	}
	return types.None[float64]()
}

func coerceInt(raw json.RawMessage) types.Opt[int] {
	v, ok := coerceFloat(raw).Get()
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return types.None[int]()
	}
	return types.Some(int(v))
}

func coerceInts(raw json.RawMessage) types.Opt[[]int] {
	if isNull(raw) {
		return types.None[[]int]()
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return types.None[[]int]()
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		if v, ok := coerceInt(item).Get(); ok {
			out = append(out, v)
		}
	}
	return types.Some(out)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
