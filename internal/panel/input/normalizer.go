package input

import "strings"

// ParseCandidates 将粘贴的多行文本拆分为候选代理列表。
// 支持 \r\n、\n 和单独的 \r 换行；每行去掉首尾空白，丢弃空行，
// 保持原有顺序并保留重复项。不做任何语法校验。
func ParseCandidates(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	out := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
