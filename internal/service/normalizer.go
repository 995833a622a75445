package service

import (
	"fmt"
	"sort"
	"strings"
)

// CodeNormalizer 去掉市场前缀/后缀得到规范代码: SH600000, sh.600000, 600000.SH -> 600000.
type CodeNormalizer struct {
	markets []string
}

func NewCodeNormalizer(markets []string) *CodeNormalizer {
	ms := make([]string, 0, len(markets))
	for _, m := range markets {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			ms = append(ms, m)
		}
	}
	// 长前缀优先匹配
	sort.SliceStable(ms, func(i, j int) bool { return len(ms[i]) > len(ms[j]) })
	return &CodeNormalizer{markets: ms}
}

// Normalize 返回规范代码和市场 (无前缀时为空). 规范代码必须是 1-16 位数字.
func (n *CodeNormalizer) Normalize(raw string) (code, market string, err error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, m := range n.markets {
		if rest, ok := strings.CutPrefix(s, m); ok {
			s, market = strings.TrimLeft(rest, ".:"), m
			break
		}
		if rest, ok := strings.CutSuffix(s, m); ok {
			s, market = strings.TrimRight(rest, ".:"), m
			break
		}
	}
	if s == "" || len(s) > 16 {
		return "", "", fmt.Errorf("invalid stock code %q", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("invalid stock code %q", raw)
		}
	}
	return s, market, nil
}
