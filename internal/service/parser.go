package service

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/simplifiedchinese"

	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// sourceTrailer 行情软件导出文件末尾的 "数据来源:xxx" 行
const sourceTrailer = "数据来源"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// maxRawSample 错误样本中保留的原始行长度 (字节)
const maxRawSample = 120

// clip 截断到不超过 n 字节, 不切开多字节字符.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

type ParseOptions struct {
	TradeDate       string // 已规范化为 YYYY-MM-DD
	DateLayouts     []string
	Delimiter       string
	Normalizer      *CodeNormalizer
	MaxErrorSamples int
}

type ParsedRow struct {
	Line     int
	Code     string
	Original string
	Volume   int64
}

// ParseResult 坏行只计数, 不影响其余行.
type ParseResult struct {
	Rows       []ParsedRow
	ErrorCount int
	Errors     []model.RowError
	Lines      int
}

func (r *ParseResult) addError(opts ParseOptions, line int, raw, format string, args ...any) {
	r.ErrorCount++
	if len(r.Errors) < opts.MaxErrorSamples {
		raw = clip(raw, maxRawSample)
		r.Errors = append(r.Errors, model.RowError{Line: line, Raw: raw, Reason: fmt.Sprintf(format, args...)})
	}
}

// ParseTradingFile 解析 "代码<TAB>日期<TAB>成交量" 的无表头文本. 只有读取失败才返回 error.
func ParseTradingFile(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		// 国内行情软件导出默认 GBK
		if decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}
	if opts.Delimiter == "" {
		opts.Delimiter = "\t"
	}
	if len(opts.DateLayouts) == 0 {
		opts.DateLayouts = []string{bizConsts.DateLayout}
	}
	if opts.Normalizer == nil {
		opts.Normalizer = NewCodeNormalizer([]string{"SH", "SZ", "BJ"})
	}

	res := &ParseResult{}
	firstSeen := make(map[string]int)
	// 整个文件已在内存中, 按行切分不限制单行长度; 超长行在字段校验时计为坏行
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.Contains(line, sourceTrailer) {
			continue
		}
		res.Lines++

		fields := splitFields(line, opts.Delimiter)
		if len(fields) != 3 {
			res.addError(opts, lineNo, line, "expected 3 fields, got %d", len(fields))
			continue
		}
		code, _, err := opts.Normalizer.Normalize(fields[0])
		if err != nil {
			res.addError(opts, lineNo, line, "%v", err)
			continue
		}
		date, err := ParseTradeDate(fields[1], opts.DateLayouts)
		if err != nil {
			res.addError(opts, lineNo, line, "%v", err)
			continue
		}
		if opts.TradeDate != "" && date != opts.TradeDate {
			res.addError(opts, lineNo, line, "trade date %s does not match target %s", date, opts.TradeDate)
			continue
		}
		vol, err := parseVolume(fields[2])
		if err != nil {
			res.addError(opts, lineNo, line, "%v", err)
			continue
		}
		if first, dup := firstSeen[code]; dup {
			res.addError(opts, lineNo, line, "duplicate stock code %s (first seen at line %d)", code, first)
			continue
		}
		firstSeen[code] = lineNo
		res.Rows = append(res.Rows, ParsedRow{Line: lineNo, Code: code, Original: strings.TrimSpace(fields[0]), Volume: vol})
	}
	return res, nil
}

// splitFields 按分隔符切分; 分隔符是空白且切分结果不是 3 列时, 退回按任意空白切分.
func splitFields(line, delim string) []string {
	parts := strings.Split(line, delim)
	if len(parts) != 3 && strings.TrimSpace(delim) == "" {
		parts = strings.Fields(line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseTradeDate 依次尝试 layouts, 返回 YYYY-MM-DD.
func ParseTradeDate(s string, layouts []string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(bizConsts.DateLayout), nil
		}
	}
	return "", fmt.Errorf("unparseable trade date %q", s)
}

var maxVolume = decimal.NewFromInt(math.MaxInt64)

// maxVolumeLen 超过该长度的成交量不可能落在 int64 内, 直接拒绝, 不做大数解析
const maxVolumeLen = 32

func parseVolume(s string) (int64, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if len(raw) > maxVolumeLen {
		return 0, fmt.Errorf("volume %q out of range", clip(raw, 24))
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("non-numeric volume %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative volume %q", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("fractional volume %q", s)
	}
	if d.GreaterThan(maxVolume) {
		return 0, fmt.Errorf("volume %q out of range", s)
	}
	return d.IntPart(), nil
}
