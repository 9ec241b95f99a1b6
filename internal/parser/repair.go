// internal/parser/repair.go
package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// 统一替换常见的噪声：Markdown代码栅栏、BOM、不换行空格、行分隔符
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// cleanNoise 去掉模型输出里夹带的栅栏、零宽字符和控制字符
func cleanNoise(s string) string {
	if s == "" {
		return s
	}

	s = jsonNoiseReplacer.Replace(s)

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	invalidEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
)

// sanitizeJSON 修复两类最常见的语法破损：闭括号前的尾逗号、非法反斜杠转义
func sanitizeJSON(s string) string {
	if s == "" {
		return s
	}
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = invalidEscapeRe.ReplaceAllString(s, "$1")
	return s
}

var stringFieldRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*"`)

// collectStringFields 找出文本中所有携带字符串值的字段名（策略4用）
func collectStringFields(s string) []string {
	matches := stringFieldRe.FindAllStringSubmatch(s, -1)
	seen := make(map[string]bool, len(matches))
	fields := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			fields = append(fields, m[1])
		}
	}
	return fields
}

// repairQuotes 对给定字段的字符串值转义内部未转义的引号。
// 例如 {"explanation": "He said "hi""} → {"explanation": "He said \"hi\""}
func repairQuotes(s string, fields []string) string {
	for _, field := range fields {
		s = repairFieldQuotes(s, field)
	}
	return s
}

func repairFieldQuotes(s, field string) string {
	marker := `"` + field + `"`
	var out strings.Builder
	rest := s

	for {
		idx := strings.Index(rest, marker)
		if idx < 0 {
			out.WriteString(rest)
			break
		}

		// 定位冒号后的开引号
		pos := idx + len(marker)
		for pos < len(rest) && (rest[pos] == ' ' || rest[pos] == '\t' || rest[pos] == ':') {
			pos++
		}
		if pos >= len(rest) || rest[pos] != '"' {
			out.WriteString(rest[:idx+len(marker)])
			rest = rest[idx+len(marker):]
			continue
		}

		value, end, ok := scanStringValue(rest, pos)
		if !ok {
			out.WriteString(rest[:idx+len(marker)])
			rest = rest[idx+len(marker):]
			continue
		}

		out.WriteString(rest[:pos])
		out.WriteByte('"')
		out.WriteString(value)
		out.WriteByte('"')
		rest = rest[end:]
	}

	return out.String()
}

// scanStringValue 从开引号位置扫描一个字符串值，转义内部引号。
// 一个引号被认定为收尾引号的条件：它后面的下一个有效字符是 } ] ，
// 或者是逗号且逗号后紧跟新的 "key": 模式或新的数组元素。
func scanStringValue(s string, open int) (value string, end int, ok bool) {
	var buf strings.Builder
	i := open + 1

	for i < len(s) {
		c := s[i]

		if c == '\\' && i+1 < len(s) {
			buf.WriteByte(c)
			buf.WriteByte(s[i+1])
			i += 2
			continue
		}

		if c == '"' {
			if isClosingQuote(s, i) {
				return buf.String(), i + 1, true
			}
			// 内部引号，转义
			buf.WriteString(`\"`)
			i++
			continue
		}

		buf.WriteByte(c)
		i++
	}

	return "", 0, false
}

var nextKeyRe = regexp.MustCompile(`^"[A-Za-z_][A-Za-z0-9_]*"\s*:`)

func isClosingQuote(s string, i int) bool {
	j := i + 1
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j++
	}
	if j >= len(s) {
		return true
	}

	switch s[j] {
	case '}', ']':
		return true
	case ',':
		k := j + 1
		for k < len(s) && (s[k] == ' ' || s[k] == '\t' || s[k] == '\n' || s[k] == '\r') {
			k++
		}
		if k >= len(s) {
			return true
		}
		if s[k] == '{' || s[k] == '[' {
			return true
		}
		if s[k] == '"' {
			return nextKeyRe.MatchString(s[k:])
		}
	}
	return false
}

// extractBalanced 提取第一个括号平衡的 {...} 或 [...] 块。
// 括号计数跳过字符串内部的括号，找不到匹配时回退到最后一个闭括号。
func extractBalanced(s string) string {
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}

	s = strings.TrimSpace(s[start:])
	if s == "" {
		return s
	}

	isArray := s[0] == '['

	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if isArray {
				if char == '[' {
					balance++
				} else if char == ']' {
					balance--
				}
			} else {
				if char == '{' {
					balance++
				} else if char == '}' {
					balance--
				}
			}

			if balance == 0 {
				// 找到了匹配的结束符
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 没找到匹配的结束符，回退到最后一个闭括号
	end := strings.LastIndex(s, "]")
	if !isArray {
		end = strings.LastIndex(s, "}")
	}
	if end != -1 {
		return strings.TrimSpace(s[:end+1])
	}

	return strings.TrimSpace(s)
}

var (
	riskScoreRe   = regexp.MustCompile(`(?i)"risk_score"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	confidenceRe  = regexp.MustCompile(`(?i)"confidence"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	severityRe    = regexp.MustCompile(`(?i)"severity"\s*:\s*"(LOW|MEDIUM|HIGH)"`)
	explanationRe = regexp.MustCompile(`"explanation"\s*:\s*"([^"]*)"`)
)

// extractCategoryFields 最后的兜底：对每个期望的类别键逐个抽取
// risk_score/confidence/severity/explanation，拼装尽力而为的对象。
// 原文中找不到的类别直接跳过，由调用方补默认记录。
func extractCategoryFields(s string, keys []string) string {
	result := make(map[string]map[string]interface{})

	for _, key := range keys {
		block := categoryBlock(s, key)
		if block == "" {
			continue
		}

		entry := map[string]interface{}{
			"risk_score": 0,
			"confidence": 0,
			"severity":   "LOW",
		}

		if m := riskScoreRe.FindStringSubmatch(block); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				entry["risk_score"] = clampScore(v)
			}
		}
		if m := confidenceRe.FindStringSubmatch(block); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				entry["confidence"] = clampScore(v)
			}
		}
		if m := severityRe.FindStringSubmatch(block); m != nil {
			entry["severity"] = m[1]
		}
		if m := explanationRe.FindStringSubmatch(block); m != nil {
			entry["explanation"] = m[1]
		}

		result[key] = entry
	}

	if len(result) == 0 {
		return ""
	}

	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

// categoryBlock 定位 "key" 后面第一个括号平衡的对象块
func categoryBlock(s, key string) string {
	idx := strings.Index(s, `"`+key+`"`)
	if idx < 0 {
		return ""
	}

	rest := s[idx:]
	open := strings.Index(rest, "{")
	if open < 0 {
		return ""
	}

	block := extractBalanced(rest[open:])
	return block
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
