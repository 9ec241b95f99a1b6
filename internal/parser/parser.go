// internal/parser/parser.go
package parser

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Corphon/ContentGuardMCP/internal/errors"
)

// Options 控制修复策略链的可选行为
type Options struct {
	// QuoteRepairFields 已知字段名列表，策略3只对这些字段的字符串值做引号修复
	QuoteRepairFields []string

	// CategoryKeys 策略6（逐类别手工抽取）期望的类别键集合
	CategoryKeys []string
}

var validate = validator.New()

// Parse 从自由格式的模型文本中提取一个JSON负载并反序列化到out。
// 按顺序尝试每个策略，直到某个候选既能解析又能通过结构校验；
// 全部失败时返回终态解析错误，由调用方决定替换何种默认记录。
//
// 策略链：
//  1. 直接解析（噪声清洗后的全文）
//  2. 语法消毒：去掉闭括号前的尾逗号、修掉非法反斜杠转义
//  3. 已知字段引号修复：转义指定字段字符串值内部未转义的引号
//  4. 通用引号修复：对正则找到的每个 "key": "value" 应用同样的转义
//  5. 提取第一个括号平衡的 {...}/[...] 块
//  6. 逐类别手工抽取 risk_score/confidence/severity/explanation
func Parse(raw string, out interface{}, opts Options) error {
	cleaned := cleanNoise(raw)

	type strategy struct {
		name  string
		apply func() (string, bool)
	}

	strategies := []strategy{
		{"direct", func() (string, bool) {
			return cleaned, cleaned != ""
		}},
		{"sanitize", func() (string, bool) {
			s := sanitizeJSON(cleaned)
			return s, s != ""
		}},
		{"quote_repair_known", func() (string, bool) {
			if len(opts.QuoteRepairFields) == 0 {
				return "", false
			}
			return sanitizeJSON(repairQuotes(cleaned, opts.QuoteRepairFields)), true
		}},
		{"quote_repair_generic", func() (string, bool) {
			fields := collectStringFields(cleaned)
			if len(fields) == 0 {
				return "", false
			}
			return sanitizeJSON(repairQuotes(cleaned, fields)), true
		}},
		{"balanced_block", func() (string, bool) {
			s := extractBalanced(sanitizeJSON(cleaned))
			return s, s != ""
		}},
		{"category_fields", func() (string, bool) {
			if len(opts.CategoryKeys) == 0 {
				return "", false
			}
			s := extractCategoryFields(cleaned, opts.CategoryKeys)
			return s, s != ""
		}},
	}

	var lastErr error
	for _, st := range strategies {
		candidate, ok := st.apply()
		if !ok {
			continue
		}

		if err := unmarshalValidated(candidate, out); err != nil {
			lastErr = fmt.Errorf("策略 %s 失败: %w", st.name, err)
			continue
		}
		return nil
	}

	return apperrors.NewParseError(
		fmt.Sprintf("全部%d个解析策略都无法恢复结构化输出", len(strategies)), lastErr)
}

// unmarshalValidated 先反序列化到同类型的新实例，校验通过后才写回out，
// 保证校验失败不会留下半填充的结果。
func unmarshalValidated(text string, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("输出参数必须是非空指针")
	}

	fresh := reflect.New(rv.Type().Elem())
	if err := json.Unmarshal([]byte(text), fresh.Interface()); err != nil {
		return err
	}

	if err := validateParsed(fresh.Elem()); err != nil {
		return err
	}

	rv.Elem().Set(fresh.Elem())
	return nil
}

// validateParsed 对结构体、结构体map和结构体切片做类型/范围校验。
// 校验失败视同解析失败，策略链继续向后尝试。
func validateParsed(v reflect.Value) error {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return validate.Struct(v.Interface())
	case reflect.Map:
		for _, key := range v.MapKeys() {
			if err := validateParsed(v.MapIndex(key)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validateParsed(v.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
