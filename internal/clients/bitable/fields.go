package bitable

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractText 把多維表格欄位的各種值形態收斂成純文字。
// 文字欄位可能是字串、富文本片段陣列或帶 text/name/value 的物件。
func ExtractText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return trimFloat(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []interface{}:
		out := ""
		for _, item := range v {
			part := ExtractText(item)
			if part == "" {
				continue
			}
			if out != "" {
				out += " "
			}
			out += part
		}
		return out
	case map[string]interface{}:
		for _, key := range []string{"text", "name", "value", "date"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

var beijingDatePattern = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})`)

// ParseBeijingDateOnly 從 "YYYY/MM/DD hh:mm:ss" 形態的文字取出日期部分，
// 回傳 "YYYY-MM-DD"；格式不符回傳空字串。
func ParseBeijingDateOnly(text string) string {
	m := beijingDatePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + "-" + m[3]
}
