package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// GetString 读取字符串字段，非字符串或空白返回 ""
func GetString(meta JSONMap, key string) string {
	if meta == nil {
		return ""
	}
	raw, ok := meta[key]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// GetFloat 读取数值字段；兼容 JSON 解码后的 float64、json.Number 与数字字符串。
func GetFloat(meta JSONMap, key string) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	raw, ok := meta[key]
	if !ok || raw == nil {
		return 0, false
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
