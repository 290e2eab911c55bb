package domain

import (
	"sort"
	"strconv"
	"strings"
)

// FindInvalidMark 在服务商返回的核验明细里定位第一个未通过项，
// 返回它的点分路径，例如 "document.face_match"。明细是嵌套的
// JSON 对象，叶子为 0/1 通过标记；按键名排序遍历保证同一份
// 明细总是得到同一条路径。没有未通过项时返回空串。
func FindInvalidMark(result map[string]any) string {
	return findInvalidMark(result, nil)
}

func findInvalidMark(node map[string]any, path []string) string {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		current := append(append([]string(nil), path...), key)
		switch value := node[key].(type) {
		case map[string]any:
			if mark := findInvalidMark(value, current); mark != "" {
				return mark
			}
		default:
			if isZeroMark(value) {
				return strings.Join(current, ".")
			}
		}
	}
	return ""
}

// isZeroMark JSON 数字经解码后可能是 float64、整型或字符串
func isZeroMark(value any) bool {
	switch v := value.(type) {
	case float64:
		return v == 0
	case int:
		return v == 0
	case bool:
		return !v
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return err == nil && n == 0
	default:
		return false
	}
}
