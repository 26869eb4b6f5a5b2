package rest

import (
	"errors"
	"strings"

	"Concord/modules/kit/errx"
)

// Bucket 把路由里的 id 段替换成占位符，避免指标维度爆炸。
func Bucket(route string) string {
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	parts := strings.Split(route, "/")
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// StatusOf 读取远端错误的 HTTP 状态码。
func StatusOf(err error) int {
	var e *errx.Error
	if !errors.As(err, &e) || e.Code() != CodeRemoteOperationFailed {
		return 0
	}
	v, _ := e.Value("status")
	n, _ := v.(int)
	return n
}
