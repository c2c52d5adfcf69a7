package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HTTPStatusError 表示 API 返回了非 2xx 的 HTTP 状态码。
// URL 已去掉 api_key 等敏感查询参数，可直接写入日志。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Message    string // API 返回的 status_message（可能为空）
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// IsNotFound 判断 err 是否为 404。
func IsNotFound(err error) bool {
	var hs *HTTPStatusError
	return errors.As(err, &hs) && hs.StatusCode == 404
}

// Error 是 catalog 阶段的可追溯错误。
// Stage 取值："search" / "providers" / "links"。
type Error struct {
	Catalog string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog=%s stage=%s: %v", e.Catalog, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RedactURL 去掉查询参数中的 api_key，用于错误信息与日志。
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
