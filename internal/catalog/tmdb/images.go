package tmdb

import "strings"

// 常用图片尺寸。
const (
	PosterSize    = "w500"
	ThumbnailSize = "w185"
	LogoSize      = "w45"
)

// ImageURL 拼接图片地址：{base}/{size}{path}。path 为空时返回空串。
func ImageURL(base, size, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultImageBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + "/" + size + path
}
