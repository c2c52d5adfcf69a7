package domain

import (
	"fmt"
	"strings"
)

// MediaType 是 catalog 侧的条目类型标签（写入每条 SearchResult）。
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ParseMediaType 解析单一条目类型；"series" 视为 tv 的别名。
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaMovie, nil
	case "tv", "series", "show", "shows":
		return MediaTV, nil
	case "":
		return "", fmt.Errorf("media type 不能为空")
	default:
		return "", fmt.Errorf("media type 只能是 movie 或 tv，实际是 %q", s)
	}
}

// Selection 是用户在类型下拉框里的选择（可能对应多个 MediaType）。
type Selection string

const (
	SelectMovie  Selection = "movie"
	SelectSeries Selection = "series"
	SelectAll    Selection = "all"
)

// ParseSelection 解析搜索类型选择；空值回退为 movie。
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "movie", "movies":
		return SelectMovie, nil
	case "series", "tv", "show", "shows":
		return SelectSeries, nil
	case "all", "both":
		return SelectAll, nil
	default:
		return "", fmt.Errorf("type 只能是 movie|series|tv|all，实际是 %q", s)
	}
}

// MediaTypes 返回该选择需要请求的类型，顺序固定：movie 在前，tv 在后。
func (s Selection) MediaTypes() []MediaType {
	switch s {
	case SelectSeries:
		return []MediaType{MediaTV}
	case SelectAll:
		return []MediaType{MediaMovie, MediaTV}
	default:
		return []MediaType{MediaMovie}
	}
}
