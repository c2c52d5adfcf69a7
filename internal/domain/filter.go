package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SortKey 是结果排序字段。
type SortKey string

const (
	SortReleaseDate SortKey = "release_date"
	SortVoteAverage SortKey = "vote_average"
)

// SortOrder 是排序方向。
type SortOrder string

const (
	OrderDesc SortOrder = "desc"
	OrderAsc  SortOrder = "asc"
)

// FilterState 是纯 UI 状态：不持久化，每次搜索按当前值生效。
//
// MinDate/MaxDate 为 YYYY-MM-DD，空串表示不限制；MinRating 为 nil 表示不限制。
// Provider 为空表示 "All providers"。
type FilterState struct {
	MinDate   string    `json:"min_date,omitempty"`
	MaxDate   string    `json:"max_date,omitempty"`
	MinRating *float64  `json:"min_rating,omitempty"`
	SortBy    SortKey   `json:"sort_by"`
	Order     SortOrder `json:"order"`
	Provider  string    `json:"provider,omitempty"`
}

// DefaultFilter 返回默认状态：按上映日期倒序，不做任何过滤。
func DefaultFilter() FilterState {
	return FilterState{SortBy: SortReleaseDate, Order: OrderDesc}
}

// Reset 对应 "Reset filters"：日期、评分与排序恢复默认；provider 过滤保持不变。
func (f FilterState) Reset() FilterState {
	d := DefaultFilter()
	d.Provider = f.Provider
	return d
}

// Validate 校验并规范化字段（trim、默认值）。
func (f FilterState) Validate() (FilterState, error) {
	f.MinDate = strings.TrimSpace(f.MinDate)
	f.MaxDate = strings.TrimSpace(f.MaxDate)
	f.Provider = strings.TrimSpace(f.Provider)

	if f.MinDate != "" {
		if _, err := time.Parse(DateLayout, f.MinDate); err != nil {
			return FilterState{}, fmt.Errorf("min_date 必须是 YYYY-MM-DD，实际是 %q", f.MinDate)
		}
	}
	if f.MaxDate != "" {
		if _, err := time.Parse(DateLayout, f.MaxDate); err != nil {
			return FilterState{}, fmt.Errorf("max_date 必须是 YYYY-MM-DD，实际是 %q", f.MaxDate)
		}
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 10) {
		return FilterState{}, fmt.Errorf("min_rating 必须在 [0, 10] 内，实际是 %v", *f.MinRating)
	}

	switch f.SortBy {
	case "":
		f.SortBy = SortReleaseDate
	case SortReleaseDate, SortVoteAverage:
	default:
		return FilterState{}, fmt.Errorf("sort 只能是 release_date 或 vote_average，实际是 %q", f.SortBy)
	}
	switch f.Order {
	case "":
		f.Order = OrderDesc
	case OrderDesc, OrderAsc:
	default:
		return FilterState{}, fmt.Errorf("order 只能是 desc 或 asc，实际是 %q", f.Order)
	}
	return f, nil
}

// ParseRating 解析评分输入；空串返回 nil（不限制）。
func ParseRating(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("min_rating 不是合法数字：%q", s)
	}
	return &v, nil
}
