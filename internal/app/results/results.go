// Package results 实现搜索结果处理管线中的纯函数阶段：
// filter -> sort -> top providers / provider options -> provider filter。
//
// 约束：所有函数都不修改入参切片，返回新切片；相同输入 => 相同输出。
package results

import (
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/John-Robertt/streamscout/internal/domain"
)

// TopProviderLimit 是卡片上展示的 provider 数量上限。
const TopProviderLimit = 3

// Filter 丢弃没有日期、日期非法或晚于 today 的条目，再应用日期区间与最低评分。
// today 换算到 UTC 后只取日期部分。
func Filter(items []domain.SearchResult, f domain.FilterState, today time.Time) []domain.SearchResult {
	todayDate := dateOnly(today)

	var minDate, maxDate time.Time
	if f.MinDate != "" {
		minDate, _ = time.Parse(domain.DateLayout, f.MinDate)
	}
	if f.MaxDate != "" {
		maxDate, _ = time.Parse(domain.DateLayout, f.MaxDate)
	}

	out := make([]domain.SearchResult, 0, len(items))
	for _, it := range items {
		d, ok := it.ParsedDate()
		if !ok || d.After(todayDate) {
			continue
		}
		if !minDate.IsZero() && d.Before(minDate) {
			continue
		}
		if !maxDate.IsZero() && d.After(maxDate) {
			continue
		}
		if f.MinRating != nil && it.VoteAverage < *f.MinRating {
			continue
		}
		out = append(out, it)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Sort 稳定排序（相等元素保持输入顺序）。
//
// - release_date：默认 desc；没有（或无法解析）日期的条目无论方向都排在最后
// - vote_average：默认 desc（高分在前）；asc 反转
// - 未知字段：保持输入顺序
func Sort(items []domain.SearchResult, key domain.SortKey, order domain.SortOrder) []domain.SearchResult {
	out := append([]domain.SearchResult(nil), items...)
	asc := order == domain.OrderAsc

	switch key {
	case domain.SortReleaseDate:
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := out[i].ParsedDate()
			b, bok := out[j].ParsedDate()
			switch {
			case !aok && !bok:
				return false
			case !aok:
				return false
			case !bok:
				return true
			}
			if asc {
				return a.Before(b)
			}
			return a.After(b)
		})
	case domain.SortVoteAverage:
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].VoteAverage < out[j].VoteAverage
			}
			return out[i].VoteAverage > out[j].VoteAverage
		})
	}
	return out
}

// Countries 返回按国家代码升序排列的 key（map 遍历顺序不稳定，必须显式排序）。
func Countries(av domain.Availability) []string {
	codes := make([]string, 0, len(av))
	for c := range av {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// TopProviders 按国家代码升序遍历 flatrate，取按 id 去重后的前 limit 个。
func TopProviders(av domain.Availability, limit int) []domain.TopProvider {
	if limit <= 0 {
		return nil
	}
	top := make([]domain.TopProvider, 0, limit)
	seen := make(map[int]struct{}, limit)
	for _, c := range Countries(av) {
		for _, p := range av[c].Flatrate {
			if len(top) >= limit {
				return top
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			top = append(top, domain.TopProvider{ID: p.ID, Name: p.Name, Logo: p.LogoPath})
		}
	}
	return top
}

// ProviderOptions 汇总所有条目的 flatrate provider，按 id 去重（保留首次出现的 name/logo），
// 再按 label 做本地化排序。
func ProviderOptions(items []domain.SearchResult) []domain.ProviderOption {
	b := NewOptionBuilder()
	for _, it := range items {
		for _, c := range Countries(it.Providers) {
			for _, p := range it.Providers[c].Flatrate {
				b.Add(p)
			}
		}
	}
	return b.Sorted()
}

// FilterByProvider 保留任一国家 flatrate 中 id 或 name 与 filter 相同的条目。
// filter 为空（All providers）时原样返回。
func FilterByProvider(items []domain.SearchResult, filter string) []domain.SearchResult {
	if filter == "" {
		return append([]domain.SearchResult(nil), items...)
	}
	out := make([]domain.SearchResult, 0, len(items))
	for _, it := range items {
		if offersFlatrate(it.Providers, filter) {
			out = append(out, it)
		}
	}
	return out
}

func offersFlatrate(av domain.Availability, filter string) bool {
	for _, ca := range av {
		for _, p := range ca.Flatrate {
			if strconv.Itoa(p.ID) == filter || p.Name == filter {
				return true
			}
		}
	}
	return false
}

// OptionBuilder 按 id 去重收集 provider 选项（详情视图也复用）。
type OptionBuilder struct {
	seen map[int]struct{}
	opts []domain.ProviderOption
}

func NewOptionBuilder() *OptionBuilder {
	return &OptionBuilder{seen: make(map[int]struct{})}
}

// Add 收集 p；同 id 只保留第一次出现的 name/logo。
func (b *OptionBuilder) Add(p domain.Provider) {
	if _, ok := b.seen[p.ID]; ok {
		return
	}
	b.seen[p.ID] = struct{}{}
	b.opts = append(b.opts, domain.ProviderOption{
		Value: strconv.Itoa(p.ID),
		Label: p.Name,
		Logo:  p.LogoPath,
	})
}

// Sorted 返回按 label 本地化排序后的选项；label 相同保持收集顺序。
func (b *OptionBuilder) Sorted() []domain.ProviderOption {
	out := append([]domain.ProviderOption{}, b.opts...)
	cmp := CompareLabels()
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i].Label, out[j].Label) < 0
	})
	return out
}

// CompareLabels 返回英文 locale 下的字符串比较函数。
// collate.Collator 不是并发安全的，因此每次调用新建。
func CompareLabels() func(a, b string) int {
	return collate.New(language.English).CompareString
}
