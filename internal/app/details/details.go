// Package details 把某个条目的 provider 数据按国家重新投影为详情表格。
package details

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/John-Robertt/streamscout/internal/app/results"
	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
)

// UnknownCountry 是国家代码为空时的显示名。
const UnknownCountry = "Unknown"

// ErrNoWatchPage 表示该国家没有 watch 页面链接。
var ErrNoWatchPage = errors.New("该国家没有 watch 页面")

var regionNames = display.English.Regions()

// CountryName 返回国家代码的英文名；未知代码回退为代码本身，空代码返回 Unknown。
func CountryName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return UnknownCountry
	}
	r, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := regionNames.Name(r); name != "" {
		return name
	}
	return code
}

// Options 汇总所有国家、所有供应方式的 provider（按 kind 固定顺序遍历），按 id 去重后按 label 排序。
func Options(av domain.Availability) []domain.ProviderOption {
	b := results.NewOptionBuilder()
	for _, c := range results.Countries(av) {
		ca := av[c]
		for _, kind := range domain.OfferKinds {
			for _, p := range ca.Offers(kind) {
				b.Add(p)
			}
		}
	}
	return b.Sorted()
}

// Rows 每个国家一行，按国家显示名排序；service 非空时只保留 id 匹配的服务，
// 过滤后没有服务的国家整行丢弃。
func Rows(av domain.Availability, service string) []domain.CountryRow {
	service = strings.TrimSpace(service)
	rows := make([]domain.CountryRow, 0, len(av))
	for _, code := range results.Countries(av) {
		ca := av[code]
		var services []domain.Service
		for _, kind := range domain.OfferKinds {
			for _, p := range ca.Offers(kind) {
				if service != "" && strconv.Itoa(p.ID) != service {
					continue
				}
				services = append(services, domain.Service{Provider: p, Kind: kind})
			}
		}
		if len(services) == 0 {
			continue
		}
		rows = append(rows, domain.CountryRow{
			Country:     code,
			CountryName: CountryName(code),
			Link:        ca.Link,
			Services:    services,
		})
	}

	cmp := results.CompareLabels()
	// 输入已按代码升序，稳定排序保证同名时代码小的在前。
	sort.SliceStable(rows, func(i, j int) bool {
		return cmp(rows[i].CountryName, rows[j].CountryName) < 0
	})
	return rows
}

// Build 生成详情视图。
func Build(key domain.TitleKey, title string, av domain.Availability, service string) domain.DetailsView {
	service = strings.TrimSpace(service)
	return domain.DetailsView{
		ID:        key.ID,
		MediaType: key.MediaType,
		Title:     title,
		Service:   service,
		Options:   Options(av),
		Rows:      Rows(av, service),
	}
}

// Load 通过缓存取得 provider 数据再生成详情视图。
// 与搜索流程不同，这里的拉取失败会返回给调用方：之前按失败缓存的空结果不直接使用，而是重新拉取。
func Load(ctx context.Context, cat catalog.Catalog, pc *cache.ProviderCache, key domain.TitleKey, title, service string) (domain.DetailsView, error) {
	if cat == nil {
		return domain.DetailsView{}, errors.New("catalog 未配置")
	}
	if pc == nil {
		pc = cache.NewProviderCache(nil)
	}
	pc.DropFailed(key)
	av, _, err := pc.GetOrFetch(ctx, key, cat.WatchProviders)
	if err != nil {
		return domain.DetailsView{}, err
	}
	return Build(key, title, av, service), nil
}

// WatchLinks 解析某个国家 watch 页面中的各服务外链。
func WatchLinks(ctx context.Context, r catalog.LinkResolver, av domain.Availability, country string) ([]domain.WatchLink, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	ca, ok := av[country]
	if !ok || strings.TrimSpace(ca.Link) == "" {
		return nil, fmt.Errorf("%w：%s", ErrNoWatchPage, country)
	}
	return r.WatchLinks(ctx, ca.Link)
}
