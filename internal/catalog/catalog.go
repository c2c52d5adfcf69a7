// Package catalog 定义外部媒体目录（例如 TMDB）的统一接口。
package catalog

import (
	"context"

	"github.com/John-Robertt/streamscout/internal/domain"
)

// Catalog 把"站点/API 变化"限制在实现包内部；核心流程只依赖统一接口与稳定的 domain 类型。
//
// 约束：
// - 实现不做缓存（由 infra/cache 统一实现）；网络层重试与限速由 httpx 负责
// - Search 返回的每条结果必须带上 MediaType
// - WatchProviders 对"没有任何 provider"返回空 map 而不是错误
type Catalog interface {
	Name() string
	Search(ctx context.Context, mt domain.MediaType, query string) ([]domain.SearchResult, error)
	WatchProviders(ctx context.Context, key domain.TitleKey) (domain.Availability, error)
}

// LinkResolver 是可选能力：解析 watch 页面中的各服务外链。
type LinkResolver interface {
	WatchLinks(ctx context.Context, pageURL string) ([]domain.WatchLink, error)
}
