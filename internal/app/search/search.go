// Package search 是搜索控制器：查询 -> 过滤 -> 排序 -> 补充 provider -> 按 provider 过滤。
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/John-Robertt/streamscout/internal/app/results"
	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
	"github.com/John-Robertt/streamscout/internal/infra/logx"
)

// GenericMessage 是搜索失败时唯一面向用户的提示；具体原因只进日志。
const GenericMessage = "搜索失败，请重试。"

var (
	// ErrEmptyQuery 表示查询为空（或只有空白）：不发任何请求。
	ErrEmptyQuery = errors.New("查询不能为空")
	// ErrInvalidRequest 表示类型或过滤参数不合法。
	ErrInvalidRequest = errors.New("请求参数无效")
)

// Error 把任意搜索失败折叠为 GenericMessage；原因可通过 errors.Unwrap 取得。
type Error struct {
	Err error
}

func (e *Error) Error() string { return GenericMessage }

func (e *Error) Unwrap() error { return e.Err }

// Request 是一次搜索的输入。
type Request struct {
	Query     string
	Selection domain.Selection
	Filter    domain.FilterState
}

// Deps 是执行搜索所需的外部依赖。
type Deps struct {
	Catalog catalog.Catalog

	// Cache 为 nil 时每次执行使用一个临时缓存。
	Cache *cache.ProviderCache

	Logger *log.Logger

	// Concurrency <= 0 表示不限并发：每个条目一个 goroutine。
	Concurrency int

	// Now 用于判断 "未来日期"；为 nil 时使用 time.Now。
	Now func() time.Time
}

// Execute 执行一次搜索，返回对外稳定的 SearchReport。
func Execute(ctx context.Context, deps Deps, req Request) (domain.SearchReport, error) {
	return ExecuteWithObserver(ctx, deps, req, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
//
// 返回的 error：
// - ErrEmptyQuery / ErrInvalidRequest：没有发出任何请求，report 为零值
// - *Error：catalog 搜索失败，report.Error 为 GenericMessage
// provider 拉取失败不算错误：记录日志、计数，并按空结果缓存。
func ExecuteWithObserver(ctx context.Context, deps Deps, req Request, obs Observer) (domain.SearchReport, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return domain.SearchReport{}, ErrEmptyQuery
	}
	if req.Selection == "" {
		req.Selection = domain.SelectMovie
	}
	sel, err := domain.ParseSelection(string(req.Selection))
	if err != nil {
		return domain.SearchReport{}, fmt.Errorf("%w：%v", ErrInvalidRequest, err)
	}
	req.Selection = sel
	f, err := req.Filter.Validate()
	if err != nil {
		return domain.SearchReport{}, fmt.Errorf("%w：%v", ErrInvalidRequest, err)
	}
	req.Filter = f
	if deps.Catalog == nil {
		return domain.SearchReport{}, fmt.Errorf("%w：catalog 未配置", ErrInvalidRequest)
	}

	lg := deps.Logger
	if lg == nil {
		lg = logx.Discard()
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	pc := deps.Cache
	if pc == nil {
		pc = cache.NewProviderCache(nil)
	}

	if obs != nil {
		obs.OnStart(req)
	}

	rep := domain.SearchReport{
		Query:     req.Query,
		Selection: req.Selection,
		Filter:    req.Filter,
		StartedAt: now(),
	}

	// 1) 搜索：all 时 movie 在前、tv 在后；任一失败即整体失败。
	searchStarted := time.Now()
	var fetched []domain.SearchResult
	perType := make(map[string]any, 2)
	for _, mt := range req.Selection.MediaTypes() {
		items, err := deps.Catalog.Search(ctx, mt, req.Query)
		if err != nil {
			lg.Printf("search query=%q type=%s 失败：%v", req.Query, mt, err)
			rep.Error = GenericMessage
			rep.FinishedAt = now()
			rep.Finalize()
			return rep, &Error{Err: err}
		}
		for i := range items {
			items[i].MediaType = mt
		}
		perType[string(mt)] = len(items)
		fetched = append(fetched, items...)
	}
	rep.Summary.Fetched = len(fetched)
	if obs != nil {
		perType["fetched"] = len(fetched)
		obs.OnPhaseDone("search", perType, time.Since(searchStarted))
	}

	// 2) 过滤 + 排序。
	filterStarted := time.Now()
	kept := results.Filter(fetched, req.Filter, now())
	kept = results.Sort(kept, req.Filter.SortBy, req.Filter.Order)
	rep.Summary.Kept = len(kept)
	rep.Summary.Dropped = len(fetched) - len(kept)
	if obs != nil {
		obs.OnPhaseDone("filter", map[string]any{
			"kept":    len(kept),
			"dropped": rep.Summary.Dropped,
		}, time.Since(filterStarted))
	}

	// 3) enrich：并发拉取，按下标回写，排序结果不受完成顺序影响。
	enrichStarted := time.Now()
	failures := enrich(ctx, kept, pc, deps.Catalog, deps.Concurrency, lg, obs)
	rep.Summary.Enriched = len(kept)
	rep.Summary.ProviderFailures = failures
	if obs != nil {
		workers := deps.Concurrency
		if workers <= 0 {
			workers = len(kept)
		}
		obs.OnPhaseDone("enrich", map[string]any{
			"items":    len(kept),
			"workers":  workers,
			"failures": failures,
		}, time.Since(enrichStarted))
	}

	// 4) provider 选项 + provider 过滤。
	providersStarted := time.Now()
	rep.Enriched = kept
	rep.Providers = results.ProviderOptions(kept)
	rep.Items = results.FilterByProvider(kept, req.Filter.Provider)
	if obs != nil {
		obs.OnPhaseDone("providers", map[string]any{
			"options":   len(rep.Providers),
			"displayed": len(rep.Items),
		}, time.Since(providersStarted))
	}

	rep.FinishedAt = now()
	rep.Finalize()
	return rep, nil
}

func enrich(ctx context.Context, items []domain.SearchResult, pc *cache.ProviderCache, cat catalog.Catalog, concurrency int, lg *log.Logger, obs Observer) int {
	if len(items) == 0 {
		return 0
	}

	p := pool.New()
	if concurrency > 0 {
		p = p.WithMaxGoroutines(concurrency)
	}

	var (
		done     atomic.Int64
		failures atomic.Int64
	)
	total := len(items)
	for i := range items {
		i := i
		p.Go(func() {
			started := time.Now()
			key := items[i].Key()
			av, src, err := pc.GetOrFetch(ctx, key, cat.WatchProviders)
			if err != nil {
				failures.Add(1)
				lg.Printf("providers %s 拉取失败（按空结果处理）：%v", key, err)
			}
			items[i].Providers = av
			items[i].TopProviders = results.TopProviders(av, results.TopProviderLimit)

			n := int(done.Add(1))
			if obs != nil {
				obs.OnItemDone(n, total, items[i], src, err, time.Since(started))
			}
		})
	}
	p.Wait()
	return int(failures.Load())
}

// Refilter 只重新应用 provider 过滤（切换 provider 下拉框时无需重新请求）。
func Refilter(rep domain.SearchReport, provider string) domain.SearchReport {
	provider = strings.TrimSpace(provider)
	rep.Filter.Provider = provider
	rep.Items = results.FilterByProvider(rep.Enriched, provider)
	rep.Finalize()
	return rep
}
