package search

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

type stubCatalog struct {
	results   map[domain.MediaType][]domain.SearchResult
	searchErr error

	providers    map[domain.TitleKey]domain.Availability
	providerErrs map[domain.TitleKey]error
	delay        time.Duration

	searchCalls   atomic.Int32
	providerCalls atomic.Int32
	active        atomic.Int32
	maxActive     atomic.Int32
}

func (c *stubCatalog) Name() string { return "stub" }

func (c *stubCatalog) Search(ctx context.Context, mt domain.MediaType, query string) ([]domain.SearchResult, error) {
	c.searchCalls.Add(1)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return append([]domain.SearchResult(nil), c.results[mt]...), nil
}

func (c *stubCatalog) WatchProviders(ctx context.Context, key domain.TitleKey) (domain.Availability, error) {
	c.providerCalls.Add(1)
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		m := c.maxActive.Load()
		if n <= m || c.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if err := c.providerErrs[key]; err != nil {
		return nil, err
	}
	return c.providers[key], nil
}

func flat(id int, name string) domain.Availability {
	return domain.Availability{"US": {Flatrate: []domain.Provider{{ID: id, Name: name, LogoPath: "/" + name + ".png"}}}}
}

func newStub() *stubCatalog {
	return &stubCatalog{
		results: map[domain.MediaType][]domain.SearchResult{
			domain.MediaMovie: {
				{ID: 1, Title: "Old", ReleaseDate: "1999-01-01", VoteAverage: 6},
				{ID: 2, Title: "New", ReleaseDate: "2020-01-01", VoteAverage: 8},
				{ID: 3, Title: "Future", ReleaseDate: "2030-01-01"},
				{ID: 4, Title: "Undated"},
			},
			domain.MediaTV: {
				{ID: 10, Name: "Show", FirstAirDate: "2010-01-01", VoteAverage: 9},
			},
		},
		providers: map[domain.TitleKey]domain.Availability{
			{MediaType: domain.MediaMovie, ID: 1}: flat(8, "Netflix"),
			{MediaType: domain.MediaMovie, ID: 2}: flat(9, "Prime"),
			{MediaType: domain.MediaTV, ID: 10}:   flat(8, "Netflix"),
		},
	}
}

func TestExecute_EmptyQueryNoRequests(t *testing.T) {
	cat := newStub()
	_, err := Execute(context.Background(), Deps{Catalog: cat}, Request{Query: "   "})
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, cat.searchCalls.Load())
}

func TestExecute_InvalidRequest(t *testing.T) {
	cat := newStub()
	_, err := Execute(context.Background(), Deps{Catalog: cat}, Request{Query: "x", Selection: "anime"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Execute(context.Background(), Deps{Catalog: cat}, Request{Query: "x", Filter: domain.FilterState{MinDate: "yesterday"}})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, cat.searchCalls.Load())
}

func TestExecute_PipelineFilterSortEnrich(t *testing.T) {
	cat := newStub()
	rep, err := Execute(context.Background(), Deps{Catalog: cat, Now: fixedNow}, Request{Query: " dune "})
	require.NoError(t, err)

	assert.Equal(t, "dune", rep.Query)
	assert.Equal(t, domain.SelectMovie, rep.Selection)
	require.Len(t, rep.Items, 2)
	// 未来日期与无日期被丢弃；默认按日期倒序。
	assert.Equal(t, 2, rep.Items[0].ID)
	assert.Equal(t, 1, rep.Items[1].ID)
	assert.Equal(t, domain.MediaMovie, rep.Items[0].MediaType)
	assert.Equal(t, []domain.TopProvider{{ID: 9, Name: "Prime", Logo: "/Prime.png"}}, rep.Items[0].TopProviders)

	assert.Equal(t, domain.ReportSummary{Fetched: 4, Dropped: 2, Kept: 2, Enriched: 2, Displayed: 2}, rep.Summary)
	require.Len(t, rep.Providers, 2)
	assert.Equal(t, "Netflix", rep.Providers[0].Label)
	assert.Equal(t, "Prime", rep.Providers[1].Label)
	assert.EqualValues(t, 2, cat.providerCalls.Load())
}

func TestExecute_AllSelectionMovieFirstThenTV(t *testing.T) {
	cat := newStub()
	f := domain.FilterState{SortBy: domain.SortVoteAverage, Order: domain.OrderDesc}
	rep, err := Execute(context.Background(), Deps{Catalog: cat, Now: fixedNow}, Request{Query: "x", Selection: domain.SelectAll, Filter: f})
	require.NoError(t, err)

	require.Len(t, rep.Items, 3)
	assert.Equal(t, 10, rep.Items[0].ID)
	assert.Equal(t, domain.MediaTV, rep.Items[0].MediaType)
	assert.Equal(t, 2, rep.Items[1].ID)
	assert.EqualValues(t, 2, cat.searchCalls.Load())
}

func TestExecute_SearchFailureCollapsesToGenericMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	cat := newStub()
	cat.searchErr = cause

	rep, err := Execute(context.Background(), Deps{Catalog: cat, Now: fixedNow}, Request{Query: "x"})
	require.Error(t, err)
	assert.Equal(t, GenericMessage, err.Error())
	assert.ErrorIs(t, err, cause)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, GenericMessage, rep.Error)
	assert.Empty(t, rep.Items)
	assert.NotNil(t, rep.Items)
	assert.Zero(t, cat.providerCalls.Load())
}

func TestExecute_ProviderFailureSwallowedAndCachedEmpty(t *testing.T) {
	cat := newStub()
	cat.providerErrs = map[domain.TitleKey]error{
		{MediaType: domain.MediaMovie, ID: 2}: errors.New("HTTP 500"),
	}
	pc := cache.NewProviderCache(nil)

	rep, err := Execute(context.Background(), Deps{Catalog: cat, Cache: pc, Now: fixedNow}, Request{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.ProviderFailures)
	require.Len(t, rep.Items, 2)
	assert.Empty(t, rep.Items[0].Providers)
	assert.Empty(t, rep.Items[0].TopProviders)

	// 第二次搜索：全部命中缓存，失败的条目不再重试。
	rep, err = Execute(context.Background(), Deps{Catalog: cat, Cache: pc, Now: fixedNow}, Request{Query: "x"})
	require.NoError(t, err)
	assert.Zero(t, rep.Summary.ProviderFailures)
	assert.EqualValues(t, 2, cat.providerCalls.Load())
}

func TestExecute_ProviderFilterAndRefilter(t *testing.T) {
	cat := newStub()
	f := domain.DefaultFilter()
	f.Provider = "8"

	rep, err := Execute(context.Background(), Deps{Catalog: cat, Now: fixedNow}, Request{Query: "x", Filter: f})
	require.NoError(t, err)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, 1, rep.Items[0].ID)
	// 选项来自过滤前的完整结果。
	assert.Len(t, rep.Providers, 2)
	assert.Len(t, rep.Enriched, 2)

	all := Refilter(rep, "")
	assert.Equal(t, 2, all.Summary.Displayed)
	assert.Equal(t, "", all.Filter.Provider)

	prime := Refilter(rep, "Prime")
	require.Len(t, prime.Items, 1)
	assert.Equal(t, 2, prime.Items[0].ID)
	assert.EqualValues(t, 2, cat.providerCalls.Load())
}

func TestExecute_ConcurrencyCap(t *testing.T) {
	cat := newStub()
	var many []domain.SearchResult
	for i := 1; i <= 12; i++ {
		many = append(many, domain.SearchResult{ID: 100 + i, Title: "t", ReleaseDate: "2001-01-01"})
	}
	cat.results[domain.MediaMovie] = many
	cat.delay = 10 * time.Millisecond

	_, err := Execute(context.Background(), Deps{Catalog: cat, Concurrency: 2, Now: fixedNow}, Request{Query: "x"})
	require.NoError(t, err)
	assert.LessOrEqual(t, cat.maxActive.Load(), int32(2))
	assert.EqualValues(t, 12, cat.providerCalls.Load())
}

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	items      []int
}

func (o *recordObserver) OnStart(req Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnItemDone(idx, total int, item domain.SearchResult, src cache.Source, err error, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, item.ID)
}

func TestExecuteWithObserver_EmitsPhaseAndItemEvents(t *testing.T) {
	obs := &recordObserver{}
	_, err := ExecuteWithObserver(context.Background(), Deps{Catalog: newStub(), Now: fixedNow}, Request{Query: "x"}, obs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"search", "filter", "enrich", "providers"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	if len(obs.items) != 2 {
		t.Fatalf("条目事件不符合预期：items=%v", obs.items)
	}
}

func TestExecuteWithObserver_NilObserver_SameResultAsExecute(t *testing.T) {
	deps := Deps{Catalog: newStub(), Now: fixedNow}
	a, errA := Execute(context.Background(), deps, Request{Query: "x"})
	deps.Catalog = newStub()
	b, errB := ExecuteWithObserver(context.Background(), deps, Request{Query: "x"}, nil)
	if errA != nil || errB != nil {
		t.Fatalf("不期望错误：%v / %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nil observer 不应改变结果：\nExecute=%+v\nWithObs=%+v", a, b)
	}
}
