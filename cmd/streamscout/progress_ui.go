package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
)

var _ search.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的搜索进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：search 层只发事件，CLI 决定如何展示
// - keepalive：provider 拉取长时间没有完成时也会定期输出一行
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	cached  int
	fail    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(req search.Request) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] streamscout search %q (%s)\n", now.Format("15:04:05"), req.Query, req.Selection)
	fmt.Fprintln(p.w, "配置（生效）:")
	if p.eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  catalog: %s (%s)\n", truncate(p.eff.BaseURL, 120), p.eff.Language)
	fmt.Fprintf(p.w, "  concurrency: %s\n", formatConcurrency(p.eff.Concurrency))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", formatCacheDir(p.eff.CacheDir, p.eff.CacheTTL))
	fmt.Fprintln(p.w, "过滤:")
	fmt.Fprintf(p.w, "  %s\n", formatFilter(req.Filter))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "search":
		fmt.Fprintf(p.w, "搜索: movie=%d tv=%d fetched=%d (%s)\n",
			intField(fields, string(domain.MediaMovie)),
			intField(fields, string(domain.MediaTV)),
			intField(fields, "fetched"),
			formatShortDuration(dur),
		)
	case "filter":
		p.total = intField(fields, "kept")
		p.workers = p.eff.Concurrency
		if p.workers <= 0 || p.workers > p.total {
			p.workers = p.total
		}
		fmt.Fprintf(p.w, "过滤: kept=%d dropped=%d (%s)\n",
			p.total, intField(fields, "dropped"), formatShortDuration(dur),
		)
		if p.total > 0 {
			fmt.Fprintf(p.w, "providers: workers=%d total_items=%d\n\n", p.workers, p.total)
			if !p.tickerStarted {
				p.startTickerLocked()
			}
		}
	case "enrich":
		fmt.Fprintf(p.w, "\nproviders: items=%d failures=%d (%s)\n",
			intField(fields, "items"), intField(fields, "failures"), formatShortDuration(dur),
		)
		p.stopTickerLocked()
	case "providers":
		fmt.Fprintf(p.w, "汇总: options=%d displayed=%d (%s)\n",
			intField(fields, "options"), intField(fields, "displayed"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, item domain.SearchResult, src cache.Source, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	title := truncate(item.DisplayTitle(), 60)
	switch {
	case err != nil:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s %q FAIL: %s (%s)\n",
			idx, total, item.Key(), title, truncate(err.Error(), 160), formatShortDuration(dur),
		)
	default:
		if src != cache.SourceFetch {
			p.cached++
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %q OK countries=%d top=%s src=%s (%s)\n",
			idx, total, item.Key(), title, len(item.Providers), formatTopProviders(item.TopProviders), src, formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()

	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stopCh := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					active := min(p.workers, p.total-p.done)
					fmt.Fprintf(p.w, "进度: done=%d/%d cached=%d fail=%d active=%d elapsed=%s\n",
						p.done, p.total, p.cached, p.fail, active, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func formatFilter(f domain.FilterState) string {
	parts := []string{
		"sort=" + string(f.SortBy),
		"order=" + string(f.Order),
	}
	if f.MinDate != "" {
		parts = append(parts, "min_date="+f.MinDate)
	}
	if f.MaxDate != "" {
		parts = append(parts, "max_date="+f.MaxDate)
	}
	if f.MinRating != nil {
		parts = append(parts, "min_rating="+strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	if f.Provider != "" {
		parts = append(parts, "provider="+f.Provider)
	}
	return strings.Join(parts, " ")
}

func formatTopProviders(tops []domain.TopProvider) string {
	if len(tops) == 0 {
		return "-"
	}
	names := make([]string, 0, len(tops))
	for _, tp := range tops {
		names = append(names, tp.Name)
	}
	return strings.Join(names, ",")
}

func formatConcurrency(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return strconv.Itoa(n)
}

func formatCacheDir(dir string, ttl time.Duration) string {
	if strings.TrimSpace(dir) == "" {
		return "memory"
	}
	return fmt.Sprintf("memory + disk (%s, ttl=%s)", dir, ttl)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
