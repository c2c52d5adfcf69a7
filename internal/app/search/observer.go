package search

import (
	"time"

	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
)

// Observer 用于把 "搜索进度/阶段/条目结果" 从核心执行流程中解耦出来。
//
// 约束：
// - search 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约，也不干扰 TUI）。
// - Observer 的实现必须并发安全：OnItemDone 来自多个 goroutine。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 通过参数校验后立即调用。
	OnStart(req Request)
	// OnPhaseDone 在阶段结束时调用：search / filter / enrich / providers。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个条目的 provider 数据就绪时调用；err 非 nil 表示拉取失败（已按空结果缓存）。
	OnItemDone(idx, total int, item domain.SearchResult, src cache.Source, err error, dur time.Duration)
}
