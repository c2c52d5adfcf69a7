package domain

import (
	"encoding/json"
	"time"
)

// SearchReport 是一次搜索对外稳定的输出（stdout JSON / HTTP 响应 / TUI 状态）。
type SearchReport struct {
	Query     string      `json:"query"`
	Selection Selection   `json:"type"`
	Filter    FilterState `json:"filter"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary   ReportSummary    `json:"summary"`
	Items     []SearchResult   `json:"items"`
	Providers []ProviderOption `json:"providers"`

	// Error 是面向用户的通用错误信息；成功时为空。
	Error string `json:"error,omitempty"`

	// Enriched 是 provider 过滤之前的完整结果（已过滤+排序+enrich）。
	// 只在进程内使用：切换 provider 过滤时无需重新请求。
	Enriched []SearchResult `json:"-"`
}

type ReportSummary struct {
	Fetched          int `json:"fetched"`
	Dropped          int `json:"dropped"`
	Kept             int `json:"kept"`
	Enriched         int `json:"enriched"`
	ProviderFailures int `json:"provider_failures"`
	Displayed        int `json:"displayed"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片规范为空切片（JSON 输出 [] 而不是 null），并刷新 Displayed
func (r *SearchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []SearchResult{}
	}
	if r.Providers == nil {
		r.Providers = []ProviderOption{}
	}
	r.Summary.Displayed = len(r.Items)
}

// MarshalJSON 仅用于集中约束输出的稳定性。
// 当前只是透传 encoding/json 的默认行为。
func (r SearchReport) MarshalJSON() ([]byte, error) {
	type Alias SearchReport
	return json.Marshal(Alias(r))
}
