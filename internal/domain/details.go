package domain

// Service 是详情表格中一个国家下的单个服务（带供应方式）。
// 同一 provider 可能以 buy 与 rent 两种方式同时出现。
type Service struct {
	Provider
	Kind OfferKind `json:"kind"`
}

// CountryRow 是详情表格的一行。
type CountryRow struct {
	Country     string    `json:"country"`
	CountryName string    `json:"country_name"`
	Link        string    `json:"link,omitempty"`
	Services    []Service `json:"services"`
}

// DetailsView 是对某个条目 provider 数据按国家重新投影的结果。
type DetailsView struct {
	ID        int              `json:"id"`
	MediaType MediaType        `json:"media_type"`
	Title     string           `json:"title,omitempty"`
	Service   string           `json:"service,omitempty"`
	Options   []ProviderOption `json:"options"`
	Rows      []CountryRow     `json:"rows"`
}

// WatchLink 是从 watch 页面解析出的单个外链。
type WatchLink struct {
	Provider string    `json:"provider"`
	Kind     OfferKind `json:"kind,omitempty"`
	URL      string    `json:"url"`
}
