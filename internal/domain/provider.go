package domain

// OfferKind 是某个国家内的供应方式。
type OfferKind string

const (
	OfferFlatrate OfferKind = "flatrate"
	OfferBuy      OfferKind = "buy"
	OfferRent     OfferKind = "rent"
	OfferAds      OfferKind = "ads"
	OfferFree     OfferKind = "free"
)

// OfferKinds 是详情视图展示时的固定顺序。
var OfferKinds = []OfferKind{OfferFlatrate, OfferBuy, OfferRent, OfferAds, OfferFree}

// Provider 对应 watch/providers 响应中的单个服务商条目。
type Provider struct {
	ID              int    `json:"provider_id"`
	Name            string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

// CountryAvailability 描述某个国家（ISO-3166-1）的可用情况。
type CountryAvailability struct {
	Link     string     `json:"link,omitempty"`
	Flatrate []Provider `json:"flatrate,omitempty"`
	Buy      []Provider `json:"buy,omitempty"`
	Rent     []Provider `json:"rent,omitempty"`
	Ads      []Provider `json:"ads,omitempty"`
	Free     []Provider `json:"free,omitempty"`
}

// Offers 按 kind 取对应列表；未知 kind 返回 nil。
func (c CountryAvailability) Offers(kind OfferKind) []Provider {
	switch kind {
	case OfferFlatrate:
		return c.Flatrate
	case OfferBuy:
		return c.Buy
	case OfferRent:
		return c.Rent
	case OfferAds:
		return c.Ads
	case OfferFree:
		return c.Free
	default:
		return nil
	}
}

// Availability 是 国家代码 -> 可用情况。
// 空 map 与 nil 语义相同：没有任何 provider 信息。
type Availability map[string]CountryAvailability

// TopProvider 是结果卡片上展示的 provider 摘要。
type TopProvider struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// ProviderOption 用于填充 provider 下拉框（按 id 去重）。
type ProviderOption struct {
	Value string `json:"value"` // provider id 的十进制字符串
	Label string `json:"label"`
	Logo  string `json:"logo,omitempty"`
}
