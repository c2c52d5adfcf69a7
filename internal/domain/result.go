package domain

import (
	"strconv"
	"time"
)

// DateLayout 是 catalog 日期字段的格式（YYYY-MM-DD）。
const DateLayout = "2006-01-02"

// SearchResult 是 catalog 搜索返回的单条记录，附加 media type 标签；
// enrich 之后再附加 Providers 与 TopProviders。
//
// movie 使用 Title/ReleaseDate，tv 使用 Name/FirstAirDate；两者都保留以便原样输出。
type SearchResult struct {
	ID            int       `json:"id"`
	MediaType     MediaType `json:"media_type"`
	Title         string    `json:"title,omitempty"`
	Name          string    `json:"name,omitempty"`
	OriginalTitle string    `json:"original_title,omitempty"`
	OriginalName  string    `json:"original_name,omitempty"`
	Overview      string    `json:"overview,omitempty"`
	PosterPath    string    `json:"poster_path,omitempty"`
	BackdropPath  string    `json:"backdrop_path,omitempty"`
	ReleaseDate   string    `json:"release_date,omitempty"`
	FirstAirDate  string    `json:"first_air_date,omitempty"`
	VoteAverage   float64   `json:"vote_average"`
	VoteCount     int       `json:"vote_count"`
	Popularity    float64   `json:"popularity"`
	GenreIDs      []int     `json:"genre_ids,omitempty"`
	OriginalLang  string    `json:"original_language,omitempty"`

	Providers    Availability  `json:"providers,omitempty"`
	TopProviders []TopProvider `json:"top_providers,omitempty"`
}

// DisplayTitle 返回 title，缺失时回退 name。
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Date 返回 release_date，缺失时回退 first_air_date（原始字符串）。
func (r SearchResult) Date() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

// ParsedDate 解析 Date()；空或格式非法时 ok=false。
func (r SearchResult) ParsedDate() (time.Time, bool) {
	d := r.Date()
	if d == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, d)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Key 是 provider 缓存的键：(media type, id)。
func (r SearchResult) Key() TitleKey {
	return TitleKey{MediaType: r.MediaType, ID: r.ID}
}

// TitleKey 唯一定位 catalog 中的一个条目。
type TitleKey struct {
	MediaType MediaType
	ID        int
}

func (k TitleKey) String() string {
	return string(k.MediaType) + ":" + strconv.Itoa(k.ID)
}
