package nfo

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/streamscout/internal/domain"
)

// RatingName 是 ratings 节点里 TMDB 评分的名字（Kodi 约定）。
const RatingName = "themoviedb"

type document struct {
	XMLName xml.Name

	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle,omitempty"`
	SortTitle     string `xml:"sorttitle,omitempty"`
	Plot          string `xml:"plot,omitempty"`

	Premiered string `xml:"premiered,omitempty"`
	Year      int    `xml:"year,omitempty"`

	Ratings  *ratings  `xml:"ratings,omitempty"`
	UniqueID uniqueID  `xml:"uniqueid"`
	Thumb    *thumb    `xml:"thumb,omitempty"`
	Tags     []string  `xml:"tag,omitempty"`
	Language string    `xml:"languages,omitempty"`
	Streams  []service `xml:"streaming>service,omitempty"`
}

type ratings struct {
	Rating []rating `xml:"rating"`
}

type rating struct {
	Name    string `xml:"name,attr"`
	Max     int    `xml:"max,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:"value"`
	Votes   int    `xml:"votes"`
}

type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   int    `xml:",chardata"`
}

type thumb struct {
	Aspect string `xml:"aspect,attr"`
	Value  string `xml:",chardata"`
}

type service struct {
	Country string `xml:"country,attr"`
	Kind    string `xml:"kind,attr"`
	Name    string `xml:",chardata"`
}

// Encode 把一条搜索结果转成 Kodi/Jellyfin/Emby 可读取的 NFO（XML）。
//
// 规则：
// - movie 输出 <movie>，tv 输出 <tvshow>
// - title 为空时回退到 original title
// - poster 非空时写入 <thumb aspect="poster">（相对路径，与 NFO 同目录）
// - flatrate provider 名称作为 tag；完整的国家/服务列表写入 <streaming>
func Encode(item domain.SearchResult, poster string) ([]byte, error) {
	root := "movie"
	original := item.OriginalTitle
	if item.MediaType == domain.MediaTV {
		root = "tvshow"
		original = item.OriginalName
	}

	title := strings.TrimSpace(item.DisplayTitle())
	original = strings.TrimSpace(original)
	if title == "" {
		title = original
	}
	if original == title {
		original = ""
	}

	d := document{
		XMLName:       xml.Name{Local: root},
		Title:         title,
		OriginalTitle: original,
		SortTitle:     title,
		Plot:          strings.TrimSpace(item.Overview),
		Premiered:     item.Date(),
		UniqueID:      uniqueID{Type: "tmdb", Default: true, Value: item.ID},
		Language:      strings.TrimSpace(item.OriginalLang),
	}
	if t, ok := item.ParsedDate(); ok {
		d.Year = t.Year()
	}
	if item.VoteCount > 0 || item.VoteAverage > 0 {
		d.Ratings = &ratings{Rating: []rating{{
			Name:    RatingName,
			Max:     10,
			Default: true,
			Value:   strconv.FormatFloat(item.VoteAverage, 'f', 1, 64),
			Votes:   item.VoteCount,
		}}}
	}
	if p := strings.TrimSpace(poster); p != "" {
		d.Thumb = &thumb{Aspect: "poster", Value: p}
	}
	for _, tp := range item.TopProviders {
		d.Tags = appendUnique(d.Tags, tp.Name)
	}
	d.Streams = services(item.Providers)

	b, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	// 约定：输出带 standalone="yes" 的 XML 头，便于与常见刮削器产物兼容。
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

// services 按国家代码排序展开所有供应方式；同一国家内按固定 kind 顺序。
func services(av domain.Availability) []service {
	if len(av) == 0 {
		return nil
	}
	countries := make([]string, 0, len(av))
	for c := range av {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	var out []service
	for _, c := range countries {
		for _, kind := range domain.OfferKinds {
			for _, p := range av[c].Offers(kind) {
				name := strings.TrimSpace(p.Name)
				if name == "" {
					continue
				}
				out = append(out, service{Country: c, Kind: string(kind), Name: name})
			}
		}
	}
	return out
}

func appendUnique(in []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return in
	}
	for _, v := range in {
		if v == s {
			return in
		}
	}
	return append(in, s)
}
