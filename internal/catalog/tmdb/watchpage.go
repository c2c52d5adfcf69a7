package tmdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/domain"
)

const maxWatchPage = 4 << 20

// WatchLinks 抓取 watch/providers 响应里的 link 页面，并解析出各服务的外链。
func (c *Client) WatchLinks(ctx context.Context, pageURL string) ([]domain.WatchLink, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, &catalog.Error{Catalog: Name, Stage: "links", Err: errors.New("pageURL 不能为空")}
	}
	html, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, &catalog.Error{Catalog: Name, Stage: "links", Err: err}
	}
	links, err := ParseWatchLinks(html, pageURL)
	if err != nil {
		return nil, &catalog.Error{Catalog: Name, Stage: "links", Err: err}
	}
	return links, nil
}

func (c *Client) fetchPage(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &catalog.HTTPStatusError{URL: catalog.RedactURL(u), StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxWatchPage))
}

// ParseWatchLinks 解析 TMDB watch 页面。纯函数：只依赖 html 与 pageURL。
//
// 页面结构：每种供应方式一个 div.ott_provider，标题 h3 为 Stream/Rent/Buy/Ads/Free，
// 其下 ul.providers li a 为外链（title 形如 "Watch Dune on Netflix"）。
// 相对链接按 pageURL 解析；同一 (provider, kind) 只保留第一条。
func ParseWatchLinks(html []byte, pageURL string) ([]domain.WatchLink, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("非法 pageURL：%w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := []domain.WatchLink{}
	seen := make(map[string]struct{})
	doc.Find("div.ott_provider").Each(func(_ int, sec *goquery.Selection) {
		kind := offerKindFromHeader(sec.Find("h3").First().Text())
		sec.Find("ul.providers li a").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" {
				return
			}
			name := providerNameFromAnchor(a)
			if name == "" {
				return
			}
			key := string(kind) + "\x00" + name
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			links = append(links, domain.WatchLink{
				Provider: name,
				Kind:     kind,
				URL:      resolveURL(base, href),
			})
		})
	})
	return links, nil
}

func offerKindFromHeader(h string) domain.OfferKind {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "stream", "streaming", "flatrate":
		return domain.OfferFlatrate
	case "buy":
		return domain.OfferBuy
	case "rent":
		return domain.OfferRent
	case "ads":
		return domain.OfferAds
	case "free":
		return domain.OfferFree
	default:
		return ""
	}
}

func providerNameFromAnchor(a *goquery.Selection) string {
	if title, ok := a.Attr("title"); ok {
		title = strings.TrimSpace(title)
		if i := strings.LastIndex(title, " on "); i >= 0 {
			if name := strings.TrimSpace(title[i+len(" on "):]); name != "" {
				return name
			}
		}
	}
	if alt, ok := a.Find("img").First().Attr("alt"); ok {
		return strings.TrimSpace(alt)
	}
	return ""
}

func resolveURL(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}
