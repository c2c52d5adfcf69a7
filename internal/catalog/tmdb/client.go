// Package tmdb 实现基于 TMDB v3 API 的 catalog。
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/domain"
)

const (
	Name = "tmdb"

	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	DefaultLanguage     = "en-US"

	// 错误响应体只读这么多，足够拿到 status_message。
	maxErrorBody = 64 << 10
)

// Client 是 TMDB catalog 实现。零值不可用，请使用 New。
type Client struct {
	BaseURL  string
	APIKey   string
	Language string
	HTTP     *http.Client
}

func New(baseURL, apiKey, language string, hc *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		BaseURL:  baseURL,
		APIKey:   strings.TrimSpace(apiKey),
		Language: language,
		HTTP:     hc,
	}
}

func (c *Client) Name() string { return Name }

type searchResponse struct {
	Page         int                   `json:"page"`
	Results      []domain.SearchResult `json:"results"`
	TotalResults int                   `json:"total_results"`
}

// Search 只取第一页（TMDB 每页 20 条），不包含成人内容。
func (c *Client) Search(ctx context.Context, mt domain.MediaType, query string) ([]domain.SearchResult, error) {
	if mt != domain.MediaMovie && mt != domain.MediaTV {
		return nil, &catalog.Error{Catalog: Name, Stage: "search", Err: fmt.Errorf("不支持的 media type：%q", mt)}
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("language", c.Language)
	q.Set("include_adult", "false")
	q.Set("page", "1")

	var resp searchResponse
	if err := c.getJSON(ctx, "/search/"+string(mt), q, &resp); err != nil {
		return nil, &catalog.Error{Catalog: Name, Stage: "search", Err: err}
	}

	out := make([]domain.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		r.MediaType = mt
		r.Providers = nil
		r.TopProviders = nil
		out = append(out, r)
	}
	return out, nil
}

type watchProvidersResponse struct {
	ID      int                 `json:"id"`
	Results domain.Availability `json:"results"`
}

// WatchProviders 返回 国家代码 -> 可用情况；没有任何数据时返回空 map。
func (c *Client) WatchProviders(ctx context.Context, key domain.TitleKey) (domain.Availability, error) {
	if key.ID <= 0 {
		return nil, &catalog.Error{Catalog: Name, Stage: "providers", Err: fmt.Errorf("非法 id：%d", key.ID)}
	}
	path := "/" + string(key.MediaType) + "/" + strconv.Itoa(key.ID) + "/watch/providers"

	var resp watchProvidersResponse
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, &catalog.Error{Catalog: Name, Stage: "providers", Err: err}
	}
	if resp.Results == nil {
		return domain.Availability{}, nil
	}
	return resp.Results, nil
}

type statusBody struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.APIKey)
	u := c.BaseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// *url.Error 会带上完整 URL（含 api_key），这里只保留底层原因。
		var ue *url.Error
		if errors.As(err, &ue) {
			return fmt.Errorf("GET %s: %w", catalog.RedactURL(u), ue.Err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var sb statusBody
		_ = json.Unmarshal(b, &sb)
		return &catalog.HTTPStatusError{
			URL:        catalog.RedactURL(u),
			StatusCode: resp.StatusCode,
			Message:    sb.StatusMessage,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败：%w", err)
	}
	return nil
}
