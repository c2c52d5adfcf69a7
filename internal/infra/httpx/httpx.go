package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 15 * time.Second
	defaultRetryMax = 2
	defaultDelay    = 300 * time.Millisecond
	defaultMaxDelay = 3 * time.Second

	UserAgent = "streamscout/1.0 (+https://github.com/John-Robertt/streamscout)"
)

// Transport 把 "UA + 代理 + 出站限速 + 有界重试" 固化为统一策略。
//
// catalog 实现只负责拼请求与解析响应，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
	// RetryDelay 是首次重试前的等待，之后指数退避。
	RetryDelay time.Duration

	// Limiter 为 nil 时不限速。每次尝试（包括重试）都消耗一个令牌。
	Limiter *rate.Limiter
}

// statusError 只在重试循环内部使用：表示可重试的 HTTP 状态码。
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("HTTP %d（可重试）", e.code) }

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	ctx := req.Context()

	// 只对 "可重放" 的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}
	attempts := max + 1
	delay := t.RetryDelay
	if delay <= 0 {
		delay = defaultDelay
	}

	n := 0
	return retry.DoWithData(
		func() (*http.Response, error) {
			n++
			if t.Limiter != nil {
				if err := t.Limiter.Wait(ctx); err != nil {
					return nil, retry.Unrecoverable(err)
				}
			}

			r := req.Clone(ctx)
			if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
				r.Header.Set("User-Agent", t.UserAgent)
			}

			resp, err := t.Base.RoundTrip(r)
			if err != nil {
				return nil, err
			}
			// 最后一次尝试把响应原样交给调用方，由上层决定如何解释状态码。
			if retryableStatus(resp.StatusCode) && n < attempts {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
				_ = resp.Body.Close()
				return nil, &statusError{code: resp.StatusCode}
			}
			return resp, nil
		},
		retry.Attempts(uint(attempts)),
		retry.Context(ctx),
		retry.Delay(delay),
		retry.MaxDelay(defaultMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	)
}

// Options 描述一个 client 的网络策略。零值可用：直连、默认超时、默认重试、不限速。
type Options struct {
	ProxyURL      string
	Timeout       time.Duration
	RatePerSecond float64
}

// NewAPIClient 构造访问 catalog API 的 HTTP client。
//
// 规则：
// - ProxyURL 非空：走代理，且禁用 keep-alive（每请求新连接）
// - RatePerSecond > 0：出站令牌桶限速（突发 = ceil(rate)）
// - 有界重试（429/5xx/网络错误） + 总超时
func NewAPIClient(opts Options) (*http.Client, error) {
	c, err := newClient(strings.TrimSpace(opts.ProxyURL), opts.Timeout)
	if err != nil {
		return nil, err
	}
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if float64(burst) < opts.RatePerSecond {
			burst++
		}
		c.Transport.(*Transport).Limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// NewImageClient 构造用于海报下载的 HTTP client：与 API 共用代理与超时，但不限速。
func NewImageClient(opts Options) (*http.Client, error) {
	return newClient(strings.TrimSpace(opts.ProxyURL), opts.Timeout)
}

func newClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxIdleConnsPerHost:   16,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy.url 必须包含 scheme 与 host：%q", proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &Transport{
		Base:      base,
		UserAgent: UserAgent,
		RetryMax:  defaultRetryMax,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
