package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewAPIClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewAPIClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	base := tr.Base.(*http.Transport)
	if base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !base.DisableKeepAlives {
		t.Fatalf("期望禁用 keep-alive，但 Base.DisableKeepAlives=false")
	}
}

func TestNewAPIClient_DefaultsAndLimiter(t *testing.T) {
	c, err := NewAPIClient(Options{RatePerSecond: 2.5})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %v，实际 %v", DefaultTimeout, c.Timeout)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.(*http.Transport).Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if tr.Limiter == nil || tr.Limiter.Burst() != 3 {
		t.Fatalf("期望 burst=3 的限速器，实际 %v", tr.Limiter)
	}

	img, err := NewImageClient(Options{RatePerSecond: 2.5, Timeout: time.Second})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if img.Transport.(*Transport).Limiter != nil {
		t.Fatalf("图片 client 不应限速")
	}
	if img.Timeout != time.Second {
		t.Fatalf("期望超时 1s，实际 %v", img.Timeout)
	}
}

func TestNewAPIClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewAPIClient(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewAPIClient(Options{ProxyURL: "127.0.0.1:8080"}); err == nil {
		t.Fatalf("缺少 scheme 时期望错误，但得到 nil")
	}
}

func newTestTransport(retryMax int) *Transport {
	return &Transport{
		Base:       http.DefaultTransport,
		UserAgent:  "test-agent",
		RetryMax:   retryMax,
		RetryDelay: time.Millisecond,
	}
}

func TestTransport_RetriesRetryableStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != "test-agent" {
			t.Errorf("UA 不符合预期：%q", r.UserAgent())
		}
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &http.Client{Transport: newTestTransport(2)}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Fatalf("期望 3 次请求，实际 %d", hits.Load())
	}
}

func TestTransport_ReturnsLastResponseWhenExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &http.Client{Transport: newTestTransport(2)}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("期望 429 原样返回，实际 %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Fatalf("期望 3 次请求，实际 %d", hits.Load())
	}
}

func TestTransport_DoesNotRetryClientErrorsOrPost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &http.Client{Transport: newTestTransport(2)}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	resp, err = c.Post(srv.URL, "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if hits.Load() != 2 {
		t.Fatalf("404 与 POST 都不应重试，期望 2 次请求，实际 %d", hits.Load())
	}
}

func TestTransport_NetworkErrorRetriedThenReturned(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := &http.Client{Transport: newTestTransport(1)}
	if _, err := c.Get(addr); err == nil {
		t.Fatalf("期望网络错误，但得到 nil")
	}
}

func TestTransport_LimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tr := newTestTransport(0)
	tr.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	c := &http.Client{Transport: tr}

	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("首个请求应直接拿到令牌：%v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err == nil {
		t.Fatalf("令牌耗尽且 ctx 超时时期望错误")
	}
}
