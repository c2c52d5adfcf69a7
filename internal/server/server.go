// Package server 提供只读的 HTTP JSON API：搜索与单个条目的国家/服务表格。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/John-Robertt/streamscout/internal/app/details"
	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
	"github.com/John-Robertt/streamscout/internal/infra/logx"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Options 是服务端可调参数。
type Options struct {
	// RatePerMinute 是每个客户端 IP 每分钟的请求上限；<= 0 表示不限流。
	RatePerMinute int
}

// Server 持有共享的 catalog 与 provider 缓存；所有请求并发复用同一个缓存。
type Server struct {
	deps   search.Deps
	logger *log.Logger
	router *mux.Router
}

// New 构造 Server。deps.Cache 为 nil 时创建一个进程级内存缓存。
func New(deps search.Deps, opts Options) *Server {
	if deps.Cache == nil {
		deps.Cache = cache.NewProviderCache(nil)
	}
	lg := deps.Logger
	if lg == nil {
		lg = logx.Discard()
	}
	s := &Server{deps: deps, logger: lg}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware(lg))
	if opts.RatePerMinute > 0 {
		r.Use(rateLimitMiddleware(NewIPRateLimiter(opts.RatePerMinute)))
	}
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/titles/{type}/{id:[0-9]+}/providers", s.handleProviders).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe 监听 addr，直到 ctx 结束后优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("serve 监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseSearchRequest 把查询参数映射为 search.Request；校验留给 search 包。
func parseSearchRequest(r *http.Request) (search.Request, error) {
	q := r.URL.Query()
	rating, err := domain.ParseRating(q.Get("min_rating"))
	if err != nil {
		return search.Request{}, err
	}
	return search.Request{
		Query:     q.Get("query"),
		Selection: domain.Selection(q.Get("type")),
		Filter: domain.FilterState{
			MinDate:   q.Get("min_date"),
			MaxDate:   q.Get("max_date"),
			MinRating: rating,
			SortBy:    domain.SortKey(q.Get("sort")),
			Order:     domain.SortOrder(q.Get("order")),
			Provider:  q.Get("provider"),
		},
	}, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := search.Execute(r.Context(), s.deps, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rep)
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("search id=%s 失败：%v", RequestID(r.Context()), errors.Unwrap(err))
		writeError(w, http.StatusBadGateway, search.GenericMessage)
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mt, err := domain.ParseMediaType(vars["type"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id 必须是正整数")
		return
	}

	key := domain.TitleKey{MediaType: mt, ID: id}
	view, err := details.Load(r.Context(), s.deps.Catalog, s.deps.Cache, key, "", r.URL.Query().Get("service"))
	if err != nil {
		s.logger.Printf("providers %s id=%s 失败：%v", key, RequestID(r.Context()), err)
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "条目不存在")
			return
		}
		writeError(w, http.StatusBadGateway, search.GenericMessage)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
