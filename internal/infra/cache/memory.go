package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/streamscout/internal/domain"
)

// ProviderCacheTTL 是 provider 数据的有效期。
// 内存层在一个会话内不按时间淘汰；只有磁盘层用它判断过期。
const ProviderCacheTTL = 15 * time.Minute

// Source 说明一次 GetOrFetch 的数据来自哪里。
type Source string

const (
	SourceMemory Source = "memory"
	SourceDisk   Source = "disk"
	SourceFetch  Source = "fetch"
)

// FetchFunc 从 catalog 拉取单个条目的 provider 数据。
type FetchFunc func(ctx context.Context, key domain.TitleKey) (domain.Availability, error)

// ProviderCache 是 (media type, id) -> provider 可用性 的进程内缓存。
//
// - 并发安全；同一 key 的并发拉取合并为一次（singleflight）
// - 拉取失败按空结果缓存，本会话内不再重试该 key；调用方自己取消（ctx 结束）不算失败，不缓存
// - 失败条目单独记录，DropFailed 可让需要确切结果的调用方重新拉取
// - Disk 非 nil 时作为第二层：内存未命中先查磁盘，成功拉取后回写磁盘
type ProviderCache struct {
	Disk *Store

	mu     sync.Mutex
	m      map[domain.TitleKey]domain.Availability
	failed map[domain.TitleKey]struct{}
	sf     singleflight.Group
}

func NewProviderCache(disk *Store) *ProviderCache {
	return &ProviderCache{
		Disk: disk,
		m:      make(map[domain.TitleKey]domain.Availability),
		failed: make(map[domain.TitleKey]struct{}),
	}
}

func (c *ProviderCache) Get(key domain.TitleKey) (domain.Availability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	av, ok := c.m[key]
	return av, ok
}

func (c *ProviderCache) Put(key domain.TitleKey, av domain.Availability) {
	if av == nil {
		av = domain.Availability{}
	}
	c.mu.Lock()
	c.m[key] = av
	delete(c.failed, key)
	c.mu.Unlock()
}

func (c *ProviderCache) putFailed(key domain.TitleKey) {
	c.mu.Lock()
	c.m[key] = domain.Availability{}
	c.failed[key] = struct{}{}
	c.mu.Unlock()
}

// Failed 报告 key 当前是否是按失败缓存的空结果。
func (c *ProviderCache) Failed(key domain.TitleKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[key]
	return ok
}

// DropFailed 移除按失败缓存的条目，下一次 GetOrFetch 会重新拉取。
// 正常结果不受影响；返回是否移除了条目。
func (c *ProviderCache) DropFailed(key domain.TitleKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.failed[key]; !ok {
		return false
	}
	delete(c.failed, key)
	delete(c.m, key)
	return true
}

func (c *ProviderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

type fetchResult struct {
	av  domain.Availability
	src Source
	err error
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// GetOrFetch 返回 key 的 provider 数据。
//
// err 非 nil 表示本次拉取失败：此时 av 为空 map。provider 侧的失败已写入内存缓存，
// 调用方只需要记录/计数；ctx 取消或超时导致的失败不写缓存，之后的调用会重新拉取。
// 磁盘层读写错误不影响结果。
func (c *ProviderCache) GetOrFetch(ctx context.Context, key domain.TitleKey, fetch FetchFunc) (domain.Availability, Source, error) {
	if av, ok := c.Get(key); ok {
		return av, SourceMemory, nil
	}

	var ran bool
	v, _, _ := c.sf.Do(key.String(), func() (any, error) {
		ran = true
		// 排队期间可能已被其它调用写入。
		if av, ok := c.Get(key); ok {
			return fetchResult{av: av, src: SourceMemory}, nil
		}
		if c.Disk != nil {
			if av, ok, err := c.Disk.ReadAvailability(key); err == nil && ok {
				c.Put(key, av)
				return fetchResult{av: av, src: SourceDisk}, nil
			}
		}

		av, err := fetch(ctx, key)
		if err != nil {
			if !canceled(ctx, err) {
				c.putFailed(key)
			}
			return fetchResult{av: domain.Availability{}, src: SourceFetch, err: err}, nil
		}
		if av == nil {
			av = domain.Availability{}
		}
		c.Put(key, av)
		if c.Disk != nil {
			_ = c.Disk.WriteAvailability(key, av)
		}
		return fetchResult{av: av, src: SourceFetch}, nil
	})
	res := v.(fetchResult)
	if !ran {
		// 共享了别的调用的结果：对本调用而言等同于命中内存。
		return res.av, SourceMemory, res.err
	}
	return res.av, res.src, res.err
}
