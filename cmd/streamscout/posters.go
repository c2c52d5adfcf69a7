package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/John-Robertt/streamscout/internal/catalog/tmdb"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/fsx"
	"github.com/John-Robertt/streamscout/internal/infra/imgx"
	"github.com/John-Robertt/streamscout/internal/nfo"
)

const (
	posterWorkers    = 4
	posterThumbWidth = 185
	maxPosterBytes   = 10 << 20
)

type posterResult struct {
	saved   int
	skipped int
	failed  int
	nfo     int
}

func posterFileName(it domain.SearchResult) string {
	return fmt.Sprintf("%s-%d.jpg", it.MediaType, it.ID)
}

func nfoFileName(it domain.SearchResult) string {
	return fmt.Sprintf("%s-%d.nfo", it.MediaType, it.ID)
}

// savePosters 下载每个结果的海报，缩放为缩略图后原子写入 dir。
// 没有 poster_path 的条目跳过；单个失败只记日志与计数。
// withNFO 为 true 时每个条目额外写入一个 NFO（海报保存成功时引用它）。
func savePosters(ctx context.Context, hc *http.Client, imageBase, dir string, items []domain.SearchResult, withNFO bool, lg *log.Logger) posterResult {
	var (
		mu  sync.Mutex
		res posterResult
	)
	if err := fsx.EnsureDir(dir); err != nil {
		lg.Printf("posters 创建目录 %s 失败：%v", dir, err)
		res.failed = len(items)
		return res
	}

	p := pool.New().WithMaxGoroutines(posterWorkers)
	for _, it := range items {
		it := it
		u := tmdb.ImageURL(imageBase, tmdb.PosterSize, it.PosterPath)
		p.Go(func() {
			var (
				poster string
				err    error
				nfoErr error
			)
			if u != "" {
				err = savePoster(ctx, hc, u, dir, posterFileName(it))
				if err == nil {
					poster = posterFileName(it)
				}
			}
			if withNFO {
				nfoErr = saveNFO(dir, it, poster)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case u == "":
				res.skipped++
			case err != nil:
				lg.Printf("posters %s 失败：%v", it.Key(), err)
				res.failed++
			default:
				res.saved++
			}
			if nfoErr != nil {
				lg.Printf("nfo %s 失败：%v", it.Key(), nfoErr)
				res.failed++
			} else if withNFO {
				res.nfo++
			}
		})
	}
	p.Wait()
	return res
}

func savePoster(ctx context.Context, hc *http.Client, u, dir, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
	if err != nil {
		return err
	}
	thumb, err := imgx.ThumbnailJPEG(b, posterThumbWidth)
	if err != nil {
		return fmt.Errorf("缩放失败：%w", err)
	}
	return fsx.WriteFileAtomic(dir, name, thumb)
}

func saveNFO(dir string, it domain.SearchResult, poster string) error {
	b, err := nfo.Encode(it, poster)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, nfoFileName(it), b)
}
