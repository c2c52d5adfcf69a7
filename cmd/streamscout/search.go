package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/domain"
	"github.com/John-Robertt/streamscout/internal/infra/fsx"
)

type searchFlags struct {
	typ       string
	sort      string
	order     string
	minDate   string
	maxDate   string
	minRating string
	provider  string
	posters   string
	nfo       bool
}

func newSearchCmd(c *cli) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "搜索并输出结果（非 TTY 时 stdout 只输出一个 JSON）",
		Args:  wrapArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if f.nfo && strings.TrimSpace(f.posters) == "" {
				return usagef("--nfo 需要同时指定 --posters")
			}
			return c.runSearch(cmd, req, f.posters, f.nfo)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.typ, "type", string(domain.SelectMovie), "类型：movie|series|tv|all")
	fl.StringVar(&f.sort, "sort", string(domain.SortReleaseDate), "排序字段：release_date|vote_average")
	fl.StringVar(&f.order, "order", string(domain.OrderDesc), "排序方向：desc|asc")
	fl.StringVar(&f.minDate, "min-date", "", "最早日期（YYYY-MM-DD）")
	fl.StringVar(&f.maxDate, "max-date", "", "最晚日期（YYYY-MM-DD）")
	fl.StringVar(&f.minRating, "min-rating", "", "最低评分（0-10）")
	fl.StringVar(&f.provider, "provider", "", "只保留在任一国家以订阅方式提供的 provider（id 或名称）")
	fl.StringVar(&f.posters, "posters", "", "把结果海报缩略图保存到该目录")
	fl.BoolVar(&f.nfo, "nfo", false, "同时在 --posters 目录为每个结果写入 Kodi NFO")
	return cmd
}

// request 把命令行参数映射为 search.Request，并提前做校验（参数错误走退出码 2）。
func (f searchFlags) request(query string) (search.Request, error) {
	if strings.TrimSpace(query) == "" {
		return search.Request{}, usagef("查询不能为空")
	}
	sel, err := domain.ParseSelection(f.typ)
	if err != nil {
		return search.Request{}, &usageError{err: err}
	}
	rating, err := domain.ParseRating(f.minRating)
	if err != nil {
		return search.Request{}, &usageError{err: err}
	}
	filter, err := domain.FilterState{
		MinDate:   f.minDate,
		MaxDate:   f.maxDate,
		MinRating: rating,
		SortBy:    domain.SortKey(f.sort),
		Order:     domain.SortOrder(f.order),
		Provider:  f.provider,
	}.Validate()
	if err != nil {
		return search.Request{}, &usageError{err: err}
	}
	return search.Request{Query: query, Selection: sel, Filter: filter}, nil
}

func (c *cli) runSearch(cmd *cobra.Command, req search.Request, postersDir string, withNFO bool) error {
	if strings.TrimSpace(postersDir) != "" {
		if err := fsx.EnsureDir(postersDir); err != nil {
			if fsx.IsPathTypeConflict(err) {
				return usagef("--posters 必须是目录：%v", err)
			}
			return fmt.Errorf("创建海报目录失败：%w", err)
		}
	}

	rt, err := c.load(cmd, config.CLIArgs{}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter(c.stdout, c.stderr)
	var obs search.Observer
	if interactive {
		obs = newProgressUI(progressW, rt.eff)
	}

	rep, err := search.ExecuteWithObserver(ctx, rt.deps, req, obs)
	switch {
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidRequest):
		return &usageError{err: err}
	case err != nil:
		rt.logger.Printf("search query=%q 失败：%v", req.Query, errors.Unwrap(err))
		emitSearchReport(c.stdout, c.stderr, rep)
		return &exitError{code: 1}
	}

	emitSearchReport(c.stdout, c.stderr, rep)

	if strings.TrimSpace(postersDir) == "" {
		return nil
	}
	hc, err := rt.imageClient()
	if err != nil {
		return fmt.Errorf("初始化图片 client 失败：%w", err)
	}
	res := savePosters(ctx, hc, rt.eff.ImageBaseURL, postersDir, rep.Items, withNFO, rt.logger)
	reportPosters(c.stderr, postersDir, res)
	if res.failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func reportPosters(w io.Writer, dir string, res posterResult) {
	fmt.Fprintf(w, "海报: saved=%d skipped=%d failed=%d nfo=%d dir=%s\n", res.saved, res.skipped, res.failed, res.nfo, dir)
}
