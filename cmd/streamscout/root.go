package main

import (
	"fmt"
	"io"
	"log"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/streamscout/internal/app/search"
	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/catalog/tmdb"
	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/infra/cache"
	"github.com/John-Robertt/streamscout/internal/infra/httpx"
	"github.com/John-Robertt/streamscout/internal/infra/logx"
	"github.com/John-Robertt/streamscout/internal/tui"
)

// cli 保存全局参数与输出目标；每次 execute 一份，方便测试。
type cli struct {
	cwd    string
	stdout io.Writer
	stderr io.Writer

	configPath string
	apiKey     string
	logFile    string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "streamscout",
		Short: "搜索电影/剧集并查看各国可用的流媒体服务",
		Long: `streamscout 通过 TMDB 搜索电影与剧集，按日期/评分过滤排序，
并查询每个条目在各国家/地区可用的流媒体服务。

示例：
  streamscout                          # 打开交互界面
  streamscout search "dune" --type all
  streamscout providers movie 438631 --service 8
  streamscout serve --addr :8080`,
		Args:          wrapArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(c.cwd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "配置文件路径（未指定则尝试 ./"+config.FileName+"）")
	pf.StringVar(&c.apiKey, "api-key", "", "TMDB API key（覆盖 "+config.EnvAPIKey+" 与配置文件）")
	pf.StringVar(&c.logFile, "log-file", "", "日志文件路径（按大小滚动）")

	root.AddCommand(newSearchCmd(c), newProvidersCmd(c), newServeCmd(c))
	return root
}

// wrapArgs 把 cobra 的参数校验错误标记为 usageError。
func wrapArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// runtime 是从生效配置构造出的一组共享依赖。
type runtime struct {
	eff     config.EffectiveConfig
	deps    search.Deps
	tmdb    *tmdb.Client
	httpOpt httpx.Options
	logger  *log.Logger
	closer  io.Closer
}

func (rt *runtime) Close() error { return rt.closer.Close() }

// load 读取配置并构造依赖。logFallback 是未配置日志文件时的日志去向（nil 表示丢弃）。
func (c *cli) load(cmd *cobra.Command, extra config.CLIArgs, logFallback io.Writer) (*runtime, error) {
	fs := cmd.Flags()
	args := extra
	args.ConfigPath = c.configPath
	args.APIKey, args.APIKeySet = c.apiKey, fs.Changed("api-key")
	args.LogFile, args.LogFileSet = c.logFile, fs.Changed("log-file")

	eff, err := config.LoadEffective(c.cwd, args)
	if err != nil {
		fmt.Fprintf(c.stderr, "配置错误：%v\n", err)
		return nil, &exitError{code: 1}
	}

	lg, closer := logx.New(eff.LogFile, logFallback)
	opts := httpx.Options{
		ProxyURL:      eff.ProxyURL,
		Timeout:       eff.Timeout,
		RatePerSecond: eff.RateLimitPerSecond,
	}
	hc, err := httpx.NewAPIClient(opts)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	client := tmdb.New(eff.BaseURL, eff.APIKey, eff.Language, hc)
	reg, err := catalog.NewRegistry(client)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("初始化 catalog registry 失败：%w", err)
	}
	cat, _ := reg.Default()

	var disk *cache.Store
	if eff.CacheDir != "" {
		st := cache.NewStore(eff.CacheDir, eff.CacheTTL)
		disk = &st
	}

	return &runtime{
		eff: eff,
		deps: search.Deps{
			Catalog:     cat,
			Cache:       cache.NewProviderCache(disk),
			Logger:      lg,
			Concurrency: eff.Concurrency,
		},
		tmdb:    client,
		httpOpt: opts,
		logger:  lg,
		closer:  closer,
	}, nil
}

func (rt *runtime) imageClient() (*http.Client, error) {
	return httpx.NewImageClient(rt.httpOpt)
}

func (c *cli) runTUI(cmd *cobra.Command) error {
	// TUI 占用终端：未配置日志文件时日志直接丢弃。
	rt, err := c.load(cmd, config.CLIArgs{}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	p := tea.NewProgram(tui.New(rt.deps),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("运行界面失败：%w", err)
	}
	return nil
}
