package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/streamscout/internal/app/details"
	"github.com/John-Robertt/streamscout/internal/catalog"
	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/domain"
)

func newProvidersCmd(c *cli) *cobra.Command {
	var (
		service string
		links   string
	)
	cmd := &cobra.Command{
		Use:   "providers <movie|tv> <id>",
		Short: "按国家列出某个条目可用的流媒体服务",
		Args:  wrapArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTitleKey(args[0], args[1])
			if err != nil {
				return err
			}
			return c.runProviders(cmd, key, service, links)
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "只保留提供该 provider id 的国家")
	cmd.Flags().StringVar(&links, "links", "", "解析该国家（例如 US）watch 页面中的服务外链")
	return cmd
}

func parseTitleKey(typ, id string) (domain.TitleKey, error) {
	mt, err := domain.ParseMediaType(typ)
	if err != nil {
		return domain.TitleKey{}, &usageError{err: err}
	}
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return domain.TitleKey{}, usagef("id 必须是正整数，实际是 %q", id)
	}
	return domain.TitleKey{MediaType: mt, ID: n}, nil
}

func (c *cli) runProviders(cmd *cobra.Command, key domain.TitleKey, service, linksCountry string) error {
	rt, err := c.load(cmd, config.CLIArgs{}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view, err := details.Load(ctx, rt.deps.Catalog, rt.deps.Cache, key, "", service)
	if err != nil {
		rt.logger.Printf("providers %s 失败：%v", key, err)
		if catalog.IsNotFound(err) {
			fmt.Fprintf(c.stderr, "条目不存在：%s\n", key)
		} else {
			fmt.Fprintf(c.stderr, "获取 provider 失败：%v\n", err)
		}
		return &exitError{code: 1}
	}

	rep := providersReport{DetailsView: view}
	if strings.TrimSpace(linksCountry) != "" {
		// details.Load 已写入缓存，这里必然命中。
		av, _, err := rt.deps.Cache.GetOrFetch(ctx, key, rt.deps.Catalog.WatchProviders)
		if err == nil {
			rep.Links, err = details.WatchLinks(ctx, rt.tmdb, av, linksCountry)
		}
		if err != nil {
			rt.logger.Printf("links %s %s 失败：%v", key, linksCountry, err)
			fmt.Fprintf(c.stderr, "解析外链失败：%v\n", err)
			emitProvidersReport(c.stdout, c.stderr, rep)
			return &exitError{code: 1}
		}
	}

	emitProvidersReport(c.stdout, c.stderr, rep)
	return nil
}
