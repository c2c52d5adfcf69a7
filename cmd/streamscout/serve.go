package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/streamscout/internal/config"
	"github.com/John-Robertt/streamscout/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP JSON API",
		Args:  wrapArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 未配置日志文件时，访问日志写到 stderr。
			rt, err := c.load(cmd, config.CLIArgs{
				ServerAddr:    addr,
				ServerAddrSet: cmd.Flags().Changed("addr"),
			}, c.stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(c.stderr, "serve: addr=%s rate_limit_per_minute=%d cache=%s\n",
				rt.eff.ServerAddr, rt.eff.ServerRatePerMinute, formatCacheDir(rt.eff.CacheDir, rt.eff.CacheTTL),
			)
			srv := server.New(rt.deps, server.Options{RatePerMinute: rt.eff.ServerRatePerMinute})
			if err := srv.ListenAndServe(ctx, rt.eff.ServerAddr); err != nil {
				return fmt.Errorf("serve 失败：%w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultServerAddr, "监听地址")
	return cmd
}
