package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"zentaohelper/internal/prompt"
	"zentaohelper/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dispatcher over HTTP",
		Long: `Starts an HTTP server:

  GET  /health
  GET  /api/v1/help
  POST /api/v1/commands   {"text": "查看我的任务"}

There is no terminal to prompt on, so log in first with "zentao login"
or configure zentao.account and zentao.password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			if !opts.verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			a, err := newApp(opts.cfg, prompt.Disabled{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(a.skill).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr)")
	return cmd
}
