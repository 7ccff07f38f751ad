package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"novelmeta/src/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the identify and cover endpoints over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			defer a.close()
			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			gin.SetMode(gin.ReleaseMode)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h := server.NewHandler(a.searcher(), a.covers(), a.log)
			return server.Serve(ctx, listen, h)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (defaults to server.listen from the config)")
	return cmd
}
