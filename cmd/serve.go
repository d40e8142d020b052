package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/observability"
	"github.com/scholarloop/scholarloop/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			e.cfg.Server.Addr = addr
		}

		shutdownTracing, err := observability.InitTracing(ctx, observability.Config{
			ServiceName: e.cfg.Tracing.ServiceName,
			Version:     version,
			Stdout:      e.cfg.Tracing.Stdout,
		}, e.log)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(flushCtx)
		}()

		if err := e.store.Subjects.EnsureDefaults(dbctx.New(ctx)); err != nil {
			return fmt.Errorf("seed subjects: %w", err)
		}

		p, cleanup, err := e.buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		return server.New(e.cfg.Server, p, e.store, e.log).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
