package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/dashboard"
	"github.com/japaniel/kokkai/pkg/server"
)

var serveFlags struct {
	data    string
	addr    string
	workers int
	watch   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dashboard reports as JSON",
	Long: `serve loads a speech CSV into memory and answers report, facet and
keyword example queries over HTTP. With --watch the CSV is reloaded whenever
it is written or replaced; POST /api/reload forces a reload.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.data, "data", "", "speech CSV (default from KOKKAI_DATA)")
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (default from KOKKAI_ADDR)")
	f.IntVar(&serveFlags.workers, "workers", 0, "panel workers (default from KOKKAI_WORKERS)")
	f.BoolVar(&serveFlags.watch, "watch", false, "reload the CSV when it changes on disk")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := cfg.DataPath
	if serveFlags.data != "" {
		path = serveFlags.data
	}
	addr := cfg.Addr
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}

	data, err := dashboard.Open(ctx, path, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	dash := dashboard.New(data)
	dash.Workers = cfg.Workers
	if serveFlags.workers > 0 {
		dash.Workers = serveFlags.workers
	}

	if serveFlags.watch {
		go func() {
			if err := dash.Watch(ctx, dashboard.DefaultDebounce, logger); err != nil {
				logger.Error("dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	e := server.New(dash, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("data", path))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
