package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/webanalyst/internal/api"
	"github.com/JakeFAU/webanalyst/internal/policy/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis service",
		Long: `Starts the HTTP service exposing health checks, Prometheus metrics, and the
/v1/analyses endpoints. SIGINT or SIGTERM triggers a graceful shutdown.`,
		Args: cobra.NoArgs,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Server.RateLimitRPS,
		Burst: cfg.Server.RateLimitBurst,
	})
	apiServer := api.NewServer(appInstance.GetRunner(), cfg.RequestTimeout(), limiter, logger)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Server.Port, err)
	}
	logger.Info("http server started", zap.Int("port", cfg.Server.Port))
	return serveHTTP(cmd.Context(), ln, apiServer.Handler(), logger)
}

// serveHTTP serves handler on ln until ctx is done, then drains in-flight requests.
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
