package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipscribe/application/export"
	"clipscribe/infrastructure/httpapi"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// sweepInterval is how often stale artifacts from crashed runs are removed
const sweepInterval = time.Hour

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcription HTTP API",
	Long: `Start the HTTP API used by the transcript viewer.

Endpoints:
  POST /api/transcribe  {"url": "...", "translate": false}
  POST /api/export      {"format": "srt", "transcript": {...}}
  GET  /api/health

Browser requests are only accepted from server.allowed_origins.

Example:
  clipscribe serve
  clipscribe serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 3001)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	logger := newLogger(os.Stderr)
	a := newAdapters(cfg, logger)

	// Missing tools are reported per request with their own kind, so they only warn here
	checks := append(toolChecks(a), engineChecks(a)...)
	for _, check := range checks {
		if _, err := check.Run(cmd.Context()); err != nil {
			logger.Printf("warning: %s: %v", check.Name, err)
		}
	}

	handler := httpapi.NewHandler(
		a.processService(io.Discard, logger),
		export.NewService(cfg.Paths.OutputDirectory),
		httpapi.WithJobTimeout(cfg.Server.JobTimeout),
		httpapi.WithLogger(logger),
	)
	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(handler, cfg.Server.AllowedOrigins)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunServeWithDependencies(ctx, listener, router, a.store, cfg.Paths.StaleAfter, logger)
}

// Sweeper removes artifacts left behind by runs that never reached cleanup
type Sweeper interface {
	SweepStale(retention time.Duration) (int, error)
}

// RunServeWithDependencies serves handler on listener until ctx is done (for testing)
func RunServeWithDependencies(
	ctx context.Context,
	listener net.Listener,
	handler http.Handler,
	sweeper Sweeper,
	staleAfter time.Duration,
	logger *log.Logger,
) error {
	sweep := func() {
		n, err := sweeper.SweepStale(staleAfter)
		if err != nil {
			logger.Printf("stale artifact sweep error: %v", err)
			return
		}
		if n > 0 {
			logger.Printf("removed %d stale artifacts", n)
		}
	}
	sweep()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	logger.Printf("API listening on http://%s", listener.Addr())
	logger.Printf("API endpoint: http://%s/api/transcribe", listener.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Printf("shutting down, waiting for running jobs...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
