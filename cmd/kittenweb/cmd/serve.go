package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ent0n29/kittenweb/internal/generate"
	"github.com/ent0n29/kittenweb/internal/httpapi"
	"github.com/ent0n29/kittenweb/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the TTS web service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, engineName, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()
	// Handlers report the backend actually running, not the requested one.
	cfg.Engine = engineName
	log.Printf("synthesis engine: %s", engineName)

	if cfg.ScratchDir != "" {
		if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	svc := generate.NewService(eng, generate.RulesFromConfig(cfg), metrics, cfg.ScratchDir)
	svc.Verbose = verbose
	api := httpapi.New(cfg, svc)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr(),
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
	return nil
}
