package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dishaguide/disha/internal/api"
	"github.com/dishaguide/disha/internal/auth"
	"github.com/dishaguide/disha/internal/compass"
	"github.com/dishaguide/disha/internal/config"
	"github.com/dishaguide/disha/internal/docstore"
	"github.com/dishaguide/disha/internal/extract"
	"github.com/dishaguide/disha/internal/forge"
	"github.com/dishaguide/disha/internal/llm"
	"github.com/dishaguide/disha/internal/recommend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Disha Guide API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "disha version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := docstore.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing document store: %v\n", err)
		}
	}()

	gemini, err := llm.NewClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return fmt.Errorf("initializing model client: %w", err)
	}

	extractor := extract.NewExtractor(gemini, cfg.Gemini.ExtractModel)
	orchestrator := recommend.NewOrchestrator(store, extractor, gemini, cfg.Gemini.RecommendModel)
	synchronizer := compass.New(store)
	skillForge := forge.New(gemini, cfg.Gemini.ForgeModel, cfg.Gemini.ResourceModel)

	handler := api.NewHandler(api.Deps{
		Store:          store,
		Verifier:       auth.NewJWTVerifier(cfg.Auth.JWTSecret),
		Chat:           gemini,
		ChatModel:      cfg.Gemini.ChatModel,
		Compass:        synchronizer,
		Recommender:    orchestrator,
		Forge:          skillForge,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "disha listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight background refreshes write out before exiting.
	orchestrator.Wait()
	return nil
}
