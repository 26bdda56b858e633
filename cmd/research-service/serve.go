// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-service/internal/app"
	"github.com/pdiddy/research-service/internal/config"
	"github.com/pdiddy/research-service/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes POST /research (streaming or background), GET
/research/{task_id}, /health, and /metrics. Research routes require the
X-API-Key header to match the configured api_key.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.APIKey == "" {
		return fmt.Errorf("api_key is required: set RESEARCH_SERVICE_API_KEY or .secrets/api-key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("research service starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("fast_llm", cfg.LLM.FastLLM),
		zap.String("smart_llm", cfg.LLM.SmartLLM),
		zap.String("embedding_model", cfg.LLM.EmbeddingModel),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Strings("allowed_callback_hosts", cfg.Callback.AllowedHosts))

	srv := server.New(svc, server.Options{
		APIKey:  cfg.Server.APIKey,
		Metrics: svc.Metrics.Handler(),
		Logger:  logger.Named("http"),
	})
	return srv.Run(ctx, cfg.Server.Listen)
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default :8000)")
	viper.BindPFlag(config.KeyListen, serveCmd.Flags().Lookup("listen"))

	rootCmd.AddCommand(serveCmd)
}
