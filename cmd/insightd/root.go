package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/app"
	"github.com/upb/insight-rag/config"
	"github.com/upb/insight-rag/internal/observability"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "insightd",
		Short:         "Financial insight suggestions and answers",
		Long:          `Serves suggestions and answers grounded on stored transaction insights, retrieved by vector similarity.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Override LOG_FORMAT (json|console)")

	rootCmd.AddCommand(
		NewServeCmd(),
		NewBackfillCmd(),
		NewSuggestCmd(),
		NewAskCmd(),
	)

	return rootCmd
}

// bootstrap loads configuration and builds the logger, honouring the
// persistent flag overrides.
func bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Observability.LogLevel = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Observability.LogFormat = format
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	logger = logger.With(zap.String("service", app.ServiceName), zap.String("environment", cfg.Environment))
	return cfg, logger, nil
}

// withDependencies wires the application, runs fn and shuts everything down.
func withDependencies(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Dependencies) error) error {
	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	return fn(ctx, deps)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
