package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/upb/voiceme/config"
	"github.com/upb/voiceme/internal/observability"
	"go.uber.org/zap"
)

var (
	// Global flags
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "voiceme",
	Short: "VoiceMe - interview answers in your own voice",
	Long: `VoiceMe answers interview questions in a configured persona.

Questions are sent to Gemini, OpenAI and Groq in priority order. Each provider
is retried with linear backoff before the next one is tried, so an answer comes
back as long as any configured provider is healthy.

Configuration is read from the environment and from .env files.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "additional .env file to load before the defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// loadRuntime reads configuration and builds the logger every command shares
func loadRuntime(ctx context.Context) (*config.Config, *zap.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
