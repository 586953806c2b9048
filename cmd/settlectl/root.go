package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/bootstrap"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/config"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "settlectl",
	Short:         "Operate the Astraline settlement service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs before touching the stack
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// withContainer builds the full stack, runs fn and tears it down
func withContainer(ctx context.Context, fn func(c *bootstrap.Container) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	c, err := bootstrap.Build(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			e.log.Warn("Shutdown error", zap.Error(err))
		}
	}()
	return fn(c)
}

func tenantActor(cmd *cobra.Command) (shared.Actor, error) {
	raw, _ := cmd.Flags().GetString("tenant")
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return shared.Actor{}, fmt.Errorf("invalid --tenant %q: %w", raw, err)
	}
	return shared.SystemActor(tenantID), nil
}

func addTenantFlag(cmd *cobra.Command) {
	cmd.Flags().String("tenant", "", "Tenant ID")
	_ = cmd.MarkFlagRequired("tenant")
}
