package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/editorbridge/mcp-bridge/internal/config"
	"github.com/editorbridge/mcp-bridge/internal/frontend"
	"github.com/editorbridge/mcp-bridge/internal/telemetry"
)

var telemetryOn bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the front end until stdin closes or a signal arrives",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&telemetryOn, "telemetry", false,
		"enable OpenTelemetry stdout exporters")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrontendConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	provider, err := telemetry.New(telemetry.Options{
		ServiceName: "mcp-frontend",
		Enabled:     telemetryOn,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	fe, err := frontend.New(frontend.Options{
		Logger:          logger,
		DevMode:         cfg.DevMode,
		KeepaliveActive: cfg.KeepaliveEnabled,
		HealthAddr:      cfg.HealthAddr,
		Version:         version,
		Discovery: frontend.DiscoveryConfig{
			InitialAttempts:  cfg.Discovery.InitialAttempts,
			InitialInterval:  cfg.Discovery.InitialInterval,
			ExtendedInterval: cfg.Discovery.ExtendedInterval,
			ProbeTimeout:     cfg.Discovery.ProbeTimeout,
			CycleDeadline:    cfg.Discovery.CycleDeadline,
		},
	})
	if err != nil {
		return fmt.Errorf("construct front end: %w", err)
	}

	// SIGHUP joins SIGINT/SIGTERM here because a detached editor process
	// losing its controlling terminal should not be mistaken for a crash:
	// the front end treats all three as a clean shutdown request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	runErr := fe.Run(ctx, os.Stdin)
	fe.Shutdown()
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("front end exited: %w", runErr)
	}
	return nil
}
