package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/editorbridge/mcp-bridge/internal/bridge"
	"github.com/editorbridge/mcp-bridge/internal/config"
	"github.com/editorbridge/mcp-bridge/internal/lifecycle"
	"github.com/editorbridge/mcp-bridge/internal/metrics"
	"github.com/editorbridge/mcp-bridge/internal/push"
	"github.com/editorbridge/mcp-bridge/internal/session"
	"github.com/editorbridge/mcp-bridge/internal/telemetry"
)

var (
	pushAddrFlag string
	telemetryOn  bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bind the bridge listener and run until interrupted",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&pushAddrFlag, "push-addr", "",
		"host:port of the front end's push-receive channel (skips push notifications if empty)")
	startCmd.Flags().BoolVar(&telemetryOn, "telemetry", false,
		"enable OpenTelemetry stdout exporters")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadBridgeConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	provider, err := telemetry.New(telemetry.Options{
		ServiceName: "editor-bridge-host",
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

	store := session.NewStore(cfg.SessionRecordPath, logger)
	reg := prometheus.NewRegistry()
	bridgeMetrics := metrics.NewBridge(reg)

	processor := newDemoProcessor(logger)

	var pushClient *push.Client
	if pushAddrFlag != "" {
		pushClient = push.NewClient(pushAddrFlag)
		if err := pushClient.Start(); err != nil {
			logger.Warn("push channel disabled, front end will not learn of lifecycle events", "error", err)
			pushClient = nil
		} else {
			defer pushClient.Close()
		}
	}

	server := bridge.New(bridge.Options{
		Logger:    logger,
		Metrics:   bridgeMetrics,
		Processor: processor,
		OnError: func(err error) {
			logger.Warn("bridge: observed error", "error", err)
		},
		OnClientDisconnect: func(endpoint string) {
			logger.Info("bridge: client disconnected", "endpoint", endpoint)
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Telemetry:       provider,
	})
	processor.bindServer(server)

	var diagServer *bridge.DiagnosticsServer
	if cfg.DiagnosticsAddr != "" {
		diagServer, err = bridge.NewDiagnosticsServer(cfg.DiagnosticsAddr, server)
		if err != nil {
			return fmt.Errorf("start diagnostics server: %w", err)
		}
		go func() {
			if err := diagServer.Serve(); err != nil {
				logger.Warn("diagnostics server exited", "error", err)
			}
		}()
		logger.Info("editor-bridge-host: diagnostics listening", "addr", diagServer.Addr())
	}

	controller := lifecycle.New(lifecycle.Options{
		Server:  server,
		Store:   store,
		UI:      &logOnlyUIHost{logger: logger},
		Confirm: &autoAcceptConfirmHost{logger: logger},
		Logger:  logger,
		Config: lifecycle.Config{
			StartupProtectionWindow: cfg.Lifecycle.StartupProtectionWindow,
			PortRetryTimeout:        cfg.Lifecycle.PortRetryTimeout,
			PortRetryStep:           cfg.Lifecycle.PortRetryStep,
			ReloadRecoveryDelay:     cfg.Lifecycle.ReloadRecoveryDelay,
			ReloadRecoveryRetries:   cfg.Lifecycle.ReloadRecoveryRetries,
			ReloadRecoveryBackoff:   cfg.Lifecycle.ReloadRecoveryBackoff,
			ReconnectionTimeout:     cfg.Lifecycle.ReconnectionTimeout,
			AutoStartOnReload:       cfg.Lifecycle.AutoStartOnReload,
		},
		Telemetry: provider,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Start(ctx, cfg.Port); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	logger.Info("editor-bridge-host: listening", "port", server.Port())
	watchReloadSignals(ctx, controller, logger)

	if pushClient != nil {
		sessionID := uuid.New().String()
		payload := &push.Payload{ClientInfo: &push.ClientInfo{SessionID: sessionID}}
		if err := pushClient.Send(push.New(push.ConnectionEstablished, payload)); err != nil {
			logger.Warn("push: failed to notify connection_established", "error", err)
		}
		logger.Info("editor-bridge-host: session started", "session_id", sessionID)
	}

	<-ctx.Done()
	logger.Info("editor-bridge-host: shutting down")

	if pushClient != nil {
		if err := pushClient.Send(push.New(push.UserDisconnect, nil)); err != nil {
			logger.Warn("push: failed to notify user_disconnect", "error", err)
		}
	}

	if diagServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := diagServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("diagnostics server shutdown failed", "error", err)
		}
		cancel()
	}

	if err := controller.Stop(); err != nil {
		return fmt.Errorf("stop bridge: %w", err)
	}
	return nil
}
