package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/editorbridge/mcp-bridge/internal/lifecycle"
)

// watchReloadSignals stands in for the host editor's domain-reload
// hooks: SIGUSR1 fires BeforeReload, SIGUSR2 fires AfterReload, letting
// the reload protocol be exercised from outside the process (e.g. "kill
// -USR1 $pid; kill -USR2 $pid") without a real editor driving it.
func watchReloadSignals(ctx context.Context, controller *lifecycle.Controller, logger *slog.Logger) {
	before := make(chan os.Signal, 1)
	after := make(chan os.Signal, 1)
	signal.Notify(before, syscall.SIGUSR1)
	signal.Notify(after, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(before)
		defer signal.Stop(after)
		for {
			select {
			case <-ctx.Done():
				return
			case <-before:
				logger.Info("editor-bridge-host: SIGUSR1 received, running before-reload hook")
				if err := controller.BeforeReload(ctx); err != nil {
					logger.Warn("editor-bridge-host: before-reload hook failed", "error", err)
				}
			case <-after:
				logger.Info("editor-bridge-host: SIGUSR2 received, running after-reload hook")
				if err := controller.AfterReload(ctx); err != nil {
					logger.Warn("editor-bridge-host: after-reload hook failed", "error", err)
				}
			}
		}
	}()
}
