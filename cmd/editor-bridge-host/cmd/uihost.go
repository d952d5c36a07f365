package cmd

import (
	"context"
	"log/slog"
)

// logOnlyUIHost implements lifecycle.UIHost by logging. A real editor
// plugin would surface these as in-editor notifications; this standalone
// binary has no UI to drive.
type logOnlyUIHost struct {
	logger *slog.Logger
}

func (h *logOnlyUIHost) ShowReconnecting() { h.logger.Info("ui: reconnecting") }
func (h *logOnlyUIHost) HideReconnecting() { h.logger.Info("ui: reconnecting cleared") }
func (h *logOnlyUIHost) ShowReloaded()     { h.logger.Info("ui: reload complete") }

// autoAcceptConfirmHost implements lifecycle.ConfirmHost by always
// accepting a substitute port and skipping external config rewriting,
// since this binary has no editor-side config files of its own to
// update.
type autoAcceptConfirmHost struct {
	logger *slog.Logger
}

func (h *autoAcceptConfirmHost) ConfirmPortSubstitute(_ context.Context, original, substitute int) (bool, error) {
	h.logger.Info("ui: auto-accepting port substitute", "original", original, "substitute", substitute)
	return true, nil
}

func (h *autoAcceptConfirmHost) UpdateExternalConfigs(_ context.Context, newPort int) error {
	h.logger.Info("ui: no external configs to update", "port", newPort)
	return nil
}
