package bridgeclient

import (
	"encoding/json"
	"log/slog"
	"time"
)

// NotifyFunc receives JSON-RPC notifications (no id) pushed by the
// bridge, such as notifications/tools/list_changed.
type NotifyFunc func(method string, params json.RawMessage)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithDialTimeout overrides the default 5s TCP dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithLogger sets the logger used for read-loop diagnostics. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithNotifyHandler registers the callback invoked for every id-less
// JSON-RPC message received from the bridge. Must be set before Dial.
func WithNotifyHandler(fn NotifyFunc) Option {
	return func(c *Client) { c.onNotify = fn }
}
