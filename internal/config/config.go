// Package config provides the configuration schema for the editor bridge
// (EB) and the front-end process (FE): a minimal, file-and-environment
// driven schema with sensible defaults, validation with actionable
// messages, and overrides from environment variables.
package config

import "time"

// BridgeConfig configures the editor-bridge host process.
type BridgeConfig struct {
	// Port is the TCP port the bridge listens on; 0 lets the OS assign
	// one (used by tests).
	Port int `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`

	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// DevMode enables verbose diagnostic logging and dev-only tool
	// inclusion in catalog responses.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`

	// SessionRecordPath is where the reload-surviving session record is
	// persisted.
	SessionRecordPath string `yaml:"session_record_path" mapstructure:"session_record_path" validate:"required"`

	// ShutdownTimeout bounds how long Stop waits for in-flight
	// connections to drain before forcing resource release.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// DiagnosticsAddr is the loopback address for the /debug/clients
	// operator endpoint (e.g. "127.0.0.1:9091"). Empty disables it.
	DiagnosticsAddr string `yaml:"diagnostics_addr" mapstructure:"diagnostics_addr" validate:"omitempty,hostname_port"`

	Lifecycle LifecycleConfig `yaml:"lifecycle" mapstructure:"lifecycle"`
}

// LifecycleConfig configures the coalesced-start and reload-recovery
// protocol's timing constants.
type LifecycleConfig struct {
	StartupProtectionWindow time.Duration `yaml:"startup_protection_window" mapstructure:"startup_protection_window"`
	PortRetryTimeout        time.Duration `yaml:"port_retry_timeout" mapstructure:"port_retry_timeout"`
	PortRetryStep           time.Duration `yaml:"port_retry_step" mapstructure:"port_retry_step"`
	ReloadRecoveryDelay     time.Duration `yaml:"reload_recovery_delay" mapstructure:"reload_recovery_delay"`
	ReloadRecoveryRetries   int           `yaml:"reload_recovery_retries" mapstructure:"reload_recovery_retries" validate:"gte=0"`
	ReloadRecoveryBackoff   time.Duration `yaml:"reload_recovery_backoff" mapstructure:"reload_recovery_backoff"`
	ReconnectionTimeout     time.Duration `yaml:"reconnection_timeout" mapstructure:"reconnection_timeout"`
	AutoStartOnReload       bool          `yaml:"auto_start_on_reload" mapstructure:"auto_start_on_reload"`
}

// FrontendConfig configures the standalone MCP front-end process.
type FrontendConfig struct {
	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// DevMode enables verbose diagnostic logging and requests dev-only
	// tools be included in the editor's catalog response.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`

	// KeepaliveEnabled turns on the periodic MCP ping to the editor.
	KeepaliveEnabled bool `yaml:"keepalive_enabled" mapstructure:"keepalive_enabled"`

	// HealthAddr is the loopback address for the /healthz and /metrics
	// HTTP endpoints (e.g. "127.0.0.1:9090"). Empty disables the
	// endpoints entirely.
	HealthAddr string `yaml:"health_addr" mapstructure:"health_addr" validate:"omitempty,hostname_port"`

	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
}

// DiscoveryConfig configures the FE's adaptive editor-reachability poll.
type DiscoveryConfig struct {
	InitialAttempts  int           `yaml:"initial_attempts" mapstructure:"initial_attempts" validate:"gte=0"`
	InitialInterval  time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	ExtendedInterval time.Duration `yaml:"extended_interval" mapstructure:"extended_interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	CycleDeadline    time.Duration `yaml:"cycle_deadline" mapstructure:"cycle_deadline"`
}

// SetDefaults fills zero-valued fields with sensible defaults before
// validation.
func (c *BridgeConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SessionRecordPath == "" {
		c.SessionRecordPath = defaultSessionRecordPath()
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	c.Lifecycle.setDefaults()
}

func (l *LifecycleConfig) setDefaults() {
	if l.StartupProtectionWindow == 0 {
		l.StartupProtectionWindow = 5 * time.Second
	}
	if l.PortRetryTimeout == 0 {
		l.PortRetryTimeout = 5 * time.Second
	}
	if l.PortRetryStep == 0 {
		l.PortRetryStep = 250 * time.Millisecond
	}
	if l.ReloadRecoveryDelay == 0 {
		l.ReloadRecoveryDelay = 200 * time.Millisecond
	}
	if l.ReloadRecoveryRetries == 0 {
		l.ReloadRecoveryRetries = 3
	}
	if l.ReloadRecoveryBackoff == 0 {
		l.ReloadRecoveryBackoff = time.Second
	}
	if l.ReconnectionTimeout == 0 {
		l.ReconnectionTimeout = 30 * time.Second
	}
}

// SetDefaults fills zero-valued FrontendConfig fields with sensible
// defaults.
func (c *FrontendConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Discovery.setDefaults()
}

func (d *DiscoveryConfig) setDefaults() {
	if d.InitialAttempts == 0 {
		d.InitialAttempts = 1
	}
	if d.InitialInterval == 0 {
		d.InitialInterval = time.Second
	}
	if d.ExtendedInterval == 0 {
		d.ExtendedInterval = 10 * time.Second
	}
	if d.ProbeTimeout == 0 {
		d.ProbeTimeout = 500 * time.Millisecond
	}
	if d.CycleDeadline == 0 {
		d.CycleDeadline = 5 * time.Second
	}
}
