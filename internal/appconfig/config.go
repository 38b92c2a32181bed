package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/htx/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Engine        EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Terminal      TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Session       SessionConfig  `mapstructure:"session" yaml:"session"`
	Timeouts      TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig configures the headless-terminal engine invocation.
type EngineConfig struct {
	Binary    string   `mapstructure:"binary" yaml:"binary"`
	Args      []string `mapstructure:"args" yaml:"args"`
	Env       []string `mapstructure:"env" yaml:"env"`
	Subscribe []string `mapstructure:"subscribe" yaml:"subscribe"`
}

// TerminalConfig sets the default virtual terminal dimensions.
type TerminalConfig struct {
	Rows int `mapstructure:"rows" yaml:"rows"`
	Cols int `mapstructure:"cols" yaml:"cols"`
}

// SessionConfig controls per-session behavior.
type SessionConfig struct {
	ScrollbackMaxLines int    `mapstructure:"scrollback_max_lines" yaml:"scrollback_max_lines"`
	KeyDelimiter       string `mapstructure:"key_delimiter" yaml:"key_delimiter"`
}

// TimeoutsConfig bounds the waits a session performs, in seconds.
type TimeoutsConfig struct {
	SnapshotSeconds       int `mapstructure:"snapshot_seconds" yaml:"snapshot_seconds"`
	HandshakeSeconds      int `mapstructure:"handshake_seconds" yaml:"handshake_seconds"`
	TerminateGraceSeconds int `mapstructure:"terminate_grace_seconds" yaml:"terminate_grace_seconds"`
	ExitWaitSeconds       int `mapstructure:"exit_wait_seconds" yaml:"exit_wait_seconds"`
}

// Snapshot returns the snapshot timeout as a duration.
func (t TimeoutsConfig) Snapshot() time.Duration {
	return time.Duration(t.SnapshotSeconds) * time.Second
}

// Handshake returns the handshake timeout as a duration.
func (t TimeoutsConfig) Handshake() time.Duration {
	return time.Duration(t.HandshakeSeconds) * time.Second
}

// TerminateGrace returns the graceful-termination wait as a duration.
func (t TimeoutsConfig) TerminateGrace() time.Duration {
	return time.Duration(t.TerminateGraceSeconds) * time.Second
}

// ExitWait returns the engine-shutdown wait as a duration.
func (t TimeoutsConfig) ExitWait() time.Duration {
	return time.Duration(t.ExitWaitSeconds) * time.Second
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Engine: EngineConfig{
			Binary:    schema.DefaultEngineBinary,
			Args:      []string{},
			Env:       []string{},
			Subscribe: schema.DefaultSubscribe(),
		},
		Terminal: TerminalConfig{
			Rows: schema.DefaultRows,
			Cols: schema.DefaultCols,
		},
		Session: SessionConfig{
			ScrollbackMaxLines: schema.DefaultScrollbackMaxLines,
			KeyDelimiter:       schema.DefaultKeyDelimiter,
		},
		Timeouts: TimeoutsConfig{
			SnapshotSeconds:       int(schema.DefaultSnapshotTimeout / time.Second),
			HandshakeSeconds:      int(schema.DefaultHandshakeTimeout / time.Second),
			TerminateGraceSeconds: int(schema.DefaultTerminateGrace / time.Second),
			ExitWaitSeconds:       int(schema.DefaultExitWait / time.Second),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".htx", "config.yaml"), nil
}
