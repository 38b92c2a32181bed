package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty,
// uses DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("engine.binary", cfg.Engine.Binary)
	v.SetDefault("engine.args", cfg.Engine.Args)
	v.SetDefault("engine.env", cfg.Engine.Env)
	v.SetDefault("engine.subscribe", cfg.Engine.Subscribe)
	v.SetDefault("terminal.rows", cfg.Terminal.Rows)
	v.SetDefault("terminal.cols", cfg.Terminal.Cols)
	v.SetDefault("session.scrollback_max_lines", cfg.Session.ScrollbackMaxLines)
	v.SetDefault("session.key_delimiter", cfg.Session.KeyDelimiter)
	v.SetDefault("timeouts.snapshot_seconds", cfg.Timeouts.SnapshotSeconds)
	v.SetDefault("timeouts.handshake_seconds", cfg.Timeouts.HandshakeSeconds)
	v.SetDefault("timeouts.terminate_grace_seconds", cfg.Timeouts.TerminateGraceSeconds)
	v.SetDefault("timeouts.exit_wait_seconds", cfg.Timeouts.ExitWaitSeconds)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Engine.Binary == "" {
		return fmt.Errorf("engine.binary must not be empty")
	}
	if cfg.Terminal.Rows <= 0 || cfg.Terminal.Cols <= 0 {
		return fmt.Errorf("terminal dimensions must be positive, got %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	for name, seconds := range map[string]int{
		"timeouts.snapshot_seconds":        cfg.Timeouts.SnapshotSeconds,
		"timeouts.handshake_seconds":       cfg.Timeouts.HandshakeSeconds,
		"timeouts.terminate_grace_seconds": cfg.Timeouts.TerminateGraceSeconds,
		"timeouts.exit_wait_seconds":       cfg.Timeouts.ExitWaitSeconds,
	} {
		if seconds <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Engine.Binary = expandEnv(cfg.Engine.Binary)
	for i, arg := range cfg.Engine.Args {
		cfg.Engine.Args[i] = expandEnv(arg)
	}
	for i, entry := range cfg.Engine.Env {
		cfg.Engine.Env[i] = expandEnv(entry)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
