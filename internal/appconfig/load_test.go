package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/htx/schema"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Binary != schema.DefaultEngineBinary {
		t.Fatalf("binary = %q", cfg.Engine.Binary)
	}
	if cfg.Terminal.Rows != schema.DefaultRows || cfg.Terminal.Cols != schema.DefaultCols {
		t.Fatalf("terminal = %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Timeouts.Snapshot() != schema.DefaultSnapshotTimeout {
		t.Fatalf("snapshot timeout = %v", cfg.Timeouts.Snapshot())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
engine:
  binary: /usr/local/bin/ht
terminal:
  rows: 30
  cols: 80
timeouts:
  snapshot_seconds: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Binary != "/usr/local/bin/ht" {
		t.Fatalf("binary = %q", cfg.Engine.Binary)
	}
	if cfg.Terminal.Rows != 30 || cfg.Terminal.Cols != 80 {
		t.Fatalf("terminal = %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Timeouts.Snapshot() != 10*time.Second {
		t.Fatalf("snapshot timeout = %v", cfg.Timeouts.Snapshot())
	}
	// Unset sections keep their defaults.
	if cfg.Session.ScrollbackMaxLines != schema.DefaultScrollbackMaxLines {
		t.Fatalf("scrollback = %d", cfg.Session.ScrollbackMaxLines)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
engine:
  binary: ht
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsBadDimensions(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
terminal:
  rows: 0
  cols: 50
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "terminal dimensions") {
		t.Fatalf("expected dimensions error, got %v", err)
	}
}

func TestLoadExpandsEngineEnv(t *testing.T) {
	t.Setenv("HT_BIN_DIR", "/opt/ht/bin")
	path := writeConfig(t, `
config_version: 1
engine:
  binary: $HT_BIN_DIR/ht
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Binary != "/opt/ht/bin/ht" {
		t.Fatalf("binary = %q", cfg.Engine.Binary)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if written != path {
		t.Fatalf("written path = %q", written)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load written default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("config_version = %d", cfg.ConfigVersion)
	}
}
