package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	os.Unsetenv(EnvPort)
	os.Unsetenv(EnvLogLevel)
	os.Unsetenv(EnvConfigFile)
	os.Unsetenv(EnvTickInterval)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.TickInterval() != 10*time.Millisecond {
		t.Errorf("TickInterval() = %v, want 10ms", cfg.TickInterval())
	}
}

func TestPort_FromEnv(t *testing.T) {
	os.Setenv(EnvPort, "9000")
	defer os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9000 {
		t.Errorf("Port() = %d, want 9000", cfg.Port())
	}
}

func TestPort_Invalid(t *testing.T) {
	tests := []string{"abc", "0", "70000", "-1"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			os.Setenv(EnvPort, v)
			defer os.Unsetenv(EnvPort)

			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should return error", EnvPort, v)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vigenair.yaml")
	content := "port: 9100\nlog_level: debug\ntick_interval_ms: 25\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv(EnvConfigFile, path)
	defer os.Unsetenv(EnvConfigFile)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
	if cfg.TickInterval() != 25*time.Millisecond {
		t.Errorf("TickInterval() = %v, want 25ms", cfg.TickInterval())
	}
}

func TestConfigFile_EnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vigenair.yaml")
	if err := os.WriteFile(path, []byte("port: 9100\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv(EnvConfigFile, path)
	os.Setenv(EnvPort, "9200")
	defer os.Unsetenv(EnvConfigFile)
	defer os.Unsetenv(EnvPort)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9200 {
		t.Errorf("Port() = %d, want 9200 (env should override file)", cfg.Port())
	}
}

func TestConfigFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vigenair.yaml")
	if err := os.WriteFile(path, []byte("port: [not a port\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv(EnvConfigFile, path)
	defer os.Unsetenv(EnvConfigFile)

	if _, err := New(); err == nil {
		t.Error("New() with malformed config file should return error")
	}
}
