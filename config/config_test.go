package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mediaflow/errors"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := Config{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults applied, got level %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := Config{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("enabled tracing gets full sampling", func(t *testing.T) {
		cfg := Config{Name: "svc", Tracing: TracingConfig{Enabled: true, Endpoint: "localhost:4318"}}
		cfg.ApplyDefaults()
		if cfg.Tracing.SampleRate != 1.0 {
			t.Errorf("expected sample rate 1.0, got %f", cfg.Tracing.SampleRate)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{Name: "svc"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "name: is required"},
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, "environment: must be one of"},
		{"negative high water mark", func(c *Config) { c.Stream.HighWaterMark = -1 }, "high_water_mark: must be at least 0"},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, "endpoint"},
		{"sample rate above one", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate: must be at most 1"},
		{"bad logging level", func(c *Config) { c.Logging.Level = "loud" }, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: transcoder
environment: staging
stream:
  high_water_mark: 16
  open_retry:
    max_attempts: 4
    initial_backoff: 250ms
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load("transcoder", WithConfigFile(configPath), WithFileSystem(&mockFS{files: map[string]bool{configPath: true}}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Stream.HighWaterMark != 16 {
		t.Errorf("expected high water mark 16, got %d", cfg.Stream.HighWaterMark)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Logging.Level)
	}
	if r := cfg.Stream.OpenRetry; r.MaxAttempts != 4 || r.InitialBackoff != 250*time.Millisecond {
		t.Errorf("expected open_retry 4 attempts from 250ms, got %+v", r)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("stream:\n  high_water_mark: -3\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load("svc", WithConfigFile(configPath), WithFileSystem(&mockFS{files: map[string]bool{configPath: true}}))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"cmd/my-svc/config.yaml": true,
		"config/config.yml":      true,
		"config/.env.my-svc":     true,
		"cmd/my-svc/.env":        true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "cmd/my-svc/config.yaml" {
		t.Errorf("expected the service config to win, got %q", files.ConfigFile)
	}
	if files.EnvFile != "config/.env.my-svc" {
		t.Errorf("expected the service-named env file to win, got %q", files.EnvFile)
	}

	files = resolver.ResolveFiles("my-svc", LoaderConfig{ConfigFile: "explicit.yml"})
	if files.ConfigFile != "explicit.yml" {
		t.Errorf("expected explicit config file, got %q", files.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"NAME", "name"},
		{"STREAM_HIGH_WATER_MARK", "stream.high_water_mark"},
		{"STREAM_OPEN_RETRY_MAX_ATTEMPTS", "stream.open_retry.max_attempts"},
		{"LOGGING_LEVEL", "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			variants := envKeyVariants(tc.key)
			for _, v := range variants {
				if v == tc.want {
					return
				}
			}
			t.Errorf("expected %q among %v", tc.want, variants)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEDIAFLOW_STREAM_HIGH_WATER_MARK", "32")
	t.Setenv("MEDIAFLOW_LOGGING_LEVEL", "warn")
	t.Setenv("STREAM_HIGH_WATER_MARK", "99")

	cfg, err := Load("transcoder", WithFileSystem(&mockFS{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.HighWaterMark != 32 {
		t.Errorf("expected high water mark 32 from the prefixed variable, got %d", cfg.Stream.HighWaterMark)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected logging level warn, got %q", cfg.Logging.Level)
	}
	if cfg.Name != "transcoder" {
		t.Errorf("expected name to default to the service name, got %q", cfg.Name)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error     { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("APP_")(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
	if lc.EnvPrefix != "APP_" {
		t.Errorf("expected env prefix, got %q", lc.EnvPrefix)
	}
}
