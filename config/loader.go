package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/mediaflow/logger"
)

// DefaultEnvPrefix marks environment variables that override config keys:
// MEDIAFLOW_STREAM_HIGH_WATER_MARK sets stream.high_water_mark.
const DefaultEnvPrefix = "MEDIAFLOW_"

// FileSystem abstracts file lookups for tests.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem uses the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds the loader's dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the filesystem used for lookups.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file instead of searching.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file instead of searching.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// ResolvedFiles are the files a load will read. Either may be empty.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and .env files for a pipeline.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns the explicit paths in opts, searching for the ones
// not given.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(configCandidates(serviceName))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(envCandidates(serviceName))
	}
	return files
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// searchDirs lists the directories searched for a service, most specific
// first, from the working directory and up to two levels above it.
func searchDirs(serviceName string) []string {
	var dirs []string
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		dirs = append(dirs,
			filepath.Join(up, "cmd", serviceName),
			filepath.Join(up, "config", serviceName),
			filepath.Join(up, "config"),
		)
	}
	return append(dirs, ".")
}

func configCandidates(serviceName string) []string {
	var paths []string
	for _, dir := range searchDirs(serviceName) {
		paths = append(paths, filepath.Join(dir, "config.yml"), filepath.Join(dir, "config.yaml"))
	}
	return paths
}

func envCandidates(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, dir := range searchDirs(serviceName) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// LoadConfig reads the config file, then the .env file, then prefixed
// environment variables into cfg. Later sources win. A missing or
// unreadable file is logged and skipped.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Failed to read config file", logger.Fields("file", files.ConfigFile, "error", err.Error()))
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("Failed to load .env file", logger.Fields("file", files.EnvFile, "error", err.Error()))
		}
	}
	bindEnv(v, lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv sets every key variant of each prefixed variable in environ.
// Underscores are ambiguous between nesting and key words, so each split
// point is tried; viper ignores keys the target struct does not have.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range envKeyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands STREAM_OPEN_RETRY_MAX_ATTEMPTS into the dotted
// keys it could mean: each way of splitting at underscores into a nesting
// path, e.g. stream.open_retry.max_attempts.
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	var out []string
	var walk func(i int, segments []string)
	walk = func(i int, segments []string) {
		if i == len(parts) {
			out = append(out, strings.Join(segments, "."))
			return
		}
		// Extend the current segment or start a new one.
		if len(segments) > 0 {
			ext := append([]string(nil), segments...)
			ext[len(ext)-1] += "_" + parts[i]
			walk(i+1, ext)
		}
		walk(i+1, append(append([]string(nil), segments...), parts[i]))
	}
	if len(parts) > 8 {
		return []string{strings.ToLower(envKey), strings.Join(parts, ".")}
	}
	walk(0, nil)
	return out
}
