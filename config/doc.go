// Package config loads pipeline-level settings.
//
// It uses Viper to read a YAML file found in the standard locations
// (cmd/<name>/config.yml, config/config.yml, ./config.yml), overlays
// environment variables and .env files loaded with godotenv, and
// unmarshals the result into Config.
//
// # Usage
//
//	cfg, err := config.Load("mediaflow")
//	opts := stage.StreamOptions{HighWaterMark: cfg.Stream.HighWaterMark}
//
// Environment variables override file values using underscore-separated
// paths (e.g., STREAM_HIGH_WATER_MARK, LOGGING_LEVEL).
package config
