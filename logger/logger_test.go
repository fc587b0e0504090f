package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json", Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
	if l.GetLogger().GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", l.GetLogger().GetLevel())
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l.GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level from env, got %s", l.GetLogger().GetLevel())
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "test")
	l.Info("hidden")
	l.Warn("shown", Fields("units", 3))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "shown" {
		t.Errorf("expected message 'shown', got %v", lines[0]["message"])
	}
	if lines[0]["units"] != float64(3) {
		t.Errorf("expected units=3, got %v", lines[0]["units"])
	}
}

func TestWithStage(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "test").WithStage("enc", "encode", "id-1")
	if l.service != "test" {
		t.Errorf("service should be preserved, got %q", l.service)
	}
	l.Debug("transition", Fields(FieldState, "ready"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	for k, want := range map[string]string{FieldStage: "enc", FieldKind: "encode", FieldStageID: "id-1", FieldState: "ready"} {
		if lines[0][k] != want {
			t.Errorf("expected %s=%s, got %v", k, want, lines[0][k])
		}
	}
}

func TestConsole_StagePrefix(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	l := newLogger(&Config{Level: "debug", Format: "text", NoColor: true}, "mediaflow", &buf)
	l.WithStage("decode", "decoder", "id-1").Info("Stage ready")

	out := buf.String()
	if !strings.Contains(out, "[decode] Stage ready") {
		t.Errorf("expected stage prefix in %q", out)
	}
	if !strings.Contains(out, "[MED][INF]") {
		t.Errorf("expected service and level tags in %q", out)
	}
	if strings.Contains(out, "stage:") {
		t.Errorf("stage should not repeat as a field in %q", out)
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "test").
		WithComponent("stage").
		WithFields(map[string]any{"key": "value"}).
		WithError(errors.New("boom"))
	l.Info("x")

	lines := decodeLines(t, &buf)
	if lines[0][FieldComponent] != "stage" || lines[0]["key"] != "value" || lines[0]["error"] != "boom" {
		t.Errorf("unexpected fields: %v", lines[0])
	}
}

func TestWithContext_SpanIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "test")

	if l.WithContext(context.Background()) != l {
		t.Error("expected the same logger when ctx carries no span")
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WithContext(ctx).Info("traced")
	lines := decodeLines(t, &buf)
	if lines[0][FieldTraceID] != traceID.String() {
		t.Errorf("expected trace_id %s, got %v", traceID, lines[0][FieldTraceID])
	}
	if lines[0][FieldSpanID] != spanID.String() {
		t.Errorf("expected span_id %s, got %v", spanID, lines[0][FieldSpanID])
	}
}

func TestEnabled(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	l := NewWithWriter(&bytes.Buffer{}, "info", "test")
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("debug should be disabled at info level")
	}
	if !l.Enabled(zerolog.ErrorLevel) {
		t.Error("error should be enabled at info level")
	}
}

func TestInit(t *testing.T) {
	Init(Config{Level: "info", Format: "console", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(Config{Level: "debug", Format: "console", Output: "stdout"})
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	_ = WithComponent("x")
	_ = WithContext(context.Background())
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&buf, "info", "test"))
	t.Cleanup(func() { Register("stage", nil) })

	l := NewDefault("pipeline")
	Register("stage", l)
	if Get("stage") != l {
		t.Error("expected Get to return the registered logger")
	}

	Register("stage", nil)
	Get("stage").Info("fallback")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldComponent] != "stage" {
		t.Errorf("expected the global logger tagged component=stage, got %v", lines)
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want map[string]any
	}{
		{"pairs", []any{"a", 1, "b", "x"}, map[string]any{"a": 1, "b": "x"}},
		{"odd count drops last", []any{"a", 1, "b"}, map[string]any{"a": 1}},
		{"non-string key skipped", []any{1, 2, "c", 3}, map[string]any{"c": 3}},
		{"empty", nil, map[string]any{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fields(tc.in...)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d fields, got %v", len(tc.want), got)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("expected %s=%v, got %v", k, v, got[k])
				}
			}
		})
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("flush", errors.New("eof"))
	if ef[FieldOperation] != "flush" || ef[FieldError] != "eof" {
		t.Errorf("unexpected error fields: %v", ef)
	}
	df := DurationFields("write", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}
