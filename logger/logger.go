package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Logger wraps zerolog.Logger. Derived loggers share the service name.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init installs a global logger built from cfg and sets the zerolog global
// level.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	globalLogger = New(&cfg, "default")

	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.console() {
		log.Logger = newConsoleLogger(&cfg, "default", outputWriter(cfg.Output))
	}
}

// New creates a logger from cfg.
func New(cfg *Config, serviceName string) *Logger {
	return newLogger(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter creates a JSON logger that writes to w.
func NewWithWriter(w io.Writer, level, serviceName string) *Logger {
	return newLogger(&Config{Level: level, Format: "json", Timestamp: true}, serviceName, w)
}

// NewDefault creates an info-level console logger on stdout.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: "console", Output: "stdout", Timestamp: true}, serviceName)
}

// NewFromEnv creates a logger from LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT,
// LOG_NO_COLOR and LOG_TIMESTAMP.
func NewFromEnv(serviceName string) *Logger {
	return New(&Config{
		Level:     envOr("LOG_LEVEL", "info"),
		Format:    envOr("LOG_FORMAT", "console"),
		Output:    envOr("LOG_OUTPUT", "stdout"),
		NoColor:   envOr("LOG_NO_COLOR", "false") == "true",
		Timestamp: envOr("LOG_TIMESTAMP", "true") == "true",
	}, serviceName)
}

func newLogger(cfg *Config, serviceName string, output io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(output)
	if cfg.console() {
		zl = newConsoleLogger(cfg, serviceName, output)
	}
	zc := zl.With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{logger: zc.Logger().Level(level), service: serviceName}
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithContext adds the trace and span IDs of the active span in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.derive(l.logger.With().
		Str(FieldTraceID, sc.TraceID().String()).
		Str(FieldSpanID, sc.SpanID().String()))
}

// WithComponent tags the logger with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.logger.With().Str(FieldComponent, name))
}

// WithStage tags the logger with a stage name, kind and instance ID.
func (l *Logger) WithStage(name, kind, id string) *Logger {
	return l.derive(l.logger.With().
		Str(FieldStage, name).
		Str(FieldKind, kind).
		Str(FieldStageID, id))
}

// WithFields adds fields to every message.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.logger.With().Fields(fields))
}

// WithError adds an error field to every message.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.logger.With().Err(err))
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return l.logger.GetLevel() <= level && zerolog.GlobalLevel() <= level
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		event.Fields(fm)
	}
	event.Msg(msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Debug(), msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Info(), msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Warn(), msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Error(), msg, fields)
}

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Fatal(), msg, fields)
}

var globalLogger *Logger

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating a default one on
// first use.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Fatal(msg, fields...) }

// WithContext returns the global logger enriched from ctx.
func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithComponent returns the global logger tagged with a component name.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type levelLabel struct {
	tag   string
	color string
}

var levelLabels = map[string]levelLabel{
	"trace": {"TRC", "\033[90m"},
	"debug": {"DBG", "\033[36m"},
	"info":  {"INF", "\033[32m"},
	"warn":  {"WRN", "\033[33m"},
	"error": {"ERR", "\033[31m"},
	"fatal": {"FTL", "\033[35m"},
}

const colorReset = "\033[0m"

// newConsoleLogger writes human-readable lines. A stage field, when
// present, is moved in front of the message so interleaved stages stay
// readable.
func newConsoleLogger(cfg *Config, serviceName string, output io.Writer) zerolog.Logger {
	paint := func(color, s string) string {
		if cfg.NoColor {
			return s
		}
		return color + s + colorReset
	}
	service := ""
	if serviceName != "" && serviceName != "default" && len(serviceName) >= 3 {
		service = paint("\033[34m", "["+strings.ToUpper(serviceName[:3])+"]")
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatPrepare: func(evt map[string]interface{}) error {
			if stage, ok := evt[FieldStage].(string); ok {
				evt[zerolog.MessageFieldName] = fmt.Sprintf("[%s] %v", stage, evt[zerolog.MessageFieldName])
				delete(evt, FieldStage)
			}
			return nil
		},
		FormatLevel: func(i interface{}) string {
			name := fmt.Sprintf("%s", i)
			label, ok := levelLabels[name]
			if !ok {
				return service + "[" + strings.ToUpper(name) + "]"
			}
			return service + paint(label.color, "["+label.tag+"]")
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	})
}
