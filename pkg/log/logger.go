package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures the process-wide logger.
type Config struct {
	Level      string `yaml:"level"`        // debug, info, warn, error
	Format     string `yaml:"format"`       // console or json
	File       string `yaml:"file"`         // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`  // rotation size for File
	MaxBackups int    `yaml:"max_backups"`  // rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days"` // days to keep rotated files
}

// DefaultConfig logs human-readable records at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// ParseLevel converts a textual level into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { write(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { write(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { write(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { write(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	fields = evenFields(fields)
	if len(fields) == 0 {
		return l
	}
	return &zerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zlLevel := toZerologLevel(level)
	return l.zl.GetLevel() <= zlLevel && zerolog.GlobalLevel() <= zlLevel
}

// write emits one record. A leading error field is logged with its stack.
func write(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			fields = fields[1:]
		}
	}
	if fields = evenFields(fields); len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

// evenFields drops a dangling key; zerolog expects complete pairs.
func evenFields(fields []any) []any {
	return fields[:len(fields)-len(fields)%2]
}

// ZerologProvider hands out loggers derived from one zerolog root.
type ZerologProvider struct {
	mu   sync.RWMutex
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing to w at the given level.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	root := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level))
	return &ZerologProvider{root: root}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.root.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = p.root.Level(toZerologLevel(level))
}

// rootLogger returns the underlying zerolog logger.
func (p *ZerologProvider) rootLogger() zerolog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
		LevelInfo,
	)
)

// SetProvider replaces the process-wide provider and returns the previous
// one. Tests install a TestProvider through Capture.
func SetProvider(p LoggerProvider) LoggerProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	prev := defaultProvider
	defaultProvider = p
	return prev
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel changes the minimum level of the default provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	defaultProvider.SetLevel(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs a zerolog provider built from cfg and routes warnings from
// pkg/errors into it. The returned Closer releases the log file, if any.
func Setup(cfg Config) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var console io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case "json":
		console = os.Stderr
	default:
		return nil, errors.NewValidationError("log.format", "must be console or json", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = zerolog.MultiLevelWriter(console, rotating)
		closer = rotating
	}

	zerolog.ErrorStackMarshaler = marshalStack
	provider := NewZerologProvider(out, level)
	SetProvider(provider)
	errors.SetZerologWarnFunc(warnTo(provider))
	return closer, nil
}

// warnTo logs pkg/errors warnings; structured warnings keep their fields.
func warnTo(p *ZerologProvider) func(error) {
	return func(w error) {
		zl := p.rootLogger()
		e := zl.Warn().Str(ComponentKey, "warnings")
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(w.Error())
	}
}
