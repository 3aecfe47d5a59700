package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger *Logger
	once         sync.Once
)

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

type Component string
type LogLevel int

const (
	ComponentGeneral     Component = "General"
	ComponentConfig      Component = "Config"
	ComponentService     Component = "Service"
	ComponentStorage     Component = "Storage"
	ComponentNATS        Component = "NATS"
	ComponentAMQP        Component = "AMQP"
	ComponentFirefly     Component = "Firefly"
	ComponentCoordinator Component = "Coordinator"
	ComponentAPI         Component = "API"
	ComponentCLI         Component = "CLI"
)

// AllComponents lists every component enabled by default.
var AllComponents = []Component{
	ComponentGeneral,
	ComponentConfig,
	ComponentService,
	ComponentStorage,
	ComponentNATS,
	ComponentAMQP,
	ComponentFirefly,
	ComponentCoordinator,
	ComponentAPI,
	ComponentCLI,
}

type Logger struct {
	mu                sync.RWMutex
	logger            zerolog.Logger
	file              *os.File
	level             LogLevel
	enabledComponents map[Component]bool
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	// Dir, when set, tees output into a timestamped file in that directory.
	Dir string
	// Format is "json" or "human".
	Format     string
	Level      LogLevel
	Components []Component
	Output     io.Writer
}

func InitGlobalLogger(opts LoggerOptions) error {
	var err error
	once.Do(func() {
		globalLogger, err = NewLogger(opts)
	})
	return err
}

func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = newLogger(zerolog.ConsoleWriter{Out: os.Stderr}, nil, LogLevelInfo, AllComponents)
	}
	return globalLogger
}

// NopLogger discards everything; used by tests and library callers.
func NopLogger() *Logger {
	return newLogger(io.Discard, nil, LogLevelFatal+1, nil)
}

func NewLogger(opts LoggerOptions) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logPath := filepath.Join(opts.Dir, fmt.Sprintf("fireflyiii_%s.log", timestamp))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = zerolog.MultiLevelWriter(out, file)
	}

	components := opts.Components
	if len(components) == 0 {
		components = AllComponents
	}
	return newLogger(out, file, opts.Level, components), nil
}

func newLogger(out io.Writer, file *os.File, level LogLevel, components []Component) *Logger {
	enabledComponents := make(map[Component]bool)
	for _, component := range components {
		enabledComponents[component] = true
	}

	return &Logger{
		logger:            zerolog.New(out).With().Timestamp().Logger(),
		file:              file,
		level:             level,
		enabledComponents: enabledComponents,
	}
}

// ParseLogLevel maps a level name to a LogLevel, defaulting to info.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) EnableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabledComponents[component] = true
}

func (l *Logger) DisableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabledComponents[component] = false
}

func (l *Logger) IsComponentEnabled(component Component) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabledComponents[component]
}

// Zerolog exposes the underlying logger for libraries that want one.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

func (l *Logger) log(level LogLevel, component Component, format string, args ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level || !l.enabledComponents[component] {
		return
	}

	zlevel := zerolog.InfoLevel
	switch level {
	case LogLevelDebug:
		zlevel = zerolog.DebugLevel
	case LogLevelWarn:
		zlevel = zerolog.WarnLevel
	case LogLevelError:
		zlevel = zerolog.ErrorLevel
	case LogLevelFatal:
		zlevel = zerolog.FatalLevel
	}

	// WithLevel on FatalLevel does not exit.
	l.logger.WithLevel(zlevel).Str("component", string(component)).Msgf(format, args...)

	if level == LogLevelFatal {
		os.Exit(1)
	}
}

func (l *Logger) Debug(component Component, format string, args ...interface{}) {
	l.log(LogLevelDebug, component, format, args...)
}

func (l *Logger) Info(component Component, format string, args ...interface{}) {
	l.log(LogLevelInfo, component, format, args...)
}

func (l *Logger) Warn(component Component, format string, args ...interface{}) {
	l.log(LogLevelWarn, component, format, args...)
}

func (l *Logger) Error(component Component, format string, args ...interface{}) {
	l.log(LogLevelError, component, format, args...)
}

func (l *Logger) Fatal(component Component, format string, args ...interface{}) {
	l.log(LogLevelFatal, component, format, args...)
}
