package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how session logs are written.
type Options struct {
	// Dir is the log directory. Empty means ~/.webpilot/logs.
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Console mirrors entries to stderr.
	Console bool
}

// Logger provides leveled logging for webpilot components.
// All components of one process write to a single session file in the log
// directory, rotated by lumberjack.
type Logger struct {
	sugar     *zap.SugaredLogger
	sessionID string
	component string
	logPath   string
	closeOnce sync.Once
}

var (
	// one id per process, shared by every component logger
	sessionID     string
	sessionIDOnce sync.Once

	options = Options{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7}

	logDir string

	initOnce sync.Once
	initErr  error

	fileWriter *lumberjack.Logger
	level      = zap.NewAtomicLevelAt(zap.InfoLevel)
	mu         sync.Mutex
)

// Configure sets the logging options. It must be called before the first
// NewLogger call to affect the log directory and rotation settings; the level
// applies immediately to every logger.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = options.MaxSizeMB
	}
	options = opts
	if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
}

func processID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// openSink creates the log directory and the shared rotating writer once.
func openSink() error {
	initOnce.Do(func() {
		mu.Lock()
		opts := options
		mu.Unlock()

		dir := opts.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("resolve log directory: %w", err)
				return
			}
			dir = filepath.Join(home, ".webpilot", "logs")
		}

		if err := os.MkdirAll(dir, 0o750); err != nil {
			initErr = fmt.Errorf("create log directory %s: %w", dir, err)
			return
		}
		logDir = dir

		fileWriter = &lumberjack.Logger{
			Filename:   filepath.Join(dir, fmt.Sprintf("%s-webpilot.log", processID())),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
	})
	return initErr
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return cfg
}

// NewLogger returns a logger named after component.
// The logger writes to <log dir>/<session-id>-webpilot.log.
//
// If the log directory cannot be created, it returns a fallback logger that
// writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := openSink(); err != nil {
		return stderrLogger(component, err), err
	}

	mu.Lock()
	console := options.Console
	mu.Unlock()

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(fileWriter), level),
	}
	if console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level))
	}

	sessID := processID()
	base := zap.New(zapcore.NewTee(cores...)).Named(component).With(zap.String("session", sessID))

	return &Logger{
		sugar:     base.Sugar(),
		sessionID: sessID,
		component: component,
		logPath:   fileWriter.Filename,
	}, nil
}

// stderrLogger is used when the log file cannot be opened.
func stderrLogger(component string, err error) *Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
	l := zap.New(core).Named(component).Sugar()
	l.Warnf("failed to initialize file logging: %v", err)
	l.Warnf("falling back to stderr logging")

	return &Logger{
		sugar:     l,
		sessionID: processID(),
		component: component,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), component: "nop"}
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar:     l.sugar.With(keysAndValues...),
		sessionID: l.sessionID,
		component: l.component,
		logPath:   l.logPath,
	}
}

// SessionID returns the process-wide id stamped on every entry.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file. Empty for fallback loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes buffered entries. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.sugar.Sync()
		if err != nil && isIgnorableSyncError(err) {
			err = nil
		}
	})
	return err
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl")
}

// Shutdown closes the shared log file. Loggers created afterwards reopen it.
func Shutdown() error {
	if fileWriter == nil {
		return nil
	}
	return fileWriter.Close()
}

// GetSessionID returns the process-wide log session id.
func GetSessionID() string {
	return processID()
}

// GetLogDirectory returns the log directory, creating it if needed.
func GetLogDirectory() (string, error) {
	if err := openSink(); err != nil {
		return "", err
	}
	return logDir, nil
}
