package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggers   = make(map[string]*logrus.Logger)
	hooks     []*AsyncHook
	loggersMu sync.Mutex

	config *LogConfig
)

// Init configures the logging system. A nil cfg means DefaultConfig().
func Init(cfg *LogConfig) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if writesFiles(cfg) {
		if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	loggersMu.Lock()
	config = cfg
	loggersMu.Unlock()
	return nil
}

func writesFiles(cfg *LogConfig) bool {
	return cfg.Output == "file" || cfg.Output == "both"
}

// GetLogger returns the named logger (app, audit, error or any other name),
// creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if config == nil {
		cfg := DefaultConfig()
		if writesFiles(cfg) {
			if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
				cfg.Output = "stdout"
			}
		}
		config = cfg
	}

	if l, ok := loggers[name]; ok {
		return l
	}

	l := createLogger(name, config)
	loggers[name] = l
	return l
}

func createLogger(name string, cfg *LogConfig) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	var writers []io.Writer
	if writesFiles(cfg) {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logFilePath(name, cfg),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if cfg.Output == "stdout" || cfg.Output == "both" {
		writers = append(writers, os.Stdout)
	}

	// A slow file writer must not stall request handling, so every writer
	// sits behind the async hook and the logger's own output is discarded.
	if len(writers) > 0 {
		hook := NewAsyncHookWithWriters(writers, cfg.BufferSize)
		l.AddHook(hook)
		hooks = append(hooks, hook)
		l.SetOutput(io.Discard)
	}

	l.SetReportCaller(true)
	return l
}

func logFilePath(name string, cfg *LogConfig) string {
	var filename string
	switch name {
	case "app":
		filename = cfg.AppFile
	case "audit":
		filename = cfg.AuditFile
	case "error":
		filename = cfg.ErrorFile
	default:
		filename = name + ".log"
	}
	return filepath.Join(cfg.LogPath, filename)
}

// Close drains every async hook. Loggers created afterwards start fresh.
func Close() {
	loggersMu.Lock()
	pending := hooks
	hooks = nil
	loggers = make(map[string]*logrus.Logger)
	loggersMu.Unlock()

	for _, h := range pending {
		_ = h.Close()
	}
}

func GetAppLogger() *logrus.Logger {
	return GetLogger("app")
}

func GetAuditLogger() *logrus.Logger {
	return GetLogger("audit")
}

func GetErrorLogger() *logrus.Logger {
	return GetLogger("error")
}
