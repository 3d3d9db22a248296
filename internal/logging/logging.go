// Package logging builds the structured logger shared by multiverse components.
// The TUI owns the terminal, so interactive sessions log to a rotated file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// timestampFormat is used by both formatters.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger settings.
type Config struct {
	Level      string    // debug, info, warn, error
	Format     string    // json, text
	File       string    // rotated log file; empty writes to Output
	MaxSizeMB  int       // rotate after this many megabytes
	MaxBackups int       // rotated files to keep
	Output     io.Writer // used when File is empty; nil means stderr
	Component  string    // value of the "component" field on every entry
}

// Logger wraps a logrus entry and owns the file writer, if any.
type Logger struct {
	*logrus.Entry
	closer io.Closer
}

// New creates a Logger from cfg. Unknown levels fall back to info.
func New(cfg Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(cfg.Format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			DisableColors:   cfg.File != "",
		})
	}

	l := &Logger{}
	switch {
	case cfg.File != "":
		if dir := filepath.Dir(cfg.File); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		fw := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		log.SetOutput(fw)
		l.closer = fw
	case cfg.Output != nil:
		log.SetOutput(cfg.Output)
	default:
		log.SetOutput(os.Stderr)
	}

	component := cfg.Component
	if component == "" {
		component = "multiverse"
	}
	l.Entry = log.WithField("component", component)
	return l
}

// Close flushes and closes the log file, if one is open.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Discard returns a logger that drops everything. Components use it when no
// logger is injected.
func Discard() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
