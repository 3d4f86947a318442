package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"tempsweep/internal/config"
	"tempsweep/internal/fsops"
	"tempsweep/internal/tempfiles"
)

const (
	defaultLogDir = "/var/log/tempsweep"
	logFile       = "tempsweep.log"
)

// New creates a logger writing to stdout and the default log file
func New() *log.Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates a logger with file output and rotation.
// Falls back to stdout alone if the log file cannot be opened.
func NewWithConfig(cfg *config.Config) *log.Logger {
	dir := defaultLogDir
	rotateDays := 30
	if cfg != nil {
		if cfg.Logging.Dir != "" {
			dir = cfg.Logging.Dir
		}
		if cfg.Logging.RotationDays > 0 {
			rotateDays = cfg.Logging.RotationDays
		}
	}
	return newLogger(os.Stdout, dir, rotateDays, time.Now())
}

func newLogger(console io.Writer, dir string, rotateDays int, now time.Time) *log.Logger {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", dir, err)
	}

	filePath := filepath.Join(dir, logFile)
	rotateLogsIfNeeded(filePath, rotateDays, now)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return log.New(console, "", log.LstdFlags|log.Lmicroseconds)
	}

	mw := io.MultiWriter(console, f)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}

// rotateLogsIfNeeded renames the log once it is older than rotationDays
// and prunes rotated copies past the same age
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoff := now.AddDate(0, 0, -rotationDays)
	if !info.ModTime().Before(cutoff) {
		return
	}

	rotatedPath := logPath + "." + info.ModTime().Format("20060102-150405")
	if err := os.Rename(logPath, rotatedPath); err != nil {
		log.Printf("failed to rotate log file: %v", err)
		return
	}

	cleanupOldLogs(logPath, cutoff)
}

// cleanupOldLogs removes rotated copies of logPath last written before cutoff
func cleanupOldLogs(logPath string, cutoff time.Time) {
	var fsys fsops.OSFS
	dir := filepath.Dir(logPath)

	names, err := fsys.ListFilesMatching(dir, filepath.Base(logPath)+".*")
	if err != nil {
		return
	}

	j := tempfiles.NewJanitor(fsys)
	for _, name := range names {
		full := fsops.Combine(dir, name)
		written, err := fsys.LastWriteTime(full)
		if err != nil || !written.Before(cutoff) {
			continue
		}
		if !j.TryDelete(full) {
			log.Printf("failed to remove old log file %s", full)
		}
	}
}

// Leveled is the key-value logging surface used by the daemon
type Leveled interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Leveled
type stdLogger struct {
	*log.Logger
}

// NewLeveled wraps l; a nil l uses log.Default()
func NewLeveled(l *log.Logger) Leveled {
	if l == nil {
		l = log.Default()
	}
	return &stdLogger{Logger: l}
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	parts := []interface{}{fmt.Sprintf("[%s]", level), msg}
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}
