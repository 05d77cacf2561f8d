// Package logger provides timestamped file logging for ketshash
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SinkTimeout bounds how long a verdict report may wait for the file sink.
// On expiry the file write is skipped; console output is unaffected.
const SinkTimeout = 250 * time.Millisecond

// Logger is the main logger instance. The file handle is guarded by a
// single-slot semaphore so report writes can bail out on contention
// instead of blocking a host worker.
type Logger struct {
	sem      chan struct{}
	file     *os.File
	filePath string
	enabled  bool
	level    Level
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger. An empty path disables file logging;
// every log call becomes a no-op.
func Init(path string) error {
	var initErr error
	once.Do(func() {
		instance = &Logger{
			sem:   make(chan struct{}, 1),
			level: LevelDebug,
		}

		if path == "" {
			return
		}

		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				initErr = fmt.Errorf("failed to create log directory: %w", err)
				return
			}
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			initErr = fmt.Errorf("failed to open log file: %w", err)
			return
		}

		instance.enabled = true
		instance.file = file
		instance.filePath = path

		instance.writeHeader()
	})

	return initErr
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	if instance == nil || instance.file == nil {
		return ""
	}
	return instance.filePath
}

// Close closes the log file
func Close() {
	if instance != nil && instance.file != nil {
		instance.writeFooter()
		instance.file.Close()
	}
}

func (l *Logger) acquire() {
	l.sem <- struct{}{}
}

func (l *Logger) tryAcquire(timeout time.Duration) bool {
	select {
	case l.sem <- struct{}{}:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (l *Logger) release() {
	<-l.sem
}

func (l *Logger) writeHeader() {
	l.acquire()
	defer l.release()

	hostname, _ := os.Hostname()
	header := fmt.Sprintf(`================================================================================
ketshash log
================================================================================
Start Time: %s
Hostname:   %s
OS:         %s/%s
Go Version: %s
================================================================================

`, time.Now().Format("2006-01-02 15:04:05.000 MST"), hostname, runtime.GOOS, runtime.GOARCH, runtime.Version())

	l.file.WriteString(header)
}

func (l *Logger) writeFooter() {
	l.acquire()
	defer l.release()

	footer := fmt.Sprintf(`
================================================================================
End Time: %s
================================================================================
`, time.Now().Format("2006-01-02 15:04:05.000 MST"))

	l.file.WriteString(footer)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil || !l.enabled || l.file == nil {
		return
	}

	if level < l.level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	// Get caller info
	_, file, line, ok := runtime.Caller(2)
	caller := ""
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	logLine := fmt.Sprintf("[%s] [%-5s] [%-20s] %s\n", timestamp, level.String(), caller, msg)

	l.acquire()
	defer l.release()
	l.file.WriteString(logLine)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	if instance != nil {
		instance.log(LevelDebug, format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if instance != nil {
		instance.log(LevelInfo, format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if instance != nil {
		instance.log(LevelWarn, format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if instance != nil {
		instance.log(LevelError, format, args...)
	}
}

// Section logs a section header for better readability
func Section(name string) {
	if instance != nil {
		instance.log(LevelInfo, "")
		instance.log(LevelInfo, "========== %s ==========", name)
	}
}

// Timing logs execution time for a function
func Timing(operation string, start time.Time) {
	if instance != nil {
		elapsed := time.Since(start)
		instance.log(LevelDebug, "[TIMING] %s completed in %v", operation, elapsed)
	}
}

// Report writes one multi-line verdict record under a bounded wait.
// Returns false when the sink could not be acquired within SinkTimeout or
// file logging is disabled; the caller decides what to do with the report.
func Report(lines []string) bool {
	l := instance
	if l == nil || !l.enabled || l.file == nil {
		return false
	}

	if !l.tryAcquire(SinkTimeout) {
		return false
	}
	defer l.release()

	timestamp := time.Now().Format("15:04:05.000")
	for _, line := range lines {
		fmt.Fprintf(l.file, "[%s] [%-5s] %s\n", timestamp, LevelInfo.String(), line)
	}
	return true
}

// APICall logs Windows API calls
func APICall(api string, params ...interface{}) {
	paramStr := fmt.Sprintf("%v", params)
	Debug("API Call: %s %s", api, paramStr)
}

// APIResult logs Windows API call results
func APIResult(api string, result interface{}, err error) {
	if err != nil {
		Error("API Result: %s failed: %v", api, err)
	} else {
		Debug("API Result: %s success: %v", api, result)
	}
}
