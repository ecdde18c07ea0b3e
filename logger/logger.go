// Package logger wraps zap for structured logging.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log        *zap.Logger
	once       sync.Once
	mu         sync.Mutex
	rotator    *lumberjack.Logger
	level      = zap.NewAtomicLevelAt(zap.InfoLevel)
	logFile    = "masquerade.log" // Default log file
	maxSizeMB  = 100
	maxBackups = 3
)

// SetLogPath sets the log file used by the next InitLogger call.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logFile = path
}

// SetRotation sets the size in megabytes at which the log file is rotated
// and how many rotated files are kept.
func SetRotation(sizeMB, backups int) {
	mu.Lock()
	defer mu.Unlock()
	if sizeMB > 0 {
		maxSizeMB = sizeMB
	}
	if backups >= 0 {
		maxBackups = backups
	}
}

// SetLevel changes the minimum level of both outputs. It may be called
// before or after InitLogger.
func SetLevel(l string) error {
	if err := level.UnmarshalText([]byte(l)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", l, err)
	}
	return nil
}

// InitLogger initializes the Zap logger with structured logging.
func InitLogger() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()

		// Rotating JSON file output
		rotator = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		fileCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level)

		// Configure console logging
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level)

		// Combine both outputs (console + file)
		core := zapcore.NewTee(consoleCore, fileCore)

		log = zap.New(core, zap.AddCaller())
	})
}

// GetLogger provides access to the initialized logger.
func GetLogger() *zap.Logger {
	if log == nil {
		InitLogger()
	}
	return log
}

// Sync ensures buffered logs are written before the application exits.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ResetLogger closes the log file and discards the logger so the next
// InitLogger call starts over. Used by tests.
func ResetLogger() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
	if rotator != nil {
		_ = rotator.Close()
	}
	log = nil
	rotator = nil
	once = sync.Once{}
	level.SetLevel(zap.InfoLevel)
}
