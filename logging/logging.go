package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	logger  = newConsoleLogger(os.Stderr)
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

func newConsoleLogger(w io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(log.InfoLevel)
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	return l
}

// Logger returns the shared logrus logger.
func Logger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetDebug toggles debug level on the shared logger
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetupLogger sends log output to the given file. When debug is set the
// debug level is enabled as well.
func SetupLogger(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.SetOutput(logFile)
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}

	logger.WithField("started_at", time.Now().Format(time.RFC3339)).Info("imagesorter log started")

	isSetup = true
	return nil
}

// CloseLogger closes the log file and restores console logging
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.WithField("closed_at", time.Now().Format(time.RFC3339)).Info("imagesorter log closed")
		logFile.Close()
		logFile = nil
		isSetup = false
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	Logger().Infof(format, args...)
}

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	Logger().Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	Logger().Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	Logger().Warnf(format, args...)
}

// LogImageProcessed logs the outcome for a single image.
func LogImageProcessed(path string, destination string, err error) {
	if err != nil {
		Logger().WithFields(log.Fields{"path": path, "error": err}).Error("Failed to sort image")
		return
	}
	Logger().WithFields(log.Fields{"path": path, "destination": destination}).Debug("Sorted image")
}
