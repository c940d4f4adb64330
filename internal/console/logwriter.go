package console

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogWriter handles writing console output to log files
type LogWriter struct {
	logPath      string
	file         *os.File
	maxSizeBytes int64
	mu           sync.Mutex
}

// NewLogWriter creates a log writer with a fresh timestamped file
func NewLogWriter(logDir string, maxSizeBytes int64) (*LogWriter, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("console_%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	lw := &LogWriter{
		logPath:      logPath,
		file:         file,
		maxSizeBytes: maxSizeBytes,
	}

	log.Printf("[Console] Logging server output to %s", logPath)
	return lw, nil
}

// WriteLine writes a timestamped line to the log file
func (lw *LogWriter) WriteLine(kind, line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.file == nil {
		return fmt.Errorf("log writer is closed")
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(lw.file, "[%s] [%s] %s\n", timestamp, kind, line); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}

	if lw.maxSizeBytes > 0 {
		if info, err := lw.file.Stat(); err == nil && info.Size() >= lw.maxSizeBytes {
			if err := lw.rotateLocked(); err != nil {
				log.Printf("[Console] Log rotation failed: %v", err)
			}
		}
	}

	return nil
}

// rotateLocked opens a fresh timestamped file. Caller must hold the mutex.
func (lw *LogWriter) rotateLocked() error {
	dir := filepath.Dir(lw.logPath)

	lw.file.Close()

	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	logPath := filepath.Join(dir, fmt.Sprintf("console_%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		lw.file = nil
		return fmt.Errorf("failed to open rotated log file: %w", err)
	}

	lw.logPath = logPath
	lw.file = file
	log.Printf("[Console] Rotated console log to %s", logPath)
	return nil
}

// Path returns the current log file path
func (lw *LogWriter) Path() string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.logPath
}

// Close closes the underlying file
func (lw *LogWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.file == nil {
		return nil
	}
	err := lw.file.Close()
	lw.file = nil
	return err
}
