package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/yourusername/game-server-supervisor/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger    *slog.Logger
	initOnce  sync.Once
	logCloser io.Closer
)

// Init configures the process-wide logger. The packages log through both
// slog and the classic log package, so log output is bridged into the same
// structured stream.
func Init(cfg config.LoggingConfig) *slog.Logger {
	initOnce.Do(func() {
		level := parseLevel(cfg.Level)
		output, closer := buildOutput(cfg)
		if closer != nil {
			logCloser = closer
		}

		options := &slog.HandlerOptions{Level: level}
		var handler slog.Handler
		if strings.EqualFold(cfg.Format, "text") {
			handler = slog.NewTextHandler(output, options)
		} else {
			handler = slog.NewJSONHandler(output, options)
		}

		logger = slog.New(handler)
		slog.SetDefault(logger)
		log.SetFlags(0)
		log.SetOutput(bridgeWriter{logger: logger})
	})

	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return logger
}

// L returns the configured logger, or a no-op logger if not initialized.
func L() *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// Close flushes and closes any logger resources.
func Close() error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// componentPrefix matches the "[Supervisor] ..." voice the packages log in
var componentPrefix = regexp.MustCompile(`^\[([^\]]+)\] `)

// bridgeWriter routes log.Printf output into the structured stream. The
// bracketed component prefix becomes a proper attribute instead of message
// noise.
type bridgeWriter struct {
	logger *slog.Logger
}

func (w bridgeWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	if m := componentPrefix.FindStringSubmatch(msg); m != nil {
		w.logger.Info(strings.TrimPrefix(msg, m[0]), "component", m[1])
		return len(p), nil
	}

	w.logger.Info(msg)
	return len(p), nil
}

// buildOutput keeps output on stdout alone when no file is configured,
// otherwise tees every line to a rotated supervisor log file as well.
func buildOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stdout, nil
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	return io.MultiWriter(os.Stdout, fileLogger), fileLogger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
