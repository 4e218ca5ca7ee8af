// Package logging builds the process logger and scrubs secrets from text
// that may reach a log file or the screen.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how verbosely to log.
type Options struct {
	// Debug writes JSON at debug level to DebugPath.
	Debug     bool
	DebugPath string
	// Plain logs warnings to stderr when Debug is off. Otherwise logging is
	// disabled, since the TUI owns the terminal.
	Plain bool
}

// New builds a logger for opts.
func New(opts Options) (*zap.Logger, error) {
	switch {
	case opts.Debug:
		if opts.DebugPath == "" {
			return nil, fmt.Errorf("debug logging requires a log path")
		}
		if err := os.MkdirAll(filepath.Dir(opts.DebugPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.OutputPaths = []string{opts.DebugPath}
		config.ErrorOutputPaths = []string{opts.DebugPath}
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		logger, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logger, nil
	case opts.Plain:
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		config.Encoding = "console"
		config.OutputPaths = []string{"stderr"}
		config.DisableStacktrace = true
		config.DisableCaller = true
		logger, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logger, nil
	default:
		return zap.NewNop(), nil
	}
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`),
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._\-]{8,}`),
	regexp.MustCompile(`(?i)((?:x-api-key|x-goog-api-key|api[_-]?key)["']?\s*[:=]\s*["']?)[A-Za-z0-9._\-]{8,}`),
}

// Redacted replaces every secret RedactSecrets finds.
const Redacted = "[REDACTED]"

// RedactSecrets masks API keys and bearer tokens in s.
func RedactSecrets(s string) string {
	for i, re := range secretPatterns {
		if i < 2 {
			s = re.ReplaceAllString(s, Redacted)
			continue
		}
		s = re.ReplaceAllString(s, "${1}"+Redacted)
	}
	return s
}
