package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"anthropic key", "invalid x: sk-ant-api03-abcdefghijkl", "invalid x: [REDACTED]"},
		{"google key", "key AIzaSyA1234567890abcdefghijk rejected", "key [REDACTED] rejected"},
		{"bearer", "Authorization: Bearer abcdef123456", "Authorization: Bearer [REDACTED]"},
		{"header style", `"x-api-key": "abcdefgh12345"`, `"x-api-key": "[REDACTED]"`},
		{"nothing secret", "rate limit exceeded", "rate limit exceeded"},
		{"short sk prefix", "sk-1", "sk-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets(tt.in))
		})
	}
}

func TestNew_Nop(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	logger.Info("dropped")
}

func TestNew_DebugWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ok-debug.log")
	logger, err := New(Options{Debug: true, DebugPath: path})
	require.NoError(t, err)

	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_DebugRequiresPath(t *testing.T) {
	_, err := New(Options{Debug: true})
	assert.Error(t, err)
}
