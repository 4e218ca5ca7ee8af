package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line LF", "line1", []string{"line1"}},
		{"multiple lines LF", "line1\nline2\nline3", []string{"line1", "line2", "line3"}},
		{"trailing newline LF", "line1\n", []string{"line1"}},
		{"empty string", "", nil},
		{"only newline LF", "\n", []string{""}},
		{"multiple lines CRLF", "line1\r\nline2\r\nline3", []string{"line1", "line2", "line3"}},
		{"mixed endings", "line1\nline2\r\nline3", []string{"line1", "line2", "line3"}},
		{"dangling CR", "line1\rline2", []string{"line1\rline2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitLines(tt.input))
		})
	}
}

func TestSplitLinesInclusive_RoundTrips(t *testing.T) {
	inputs := []string{"", "a", "a\n", "a\nb", "a\nb\n", "\n\n", "x\r\ny\r\n"}
	for _, in := range inputs {
		assert.Equal(t, in, strings.Join(SplitLinesInclusive(in), ""), "input %q", in)
	}
	assert.Equal(t, []string{"a\n", "b"}, SplitLinesInclusive("a\nb"))
}

func TestDecodeText(t *testing.T) {
	text, err := DecodeText([]byte("héllo\n"))
	assert.NoError(t, err)
	assert.Equal(t, "héllo\n", text)

	_, err = DecodeText([]byte{'a', 0, 'b'})
	assert.ErrorIs(t, err, ErrNotText)

	_, err = DecodeText([]byte{0xff, 0xfe, 0xfd, 'x'})
	assert.ErrorIs(t, err, ErrNotText)
}
