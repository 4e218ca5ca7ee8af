package content

import (
	"errors"
	"unicode/utf8"
)

// Git's heuristic: a NUL byte within the first 8000 bytes means binary.
const binarySampleSize = 8000

// ErrNotText is returned when content cannot be treated as UTF-8 text.
var ErrNotText = errors.New("content is not valid UTF-8 text")

// IsBinaryContent checks if content bytes contain binary data by looking for null bytes.
// UTF-16 and UTF-32 byte order marks are treated as text.
func IsBinaryContent(content []byte) bool {
	if len(content) >= 2 {
		if (content[0] == 0xFF && content[1] == 0xFE) ||
			(content[0] == 0xFE && content[1] == 0xFF) {
			return false
		}
	}
	if len(content) >= 4 {
		if content[0] == 0x00 && content[1] == 0x00 && content[2] == 0xFE && content[3] == 0xFF {
			return false
		}
	}

	sampleSize := min(len(content), binarySampleSize)
	for i := range sampleSize {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// DecodeText returns content as a string when it is NUL-free UTF-8.
func DecodeText(content []byte) (string, error) {
	if IsBinaryContent(content) || !utf8.Valid(content) {
		return "", ErrNotText
	}
	return string(content), nil
}
