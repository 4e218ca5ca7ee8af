package executor

import (
	"bytes"

	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
)

const binarySampleSize = 8000

// collector captures command output up to maxBytes, keeping the oldest data.
// Output that looks binary is replaced by a marker.
type collector struct {
	buffer    bytes.Buffer
	maxBytes  int
	truncated bool
	isBinary  bool

	bytesChecked int
}

func newCollector(maxBytes int) *collector {
	return &collector{maxBytes: maxBytes}
}

func (c *collector) Write(p []byte) (int, error) {
	if c.isBinary {
		return len(p), nil
	}

	if c.bytesChecked < binarySampleSize {
		toCheck := p[:min(len(p), binarySampleSize-c.bytesChecked)]
		if content.IsBinaryContent(toCheck) {
			c.isBinary = true
			c.truncated = true
			return len(p), nil
		}
		c.bytesChecked += len(toCheck)
	}

	remaining := c.maxBytes - c.buffer.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
		c.truncated = true
	}
	c.buffer.Write(toWrite)

	// Always claim the full write so the child never sees EPIPE.
	return len(p), nil
}

func (c *collector) String() string {
	if c.isBinary {
		return "[binary output omitted]"
	}
	return c.buffer.String()
}

func (c *collector) Truncated() bool {
	return c.truncated
}
