package loop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/hewenyu/OperationKernel/internal/provider"
)

// repeatThreshold is how many identical calls inside the window trigger a warning.
const repeatThreshold = 3

// loopDetector remembers the signatures of recent tool calls.
type loopDetector struct {
	window int
	recent []string
}

func newLoopDetector(window int) *loopDetector {
	return &loopDetector{window: window}
}

// observe records call and reports how often the same call now appears in
// the window. A window of zero disables detection.
func (d *loopDetector) observe(call provider.ToolCall) int {
	if d.window <= 0 {
		return 0
	}
	sig := signature(call)
	d.recent = append(d.recent, sig)
	if len(d.recent) > d.window {
		d.recent = d.recent[len(d.recent)-d.window:]
	}
	n := 0
	for _, s := range d.recent {
		if s == sig {
			n++
		}
	}
	return n
}

func (d *loopDetector) reset() {
	d.recent = nil
}

// signature hashes the tool name and canonical arguments. Map keys are
// sorted by encoding/json, so argument order does not matter.
func signature(call provider.ToolCall) string {
	h := sha256.New()
	h.Write([]byte(call.Name))
	h.Write([]byte{0})
	if call.Arguments != nil {
		b, err := json.Marshal(call.Arguments)
		if err == nil {
			h.Write(b)
		}
	} else {
		h.Write([]byte(call.RawArguments))
	}
	return hex.EncodeToString(h.Sum(nil))
}
