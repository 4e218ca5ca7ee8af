package provider

import "github.com/hewenyu/OperationKernel/internal/tool"

// Request is everything a provider needs to open one streamed turn.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []tool.Declaration
	MaxTokens   int
	Temperature *float64
}
