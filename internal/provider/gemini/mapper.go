package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hewenyu/OperationKernel/internal/logging"
	"github.com/hewenyu/OperationKernel/internal/stream"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// Mapper maps streamGenerateContent SSE chunks to stream events. Gemini
// delivers each function call whole, so one call yields Start, one
// ArgsDelta and End together.
type Mapper struct {
	newID    func() string
	sawCalls bool
}

// NewMapper returns a mapper for one response.
func NewMapper() *Mapper {
	return &Mapper{newID: func() string { return syntheticIDPrefix + uuid.NewString() }}
}

// Map implements stream.Mapper.
func (m *Mapper) Map(rec stream.Record) ([]stream.Event, error) {
	if !gjson.Valid(rec.Data) {
		return nil, fmt.Errorf("malformed chunk payload")
	}
	if apiErr := gjson.Get(rec.Data, "error"); apiErr.Exists() {
		msg := apiErr.Get("message").String()
		if msg == "" {
			msg = apiErr.Raw
		}
		if status := apiErr.Get("status").String(); status != "" {
			msg = status + ": " + msg
		}
		return []stream.Event{stream.StreamError{Message: logging.RedactSecrets(msg)}}, nil
	}

	var chunk genai.GenerateContentResponse
	if err := json.Unmarshal([]byte(rec.Data), &chunk); err != nil {
		return nil, fmt.Errorf("malformed chunk payload: %v", err)
	}

	if len(chunk.Candidates) == 0 {
		if pf := chunk.PromptFeedback; pf != nil && pf.BlockReason != "" {
			return []stream.Event{stream.StreamError{Message: fmt.Sprintf("prompt blocked: %s", pf.BlockReason)}}, nil
		}
		return nil, nil
	}

	cand := chunk.Candidates[0]
	var events []stream.Event
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.FunctionCall != nil:
				evs, err := m.functionCall(part.FunctionCall)
				if err != nil {
					return nil, err
				}
				events = append(events, evs...)
			case part.Thought:
			case part.Text != "":
				events = append(events, stream.TextDelta{Text: part.Text})
			}
		}
	}

	if cand.FinishReason != "" {
		events = append(events, m.finish(cand.FinishReason))
	}
	return events, nil
}

func (m *Mapper) functionCall(fc *genai.FunctionCall) ([]stream.Event, error) {
	if fc.Name == "" {
		return nil, fmt.Errorf("function call without name")
	}
	id := fc.ID
	if id == "" {
		id = m.newID()
	}
	args := []byte("{}")
	if len(fc.Args) > 0 {
		var err error
		if args, err = json.Marshal(fc.Args); err != nil {
			return nil, fmt.Errorf("encoding function call args: %v", err)
		}
	}
	m.sawCalls = true
	return []stream.Event{
		stream.ToolCallStart{ID: id, Name: fc.Name},
		stream.ToolCallArgsDelta{ID: id, Fragment: string(args)},
		stream.ToolCallEnd{ID: id},
	}, nil
}

func (m *Mapper) finish(reason genai.FinishReason) stream.Event {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return stream.TurnEnd{StopReason: stream.StopMaxTokens}
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonMalformedFunctionCall,
		genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return stream.StreamError{Message: fmt.Sprintf("generation stopped: %s", reason)}
	}
	if m.sawCalls {
		return stream.TurnEnd{StopReason: stream.StopToolUse}
	}
	return stream.TurnEnd{StopReason: stream.StopEndTurn}
}
