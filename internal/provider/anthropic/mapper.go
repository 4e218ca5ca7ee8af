package anthropic

import (
	"fmt"

	"github.com/hewenyu/OperationKernel/internal/logging"
	"github.com/hewenyu/OperationKernel/internal/stream"
	"github.com/tidwall/gjson"
)

// Event types of the Messages streaming protocol.
const (
	eventMessageStart      = "message_start"
	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
	eventPing              = "ping"
	eventError             = "error"
)

type openBlock struct {
	toolID     string
	startInput string
	sawArgs    bool
}

// Mapper maps Messages SSE records to stream events.
type Mapper struct {
	blocks     map[int64]*openBlock
	stopReason string
}

// NewMapper returns a mapper for one response.
func NewMapper() *Mapper {
	return &Mapper{blocks: make(map[int64]*openBlock)}
}

// Map implements stream.Mapper.
func (m *Mapper) Map(rec stream.Record) ([]stream.Event, error) {
	typ := rec.Event
	if typ == "" {
		typ = gjson.Get(rec.Data, "type").String()
	}
	switch typ {
	case eventMessageStart, eventContentBlockStart, eventContentBlockDelta,
		eventContentBlockStop, eventMessageDelta, eventMessageStop, eventPing, eventError:
	default:
		return nil, nil
	}
	if !gjson.Valid(rec.Data) {
		return nil, fmt.Errorf("malformed %s payload", typ)
	}
	data := gjson.Parse(rec.Data)

	switch typ {
	case eventContentBlockStart:
		return m.blockStart(data)
	case eventContentBlockDelta:
		return m.blockDelta(data)
	case eventContentBlockStop:
		return m.blockStop(data)
	case eventMessageDelta:
		if r := data.Get("delta.stop_reason"); r.Type == gjson.String {
			m.stopReason = r.String()
		}
		return nil, nil
	case eventMessageStop:
		reason := m.stopReason
		if reason == "" {
			reason = stream.StopEndTurn
		}
		return []stream.Event{stream.TurnEnd{StopReason: reason}}, nil
	case eventError:
		msg := data.Get("error.message").String()
		if msg == "" {
			msg = "provider reported an error"
		}
		if et := data.Get("error.type").String(); et != "" {
			msg = et + ": " + msg
		}
		return []stream.Event{stream.StreamError{Message: logging.RedactSecrets(msg)}}, nil
	}
	return nil, nil
}

func (m *Mapper) blockStart(data gjson.Result) ([]stream.Event, error) {
	index, err := blockIndex(data)
	if err != nil {
		return nil, err
	}
	cb := data.Get("content_block")
	if !cb.IsObject() {
		return nil, fmt.Errorf("content_block_start without content_block")
	}
	switch cb.Get("type").String() {
	case "tool_use":
		id, name := cb.Get("id").String(), cb.Get("name").String()
		if id == "" || name == "" {
			return nil, fmt.Errorf("tool_use block missing id or name")
		}
		m.blocks[index] = &openBlock{toolID: id, startInput: cb.Get("input").Raw}
		return []stream.Event{stream.ToolCallStart{ID: id, Name: name}}, nil
	case "text":
		m.blocks[index] = &openBlock{}
		if text := cb.Get("text").String(); text != "" {
			return []stream.Event{stream.TextDelta{Text: text}}, nil
		}
	default:
		m.blocks[index] = &openBlock{}
	}
	return nil, nil
}

func (m *Mapper) blockDelta(data gjson.Result) ([]stream.Event, error) {
	index, err := blockIndex(data)
	if err != nil {
		return nil, err
	}
	delta := data.Get("delta")
	switch delta.Get("type").String() {
	case "text_delta":
		text := delta.Get("text")
		if text.Type != gjson.String {
			return nil, fmt.Errorf("text_delta without text")
		}
		return []stream.Event{stream.TextDelta{Text: text.String()}}, nil
	case "input_json_delta":
		b, ok := m.blocks[index]
		if !ok || b.toolID == "" {
			return nil, fmt.Errorf("input_json_delta for unknown tool block %d", index)
		}
		b.sawArgs = true
		return []stream.Event{stream.ToolCallArgsDelta{ID: b.toolID, Fragment: delta.Get("partial_json").String()}}, nil
	}
	return nil, nil
}

func (m *Mapper) blockStop(data gjson.Result) ([]stream.Event, error) {
	index, err := blockIndex(data)
	if err != nil {
		return nil, err
	}
	b, ok := m.blocks[index]
	delete(m.blocks, index)
	if !ok || b.toolID == "" {
		return nil, nil
	}
	var events []stream.Event
	// Calls whose input arrived whole in content_block_start have no deltas.
	if !b.sawArgs && b.startInput != "" && b.startInput != "{}" {
		events = append(events, stream.ToolCallArgsDelta{ID: b.toolID, Fragment: b.startInput})
	}
	return append(events, stream.ToolCallEnd{ID: b.toolID}), nil
}

func blockIndex(data gjson.Result) (int64, error) {
	idx := data.Get("index")
	if idx.Type != gjson.Number {
		return 0, fmt.Errorf("content block event without index")
	}
	return idx.Int(), nil
}
