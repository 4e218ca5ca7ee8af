package stream

// Record is one server-sent event: its optional type tag and its data
// lines joined with "\n".
type Record struct {
	Event string
	Data  string
}

// Mapper turns records into events for one provider dialect. A Mapper may
// keep state across records (open tool calls, a pending stop reason), so
// each Decoder gets its own.
//
// Returning an error reports a malformed payload; the decoder turns it into
// a StreamError and ends the turn.
type Mapper interface {
	Map(rec Record) ([]Event, error)
}

// MapperFunc adapts a stateless function to Mapper.
type MapperFunc func(rec Record) ([]Event, error)

func (f MapperFunc) Map(rec Record) ([]Event, error) { return f(rec) }
