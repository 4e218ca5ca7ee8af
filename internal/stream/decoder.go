package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	readChunkSize = 32 * 1024
	// maxLineBytes bounds the carry-over buffer; no legitimate record line is this long.
	maxLineBytes = 16 << 20
)

// Decoder is a pull-based SSE parser for one response body. Line
// terminators are ASCII, so multi-byte UTF-8 sequences spanning reads stay
// intact in the carry-over buffer until their line completes.
//
// The event sequence always ends with exactly one TurnEnd or StreamError,
// after which Next returns io.EOF.
type Decoder struct {
	r      io.Reader
	mapper Mapper

	carry   []byte
	chunk   []byte
	pending []Event

	event   string
	data    []string
	hasData bool

	eof      bool
	finished bool
}

// NewDecoder creates a decoder reading from r and mapping records with m.
func NewDecoder(r io.Reader, m Mapper) *Decoder {
	if r == nil {
		panic("reader is required")
	}
	if m == nil {
		panic("mapper is required")
	}
	return &Decoder{r: r, mapper: m, chunk: make([]byte, readChunkSize)}
}

// Next returns the next event. A failure reading the body is returned as a
// *ReadError; the decoder is finished afterwards.
func (d *Decoder) Next() (Event, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.finished {
			return nil, io.EOF
		}

		if line, ok := d.nextLine(); ok {
			d.processLine(line)
			continue
		}

		if d.eof {
			d.finishAtEOF()
			continue
		}

		if len(d.carry) > maxLineBytes {
			d.fail(MsgRecordTooLarge)
			continue
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.carry = append(d.carry, d.chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.eof = true
				continue
			}
			d.finished = true
			d.pending = nil
			return nil, &ReadError{Cause: err}
		}
	}
}

// nextLine pops one complete line from the carry-over buffer, without its
// terminator. Lines end at "\r\n", "\n" or a bare "\r". A '\r' that is the
// last buffered byte waits for the next read unless the body is exhausted,
// since a '\n' may follow it.
func (d *Decoder) nextLine() (string, bool) {
	i := bytes.IndexAny(d.carry, "\r\n")
	if i < 0 {
		return "", false
	}
	next := i + 1
	if d.carry[i] == '\r' {
		if next == len(d.carry) && !d.eof {
			return "", false
		}
		if next < len(d.carry) && d.carry[next] == '\n' {
			next++
		}
	}
	line := string(d.carry[:i])
	d.carry = d.carry[next:]
	if len(d.carry) == 0 {
		d.carry = nil
	}
	return line, true
}

func (d *Decoder) processLine(line string) {
	if line == "" {
		d.dispatch()
		return
	}
	if strings.HasPrefix(line, ":") {
		return
	}

	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}
	switch field {
	case "event":
		d.event = value
	case "data":
		d.data = append(d.data, value)
		d.hasData = true
	}
	// id and retry carry nothing the agent needs.
}

// dispatch hands the buffered record to the mapper.
func (d *Decoder) dispatch() {
	if !d.hasData {
		d.event = ""
		return
	}
	rec := Record{Event: d.event, Data: strings.Join(d.data, "\n")}
	d.event, d.data, d.hasData = "", d.data[:0], false

	events, err := d.mapper.Map(rec)
	if err != nil {
		d.fail(err.Error())
		return
	}
	for _, ev := range events {
		d.pending = append(d.pending, ev)
		switch ev.(type) {
		case TurnEnd, StreamError:
			d.finished = true
			return
		}
	}
}

// finishAtEOF flushes a final unterminated line and record, then reports
// an incomplete stream if no terminal event was produced.
func (d *Decoder) finishAtEOF() {
	if len(d.carry) > 0 {
		line := string(d.carry)
		d.carry = nil
		d.processLine(line)
	}
	if !d.finished {
		d.dispatch()
	}
	if !d.finished {
		d.fail(MsgIncomplete)
	}
}

func (d *Decoder) fail(msg string) {
	d.pending = append(d.pending, StreamError{Message: msg})
	d.finished = true
}

// Collect drains a decoder into a slice. It stops at the terminal event
// or the first read error.
func Collect(d *Decoder) ([]Event, error) {
	var out []Event
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
