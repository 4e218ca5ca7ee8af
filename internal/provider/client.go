package provider

import (
	"context"
	"io"

	"github.com/hewenyu/OperationKernel/internal/stream"
)

// Client opens a streamed turn against one provider.
//
// The returned Stream carries the raw SSE body and a fresh Mapper for the
// provider's dialect. The caller owns Body and must close it. Failures
// before the body is available are returned as *ProviderError.
type Client interface {
	Stream(ctx context.Context, req *Request) (*Stream, error)
}

// Stream is an open response body plus the mapper that understands it.
type Stream struct {
	Body   io.ReadCloser
	Mapper stream.Mapper
}

// Decoder returns a decoder over the stream body.
func (s *Stream) Decoder() *stream.Decoder {
	return stream.NewDecoder(s.Body, s.Mapper)
}
