package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/logging"
	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 8 << 10

// PostStream POSTs a JSON body and returns the response body of a 2xx reply
// for the caller to decode. Non-2xx replies become *ProviderError with a
// redacted message. A cancelled ctx is returned as ctx.Err().
func PostStream(ctx context.Context, hc *http.Client, url string, header http.Header, body []byte) (io.ReadCloser, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Code: ErrorCodeInvalidRequest, Message: "building request", Underlying: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, FromTransport(err)
	}
	if resp.StatusCode/100 == 2 {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, FromHTTPStatus(resp.StatusCode, ErrorMessage(raw), resp.Header)
}

// ErrorMessage extracts a readable message from an error payload. Both
// providers nest it at error.message; anything else is used verbatim.
func ErrorMessage(raw []byte) string {
	msg := gjson.GetBytes(raw, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return logging.RedactSecrets(msg)
}
