// Package transport defines the boundary between haven's stream decoder and
// whatever produces the streamed bytes: the LLM gateway over HTTP, an offline
// canned responder, or a fixed byte sequence in tests.
//
// A Transport opens one exchange per chat send. The returned Response reports
// whether the initiating request succeeded before any chunk is requested, and
// otherwise hands over an ordered, finite sequence of raw chunks.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/papercomputeco/haven/pkg/llm"
)

// Request is a single chat send.
type Request struct {
	// Model is the gateway model name. Empty lets the transport choose.
	Model string

	// Messages is the conversation so far, oldest first, ending with the
	// message being sent.
	Messages []llm.Message

	// Header carries extra headers forwarded from an inbound request. It is
	// only meaningful to HTTP transports.
	Header http.Header
}

// LastUserMessage returns the content of the most recent user message.
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == llm.RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ChunkReader yields raw chunks in arrival order. Next returns io.EOF once the
// underlying source is exhausted. Implementations must honor ctx cancellation
// while waiting for the next chunk.
type ChunkReader interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Response is the outcome of opening an exchange.
type Response struct {
	// StatusCode is the HTTP-style status of the initiating request.
	StatusCode int

	// ErrorBody holds the (possibly structured) body of a non-success response.
	ErrorBody []byte

	// Body streams the successful response. It is nil when no body is
	// available.
	Body ChunkReader
}

// OK reports whether the initiating request succeeded.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Close releases the response body, if any.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Transport opens streaming chat exchanges. An error means no response was
// obtained at all (e.g. the gateway could not be reached).
type Transport interface {
	Open(ctx context.Context, req *Request) (*Response, error)
}

// ReaderChunks adapts an io.ReadCloser to a ChunkReader, handing out whatever
// each Read returns as one chunk.
type ReaderChunks struct {
	rc   io.ReadCloser
	size int
}

const defaultChunkSize = 4 * 1024

// NewReaderChunks wraps rc. A size of 0 uses a 4KiB read buffer.
func NewReaderChunks(rc io.ReadCloser, size int) *ReaderChunks {
	if size <= 0 {
		size = defaultChunkSize
	}
	return &ReaderChunks{rc: rc, size: size}
}

// Next reads the next chunk. Cancellation of the request context that produced
// the body aborts a blocked Read; ctx is additionally checked before reading.
func (r *ReaderChunks) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf := make([]byte, r.size)
		n, err := r.rc.Read(buf)
		if n > 0 {
			// A read that also hit EOF still delivers its bytes; the EOF
			// surfaces on the following call.
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close closes the underlying reader.
func (r *ReaderChunks) Close() error {
	return r.rc.Close()
}

// StatusError is returned by helpers that need the non-success status of a
// Response as an error value.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}
