package transport

import (
	"context"
	"io"
	"net/http"
)

// Chunks is a ChunkReader over a fixed, pre-split byte sequence.
type Chunks struct {
	chunks [][]byte
	pos    int
	closed bool
}

// NewChunks returns a ChunkReader that yields each element of chunks in order.
func NewChunks(chunks ...[]byte) *Chunks {
	return &Chunks{chunks: chunks}
}

// StringChunks is NewChunks for string chunks.
func StringChunks(chunks ...string) *Chunks {
	b := make([][]byte, len(chunks))
	for i, c := range chunks {
		b[i] = []byte(c)
	}
	return NewChunks(b...)
}

// Next returns the next chunk or io.EOF.
func (c *Chunks) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed || c.pos >= len(c.chunks) {
		return nil, io.EOF
	}
	chunk := c.chunks[c.pos]
	c.pos++
	return chunk, nil
}

// Close marks the reader exhausted.
func (c *Chunks) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Chunks) Closed() bool {
	return c.closed
}

// Static is a Transport that always answers with the same status and chunks.
// A new reader over the chunks is built on every Open.
type Static struct {
	StatusCode int
	ErrorBody  []byte
	Chunks     []string

	// Requests records every request passed to Open.
	Requests []*Request
}

// Open implements Transport.
func (s *Static) Open(_ context.Context, req *Request) (*Response, error) {
	s.Requests = append(s.Requests, req)

	status := s.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	resp := &Response{StatusCode: status}
	if status < 200 || status >= 300 {
		resp.ErrorBody = s.ErrorBody
		return resp, nil
	}

	resp.Body = StringChunks(s.Chunks...)
	return resp, nil
}
