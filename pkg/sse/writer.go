package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/papercomputeco/haven/pkg/llm"
)

// Headers are the response headers a streaming endpoint sets before the first
// frame.
var Headers = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// Writer frames outcomes as server-sent events in the same shape haven
// consumes: delta chunks, a [DONE] sentinel, or an {"error": ...} record.
//
// Writer implements Sink, so it can sit directly behind a Decoder. Sink
// callbacks cannot return errors; the first write failure is kept and
// reported by Err, and later frames are dropped.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewWriter returns a Writer over w. When w has a Flush method (bufio.Writer,
// http.Flusher, fasthttp's stream writer) it is flushed after every frame.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteDelta writes one content fragment.
func (s *Writer) WriteDelta(text string) error {
	return s.writeJSON(llm.NewDeltaChunk(text))
}

// WriteDone writes the termination sentinel.
func (s *Writer) WriteDone() error {
	return s.write(DataPrefix + DoneSentinel + "\n\n")
}

// WriteError writes an error record.
func (s *Writer) WriteError(message string) error {
	return s.writeJSON(llm.ErrorResponse{Error: message})
}

// WriteComment writes an SSE comment, used for keep-alive pings. Decoders
// discard comment lines.
func (s *Writer) WriteComment(text string) error {
	return s.write(": " + text + "\n\n")
}

// Err returns the first write failure, if any.
func (s *Writer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Writer) OnDelta(text string)    { _ = s.WriteDelta(text) }
func (s *Writer) OnDone()                { _ = s.WriteDone() }
func (s *Writer) OnError(message string) { _ = s.WriteError(message) }

func (s *Writer) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal SSE data: %w", err)
	}
	return s.write(DataPrefix + string(data) + "\n\n")
}

func (s *Writer) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	if _, err := io.WriteString(s.w, frame); err != nil {
		s.err = err
		return err
	}

	switch f := s.w.(type) {
	case interface{ Flush() error }:
		if err := f.Flush(); err != nil {
			s.err = err
			return err
		}
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}
