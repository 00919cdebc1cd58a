package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/transport"
)

// Decode drives a Decoder over resp until the stream ends, reporting every
// outcome to sink.
//
// A missing response, a non-success status or a missing body produce a single
// OnError without any line processing. Otherwise chunks are pulled from the
// body one at a time: end of data completes the stream and a read failure
// fails it. When ctx is cancelled while waiting for a chunk, Decode returns
// ctx.Err() and the sink receives no terminal outcome.
//
// The response body is always closed. A non-nil error is only returned for
// abandonment or a failing tee writer; a tee failure still ends the stream
// with OnError unless the failed chunk already completed it.
func Decode(ctx context.Context, resp *transport.Response, sink Sink, opts ...Option) error {
	d := NewDecoder(sink, opts...)

	if resp == nil {
		d.Fail("request failed: no response")
		return nil
	}
	defer resp.Close()

	if !resp.OK() || resp.Body == nil {
		d.Fail(StatusMessage(resp.StatusCode, resp.ErrorBody))
		return nil
	}

	for !d.State().Terminal() {
		chunk, err := resp.Body.Next(ctx)
		if len(chunk) > 0 {
			if _, werr := d.Write(chunk); werr != nil {
				werr = fmt.Errorf("writing stream tee: %w", werr)
				d.Fail(werr.Error())
				return werr
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			return d.Close()
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			d.Fail(err.Error())
			return nil
		}
	}

	return nil
}

// StatusMessage returns the message for a failed request: the structured
// error field of body when present, otherwise a description carrying status.
func StatusMessage(status int, body []byte) string {
	var resp struct {
		Error json.RawMessage `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &resp) == nil {
		if msg, ok := llm.ErrorMessage(resp.Error); ok {
			return msg
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// Stream runs Decode in its own goroutine and delivers outcomes on the
// returned channel. The channel is closed after the terminal outcome, or
// without one when ctx is cancelled. The sequence is finite and cannot be
// restarted.
func Stream(ctx context.Context, resp *transport.Response, opts ...Option) <-chan Outcome {
	out := make(chan Outcome)
	sink := &chanSink{ctx: ctx, out: out}

	go func() {
		defer close(out)
		_ = Decode(ctx, resp, sink, opts...)
	}()

	return out
}

// chanSink forwards outcomes to a channel until its context is cancelled.
type chanSink struct {
	ctx context.Context
	out chan<- Outcome
}

func (s *chanSink) send(o Outcome) {
	select {
	case s.out <- o:
	case <-s.ctx.Done():
	}
}

func (s *chanSink) OnDelta(text string)    { s.send(Delta(text)) }
func (s *chanSink) OnDone()                { s.send(Done()) }
func (s *chanSink) OnError(message string) { s.send(Error(message)) }
