package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/papercomputeco/haven/pkg/llm"
)

const (
	// DataPrefix marks the only lines the decoder treats as records.
	DataPrefix = "data: "

	// DoneSentinel is the payload that ends a stream.
	DoneSentinel = "[DONE]"

	// DefaultMaxRecoveries bounds how many chunks may arrive while a malformed
	// record is still pending before the stream is failed.
	DefaultMaxRecoveries = 8

	// MalformedMessage is reported when a malformed record never recovers.
	MalformedMessage = "malformed stream record"
)

// State is the lifecycle position of a Decoder.
type State int

const (
	StateAwaitingFirstByte State = iota
	StateStreaming
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstByte:
		return "awaiting_first_byte"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithTee copies every chunk the decoder consumes, verbatim, to w.
//
// ┌───────────────┐
// │  raw chunks   │
// └───────────────┘
// │
// ▼
// ┌───────────────┐   ┌───────────┐
// │ Decoder.Write │──▶│ io.Writer │
// └───────────────┘   └───────────┘
// │
// ▼
// ┌───────────────┐
// │     Sink      │
// └───────────────┘
//
// The tee sees bytes even after the stream reached a terminal state, so a
// recorder captures the exact upstream exchange.
func WithTee(w io.Writer) Option {
	return func(d *Decoder) {
		d.tee = w
	}
}

// WithMaxRecoveries bounds how many further chunks may arrive while a
// malformed record sits re-buffered. A value below 1 disables the bound.
func WithMaxRecoveries(n int) Option {
	return func(d *Decoder) {
		d.maxRecoveries = n
	}
}

// WithErrorRecords makes a record carrying a top-level "error" field fail the
// stream with its message. haven's relay reports failures to its own clients
// this way; gateway streams are decoded without it, where such a record has
// no content and is skipped.
func WithErrorRecords() Option {
	return func(d *Decoder) {
		d.errorRecords = true
	}
}

// Decoder incrementally turns raw stream chunks into Outcomes.
//
// A Decoder holds the unconsumed tail of the stream in a byte buffer, so a
// multi-byte UTF-8 character or a record split across chunks is only looked at
// once its terminating newline has arrived. A Decoder belongs to a single
// exchange and a single goroutine; it is never reused.
type Decoder struct {
	sink  Sink
	tee   io.Writer
	state State
	buf   []byte

	errorRecords bool

	// pending is set while a malformed record sits at the front of buf.
	pending       bool
	recoveries    int
	maxRecoveries int
}

// NewDecoder returns a Decoder reporting to sink.
func NewDecoder(sink Sink, opts ...Option) *Decoder {
	d := &Decoder{
		sink:          sink,
		maxRecoveries: DefaultMaxRecoveries,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current lifecycle state.
func (d *Decoder) State() State {
	return d.state
}

// Buffered returns the number of bytes held back waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Write feeds one raw chunk and always decodes all of p. A non-nil error
// reports that the tee writer failed; the chunk was decoded regardless.
// Chunks written after the stream reached a terminal state are ignored.
func (d *Decoder) Write(p []byte) (int, error) {
	var teeErr error
	if d.tee != nil && len(p) > 0 {
		_, teeErr = d.tee.Write(p)
	}

	d.consume(p)
	return len(p), teeErr
}

func (d *Decoder) consume(p []byte) {
	if d.state.Terminal() {
		return
	}
	if d.state == StateAwaitingFirstByte && len(p) > 0 {
		d.state = StateStreaming
	}

	if d.pending && len(p) > 0 {
		d.recoveries++
		if d.maxRecoveries > 0 && d.recoveries > d.maxRecoveries {
			d.fail(MalformedMessage)
			return
		}
	}

	d.buf = append(d.buf, p...)
	d.scan()
}

// Close signals the end of the transport. If the stream has not ended yet it
// completes with OnDone, or with OnError when a malformed record is still
// pending.
func (d *Decoder) Close() error {
	if d.state.Terminal() {
		return nil
	}
	if d.pending {
		d.fail(MalformedMessage)
		return nil
	}

	d.buf = nil
	d.state = StateDone
	d.sink.OnDone()
	return nil
}

// Fail reports a transport failure. It is a no-op once the stream is terminal.
func (d *Decoder) Fail(message string) {
	if d.state.Terminal() {
		return
	}
	d.fail(message)
}

func (d *Decoder) fail(message string) {
	d.buf = nil
	d.pending = false
	d.state = StateError
	d.sink.OnError(message)
}

// scan extracts and handles every complete line in the buffer.
func (d *Decoder) scan() {
	for !d.state.Terminal() {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return
		}

		line := d.buf[:i]
		rest := d.buf[i+1:]
		line = bytes.TrimSuffix(line, []byte("\r"))

		if !d.handle(line) {
			// Leave the record, its newline and everything after it in place
			// for the next chunk.
			d.pending = true
			return
		}

		d.pending = false
		d.recoveries = 0
		if d.state.Terminal() {
			d.buf = nil
			return
		}
		d.buf = rest
	}
}

// handle processes one line. It returns false when the line is a data record
// whose payload is not yet well-formed JSON.
func (d *Decoder) handle(line []byte) bool {
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return true
	}

	payload := line[len(DataPrefix):]
	if strings.TrimSpace(string(payload)) == DoneSentinel {
		d.state = StateDone
		d.sink.OnDone()
		return true
	}

	if !json.Valid(payload) {
		return false
	}

	var chunk llm.StreamChunk

	// The payload is valid JSON, so an error here is a type mismatch in some
	// field. Whatever decoded cleanly is still used.
	_ = json.Unmarshal(payload, &chunk)

	if d.errorRecords {
		if msg, ok := llm.ErrorMessage(chunk.Error); ok {
			d.fail(msg)
			return true
		}
	}

	if text, ok := chunk.ContentDelta(); ok && text != "" {
		d.sink.OnDelta(text)
	}
	return true
}
