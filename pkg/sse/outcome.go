// Package sse decodes the server-sent event stream a chat completion gateway
// answers with, and re-frames decoded outcomes for haven's own clients.
//
// The Decoder is fed raw chunks exactly as the transport delivers them. It
// rebuilds logical lines across chunk boundaries, picks out `data: ` records,
// and reports each content fragment, the end of the stream, or a failure to a
// Sink. One Decoder serves exactly one exchange.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"strings"
	"sync"
)

// Kind discriminates an Outcome.
type Kind int

const (
	// KindDelta carries an incremental text fragment.
	KindDelta Kind = iota

	// KindDone marks successful completion of the stream.
	KindDone

	// KindError marks a failed stream and carries a message.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is a single decoder result.
type Outcome struct {
	Kind Kind

	// Text is the fragment of a KindDelta outcome.
	Text string

	// Message is the failure description of a KindError outcome.
	Message string
}

// Delta returns a KindDelta outcome.
func Delta(text string) Outcome { return Outcome{Kind: KindDelta, Text: text} }

// Done returns a KindDone outcome.
func Done() Outcome { return Outcome{Kind: KindDone} }

// Error returns a KindError outcome.
func Error(message string) Outcome { return Outcome{Kind: KindError, Message: message} }

// Terminal reports whether o ends a stream.
func (o Outcome) Terminal() bool {
	return o.Kind == KindDone || o.Kind == KindError
}

// Sink receives decoder outcomes. OnDelta may be called any number of times,
// followed by exactly one of OnDone or OnError unless the exchange is
// abandoned.
type Sink interface {
	OnDelta(text string)
	OnDone()
	OnError(message string)
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
type SinkFuncs struct {
	Delta func(text string)
	Done  func()
	Error func(message string)
}

func (s SinkFuncs) OnDelta(text string) {
	if s.Delta != nil {
		s.Delta(text)
	}
}

func (s SinkFuncs) OnDone() {
	if s.Done != nil {
		s.Done()
	}
}

func (s SinkFuncs) OnError(message string) {
	if s.Error != nil {
		s.Error(message)
	}
}

// MultiSink fans every outcome out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnDelta(text string) {
	for _, s := range m {
		s.OnDelta(text)
	}
}

func (m MultiSink) OnDone() {
	for _, s := range m {
		s.OnDone()
	}
}

func (m MultiSink) OnError(message string) {
	for _, s := range m {
		s.OnError(message)
	}
}

// Collector is a Sink that records outcomes in arrival order. It is safe for
// concurrent use so a test or caller can inspect it while a stream runs.
type Collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *Collector) OnDelta(text string) { c.add(Delta(text)) }

func (c *Collector) OnDone() { c.add(Done()) }

func (c *Collector) OnError(message string) { c.add(Error(message)) }

func (c *Collector) add(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

// Outcomes returns a copy of everything recorded so far.
func (c *Collector) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Outcome, len(c.outcomes))
	copy(out, c.outcomes)
	return out
}

// Text concatenates every recorded delta.
func (c *Collector) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, o := range c.outcomes {
		if o.Kind == KindDelta {
			b.WriteString(o.Text)
		}
	}
	return b.String()
}

// Terminal returns the recorded terminal outcome, if any.
func (c *Collector) Terminal() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range c.outcomes {
		if o.Terminal() {
			return o, true
		}
	}
	return Outcome{}, false
}
