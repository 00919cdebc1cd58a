// Package canned is an offline Transport that answers from a small set of
// supportive replies, for running haven with no gateway configured.
//
// Replies are framed exactly like a gateway stream, one word per record, so
// everything downstream of the transport behaves the same online and offline.
package canned

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/transport"
)

type rule struct {
	keywords []string
	reply    string
}

var rules = []rule{
	{
		keywords: []string{"anxious", "worried", "stress"},
		reply:    "I hear that you're feeling anxious. That takes courage to share. Let's try a grounding exercise: can you name 5 things you can see right now?",
	},
	{
		keywords: []string{"sad", "down", "depress"},
		reply:    "Thank you for sharing that with me. Your feelings are valid. Would you like to explore what's contributing to this feeling?",
	},
	{
		keywords: []string{"angry", "frustrated"},
		reply:    "It sounds like you're dealing with some strong emotions. Take a deep breath with me. What happened that brought these feelings up?",
	},
	{
		keywords: []string{"good", "great", "happy"},
		reply:    "That's wonderful to hear! What's been going well for you? Recognizing positive moments is an important part of wellbeing.",
	},
}

// DefaultReply answers messages that match no keyword.
const DefaultReply = "Thank you for sharing. I'm here to listen without judgment. Could you tell me more about how that makes you feel?"

// Reply picks the reply for a user message. Keywords match case-insensitively
// as substrings, first rule wins.
func Reply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply
			}
		}
	}
	return DefaultReply
}

// Frames renders reply as a complete SSE stream: a role record, one record per
// word and the [DONE] sentinel.
func Frames(reply string) []string {
	words := strings.SplitAfter(reply, " ")
	frames := make([]string, 0, len(words)+2)

	role := llm.StreamChunk{Choices: []llm.StreamChoice{{Delta: llm.StreamDelta{Role: llm.RoleAssistant}}}}
	frames = append(frames, frame(role))

	for _, w := range words {
		if w == "" {
			continue
		}
		frames = append(frames, frame(llm.NewDeltaChunk(w)))
	}

	return append(frames, "data: [DONE]\n\n")
}

func frame(chunk llm.StreamChunk) string {
	// StreamChunk only holds strings, ints and a nil RawMessage here, which
	// always marshal.
	b, _ := json.Marshal(chunk)
	return "data: " + string(b) + "\n\n"
}

// Option configures a Transport.
type Option func(*Transport)

// WithDelay pauses between records to imitate generation latency.
func WithDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.delay = d
	}
}

// Transport answers every request locally.
type Transport struct {
	delay time.Duration
}

// New returns a canned Transport.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open implements transport.Transport. It never fails.
func (t *Transport) Open(_ context.Context, req *transport.Request) (*transport.Response, error) {
	return &transport.Response{
		StatusCode: http.StatusOK,
		Body: &reader{
			frames: Frames(Reply(req.LastUserMessage())),
			delay:  t.delay,
		},
	}, nil
}

// reader hands out one frame per Next, pausing between frames.
type reader struct {
	frames []string
	pos    int
	delay  time.Duration
}

func (r *reader) Next(ctx context.Context) ([]byte, error) {
	if r.pos >= len(r.frames) {
		return nil, io.EOF
	}

	if r.pos > 0 && r.delay > 0 {
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := r.frames[r.pos]
	r.pos++
	return []byte(f), nil
}

func (r *reader) Close() error {
	r.pos = len(r.frames)
	return nil
}
