// Package chat runs conversation turns: it builds the gateway request from a
// session transcript, streams the reply through the stream decoder to the
// caller, and commits the exchange to the session once the stream completes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/mood"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport"
)

// DefaultSystemPrompt frames the assistant for every turn.
const DefaultSystemPrompt = `You are a warm, non-judgmental listener in a mental wellness app.
Reflect feelings back, ask gentle open questions, and suggest simple grounding or breathing exercises when someone is overwhelmed.
You are not a therapist and never diagnose. If someone may be in danger, encourage them to contact local emergency services or a crisis line.`

var (
	// ErrEmptyMessage is returned for a message that is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionNotFound matches the not-found errors of session stores.
	ErrSessionNotFound = errors.New("session not found")
)

// StreamError is a turn that ended with an error outcome. Nothing from the
// turn is committed; the user retries by sending again.
type StreamError struct {
	// Status is the gateway status when the failure happened before
	// streaming, and 0 for a failure mid-stream.
	Status  int
	Message string
}

func (e *StreamError) Error() string {
	return "chat stream failed: " + e.Message
}

// SessionStore persists sessions.
type SessionStore interface {
	PutSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
}

// CompletedTurn describes a committed exchange.
type CompletedTurn struct {
	SessionID   string
	UserID      string
	Model       string
	User        Message
	Assistant   Message
	StartedAt   time.Time
	CompletedAt time.Time
}

// TurnObserver is told about every committed turn. It must not block.
type TurnObserver interface {
	TurnCompleted(turn *CompletedTurn)
}

// Config configures an Orchestrator.
type Config struct {
	Transport transport.Transport
	Store     SessionStore

	// Observer is optional.
	Observer TurnObserver

	// Model is passed to the transport. Empty lets the transport choose.
	Model string

	// SystemPrompt overrides DefaultSystemPrompt. Set to "-" to send none.
	SystemPrompt string

	// MaxHistory bounds how many transcript messages are sent per turn.
	// Zero sends the whole transcript.
	MaxHistory int

	// DecoderOptions are passed to every turn's decoder.
	DecoderOptions []sse.Option

	Logger *slog.Logger

	// Now overrides time.Now.
	Now func() time.Time
}

// Orchestrator runs chat turns against a transport and a session store.
type Orchestrator struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
	prompt string

	// commitMu serializes the read-modify-write of a session commit.
	commitMu sync.Mutex
}

// New returns an Orchestrator.
func New(c Config) (*Orchestrator, error) {
	if c.Transport == nil {
		return nil, errors.New("chat transport is required")
	}
	if c.Store == nil {
		return nil, errors.New("chat session store is required")
	}

	o := &Orchestrator{
		config: c,
		logger: c.Logger,
		now:    c.Now,
		prompt: c.SystemPrompt,
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.now == nil {
		o.now = time.Now
	}
	switch o.prompt {
	case "":
		o.prompt = DefaultSystemPrompt
	case "-":
		o.prompt = ""
	}
	return o, nil
}

// NewSession creates and stores a session for userID.
func (o *Orchestrator) NewSession(ctx context.Context, userID string) (*Session, error) {
	s := NewSession(userID, o.now())
	if err := o.config.Store.PutSession(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	o.logger.Debug("session created", "session_id", s.ID, "user_id", userID)
	return s, nil
}

// RecordMood appends a sentiment sample to a session's mood series.
func (o *Orchestrator) RecordMood(ctx context.Context, sessionID string, sentiment float64, at time.Time) (*Session, error) {
	if err := mood.Validate(sentiment); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = o.now()
	}

	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	s, err := o.config.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.Mood = append(s.Mood, mood.NewPoint(at, sentiment))
	s.UpdatedAt = o.now()
	if err := o.config.Store.PutSession(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return s, nil
}

// TurnOption configures a single turn.
type TurnOption func(*transport.Request)

// WithHeader forwards headers from an inbound request to the transport.
func WithHeader(h http.Header) TurnOption {
	return func(r *transport.Request) {
		r.Header = h
	}
}

// Begin validates text, loads the session and opens the transport. The
// returned Turn has not read any of the stream yet; a failure to reach the
// gateway or a non-success answer is reported by Turn.Failure.
func (o *Orchestrator) Begin(ctx context.Context, sessionID, text string, opts ...TurnOption) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s, err := o.config.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := o.now()
	user := Message{
		ID:        uuid.NewString(),
		Role:      llm.RoleUser,
		Content:   text,
		IsCrisis:  IsCrisis(text),
		CreatedAt: now,
	}

	req := &transport.Request{Model: o.config.Model}
	if o.prompt != "" {
		req.Messages = append(req.Messages, llm.NewTextMessage(llm.RoleSystem, o.prompt))
	}
	req.Messages = append(req.Messages, s.History(o.config.MaxHistory)...)
	req.Messages = append(req.Messages, llm.NewTextMessage(llm.RoleUser, text))
	for _, opt := range opts {
		opt(req)
	}

	t := &Turn{
		o:         o,
		sessionID: s.ID,
		userID:    s.UserID,
		user:      user,
		startedAt: now,
	}

	t.resp, t.openErr = o.config.Transport.Open(ctx, req)
	if t.openErr != nil {
		o.logger.Warn("transport open failed", "session_id", s.ID, "error", t.openErr)
	}

	if user.IsCrisis {
		o.logger.Warn("crisis language detected", "session_id", s.ID)
	}

	return t, nil
}

// Send runs a whole turn: Begin followed by Stream.
func (o *Orchestrator) Send(ctx context.Context, sessionID, text string, sink sse.Sink, opts ...TurnOption) (*Message, error) {
	t, err := o.Begin(ctx, sessionID, text, opts...)
	if err != nil {
		return nil, err
	}
	return t.Stream(ctx, sink)
}

// Turn is one in-flight exchange.
type Turn struct {
	o         *Orchestrator
	sessionID string
	userID    string
	user      Message
	startedAt time.Time

	resp    *transport.Response
	openErr error
}

// Response exposes the transport response. It is nil when the transport could
// not be reached.
func (t *Turn) Response() *transport.Response {
	return t.resp
}

// UserMessage is the message being sent.
func (t *Turn) UserMessage() Message {
	return t.user
}

// Crisis reports whether the user message contains crisis language.
func (t *Turn) Crisis() bool {
	return t.user.IsCrisis
}

// Failure reports a failure that happened before any streaming: the status
// to answer with and the message. ok is false when the turn can stream.
func (t *Turn) Failure() (status int, message string, ok bool) {
	switch {
	case t.openErr != nil, t.resp == nil:
		return http.StatusBadGateway, "upstream request failed", true
	case !t.resp.OK():
		return t.resp.StatusCode, sse.StatusMessage(t.resp.StatusCode, t.resp.ErrorBody), true
	case t.resp.Body == nil:
		return http.StatusBadGateway, sse.StatusMessage(t.resp.StatusCode, nil), true
	default:
		return 0, "", false
	}
}

// Close releases the transport response without streaming it.
func (t *Turn) Close() error {
	return t.resp.Close()
}

// Stream decodes the reply, forwarding every outcome to sink (which may be
// nil). On completion the user and assistant messages are appended to the
// session and the assistant message is returned. An error outcome yields a
// *StreamError and commits nothing. Cancelling ctx abandons the turn and
// returns ctx.Err().
func (t *Turn) Stream(ctx context.Context, sink sse.Sink) (*Message, error) {
	acc := &accumulator{}
	sinks := sse.MultiSink{acc}
	if sink != nil {
		sinks = append(sinks, sink)
	}

	if t.openErr != nil || t.resp == nil {
		_, msg, _ := t.Failure()
		sinks.OnError(msg)
		return nil, &StreamError{Status: http.StatusBadGateway, Message: msg}
	}

	if err := sse.Decode(ctx, t.resp, sinks, t.o.config.DecoderOptions...); err != nil {
		t.o.logger.Debug("turn abandoned", "session_id", t.sessionID, "error", err)
		return nil, err
	}

	if acc.failed {
		status := 0
		if !t.resp.OK() {
			status = t.resp.StatusCode
		}
		t.o.logger.Warn("turn failed",
			"session_id", t.sessionID,
			"status", status,
			"message", acc.message,
		)
		return nil, &StreamError{Status: status, Message: acc.message}
	}

	assistant := Message{
		ID:        uuid.NewString(),
		Role:      llm.RoleAssistant,
		Content:   acc.text.String(),
		CreatedAt: t.o.now(),
	}

	if err := t.o.commit(ctx, t.sessionID, t.user, assistant); err != nil {
		return nil, err
	}

	t.o.logger.Info("turn completed",
		"session_id", t.sessionID,
		"duration", assistant.CreatedAt.Sub(t.startedAt),
		"reply_chars", len(assistant.Content),
	)

	if t.o.config.Observer != nil {
		t.o.config.Observer.TurnCompleted(&CompletedTurn{
			SessionID:   t.sessionID,
			UserID:      t.userID,
			Model:       t.o.config.Model,
			User:        t.user,
			Assistant:   assistant,
			StartedAt:   t.startedAt,
			CompletedAt: assistant.CreatedAt,
		})
	}

	return &assistant, nil
}

func (o *Orchestrator) commit(ctx context.Context, sessionID string, msgs ...Message) error {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	s, err := o.config.Store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reloading session: %w", err)
	}

	s.Messages = append(s.Messages, msgs...)
	s.UpdatedAt = o.now()
	if err := o.config.Store.PutSession(ctx, s); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// accumulator collects the reply text and the terminal outcome of a turn.
type accumulator struct {
	text    strings.Builder
	failed  bool
	message string
}

func (a *accumulator) OnDelta(text string) { a.text.WriteString(text) }

func (a *accumulator) OnDone() {}

func (a *accumulator) OnError(message string) {
	a.failed = true
	a.message = message
}
