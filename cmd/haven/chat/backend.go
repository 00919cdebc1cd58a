package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/client"
	"github.com/papercomputeco/haven/pkg/dotdir"
	"github.com/papercomputeco/haven/pkg/mood"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/storage/inmemory"
	"github.com/papercomputeco/haven/pkg/transport"
)

// backend runs chat turns either against a haven API server or in process.
type backend interface {
	// open returns the session to chat in and whether it was resumed.
	open(ctx context.Context, fresh bool) (*chat.Session, bool, error)

	// send streams the reply to text into sink and returns the crisis
	// helpline when the message needed one.
	send(ctx context.Context, sessionID, text string, sink sse.Sink) (string, error)

	recordMood(ctx context.Context, sessionID string, sentiment float64) (mood.Summary, error)

	// describe names where replies come from.
	describe() string
}

// remoteBackend talks to a haven API server and remembers its session in
// .haven/session.json.
type remoteBackend struct {
	client    *client.Client
	user      string
	configDir string
	dotdir    *dotdir.Manager
	logger    *slog.Logger
}

func (b *remoteBackend) open(ctx context.Context, fresh bool) (*chat.Session, bool, error) {
	if !fresh {
		s, err := b.resume(ctx)
		if err != nil {
			return nil, false, err
		}
		if s != nil {
			return s, true, nil
		}
	}

	s, err := b.client.CreateSession(ctx)
	if err != nil {
		return nil, false, err
	}

	state := &dotdir.SessionState{SessionID: s.ID, UserID: b.user, Target: b.client.Target()}
	if err := b.dotdir.SaveSession(state, b.configDir); err != nil {
		// The chat still works; it just will not resume next time.
		b.logger.Warn("could not save session state", "error", err)
	}
	return s, false, nil
}

// resume returns the saved session, or nil when there is none for this
// server and user.
func (b *remoteBackend) resume(ctx context.Context) (*chat.Session, error) {
	state, err := b.dotdir.LoadSessionState(b.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || state.Target != b.client.Target() || state.UserID != b.user {
		return nil, nil
	}

	s, err := b.client.GetSession(ctx, state.SessionID)
	if client.IsNotFound(err) {
		b.logger.Debug("saved session is gone", "session_id", state.SessionID)
		return nil, nil
	}
	return s, err
}

func (b *remoteBackend) send(ctx context.Context, sessionID, text string, sink sse.Sink) (string, error) {
	reply, err := b.client.Send(ctx, sessionID, text, sink)
	if err != nil {
		return "", err
	}
	return reply.Helpline, nil
}

func (b *remoteBackend) recordMood(ctx context.Context, sessionID string, sentiment float64) (mood.Summary, error) {
	resp, err := b.client.RecordMood(ctx, sessionID, sentiment)
	if err != nil {
		return mood.Summary{}, err
	}
	return resp.Summary, nil
}

func (b *remoteBackend) describe() string {
	return b.client.Target()
}

// localBackend runs the orchestrator in process over an in-memory store.
// Nothing outlives the command.
type localBackend struct {
	orchestrator *chat.Orchestrator
	user         string
	source       string
}

func newLocalBackend(tr transport.Transport, user, model, source string, logger *slog.Logger) (*localBackend, error) {
	o, err := chat.New(chat.Config{
		Transport: tr,
		Store:     inmemory.NewDriver(),
		Model:     model,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &localBackend{orchestrator: o, user: user, source: source}, nil
}

func (b *localBackend) open(ctx context.Context, _ bool) (*chat.Session, bool, error) {
	s, err := b.orchestrator.NewSession(ctx, b.user)
	return s, false, err
}

func (b *localBackend) send(ctx context.Context, sessionID, text string, sink sse.Sink) (string, error) {
	_, err := b.orchestrator.Send(ctx, sessionID, text, sink)

	// A failed stream has already reached the sink.
	var streamErr *chat.StreamError
	if err != nil && !errors.As(err, &streamErr) {
		return "", err
	}

	if chat.IsCrisis(text) {
		return chat.CrisisHelplineURL, nil
	}
	return "", nil
}

func (b *localBackend) recordMood(ctx context.Context, sessionID string, sentiment float64) (mood.Summary, error) {
	s, err := b.orchestrator.RecordMood(ctx, sessionID, sentiment, time.Time{})
	if err != nil {
		return mood.Summary{}, err
	}
	return s.Mood.Summary(), nil
}

func (b *localBackend) describe() string {
	return b.source
}
