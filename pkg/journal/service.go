package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/haven/pkg/embeddings"
	"github.com/papercomputeco/haven/pkg/mood"
	"github.com/papercomputeco/haven/pkg/vector"
)

var (
	// ErrEntryNotFound matches the not-found errors of entry stores.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrRecallUnavailable is returned by Recall when no embedder or vector
	// store is configured.
	ErrRecallUnavailable = errors.New("journal recall is not configured")
)

// Store persists journal entries.
type Store interface {
	PutEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id string) (*Entry, error)

	// ListEntries returns a user's entries oldest first.
	ListEntries(ctx context.Context, userID string) ([]*Entry, error)
	UpdateEntryScore(ctx context.Context, id string, sentiment float64, label string) error
	DeleteEntry(ctx context.Context, id string) error
}

// Indexer keeps the semantic index in step with the store. Both calls hand
// work off and must not block; they report whether it was accepted.
type Indexer interface {
	IndexEntry(e *Entry) bool
	RemoveEntry(id string) bool
}

// Notifier is told about every completed analysis. It must not block.
type Notifier interface {
	DriftAnalyzed(userID string, entries []*Entry, analysis *DriftAnalysis)
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Store    Store
	Analyzer Analyzer

	// Indexer, Notifier, Embedder and Vectors are optional. Recall needs
	// both Embedder and Vectors.
	Indexer  Indexer
	Notifier Notifier
	Embedder embeddings.Embedder
	Vectors  vector.Driver

	Logger *slog.Logger
	Now    func() time.Time
}

// Service stores entries and runs drift analysis over them.
type Service struct {
	config ServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewService returns a Service.
func NewService(c ServiceConfig) (*Service, error) {
	if c.Store == nil {
		return nil, errors.New("journal store is required")
	}
	if c.Analyzer == nil {
		return nil, errors.New("journal analyzer is required")
	}

	s := &Service{config: c, logger: c.Logger, now: c.Now}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Save validates and stores a new entry, then queues it for indexing.
func (s *Service) Save(ctx context.Context, userID, content string) (*Entry, error) {
	entry, err := NewEntry(userID, content, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.config.Store.PutEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("storing journal entry: %w", err)
	}

	if s.config.Indexer != nil && !s.config.Indexer.IndexEntry(entry) {
		s.logger.Warn("entry not queued for indexing", "entry_id", entry.ID)
	}

	s.logger.Debug("journal entry saved", "entry_id", entry.ID, "user_id", userID)
	return entry, nil
}

// List returns userID's entries, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Entry, error) {
	entries, err := s.config.Store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	return entries, nil
}

// Delete removes one of userID's entries. Another user's entry reads as not
// found.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	entry, err := s.config.Store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	if err := s.config.Store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("deleting journal entry: %w", err)
	}

	if s.config.Indexer != nil {
		s.config.Indexer.RemoveEntry(id)
	}
	return nil
}

// AnalyzeEntries runs the analyzer over caller-supplied entries without
// touching the store.
func (s *Service) AnalyzeEntries(ctx context.Context, entries []Input) (*DriftAnalysis, error) {
	if len(entries) == 0 {
		return nil, &Error{Status: http.StatusBadRequest, Message: msgNoEntries}
	}
	return s.config.Analyzer.Analyze(ctx, entries)
}

// Analyze scores userID's stored entries and writes each entry's sentiment
// and emotion back to it.
func (s *Service) Analyze(ctx context.Context, userID string) (*DriftAnalysis, []*Entry, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) < MinEntriesForAnalysis {
		return nil, nil, &Error{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Write at least %d entries to analyze drift", MinEntriesForAnalysis),
		}
	}

	analysis, err := s.config.Analyzer.Analyze(ctx, Inputs(entries))
	if err != nil {
		return nil, nil, err
	}

	for _, score := range analysis.EntryScores {
		i := score.Index - 1
		if i < 0 || i >= len(entries) {
			s.logger.Warn("analysis scored an unknown entry", "index", score.Index, "entries", len(entries))
			continue
		}

		e := entries[i]
		if err := s.config.Store.UpdateEntryScore(ctx, e.ID, score.Sentiment, score.Emotion); err != nil {
			return nil, nil, fmt.Errorf("storing score for entry %s: %w", e.ID, err)
		}
		sentiment, label := score.Sentiment, score.Emotion
		e.SentimentScore = &sentiment
		e.MoodLabel = &label
	}

	if s.config.Notifier != nil {
		s.config.Notifier.DriftAnalyzed(userID, entries, analysis)
	}

	s.logger.Info("journal drift analyzed",
		"user_id", userID,
		"entries", len(entries),
		"drift", analysis.DriftDirection,
	)
	return analysis, entries, nil
}

// Recollection is an entry returned by Recall.
type Recollection struct {
	Entry *Entry  `json:"entry"`
	Score float32 `json:"score"`
}

// Recall finds userID's entries closest in meaning to query.
func (s *Service) Recall(ctx context.Context, userID, query string, k int) ([]Recollection, error) {
	if s.config.Embedder == nil || s.config.Vectors == nil {
		return nil, ErrRecallUnavailable
	}

	embedding, err := s.config.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding recall query: %w", err)
	}

	results, err := s.config.Vectors.Query(ctx, embedding, k, userID)
	if err != nil {
		return nil, fmt.Errorf("querying journal vectors: %w", err)
	}

	out := make([]Recollection, 0, len(results))
	for _, r := range results {
		entry, err := s.config.Store.GetEntry(ctx, r.ID)
		if errors.Is(err, ErrEntryNotFound) {
			// deleted after it was indexed
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading recalled entry %s: %w", r.ID, err)
		}
		if entry.UserID != userID {
			continue
		}
		out = append(out, Recollection{Entry: entry, Score: r.Score})
	}
	return out, nil
}

// MoodSeries returns the sentiment of userID's analyzed entries over time.
func (s *Service) MoodSeries(ctx context.Context, userID string) (mood.Series, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	series := mood.Series{}
	for _, e := range entries {
		if e.SentimentScore == nil {
			continue
		}
		series = append(series, mood.Point{
			Label:     e.CreatedAt.Format("Jan 2"),
			Time:      e.CreatedAt,
			Sentiment: *e.SentimentScore,
		})
	}
	return series, nil
}
