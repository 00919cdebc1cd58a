// Package worker provides an asynchronous worker pool that keeps the journal
// semantic index in step with the entry store and publishes haven events.
//
// The pool decouples embedding and event delivery from the API's hot path so
// that a slow embedder or broker never holds up a chat stream or a journal save.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/embeddings"
	"github.com/papercomputeco/haven/pkg/eventstream"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// JobKind identifies what a Job does.
type JobKind string

const (
	JobIndexEntry   JobKind = "index_entry"
	JobRemoveEntry  JobKind = "remove_entry"
	JobPublishTurn  JobKind = "publish_turn"
	JobPublishDrift JobKind = "publish_drift"
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Kind JobKind

	// Entry is set for JobIndexEntry.
	Entry *journal.Entry

	// EntryID is set for JobRemoveEntry.
	EntryID string

	// Turn is set for JobPublishTurn.
	Turn *eventstream.TurnCompletedEvent

	// Drift is set for JobPublishDrift.
	Drift *eventstream.DriftAnalyzedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// VectorDriver is the optional vector store for journal embeddings.
	VectorDriver vector.Driver

	// Embedder generates entry embeddings.
	// A configured Embedder is required if VectorDriver is set.
	Embedder embeddings.Embedder

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single job (defaults to 30s).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes index and publish jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed so that no send races the close of queue.
	mu     sync.RWMutex
	closed bool
}

var (
	_ chat.TurnObserver = (*Pool)(nil)
	_ journal.Indexer   = (*Pool)(nil)
	_ journal.Notifier  = (*Pool)(nil)
)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.VectorDriver != nil && c.Embedder == nil {
		return nil, errors.New("an embedder is required with a vector driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "kind", job.Kind)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.Kind)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "kind", job.Kind)
		return false
	}
}

// IndexEntry queues an entry for embedding. It is a no-op reporting true when
// no vector store is configured.
func (p *Pool) IndexEntry(e *journal.Entry) bool {
	if p.config.VectorDriver == nil {
		return true
	}
	return p.Enqueue(Job{Kind: JobIndexEntry, Entry: e})
}

// RemoveEntry queues removal of an entry's embedding.
func (p *Pool) RemoveEntry(id string) bool {
	if p.config.VectorDriver == nil {
		return true
	}
	return p.Enqueue(Job{Kind: JobRemoveEntry, EntryID: id})
}

// TurnCompleted queues a turn_completed event.
func (p *Pool) TurnCompleted(turn *chat.CompletedTurn) {
	if p.config.Publisher == nil {
		return
	}
	p.Enqueue(Job{Kind: JobPublishTurn, Turn: eventstream.NewTurnCompletedEvent(turn, time.Now())})
}

// DriftAnalyzed queues a drift_analyzed event.
func (p *Pool) DriftAnalyzed(userID string, entries []*journal.Entry, analysis *journal.DriftAnalysis) {
	if p.config.Publisher == nil {
		return
	}
	p.Enqueue(Job{Kind: JobPublishDrift, Drift: eventstream.NewDriftAnalyzedEvent(userID, entries, analysis, time.Now())})
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob runs a Job. Failures are logged; nothing is retried.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	var err error
	switch job.Kind {
	case JobIndexEntry:
		err = p.indexEntry(ctx, job.Entry)
	case JobRemoveEntry:
		err = p.config.VectorDriver.Delete(ctx, []string{job.EntryID})
	case JobPublishTurn:
		err = p.config.Publisher.PublishTurn(ctx, job.Turn)
	case JobPublishDrift:
		err = p.config.Publisher.PublishDrift(ctx, job.Drift)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		p.logger.Error("job failed", "kind", job.Kind, "error", err)
		return
	}
	p.logger.Debug("job done", "kind", job.Kind)
}

// indexEntry embeds an entry's content and stores it under the entry ID,
// scoped to the entry's user.
func (p *Pool) indexEntry(ctx context.Context, e *journal.Entry) error {
	if e == nil {
		return errors.New("nil journal entry")
	}

	embedding, err := p.config.Embedder.Embed(ctx, e.Content)
	if err != nil {
		return fmt.Errorf("embedding entry %s: %w", e.ID, err)
	}

	doc := vector.Document{
		ID:        e.ID,
		UserID:    e.UserID,
		Embedding: embedding,
	}
	if err := p.config.VectorDriver.Add(ctx, []vector.Document{doc}); err != nil {
		return fmt.Errorf("storing embedding for entry %s: %w", e.ID, err)
	}

	p.logger.Debug("stored embedding",
		"entry_id", e.ID,
		"embedding_dim", len(embedding),
	)
	return nil
}
