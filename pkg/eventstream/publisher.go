package eventstream

import "context"

// Publisher publishes haven events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	PublishDrift(ctx context.Context, event *DriftAnalyzedEvent) error
	Close() error
}
