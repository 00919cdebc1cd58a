package eventstream

import "errors"

var (
	// ErrNilTurnEvent indicates a nil turn event payload was provided to a publisher.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrNilDriftEvent indicates a nil drift event payload was provided to a publisher.
	ErrNilDriftEvent = errors.New("nil drift event")
)
