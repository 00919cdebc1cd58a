// Package api provides haven's HTTP API: chat sessions with streamed replies,
// the journal and its drift analysis, mood and breathing data, and MCP.
package api

import (
	"github.com/papercomputeco/haven/api/mcp"
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/transport"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// RateLimit is the sustained requests per second allowed per caller on
	// the /v1 routes. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst allowed above RateLimit (defaults to 10).
	RateBurst int

	// Chat runs session turns.
	Chat *chat.Orchestrator

	// Sessions lists, reads and deletes sessions.
	Sessions storage.SessionDriver

	// Journal stores entries and analyzes drift.
	Journal *journal.Service

	// Transport serves the stateless /v1/chat/completions relay.
	Transport transport.Transport

	// MCP is mounted at /mcp when set.
	MCP *mcp.Server

	// DecoderOptions are passed to the stateless relay's decoder.
	DecoderOptions []sse.Option
}
