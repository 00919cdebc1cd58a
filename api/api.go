package api

import (
	"errors"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/papercomputeco/haven/pkg/transport/header"
)

// Server is the haven API server.
type Server struct {
	config        Config
	logger        *slog.Logger
	app           *fiber.App
	limiter       atomic.Pointer[limiter]
	headerHandler *header.Handler
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Chat == nil {
		return nil, errors.New("chat orchestrator is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("session driver is required")
	}
	if config.Journal == nil {
		return nil, errors.New("journal service is required")
	}
	if config.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Add compression middleware to handle responses. Event streams are
	// left alone since their body is a stream.
	app.Use(compress.New())

	s := &Server{
		config:        config,
		logger:        logger,
		app:           app,
		headerHandler: header.NewHandler(),
	}
	s.limiter.Store(newLimiter(config.RateLimit, config.RateBurst))

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1", s.rateLimit)

	v1.Post("/sessions", s.handleCreateSession)
	v1.Get("/sessions", s.handleListSessions)
	v1.Get("/sessions/:id", s.handleGetSession)
	v1.Delete("/sessions/:id", s.handleDeleteSession)
	v1.Post("/sessions/:id/messages", s.handleSendMessage)
	v1.Post("/sessions/:id/mood", s.handleRecordMood)
	v1.Get("/sessions/:id/mood", s.handleSessionMood)

	v1.Post("/chat/completions", s.handleCompletions)

	v1.Get("/journal/entries", s.handleListEntries)
	v1.Post("/journal/entries", s.handleSaveEntry)
	v1.Delete("/journal/entries/:id", s.handleDeleteEntry)
	v1.Post("/journal/analyze", s.handleAnalyzeJournal)
	v1.Post("/analyze-journal", s.handleAnalyzeEntries)
	v1.Get("/journal/recall", s.handleRecall)
	v1.Get("/journal/mood", s.handleJournalMood)

	v1.Get("/breathing", s.handleBreathing)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
