package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/haven/pkg/breathing"
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/mood"
)

// CrisisHeader carries the crisis helpline URL on responses to a message
// containing crisis language.
const CrisisHeader = "X-Haven-Crisis-Helpline"

// MoodResponse is a mood series with its summary.
type MoodResponse struct {
	Series  mood.Series  `json:"series"`
	Summary mood.Summary `json:"summary"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// sendError writes err as an llm.ErrorResponse with the status it maps to.
func (s *Server) sendError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var jerr *journal.Error
	var serr *chat.StreamError
	switch {
	case errors.As(err, &jerr):
		status, message = jerr.Status, jerr.Message
	case errors.As(err, &serr):
		status, message = fiber.StatusBadGateway, serr.Message
		if serr.Status != 0 {
			status = serr.Status
		}
	case errors.Is(err, chat.ErrSessionNotFound):
		status, message = fiber.StatusNotFound, "session not found"
	case errors.Is(err, journal.ErrEntryNotFound):
		status, message = fiber.StatusNotFound, "journal entry not found"
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, journal.ErrEmptyEntry),
		errors.Is(err, journal.ErrEntryTooLong):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, journal.ErrRecallUnavailable):
		status, message = fiber.StatusServiceUnavailable, err.Error()
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(llm.ErrorResponse{Error: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: message})
}

// BreathingPhase is a phase of the breathing pattern with its length in
// seconds.
type BreathingPhase struct {
	Label   string `json:"label"`
	Seconds int    `json:"seconds"`
}

// BreathingResponse describes the breathing exercise.
type BreathingResponse struct {
	Phases       []BreathingPhase `json:"phases"`
	CycleSeconds int              `json:"cycle_seconds"`
}

// handleBreathing returns the box breathing pattern.
func (s *Server) handleBreathing(c *fiber.Ctx) error {
	resp := BreathingResponse{
		CycleSeconds: int(breathing.Box.Cycle() / time.Second),
	}
	for _, ph := range breathing.Box {
		resp.Phases = append(resp.Phases, BreathingPhase{
			Label:   ph.Label,
			Seconds: int(ph.Duration / time.Second),
		})
	}
	return c.JSON(resp)
}
