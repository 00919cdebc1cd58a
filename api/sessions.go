package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/mood"
)

// SessionSummary is a session without its transcript.
type SessionSummary struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	Mood      float64   `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ownedSession loads the session named by the :id param. Another user's
// session reads as not found.
func (s *Server) ownedSession(c *fiber.Ctx) (*chat.Session, error) {
	session, err := s.config.Sessions.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if session.UserID != s.headerHandler.User(c) {
		return nil, chat.ErrSessionNotFound
	}
	return session, nil
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	session, err := s.config.Chat.NewSession(c.Context(), s.headerHandler.User(c))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.config.Sessions.ListSessions(c.Context(), s.headerHandler.User(c))
	if err != nil {
		return s.sendError(c, err)
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, SessionSummary{
			ID:        session.ID,
			Messages:  len(session.Messages),
			Mood:      session.Mood.Latest(),
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}

	return c.JSON(map[string]any{
		"count":    len(out),
		"sessions": out,
	})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(session)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return s.sendError(c, err)
	}
	if err := s.config.Sessions.DeleteSession(c.Context(), session.ID); err != nil {
		return s.sendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MoodRequest is the body of a mood sample.
type MoodRequest struct {
	Sentiment *float64 `json:"sentiment"`
}

func (s *Server) handleRecordMood(c *fiber.Ctx) error {
	if _, err := s.ownedSession(c); err != nil {
		return s.sendError(c, err)
	}

	var req MoodRequest
	if err := c.BodyParser(&req); err != nil || req.Sentiment == nil {
		return badRequest(c, "sentiment is required")
	}
	if err := mood.Validate(*req.Sentiment); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := s.config.Chat.RecordMood(c.Context(), c.Params("id"), *req.Sentiment, time.Time{})
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(MoodResponse{Series: session.Mood, Summary: session.Mood.Summary()})
}

func (s *Server) handleSessionMood(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(MoodResponse{Series: session.Mood, Summary: session.Mood.Summary()})
}
