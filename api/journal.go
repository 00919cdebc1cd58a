package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/vector"
)

const maxRecallK = 50

// EntryRequest is the body of a new journal entry.
type EntryRequest struct {
	Content string `json:"content"`
}

// AnalyzeEntriesRequest is the body of a stateless drift analysis.
type AnalyzeEntriesRequest struct {
	Entries []journal.Input `json:"entries"`
}

// AnalyzeResponse is a stored analysis together with the scored entries.
type AnalyzeResponse struct {
	Analysis *journal.DriftAnalysis `json:"analysis"`
	Entries  []*journal.Entry       `json:"entries"`
}

func (s *Server) handleListEntries(c *fiber.Ctx) error {
	entries, err := s.config.Journal.List(c.Context(), s.headerHandler.User(c))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleSaveEntry(c *fiber.Ctx) error {
	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	entry, err := s.config.Journal.Save(c.Context(), s.headerHandler.User(c), req.Content)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (s *Server) handleDeleteEntry(c *fiber.Ctx) error {
	if err := s.config.Journal.Delete(c.Context(), s.headerHandler.User(c), c.Params("id")); err != nil {
		return s.sendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleAnalyzeJournal analyzes the caller's stored entries and writes the
// scores back to them.
func (s *Server) handleAnalyzeJournal(c *fiber.Ctx) error {
	analysis, entries, err := s.config.Journal.Analyze(c.Context(), s.headerHandler.User(c))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(AnalyzeResponse{Analysis: analysis, Entries: entries})
}

// handleAnalyzeEntries analyzes the entries in the body without storing
// anything.
func (s *Server) handleAnalyzeEntries(c *fiber.Ctx) error {
	var req AnalyzeEntriesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	analysis, err := s.config.Journal.AnalyzeEntries(c.Context(), req.Entries)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(analysis)
}

func (s *Server) handleRecall(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return badRequest(c, "q parameter required")
	}

	k := vector.DefaultTopK
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "k must be a positive integer")
		}
		k = min(n, maxRecallK)
	}

	found, err := s.config.Journal.Recall(c.Context(), s.headerHandler.User(c), query, k)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(map[string]any{
		"query":   query,
		"count":   len(found),
		"results": found,
	})
}

func (s *Server) handleJournalMood(c *fiber.Ctx) error {
	series, err := s.config.Journal.MoodSeries(c.Context(), s.headerHandler.User(c))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(MoodResponse{Series: series, Summary: series.Summary()})
}
