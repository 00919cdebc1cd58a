package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/mood"
	"github.com/papercomputeco/haven/pkg/utils"
	"github.com/papercomputeco/haven/pkg/vector"
)

var (
	analyzeToolName    = "analyze_drift"
	analyzeDescription = "Analyze the emotional drift across a user's journal entries. Scores each entry's sentiment and emotion, stores the scores on the entries and returns the overall drift direction with a short summary."

	recallToolName    = "journal_recall"
	recallDescription = "Search a user's journal using semantic search. Returns the entries closest in meaning to the query text."

	moodToolName    = "mood_summary"
	moodDescription = "Summarize a user's mood from their analyzed journal entries, and from a chat session's mood series when a session ID is given."

	previewLength = 280
)

// AnalyzeInput represents the input arguments for the analyze_drift tool.
type AnalyzeInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose journal to analyze"`
}

// AnalyzeOutput represents the output of the analyze_drift tool.
type AnalyzeOutput struct {
	UserID   string                `json:"user_id"`
	Entries  int                   `json:"entries"`
	Analysis journal.DriftAnalysis `json:"analysis"`
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	s.config.Logger.Debug("MCP analyze request", "user_id", input.UserID)

	if input.UserID == "" {
		return toolError("user_id is required"), AnalyzeOutput{}, nil
	}

	analysis, entries, err := s.config.Journal.Analyze(ctx, input.UserID)
	if err != nil {
		s.config.Logger.Error("failed to analyze journal", "user_id", input.UserID, "error", err)
		return toolError("Failed to analyze journal: %v", err), AnalyzeOutput{}, nil
	}

	output := AnalyzeOutput{
		UserID:   input.UserID,
		Entries:  len(entries),
		Analysis: *analysis,
	}
	res, err := toolResult(output)
	if err != nil {
		return toolError("Failed to serialize analysis: %v", err), AnalyzeOutput{}, nil
	}
	return res, output, nil
}

// RecallInput represents the input arguments for the journal_recall tool.
type RecallInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose journal to search"`
	Query  string `json:"query" jsonschema:"the search query text to find relevant entries"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// RecallResult represents a single recalled entry.
type RecallResult struct {
	EntryID   string  `json:"entry_id"`
	Score     float32 `json:"score"`
	CreatedAt string  `json:"created_at"`
	MoodLabel string  `json:"mood_label,omitempty"`
	Preview   string  `json:"preview"`
}

// RecallOutput represents the output of the journal_recall tool.
type RecallOutput struct {
	Query   string         `json:"query"`
	Results []RecallResult `json:"results"`
	Count   int            `json:"count"`
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, input RecallInput) (*mcp.CallToolResult, RecallOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	s.config.Logger.Debug("MCP recall request",
		"user_id", input.UserID,
		"query", input.Query,
		"topK", topK,
	)

	if input.UserID == "" || input.Query == "" {
		return toolError("user_id and query are required"), RecallOutput{}, nil
	}

	found, err := s.config.Journal.Recall(ctx, input.UserID, input.Query, topK)
	if errors.Is(err, journal.ErrRecallUnavailable) {
		return toolError("Journal recall is not configured: start haven with a vector store and embedder"), RecallOutput{}, nil
	}
	if err != nil {
		s.config.Logger.Error("failed to recall journal entries", "error", err)
		return toolError("Failed to search journal: %v", err), RecallOutput{}, nil
	}

	output := RecallOutput{
		Query:   input.Query,
		Results: make([]RecallResult, 0, len(found)),
	}
	for _, r := range found {
		output.Results = append(output.Results, buildRecallResult(r))
	}
	output.Count = len(output.Results)

	res, err := toolResult(output)
	if err != nil {
		return toolError("Failed to serialize results: %v", err), RecallOutput{}, nil
	}
	return res, output, nil
}

// buildRecallResult converts a recalled entry into a RecallResult.
func buildRecallResult(r journal.Recollection) RecallResult {
	out := RecallResult{
		EntryID:   r.Entry.ID,
		Score:     r.Score,
		CreatedAt: r.Entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Preview:   utils.Truncate(r.Entry.Content, previewLength),
	}
	if r.Entry.MoodLabel != nil {
		out.MoodLabel = *r.Entry.MoodLabel
	}
	return out
}

// MoodInput represents the input arguments for the mood_summary tool.
type MoodInput struct {
	UserID    string `json:"user_id" jsonschema:"the user whose mood to summarize"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional chat session to include"`
}

// MoodOutput represents the output of the mood_summary tool.
type MoodOutput struct {
	UserID  string        `json:"user_id"`
	Journal mood.Summary  `json:"journal"`
	Session *mood.Summary `json:"session,omitempty"`
}

func (s *Server) handleMoodSummary(ctx context.Context, _ *mcp.CallToolRequest, input MoodInput) (*mcp.CallToolResult, MoodOutput, error) {
	if input.UserID == "" {
		return toolError("user_id is required"), MoodOutput{}, nil
	}

	series, err := s.config.Journal.MoodSeries(ctx, input.UserID)
	if err != nil {
		s.config.Logger.Error("failed to load journal mood", "error", err)
		return toolError("Failed to load journal mood: %v", err), MoodOutput{}, nil
	}

	output := MoodOutput{
		UserID:  input.UserID,
		Journal: series.Summary(),
	}

	if input.SessionID != "" {
		if s.config.Sessions == nil {
			return toolError("Chat sessions are not available"), MoodOutput{}, nil
		}
		session, err := s.config.Sessions.GetSession(ctx, input.SessionID)
		if err != nil || session.UserID != input.UserID {
			return toolError("Session %s not found", input.SessionID), MoodOutput{}, nil
		}
		summary := session.Mood.Summary()
		output.Session = &summary
	}

	res, err := toolResult(output)
	if err != nil {
		return toolError("Failed to serialize summary: %v", err), MoodOutput{}, nil
	}
	return res, output, nil
}
