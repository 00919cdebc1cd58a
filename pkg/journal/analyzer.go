package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultAnalysisModel is the gateway model used for drift analysis.
	DefaultAnalysisModel = "google/gemini-3-flash-preview"

	analyzeToolName = "analyze_drift"

	msgNoEntries      = "No entries provided"
	msgRateLimited    = "Rate limit exceeded, try again later."
	msgCreditsOut     = "AI credits exhausted."
	msgUnavailable    = "AI service unavailable"
	msgNoAnalysis     = "No analysis returned"
	msgBadAnalysis    = "Malformed analysis returned"
	entrySeparator    = "\n\n---\n\n"
	analysisUserIntro = "Analyze these journal entries for emotional drift:\n\n"
)

const analysisSystemPrompt = `You are an emotional tone analyst. Given a sequence of journal entries, analyze emotional drift patterns.

You MUST respond using the analyze_drift tool.

Guidelines:
- Score sentiment 0.0 (very negative) to 1.0 (very positive) for each entry
- Identify the dominant emotion for each entry (e.g. "hopeful", "anxious", "neutral", "sad", "grateful", "angry", "calm")
- Detect overall drift direction: "improving", "declining", "stable", or "volatile"
- Write a 2-3 sentence insight summary about emotional patterns and shifts
- Be compassionate and constructive in your summary`

// Analyzer scores emotional drift across entries, oldest first.
type Analyzer interface {
	Analyze(ctx context.Context, entries []Input) (*DriftAnalysis, error)
}

// GatewayConfig configures a GatewayAnalyzer.
type GatewayConfig struct {
	// BaseURL is the gateway root; "/v1" is appended.
	BaseURL string
	APIKey  string
	Model   string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// GatewayAnalyzer asks an OpenAI-compatible gateway for an analyze_drift tool
// call.
type GatewayAnalyzer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewGatewayAnalyzer returns an analyzer for the configured gateway.
func NewGatewayAnalyzer(c GatewayConfig) (*GatewayAnalyzer, error) {
	if c.BaseURL == "" {
		return nil, errors.New("gateway base URL is required")
	}

	cfg := openai.DefaultConfig(c.APIKey)
	cfg.BaseURL = strings.TrimRight(c.BaseURL, "/") + "/v1"
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}

	model := c.Model
	if model == "" {
		model = DefaultAnalysisModel
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &GatewayAnalyzer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Analyze implements Analyzer. Failures are *Error values carrying the status
// the API answers with.
func (a *GatewayAnalyzer) Analyze(ctx context.Context, entries []Input) (*DriftAnalysis, error) {
	if len(entries) == 0 {
		return nil, &Error{Status: http.StatusBadRequest, Message: msgNoEntries}
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: AnalysisPrompt(entries)},
		},
		Tools: []openai.Tool{analyzeDriftTool},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: analyzeToolName},
		},
	})
	if err != nil {
		return nil, a.gatewayError(err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 ||
		resp.Choices[0].Message.ToolCalls[0].Function.Arguments == "" {
		return nil, &Error{Status: http.StatusInternalServerError, Message: msgNoAnalysis}
	}

	var analysis DriftAnalysis
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &analysis); err != nil {
		a.logger.Error("failed to parse drift analysis", "error", err)
		return nil, &Error{Status: http.StatusInternalServerError, Message: msgBadAnalysis}
	}

	a.logger.Debug("drift analyzed",
		"entries", len(entries),
		"drift", analysis.DriftDirection,
	)
	return &analysis, nil
}

func (a *GatewayAnalyzer) gatewayError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Status: status, Message: msgRateLimited}
	case http.StatusPaymentRequired:
		return &Error{Status: status, Message: msgCreditsOut}
	default:
		a.logger.Error("AI gateway error", "status", status, "error", err)
		return &Error{Status: http.StatusInternalServerError, Message: msgUnavailable}
	}
}

// Unavailable is the Analyzer used when no gateway is configured. Every call
// fails with 503.
type Unavailable struct{}

func (Unavailable) Analyze(context.Context, []Input) (*DriftAnalysis, error) {
	return nil, &Error{Status: http.StatusServiceUnavailable, Message: msgUnavailable}
}

// AnalysisPrompt renders entries as the user prompt.
func AnalysisPrompt(entries []Input) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("Entry %d (%s):\n%s", i+1, e.CreatedAt, e.Content)
	}
	return analysisUserIntro + strings.Join(parts, entrySeparator)
}

var analyzeDriftTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        analyzeToolName,
		Description: "Return structured emotional drift analysis",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"entry_scores": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"index":     {Type: jsonschema.Number},
							"sentiment": {Type: jsonschema.Number},
							"emotion":   {Type: jsonschema.String},
						},
						Required:             []string{"index", "sentiment", "emotion"},
						AdditionalProperties: false,
					},
				},
				"drift_direction": {
					Type: jsonschema.String,
					Enum: []string{
						string(DriftImproving),
						string(DriftDeclining),
						string(DriftStable),
						string(DriftVolatile),
					},
				},
				"summary": {Type: jsonschema.String},
			},
			Required:             []string{"entry_scores", "drift_direction", "summary"},
			AdditionalProperties: false,
		},
	},
}
