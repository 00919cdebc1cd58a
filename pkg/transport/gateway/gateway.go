// Package gateway is the HTTP transport to an OpenAI-compatible LLM gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/transport"
	"github.com/papercomputeco/haven/pkg/transport/header"
)

const (
	// DefaultPath is the chat completion endpoint below the gateway base URL.
	DefaultPath = "/v1/chat/completions"

	// maxErrorBody bounds how much of a failed response is kept.
	maxErrorBody = 64 * 1024
)

// Config configures a gateway Transport.
type Config struct {
	// BaseURL is the gateway root, e.g. "https://ai.gateway.example".
	BaseURL string

	// Path overrides DefaultPath.
	Path string

	// APIKey is sent as a bearer credential. Empty sends no Authorization.
	APIKey string

	// Model is used when a request does not name one.
	Model string

	// Timeout bounds a whole exchange, including streaming. Zero means no
	// timeout beyond the caller's context.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Transport streams chat completions from the gateway.
type Transport struct {
	url    string
	apiKey string
	model  string
	client *http.Client
	logger *slog.Logger
}

// New returns a gateway Transport.
func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL is required")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Transport{
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: client,
		logger: logger,
	}, nil
}

// URL returns the endpoint requests are posted to.
func (t *Transport) URL() string {
	return t.url
}

// Open posts req and returns as soon as the gateway answered with headers.
// A non-success answer is read into Response.ErrorBody; a success answer is
// streamed through Response.Body. The body stays tied to ctx, so cancelling
// ctx aborts a pending read.
func (t *Transport) Open(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	model := req.Model
	if model == "" {
		model = t.model
	}

	body, err := json.Marshal(llm.ChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	header.Apply(req.Header, httpReq)

	t.logger.Debug("opening gateway stream",
		"url", t.url,
		"model", model,
		"message_count", len(req.Messages),
	)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	resp := &transport.Response{StatusCode: httpResp.StatusCode}
	if resp.OK() {
		resp.Body = transport.NewReaderChunks(httpResp.Body, 0)
		return resp, nil
	}

	defer httpResp.Body.Close()
	resp.ErrorBody, err = io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
	if err != nil {
		t.logger.Warn("failed to read gateway error body", "error", err)
	}

	t.logger.Warn("gateway returned error",
		"status", httpResp.StatusCode,
		"body", string(resp.ErrorBody),
	)
	return resp, nil
}
