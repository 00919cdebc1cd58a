// Package client talks to a running haven API server. It backs the haven
// chat and journal commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/papercomputeco/haven/api"
	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport"
	"github.com/papercomputeco/haven/pkg/transport/header"
)

// Client is a haven API client acting as one user.
type Client struct {
	target *url.URL
	user   string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for the API at target. An empty user acts as the
// server's default user.
func New(target, user string, opts ...Option) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}

	c := &Client{
		target: u,
		user:   user,
		http:   http.DefaultClient,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Target returns the API base URL.
func (c *Client) Target() string {
	return c.target.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	u := *c.target
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(header.UserHeader, c.user)
	}
	return req, nil
}

// do sends a JSON request and decodes the JSON response into out. A non-2xx
// answer is a *transport.StatusError carrying the server's error message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to haven API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &transport.StatusError{
			StatusCode: resp.StatusCode,
			Message:    sse.StatusMessage(resp.StatusCode, body),
		}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var serr *transport.StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}

// CreateSession starts a new chat session.
func (c *Client) CreateSession(ctx context.Context) (*chat.Session, error) {
	session := &chat.Session{}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession loads a chat session.
func (c *Client) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	session := &chat.Session{}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordMood adds a mood sample to a session.
func (c *Client) RecordMood(ctx context.Context, sessionID string, sentiment float64) (*api.MoodResponse, error) {
	out := &api.MoodResponse{}
	in := api.MoodRequest{Sentiment: &sentiment}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(sessionID)+"/mood", nil, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reply describes a finished Send.
type Reply struct {
	// Helpline is set when the message contained crisis language.
	Helpline string
}

// Send posts a message to a session and decodes the streamed reply into
// sink. A refused request is reported to sink as an error, like a failure
// mid-stream.
func (c *Client) Send(ctx context.Context, sessionID, text string, sink sse.Sink, opts ...sse.Option) (*Reply, error) {
	req, err := c.newRequest(ctx, http.MethodPost,
		"/v1/sessions/"+url.PathEscape(sessionID)+"/messages", nil,
		api.MessageRequest{Content: text},
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to haven API at %s: %w", c.target, err)
	}

	reply := &Reply{Helpline: resp.Header.Get(api.CrisisHeader)}

	tr := &transport.Response{StatusCode: resp.StatusCode}
	if tr.OK() {
		tr.Body = transport.NewReaderChunks(resp.Body, 0)
	} else {
		tr.ErrorBody, _ = io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
	}

	// The relay reports failures after the stream started as error records.
	opts = append([]sse.Option{sse.WithErrorRecords()}, opts...)
	if err := sse.Decode(ctx, tr, sink, opts...); err != nil {
		return reply, err
	}
	return reply, nil
}

// SaveEntry stores a journal entry.
func (c *Client) SaveEntry(ctx context.Context, content string) (*journal.Entry, error) {
	entry := &journal.Entry{}
	if err := c.do(ctx, http.MethodPost, "/v1/journal/entries", nil, api.EntryRequest{Content: content}, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the user's journal, oldest first.
func (c *Client) ListEntries(ctx context.Context) ([]*journal.Entry, error) {
	var out struct {
		Entries []*journal.Entry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/journal/entries", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// DeleteEntry removes a journal entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/journal/entries/"+url.PathEscape(id), nil, nil, nil)
}

// Analyze runs drift analysis over the user's stored journal.
func (c *Client) Analyze(ctx context.Context) (*api.AnalyzeResponse, error) {
	out := &api.AnalyzeResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/journal/analyze", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecallResults is the answer to Recall.
type RecallResults struct {
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
	Results []journal.Recollection `json:"results"`
}

// Recall finds up to k past entries close in meaning to query.
func (c *Client) Recall(ctx context.Context, query string, k int) (*RecallResults, error) {
	q := url.Values{}
	q.Set("q", query)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}

	out := &RecallResults{}
	if err := c.do(ctx, http.MethodGet, "/v1/journal/recall", q, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// JournalMood returns the sentiment series of analyzed entries.
func (c *Client) JournalMood(ctx context.Context) (*api.MoodResponse, error) {
	out := &api.MoodResponse{}
	if err := c.do(ctx, http.MethodGet, "/v1/journal/mood", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
