package api

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport"
)

// MessageRequest is the body of a chat message.
type MessageRequest struct {
	Content string `json:"content"`
}

// relaySink writes outcomes to the client and abandons the exchange as soon as
// the client stops reading.
type relaySink struct {
	w      *sse.Writer
	cancel context.CancelFunc
}

func (r relaySink) OnDelta(text string) {
	if r.w.WriteDelta(text) != nil {
		r.cancel()
	}
}

func (r relaySink) OnDone() { _ = r.w.WriteDone() }

func (r relaySink) OnError(message string) { _ = r.w.WriteError(message) }

func setStreamHeaders(c *fiber.Ctx) {
	for k, v := range sse.Headers {
		c.Set(k, v)
	}
}

// handleSendMessage runs a turn in the named session. Failures before the
// stream starts answer with the gateway's status and an {error} body;
// otherwise the reply is relayed as server-sent events.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return s.sendError(c, err)
	}

	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the stream is relayed from
	// a separate goroutine and needs the gateway connection to remain open.
	ctx, cancel := context.WithCancel(context.Background())

	turn, err := s.config.Chat.Begin(ctx, session.ID, req.Content,
		chat.WithHeader(s.headerHandler.ForwardedRequestHeaders(c)),
	)
	if err != nil {
		cancel()
		return s.sendError(c, err)
	}

	if turn.Crisis() {
		c.Set(CrisisHeader, chat.CrisisHelplineURL)
	}

	if status, message, failed := turn.Failure(); failed {
		_ = turn.Close()
		cancel()
		s.logger.Warn("gateway refused turn",
			"session_id", session.ID,
			"status", status,
			"message", message,
		)
		return c.Status(status).JSON(llm.ErrorResponse{Error: message})
	}

	setStreamHeaders(c)

	// Use io.Pipe + SetBodyStream: pw.Write blocks until fasthttp reads from
	// the pipe reader and flushes the chunk to the client.
	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		defer pw.Close()

		sink := relaySink{w: sse.NewWriter(pw), cancel: cancel}
		if _, err := turn.Stream(ctx, sink); err != nil {
			s.logger.Debug("turn ended without a reply", "session_id", session.ID, "error", err)
		}
	}()

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// handleCompletions relays a caller-supplied conversation to the gateway
// without touching any session.
func (s *Server) handleCompletions(c *fiber.Ctx) error {
	var req llm.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Messages) == 0 {
		return badRequest(c, "messages are required")
	}
	for _, m := range req.Messages {
		if !llm.IsValidRole(m.Role) {
			return badRequest(c, "invalid message role: "+m.Role)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	resp, err := s.config.Transport.Open(ctx, &transport.Request{
		Model:    req.Model,
		Messages: req.Messages,
		Header:   s.headerHandler.ForwardedRequestHeaders(c),
	})
	if err != nil {
		cancel()
		s.logger.Error("upstream request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	if !resp.OK() || resp.Body == nil {
		_ = resp.Close()
		cancel()
		status := resp.StatusCode
		if resp.OK() {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(llm.ErrorResponse{Error: sse.StatusMessage(resp.StatusCode, resp.ErrorBody)})
	}

	setStreamHeaders(c)

	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		defer pw.Close()

		sink := relaySink{w: sse.NewWriter(pw), cancel: cancel}
		if err := sse.Decode(ctx, resp, sink, s.config.DecoderOptions...); err != nil {
			s.logger.Debug("relay abandoned", "error", err)
		}
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}
