// Package header decides which headers cross from a haven client request to the
// LLM gateway.
//
//	Client <--> haven <--> LLM gateway
//
// Each leg negotiates its own hops, encoding and credentials, so only
// end-to-end request metadata is forwarded.
package header

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// UserHeader names the caller whose sessions and journal a request acts on.
const UserHeader = "X-Haven-User"

// DefaultUser is used when a request carries no UserHeader.
const DefaultUser = "local"

// Handler manages headers between the client and gateway legs.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// skipRequest is the set of client request headers that never reach the
// gateway.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},

	// Rewritten by Go's http.Transport to match the gateway URL.
	"Host": {},

	// Stripped so Go's http.Transport negotiates and decodes gzip itself.
	"Accept-Encoding": {},

	// The body sent upstream is rebuilt by haven.
	"Content-Length": {},
	"Content-Type":   {},
	"Accept":         {},

	// Client credentials stay on the client leg; the gateway key is haven's.
	"Authorization": {},
	"Cookie":        {},

	// Internal routing header.
	UserHeader: {},
}

// ForwardedRequestHeaders returns the client headers that may be forwarded to
// the gateway.
func (h *Handler) ForwardedRequestHeaders(c *fiber.Ctx) http.Header {
	out := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := skipRequest[k]; !skip {
			out.Add(k, string(value))
		}
	})
	return out
}

// Apply copies forwarded headers onto an outgoing gateway request without
// overriding headers already set on it.
func Apply(forwarded http.Header, req *http.Request) {
	for k, vs := range forwarded {
		if _, skip := skipRequest[http.CanonicalHeaderKey(k)]; skip {
			continue
		}
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// User returns the caller named by the request, or DefaultUser.
func (h *Handler) User(c *fiber.Ctx) string {
	if u := c.Get(UserHeader); u != "" {
		return u
	}
	return DefaultUser
}
