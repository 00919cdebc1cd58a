package api

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/chat"
	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport"
	"github.com/papercomputeco/haven/pkg/transport/gateway"
)

// decodeBody runs the stream decoder over a relayed response body.
func decodeBody(body []byte) *sse.Collector {
	collector := &sse.Collector{}
	resp := &transport.Response{StatusCode: http.StatusOK, Body: transport.NewChunks(body)}
	Expect(sse.Decode(context.Background(), resp, collector, sse.WithErrorRecords())).To(Succeed())
	return collector
}

var _ = Describe("Relay", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	Describe("POST /v1/sessions/:id/messages", func() {
		var sessionID string

		BeforeEach(func() {
			_, body := env.do(http.MethodPost, "/v1/sessions", "ana", nil)
			sessionID = decode[chat.Session](body).ID
		})

		It("relays the reply as server-sent events and commits the turn", func() {
			resp, body := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
			Expect(resp.Header.Get(CrisisHeader)).To(BeEmpty())

			collector := decodeBody(body)
			Expect(collector.Outcomes()).To(Equal([]sse.Outcome{
				sse.Delta("Hel"), sse.Delta("lo"), sse.Done(),
			}))
			Expect(string(body)).To(HaveSuffix("data: [DONE]\n\n"))

			stored, err := env.store.GetSession(context.Background(), sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Messages).To(HaveLen(3))
			Expect(stored.Messages[2].Content).To(Equal("Hello"))
		})

		It("answers a refused turn with the gateway status and error", func() {
			env.static.StatusCode = http.StatusTooManyRequests
			env.static.ErrorBody = []byte(`{"error":"rate limited"}`)

			resp, body := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
			Expect(decode[llm.ErrorResponse](body).Error).To(Equal("rate limited"))

			stored, _ := env.store.GetSession(context.Background(), sessionID)
			Expect(stored.Messages).To(HaveLen(1))
		})

		It("skips gateway records that carry no content", func() {
			env.static.Chunks = []string{
				`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n",
				`data: {"error":{"message":"overloaded"}}` + "\n",
				`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n",
				"data: [DONE]\n",
			}

			resp, body := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			collector := decodeBody(body)
			Expect(collector.Outcomes()).To(Equal([]sse.Outcome{
				sse.Delta("Hel"), sse.Delta("lo"), sse.Done(),
			}))
		})

		It("relays a failed stream to the client as an error record", func() {
			env.static.Chunks = []string{
				`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n",
				`data: {"choices":[` + "\n",
			}

			resp, body := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`data: {"error":"` + sse.MalformedMessage + `"}`))

			collector := decodeBody(body)
			Expect(collector.Outcomes()).To(Equal([]sse.Outcome{
				sse.Delta("Hel"), sse.Error(sse.MalformedMessage),
			}))
		})

		It("sets the crisis helpline header for crisis language", func() {
			resp, _ := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "I want to end my life"})
			Expect(resp.Header.Get(CrisisHeader)).To(Equal(chat.CrisisHelplineURL))
		})

		It("rejects an empty message", func() {
			resp, body := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ana", MessageRequest{Content: "  "})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[llm.ErrorResponse](body).Error).To(Equal(chat.ErrEmptyMessage.Error()))
			Expect(env.static.Requests).To(BeEmpty())
		})

		It("does not let another user post to the session", func() {
			resp, _ := env.do(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", "ben", MessageRequest{Content: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /v1/chat/completions", func() {
		It("relays a stateless conversation", func() {
			resp, body := env.do(http.MethodPost, "/v1/chat/completions", "", llm.ChatRequest{
				Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decodeBody(body).Text()).To(Equal("Hello"))
			Expect(env.static.Requests[0].LastUserMessage()).To(Equal("hello"))
		})

		It("validates the request", func() {
			resp, _ := env.do(http.MethodPost, "/v1/chat/completions", "", llm.ChatRequest{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			resp, _ = env.do(http.MethodPost, "/v1/chat/completions", "", llm.ChatRequest{
				Messages: []llm.Message{llm.NewTextMessage("tool", "x")},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		Context("through the gateway transport", func() {
			var upstream *httptest.Server

			AfterEach(func() {
				upstream.Close()
			})

			It("streams the gateway's events", func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.Header.Get("Authorization") != "Bearer test-key" {
						w.WriteHeader(http.StatusUnauthorized)
						return
					}
					w.Header().Set("Content-Type", "text/event-stream")
					flusher := w.(http.Flusher)
					for _, frame := range []string{
						`data: {"choices":[{"delta":{"content":"Take a "}}]}` + "\n\n",
						`data: {"choices":[{"delta":{"content":"breath."}}]}` + "\n\n",
						"data: [DONE]\n\n",
					} {
						_, _ = w.Write([]byte(frame))
						flusher.Flush()
					}
				}))

				gw, err := gateway.New(gateway.Config{BaseURL: upstream.URL, APIKey: "test-key"})
				Expect(err).NotTo(HaveOccurred())
				env = newTestEnv(func(c *Config) { c.Transport = gw })

				resp, body := env.do(http.MethodPost, "/v1/chat/completions", "", llm.ChatRequest{
					Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "help")},
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(decodeBody(body).Text()).To(Equal("Take a breath."))
			})

			It("passes a gateway refusal through", func() {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusPaymentRequired)
					_, _ = w.Write([]byte(`{"error":"AI credits exhausted."}`))
				}))

				gw, err := gateway.New(gateway.Config{BaseURL: upstream.URL})
				Expect(err).NotTo(HaveOccurred())
				env = newTestEnv(func(c *Config) { c.Transport = gw })

				resp, body := env.do(http.MethodPost, "/v1/chat/completions", "", llm.ChatRequest{
					Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "help")},
				})
				Expect(resp.StatusCode).To(Equal(http.StatusPaymentRequired))
				Expect(decode[llm.ErrorResponse](body).Error).To(Equal("AI credits exhausted."))
			})
		})
	})
})
