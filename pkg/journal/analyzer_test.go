package journal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/journal"
)

func toolCallResponse(arguments string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   journal.DefaultAnalysisModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []map[string]any{{
					"id":   "call-1",
					"type": "function",
					"function": map[string]any{
						"name":      "analyze_drift",
						"arguments": arguments,
					},
				}},
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

var _ = Describe("GatewayAnalyzer", func() {
	var (
		status   int
		body     string
		received map[string]any
		server   *httptest.Server
		analyzer *journal.GatewayAnalyzer
		entries  []journal.Input
	)

	BeforeEach(func() {
		status = http.StatusOK
		body = toolCallResponse(`{"entry_scores":[{"index":1,"sentiment":0.2,"emotion":"anxious"},{"index":2.0,"sentiment":0.7,"emotion":"hopeful"}],"drift_direction":"improving","summary":"Things are looking up."}`)
		received = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer gateway-key"))
			json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))

		var err error
		analyzer, err = journal.NewGatewayAnalyzer(journal.GatewayConfig{
			BaseURL: server.URL,
			APIKey:  "gateway-key",
		})
		Expect(err).NotTo(HaveOccurred())

		entries = []journal.Input{
			{Content: "Couldn't sleep, worried about work.", CreatedAt: "2026-03-01T09:00:00Z"},
			{Content: "Talked to a friend, felt better.", CreatedAt: "2026-03-02T09:00:00Z"},
		}
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires a base URL", func() {
		_, err := journal.NewGatewayAnalyzer(journal.GatewayConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("parses the analyze_drift tool call", func() {
		analysis, err := analyzer.Analyze(context.Background(), entries)
		Expect(err).NotTo(HaveOccurred())
		Expect(analysis.DriftDirection).To(Equal(journal.DriftImproving))
		Expect(analysis.Summary).To(Equal("Things are looking up."))
		Expect(analysis.EntryScores).To(Equal([]journal.EntryScore{
			{Index: 1, Sentiment: 0.2, Emotion: "anxious"},
			{Index: 2, Sentiment: 0.7, Emotion: "hopeful"},
		}))
	})

	It("forces the analyze_drift tool and sends the numbered entries", func() {
		_, err := analyzer.Analyze(context.Background(), entries)
		Expect(err).NotTo(HaveOccurred())

		Expect(received["model"]).To(Equal(journal.DefaultAnalysisModel))
		Expect(received["tool_choice"]).To(HaveKeyWithValue("function", HaveKeyWithValue("name", "analyze_drift")))
		Expect(received["tools"]).To(HaveLen(1))

		messages := received["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		Expect(messages[0]).To(HaveKeyWithValue("role", "system"))
		user := messages[1].(map[string]any)["content"].(string)
		Expect(user).To(ContainSubstring("Entry 1 (2026-03-01T09:00:00Z):\nCouldn't sleep"))
		Expect(user).To(ContainSubstring("\n\n---\n\nEntry 2 (2026-03-02T09:00:00Z):"))
	})

	It("rejects an empty entry list without calling the gateway", func() {
		_, err := analyzer.Analyze(context.Background(), nil)
		var jerr *journal.Error
		Expect(errors.As(err, &jerr)).To(BeTrue())
		Expect(jerr.Status).To(Equal(http.StatusBadRequest))
		Expect(jerr.Message).To(Equal("No entries provided"))
		Expect(received).To(BeNil())
	})

	DescribeTable("maps gateway failures",
		func(upstream int, wantStatus int, wantMessage string) {
			status = upstream
			body = `{"error":{"message":"upstream says no","type":"error"}}`

			_, err := analyzer.Analyze(context.Background(), entries)
			var jerr *journal.Error
			Expect(errors.As(err, &jerr)).To(BeTrue())
			Expect(jerr.Status).To(Equal(wantStatus))
			Expect(jerr.Message).To(Equal(wantMessage))
		},
		Entry("rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests, "Rate limit exceeded, try again later."),
		Entry("credits exhausted", http.StatusPaymentRequired, http.StatusPaymentRequired, "AI credits exhausted."),
		Entry("server error", http.StatusBadGateway, http.StatusInternalServerError, "AI service unavailable"),
	)

	It("reports a reply without a tool call", func() {
		body = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"I cannot help with that"}}]}`

		_, err := analyzer.Analyze(context.Background(), entries)
		var jerr *journal.Error
		Expect(errors.As(err, &jerr)).To(BeTrue())
		Expect(jerr.Message).To(Equal("No analysis returned"))
	})

	It("reports malformed tool arguments", func() {
		body = toolCallResponse(`{"entry_scores": oops}`)

		_, err := analyzer.Analyze(context.Background(), entries)
		var jerr *journal.Error
		Expect(errors.As(err, &jerr)).To(BeTrue())
		Expect(jerr.Status).To(Equal(http.StatusInternalServerError))
		Expect(jerr.Message).To(Equal("Malformed analysis returned"))
	})
})

var _ = Describe("AnalysisPrompt", func() {
	It("numbers entries from one and separates them", func() {
		prompt := journal.AnalysisPrompt([]journal.Input{
			{Content: "a", CreatedAt: "t1"},
			{Content: "b", CreatedAt: "t2"},
		})
		Expect(prompt).To(Equal("Analyze these journal entries for emotional drift:\n\nEntry 1 (t1):\na\n\n---\n\nEntry 2 (t2):\nb"))
	})
})

var _ = Describe("Unavailable", func() {
	It("fails every analysis with 503", func() {
		_, err := journal.Unavailable{}.Analyze(context.Background(), []journal.Input{{Content: "a"}})

		var jerr *journal.Error
		Expect(errors.As(err, &jerr)).To(BeTrue())
		Expect(jerr.Status).To(Equal(http.StatusServiceUnavailable))
	})
})
