package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/sse"
	"github.com/papercomputeco/haven/pkg/transport"
	"github.com/papercomputeco/haven/pkg/transport/gateway"
)

var _ = Describe("Transport", func() {
	var (
		upstream *httptest.Server
		handler  http.HandlerFunc
		gotReq   *http.Request
		gotBody  llm.ChatRequest
	)

	BeforeEach(func() {
		handler = nil
		gotReq = nil
		gotBody = llm.ChatRequest{}

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotBody)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		upstream.Close()
	})

	newTransport := func(cfg gateway.Config) *gateway.Transport {
		cfg.BaseURL = upstream.URL + "/"
		t, err := gateway.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	request := &transport.Request{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "I feel stressed")},
		Header:   http.Header{"X-Request-Id": {"req-42"}},
	}

	It("requires a base URL", func() {
		_, err := gateway.New(gateway.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("posts a streaming chat request with a bearer credential", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		}

		t := newTransport(gateway.Config{APIKey: "secret", Model: "haven-small"})
		Expect(t.URL()).To(Equal(upstream.URL + gateway.DefaultPath))

		resp, err := t.Open(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Close()

		Expect(gotReq.Method).To(Equal(http.MethodPost))
		Expect(gotReq.URL.Path).To(Equal("/v1/chat/completions"))
		Expect(gotReq.Header.Get("Authorization")).To(Equal("Bearer secret"))
		Expect(gotReq.Header.Get("Accept")).To(Equal("text/event-stream"))
		Expect(gotReq.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(gotReq.Header.Get("X-Request-Id")).To(Equal("req-42"))

		Expect(gotBody.Model).To(Equal("haven-small"))
		Expect(gotBody.Stream).To(BeTrue())
		Expect(gotBody.Messages).To(Equal(request.Messages))
	})

	It("prefers the request's model", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {}

		t := newTransport(gateway.Config{Model: "default", Path: "chat"})
		resp, err := t.Open(context.Background(), &transport.Request{Model: "override"})
		Expect(err).NotTo(HaveOccurred())
		defer resp.Close()

		Expect(gotReq.URL.Path).To(Equal("/chat"))
		Expect(gotReq.Header.Get("Authorization")).To(BeEmpty())
		Expect(gotBody.Model).To(Equal("override"))
	})

	It("streams a successful body through the decoder", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			flusher := w.(http.Flusher)
			w.Header().Set("Content-Type", "text/event-stream")
			for _, part := range []string{
				`data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n\n",
				`data: {"choices":[{"delta":{"content":"Let's "}}]}` + "\n\n",
				`data: {"choices":[{"delta":{"content":"breathe."}}]}` + "\n\n",
				"data: [DONE]\n\n",
			} {
				_, _ = io.WriteString(w, part)
				flusher.Flush()
			}
		}

		resp, err := newTransport(gateway.Config{}).Open(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeTrue())

		c := &sse.Collector{}
		Expect(sse.Decode(context.Background(), resp, c)).To(Succeed())
		Expect(c.Outcomes()).To(Equal([]sse.Outcome{sse.Delta("Let's "), sse.Delta("breathe."), sse.Done()}))
	})

	It("reads the body of a failed response", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":"rate limited"}`)
		}

		resp, err := newTransport(gateway.Config{}).Open(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeFalse())
		Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
		Expect(resp.Body).To(BeNil())
		Expect(string(resp.ErrorBody)).To(Equal(`{"error":"rate limited"}`))

		c := &sse.Collector{}
		Expect(sse.Decode(context.Background(), resp, c)).To(Succeed())
		Expect(c.Outcomes()).To(Equal([]sse.Outcome{sse.Error("rate limited")}))
	})

	It("returns an error when the gateway is unreachable", func() {
		t, err := gateway.New(gateway.Config{BaseURL: "http://127.0.0.1:1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = t.Open(context.Background(), request)
		Expect(err).To(HaveOccurred())
		Expect(strings.Contains(err.Error(), "gateway request failed")).To(BeTrue())
	})
})
