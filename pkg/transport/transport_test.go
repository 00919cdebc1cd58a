package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/transport"
)

// trickleReader returns at most n bytes per Read.
type trickleReader struct {
	r      io.Reader
	n      int
	closed bool
}

func (t *trickleReader) Read(p []byte) (int, error) {
	if len(p) > t.n {
		p = p[:t.n]
	}
	return t.r.Read(p)
}

func (t *trickleReader) Close() error {
	t.closed = true
	return nil
}

var _ = Describe("Request", func() {
	It("finds the most recent user message", func() {
		req := &transport.Request{Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "be kind"),
			llm.NewTextMessage(llm.RoleUser, "first"),
			llm.NewTextMessage(llm.RoleAssistant, "reply"),
			llm.NewTextMessage(llm.RoleUser, "second"),
			llm.NewTextMessage(llm.RoleAssistant, "partial"),
		}}
		Expect(req.LastUserMessage()).To(Equal("second"))
	})

	It("returns empty without user messages", func() {
		Expect((&transport.Request{}).LastUserMessage()).To(BeEmpty())
	})
})

var _ = Describe("Response", func() {
	It("treats 2xx as success", func() {
		Expect((&transport.Response{StatusCode: http.StatusOK}).OK()).To(BeTrue())
		Expect((&transport.Response{StatusCode: http.StatusNoContent}).OK()).To(BeTrue())
		Expect((&transport.Response{StatusCode: http.StatusTooManyRequests}).OK()).To(BeFalse())
		Expect((*transport.Response)(nil).OK()).To(BeFalse())
	})

	It("closes without a body", func() {
		Expect((&transport.Response{StatusCode: http.StatusBadGateway}).Close()).To(Succeed())
	})
})

var _ = Describe("ReaderChunks", func() {
	It("yields each read as a chunk and then EOF", func() {
		src := &trickleReader{r: strings.NewReader("data: [DONE]\n"), n: 5}
		chunks := transport.NewReaderChunks(src, 0)

		var got []string
		for {
			chunk, err := chunks.Next(context.Background())
			if errors.Is(err, io.EOF) {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			got = append(got, string(chunk))
		}

		Expect(got).To(Equal([]string{"data:", " [DON", "E]\n"}))
		Expect(chunks.Close()).To(Succeed())
		Expect(src.closed).To(BeTrue())
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		chunks := transport.NewReaderChunks(io.NopCloser(strings.NewReader("data")), 0)
		_, err := chunks.Next(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Static", func() {
	It("serves its chunks on success and records requests", func() {
		s := &transport.Static{Chunks: []string{"a", "b"}}
		req := &transport.Request{Model: "m"}

		resp, err := s.Open(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeTrue())

		first, err := resp.Body.Next(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(first)).To(Equal("a"))

		second, err := resp.Body.Next(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(second)).To(Equal("b"))

		_, err = resp.Body.Next(context.Background())
		Expect(err).To(MatchError(io.EOF))

		Expect(s.Requests).To(ConsistOf(req))
	})

	It("answers failures with the error body and no stream", func() {
		s := &transport.Static{StatusCode: http.StatusPaymentRequired, ErrorBody: []byte(`{"error":"AI credits exhausted."}`)}

		resp, err := s.Open(context.Background(), &transport.Request{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeFalse())
		Expect(resp.Body).To(BeNil())
		Expect(string(resp.ErrorBody)).To(ContainSubstring("credits"))
	})
})
