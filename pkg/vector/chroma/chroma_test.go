package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	havenlogger "github.com/papercomputeco/haven/pkg/logger"
	"github.com/papercomputeco/haven/pkg/vector"
	"github.com/papercomputeco/haven/pkg/vector/chroma"
)

// fakeChroma records the last body posted to each collection operation.
type fakeChroma struct {
	mu     sync.Mutex
	bodies map[string]map[string]any
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet {
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "haven"})
		return
	}

	op := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.bodies[op] = body
	f.mu.Unlock()

	switch op {
	case "query":
		json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"entry-2", "entry-1"}},
			"distances": [][]float64{{0, 1}},
			"metadatas": [][]map[string]any{{{"user_id": "ana"}, {"user_id": "ana"}}},
		})
	case "get":
		json.NewEncoder(w).Encode(map[string]any{
			"ids":        []string{"entry-1"},
			"metadatas":  []map[string]any{{"user_id": "ana"}},
			"embeddings": [][]float32{{0.1, 0.2}},
		})
	default:
		w.Write([]byte("{}"))
	}
}

func (f *fakeChroma) body(op string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[op]
}

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = havenlogger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, logger)
			Expect(err).To(MatchError(ContainSubstring("chroma URL is required")))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each retry cycle issues a GET and a create POST.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "haven"})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).To(MatchError(ContainSubstring("after 3 attempts")))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{bodies: map[string]map[string]any{}}
			server = httptest.NewServer(fake)

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("upserts documents with the owning user as metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.2}},
			})).To(Succeed())

			body := fake.body("upsert")
			Expect(body["ids"]).To(ConsistOf("entry-1"))
			Expect(body["metadatas"]).To(ConsistOf(HaveKeyWithValue("user_id", "ana")))
		})

		It("filters queries by user and converts distances to scores", func() {
			results, err := driver.Query(ctx, []float32{0.1, 0.2}, 2, "ana")
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.body("query")["where"]).To(HaveKeyWithValue("user_id", "ana"))
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("entry-2"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 0.0001))
			Expect(results[1].Score).To(BeNumerically("~", 0.5, 0.0001))
			Expect(results[1].UserID).To(Equal("ana"))
		})

		It("omits the filter for unscoped queries", func() {
			_, err := driver.Query(ctx, []float32{0.1, 0.2}, 0, "")
			Expect(err).NotTo(HaveOccurred())

			body := fake.body("query")
			Expect(body).NotTo(HaveKey("where"))
			Expect(body["n_results"]).To(BeNumerically("==", vector.DefaultTopK))
		})

		It("gets documents with embeddings", func() {
			docs, err := driver.Get(ctx, []string{"entry-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].UserID).To(Equal("ana"))
			Expect(docs[0].Embedding).To(HaveLen(2))
		})

		It("deletes documents by ID", func() {
			Expect(driver.Delete(ctx, []string{"entry-1"})).To(Succeed())
			Expect(fake.body("delete")["ids"]).To(ConsistOf("entry-1"))
		})
	})
})
