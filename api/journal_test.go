package api

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/journal"
	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/vector"
)

type entriesResponse struct {
	Count   int              `json:"count"`
	Entries []*journal.Entry `json:"entries"`
}

var _ = Describe("Journal handlers", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	save := func(user, content string) *journal.Entry {
		resp, body := env.do(http.MethodPost, "/v1/journal/entries", user, EntryRequest{Content: content})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		return decode[*journal.Entry](body)
	}

	It("saves and lists the caller's entries oldest first", func() {
		first := save("ana", "slept badly")
		second := save("ana", "long walk helped")
		save("ben", "not ana's")

		_, body := env.do(http.MethodGet, "/v1/journal/entries", "ana", nil)
		got := decode[entriesResponse](body)
		Expect(got.Count).To(Equal(2))
		Expect(got.Entries[0].ID).To(Equal(first.ID))
		Expect(got.Entries[1].ID).To(Equal(second.ID))
	})

	It("rejects blank and oversized entries", func() {
		resp, body := env.do(http.MethodPost, "/v1/journal/entries", "ana", EntryRequest{Content: " "})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decode[llm.ErrorResponse](body).Error).To(Equal(journal.ErrEmptyEntry.Error()))

		long := make([]rune, journal.MaxEntryLength+1)
		for i := range long {
			long[i] = 'a'
		}
		resp, _ = env.do(http.MethodPost, "/v1/journal/entries", "ana", EntryRequest{Content: string(long)})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("deletes only the caller's entries", func() {
		e := save("ana", "private")

		resp, _ := env.do(http.MethodDelete, "/v1/journal/entries/"+e.ID, "ben", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		resp, _ = env.do(http.MethodDelete, "/v1/journal/entries/"+e.ID, "ana", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		_, body := env.do(http.MethodGet, "/v1/journal/entries", "ana", nil)
		Expect(decode[entriesResponse](body).Count).To(Equal(0))
	})

	Describe("POST /v1/journal/analyze", func() {
		It("needs two entries", func() {
			save("ana", "only one")
			resp, body := env.do(http.MethodPost, "/v1/journal/analyze", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[llm.ErrorResponse](body).Error).To(Equal("Write at least 2 entries to analyze drift"))
		})

		It("returns the analysis and the scored entries", func() {
			save("ana", "one")
			save("ana", "two")

			resp, body := env.do(http.MethodPost, "/v1/journal/analyze", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			got := decode[AnalyzeResponse](body)
			Expect(got.Analysis.DriftDirection).To(Equal(journal.DriftStable))
			Expect(got.Entries).To(HaveLen(2))
			Expect(*got.Entries[0].MoodLabel).To(Equal("neutral"))
		})

		It("passes gateway failures through with their status", func() {
			save("ana", "one")
			save("ana", "two")
			env.analyzer.Err = &journal.Error{Status: http.StatusPaymentRequired, Message: "AI credits exhausted."}

			resp, body := env.do(http.MethodPost, "/v1/journal/analyze", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusPaymentRequired))
			Expect(decode[llm.ErrorResponse](body).Error).To(Equal("AI credits exhausted."))
		})
	})

	Describe("POST /v1/analyze-journal", func() {
		It("analyzes entries from the body", func() {
			resp, body := env.do(http.MethodPost, "/v1/analyze-journal", "", AnalyzeEntriesRequest{
				Entries: []journal.Input{{Content: "today", CreatedAt: "2026-01-01T00:00:00Z"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[journal.DriftAnalysis](body).EntryScores).To(HaveLen(1))
		})

		It("rejects an empty list", func() {
			resp, body := env.do(http.MethodPost, "/v1/analyze-journal", "", AnalyzeEntriesRequest{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[llm.ErrorResponse](body).Error).To(Equal("No entries provided"))
		})
	})

	Describe("GET /v1/journal/recall", func() {
		It("returns the caller's closest entries", func() {
			e := save("ana", "the sea was calm")
			Expect(env.vectors.Add(context.Background(), []vector.Document{{ID: e.ID, UserID: "ana"}})).To(Succeed())

			resp, body := env.do(http.MethodGet, "/v1/journal/recall?q=sea&k=3", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(e.ID))
			Expect(string(body)).To(ContainSubstring(`"count":1`))
		})

		It("validates its parameters", func() {
			resp, _ := env.do(http.MethodGet, "/v1/journal/recall", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			resp, _ = env.do(http.MethodGet, "/v1/journal/recall?q=sea&k=zero", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports a failing vector store", func() {
			env.vectors.FailQuery = true
			resp, _ := env.do(http.MethodGet, "/v1/journal/recall?q=sea", "ana", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	It("charts the journal mood", func() {
		save("ana", "one")
		save("ana", "two")
		env.do(http.MethodPost, "/v1/journal/analyze", "ana", nil)

		resp, body := env.do(http.MethodGet, "/v1/journal/mood", "ana", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		got := decode[MoodResponse](body)
		Expect(got.Series).To(HaveLen(2))
		Expect(got.Summary.Mean).To(Equal(0.5))
	})
})
