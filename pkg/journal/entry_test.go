package journal_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/journal"
)

var _ = Describe("NewEntry", func() {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	It("trims content and stores the time in UTC", func() {
		e, err := journal.NewEntry("ana", "  a long walk helped  \n", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.ID).NotTo(BeEmpty())
		Expect(e.UserID).To(Equal("ana"))
		Expect(e.Content).To(Equal("a long walk helped"))
		Expect(e.CreatedAt.Location()).To(Equal(time.UTC))
		Expect(e.CreatedAt.Equal(now)).To(BeTrue())
	})

	It("rejects blank content", func() {
		_, err := journal.NewEntry("ana", " \t\n", now)
		Expect(err).To(MatchError(journal.ErrEmptyEntry))
	})

	It("counts characters, not bytes, against the limit", func() {
		_, err := journal.NewEntry("ana", strings.Repeat("é", journal.MaxEntryLength), now)
		Expect(err).NotTo(HaveOccurred())

		_, err = journal.NewEntry("ana", strings.Repeat("é", journal.MaxEntryLength+1), now)
		Expect(err).To(MatchError(journal.ErrEntryTooLong))
	})
})

var _ = Describe("Inputs", func() {
	It("formats creation times as RFC 3339", func() {
		e, _ := journal.NewEntry("ana", "text", time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
		Expect(journal.Inputs([]*journal.Entry{e})).To(Equal([]journal.Input{
			{Content: "text", CreatedAt: "2026-03-01T09:30:00Z"},
		}))
	})
})

var _ = Describe("EntryScore", func() {
	It("accepts a float index", func() {
		var s journal.EntryScore
		Expect(json.Unmarshal([]byte(`{"index":2.0,"sentiment":0.25,"emotion":"sad"}`), &s)).To(Succeed())
		Expect(s).To(Equal(journal.EntryScore{Index: 2, Sentiment: 0.25, Emotion: "sad"}))
	})
})

var _ = DescribeTable("Drift.Valid",
	func(d journal.Drift, valid bool) {
		Expect(d.Valid()).To(Equal(valid))
	},
	Entry("improving", journal.DriftImproving, true),
	Entry("declining", journal.DriftDeclining, true),
	Entry("stable", journal.DriftStable, true),
	Entry("volatile", journal.DriftVolatile, true),
	Entry("unknown", journal.Drift("sideways"), false),
)
