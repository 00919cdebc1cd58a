package mood_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/mood"
)

var _ = Describe("LabelFor", func() {
	DescribeTable("buckets scores",
		func(score float64, want mood.Label) {
			Expect(mood.LabelFor(score)).To(Equal(want))
		},
		Entry("top", 1.0, mood.LabelPositive),
		Entry("positive boundary", 0.7, mood.LabelPositive),
		Entry("just under positive", 0.69, mood.LabelNeutral),
		Entry("neutral boundary", 0.4, mood.LabelNeutral),
		Entry("just under neutral", 0.39, mood.LabelLow),
		Entry("bottom", 0.0, mood.LabelLow),
	)
})

var _ = Describe("Validate", func() {
	It("accepts the closed unit interval", func() {
		Expect(mood.Validate(0)).To(Succeed())
		Expect(mood.Validate(1)).To(Succeed())
	})

	It("rejects values outside it", func() {
		Expect(mood.Validate(-0.1)).To(HaveOccurred())
		Expect(mood.Validate(1.1)).To(HaveOccurred())
		Expect(mood.Validate(math.NaN())).To(HaveOccurred())
	})
})

var _ = Describe("Series", func() {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	It("labels a new point with its clock time", func() {
		Expect(mood.NewPoint(at, 0.6).Label).To(Equal("09:30"))
		Expect(mood.BaselinePoint(at).Label).To(Equal(mood.StartLabel))
	})

	It("reports the baseline when empty", func() {
		var s mood.Series
		Expect(s.Latest()).To(Equal(mood.Baseline))
		Expect(s.Summary()).To(Equal(mood.Summary{
			Latest: 0.5, Label: mood.LabelNeutral, Min: 0.5, Max: 0.5, Mean: 0.5,
		}))
	})

	It("summarizes points", func() {
		s := mood.Series{
			mood.BaselinePoint(at),
			mood.NewPoint(at.Add(time.Minute), 0.2),
			mood.NewPoint(at.Add(2*time.Minute), 0.8),
		}

		sum := s.Summary()
		Expect(sum.Latest).To(Equal(0.8))
		Expect(sum.Label).To(Equal(mood.LabelPositive))
		Expect(sum.Min).To(Equal(0.2))
		Expect(sum.Max).To(Equal(0.8))
		Expect(sum.Mean).To(BeNumerically("~", 0.5, 1e-9))
		Expect(sum.Points).To(Equal(3))
	})
})
