package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/eventstream"
	"github.com/papercomputeco/haven/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var p *nop.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("returns ErrNilTurnEvent for nil turn events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("returns ErrNilDriftEvent for nil drift events", func() {
		Expect(p.PublishDrift(context.Background(), nil)).To(MatchError(eventstream.ErrNilDriftEvent))
	})

	It("succeeds for non-nil events", func() {
		Expect(p.PublishTurn(context.Background(), &eventstream.TurnCompletedEvent{})).To(Succeed())
		Expect(p.PublishDrift(context.Background(), &eventstream.DriftAnalyzedEvent{})).To(Succeed())
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
