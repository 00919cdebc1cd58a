package inmemory_test

import (
	. "github.com/onsi/ginkgo/v2"

	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/storage/inmemory"
	"github.com/papercomputeco/haven/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	Describe("journal entries", func() {
		storagetest.EntryDriverSpecs(func() storage.Driver {
			return inmemory.NewDriver()
		})
	})

	Describe("sessions", func() {
		storagetest.SessionDriverSpecs(func() storage.SessionDriver {
			return inmemory.NewDriver()
		})
	})
})
