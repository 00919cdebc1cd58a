package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/storage"
	"github.com/papercomputeco/haven/pkg/storage/sqlite"
	"github.com/papercomputeco/haven/pkg/storage/storagetest"
)

func newMemoryDriver() *sqlite.Driver {
	driver, err := sqlite.NewDriver(context.Background(), ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return driver
}

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "haven.db")

			s, err := sqlite.NewDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("migrates an existing database without error", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "haven.db")

			first, err := sqlite.NewDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second, err := sqlite.NewDriver(context.Background(), dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Close()).To(Succeed())
		})
	})

	Describe("journal entries", func() {
		storagetest.EntryDriverSpecs(func() storage.Driver {
			return newMemoryDriver()
		})
	})

	Describe("sessions", func() {
		storagetest.SessionDriverSpecs(func() storage.SessionDriver {
			return newMemoryDriver()
		})
	})
})
