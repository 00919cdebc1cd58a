package vectorutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/vector/sqlitevec"
)

var _ = Describe("NewVectorDriver", func() {
	It("builds a sqlite-vec driver from the storage path", func() {
		driver, err := NewVectorDriver(context.Background(), &NewVectorDriverOpts{
			ProviderType: ProviderSQLite,
			SQLitePath:   ":memory:",
			Dimensions:   4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
		Expect(driver.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := NewVectorDriver(context.Background(), &NewVectorDriverOpts{ProviderType: "pinecone"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})

var _ = DescribeTable("splitQdrantTarget",
	func(target, host string, port int, tls bool) {
		h, p, t, err := splitQdrantTarget(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(Equal(host))
		Expect(p).To(Equal(port))
		Expect(t).To(Equal(tls))
	},
	Entry("bare host", "localhost", "localhost", 0, false),
	Entry("host and port", "qdrant:6334", "qdrant", 6334, false),
	Entry("https URL", "https://cloud.qdrant.io:6334", "cloud.qdrant.io", 6334, true),
)
