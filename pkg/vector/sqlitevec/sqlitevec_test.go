package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/haven/pkg/vector"
	"github.com/papercomputeco/haven/pkg/vector/sqlitevec"
)

func newDriver() *sqlitevec.Driver {
	driver, err := sqlitevec.New(sqlitevec.Config{
		DBPath:     ":memory:",
		Dimensions: 4,
	}, nil)
	Expect(err).NotTo(HaveOccurred())
	return driver
}

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("New", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.New(sqlitevec.Config{DBPath: ""}, nil)
			Expect(err).To(MatchError(ContainSubstring("database path is required")))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.New(sqlitevec.Config{DBPath: ":memory:"}, nil)
			Expect(err).To(HaveOccurred())
		})

		It("should create a driver with an in-memory database", func() {
			driver := newDriver()
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			Expect(driver.Add(ctx, []vector.Document{})).To(Succeed())
		})

		It("should add a document with its owner", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
			})).To(Succeed())

			retrieved, err := driver.Get(ctx, []string{"entry-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved).To(HaveLen(1))
			Expect(retrieved[0].ID).To(Equal("entry-1"))
			Expect(retrieved[0].UserID).To(Equal("ana"))
		})

		It("should replace an existing document", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.9, 0.9, 0.9, 0.9}},
			})).To(Succeed())

			retrieved, err := driver.Get(ctx, []string{"entry-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved).To(HaveLen(1))
			Expect(retrieved[0].Embedding[0]).To(BeNumerically("~", 0.9, 0.001))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "entry-2", UserID: "ana", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "entry-3", UserID: "ben", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
				{ID: "entry-4", UserID: "ana", Embedding: []float32{0.4, 0.4, 0.4, 0.4}},
				{ID: "entry-5", UserID: "ben", Embedding: []float32{0.5, 0.5, 0.5, 0.5}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should return the closest documents across users", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 3, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("entry-3"))
		})

		It("should scope results to one user", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 10, "ana")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.UserID).To(Equal("ana"))
			}
		})

		It("should default topK when zero or negative", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 0, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(vector.DefaultTopK))
		})

		It("should return similarity scores in descending order", func() {
			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 5, "")
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})
	})

	Describe("Get", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
				{ID: "entry-2", UserID: "ana", Embedding: []float32{0.5, 0.6, 0.7, 0.8}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should return nil for empty IDs", func() {
			docs, err := driver.Get(ctx, []string{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeNil())
		})

		It("should return embeddings with retrieved documents", func() {
			docs, err := driver.Get(ctx, []string{"entry-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(HaveLen(4))
			Expect(docs[0].Embedding[3]).To(BeNumerically("~", 0.4, 0.001))
		})

		It("should skip non-existent IDs", func() {
			docs, err := driver.Get(ctx, []string{"entry-1", "nonexistent"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})
	})

	Describe("Delete", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newDriver()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "entry-1", UserID: "ana", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "entry-2", UserID: "ana", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "entry-3", UserID: "ana", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty IDs", func() {
			Expect(driver.Delete(ctx, []string{})).To(Succeed())
		})

		It("should not error when deleting non-existent IDs", func() {
			Expect(driver.Delete(ctx, []string{"nonexistent"})).To(Succeed())
		})

		It("should remove documents from query results after deletion", func() {
			Expect(driver.Delete(ctx, []string{"entry-3"})).To(Succeed())

			results, err := driver.Query(ctx, []float32{0.3, 0.3, 0.3, 0.3}, 10, "ana")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, result := range results {
				Expect(result.ID).NotTo(Equal("entry-3"))
			}
		})
	})
})
