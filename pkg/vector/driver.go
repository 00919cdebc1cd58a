// Package vector provides interfaces and implementations for storing journal
// entry embeddings and running similarity search over them.
package vector

import "context"

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 5

// Document is one embedded journal entry.
type Document struct {
	// ID is the journal entry ID the embedding belongs to.
	ID string

	// UserID owns the entry. Queries are scoped to it.
	UserID string

	// Embedding is the vector representation of the entry content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	// A non-empty userID restricts results to that user's documents.
	Query(ctx context.Context, embedding []float32, topK int, userID string) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}

// Similarity converts a distance (lower is closer) into a score in (0, 1].
func Similarity(distance float64) float32 {
	if distance < 0 {
		distance = 0
	}
	return float32(1.0 / (1.0 + distance))
}
