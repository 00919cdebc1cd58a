package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/haven/pkg/vector"
)

// MockVectorDriver is a test vector driver. Query returns the stored
// documents of the requested user, in insertion order, scored 1.
type MockVectorDriver struct {
	mu        sync.Mutex
	documents []vector.Document

	// FailQuery causes Query to return vector.ErrConnection.
	FailQuery bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int, userID string) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailQuery {
		return nil, vector.ErrConnection
	}

	var results []vector.QueryResult
	for _, d := range m.documents {
		if userID != "" && d.UserID != userID {
			continue
		}
		if topK > 0 && len(results) == topK {
			break
		}
		results = append(results, vector.QueryResult{Document: d, Score: 1})
	}
	return results, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []vector.Document
	for _, d := range m.documents {
		for _, id := range ids {
			if d.ID == id {
				docs = append(docs, d)
			}
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.documents[:0]
	for _, d := range m.documents {
		remove := false
		for _, id := range ids {
			if d.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, d)
		}
	}
	m.documents = kept
	return nil
}

// Documents returns a copy of what has been added.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.Document(nil), m.documents...)
}

func (m *MockVectorDriver) Close() error {
	return nil
}
