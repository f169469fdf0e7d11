// Package vectorstore defines the vector-store collaborator the scanner
// pipeline upserts embedded code segments into, plus a minimal in-memory
// adapter so the pipeline is exercisable without an external vector
// database. Point ids are deterministic: UUIDv5 over the segment's
// fingerprint, so re-indexing identical content reproduces the same id.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// codeBlockNamespace is the fixed namespace UUID point ids are derived
// from (spec's QDRANT_CODE_BLOCK_NAMESPACE). It is itself a UUIDv5 over a
// constant string so it is stable across processes without needing a
// literal UUID baked in.
var codeBlockNamespace = uuid.NewSHA1(uuid.Nil, []byte("codeweave.code-block"))

// PointID derives the deterministic point id for a segment fingerprint.
func PointID(fingerprint string) string {
	return uuid.NewSHA1(codeBlockNamespace, []byte(fingerprint)).String()
}

// Point is a single embedded code segment.
type Point struct {
	ID       string
	FilePath string
	Vector   []float32
	Payload  map[string]any
}

// SearchResult pairs a point with its similarity score.
type SearchResult struct {
	Point
	Score float32
}

// Store is the collaborator the scanner pipeline writes embedded segments
// to and queries at retrieval time.
type Store interface {
	Initialize(ctx context.Context) error
	UpsertPoints(ctx context.Context, points []Point) error
	DeletePointsByFilePath(ctx context.Context, path string) error
	DeletePointsByMultipleFilePaths(ctx context.Context, paths []string) error
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)
	ClearCollection(ctx context.Context) error
}

// MemoryStore is an in-process Store backed by a map, for tests and for
// running the pipeline without a real vector database.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) UpsertPoints(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("vectorstore: point missing id for file %s", p.FilePath)
		}
		m.points[p.ID] = p
	}
	return nil
}

func (m *MemoryStore) DeletePointsByFilePath(ctx context.Context, path string) error {
	return m.DeletePointsByMultipleFilePaths(ctx, []string{path})
}

func (m *MemoryStore) DeletePointsByMultipleFilePaths(ctx context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	for id, pt := range m.points {
		if want[pt.FilePath] {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.points))
	for _, pt := range m.points {
		results = append(results, SearchResult{Point: pt, Score: cosineSimilarity(vector, pt.Vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) ClearCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[string]Point)
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
