package vectorstore

import (
	"context"
	"testing"
)

func TestPointID_DeterministicAcrossCalls(t *testing.T) {
	a := PointID("fingerprint-1")
	b := PointID("fingerprint-1")
	if a != b {
		t.Errorf("expected the same fingerprint to produce the same point id, got %s vs %s", a, b)
	}
	if PointID("fingerprint-2") == a {
		t.Error("expected different fingerprints to produce different point ids")
	}
}

func TestMemoryStore_UpsertAndSearch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	pts := []Point{
		{ID: PointID("fp-a"), FilePath: "a.go", Vector: []float32{1, 0, 0}},
		{ID: PointID("fp-b"), FilePath: "b.go", Vector: []float32{0, 1, 0}},
	}
	if err := s.UpsertPoints(ctx, pts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].FilePath != "a.go" {
		t.Errorf("expected the most similar point to be a.go, got %+v", results)
	}
}

func TestMemoryStore_UpsertRejectsMissingID(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpsertPoints(context.Background(), []Point{{FilePath: "a.go"}})
	if err == nil {
		t.Error("expected an error for a point missing its id")
	}
}

func TestMemoryStore_DeletePointsByFilePath(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.UpsertPoints(ctx, []Point{
		{ID: PointID("fp-a"), FilePath: "a.go", Vector: []float32{1, 0}},
		{ID: PointID("fp-b"), FilePath: "b.go", Vector: []float32{0, 1}},
	})

	if err := s.DeletePointsByFilePath(ctx, "a.go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := s.Search(ctx, []float32{1, 0}, 10)
	for _, r := range results {
		if r.FilePath == "a.go" {
			t.Error("expected a.go's points to be deleted")
		}
	}
	if len(results) != 1 {
		t.Errorf("expected 1 remaining point, got %d", len(results))
	}
}

func TestMemoryStore_DeletePointsByMultipleFilePaths(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.UpsertPoints(ctx, []Point{
		{ID: PointID("fp-a"), FilePath: "a.go", Vector: []float32{1, 0}},
		{ID: PointID("fp-b"), FilePath: "b.go", Vector: []float32{0, 1}},
		{ID: PointID("fp-c"), FilePath: "c.go", Vector: []float32{1, 1}},
	})

	if err := s.DeletePointsByMultipleFilePaths(ctx, []string{"a.go", "b.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := s.Search(ctx, []float32{1, 1}, 10)
	if len(results) != 1 || results[0].FilePath != "c.go" {
		t.Errorf("expected only c.go to remain, got %+v", results)
	}
}

func TestMemoryStore_ClearCollection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.UpsertPoints(ctx, []Point{{ID: PointID("fp-a"), FilePath: "a.go", Vector: []float32{1}}})

	if err := s.ClearCollection(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results, _ := s.Search(ctx, []float32{1}, 10)
	if len(results) != 0 {
		t.Errorf("expected an empty store after ClearCollection, got %d points", len(results))
	}
}
