package bm25

import "testing"

func TestMemoryIndex_SearchRanksExactMatchHigher(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{
		{ID: "a", FilePath: "a.go", Content: "func parseRequest handles http request parsing"},
		{ID: "b", FilePath: "b.go", Content: "func renderTemplate writes html output"},
	})

	matches, err := idx.Search("parse request", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) == 0 || matches[0].ID != "a" {
		t.Errorf("expected document a to rank first, got %+v", matches)
	}
}

func TestMemoryIndex_DeleteByFilePath(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{
		{ID: "a", FilePath: "a.go", Content: "func parseRequest handles request"},
	})
	if err := idx.DeleteByFilePath("a.go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, _ := idx.Search("parse", 10)
	if len(matches) != 0 {
		t.Errorf("expected no matches after deletion, got %+v", matches)
	}
}

func TestMemoryIndex_DeleteByMultipleFilePaths(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{
		{ID: "a", FilePath: "a.go", Content: "alpha term"},
		{ID: "b", FilePath: "b.go", Content: "alpha term again"},
		{ID: "c", FilePath: "c.go", Content: "alpha term present"},
	})
	if err := idx.DeleteByMultipleFilePaths([]string{"a.go", "b.go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, _ := idx.Search("alpha", 10)
	if len(matches) != 1 || matches[0].ID != "c" {
		t.Errorf("expected only document c to remain, got %+v", matches)
	}
}

func TestMemoryIndex_AddDocumentsReplacesExisting(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{{ID: "a", FilePath: "a.go", Content: "original content"}})
	idx.AddDocuments([]Document{{ID: "a", FilePath: "a.go", Content: "updated wording"}})

	if matches, _ := idx.Search("original", 10); len(matches) != 0 {
		t.Errorf("expected the old content to no longer match, got %+v", matches)
	}
	if matches, _ := idx.Search("updated", 10); len(matches) != 1 {
		t.Errorf("expected the new content to match, got %+v", matches)
	}
}

func TestMemoryIndex_SearchEmptyQueryReturnsNoMatches(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{{ID: "a", FilePath: "a.go", Content: "something"}})
	matches, err := idx.Search("   ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches for an empty query, got %+v", matches)
	}
}

func TestMemoryIndex_Clear(t *testing.T) {
	idx := NewMemoryIndex()
	idx.AddDocuments([]Document{{ID: "a", FilePath: "a.go", Content: "something searchable"}})
	if err := idx.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, _ := idx.Search("something", 10)
	if len(matches) != 0 {
		t.Errorf("expected an empty index after Clear, got %+v", matches)
	}
}
