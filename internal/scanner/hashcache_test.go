package scanner

import "testing"

func TestMemoryHashCache_GetMissesOnUnknownPath(t *testing.T) {
	c := NewMemoryHashCache()
	if _, ok := c.GetHash("a.go"); ok {
		t.Error("expected a miss for a path never stored")
	}
}

func TestMemoryHashCache_UpdateThenGet(t *testing.T) {
	c := NewMemoryHashCache()
	c.UpdateHash("a.go", "hash1")

	got, ok := c.GetHash("a.go")
	if !ok || got != "hash1" {
		t.Errorf("expected hash1, got %q (ok=%v)", got, ok)
	}
}

func TestMemoryHashCache_DeleteHash(t *testing.T) {
	c := NewMemoryHashCache()
	c.UpdateHash("a.go", "hash1")
	c.DeleteHash("a.go")

	if _, ok := c.GetHash("a.go"); ok {
		t.Error("expected a miss after deletion")
	}
}

func TestMemoryHashCache_GetAllHashesIsASnapshot(t *testing.T) {
	c := NewMemoryHashCache()
	c.UpdateHash("a.go", "hash1")

	all := c.GetAllHashes()
	all["a.go"] = "mutated"

	got, _ := c.GetHash("a.go")
	if got != "hash1" {
		t.Error("expected mutating the snapshot returned by GetAllHashes to not affect the cache")
	}
}
