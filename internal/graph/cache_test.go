package graph

import (
	"testing"
	"time"
)

func TestBlastRadiusCache_PutGet(t *testing.T) {
	c := newBlastRadiusCache(10, time.Hour)
	key := blastRadiusCacheKey("node1", 3)

	if _, ok := c.get(key); ok {
		t.Fatal("expected cache miss before put")
	}

	want := &BlastRadius{RiskScore: 42}
	c.put(key, want)

	got, ok := c.get(key)
	if !ok {
		t.Fatal("expected cache hit after put")
	}
	if got.RiskScore != 42 {
		t.Errorf("expected risk score 42, got %v", got.RiskScore)
	}
}

func TestBlastRadiusCache_KeyIncludesDepth(t *testing.T) {
	c := newBlastRadiusCache(10, time.Hour)
	c.put(blastRadiusCacheKey("node1", 1), &BlastRadius{RiskScore: 1})
	c.put(blastRadiusCacheKey("node1", 2), &BlastRadius{RiskScore: 2})

	got1, _ := c.get(blastRadiusCacheKey("node1", 1))
	got2, _ := c.get(blastRadiusCacheKey("node1", 2))
	if got1.RiskScore == got2.RiskScore {
		t.Error("expected different depths to be cached independently")
	}
}

func TestBlastRadiusCache_ExpiresAfterTTL(t *testing.T) {
	c := newBlastRadiusCache(10, 10*time.Millisecond)
	key := blastRadiusCacheKey("node1", 1)
	c.put(key, &BlastRadius{RiskScore: 1})

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.get(key); ok {
		t.Error("expected entry to have expired")
	}
}

func TestBlastRadiusCache_EvictsOldestOnOverflow(t *testing.T) {
	c := newBlastRadiusCache(2, time.Hour)
	c.put("a", &BlastRadius{RiskScore: 1})
	c.put("b", &BlastRadius{RiskScore: 2})
	c.put("c", &BlastRadius{RiskScore: 3})

	if c.size() != 2 {
		t.Fatalf("expected cache capped at 2 entries, got %d", c.size())
	}
	if _, ok := c.get("a"); ok {
		t.Error("expected oldest entry 'a' to be evicted")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("expected newest entry 'c' to survive")
	}
}
