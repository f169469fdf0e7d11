package graph

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type blastRadiusEntry struct {
	key       string
	result    *BlastRadius
	expiresAt time.Time
	element   *list.Element
}

// blastRadiusCache is an insertion-order LRU with per-entry TTL, mirroring
// internal/httpclient's client cache: a container/list for eviction order
// plus a map for O(1) lookup, both behind one mutex.
type blastRadiusCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	ll      *list.List
	entries map[string]*list.Element
}

func newBlastRadiusCache(maxSize int, ttl time.Duration) *blastRadiusCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &blastRadiusCache{
		maxSize: maxSize,
		ttl:     ttl,
		ll:      list.New(),
		entries: make(map[string]*list.Element),
	}
}

func blastRadiusCacheKey(nodeID string, maxDepth int) string {
	return fmt.Sprintf("%s_%d", nodeID, maxDepth)
}

// get returns the cached result if present and unexpired. An expired entry
// is evicted on lookup.
func (c *blastRadiusCache) get(key string) (*BlastRadius, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*blastRadiusEntry)
	if time.Now().After(entry.expiresAt) {
		c.ll.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

// put inserts or replaces a cached result, evicting the oldest entry if the
// cache is at capacity.
func (c *blastRadiusCache) put(key string, result *BlastRadius) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.ll.Remove(elem)
		delete(c.entries, key)
	}

	entry := &blastRadiusEntry{
		key:       key,
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
	elem := c.ll.PushBack(entry)
	entry.element = elem
	c.entries[key] = elem

	for c.ll.Len() > c.maxSize {
		oldest := c.ll.Front()
		if oldest == nil {
			break
		}
		delete(c.entries, oldest.Value.(*blastRadiusEntry).key)
		c.ll.Remove(oldest)
	}
}

func (c *blastRadiusCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
