package github

import "sync"

// ETag is the opaque version identifier an origin server returns for a
// resource. Two tags are equal iff their bytes are equal.
type ETag string

// Cache maps canonical request URLs to the entity tag of the response most
// recently stored for that URL. The decoded bodies themselves live in typed
// TagTables keyed by tag, so heterogeneous response shapes share one URL
// index without losing type safety.
//
// Lock order on writes: TagTable before Cache, released in reverse. A reader
// that resolves a URL to a tag must therefore always find the tagged value,
// unless a concurrent refresh evicted it — callers treat that as a miss.
type Cache struct {
	mu   sync.RWMutex
	tags map[string]ETag
}

// NewCache returns an empty URL-to-tag index.
func NewCache() *Cache {
	return &Cache{tags: make(map[string]ETag)}
}

// Tag returns the entity tag recorded for url, if any.
func (c *Cache) Tag(url string) (ETag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tag, ok := c.tags[url]
	return tag, ok
}

// Len reports how many URLs currently have a recorded tag.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tags)
}

// TagTable stores decoded response bodies of a single shape, keyed by entity
// tag. One table exists per response type (issue, comment list, gist, issue
// list); all of them share the owning Client's URL index.
type TagTable[T any] struct {
	mu    sync.RWMutex
	byTag map[ETag]T
}

// NewTagTable returns an empty table.
func NewTagTable[T any]() *TagTable[T] {
	return &TagTable[T]{byTag: make(map[ETag]T)}
}

// Get returns the value stored under tag.
func (t *TagTable[T]) Get(tag ETag) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.byTag[tag]
	return v, ok
}

// Len reports how many tagged values the table holds.
func (t *TagTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byTag)
}

// store records value under tag and points cache[url] at it. If the URL had
// a previous tag, that entry is dropped first so the table stays bounded by
// the number of URLs, not the number of revisions seen. The whole update is
// atomic with respect to readers: the new value is inserted before the URL
// index is repointed.
func (t *TagTable[T]) store(cache *Cache, url string, prev ETag, hadPrev bool, tag ETag, value T) {
	t.mu.Lock()
	if hadPrev {
		delete(t.byTag, prev)
	}
	t.byTag[tag] = value

	cache.mu.Lock()
	cache.tags[url] = tag
	cache.mu.Unlock()
	t.mu.Unlock()
}
