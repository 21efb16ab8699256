// Package cache provides a thread-safe generic map and the rendered preview cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// GetOrSet returns the value stored under key, creating it with create when absent.
// create runs at most once per key while the entry lives.
func (c *Cache[K, V]) GetOrSet(key K, create func() V) V {
	c.mu.RLock()
	val, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return val
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if val, ok := c.items[key]; ok {
		return val
	}
	val = create()
	c.items[key] = val
	return val
}

// RenderedPreview is a draft preview rendered in one output format.
type RenderedPreview struct {
	Body []byte
}

var renderedPreviewCache = NewCache[string, *RenderedPreview]()

func GetRenderedPreview(contentHash, format string) (*RenderedPreview, bool) {
	return renderedPreviewCache.Get(contentHash + ":" + format)
}

func SetRenderedPreview(contentHash, format string, body []byte) {
	renderedPreviewCache.Set(contentHash+":"+format, &RenderedPreview{Body: body})
}
