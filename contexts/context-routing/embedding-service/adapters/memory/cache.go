package memory

import lru "github.com/hashicorp/golang-lru/v2"

// LRUCache adapts hashicorp/golang-lru/v2 to the embedding service's Cache
// port, keyed by the caller's precomputed SHA-256 hex digest.
type LRUCache struct {
	cache *lru.Cache[string, []float32]
}

func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = 10000
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(key string) ([]float32, bool) {
	return c.cache.Get(key)
}

func (c *LRUCache) Add(key string, vector []float32) {
	c.cache.Add(key, vector)
}
