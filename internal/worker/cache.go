package worker

import "sync"

// MemoryCacheStorage is an in-process CacheStorage binding. The browser owns
// the real cache storage; this implementation backs the runtime in tests and
// in non-browser hosts.
type MemoryCacheStorage struct {
	mu     sync.Mutex
	caches map[string]*memoryCache
}

func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{caches: make(map[string]*memoryCache)}
}

func (s *MemoryCacheStorage) Open(name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &memoryCache{entries: make(map[string]CachedResponse)}
		s.caches[name] = c
	}
	return c, nil
}

func (s *MemoryCacheStorage) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	return names, nil
}

func (s *MemoryCacheStorage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, name)
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]CachedResponse
}

func (c *memoryCache) Put(url string, resp CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = resp
	return nil
}

func (c *memoryCache) Match(url string) (CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[url]
	return resp, ok
}
