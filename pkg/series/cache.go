package series

import (
	"path/filepath"
	"sync"
)

// Cache memoizes parsed metric logs by directory for the lifetime of the
// caller.
type Cache struct {
	mu     sync.Mutex
	tables map[string]*Table
	hits   int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string]*Table, 32)}
}

// Load returns the progress log of dir. With useCached set, a table parsed
// by an earlier call is reused; otherwise the file is parsed again and the
// cached copy replaced.
func (c *Cache) Load(dir, file string, useCached bool) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if useCached {
		if t, ok := c.tables[dir]; ok {
			c.hits++

			return t, nil
		}
	}

	t, err := LoadCSV(filepath.Join(dir, file))
	if err != nil {
		return nil, err
	}

	c.tables[dir] = t

	return t, nil
}

// Hits returns the number of loads served from memory.
func (c *Cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tables)
}
