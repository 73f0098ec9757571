package condition

import "sync"

// Cache remembers one score per placeId. The first stored score wins so a venue's
// estimate stays stable for the session.
type Cache struct {
	mu     sync.RWMutex
	scores map[string]Score
}

func NewCache() *Cache {
	return &Cache{scores: make(map[string]Score)}
}

func (c *Cache) Get(placeID string) (Score, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scores[placeID]
	return s, ok
}

// GetOrCompute returns the stored score, or stores and returns compute().
func (c *Cache) GetOrCompute(placeID string, compute func() Score) Score {
	if s, ok := c.Get(placeID); ok {
		return s
	}
	s := compute()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.scores[placeID]; ok {
		return existing
	}
	c.scores[placeID] = s
	return s
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}
