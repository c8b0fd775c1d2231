package search

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pricewatch/pkg/models"
)

// Cache keeps recent result sets so a subscribe request can refer back to
// the exact listings a user was shown.
type Cache struct {
	TTL        time.Duration
	MaxEntries int

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	query    string
	listings []models.Listing
	expires  time.Time
}

func NewCache(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		TTL:        ttl,
		MaxEntries: maxEntries,
		entries:    make(map[string]entry),
		now:        time.Now,
	}
}

// Put stores listings and returns the id they can be fetched with.
func (c *Cache) Put(query string, listings []models.Listing) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictLocked(now)
	if c.MaxEntries > 0 && len(c.entries) >= c.MaxEntries {
		c.dropOldestLocked()
	}

	id := uuid.NewString()
	frozen := make([]models.Listing, len(listings))
	copy(frozen, listings)
	c.entries[id] = entry{query: query, listings: frozen, expires: now.Add(c.TTL)}
	return id
}

// Get returns the query and listings stored under id.
func (c *Cache) Get(id string) (string, []models.Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return "", nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return "", nil, false
	}
	out := make([]models.Listing, len(e.listings))
	copy(out, e.listings)
	return e.query, out, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked(now time.Time) {
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
}

func (c *Cache) dropOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range c.entries {
		if oldestID == "" || e.expires.Before(oldest) {
			oldestID, oldest = id, e.expires
		}
	}
	delete(c.entries, oldestID)
}
