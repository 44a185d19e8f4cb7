package loader

import (
	"sync"

	"github.com/gartstein/empresas/internal/empresas/models"
)

// Cache holds the last full admin load. Filtering runs against it without
// going back to the database.
type Cache struct {
	mu     sync.RWMutex
	rows   []models.Company
	loaded bool
}

func (c *Cache) Replace(rows []models.Company) {
	c.mu.Lock()
	c.rows = rows
	c.loaded = true
	c.mu.Unlock()
}

// Clear empties the cache but keeps it marked as loaded, so a failed load
// shows an empty table rather than triggering another fetch.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.rows = nil
	c.loaded = true
	c.mu.Unlock()
}

// Invalidate forgets the cache entirely; the next reader reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.rows = nil
	c.loaded = false
	c.mu.Unlock()
}

// Snapshot returns the cached rows and whether a load has happened.
// The returned slice must not be modified.
func (c *Cache) Snapshot() ([]models.Company, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rows, c.loaded
}

// Filter returns the cached rows whose name contains q, ignoring case.
// A blank q returns every cached row.
func (c *Cache) Filter(q string) []models.Company {
	rows, _ := c.Snapshot()
	return models.FilterByName(rows, q)
}
