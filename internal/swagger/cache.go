package swagger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openbank/apitester/internal/transport"
)

// Cache fetches and memoizes description documents, keyed by version and
// filter params. It is shared process-wide state; concurrent misses for
// the same key may fetch twice, which is accepted.
type Cache struct {
	api *transport.Client
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	doc       *Document
	fetchedAt time.Time
}

// NewCache creates a cache over the given transport with a fixed TTL.
func NewCache(api *transport.Client, ttl time.Duration) *Cache {
	return &Cache{
		api:     api,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// descriptionPath builds the version-scoped description endpoint path.
// apiVersion MUST follow the <STANDARD>v<VERSION> form, e.g. OBPv4.1.0.
func descriptionPath(apiVersion, params string) string {
	return fmt.Sprintf("/resource-docs/%s/swagger?%s", apiVersion, params)
}

// Description returns the parsed description for (apiVersion, params),
// fetching it through the transport on a miss or an expired entry. The
// caller must not retry on failure; errors surface as user messages.
func (c *Cache) Description(ctx context.Context, apiVersion, params string) (*Document, error) {
	key := descriptionPath(apiVersion, params)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.doc, nil
	}

	resp, err := c.api.Call(ctx, transport.MethodGet, c.api.URL(key), nil)
	if err != nil {
		return nil, err
	}
	doc, err := Parse([]byte(resp.Text))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{doc: doc, fetchedAt: c.now()}
	c.mu.Unlock()
	return doc, nil
}

// Invalidate drops the cached entry for (apiVersion, params) so the next
// read fetches fresh. Used when a configuration is newly bound.
func (c *Cache) Invalidate(apiVersion, params string) {
	key := descriptionPath(apiVersion, params)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
