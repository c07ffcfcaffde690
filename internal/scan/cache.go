package scan

import (
	"strings"
	"sync"
	"time"

	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/ports"
)

// resultCache keeps finished scan results in memory for a short window so
// an identical request repeated right away does not redo the whole
// traversal. Never persisted; a new process starts cold.
type resultCache struct {
	ttl   time.Duration
	clock ports.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	chats  []domain.Chat
	expiry time.Time
}

func newResultCache(ttl time.Duration, clock ports.Clock) *resultCache {
	return &resultCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(req domain.ScanRequest) string {
	kinds := make([]string, len(req.Kinds))
	for i, kind := range req.Kinds {
		kinds[i] = string(kind)
	}
	return strings.Join(req.UserIDs, ",") + "|" + req.From + "|" + req.To + "|" + strings.Join(kinds, ",")
}

func (c *resultCache) get(key string) ([]domain.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiry.After(c.clock.Now()) {
		delete(c.entries, key)
		return nil, false
	}

	chats := make([]domain.Chat, len(entry.chats))
	copy(chats, entry.chats)
	return chats, true
}

func (c *resultCache) put(key string, chats []domain.Chat) {
	stored := make([]domain.Chat, len(chats))
	copy(stored, chats)

	c.mu.Lock()
	c.entries[key] = cacheEntry{chats: stored, expiry: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}
