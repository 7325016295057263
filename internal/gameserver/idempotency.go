package gameserver

import (
	"sync"
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

const (
	idempotencyTTL        = 24 * time.Hour
	idempotencyCleanupCap = 1000
)

// idempotencyKey represents a composite key for idempotent requests
type idempotencyKey struct {
	Player         core.Player
	IdempotencyKey string
}

// idempotencyEntry stores the result of a committed submission
type idempotencyEntry struct {
	snapshot  game.Snapshot
	createdAt time.Time
}

// IdempotencyManager caches the result of SubmitMove per player and key, so
// a client retrying a submission it already made does not play a second turn.
type IdempotencyManager struct {
	cache map[idempotencyKey]*idempotencyEntry
	mu    sync.RWMutex
	now   func() time.Time
}

// NewIdempotencyManager creates a new idempotency manager
func NewIdempotencyManager() *IdempotencyManager {
	return &IdempotencyManager{
		cache: make(map[idempotencyKey]*idempotencyEntry),
		now:   time.Now,
	}
}

// Check returns the cached snapshot if the key was already used by p
func (im *IdempotencyManager) Check(p core.Player, key string) (game.Snapshot, bool) {
	if key == "" {
		return game.Snapshot{}, false
	}

	im.mu.RLock()
	defer im.mu.RUnlock()

	entry, exists := im.cache[idempotencyKey{Player: p, IdempotencyKey: key}]
	if !exists || im.now().Sub(entry.createdAt) > idempotencyTTL {
		return game.Snapshot{}, false
	}
	return entry.snapshot, true
}

// Store caches snap for the given player and idempotency key
func (im *IdempotencyManager) Store(p core.Player, key string, snap game.Snapshot) {
	if key == "" {
		return
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	im.cache[idempotencyKey{Player: p, IdempotencyKey: key}] = &idempotencyEntry{
		snapshot:  snap,
		createdAt: im.now(),
	}

	if len(im.cache) > idempotencyCleanupCap {
		im.cleanupOldEntriesLocked()
	}
}

// Clear drops every cached entry
func (im *IdempotencyManager) Clear() {
	im.mu.Lock()
	defer im.mu.Unlock()
	clear(im.cache)
}

// Len returns the number of cached entries
func (im *IdempotencyManager) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.cache)
}

// cleanupOldEntriesLocked removes expired entries from the cache
// Must be called with mu held
func (im *IdempotencyManager) cleanupOldEntriesLocked() {
	cutoff := im.now().Add(-idempotencyTTL)
	for key, entry := range im.cache {
		if entry.createdAt.Before(cutoff) {
			delete(im.cache, key)
		}
	}
}
