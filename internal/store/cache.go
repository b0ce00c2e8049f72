// Package store holds per-book detection state: the result cache keyed by
// (book, page, settings) and the manual override layer that sits on top of
// automatic results without ever mutating them.
package store

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/panelworks/panel-detect/internal/detect"
)

// ResultCache memoizes page results. The key includes the settings hash,
// so changing any tunable transparently invalidates affected entries
// while results computed under other settings stay warm.
type ResultCache struct {
	c *gocache.Cache
}

// NewResultCache returns a cache whose entries expire after ttl and are
// purged every cleanup interval. A ttl of zero keeps entries until
// explicit invalidation.
func NewResultCache(ttl, cleanup time.Duration) *ResultCache {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	return &ResultCache{c: gocache.New(ttl, cleanup)}
}

func cacheKey(bookHash string, page int, settingsHash string) string {
	return fmt.Sprintf("%s:%d:%s", bookHash, page, settingsHash)
}

// Get returns the cached result for (book, page, settings), if any.
func (rc *ResultCache) Get(bookHash string, page int, settingsHash string) (detect.PageResult, bool) {
	v, ok := rc.c.Get(cacheKey(bookHash, page, settingsHash))
	if !ok {
		return detect.PageResult{}, false
	}
	return v.(detect.PageResult), true
}

// Put stores a result. Results are immutable values; callers must not
// modify a result after handing it to the cache.
func (rc *ResultCache) Put(bookHash string, res detect.PageResult) {
	rc.c.SetDefault(cacheKey(bookHash, res.Index, res.SettingsHash), res)
}

// InvalidatePage drops the cached result for one (page, settings) pair.
func (rc *ResultCache) InvalidatePage(bookHash string, page int, settingsHash string) {
	rc.c.Delete(cacheKey(bookHash, page, settingsHash))
}

// Flush empties the cache.
func (rc *ResultCache) Flush() {
	rc.c.Flush()
}

// Len returns the number of live entries, counting expired but not yet
// purged items.
func (rc *ResultCache) Len() int {
	return rc.c.ItemCount()
}
