package cache

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dyike/stockdesk/models"
)

const defaultSize = 256

// QuoteCache keeps recent quotes per symbol for a short TTL so a busy
// dashboard does not hit the quote provider on every refresh.
type QuoteCache struct {
	lru    *expirable.LRU[string, *models.Quote]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewQuoteCache returns a cache holding up to size quotes for ttl each.
// A non-positive ttl returns nil, which behaves as an always-empty cache.
func NewQuoteCache(size int, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		return nil
	}
	if size <= 0 {
		size = defaultSize
	}
	return &QuoteCache{
		lru: expirable.NewLRU[string, *models.Quote](size, nil, ttl),
		ttl: ttl,
	}
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (c *QuoteCache) Get(symbol string) (*models.Quote, bool) {
	if c == nil {
		return nil, false
	}
	q, ok := c.lru.Get(key(symbol))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return q, ok
}

func (c *QuoteCache) Set(symbol string, q *models.Quote) {
	if c == nil || q == nil {
		return
	}
	c.lru.Add(key(symbol), q)
}

// Stats 缓存统计信息
type Stats struct {
	Enabled bool   `json:"enabled"`
	Size    int    `json:"size"`
	TTL     string `json:"ttl,omitempty"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// Stats 获取缓存统计信息
func (c *QuoteCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Enabled: true,
		Size:    c.lru.Len(),
		TTL:     c.ttl.String(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
