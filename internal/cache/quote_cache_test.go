package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/stockdesk/models"
)

func TestQuoteCacheRoundTrip(t *testing.T) {
	c := NewQuoteCache(4, time.Minute)
	c.Set("tsla", &models.Quote{Symbol: "TSLA"})

	q, ok := c.Get("TSLA")
	require.True(t, ok)
	assert.Equal(t, "TSLA", q.Symbol)

	_, ok = c.Get("AAPL")
	assert.False(t, ok)

	assert.Equal(t, Stats{Enabled: true, Size: 1, TTL: "1m0s", Hits: 1, Misses: 1}, c.Stats())
}

func TestQuoteCacheExpires(t *testing.T) {
	c := NewQuoteCache(4, 20*time.Millisecond)
	c.Set("AMD", &models.Quote{Symbol: "AMD"})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("AMD")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestQuoteCacheEvictsOldest(t *testing.T) {
	c := NewQuoteCache(2, time.Minute)
	c.Set("A", &models.Quote{Symbol: "A"})
	c.Set("B", &models.Quote{Symbol: "B"})
	c.Set("C", &models.Quote{Symbol: "C"})

	_, ok := c.Get("A")
	assert.False(t, ok)
	_, ok = c.Get("C")
	assert.True(t, ok)
}

func TestDisabledCache(t *testing.T) {
	c := NewQuoteCache(10, 0)
	assert.Nil(t, c)

	c.Set("A", &models.Quote{Symbol: "A"})
	_, ok := c.Get("A")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
}
