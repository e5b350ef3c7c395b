package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache[string](time.Minute)

	c.Put("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[int](10 * time.Millisecond)

	c.Put("k", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheBust(t *testing.T) {
	c := NewCache[string](time.Minute)

	c.Put("k", "v")
	c.Bust("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheOverwrite(t *testing.T) {
	c := NewCache[string](time.Minute)

	c.Put("k", "old")
	c.Put("k", "new")

	got, _ := c.Get("k")
	assert.Equal(t, "new", got)
}

func TestCacheCleaner(t *testing.T) {
	c := NewCache[int](10 * time.Millisecond)
	stop := make(chan struct{})
	go c.StartCleaner(5*time.Millisecond, stop)
	defer close(stop)

	c.Put("k", 1)
	time.Sleep(50 * time.Millisecond)

	c.mu.RLock()
	_, present := c.data["k"]
	c.mu.RUnlock()
	assert.False(t, present)
}
