package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResultCache(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c := NewResultCache(100, 5*time.Minute)
		assert.Equal(t, 100, c.maxSize)
		assert.Equal(t, 5*time.Minute, c.ttl)
		assert.True(t, c.enabled)
	})

	t.Run("non-positive maxSize uses default", func(t *testing.T) {
		assert.Equal(t, 1000, NewResultCache(0, time.Minute).maxSize)
		assert.Equal(t, 1000, NewResultCache(-10, time.Minute).maxSize)
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("instances", "<A>", false), Key("instances", "<A>", false))
	assert.NotEqual(t, Key("instances", "<A>", false), Key("instances", "<A>", true))
	assert.NotEqual(t, Key("instances", "<A>", false), Key("subclasses", "<A>", false))
	assert.NotEqual(t, Key("instances", "<A>", false), Key("instances", "<B>", false))
}

func TestResultCache_GetPut(t *testing.T) {
	c := NewResultCache(10, 0)

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Put(1, []string{"a"})
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	c.Put(1, []string{"b"})
	v, _ = c.Get(1)
	assert.Equal(t, []string{"b"}, v)
	assert.Equal(t, 1, c.Len())

	c.Remove(1)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestResultCache_LRUEviction(t *testing.T) {
	c := NewResultCache(2, 0)
	c.Put(1, "one")
	c.Put(2, "two")

	_, _ = c.Get(1) // 2 is now least recently used
	c.Put(3, "three")

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestResultCache_TTL(t *testing.T) {
	c := NewResultCache(10, 10*time.Millisecond)
	c.Put(1, "v")

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_ClearAndDisable(t *testing.T) {
	c := NewResultCache(10, 0)
	c.Put(1, "v")
	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.SetEnabled(false)
	c.Put(2, "v")
	_, ok := c.Get(2)
	assert.False(t, ok)

	c.SetEnabled(true)
	c.Put(2, "v")
	_, ok = c.Get(2)
	assert.True(t, ok)
}

func TestResultCache_Stats(t *testing.T) {
	c := NewResultCache(10, 0)
	c.Put(1, "v")
	c.Get(1)
	c.Get(2)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRate)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestResultCache_Concurrent(t *testing.T) {
	c := NewResultCache(50, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := uint64(base*100 + j)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
