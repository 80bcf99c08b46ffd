package store

import (
	"sync"
	"time"
)

type cacheItem struct {
	atime time.Time
	data  []byte
}

type request struct {
	wg  sync.WaitGroup
	val []byte
	err error
}

// flightGroup deduplicates concurrent loads of the same key.
type flightGroup struct {
	sync.Mutex
	rs map[string]*request
}

func (g *flightGroup) execute(key string, fn func() ([]byte, error)) ([]byte, error) {
	g.Lock()
	if g.rs == nil {
		g.rs = make(map[string]*request)
	}
	if c, ok := g.rs[key]; ok {
		g.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}
	c := new(request)
	c.wg.Add(1)
	g.rs[key] = c
	g.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.Lock()
	delete(g.rs, key)
	g.Unlock()
	return c.val, c.err
}

type cached struct {
	os       Store
	flights  flightGroup
	mu       sync.Mutex
	capacity int64
	used     int64
	items    map[string]cacheItem
}

// NewCached wraps s with a read-through value cache of the given capacity in
// MiB. Writes go through to s and refresh the cache; deletes invalidate it.
func NewCached(s Store, capacityMiB int64) Store {
	return &cached{
		os:       s,
		capacity: capacityMiB << 20,
		items:    make(map[string]cacheItem),
	}
}

func (c *cached) cache(key string, data []byte) {
	if c.capacity == 0 || int64(len(data)) > c.capacity {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.items[key]; ok {
		c.used -= int64(len(old.data))
	}
	c.items[key] = cacheItem{time.Now(), data}
	c.used += int64(len(data))
	if c.used > c.capacity {
		c.cleanup()
	}
}

// locked
func (c *cached) cleanup() {
	var cnt int
	var lastKey string
	var lastValue cacheItem
	// for each two random keys, compare the access time, evict the older one
	for k, v := range c.items {
		if cnt == 0 || lastValue.atime.After(v.atime) {
			lastKey = k
			lastValue = v
		}
		cnt++
		if cnt > 1 {
			logger.Debugf("evict %s from cache, age: %s", lastKey, time.Since(lastValue.atime))
			c.used -= int64(len(lastValue.data))
			delete(c.items, lastKey)
			cnt = 0
			if c.used < c.capacity {
				break
			}
		}
	}
}

func (c *cached) load(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.items[key] = cacheItem{time.Now(), item.data}
	out := make([]byte, len(item.data))
	copy(out, item.data)
	return out, true
}

func (c *cached) invalidate(key string) {
	c.mu.Lock()
	if item, ok := c.items[key]; ok {
		c.used -= int64(len(item.data))
		delete(c.items, key)
	}
	c.mu.Unlock()
}

func (c *cached) Get(key string) ([]byte, error) {
	if data, ok := c.load(key); ok {
		return data, nil
	}
	data, err := c.flights.execute(key, func() ([]byte, error) {
		data, err := c.os.Get(key)
		if err == nil {
			c.cache(key, data)
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (c *cached) Put(key string, value []byte) error {
	if err := c.os.Put(key, value); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.cache(key, stored)
	return nil
}

func (c *cached) Delete(key string) error {
	c.invalidate(key)
	return c.os.Delete(key)
}

func (c *cached) Contains(key string) (bool, error) {
	if _, ok := c.load(key); ok {
		return true, nil
	}
	return c.os.Contains(key)
}

func (c *cached) List(prefix string) ([]string, error) {
	return c.os.List(prefix)
}

func (c *cached) Info() Info {
	return c.os.Info()
}
