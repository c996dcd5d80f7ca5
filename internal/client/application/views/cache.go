package views

import (
	"sync"
	"time"
)

// Cache holds the latest value a scheduler delivered. Writes come from the
// event loop; reads may come from anywhere. Replace never merges.
type Cache[T any] struct {
	mu      sync.RWMutex
	val     T
	has     bool
	err     error
	updated time.Time

	ready chan struct{}
	once  sync.Once
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{ready: make(chan struct{})}
}

func (c *Cache[T]) Replace(v T) {
	c.mu.Lock()
	c.val, c.has, c.err = v, true, nil
	c.updated = time.Now()
	c.mu.Unlock()
	c.once.Do(func() { close(c.ready) })
}

// Fail records the last error and keeps the previous value.
func (c *Cache[T]) Fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.ready) })
}

func (c *Cache[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val, c.has
}

func (c *Cache[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Cache[T]) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}

// Ready is closed after the first delivery, success or failure.
func (c *Cache[T]) Ready() <-chan struct{} { return c.ready }
