package crime

import "sync"

// CategoryContext holds the application-wide "current category". Engines read
// it lazily each time a category argument is left empty, and subscribers are
// notified whenever it changes.
type CategoryContext struct {
	mu      sync.RWMutex
	current string
	subs    []func(string)
}

// NewCategoryContext returns a context starting at initial.
func NewCategoryContext(initial string) *CategoryContext {
	return &CategoryContext{current: initial}
}

// Current returns the current category key.
func (c *CategoryContext) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set changes the current category and notifies subscribers. Setting the
// same value again is a no-op.
func (c *CategoryContext) Set(key string) {
	c.mu.Lock()
	if c.current == key {
		c.mu.Unlock()
		return
	}
	c.current = key
	subs := make([]func(string), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(key)
	}
}

// Subscribe registers fn to be called with the new key after every change.
func (c *CategoryContext) Subscribe(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}
