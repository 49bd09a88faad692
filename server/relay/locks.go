package relay

import "sync"

// conversationLocks serializes request handling per conversation so replies
// land in arrival order. Lock entries are refcounted and dropped when idle,
// keeping the map bounded by the number of in-flight conversations.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*lockEntry)}
}

func (c *conversationLocks) Lock(key string) {
	c.mu.Lock()
	e, ok := c.locks[key]
	if !ok {
		e = &lockEntry{}
		c.locks[key] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
}

func (c *conversationLocks) Unlock(key string) {
	c.mu.Lock()
	e := c.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(c.locks, key)
	}
	c.mu.Unlock()

	e.mu.Unlock()
}
