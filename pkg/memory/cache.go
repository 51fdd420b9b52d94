// Package memory provides the page cache and the transaction-aware buffer
// pool built on top of it.
package memory

import (
	"sync"

	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
)

// PageCache is the in-memory store of pages. It knows nothing about
// transactions, locks, or durability; the PageStore layers those on top.
type PageCache interface {
	// Get retrieves a page and marks it most recently used.
	Get(pid primitives.PageID) (page.Page, bool)

	// Peek retrieves a page without affecting recency. Used by eviction
	// and flushing scans.
	Peek(pid primitives.PageID) (page.Page, bool)

	// Put stores or refreshes a page and marks it most recently used.
	// Returns an error if a new page cannot be admitted because the cache
	// is full.
	Put(pid primitives.PageID, p page.Page) error

	// Remove evicts a page. Does nothing if the page is absent.
	Remove(pid primitives.PageID)

	// Size returns the current number of cached pages.
	Size() int

	// Keys returns all cached page IDs in LRU order, least recently used
	// first.
	Keys() []primitives.PageID
}

// node is a single entry in the recency list.
type node struct {
	pid  primitives.PageID
	page page.Page
	prev *node
	next *node
}

// LRUPageCache combines a map with a doubly linked recency list for O(1)
// lookup, insertion, and recency updates. The most recently used entry sits
// right after the head sentinel, the least recently used right before the
// tail sentinel.
type LRUPageCache struct {
	maxSize int
	cache   map[primitives.PageID]*node
	head    *node
	tail    *node
	mutex   sync.Mutex
}

// NewLRUPageCache creates a cache bounded to maxSize pages.
func NewLRUPageCache(maxSize int) *LRUPageCache {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &LRUPageCache{
		maxSize: maxSize,
		cache:   make(map[primitives.PageID]*node),
		head:    head,
		tail:    tail,
	}
}

func (c *LRUPageCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUPageCache) removeNode(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUPageCache) moveToFront(n *node) {
	c.removeNode(n)
	c.addToFront(n)
}

func (c *LRUPageCache) Get(pid primitives.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		c.moveToFront(n)
		return n.page, true
	}
	return nil, false
}

func (c *LRUPageCache) Peek(pid primitives.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		return n.page, true
	}
	return nil, false
}

func (c *LRUPageCache) Put(pid primitives.PageID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		n.page = p
		c.moveToFront(n)
		return nil
	}

	if len(c.cache) >= c.maxSize {
		return page.NewDbError(page.CodeBufferFull, "cache full, cannot add page %s", pid)
	}

	n := &node{pid: pid, page: p}
	c.cache[pid] = n
	c.addToFront(n)
	return nil
}

func (c *LRUPageCache) Remove(pid primitives.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, exists := c.cache[pid]; exists {
		delete(c.cache, pid)
		c.removeNode(n)
	}
}

func (c *LRUPageCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.cache)
}

func (c *LRUPageCache) Keys() []primitives.PageID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pids := make([]primitives.PageID, 0, len(c.cache))
	for n := c.tail.prev; n != c.head; n = n.prev {
		pids = append(pids, n.pid)
	}
	return pids
}
