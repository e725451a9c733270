package cache

import (
	"container/list"
	"sync"

	"github.com/skylift/rotoreval/internal/bemt"
)

// Stats counts cache traffic.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Inserts   int64 `json:"inserts"`
	Evictions int64 `json:"evictions"`
}

type hoverNode struct {
	key   Key
	value bemt.Result
}

type forwardNode struct {
	key   Key
	value bemt.ForwardResult
}

// EvalCache is an LRU over hover and forward results. One mutex guards
// lookup and insertion; reads never observe unfinished values.
type EvalCache struct {
	mu         sync.Mutex
	maxEntries int

	hoverList *list.List
	hoverMap  map[Key]*list.Element

	forwardList *list.List
	forwardMap  map[Key]*list.Element

	stats Stats
}

// NewEvalCache returns an LRU retaining at most maxEntries per namespace.
func NewEvalCache(maxEntries int) *EvalCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &EvalCache{
		maxEntries:  maxEntries,
		hoverList:   list.New(),
		hoverMap:    make(map[Key]*list.Element),
		forwardList: list.New(),
		forwardMap:  make(map[Key]*list.Element),
	}
}

// MaxEntries returns the retention cap.
func (c *EvalCache) MaxEntries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxEntries
}

// SetMaxEntries adjusts the cap and evicts down to it.
func (c *EvalCache) SetMaxEntries(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxEntries = n
	c.evictHover()
	c.evictForward()
}

// Clear drops everything and resets the stats.
func (c *EvalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hoverList.Init()
	c.forwardList.Init()
	c.hoverMap = make(map[Key]*list.Element)
	c.forwardMap = make(map[Key]*list.Element)
	c.stats = Stats{}
}

// Stats returns a snapshot of the counters.
func (c *EvalCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetHover looks up a hover result, refreshing recency on hit.
func (c *EvalCache) GetHover(key Key) (bemt.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.hoverMap[key]
	if !ok {
		c.stats.Misses++
		return bemt.Result{}, false
	}
	c.hoverList.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*hoverNode).value, true
}

// PutHover inserts or refreshes a hover result.
func (c *EvalCache) PutHover(key Key, value bemt.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.hoverMap[key]; ok {
		el.Value.(*hoverNode).value = value
		c.hoverList.MoveToFront(el)
		return
	}
	el := c.hoverList.PushFront(&hoverNode{key: key, value: value})
	c.hoverMap[key] = el
	c.stats.Inserts++
	c.evictHover()
}

// GetForward looks up a forward result, refreshing recency on hit.
func (c *EvalCache) GetForward(key Key) (bemt.ForwardResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.forwardMap[key]
	if !ok {
		c.stats.Misses++
		return bemt.ForwardResult{}, false
	}
	c.forwardList.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*forwardNode).value, true
}

// PutForward inserts or refreshes a forward result.
func (c *EvalCache) PutForward(key Key, value bemt.ForwardResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.forwardMap[key]; ok {
		el.Value.(*forwardNode).value = value
		c.forwardList.MoveToFront(el)
		return
	}
	el := c.forwardList.PushFront(&forwardNode{key: key, value: value})
	c.forwardMap[key] = el
	c.stats.Inserts++
	c.evictForward()
}

func (c *EvalCache) evictHover() {
	for c.hoverList.Len() > c.maxEntries {
		last := c.hoverList.Back()
		node := last.Value.(*hoverNode)
		delete(c.hoverMap, node.key)
		c.hoverList.Remove(last)
		c.stats.Evictions++
	}
}

func (c *EvalCache) evictForward() {
	for c.forwardList.Len() > c.maxEntries {
		last := c.forwardList.Back()
		node := last.Value.(*forwardNode)
		delete(c.forwardMap, node.key)
		c.forwardList.Remove(last)
		c.stats.Evictions++
	}
}
