package readahead

import (
	"container/list"
	"sort"
	"sync"
	"time"
)

// MemoryAccounting tracks the shared read-cache memory budget. It replaces
// the process-wide used_read_cache_memory/almost_exceeded globals with an
// explicit object callers construct once and pass to every ReadCache.
type MemoryAccounting struct {
	mu                     sync.Mutex
	used                   uint64
	max                    uint64
	almostExceededFraction float64
}

// NewMemoryAccounting builds a budget of maxBytes, flagging "almost
// exceeded" once usage crosses almostExceededFraction of it (0 selects the
// spec default of 0.8).
func NewMemoryAccounting(maxBytes uint64, almostExceededFraction float64) *MemoryAccounting {
	if almostExceededFraction <= 0 {
		almostExceededFraction = 0.8
	}
	return &MemoryAccounting{max: maxBytes, almostExceededFraction: almostExceededFraction}
}

func (m *MemoryAccounting) add(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used += n
}

func (m *MemoryAccounting) remove(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.used {
		m.used = 0
		return
	}
	m.used -= n
}

// Used reports the bytes currently accounted for by live cache entries.
func (m *MemoryAccounting) Used() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Max reports the configured budget.
func (m *MemoryAccounting) Max() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.max
}

// AlmostExceeded reports whether usage has crossed almostExceededFraction of
// the budget; callers use this to suppress speculative prefetch without
// blocking requests that directly satisfy a caller.
func (m *MemoryAccounting) AlmostExceeded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max == 0 {
		return false
	}
	return float64(m.used) >= m.almostExceededFraction*float64(m.max)
}

// entryState partitions a CacheEntry into exactly one membership per the
// data-model invariant: either in the lookup set and LRU list together, or
// moved to the reserved list while still referenced.
type entryState int

const (
	stateLookup entryState = iota
	stateReserved
)

// CacheEntry is one cached (or in-flight) byte range.
type CacheEntry struct {
	mu sync.Mutex

	Offset        uint64
	RequestedSize uint32
	Buffer        []byte
	Done          bool

	cond        *sync.Cond
	refcount    int32
	state       entryState
	lastTouched time.Time
	element     *list.Element // backing node in the cache's LRU list
	accounted   uint64        // bytes charged to MemoryAccounting for this entry
}

func newCacheEntry(offset uint64, requestedSize uint32, now time.Time) *CacheEntry {
	e := &CacheEntry{
		Offset:        offset,
		RequestedSize: requestedSize,
		lastTouched:   now,
		accounted:     uint64(requestedSize),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// End returns the exclusive end offset of this entry's requested range.
func (e *CacheEntry) End() uint64 { return e.Offset + uint64(e.RequestedSize) }

// Fill stores the fetched bytes and marks the entry done, waking any
// goroutine blocked in Wait.
func (e *CacheEntry) Fill(buf []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Buffer = buf
	e.Done = true
	e.cond.Broadcast()
}

// Wait blocks until the entry is filled.
func (e *CacheEntry) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.Done {
		e.cond.Wait()
	}
}

// IsDone reports whether the entry has been filled.
func (e *CacheEntry) IsDone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Done
}

// ReadCache is the per-ReadRecord cache of CacheEntry ranges: an
// offset-ordered lookup set, an LRU eviction order over that set, and a
// reserved list for entries evicted from lookup while still referenced.
//
// Per the design note on shared resources, a ReadCache's structures are
// meant to be manipulated only while the owning ReadRecord's lock is held;
// the mutex here exists so the type is also safe to use standalone (as the
// tests do) without requiring a ReadRecord wrapper.
type ReadCache struct {
	mu         sync.Mutex
	mem        *MemoryAccounting
	lookup     []*CacheEntry // sorted by Offset
	lru        *list.List
	reserved   map[*CacheEntry]struct{}
	expiration time.Duration
}

// NewReadCache builds an empty cache backed by the shared mem budget, with
// entries expiring from the LRU after `expiration` of inactivity.
func NewReadCache(mem *MemoryAccounting, expiration time.Duration) *ReadCache {
	return &ReadCache{
		mem:        mem,
		lru:        list.New(),
		reserved:   make(map[*CacheEntry]struct{}),
		expiration: expiration,
	}
}

// SetExpiration adjusts the cache's expiration window; used by the adaptive
// cache-expiration controller.
func (c *ReadCache) SetExpiration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiration = d
}

// Expiration reports the cache's current expiration window. An expiration
// of 0 is the spec.md §4.4 "no-cache mode" trigger: the Read Engine falls
// back to a synchronous, non-speculative pipeline.
func (c *ReadCache) Expiration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiration
}

// Mem returns the shared memory-accounting budget backing this cache.
func (c *ReadCache) Mem() *MemoryAccounting { return c.mem }

func (c *ReadCache) insertLocked(e *CacheEntry) {
	i := sort.Search(len(c.lookup), func(i int) bool { return c.lookup[i].Offset >= e.Offset })
	c.lookup = append(c.lookup, nil)
	copy(c.lookup[i+1:], c.lookup[i:])
	c.lookup[i] = e
	e.element = c.lru.PushBack(e)
	c.mem.add(e.accounted)
}

// Query returns the entries in [offset, offset+size) covering as much of
// the range as a contiguous run of existing entries allows, stopping at the
// first gap. If insertPending is true and bytes remain uncovered, a new
// CacheEntry is allocated for the gap, inserted into the cache, appended as
// the last element of covering and also returned as gap so the caller can
// dispatch a fetch and later call Fill on it; otherwise gap is nil.
func (c *ReadCache) Query(offset uint64, size uint32, insertPending bool, now time.Time) (covering []*CacheEntry, gap *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := offset + uint64(size)
	cursor := offset
	i := sort.Search(len(c.lookup), func(i int) bool { return c.lookup[i].End() > offset })
	for ; i < len(c.lookup); i++ {
		e := c.lookup[i]
		if e.Offset > cursor {
			break // gap before this entry
		}
		if e.Offset+uint64(e.RequestedSize) <= cursor {
			continue
		}
		covering = append(covering, e)
		c.touchLocked(e, now)
		cursor = e.End()
		if cursor >= end {
			return covering, nil
		}
	}

	if cursor >= end || !insertPending {
		return covering, nil
	}

	remaining := uint32(end - cursor)
	newEntry := newCacheEntry(cursor, remaining, now)
	c.insertLocked(newEntry)
	covering = append(covering, newEntry)
	return covering, newEntry
}

// EntryAt returns the entry starting exactly at offset, if any, mirroring
// the original cache's find(offset). Used by the extra-prefetch loop to
// skip offsets that are already scheduled or cached.
func (c *ReadCache) EntryAt(offset uint64) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.lookup), func(i int) bool { return c.lookup[i].Offset >= offset })
	if i < len(c.lookup) && c.lookup[i].Offset == offset {
		return c.lookup[i]
	}
	return nil
}

// ForceInsert unconditionally allocates and inserts a new entry at offset,
// mirroring the original cache's forceInsert. Callers must have already
// established via EntryAt that nothing is scheduled there.
func (c *ReadCache) ForceInsert(offset uint64, size uint32, now time.Time) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := newCacheEntry(offset, size, now)
	c.insertLocked(e)
	return e
}

func (c *ReadCache) touchLocked(e *CacheEntry, now time.Time) {
	e.lastTouched = now
	if e.element != nil {
		c.lru.MoveToBack(e.element)
	}
}

// Acquire increments an entry's refcount, pinning it against eviction-freeing
// (it may still move to the reserved list, but won't be discarded).
func (c *ReadCache) Acquire(e *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.refcount++
}

// Release decrements an entry's refcount. If the entry has already been
// evicted to the reserved list and its refcount reaches zero, its memory is
// released immediately.
func (c *ReadCache) Release(e *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.refcount > 0 {
		e.refcount--
	}
	if e.state == stateReserved && e.refcount == 0 {
		delete(c.reserved, e)
		c.mem.remove(e.accounted)
	}
}

func (c *ReadCache) evictLocked(e *CacheEntry) {
	i := sort.Search(len(c.lookup), func(i int) bool { return c.lookup[i].Offset >= e.Offset })
	for i < len(c.lookup) && c.lookup[i] != e {
		i++
	}
	if i < len(c.lookup) {
		c.lookup = append(c.lookup[:i], c.lookup[i+1:]...)
	}
	if e.element != nil {
		c.lru.Remove(e.element)
		e.element = nil
	}
	if e.refcount > 0 {
		e.state = stateReserved
		c.reserved[e] = struct{}{}
		return
	}
	c.mem.remove(e.accounted)
}

// CollectGarbage removes up to count expired, done entries from the head of
// the LRU (oldest first), then sweeps the reserved list for entries whose
// refcount has dropped to zero. count == 0 means unlimited. It returns the
// number of entries evicted from the LRU.
func (c *ReadCache) CollectGarbage(count int, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for {
		if count != 0 && removed >= count {
			break
		}
		front := c.lru.Front()
		if front == nil {
			break
		}
		e := front.Value.(*CacheEntry)
		if !e.Done || now.Sub(e.lastTouched) < c.expiration {
			break
		}
		c.evictLocked(e)
		removed++
	}

	for e := range c.reserved {
		if e.refcount == 0 {
			delete(c.reserved, e)
			c.mem.remove(e.accounted)
		}
	}

	return removed
}

// Len reports the number of entries currently in the lookup set (not
// counting reserved-only entries).
func (c *ReadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lookup)
}

// ReservedLen reports the number of entries currently parked in the
// reserved list.
func (c *ReadCache) ReservedLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reserved)
}
