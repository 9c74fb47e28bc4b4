package readahead

import (
	"sync"
	"time"
)

// RequestState is the lifecycle of one ReadaheadRequest.
type RequestState int

const (
	Inqueued RequestState = iota
	Processing
	Discarded
	Finished
)

// ReadaheadRequest pins a CacheEntry on behalf of one in-flight fetch.
type ReadaheadRequest struct {
	Entry *CacheEntry
	state RequestState
}

// State reports the request's current lifecycle state.
func (r *ReadaheadRequest) State() RequestState { return r.state }

// ReadRecord is the per-(inode, open handle) state RE uses to serve reads:
// a cache, an adviser, the engine that dispatches fetches, and the FIFO of
// requests currently pinning cache entries on behalf of reads that haven't
// completed yet.
type ReadRecord struct {
	mu      sync.Mutex
	Cache   *ReadCache
	Adviser *Adviser
	Engine  *Engine
	pending []*ReadaheadRequest
	expired bool
}

// NewReadRecord ties a cache, adviser and shared engine together under one
// open-handle record.
func NewReadRecord(cache *ReadCache, adviser *Adviser, engine *Engine) *ReadRecord {
	return &ReadRecord{Cache: cache, Adviser: adviser, Engine: engine}
}

func (r *ReadRecord) discardPendingLocked() {
	for _, req := range r.pending {
		if req.state == Inqueued || req.state == Processing {
			req.state = Discarded
		}
	}
}

// recommendedWindow computes spec.md §4.4 step 3's W = min(adviser.window,
// per-inode-cap), rounded up to the block size and never smaller than size
// itself (the caller's own request always fits inside the window it asks
// RE to plan around).
func (r *ReadRecord) recommendedWindow(size uint32) uint64 {
	w := uint64(r.Adviser.Window())
	if cap := r.Engine.PerRecordWindowCap(r.Cache.Mem()); cap > 0 && cap < w {
		w = cap
	}
	if w < uint64(size) {
		w = uint64(size)
	}
	return roundUpToBlockSize(w, r.Adviser.BlockSize())
}

func roundUpToBlockSize(bytes, blockSize uint64) uint64 {
	if blockSize == 0 {
		return bytes
	}
	if rem := bytes % blockSize; rem != 0 {
		return bytes + (blockSize - rem)
	}
	return bytes
}

// continuousPendingLocked walks the pending FIFO (spec.md §4.4 step 4) for
// a run of not-Discarded requests whose entries are contiguous starting at
// cursor, stopping at end or the first gap/non-contiguous entry. Must be
// called with r.mu held.
func (r *ReadRecord) continuousPendingLocked(cursor, end uint64) (covering []*CacheEntry, advanced uint64) {
	advanced = cursor
	for _, req := range r.pending {
		if req.state == Discarded {
			continue
		}
		e := req.Entry
		if e.Offset != advanced {
			break
		}
		covering = append(covering, e)
		advanced = e.End()
		if advanced >= end {
			break
		}
	}
	return covering, advanced
}

// registerPending creates a ReadaheadRequest for entry, appends it to the
// pending FIFO, and returns it for the caller to submit to the engine.
func (r *ReadRecord) registerPending(entry *CacheEntry) *ReadaheadRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := &ReadaheadRequest{Entry: entry, state: Inqueued}
	r.pending = append(r.pending, req)
	return req
}

// Read implements spec.md §4.4. It feeds the adviser, then either serves a
// single synchronous fetch of exactly the requested range (no-cache mode:
// cache expiration 0, or the adviser currently advises against readahead),
// or runs the full readahead pipeline: probe the cache, walk the pending
// FIFO for already-scheduled coverage, publish any still-uncovered suffix
// through the engine's shared PCQ, and opportunistically schedule extra
// prefetch beyond the caller's own range. It blocks until every entry in
// the returned covering run is done, then returns them.
func (r *ReadRecord) Read(offset uint64, size uint32, now time.Time) []*CacheEntry {
	isSequential := r.Adviser.Feed(offset, size)

	if r.Cache.Expiration() == 0 || !r.Adviser.ShouldUseReadahead() {
		return r.readDirect(offset, size, now)
	}

	end := offset + uint64(size)
	recommended := r.recommendedWindow(size)

	// Step 2: probe without creating a gap. Cache.Query only ever returns a
	// contiguous run starting at offset, so the last entry's End() is the
	// farthest contiguously-covered offset.
	cover, _ := r.Cache.Query(offset, size, false, now)
	cachedOffset := offset
	if len(cover) > 0 {
		cachedOffset = cover[len(cover)-1].End()
	}
	if cachedOffset >= end {
		r.scheduleExtra(cachedOffset, recommended, now)
		waitAll(cover)
		return cover
	}

	if isSequential {
		r.Adviser.IncreaseSuggestedReadaheadReqs()
	} else {
		r.Adviser.ResetSuggestedReadaheadReqs()
	}

	// Step 4: walk the pending FIFO for requests that already cover past
	// cachedOffset.
	r.mu.Lock()
	fromPending, advanced := r.continuousPendingLocked(cachedOffset, end)
	r.mu.Unlock()

	if advanced >= end {
		cover = append(cover, fromPending...)
		r.scheduleExtra(advanced, recommended, now)
		waitAll(cover)
		return cover
	}

	// Step 6: a non-sequential request that the pending FIFO couldn't help
	// was speculating on the wrong assumption; abandon it.
	if !isSequential && advanced == cachedOffset {
		r.mu.Lock()
		r.discardPendingLocked()
		r.mu.Unlock()
		fromPending = nil
	}

	// Step 5: publish the still-uncovered suffix, sized to the recommended
	// window rather than just the caller's own request.
	remaining := recommended - (advanced - offset)
	gapCover, gap := r.Cache.Query(advanced, uint32(remaining), true, now)
	cover = append(cover, fromPending...)
	cover = append(cover, gapCover...)

	tail := advanced + remaining
	if gap != nil {
		if !gap.IsDone() {
			req := r.registerPending(gap)
			r.Engine.submit(r, req, gap)
		}
		tail = gap.End()
	}

	// Step 7: opportunistic extra prefetch beyond this read.
	r.scheduleExtra(tail, recommended, now)

	waitAll(cover)
	return cover
}

// readDirect is RE's no-cache-mode pipeline: a single synchronous fetch of
// exactly [offset, offset+size), no speculative prefetch.
func (r *ReadRecord) readDirect(offset uint64, size uint32, now time.Time) []*CacheEntry {
	cover, gap := r.Cache.Query(offset, size, true, now)
	if gap != nil {
		req := r.registerPending(gap)
		r.mu.Lock()
		expired := r.expired
		r.mu.Unlock()
		if expired {
			r.mu.Lock()
			req.state = Discarded
			r.mu.Unlock()
			gap.Fill(nil)
		} else {
			r.run(req, gap, r.Engine.fetch)
		}
	}
	waitAll(cover)
	return cover
}

// scheduleExtra implements spec.md §4.4 step 7: while pending.size <
// adviser.suggested_readahead_reqs and the farthest queued offset is
// within min(max_readahead_requests * recommended, throughput_window) of
// currentOffset, push additional CacheEntry+Request pairs ahead of the
// current read. Suppressed outright once the shared cache is near its
// memory budget.
func (r *ReadRecord) scheduleExtra(currentOffset, recommended uint64, now time.Time) {
	if recommended == 0 || r.Cache.Mem().AlmostExceeded() {
		return
	}

	readaheadSize := uint64(r.Adviser.MaxReadaheadRequests()) * recommended
	if tw := r.Adviser.ThroughputWindow(); tw > 0 && tw < readaheadSize {
		readaheadSize = tw
	}

	r.mu.Lock()
	frontier := currentOffset
	if len(r.pending) > 0 {
		frontier = r.pending[len(r.pending)-1].Entry.End()
	}
	r.mu.Unlock()

	for {
		r.mu.Lock()
		pendingLen := len(r.pending)
		r.mu.Unlock()
		if pendingLen >= r.Adviser.SuggestedReadaheadReqs() {
			return
		}
		if frontier >= currentOffset+readaheadSize {
			return
		}

		if existing := r.Cache.EntryAt(frontier); existing != nil {
			frontier = existing.End()
			continue
		}

		entry := r.Cache.ForceInsert(frontier, uint32(recommended), now)
		req := r.registerPending(entry)
		r.Engine.submit(r, req, entry)
		frontier += recommended
	}
}

// run is invoked by an Engine worker for one dequeued readahead job. A
// request discarded before a worker picked it up (ReadRecord expired, or
// abandoned speculation) short-circuits without touching the network, but
// still fills the entry so nothing blocked in Wait dangles.
func (r *ReadRecord) run(req *ReadaheadRequest, entry *CacheEntry, fetch Fetcher) {
	r.mu.Lock()
	if r.expired || req.state == Discarded {
		req.state = Discarded
		r.mu.Unlock()
		if !entry.IsDone() {
			entry.Fill(nil)
		}
		return
	}
	req.state = Processing
	r.mu.Unlock()

	fetch(entry)

	r.mu.Lock()
	if req.state != Discarded {
		req.state = Finished
	}
	r.mu.Unlock()
}

func waitAll(cover []*CacheEntry) {
	for _, e := range cover {
		e.Wait()
	}
}

// Expire marks the record expired: pending requests are discarded and any
// blocked waiter is woken (its entry is filled with a nil buffer) so nothing
// dangles.
func (r *ReadRecord) Expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = true
	r.discardPendingLocked()
	for _, req := range r.pending {
		if !req.Entry.IsDone() {
			req.Entry.Fill(nil)
		}
	}
}

// Expired reports whether Expire has been called.
func (r *ReadRecord) Expired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expired
}

// DrainFinished pops requests off the head of the pending FIFO as long as
// they are Finished or Discarded, preserving submission order: a request
// still Inqueued/Processing blocks later, already-finished requests from
// draining ahead of it.
func (r *ReadRecord) DrainFinished() []*ReadaheadRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	var drained []*ReadaheadRequest
	for len(r.pending) > 0 {
		head := r.pending[0]
		if head.state != Finished && head.state != Discarded {
			break
		}
		drained = append(drained, head)
		r.pending = r.pending[1:]
	}
	return drained
}

// Pending returns a snapshot of the current pending FIFO, oldest first.
func (r *ReadRecord) Pending() []*ReadaheadRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ReadaheadRequest, len(r.pending))
	copy(out, r.pending)
	return out
}
