package readahead

import (
	"github.com/leil-io/saunafs-chunkserver-core/internal/pcqueue"
)

// defaultReadWorkers is the spec.md §5 default size of the RE read-worker
// pool ("RE read workers (N configured; default 30)").
const defaultReadWorkers = 30

// Fetcher performs the actual chunkserver fetch backing one readahead
// entry. It must call entry.Fill before returning, even with a nil buffer
// on failure, so nothing blocked in entry.Wait dangles.
type Fetcher func(entry *CacheEntry)

// job is one unit of work published on the engine's shared PCQ: a
// ReadaheadRequest (and the CacheEntry it pins) belonging to some
// ReadRecord, to be filled by whichever read worker dequeues it.
type job struct {
	record *ReadRecord
	req    *ReadaheadRequest
	entry  *CacheEntry
}

// Engine is the Read Engine's shared dispatch point: a single PCQ
// publishing readahead work (spec.md §4.4 step 5, "published via the
// read-workers' shared PCQ") drained by a fixed pool of read-worker
// goroutines (§5). One Engine is shared across every ReadRecord backing a
// mountpoint, mirroring the original's singleton ReadaheadOperationsManager
// and its fixed read_worker pthread pool.
//
// The queue is unbounded (maxSize 0): the original's readaheadRequestContainer_
// is a plain std::queue with no byte budget of its own. Backpressure on
// readahead instead comes from ReadRecord.scheduleExtra consulting
// MemoryAccounting.AlmostExceeded and Adviser.SuggestedReadaheadReqs before
// ever publishing a job, not from the queue rejecting one.
type Engine struct {
	queue   *pcqueue.Queue[*job]
	fetch   Fetcher
	workers int
}

// NewEngine starts workers read-worker goroutines (0 selects the spec
// default of 30), all draining one shared queue of readahead jobs and
// filling each dequeued job's entry by calling fetch.
func NewEngine(workers int, fetch Fetcher) *Engine {
	if workers <= 0 {
		workers = defaultReadWorkers
	}
	e := &Engine{
		queue:   pcqueue.New[*job](0),
		fetch:   fetch,
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		go e.runWorker()
	}
	return e
}

func (e *Engine) runWorker() {
	for {
		entry, err := e.queue.Get()
		if err != nil {
			return
		}
		j := entry.Payload
		j.record.run(j.req, j.entry, e.fetch)
	}
}

// submit publishes one readahead job for a worker to pick up; the caller
// (ReadRecord.Read) separately blocks on entry.Wait for the result, the
// same fire-and-forget handoff the original's addRequest_ does onto
// readaheadRequestContainer_.
func (e *Engine) submit(record *ReadRecord, req *ReadaheadRequest, entry *CacheEntry) {
	_ = e.queue.Put(0, 0, &job{record: record, req: req, entry: entry}, 1)
}

// Workers reports the configured read-worker count, used to derive each
// ReadRecord's fair-share window cap (spec.md §4.4 step 3,
// "per-inode-cap").
func (e *Engine) Workers() int { return e.workers }

// PerRecordWindowCap computes the fair-share ceiling a ReadRecord's window
// is clamped to: the shared cache's memory budget divided across the
// worker pool, mirroring the original's
// maxWindowConsideringMaxReadCacheSize = gReadCacheMaxSize / gReadWorkers.
func (e *Engine) PerRecordWindowCap(mem *MemoryAccounting) uint64 {
	if e.workers <= 0 {
		return mem.Max()
	}
	return mem.Max() / uint64(e.workers)
}

// Close stops the queue; workers already blocked in Get return once it
// reports closed, after draining whatever was already admitted.
func (e *Engine) Close() {
	e.queue.Close()
}
