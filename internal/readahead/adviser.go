// Package readahead implements the Read Engine: a readahead-adviser-driven
// prefetch cache serving client reads with a pipeline of in-flight chunk
// fetches, bounded by a shared memory budget.
package readahead

import (
	"github.com/leil-io/saunafs-chunkserver-core/clock"
)

const (
	initWindowSize           = 1 << 16 // 64 KiB, the adviser's starting window
	defaultRandomThreshold   = 3
	historyCapacity          = 64
	historyValidityThreshold = 3
	conservativeMultiplier   = 2
	bytesPerKiB              = 1024
	defaultOppositeThreshold    = 4
	defaultMaxReadaheadRequests = 5
)

// historyEntry records one feed's size and arrival time (microseconds since
// the adviser was created), used to estimate recent throughput.
type historyEntry struct {
	timestampUs int64
	requestSize uint32
}

// historyRing is a fixed-capacity FIFO of historyEntry, mirroring the
// original's RingBuffer<HistoryEntry, kHistoryCapacity>.
type historyRing struct {
	buf   [historyCapacity]historyEntry
	start int
	n     int
}

func (r *historyRing) full() bool  { return r.n == historyCapacity }
func (r *historyRing) empty() bool { return r.n == 0 }
func (r *historyRing) size() int   { return r.n }

func (r *historyRing) front() historyEntry { return r.buf[r.start] }

func (r *historyRing) popFront() historyEntry {
	e := r.buf[r.start]
	r.start = (r.start + 1) % historyCapacity
	r.n--
	return e
}

func (r *historyRing) pushBack(e historyEntry) {
	r.buf[(r.start+r.n)%historyCapacity] = e
	r.n++
}

// Adviser predicts the size of readahead requests from the sequentiality of
// recent reads and an estimate of the process's read throughput.
type Adviser struct {
	clock     clock.Clock
	startTime int64 // clock.Now() at construction, for elapsed-microseconds math

	currentOffset uint64
	window        uint32
	randomCandidates int

	oppositeRequestThreshold int
	maxWindowSize            uint32
	windowSizeLimit          uint32
	randomThreshold          int

	continuousRequestType int
	shouldUseReadaheadFlag bool

	history        historyRing
	requestedBytes uint64

	timeoutMs     uint32
	errorThreshold uint64 // sequentiality test threshold, the block size

	maxReadaheadRequests   int
	suggestedReadaheadReqs int
}

// NewAdviser constructs an Adviser. timeoutMs is the readahead window's
// latency budget (0 disables readahead entirely); windowSizeLimit caps the
// throughput-derived max window; blockSize is the sequentiality error
// threshold (the storage block size); oppositeRequestThreshold is the sticky
// flip count (0 selects the default of 4); maxReadaheadRequests caps
// SuggestedReadaheadReqs (0 selects the default of 5, kDefaultMaxReadaheadRequests).
func NewAdviser(c clock.Clock, timeoutMs uint32, windowSizeLimit uint32, blockSize uint64, oppositeRequestThreshold int, maxReadaheadRequests int) *Adviser {
	if oppositeRequestThreshold <= 0 {
		oppositeRequestThreshold = defaultOppositeThreshold
	}
	if maxReadaheadRequests <= 0 {
		maxReadaheadRequests = defaultMaxReadaheadRequests
	}
	return &Adviser{
		clock:                    c,
		startTime:                c.Now().UnixMicro(),
		window:                   initWindowSize,
		oppositeRequestThreshold: oppositeRequestThreshold,
		maxWindowSize:            windowSizeLimit,
		windowSizeLimit:          windowSizeLimit,
		randomThreshold:          defaultRandomThreshold,
		timeoutMs:                timeoutMs,
		errorThreshold:           blockSize,
		maxReadaheadRequests:     maxReadaheadRequests,
	}
}

// BlockSize returns the sequentiality error threshold this Adviser was
// constructed with, reused by the Read Engine to round readahead requests
// up to the storage block size.
func (a *Adviser) BlockSize() uint64 { return a.errorThreshold }

// SuggestedReadaheadReqs returns the current cap on how many speculative
// requests may be outstanding for the owning ReadRecord (spec.md §4.4 step
// 7's "adviser.suggested_readahead_reqs").
func (a *Adviser) SuggestedReadaheadReqs() int { return a.suggestedReadaheadReqs }

// MaxReadaheadRequests returns the configured cap backing
// SuggestedReadaheadReqs, reused by the extra-prefetch loop's readahead-size
// calculation (min(max_readahead_requests * recommended, throughput_window)).
func (a *Adviser) MaxReadaheadRequests() int { return a.maxReadaheadRequests }

// IncreaseSuggestedReadaheadReqs raises the suggestion by one request,
// capped at maxReadaheadRequests; called on a sequential feed that was
// already satisfied from cache or pending requests.
func (a *Adviser) IncreaseSuggestedReadaheadReqs() {
	if a.suggestedReadaheadReqs < a.maxReadaheadRequests {
		a.suggestedReadaheadReqs++
	}
}

// ResetSuggestedReadaheadReqs zeroes the suggestion; called whenever a feed
// turns out non-sequential, since prior speculation was on the wrong
// assumption.
func (a *Adviser) ResetSuggestedReadaheadReqs() { a.suggestedReadaheadReqs = 0 }

func (a *Adviser) elapsedUs() int64 {
	return a.clock.Now().UnixMicro() - a.startTime
}

func absDiff(x, y uint64) uint64 {
	if x > y {
		return x - y
	}
	return y - x
}

func msToUs(ms uint32) int64 { return int64(ms) * 1000 }

func (a *Adviser) expired(e historyEntry, timestamp int64) bool {
	return e.timestampUs+msToUs(a.timeoutMs) < timestamp
}

func (a *Adviser) addToHistory(size uint32) {
	timestamp := a.elapsedUs()
	for a.history.full() || (!a.history.empty() && a.expired(a.history.front(), timestamp)) {
		a.requestedBytes -= uint64(a.history.popFront().requestSize)
	}
	a.history.pushBack(historyEntry{timestampUs: timestamp, requestSize: size})
	a.requestedBytes += uint64(size)

	if a.history.size() >= historyValidityThreshold && timestamp != a.history.front().timestampUs {
		a.adjustMaxWindowSize(timestamp)
	}
}

func (a *Adviser) adjustMaxWindowSize(timestamp int64) {
	elapsed := timestamp - a.history.front().timestampUs
	throughputPerUs := float64(a.requestedBytes) / float64(elapsed)
	derived := uint32(conservativeMultiplier * throughputPerUs * float64(a.timeoutMs) * bytesPerKiB)
	if a.windowSizeLimit != 0 && derived > a.windowSizeLimit {
		derived = a.windowSizeLimit
	}
	if derived < initWindowSize {
		derived = initWindowSize
	}
	a.maxWindowSize = derived
}

// ThroughputWindow estimates, in bytes, how much data the process is likely
// to ask for within one timeout window given its recent request rate.
func (a *Adviser) ThroughputWindow() uint64 {
	if a.history.empty() {
		return 0
	}
	timestamp := a.elapsedUs()
	elapsed := timestamp - a.history.front().timestampUs
	if elapsed <= 0 {
		return 0
	}
	throughputPerUs := float64(a.requestedBytes) / float64(elapsed)
	return uint64(conservativeMultiplier * throughputPerUs * float64(a.timeoutMs) * bytesPerKiB)
}

func (a *Adviser) expand() {
	if a.window >= a.maxWindowSize {
		return
	}
	if a.window < a.maxWindowSize/16 {
		a.window *= 4
	} else {
		a.window *= 2
	}
}

func (a *Adviser) reduce() {
	if a.window >= 2*initWindowSize {
		a.window /= 2
	}
}

func (a *Adviser) looksRandom() bool {
	return a.randomCandidates > a.randomThreshold
}

// UpdateShouldUseReadahead applies the sticky-flip rule: the public advice
// only changes after oppositeRequestThreshold consecutive feeds of the
// opposite sequentiality.
func (a *Adviser) UpdateShouldUseReadahead(isSequential bool) {
	if isSequential == a.shouldUseReadaheadFlag {
		a.continuousRequestType = 0
		return
	}
	a.continuousRequestType++
	if a.continuousRequestType >= a.oppositeRequestThreshold {
		a.continuousRequestType = 0
		a.shouldUseReadaheadFlag = !a.shouldUseReadaheadFlag
	}
}

// ShouldUseReadahead reports the sticky readahead/no-readahead advice.
func (a *Adviser) ShouldUseReadahead() bool { return a.shouldUseReadaheadFlag }

// Feed acknowledges a read request, updating the window and sequentiality
// state, and reports whether this request was judged sequential.
func (a *Adviser) Feed(offset uint64, size uint32) bool {
	a.addToHistory(size)
	isSequential := absDiff(offset, a.currentOffset) <= a.errorThreshold
	a.UpdateShouldUseReadahead(isSequential)
	a.currentOffset = offset + uint64(size)

	if a.timeoutMs == 0 {
		a.window = 0
		return isSequential
	}

	if isSequential {
		a.randomCandidates = 0
		a.expand()
	} else {
		a.randomCandidates++
		if a.looksRandom() {
			a.reduce()
		}
	}
	return isSequential
}

// Window returns the currently suggested readahead window size in bytes.
func (a *Adviser) Window() uint32 {
	if a.window < a.maxWindowSize {
		return a.window
	}
	return a.maxWindowSize
}
