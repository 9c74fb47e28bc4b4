package chunkreader

import (
	"context"
	"sync"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
)

// ChunkReader is the per-(inode, index) read session: it locates a chunk
// once, reuses that location across reads unless it's stale or a read
// fails, and executes reads through an Executor. One ChunkReader is not
// safe to share across unrelated reads of different chunks; the mount
// layer is expected to keep one per currently-open (inode, index) pair,
// mirroring the original's prepareReadingChunk/readData split.
type ChunkReader struct {
	locator        Locator
	executor       *Executor
	preferredLabel string
	refreshTicks   int

	mu       sync.Mutex
	inode    uint64
	index    uint64
	located  bool
	location Location
	tick     int
}

// NewChunkReader builds a ChunkReader over locator/executor. refreshTicks
// is the number of PrepareReadingChunk calls a resolved location serves,
// counting the call that resolved it, before the next call forcibly
// re-resolves it (spec.md default: 15).
func NewChunkReader(locator Locator, executor *Executor, preferredLabel string, refreshTicks int) *ChunkReader {
	if refreshTicks <= 0 {
		refreshTicks = 15
	}
	return &ChunkReader{locator: locator, executor: executor, preferredLabel: preferredLabel, refreshTicks: refreshTicks}
}

// PrepareReadingChunk resolves (inode, index) to a location, reusing the
// cached one if it's for the same (inode, index), has served fewer than
// refreshTicks calls, and forcePrepare is false.
func (r *ChunkReader) PrepareReadingChunk(inode, index uint64, forcePrepare bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sameTarget := r.located && r.inode == inode && r.index == index
	if sameTarget && !forcePrepare && r.tick+1 < r.refreshTicks {
		r.tick++
		return nil
	}

	loc, err := r.locator.Locate(inode, index)
	if err != nil {
		r.located = false
		return sfserr.Wrap("chunkreader.prepare_reading_chunk", sfserr.NOCHUNK, err)
	}
	r.inode, r.index, r.location = inode, index, loc
	r.located = true
	r.tick = 0
	return nil
}

// IsChunkLocated reports whether a call to PrepareReadingChunk has
// succeeded and its result hasn't since been invalidated by a failed read.
func (r *ChunkReader) IsChunkLocated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.located
}

// ChunkID returns the located chunk's id. Only valid when IsChunkLocated.
func (r *ChunkReader) ChunkID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location.ChunkID
}

// Version returns the located chunk's version. Only valid when
// IsChunkLocated.
func (r *ChunkReader) Version() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location.Version
}

// ReadData reads [offset, offset+size) from the previously located chunk.
// On any failure the cached location is invalidated so the next
// PrepareReadingChunk call forces a fresh locate, per the retry design's
// "forcibly re-prepare the chunk location" rule.
func (r *ChunkReader) ReadData(ctx context.Context, offset, size uint32) ([]byte, error) {
	r.mu.Lock()
	if !r.located {
		r.mu.Unlock()
		return nil, sfserr.New("chunkreader.read_data", sfserr.NOCHUNK)
	}
	loc := r.location
	r.mu.Unlock()

	plan := BuildPlan(loc, r.preferredLabel)
	parts, err := r.executor.Execute(ctx, plan, loc.ChunkID, loc.Version, offset, size)
	if err != nil {
		r.mu.Lock()
		r.located = false
		r.mu.Unlock()
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
