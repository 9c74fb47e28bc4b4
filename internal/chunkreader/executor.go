package chunkreader

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
)

// Fetcher performs the actual network transfer of one part's data from one
// replica. Implementations own the connection pool / dialing.
type Fetcher interface {
	Fetch(ctx context.Context, r Replica, chunkID uint64, version uint32, offset, size uint32) ([]byte, error)
}

// ExecutorConfig mirrors the §6 replication timeout/bandwidth knobs.
type ExecutorConfig struct {
	WaveTimeout       time.Duration
	ConnectTimeout    time.Duration
	TotalTimeout      time.Duration
	BandwidthOveruse  float64 // e.g. 1.0 = no overuse allowed on the additional-ops wave
	MaxConcurrentPart int64
}

// Counters are the runtime-tweak counters §4.6/§6 expose for diagnostics.
type Counters struct {
	Executions                int64
	ExecutionsNeedingAdditional int64
	ExecutionsFinishedByAdditional int64
}

// Executor runs a Plan's parts wave by wave: all parts are first attempted
// against their preferred candidate in one timed wave; any part that fails
// or doesn't finish within the wave timeout gets one more shot, in a second
// wave, against its next candidate, with the rate limiter (if any) eased by
// BandwidthOveruse so a single lagging tail can catch up without starving
// the first wave's healthy transfers.
type Executor struct {
	fetcher Fetcher
	limiter *rate.Limiter // nil disables bandwidth shaping
	cfg     ExecutorConfig

	executions          int64
	needingAdditional    int64
	finishedByAdditional int64
}

// NewExecutor builds an Executor. limiter may be nil to disable bandwidth
// shaping entirely (the default when REPLICATION_BANDWIDTH_LIMIT_KBPS is 0).
func NewExecutor(fetcher Fetcher, limiter *rate.Limiter, cfg ExecutorConfig) *Executor {
	if cfg.BandwidthOveruse <= 0 {
		cfg.BandwidthOveruse = 1.0
	}
	if cfg.MaxConcurrentPart <= 0 {
		cfg.MaxConcurrentPart = 8
	}
	return &Executor{fetcher: fetcher, limiter: limiter, cfg: cfg}
}

// Counters returns a snapshot of the diagnostic counters.
func (e *Executor) Counters() Counters {
	return Counters{
		Executions:                      atomic.LoadInt64(&e.executions),
		ExecutionsNeedingAdditional:     atomic.LoadInt64(&e.needingAdditional),
		ExecutionsFinishedByAdditional:  atomic.LoadInt64(&e.finishedByAdditional),
	}
}

type partResult struct {
	index int
	data  []byte
	err   error
}

// Execute runs one read execution over plan, fetching chunkID/version at
// [offset, offset+size) split per-part by the plan, and returns the parts'
// data ordered by Part.Index. Every part must eventually succeed or the
// whole execution fails with the last observed error.
func (e *Executor) Execute(ctx context.Context, plan []Part, chunkID uint64, version uint32, offset, size uint32) ([][]byte, error) {
	atomic.AddInt64(&e.executions, 1)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.TotalTimeout)
	defer cancel()

	results := make([]partResult, len(plan))
	remaining := e.runWave(ctx, plan, 0, chunkID, version, offset, size, 1.0, results)

	if len(remaining) == 0 {
		return collect(results)
	}

	atomic.AddInt64(&e.needingAdditional, 1)
	retryPlan := make([]Part, 0, len(remaining))
	for _, idx := range remaining {
		candidates := plan[idx].Candidates
		if len(candidates) > 1 {
			candidates = candidates[1:]
		}
		retryPlan = append(retryPlan, Part{Index: idx, Candidates: candidates})
	}
	stillFailing := e.runWave(ctx, retryPlan, 1, chunkID, version, offset, size, e.cfg.BandwidthOveruse, results)

	if len(stillFailing) == 0 {
		atomic.AddInt64(&e.finishedByAdditional, 1)
		return collect(results)
	}

	lastErr := results[stillFailing[len(stillFailing)-1]].err
	if lastErr == nil {
		lastErr = sfserr.New("chunkreader.execute", sfserr.TIMEOUT)
	}
	return nil, sfserr.Wrap("chunkreader.execute", sfserr.CANTCONNECT, lastErr)
}

// runWave fetches every part in plan concurrently (bounded by
// MaxConcurrentPart), from each part's first candidate, within one
// WaveTimeout window, and records results into results at each part's
// original index. It returns the indices that still need another attempt.
func (e *Executor) runWave(ctx context.Context, plan []Part, waveNum int, chunkID uint64, version uint32, offset, size uint32, rateMultiplier float64, results []partResult) []int {
	waveCtx, cancel := context.WithTimeout(ctx, e.cfg.WaveTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(e.cfg.MaxConcurrentPart)
	g, gctx := errgroup.WithContext(waveCtx)

	for _, part := range plan {
		part := part
		if len(part.Candidates) == 0 {
			results[part.Index] = partResult{index: part.Index, err: sfserr.New("chunkreader.run_wave", sfserr.NOCHUNKSERVERS)}
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[part.Index] = partResult{index: part.Index, err: err}
				return nil
			}
			defer sem.Release(1)

			if e.limiter != nil {
				n := int(float64(size) / rateMultiplier)
				if n < 1 {
					n = 1
				}
				if err := e.limiter.WaitN(gctx, n); err != nil {
					results[part.Index] = partResult{index: part.Index, err: err}
					return nil
				}
			}

			data, err := e.fetcher.Fetch(gctx, part.Candidates[0], chunkID, version, offset, size)
			results[part.Index] = partResult{index: part.Index, data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var remaining []int
	for _, part := range plan {
		if results[part.Index].err != nil {
			remaining = append(remaining, part.Index)
		}
	}
	return remaining
}

func collect(results []partResult) ([][]byte, error) {
	out := make([][]byte, len(results))
	for i, r := range results {
		if r.err != nil {
			return nil, sfserr.Wrap("chunkreader.collect", sfserr.IO, r.err)
		}
		out[i] = r.data
	}
	return out, nil
}
