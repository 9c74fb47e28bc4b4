// Package pcqueue implements a bounded, byte-length-admitted FIFO shared by
// a single job pool's network and worker sides (spec.md §4.1): a producer
// blocks in Put until enough budget frees up, a consumer blocks in Get
// until an entry arrives, and both have non-blocking Try variants. The
// shape (FIFO of typed entries behind one mutex) follows gcsfuse's
// common.Queue[T]; the byte-length admission and two-condition-variable
// wait discipline follow the original ProducerConsumerQueue exactly.
package pcqueue

import (
	"context"
	"errors"
	"sync"
)

// ErrWouldNeverFit is returned by Put/TryPut when length exceeds maxSize:
// no amount of draining would ever admit the entry, so blocking on it would
// deadlock the caller forever (§8 "PCQ deadlock detection").
var ErrWouldNeverFit = errors.New("pcqueue: entry length exceeds queue capacity")

// ErrBusy is returned by TryPut/TryGet when the call would have to block.
var ErrBusy = errors.New("pcqueue: would block")

// ErrClosed is returned by Put/TryPut once Close has been called, by
// Get/TryGet once Close has been called and no entries remain, and to any
// caller unblocked by Close while waiting.
var ErrClosed = errors.New("pcqueue: queue closed")

// Entry is one admitted item: a job identity pair plus a caller-supplied
// payload of known byte length, mirroring the original's (jobId, jobType,
// data, length) tuple without the raw uint8_t*/Deleter plumbing a typed Go
// payload makes unnecessary.
type Entry[T any] struct {
	JobID   uint32
	JobType uint32
	Payload T
	Length  uint32
}

// Queue is a thread-safe, byte-length-bounded FIFO. MaxSize of 0 means
// unbounded, matching the original's convention.
type Queue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items       []Entry[T]
	maxSize     uint32
	currentSize uint32
	closed      bool
}

// New constructs a Queue bounded by maxSize bytes (0 = unbounded).
func New[T any](maxSize uint32) *Queue[T] {
	q := &Queue[T]{maxSize: maxSize}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// IsEmpty reports whether the queue currently holds no entries.
func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// IsFull reports whether the queue is at or above its byte-length bound.
func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxSize > 0 && q.currentSize >= q.maxSize
}

// SizeLeft returns the number of bytes that may still be admitted, or
// ^uint32(0) when the queue is unbounded.
func (q *Queue[T]) SizeLeft() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxSize == 0 {
		return ^uint32(0)
	}
	if q.currentSize >= q.maxSize {
		return 0
	}
	return q.maxSize - q.currentSize
}

// Elements returns the number of entries currently queued.
func (q *Queue[T]) Elements() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Put admits entry, blocking until length bytes of budget are free. It
// returns ErrWouldNeverFit immediately, without blocking, if length alone
// exceeds maxSize, and ErrClosed if the queue is or becomes closed while
// waiting.
func (q *Queue[T]) Put(jobID, jobType uint32, payload T, length uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && length > q.maxSize {
		return ErrWouldNeverFit
	}

	for !q.closed && q.maxSize > 0 && q.currentSize+length > q.maxSize {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, Entry[T]{JobID: jobID, JobType: jobType, Payload: payload, Length: length})
	q.currentSize += length
	q.notEmpty.Signal()
	return nil
}

// PutContext is Put, but also returns ctx.Err() if ctx is cancelled while
// the call would otherwise block. sync.Cond has no native cancellation, so
// a watcher goroutine rebroadcasts on ctx.Done() to wake this waiter for a
// re-check — the same "broadcast then re-test the predicate" pattern the
// blocking Put loop already uses.
func (q *Queue[T]) PutContext(ctx context.Context, jobID, jobType uint32, payload T, length uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && length > q.maxSize {
		return ErrWouldNeverFit
	}

	if q.maxSize > 0 && q.currentSize+length > q.maxSize && !q.closed {
		stop := q.wakeOnDone(ctx, q.notFull)
		defer stop()
		for !q.closed && q.maxSize > 0 && q.currentSize+length > q.maxSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			q.notFull.Wait()
		}
	}
	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.items = append(q.items, Entry[T]{JobID: jobID, JobType: jobType, Payload: payload, Length: length})
	q.currentSize += length
	q.notEmpty.Signal()
	return nil
}

// TryPut is the non-blocking admission check: it returns ErrWouldNeverFit
// if length exceeds maxSize, ErrBusy if the queue currently lacks the
// budget, and ErrClosed if the queue is closed.
func (q *Queue[T]) TryPut(jobID, jobType uint32, payload T, length uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.maxSize > 0 {
		if length > q.maxSize {
			return ErrWouldNeverFit
		}
		if q.currentSize+length > q.maxSize {
			return ErrBusy
		}
	}

	q.items = append(q.items, Entry[T]{JobID: jobID, JobType: jobType, Payload: payload, Length: length})
	q.currentSize += length
	q.notEmpty.Signal()
	return nil
}

// Get removes and returns the oldest entry, blocking until one is
// available or the queue is closed.
func (q *Queue[T]) Get() (Entry[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && len(q.items) == 0 {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return Entry[T]{}, ErrClosed
	}

	e := q.items[0]
	q.items = q.items[1:]
	q.currentSize -= e.Length
	q.notFull.Signal()
	return e, nil
}

// GetContext is Get with ctx cancellation, via the same rebroadcast pattern
// PutContext uses.
func (q *Queue[T]) GetContext(ctx context.Context) (Entry[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 && !q.closed {
		stop := q.wakeOnDone(ctx, q.notEmpty)
		defer stop()
		for !q.closed && len(q.items) == 0 {
			if err := ctx.Err(); err != nil {
				return Entry[T]{}, err
			}
			q.notEmpty.Wait()
		}
	}
	if len(q.items) == 0 {
		return Entry[T]{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Entry[T]{}, err
	}

	e := q.items[0]
	q.items = q.items[1:]
	q.currentSize -= e.Length
	q.notFull.Signal()
	return e, nil
}

// TryGet removes and returns the oldest entry without blocking, returning
// ErrBusy if the queue is currently empty.
func (q *Queue[T]) TryGet() (Entry[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		if q.closed {
			return Entry[T]{}, ErrClosed
		}
		return Entry[T]{}, ErrBusy
	}

	e := q.items[0]
	q.items = q.items[1:]
	q.currentSize -= e.Length
	q.notFull.Signal()
	return e, nil
}

// Close wakes every blocked Put/Get with ErrClosed and makes all subsequent
// Put/TryPut calls return ErrClosed immediately; it does not drain or
// discard queued entries already admitted: Get/TryGet keep returning them
// and return ErrClosed only once the queue is empty.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// wakeOnDone starts a goroutine that broadcasts on cond once ctx is done,
// so a Cond.Wait()-based loop notices cancellation on its next predicate
// check. The returned stop func must be called (via defer) once the waiter
// is no longer interested, to avoid leaking the goroutine.
func (q *Queue[T]) wakeOnDone(ctx context.Context, cond *sync.Cond) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}
