package jobpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	readDelay time.Duration
	readCalls int
}

func (f *fakeStore) ChunkOp(context.Context, ChunkOpArgs) sfserr.Status { return sfserr.OK }
func (f *fakeStore) Open(context.Context, OpenCloseArgs) sfserr.Status  { return sfserr.OK }
func (f *fakeStore) Close(context.Context, OpenCloseArgs) sfserr.Status { return sfserr.OK }
func (f *fakeStore) Read(context.Context, ReadArgs) (int, sfserr.Status) {
	f.mu.Lock()
	f.readCalls++
	f.mu.Unlock()
	if f.readDelay > 0 {
		time.Sleep(f.readDelay)
	}
	return 0, sfserr.OK
}
func (f *fakeStore) Prefetch(context.Context, PrefetchArgs) sfserr.Status { return sfserr.OK }
func (f *fakeStore) Write(context.Context, WriteArgs) sfserr.Status      { return sfserr.OK }
func (f *fakeStore) GetBlocks(context.Context, GetBlocksArgs) ([]uint16, sfserr.Status) {
	return nil, sfserr.OK
}
func (f *fakeStore) Replicate(context.Context, ReplicateArgs) sfserr.Status { return sfserr.OK }

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCalls
}

// pollCheckJobs stands in for an event loop: CheckJobs drains the wake-up
// byte itself, so the loop calls it periodically instead of reading
// WakeupFD first.
func pollCheckJobs(p *Pool, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-time.After(time.Millisecond):
			p.CheckJobs()
		}
	}
}

func TestPool_SubmitAndComplete(t *testing.T) {
	store := &fakeStore{}
	p, err := New(2, 100, store)
	require.NoError(t, err)
	defer p.Shutdown()

	var mu sync.Mutex
	var gotStatus sfserr.Status
	done := make(chan struct{})
	p.Read(func(status sfserr.Status, extra any) {
		mu.Lock()
		gotStatus = status
		mu.Unlock()
		close(done)
	}, nil, ReadArgs{ChunkID: 1, Size: 10})

	stop := make(chan struct{})
	defer close(stop)
	go pollCheckJobs(p, stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sfserr.OK, gotStatus)
	assert.Equal(t, 1, store.calls())
}

func TestPool_ExactlyOnceCallback_OnShutdown(t *testing.T) {
	// §8 "JP exactly-once on shutdown": submit N jobs, immediately shutdown;
	// exactly N callback invocations recorded, each NOTDONE or OK.
	store := &fakeStore{}
	p, err := New(2, 1000, store)
	require.NoError(t, err)

	const n = 100
	var mu sync.Mutex
	calls := 0
	statuses := map[sfserr.Status]int{}
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		p.Read(func(status sfserr.Status, extra any) {
			mu.Lock()
			calls++
			statuses[status]++
			mu.Unlock()
			wg.Done()
		}, nil, ReadArgs{ChunkID: uint64(i)})
	}

	// Drain statuses concurrently with shutdown so completed jobs still
	// deliver their real result instead of racing Shutdown's own drain.
	stopDrain := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopDrain:
				return
			default:
			}
			buf := make([]byte, 1)
			p.wakeupR.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
			if _, err := p.wakeupR.Read(buf); err == nil {
				p.CheckJobs()
			}
		}
	}()

	p.Shutdown()
	close(stopDrain)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, calls)
	assert.Equal(t, n, statuses[sfserr.OK]+statuses[sfserr.NOTDONE])
}

func TestPool_DisableBeforeRun_YieldsNotDone(t *testing.T) {
	// §8 "JP disable-before-run yields NOTDONE": a job disabled before a
	// worker dequeues it performs no disk I/O and delivers NOTDONE.
	store := &fakeStore{readDelay: 200 * time.Millisecond}
	p, err := New(1, 10, store)
	require.NoError(t, err)
	defer p.Shutdown()

	// Occupy the single worker with a slow read so the next job stays queued.
	blockerDone := make(chan struct{})
	p.Read(func(sfserr.Status, any) { close(blockerDone) }, nil, ReadArgs{ChunkID: 0})

	var gotStatus sfserr.Status
	jobDone := make(chan struct{})
	jobID := p.Read(func(status sfserr.Status, extra any) {
		gotStatus = status
		close(jobDone)
	}, nil, ReadArgs{ChunkID: 1})

	p.DisableJob(jobID)

	stop := make(chan struct{})
	defer close(stop)
	go pollCheckJobs(p, stop)

	<-blockerDone
	<-jobDone
	assert.Equal(t, sfserr.NOTDONE, gotStatus)
	assert.Equal(t, 1, store.calls(), "disabled job must not reach the store")
}

func TestPool_Inval_AlwaysEINVAL(t *testing.T) {
	store := &fakeStore{}
	p, err := New(1, 10, store)
	require.NoError(t, err)
	defer p.Shutdown()

	done := make(chan sfserr.Status, 1)
	p.Inval(func(status sfserr.Status, extra any) { done <- status }, nil)

	stop := make(chan struct{})
	defer close(stop)
	go pollCheckJobs(p, stop)

	select {
	case status := <-done:
		assert.Equal(t, sfserr.EINVAL, status)
	case <-time.After(time.Second):
		t.Fatal("Inval callback never fired")
	}
}

func TestPool_JobsCount(t *testing.T) {
	store := &fakeStore{readDelay: 100 * time.Millisecond}
	p, err := New(1, 10, store)
	require.NoError(t, err)
	defer p.Shutdown()

	p.Read(func(sfserr.Status, any) {}, nil, ReadArgs{ChunkID: 0})
	p.Read(func(sfserr.Status, any) {}, nil, ReadArgs{ChunkID: 1})
	assert.GreaterOrEqual(t, p.JobsCount(), 1)
}
