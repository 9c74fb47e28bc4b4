package readahead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCache_Query_CoversRequestedRangeWithoutGaps(t *testing.T) {
	mem := NewMemoryAccounting(1<<20, 0.8)
	c := NewReadCache(mem, time.Minute)
	now := time.Now()

	cover, gap := c.Query(0, 4096, true, now)
	require.NotNil(t, gap)
	gap.Fill(make([]byte, 4096))

	var coveredEnd uint64
	for i, e := range cover {
		if i == 0 {
			assert.Equal(t, uint64(0), e.Offset)
		} else {
			assert.Equal(t, coveredEnd, e.Offset, "no gap between consecutive entries")
		}
		coveredEnd = e.End()
	}
	assert.Equal(t, uint64(4096), coveredEnd)
}

func TestReadCache_Query_SameOffsetReturnsSameEntry_AtMostOneFetch(t *testing.T) {
	mem := NewMemoryAccounting(1<<20, 0.8)
	c := NewReadCache(mem, time.Minute)
	now := time.Now()

	_, gap1 := c.Query(1000, 500, true, now)
	require.NotNil(t, gap1)

	// A second query over the same still-pending range must observe the
	// existing entry instead of allocating a second in-flight fetch.
	cover2, gap2 := c.Query(1000, 500, true, now)
	assert.Nil(t, gap2)
	require.Len(t, cover2, 1)
	assert.Same(t, gap1, cover2[0])
}

func TestReadCache_MemoryAccounting_TracksLookupAndReserved(t *testing.T) {
	mem := NewMemoryAccounting(1<<20, 0.8)
	c := NewReadCache(mem, time.Minute)
	now := time.Now()

	_, gap := c.Query(0, 4096, true, now)
	require.NotNil(t, gap)
	assert.Equal(t, uint64(4096), mem.Used())
	gap.Fill(make([]byte, 4096))

	c.Acquire(gap)
	c.CollectGarbage(0, now.Add(time.Hour)) // expired, but pinned -> moves to reserved
	assert.Equal(t, uint64(4096), mem.Used(), "pinned entry's bytes stay accounted while reserved")
	assert.Equal(t, 1, c.ReservedLen())
	assert.Equal(t, 0, c.Len())

	c.Release(gap)
	assert.Equal(t, uint64(0), mem.Used(), "releasing the last reference frees the memory")
}

func TestReadCache_CollectGarbage_OnlyRemovesExpiredDoneEntries(t *testing.T) {
	mem := NewMemoryAccounting(1<<20, 0.8)
	expiration := 10 * time.Millisecond
	c := NewReadCache(mem, expiration)
	now := time.Now()

	_, gap := c.Query(0, 4096, true, now)
	require.NotNil(t, gap)

	// Not done yet: must survive garbage collection even past expiration.
	removed := c.CollectGarbage(0, now.Add(time.Hour))
	assert.Equal(t, 0, removed)

	gap.Fill(make([]byte, 4096))

	// Done but not yet expired: must survive.
	removed = c.CollectGarbage(0, now.Add(time.Millisecond))
	assert.Equal(t, 0, removed)

	// Done and expired: must be evicted.
	removed = c.CollectGarbage(0, now.Add(time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}

func TestReadCache_CollectGarbage_RespectsCountCap(t *testing.T) {
	mem := NewMemoryAccounting(1<<20, 0.8)
	c := NewReadCache(mem, time.Nanosecond)
	now := time.Now()

	for i := 0; i < 5; i++ {
		_, gap := c.Query(uint64(i*4096), 4096, true, now)
		require.NotNil(t, gap)
		gap.Fill(make([]byte, 4096))
	}

	removed := c.CollectGarbage(2, now.Add(time.Hour))
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, c.Len())
}

func TestMemoryAccounting_AlmostExceeded(t *testing.T) {
	mem := NewMemoryAccounting(100, 0.8)
	mem.add(79)
	assert.False(t, mem.AlmostExceeded())
	mem.add(1)
	assert.True(t, mem.AlmostExceeded())
}
