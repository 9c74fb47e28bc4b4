package diskmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
)

func TestManager_DiskForNewChunk_PicksLeastLoaded(t *testing.T) {
	a, b, c := NewDisk("/a"), NewDisk("/b"), NewDisk("/c")
	a.IncrementChunkCount()
	a.IncrementChunkCount()
	b.IncrementChunkCount()
	m := NewManager([]*Disk{a, b, c}, nil)

	got, err := m.DiskForNewChunk()
	require.NoError(t, err)
	assert.Same(t, c, got, "the disk with zero chunks must win")
}

func TestManager_DiskForNewChunk_SkipsReadOnlyDisks(t *testing.T) {
	a, b := NewDisk("/a"), NewDisk("/b")
	a.SetReadOnly(true)
	m := NewManager([]*Disk{a, b}, nil)

	got, err := m.DiskForNewChunk()
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestManager_DiskForNewChunk_ReturnsErrorWhenAllReadOnly(t *testing.T) {
	a, b := NewDisk("/a"), NewDisk("/b")
	a.SetReadOnly(true)
	b.SetReadOnly(true)
	m := NewManager([]*Disk{a, b}, nil)

	_, err := m.DiskForNewChunk()
	require.Error(t, err)
	assert.Equal(t, sfserr.NOSPACE, sfserr.StatusOf(err))
}

func TestManager_DiskForNewChunk_ToleratesDiskGoingReadOnlyBetweenQueries(t *testing.T) {
	a, b := NewDisk("/a"), NewDisk("/b")
	m := NewManager([]*Disk{a, b}, nil)

	first, err := m.DiskForNewChunk()
	require.NoError(t, err)

	first.SetReadOnly(true)

	second, err := m.DiskForNewChunk()
	require.NoError(t, err)
	assert.NotSame(t, first, second, "a disk turning read-only must be excluded from the very next query")
}

func TestManager_AddAndRemoveDisk(t *testing.T) {
	a := NewDisk("/a")
	m := NewManager(nil, nil)

	_, err := m.DiskForNewChunk()
	require.Error(t, err, "a manager with no disks at all has nothing writable")

	m.AddDisk(a)
	got, err := m.DiskForNewChunk()
	require.NoError(t, err)
	assert.Same(t, a, got)

	m.RemoveDisk("/a")
	assert.Empty(t, m.Disks())
}

func TestBalancedPolicy_TiesBreakByRegistrationOrder(t *testing.T) {
	a, b := NewDisk("/a"), NewDisk("/b")
	assert.Same(t, a, BalancedPolicy{}.Pick([]*Disk{a, b}))
}

func TestManager_DiskForNewChunk_BalancesOverManyPlacements(t *testing.T) {
	disks := []*Disk{NewDisk("/a"), NewDisk("/b"), NewDisk("/c")}
	m := NewManager(disks, nil)

	for i := 0; i < 30; i++ {
		d, err := m.DiskForNewChunk()
		require.NoError(t, err)
		d.IncrementChunkCount()
	}

	for _, d := range disks {
		assert.Equal(t, int64(10), d.ChunkCount(), "30 placements over 3 disks must split evenly")
	}
}
