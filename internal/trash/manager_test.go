package trash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
	"github.com/leil-io/saunafs-chunkserver-core/internal/cfg"
)

func testConfig() cfg.TrashConfig {
	c := cfg.Default()
	return c.Trash
}

func TestManager_MoveToTrash_RenamesUnderTrashDir(t *testing.T) {
	disk := t.TempDir()
	sub := filepath.Join(disk, "00", "chunk_0000001.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(sub), 0o755))
	require.NoError(t, os.WriteFile(sub, []byte("data"), 0o644))

	sc := clock.NewSimulatedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	m := NewManager(testConfig(), sc)

	require.NoError(t, m.MoveToTrash(sub, disk, sc.Now()))

	_, err := os.Stat(sub)
	assert.True(t, os.IsNotExist(err), "original file must be gone")

	expected := filepath.Join(disk, TrashDirname, "00", "chunk_0000001.dat.20260102030405")
	_, err = os.Stat(expected)
	assert.NoError(t, err, "file must exist at the timestamped trash path")

	paths := m.Index().DiskPaths()
	assert.Equal(t, []string{disk}, paths)
}

func TestManager_MoveToTrash_MissingFileReturnsError(t *testing.T) {
	disk := t.TempDir()
	sc := clock.NewSimulatedClock(time.Now())
	m := NewManager(testConfig(), sc)

	err := m.MoveToTrash(filepath.Join(disk, "nope.dat"), disk, sc.Now())
	assert.Error(t, err)
}

func TestManager_Init_RebuildsIndexFromExistingTrash(t *testing.T) {
	disk := t.TempDir()
	trashSub := filepath.Join(disk, TrashDirname, "00")
	require.NoError(t, os.MkdirAll(trashSub, 0o755))
	trashedFile := filepath.Join(trashSub, "chunk_0000002.dat.20250601120000")
	require.NoError(t, os.WriteFile(trashedFile, []byte("x"), 0o644))
	// A non-conforming file must be skipped, not crash init.
	require.NoError(t, os.WriteFile(filepath.Join(trashSub, "garbage"), []byte("x"), 0o644))

	sc := clock.NewSimulatedClock(time.Now())
	m := NewManager(testConfig(), sc)
	require.NoError(t, m.Init(disk))

	entries := m.Index().OlderFiles(disk, 0)
	require.Len(t, entries, 1)
	assert.Equal(t, trashedFile, entries[0].FilePath)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), entries[0].DeletionTime)
}

func TestManager_Init_IsIdempotent(t *testing.T) {
	disk := t.TempDir()
	sub := filepath.Join(disk, "chunk_1.dat")
	require.NoError(t, os.WriteFile(sub, []byte("x"), 0o644))

	sc := clock.NewSimulatedClock(time.Now())
	m := NewManager(testConfig(), sc)
	require.NoError(t, m.MoveToTrash(sub, disk, sc.Now()))
	before := m.Index().OlderFiles(disk, 0)

	require.NoError(t, m.Init(disk))
	after := m.Index().OlderFiles(disk, 0)

	assert.Equal(t, before, after)
}

func TestManager_RemoveExpiredFiles_RespectsBulkSize(t *testing.T) {
	disk := t.TempDir()
	sc := clock.NewSimulatedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewManager(testConfig(), sc)

	for i := 0; i < 5; i++ {
		name := filepath.Join(disk, "chunk_"+string(rune('a'+i))+".dat")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
		require.NoError(t, m.MoveToTrash(name, disk, sc.Now()))
		sc.AdvanceTime(time.Second)
	}

	// All 5 are now in the past relative to "now"; only 2 should be
	// permanently removed per the bulk cap.
	m.RemoveExpiredFiles(sc.Now(), 2)

	remaining := m.Index().OlderFiles(disk, 0)
	assert.Len(t, remaining, 3)
}

func TestManager_MakeSpaceOnDisk_StopsWhenTrashExhausted(t *testing.T) {
	disk := t.TempDir()
	sc := clock.NewSimulatedClock(time.Now())
	m := NewManager(testConfig(), sc)

	name := filepath.Join(disk, "chunk.dat")
	require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	require.NoError(t, m.MoveToTrash(name, disk, sc.Now()))

	// An unreachable threshold forces make-space to drain everything it can
	// and then give up instead of looping forever.
	m.MakeSpaceOnDisk(disk, 1<<40, 1)

	assert.Empty(t, m.Index().OlderFiles(disk, 0))
}

func TestManager_CleanEmptyFolders_PrunesOnlyEmptyTrashSubdirs(t *testing.T) {
	disk := t.TempDir()
	emptyDir := filepath.Join(disk, TrashDirname, "00")
	nonEmptyDir := filepath.Join(disk, TrashDirname, "01")
	require.NoError(t, os.MkdirAll(emptyDir, 0o755))
	require.NoError(t, os.MkdirAll(nonEmptyDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nonEmptyDir, "chunk.dat.20250101000000"), []byte("x"), 0o644))

	sc := clock.NewSimulatedClock(time.Now())
	config := testConfig()
	config.CleanEmptyFolders = true
	m := NewManager(config, sc)
	require.NoError(t, m.Init(disk))

	m.CleanEmptyFolders()

	_, err := os.Stat(emptyDir)
	assert.True(t, os.IsNotExist(err), "empty trash subdir must be pruned")
	_, err = os.Stat(nonEmptyDir)
	assert.NoError(t, err, "non-empty trash subdir must survive")
}

func TestManager_CleanEmptyFolders_DisabledByConfig(t *testing.T) {
	disk := t.TempDir()
	emptyDir := filepath.Join(disk, TrashDirname, "00")
	require.NoError(t, os.MkdirAll(emptyDir, 0o755))

	sc := clock.NewSimulatedClock(time.Now())
	config := testConfig()
	config.CleanEmptyFolders = false
	m := NewManager(config, sc)
	require.NoError(t, m.Init(disk))

	m.CleanEmptyFolders()

	_, err := os.Stat(emptyDir)
	assert.NoError(t, err, "pruning must be a no-op when disabled")
}

func TestManager_Tick_RunsFullGCPass(t *testing.T) {
	disk := t.TempDir()
	sc := clock.NewSimulatedClock(time.Now())
	config := testConfig()
	config.ExpirationSeconds = 1
	config.FreeSpaceThresholdGB = 0
	m := NewManager(config, sc)

	name := filepath.Join(disk, "chunk.dat")
	require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	require.NoError(t, m.MoveToTrash(name, disk, sc.Now()))

	sc.AdvanceTime(2 * time.Second)
	m.Tick()

	assert.Empty(t, m.Index().OlderFiles(disk, 0))
}
