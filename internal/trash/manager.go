package trash

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
	"github.com/leil-io/saunafs-chunkserver-core/internal/cfg"
	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
	"github.com/leil-io/saunafs-chunkserver-core/internal/slogger"
)

// TrashDirname is the per-disk directory chunks are renamed into instead of
// being unlinked.
const TrashDirname = ".trash.bin"

const timeStampLayout = "20060102150405" // YYYYMMDDHHMMSS, UTC
const timeStampLength = 14

// Manager moves chunks to a per-disk trash directory and runs the periodic
// garbage-collection tick (expire by age, reclaim space, sweep empty dirs).
type Manager struct {
	index  *Index
	clock  clock.Clock
	config cfg.TrashConfig
}

// NewManager builds a trash Manager backed by its own Index. A Manager does
// not have to be a process-wide singleton: callers own their own Index per
// test or per chunkserver instance.
func NewManager(config cfg.TrashConfig, c clock.Clock) *Manager {
	return &Manager{
		index:  NewIndex(),
		clock:  c,
		config: config,
	}
}

// Index exposes the manager's backing index for inspection in tests.
func (m *Manager) Index() *Index { return m.index }

func trashDir(diskPath string) string {
	return filepath.Join(diskPath, TrashDirname)
}

func isTrashPath(path string) bool {
	return strings.Contains(path, string(filepath.Separator)+TrashDirname+string(filepath.Separator))
}

func isValidTimestamp(s string) bool {
	if len(s) != timeStampLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Init (re)discovers the trash contents of a disk: it ensures the trash
// directory exists, resets the index for diskPath, and rebuilds it by
// walking every file already sitting in the trash directory, parsing its
// trailing ".<timestamp>" suffix.
func (m *Manager) Init(diskPath string) error {
	dir := trashDir(diskPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sfserr.Wrap("trash.Init", sfserr.IO, err)
	}

	m.index.Reset(diskPath)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTrashPath(path) {
			return nil
		}
		name := d.Name()
		dot := strings.LastIndexByte(name, '.')
		if dot < 0 {
			return nil
		}
		tsStr := name[dot+1:]
		if !isValidTimestamp(tsStr) {
			slogger.Warnf("trash: skipping file with invalid timestamp suffix: %s", path)
			return nil
		}
		ts, parseErr := time.Parse(timeStampLayout, tsStr)
		if parseErr != nil {
			slogger.Warnf("trash: failed to parse deletion time from %s: %v", path, parseErr)
			return nil
		}
		if addErr := m.index.Add(ts.UTC(), path, diskPath); addErr != nil {
			slogger.Warnf("trash: %v", addErr)
		}
		return nil
	})
	if err != nil {
		return sfserr.Wrap("trash.Init", sfserr.IO, err)
	}
	return nil
}

// getMoveDestinationPath mirrors the original's prefix-rewrite: filePath must
// live under sourceRoot, and the returned path is destinationRoot plus the
// remainder, preserving any subdirectory structure under the disk root.
func getMoveDestinationPath(filePath, sourceRoot, destinationRoot string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("trash: %q is not under disk root %q", filePath, sourceRoot)
	}
	return filepath.Join(destinationRoot, rel), nil
}

// MoveToTrash renames filePath (which must live under diskPath) into
// diskPath's trash directory, tagging it with deletionTime, and records the
// move in the index at the whole-second precision the file name carries, so
// a later Init rebuilds the same entry.
func (m *Manager) MoveToTrash(filePath, diskPath string, deletionTime time.Time) error {
	if _, err := os.Stat(filePath); err != nil {
		return sfserr.Wrap("trash.MoveToTrash", sfserr.ENOENT, err)
	}

	dir := trashDir(diskPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sfserr.Wrap("trash.MoveToTrash", sfserr.IO, err)
	}

	dest, err := getMoveDestinationPath(filePath, diskPath, dir)
	if err != nil {
		return sfserr.Wrap("trash.MoveToTrash", sfserr.EINVAL, err)
	}
	dest += "." + deletionTime.UTC().Format(timeStampLayout)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return sfserr.Wrap("trash.MoveToTrash", sfserr.NOTDONE, err)
	}
	if err := os.Rename(filePath, dest); err != nil {
		slogger.Errorf("trash: failed to move %s to trash: %v", filePath, err)
		return sfserr.Wrap("trash.MoveToTrash", sfserr.NOTDONE, err)
	}

	if err := m.index.Add(deletionTime.UTC().Truncate(time.Second), dest, diskPath); err != nil {
		slogger.Warnf("trash: %v", err)
	}
	return nil
}

func removeFileFromTrash(path string) error {
	if !isTrashPath(path) {
		return fmt.Errorf("trash: refusing to remove non-trash path %q", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return nil
}

func (m *Manager) removeEntries(entries DiskEntries) {
	for diskPath, es := range entries {
		for _, e := range es {
			if err := removeFileFromTrash(e.FilePath); err != nil {
				slogger.Errorf("trash: %v", err)
				continue
			}
			m.index.Remove(diskPath, e.DeletionTime, e.FilePath)
		}
	}
}

// RemoveExpiredFiles permanently deletes every trashed file older than
// timeLimit, up to bulkSize entries (0 means unlimited) across all disks.
func (m *Manager) RemoveExpiredFiles(timeLimit time.Time, bulkSize int) {
	m.removeEntries(m.index.ExpiredFiles(timeLimit, bulkSize))
}

// availableSpaceGB reports free disk space in GiB for diskPath.
func availableSpaceGB(diskPath string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(diskPath, &stat); err != nil {
		return 0, err
	}
	const gib = 1 << 30
	return (stat.Bavail * uint64(stat.Bsize)) / gib, nil
}

// MakeSpaceOnDisk removes the oldest trashed files on diskPath,
// recoveryStep at a time, until available space reaches thresholdGB or the
// trash for that disk is exhausted.
func (m *Manager) MakeSpaceOnDisk(diskPath string, thresholdGB uint64, recoveryStep int) {
	for {
		avail, err := availableSpaceGB(diskPath)
		if err != nil {
			slogger.Errorf("trash: statfs %s: %v", diskPath, err)
			return
		}
		if avail >= thresholdGB {
			return
		}
		older := m.index.OlderFiles(diskPath, recoveryStep)
		if len(older) == 0 {
			return
		}
		m.removeEntries(DiskEntries{diskPath: older})
	}
}

// MakeSpace runs MakeSpaceOnDisk across every disk currently tracked,
// visiting disks in a fixed, deterministic order (sorted disk paths) rather
// than concurrently, since the GC tick is phrased as a single pass.
func (m *Manager) MakeSpace(thresholdGB uint64, recoveryStep int) {
	for _, diskPath := range m.index.DiskPaths() {
		m.MakeSpaceOnDisk(diskPath, thresholdGB, recoveryStep)
	}
}

// cleanEmptyDir recursively removes empty directories under directory,
// stopping at the trash directory boundary: only the trash tree itself is
// ever pruned.
func cleanEmptyDir(directory string) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			cleanEmptyDir(filepath.Join(directory, e.Name()))
		}
	}
	if !isTrashPath(directory) {
		return
	}
	entries, err = os.ReadDir(directory)
	if err != nil || len(entries) != 0 {
		return
	}
	if err := os.Remove(directory); err != nil {
		slogger.Warnf("trash: failed to remove empty folder %s: %v", directory, err)
	}
}

// CleanEmptyFolders prunes empty subdirectories left behind inside every
// tracked disk's trash directory. Gated by TrashConfig.CleanEmptyFolders.
func (m *Manager) CleanEmptyFolders() {
	if !m.config.CleanEmptyFolders {
		return
	}
	for _, diskPath := range m.index.DiskPaths() {
		cleanEmptyDir(trashDir(diskPath))
	}
}

// Tick runs one full garbage-collection pass: expire aged files, reclaim
// space under the configured threshold, then sweep empty directories.
func (m *Manager) Tick() {
	now := m.clock.Now()
	expiration := now.Add(-time.Duration(m.config.ExpirationSeconds) * time.Second)
	m.RemoveExpiredFiles(expiration, m.config.GCBatchSize)
	m.MakeSpace(uint64(m.config.FreeSpaceThresholdGB), m.config.GCSpaceRecoveryBatchSize)
	m.CleanEmptyFolders()
}
