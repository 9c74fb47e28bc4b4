// Package trash implements the Chunk Trash Index and Manager: chunks are
// renamed into a per-disk .trash.bin directory instead of being unlinked,
// indexed by deletion time so a periodic tick can expire them or reclaim
// space under a free-space threshold.
package trash

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Entry is one trashed file, keyed by the time it was moved to trash.
type Entry struct {
	DeletionTime time.Time
	FilePath     string
}

// Index tracks trashed files per disk, ordered by deletion time within each
// disk so expiry and space-recovery scans can walk oldest-first.
//
// Unlike the original's std::multimap<time_t, string>, Remove needs a disk
// path to locate the right bucket; Add rejects a (deletionTime, filePath)
// pair that already exists on a *different* disk rather than silently
// colliding, resolving the ambiguity the single-disk Remove(time, path)
// overload otherwise leaves unspecified.
type Index struct {
	mu    sync.Mutex
	disks map[string][]Entry  // kept sorted by DeletionTime
	owner map[string]string   // filePath -> diskPath, for the disk-less Remove
}

// NewIndex returns an empty trash index.
func NewIndex() *Index {
	return &Index{
		disks: make(map[string][]Entry),
		owner: make(map[string]string),
	}
}

// Reset clears all entries tracked for diskPath, used when a disk is
// (re-)initialized and its trash directory rescanned from disk.
func (idx *Index) Reset(diskPath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetLocked(diskPath)
}

func (idx *Index) resetLocked(diskPath string) {
	for _, e := range idx.disks[diskPath] {
		delete(idx.owner, e.FilePath)
	}
	idx.disks[diskPath] = nil
}

// Add records a trashed file. It returns an error if filePath is already
// tracked under a different disk, so no (deletionTime, filePath) pair can
// exist on two disks; adding the same pair again under the same disk is
// accepted and records a second entry.
func (idx *Index) Add(deletionTime time.Time, filePath, diskPath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if existing, ok := idx.owner[filePath]; ok && existing != diskPath {
		return fmt.Errorf("trash: %q already tracked under disk %q", filePath, existing)
	}

	entries := idx.disks[diskPath]
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].DeletionTime.After(deletionTime) || entries[i].DeletionTime.Equal(deletionTime)
	})
	entries = append(entries, Entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = Entry{DeletionTime: deletionTime, FilePath: filePath}
	idx.disks[diskPath] = entries
	idx.owner[filePath] = diskPath
	return nil
}

// Remove drops a single entry identified by disk, deletion time and path.
func (idx *Index) Remove(diskPath string, deletionTime time.Time, filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(diskPath, deletionTime, filePath)
}

func (idx *Index) removeLocked(diskPath string, deletionTime time.Time, filePath string) {
	entries := idx.disks[diskPath]
	for i, e := range entries {
		if e.FilePath == filePath && e.DeletionTime.Equal(deletionTime) {
			idx.disks[diskPath] = append(entries[:i], entries[i+1:]...)
			delete(idx.owner, filePath)
			return
		}
	}
}

// RemoveByPath removes an entry by deletion time and path alone, looking up
// its owning disk first. It is a no-op if filePath is not tracked.
func (idx *Index) RemoveByPath(deletionTime time.Time, filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	diskPath, ok := idx.owner[filePath]
	if !ok {
		return
	}
	idx.removeLocked(diskPath, deletionTime, filePath)
}

// DiskEntries maps a disk path to the trash entries expired/selected on it.
type DiskEntries map[string][]Entry

// ExpiredFiles returns entries across all disks whose deletion time is at or
// before timeLimit, oldest first per disk, capped at bulkSize total entries
// (0 means unlimited).
func (idx *Index) ExpiredFiles(timeLimit time.Time, bulkSize int) DiskEntries {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	result := make(DiskEntries)
	count := 0
	for diskPath, entries := range idx.disks {
		var picked []Entry
		for _, e := range entries {
			if e.DeletionTime.After(timeLimit) {
				break
			}
			picked = append(picked, e)
			count++
			if bulkSize != 0 && count >= bulkSize {
				break
			}
		}
		result[diskPath] = picked
		if bulkSize != 0 && count >= bulkSize {
			break
		}
	}
	return result
}

// OlderFiles returns up to removalStepSize of the oldest entries tracked on
// diskPath (0 means unlimited), used by make-space recovery.
func (idx *Index) OlderFiles(diskPath string, removalStepSize int) []Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.disks[diskPath]
	if removalStepSize == 0 || removalStepSize >= len(entries) {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]Entry, removalStepSize)
	copy(out, entries[:removalStepSize])
	return out
}

// DiskPaths returns every disk path currently tracked by the index.
func (idx *Index) DiskPaths() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	paths := make([]string, 0, len(idx.disks))
	for p := range idx.disks {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
