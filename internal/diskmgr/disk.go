// Package diskmgr implements the Disk Energy Manager (DEM): the policy that
// decides which local disk a freshly-written chunk lands on. The contract
// exposed to the rest of the core is a single operation, DiskForNewChunk,
// that must be total (never fail while any writable disk exists) and must
// tolerate disks flipping read-only between queries.
package diskmgr

import "sync/atomic"

// Disk is one local chunk-storage volume under the chunkserver's control.
// ChunkCount and ReadOnly are updated concurrently by the I/O path, so both
// are plain atomics rather than fields guarded by the manager's mutex.
type Disk struct {
	Path string

	chunkCount int64
	readOnly   int32
}

// NewDisk registers a disk at path, writable by default.
func NewDisk(path string) *Disk {
	return &Disk{Path: path}
}

// ChunkCount returns the disk's current chunk count.
func (d *Disk) ChunkCount() int64 { return atomic.LoadInt64(&d.chunkCount) }

// IncrementChunkCount records that one more chunk now lives on this disk.
// Called once a chunk placement on this disk actually succeeds.
func (d *Disk) IncrementChunkCount() { atomic.AddInt64(&d.chunkCount, 1) }

// DecrementChunkCount records that a chunk has left this disk (deleted or
// moved to trash).
func (d *Disk) DecrementChunkCount() { atomic.AddInt64(&d.chunkCount, -1) }

// IsReadOnly reports whether the disk currently refuses new writes.
func (d *Disk) IsReadOnly() bool { return atomic.LoadInt32(&d.readOnly) != 0 }

// SetReadOnly flips the disk's read-only flag, e.g. after a failed write or
// an operator-triggered drain.
func (d *Disk) SetReadOnly(readOnly bool) {
	var v int32
	if readOnly {
		v = 1
	}
	atomic.StoreInt32(&d.readOnly, v)
}
