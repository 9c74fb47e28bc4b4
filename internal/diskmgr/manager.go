package diskmgr

import (
	"sync"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
)

// Policy chooses one disk out of a snapshot of candidates for a new chunk.
// candidates only ever contains writable disks; Policy is free to assume
// len(candidates) > 0.
//
// Concrete policies are interchangeable ("polymorphic over {default, …}"):
// the manager holds one Policy and defers every placement decision to it.
type Policy interface {
	Pick(candidates []*Disk) *Disk
}

// BalancedPolicy is the default placement strategy: it always returns the
// writable disk with the fewest chunks, so chunk counts stay balanced
// across the pool over time. Ties are broken by registration order, which
// gives it a round-robin flavor when disks start out even.
type BalancedPolicy struct{}

// Pick implements Policy.
func (BalancedPolicy) Pick(candidates []*Disk) *Disk {
	best := candidates[0]
	for _, d := range candidates[1:] {
		if d.ChunkCount() < best.ChunkCount() {
			best = d
		}
	}
	return best
}

// Manager is the Disk Energy Manager: it holds the set of registered disks
// and a Policy, and answers DiskForNewChunk by filtering to writable disks
// and handing the rest to the policy.
type Manager struct {
	mu     sync.RWMutex
	disks  []*Disk
	policy Policy
}

// NewManager builds a Manager over the given disks using policy. A nil
// policy defaults to BalancedPolicy, the only strategy SaunaFS shipped
// historically.
func NewManager(disks []*Disk, policy Policy) *Manager {
	if policy == nil {
		policy = BalancedPolicy{}
	}
	cp := make([]*Disk, len(disks))
	copy(cp, disks)
	return &Manager{disks: cp, policy: policy}
}

// AddDisk registers a new disk, e.g. one mounted after startup.
func (m *Manager) AddDisk(d *Disk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disks = append(m.disks, d)
}

// RemoveDisk unregisters a disk by path, e.g. one unmounted at runtime.
func (m *Manager) RemoveDisk(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.disks {
		if d.Path == path {
			m.disks = append(m.disks[:i], m.disks[i+1:]...)
			return
		}
	}
}

// Disks returns a snapshot of all registered disks, writable or not.
func (m *Manager) Disks() []*Disk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make([]*Disk, len(m.disks))
	copy(cp, m.disks)
	return cp
}

// DiskForNewChunk picks a disk to receive a newly written chunk. It is
// total: it returns sfserr.NOSPACE only when no registered disk is
// currently writable, and otherwise always succeeds, even if a disk flips
// read-only in between two calls.
func (m *Manager) DiskForNewChunk() (*Disk, error) {
	m.mu.RLock()
	disks := m.disks
	m.mu.RUnlock()

	var writable []*Disk
	for _, d := range disks {
		if !d.IsReadOnly() {
			writable = append(writable, d)
		}
	}
	if len(writable) == 0 {
		return nil, sfserr.New("diskmgr.disk_for_new_chunk", sfserr.NOSPACE)
	}
	return m.policy.Pick(writable), nil
}
