// Package chunkreader implements the Chunk Reader / Plan Executor (CR): it
// turns one client read request into parallel transfers from one or more
// chunkservers, choosing sources by media-label affinity and load, issuing
// fetches in timed "waves", and allowing a configurable bandwidth overuse to
// finish a lagging tail instead of stalling the whole read on one slow peer.
package chunkreader

// Replica is one chunkserver known to hold a copy (or erasure part) of a
// chunk.
type Replica struct {
	Address    string
	MediaLabel string
	Load       int
}

// Location is everything the planner needs to know about one chunk: its
// identity and the replicas currently serving it.
type Location struct {
	ChunkID  uint64
	Version  uint32
	Replicas []Replica
}

// Locator resolves (inode, index) to a Location, consulting the master (or
// whatever authority tracks chunk placement). Implementations are expected
// to cache results themselves if that's useful; ChunkReader layers its own
// refresh-on-schedule and refresh-on-failure policy on top regardless.
type Locator interface {
	Locate(inode, index uint64) (Location, error)
}
