package jobpool

// OpKind identifies the kind of work a Job carries, in the same order as
// the original bgjobs.cc enum so op_kind values stay stable across the
// port even though nothing here depends on the numeric value.
type OpKind uint8

const (
	OpExit OpKind = iota
	OpInvalid
	OpChunkOp
	OpOpen
	OpClose
	OpRead
	OpPrefetch
	OpWrite
	OpReplicate
	OpGetBlocks
)

func (k OpKind) String() string {
	switch k {
	case OpExit:
		return "Exit"
	case OpInvalid:
		return "Invalid"
	case OpChunkOp:
		return "ChunkOp"
	case OpOpen:
		return "Open"
	case OpClose:
		return "Close"
	case OpRead:
		return "Read"
	case OpPrefetch:
		return "Prefetch"
	case OpWrite:
		return "Write"
	case OpReplicate:
		return "Replicate"
	case OpGetBlocks:
		return "GetBlocks"
	default:
		return "Unknown"
	}
}

// ChunkPartType narrows the chunk-part identity kind (plain / EC data /
// EC parity); the core never interprets its value beyond threading it
// through to the collaborator ChunkStore, per spec.md's out-of-scope
// erasure-coding Non-goal.
type ChunkPartType uint8

// ChunkOpArgs is the OP_CHUNKOP payload: create/duplicate/truncate/delete
// chunk-part operations, distinguished by the ChunkStore implementation
// from the combination of chunk/copy identities it receives.
type ChunkOpArgs struct {
	ChunkID     uint64
	Version     uint32
	NewVersion  uint32
	CopyChunkID uint64
	CopyVersion uint32
	Length      uint32
	ChunkType   ChunkPartType
}

// OpenCloseArgs is the OP_OPEN/OP_CLOSE payload.
type OpenCloseArgs struct {
	ChunkID   uint64
	ChunkType ChunkPartType
}

// ReadArgs is the OP_READ payload.
type ReadArgs struct {
	ChunkID                 uint64
	Version                 uint32
	ChunkType               ChunkPartType
	Offset, Size            uint32
	MaxBlocksToBeReadBehind uint32
	BlocksToBeReadAhead     uint32
	PerformOpen             bool
	// Into receives the read bytes; the caller owns and sizes it, mirroring
	// the original's caller-supplied OutputBuffer.
	Into []byte
}

// PrefetchArgs is the OP_PREFETCH payload.
type PrefetchArgs struct {
	ChunkID      uint64
	Version      uint32
	ChunkType    ChunkPartType
	FirstBlock   uint32
	NrOfBlocks   uint32
}

// WriteArgs is the OP_WRITE payload.
type WriteArgs struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    ChunkPartType
	BlockNum     uint16
	Offset, Size uint32
	CRC          uint32
	Buffer       []byte
}

// GetBlocksArgs is the OP_GET_BLOCKS payload.
type GetBlocksArgs struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    ChunkPartType
}

// ReplicateArgs is the OP_REPLICATE payload.
type ReplicateArgs struct {
	ChunkID      uint64
	ChunkVersion uint32
	ChunkType    ChunkPartType
	Sources      []byte
}
