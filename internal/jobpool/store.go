package jobpool

import (
	"context"

	"github.com/leil-io/saunafs-chunkserver-core/internal/sfserr"
)

// ChunkStore is the collaborator the job pool dispatches disk work to.
// Its implementation (chunk file layout, CRC verification, erasure coding)
// is out of scope for the core (spec.md §1 Non-goals); the pool only needs
// something that executes one op and returns a Status.
type ChunkStore interface {
	ChunkOp(ctx context.Context, args ChunkOpArgs) sfserr.Status
	Open(ctx context.Context, args OpenCloseArgs) sfserr.Status
	Close(ctx context.Context, args OpenCloseArgs) sfserr.Status
	Read(ctx context.Context, args ReadArgs) (n int, status sfserr.Status)
	Prefetch(ctx context.Context, args PrefetchArgs) sfserr.Status
	Write(ctx context.Context, args WriteArgs) sfserr.Status
	GetBlocks(ctx context.Context, args GetBlocksArgs) (blocks []uint16, status sfserr.Status)
	Replicate(ctx context.Context, args ReplicateArgs) sfserr.Status
}
