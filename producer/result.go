package producer

import (
	"fmt"

	chainerrors "github.com/mezonai/blockarchive/errors"
)

// CycleResult reports what one cycle did. BlocksCreated is 1 whenever a block was
// saved, even if archiving afterwards failed; Err then holds the archive failure.
// Height is the new block's height, or the head height seen when no block was made.
type CycleResult struct {
	BlocksCreated int
	RecordCount   int
	BlockID       string
	Height        int64
	Err           error
}

// Empty reports the "nothing to do" outcome.
func (r CycleResult) Empty() bool {
	return chainerrors.IsCode(r.Err, chainerrors.ErrCodeEmptyPool)
}

// OK reports a cycle that created a block and archived every record.
func (r CycleResult) OK() bool {
	return r.Err == nil && r.BlocksCreated == 1
}

// Code is the error kind, "" on success or for errors outside the known kinds.
func (r CycleResult) Code() chainerrors.ChainErrorCode {
	return chainerrors.CodeOf(r.Err)
}

func (r CycleResult) String() string {
	switch {
	case r.OK():
		return fmt.Sprintf("created block %s at height %d with %d records", r.BlockID, r.Height, r.RecordCount)
	case r.Empty():
		return "no pending records"
	case r.BlocksCreated == 1:
		return fmt.Sprintf("created block %s at height %d with %d records, but: %v", r.BlockID, r.Height, r.RecordCount, r.Err)
	default:
		return fmt.Sprintf("no block created: %v", r.Err)
	}
}
