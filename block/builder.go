package block

import (
	"fmt"
	"time"

	"github.com/mezonai/blockarchive/common"
	"github.com/mezonai/blockarchive/types"
)

// Builder assembles blocks from a parent reference and a batch of records.
type Builder struct {
	clock Clock
}

type BuilderOption func(*Builder)

// WithClock overrides the wall clock used for header timestamps.
func WithClock(clock Clock) BuilderOption {
	return func(b *Builder) {
		b.clock = clock
	}
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build hashes the records in the given order into a body, stamps a header at
// height linking to previousHash, and returns the block with its id.
// Record content is not validated.
func (bd *Builder) Build(records []types.Record, previousHash string, height int64) (*Block, string, error) {
	body := types.Contents(records)

	bodyBytes, err := encodeBody(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body at height %d: %w", height, err)
	}

	b := &Block{
		Header: BlockHeader{
			Height:        height,
			Timestamp:     bd.clock().Unix(),
			PreviousBlock: previousHash,
			Hash:          common.Hash(bodyBytes),
		},
		Body: body,
	}

	id, err := b.ComputeID()
	if err != nil {
		return nil, "", fmt.Errorf("block at height %d: %w", height, err)
	}
	return b, id, nil
}
