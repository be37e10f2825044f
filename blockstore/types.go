package blockstore

import (
	"github.com/mezonai/blockarchive/block"
)

const (
	blockFileExt = ".json"

	// NoHeight is the head height of an empty chain.
	NoHeight int64 = -1
)

// Head is the block holding the maximum height. Block is nil when the store is empty,
// in which case Height is NoHeight and ID is block.GenesisPrevHash.
type Head struct {
	Block  *block.Block
	Height int64
	ID     string
}

// Empty reports whether no block has been stored yet.
func (h *Head) Empty() bool {
	return h.Block == nil
}

// NextHeight is the height the next block gets.
func (h *Head) NextHeight() int64 {
	return h.Height + 1
}

func emptyHead() *Head {
	return &Head{Height: NoHeight, ID: block.GenesisPrevHash}
}
