package blockstore

import (
	"sort"
	"strings"

	"github.com/mezonai/blockarchive/block"
	chainerrors "github.com/mezonai/blockarchive/errors"
)

// Indexer finds the chain head by scanning the block directory.
type Indexer struct {
	dir string
}

func NewIndexer(dir string) *Indexer {
	return &Indexer{dir: dir}
}

// GetHead returns the block with the maximum height together with its id, taken
// from its file name. An empty or missing store yields an empty head. Unreadable
// blocks and ties at the maximum height are CorruptChainState: picking a head in
// either case could link the next block to the wrong parent.
func (ix *Indexer) GetHead() (*Head, error) {
	head := emptyHead()
	var tied []string

	err := scanBlocks(ix.dir, func(id string, b *block.Block) error {
		switch h := b.Header.Height; {
		case h > head.Height:
			head = &Head{Block: b, Height: h, ID: id}
			tied = nil
		case h == head.Height:
			if tied == nil {
				tied = []string{head.ID}
			}
			tied = append(tied, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(tied) > 0 {
		sort.Strings(tied)
		return nil, chainerrors.NewError(chainerrors.ErrCodeCorruptChainState, "%d blocks share the maximum height", len(tied)).
			WithStore(ix.dir).
			WithKey(strings.Join(tied, ",")).
			WithHeight(head.Height)
	}
	return head, nil
}
