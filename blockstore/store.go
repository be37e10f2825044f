package blockstore

import (
	"github.com/mezonai/blockarchive/block"
)

// Store is what the producer needs from block persistence: write once, never replace.
type Store interface {
	Save(b *block.Block, id string) error
	Has(id string) (bool, error)
	Load(id string) (*block.Block, error)
}

// HeadReader reports the current chain head.
type HeadReader interface {
	GetHead() (*Head, error)
}
