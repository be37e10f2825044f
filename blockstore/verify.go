package blockstore

import (
	"sort"

	"github.com/mezonai/blockarchive/block"
	chainerrors "github.com/mezonai/blockarchive/errors"
)

// VerifyReport summarizes a successful chain verification.
type VerifyReport struct {
	Blocks int
	Head   *Head
}

type storedEntry struct {
	id string
	b  *block.Block
}

// Verify checks the whole store: every file name matches its header hash, every
// body matches the header's body hash, heights run 0..n-1 without gaps or ties, and
// each block points at the block one height below (genesis points at
// block.GenesisPrevHash). The first violation is returned as CorruptChainState.
func Verify(dir string) (*VerifyReport, error) {
	var entries []storedEntry
	err := scanBlocks(dir, func(id string, b *block.Block) error {
		entries = append(entries, storedEntry{id: id, b: b})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return &VerifyReport{Head: emptyHead()}, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].b.Header.Height < entries[j].b.Header.Height
	})

	corrupt := func(e storedEntry, format string, args ...interface{}) *chainerrors.ChainError {
		return chainerrors.NewError(chainerrors.ErrCodeCorruptChainState, format, args...).
			WithStore(dir).
			WithKey(e.id).
			WithHeight(e.b.Header.Height)
	}

	prevID := block.GenesisPrevHash
	for i, e := range entries {
		h := e.b.Header
		if h.Height != int64(i) {
			if i > 0 && h.Height == entries[i-1].b.Header.Height {
				return nil, corrupt(e, "height shared with block %s", entries[i-1].id)
			}
			return nil, corrupt(e, "expected height %d", i)
		}

		id, err := e.b.ComputeID()
		if err != nil {
			return nil, corrupt(e, "cannot hash header").Wrap(err)
		}
		if id != e.id {
			return nil, corrupt(e, "header hashes to %s", id)
		}

		bodyHash, err := e.b.ComputeBodyHash()
		if err != nil {
			return nil, corrupt(e, "cannot hash body").Wrap(err)
		}
		if bodyHash != h.Hash {
			return nil, corrupt(e, "body hashes to %s, header says %s", bodyHash, h.Hash)
		}

		if h.PreviousBlock != prevID {
			return nil, corrupt(e, "previous block is %s, expected %s", h.PreviousBlock, prevID)
		}
		prevID = e.id
	}

	last := entries[len(entries)-1]
	return &VerifyReport{
		Blocks: len(entries),
		Head:   &Head{Block: last.b, Height: last.b.Header.Height, ID: last.id},
	}, nil
}
