package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/mezonai/blockarchive/block"
	"github.com/mezonai/blockarchive/db"
	"github.com/mezonai/blockarchive/logx"
)

// HeightIndex maps height to block id in a key-value database. It is a lookup aid
// only; the block files stay authoritative and Rebuild can always regenerate it.
type HeightIndex struct {
	provider db.IterableProvider
}

func NewHeightIndex(provider db.IterableProvider) (*HeightIndex, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &HeightIndex{provider: provider}, nil
}

// OpenHeightIndex opens a LevelDB backed index in dir.
func OpenHeightIndex(dir string) (*HeightIndex, error) {
	provider, err := db.NewLevelDBProvider(dir)
	if err != nil {
		return nil, err
	}
	return NewHeightIndex(provider)
}

// heightToKey converts a height to an index key; big endian keeps keys in height order
func heightToKey(height int64) []byte {
	key := make([]byte, len(PrefixHeight)+8)
	copy(key, PrefixHeight)
	binary.BigEndian.PutUint64(key[len(PrefixHeight):], uint64(height))
	return key
}

func metaKey(name string) []byte {
	return []byte(PrefixIndexMeta + name)
}

// Record stores height -> id and advances the recorded head if height is above it.
func (hi *HeightIndex) Record(height int64, id string) error {
	if height < 0 {
		return fmt.Errorf("invalid height %d", height)
	}

	headHeight, _, ok, err := hi.Head()
	if err != nil {
		return err
	}

	batch := hi.provider.Batch()
	batch.Put(heightToKey(height), []byte(id))
	if !ok || height > headHeight {
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(height))
		batch.Put(metaKey(IndexMetaKeyHead), value)
		batch.Put(metaKey(IndexMetaKeyHeadID), []byte(id))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to record height %d: %w", height, err)
	}
	return nil
}

// Lookup returns the id stored for height.
func (hi *HeightIndex) Lookup(height int64) (string, bool, error) {
	if height < 0 {
		return "", false, nil
	}
	value, err := hi.provider.Get(heightToKey(height))
	if err != nil {
		return "", false, fmt.Errorf("failed to get height %d: %w", height, err)
	}
	if value == nil {
		return "", false, nil
	}
	return string(value), true, nil
}

// Head returns the highest recorded height and its id.
func (hi *HeightIndex) Head() (int64, string, bool, error) {
	value, err := hi.provider.Get(metaKey(IndexMetaKeyHead))
	if err != nil {
		return NoHeight, "", false, fmt.Errorf("failed to get index head: %w", err)
	}
	if value == nil {
		return NoHeight, "", false, nil
	}
	if len(value) != 8 {
		return NoHeight, "", false, fmt.Errorf("invalid index head value length: %d", len(value))
	}

	id, err := hi.provider.Get(metaKey(IndexMetaKeyHeadID))
	if err != nil {
		return NoHeight, "", false, fmt.Errorf("failed to get index head id: %w", err)
	}
	return int64(binary.BigEndian.Uint64(value)), string(id), true, nil
}

// Rebuild drops every entry and repopulates the index from the block files in dir.
// It returns the number of blocks indexed.
func (hi *HeightIndex) Rebuild(dir string) (int, error) {
	var stale [][]byte
	for _, prefix := range []string{PrefixHeight, PrefixIndexMeta} {
		err := hi.provider.IteratePrefix([]byte(prefix), func(key, _ []byte) bool {
			stale = append(stale, append([]byte(nil), key...))
			return true
		})
		if err != nil {
			return 0, fmt.Errorf("failed to list index entries: %w", err)
		}
	}

	batch := hi.provider.Batch()
	for _, key := range stale {
		batch.Delete(key)
	}

	count := 0
	head := NoHeight
	headID := ""
	err := scanBlocks(dir, func(id string, b *block.Block) error {
		batch.Put(heightToKey(b.Header.Height), []byte(id))
		if b.Header.Height > head {
			head = b.Header.Height
			headID = id
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if head != NoHeight {
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(head))
		batch.Put(metaKey(IndexMetaKeyHead), value)
		batch.Put(metaKey(IndexMetaKeyHeadID), []byte(headID))
	}
	if err := batch.Write(); err != nil {
		return 0, fmt.Errorf("failed to write rebuilt index: %w", err)
	}

	logx.Info("HEIGHT_INDEX", "Rebuilt index with ", count, " blocks, head height ", head)
	return count, nil
}

// Close closes the underlying database provider
func (hi *HeightIndex) Close() error {
	return hi.provider.Close()
}
