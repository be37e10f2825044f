package blockstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mezonai/blockarchive/block"
	chainerrors "github.com/mezonai/blockarchive/errors"
)

// isBlockFile filters staging files (dot-prefixed) and anything that is not a block.
func isBlockFile(name string) bool {
	return !strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, blockFileExt) &&
		len(name) > len(blockFileExt)
}

func blockFileName(id string) string {
	return id + blockFileExt
}

// listBlockIDs returns stored block ids in directory enumeration order. A missing
// directory is an empty store.
func listBlockIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read block dir %s", dir)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isBlockFile(e.Name()) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), blockFileExt))
	}
	return ids, nil
}

func readBlock(dir, id string) (*block.Block, error) {
	path := filepath.Join(dir, blockFileName(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read file %s", path)
	}
	b, err := block.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return b, nil
}

// scanBlocks decodes every stored block and hands it to fn. Any unreadable block
// aborts the scan with CorruptChainState; nothing is skipped.
func scanBlocks(dir string, fn func(id string, b *block.Block) error) error {
	ids, err := listBlockIDs(dir)
	if err != nil {
		return chainerrors.NewError(chainerrors.ErrCodeCorruptChainState, "cannot enumerate blocks").
			WithStore(dir).
			Wrap(err)
	}

	for _, id := range ids {
		b, err := readBlock(dir, id)
		if err != nil {
			return chainerrors.NewError(chainerrors.ErrCodeCorruptChainState, "unreadable block").
				WithStore(dir).
				WithKey(id).
				Wrap(err)
		}
		if err := fn(id, b); err != nil {
			return err
		}
	}
	return nil
}
