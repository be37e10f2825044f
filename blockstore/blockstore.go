package blockstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mezonai/blockarchive/block"
	"github.com/mezonai/blockarchive/common"
	chainerrors "github.com/mezonai/blockarchive/errors"
	"github.com/mezonai/blockarchive/logx"
)

// FileStore keeps one file per block, named after the block id. Files are never
// replaced or removed once published.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir. The directory is created on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, blockFileName(id))
}

// Save writes b under id. The block is staged in a hidden file, fsynced, then
// published with a no-replace rename so readers never see a partial block and an
// existing block is never overwritten.
func (s *FileStore) Save(b *block.Block, id string) error {
	if b == nil {
		return s.persistenceErr(id, nil, "nil block", errors.New("block cannot be nil"))
	}
	if err := validateID(id); err != nil {
		return s.persistenceErr(id, b, "invalid block id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return s.persistenceErr(id, b, "create block dir", err)
	}

	final := s.path(id)
	if _, err := os.Lstat(final); err == nil {
		return s.duplicateErr(id, b)
	} else if !os.IsNotExist(err) {
		return s.persistenceErr(id, b, "stat block file", err)
	}

	data, err := b.Encode()
	if err != nil {
		return s.persistenceErr(id, b, "encode block", err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", id, uuid.NewString()))
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return s.persistenceErr(id, b, "stage block", err)
	}

	if err := publishNoReplace(tmp, final); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, os.ErrExist) {
			return s.duplicateErr(id, b)
		}
		return s.persistenceErr(id, b, "publish block", err)
	}

	if err := syncBlockDir(s.dir); err != nil {
		// the save was never reported, so the block is not part of the chain yet
		if rmErr := removeFile(final); rmErr != nil && !os.IsNotExist(rmErr) {
			// still visible to the next head scan: treat it as saved so its records get archived
			logx.Error("BLOCKSTORE", "Failed to withdraw unsynced block ", id, ": ", rmErr, " (sync error: ", err, ")")
			return nil
		}
		return s.persistenceErr(id, b, "sync block dir", err)
	}

	logx.Info("BLOCKSTORE", "Saved block ", common.ShortID(id), " at height ", b.Header.Height, " (", len(data), " bytes)")
	return nil
}

// Has reports whether a block with id is stored.
func (s *FileStore) Has(id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat block %s", id)
}

// Load reads the block stored under id.
func (s *FileStore) Load(id string) (*block.Block, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return readBlock(s.dir, id)
}

// List returns stored block ids in directory order.
func (s *FileStore) List() ([]string, error) {
	return listBlockIDs(s.dir)
}

// Size returns the encoded size of the block stored under id.
func (s *FileStore) Size(id string) (int64, error) {
	fi, err := os.Stat(s.path(id))
	if err != nil {
		return 0, errors.Wrapf(err, "stat block %s", id)
	}
	return fi.Size(), nil
}

func (s *FileStore) duplicateErr(id string, b *block.Block) error {
	return chainerrors.NewError(chainerrors.ErrCodeDuplicateBlockID, "block already stored").
		WithStore(s.dir).
		WithKey(id).
		WithHeight(b.Header.Height)
}

func (s *FileStore) persistenceErr(id string, b *block.Block, msg string, err error) error {
	ce := chainerrors.NewError(chainerrors.ErrCodePersistenceFailure, "%s", msg).
		WithStore(s.dir).
		WithKey(id).
		Wrap(err)
	if b != nil {
		ce.WithHeight(b.Header.Height)
	}
	return ce
}

func validateID(id string) error {
	if id == "" {
		return errors.New("empty block id")
	}
	if !common.IsHashHex(id) {
		return errors.Errorf("block id %q is not a hex SHA-256 digest", id)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
