package mempool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mezonai/blockarchive/jsonx"
	"github.com/mezonai/blockarchive/logx"
	"github.com/mezonai/blockarchive/types"
)

// RecordPool reads pending records from a directory, one file per record. The file
// name is the record key.
type RecordPool struct {
	dir string
}

// NewRecordPool creates a pool over dir.
func NewRecordPool(dir string) *RecordPool {
	return &RecordPool{dir: dir}
}

func (p *RecordPool) Dir() string {
	return p.dir
}

// LoadPending returns every pending record with the keys it was read from, both in
// directory enumeration order. The order is kept as is all the way into the block
// body. An empty pool is not an error; the caller checks for zero records.
// Any entry that cannot be read or parsed fails the whole load.
func (p *RecordPool) LoadPending() ([]types.Record, []string, error) {
	keys, err := p.pendingKeys()
	if err != nil {
		return nil, nil, err
	}

	records := make([]types.Record, 0, len(keys))
	for _, key := range keys {
		content, err := p.load(key)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, types.Record{Key: key, Content: content})
	}

	logx.Debug("MEMPOOL", "Loaded ", len(records), " pending records from ", p.dir)
	return records, keys, nil
}

// Len returns the number of pending entries.
func (p *RecordPool) Len() (int, error) {
	keys, err := p.pendingKeys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Add deposits a record into the pool under key. The entry is staged and renamed
// into place so LoadPending never sees a half written record; an existing key is
// refused.
func (p *RecordPool) Add(key string, content types.Value) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create pending dir %s", p.dir)
	}

	final := filepath.Join(p.dir, key)
	if _, err := os.Lstat(final); err == nil {
		return fmt.Errorf("pending record %s already exists", key)
	}

	data, err := jsonx.MarshalCanonical(content)
	if err != nil {
		return errors.Wrapf(err, "encode record %s", key)
	}

	tmp := filepath.Join(p.dir, fmt.Sprintf(".%s.%s.tmp", key, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "stage record %s", key)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "publish record %s", key)
	}
	return nil
}

func (p *RecordPool) pendingKeys() ([]string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create pending dir %s", p.dir)
	}

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read pending dir %s", p.dir)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (p *RecordPool) load(key string) (types.Value, error) {
	path := filepath.Join(p.dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read pending record %s", path)
	}
	// the encoder rewrites invalid bytes as \ufffd, so such a body would not rehash the same after reload
	if !utf8.Valid(data) {
		return nil, errors.Errorf("parse pending record %s: invalid UTF-8", path)
	}

	var content types.Value
	if err := jsonx.UnmarshalCanonical(data, &content); err != nil {
		return nil, errors.Wrapf(err, "parse pending record %s", path)
	}
	return content, nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid record key %q", key)
	}
	if strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("record key %q is not a valid file name", key)
	}
	return nil
}
