package blockstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/blockarchive/block"
	chainerrors "github.com/mezonai/blockarchive/errors"
	"github.com/mezonai/blockarchive/types"
)

func testBuilder() *block.Builder {
	ts := time.Unix(1700000000, 0)
	return block.NewBuilder(block.WithClock(func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}))
}

func record(key string, v int) types.Record {
	return types.Record{Key: key, Content: map[string]interface{}{"v": v}}
}

// buildChain saves n linked blocks and returns their ids in height order.
func buildChain(t *testing.T, store *FileStore, n int) []string {
	t.Helper()
	builder := testBuilder()
	prev := block.GenesisPrevHash
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b, id, err := builder.Build([]types.Record{record("r", i)}, prev, int64(i))
		require.NoError(t, err)
		require.NoError(t, store.Save(b, id))
		ids = append(ids, id)
		prev = id
	}
	return ids
}

func snapshotDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out
	}
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(data)
	}
	return out
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	store := NewFileStore(dir)

	b, id, err := testBuilder().Build([]types.Record{record("r1", 1)}, block.GenesisPrevHash, 0)
	require.NoError(t, err)
	require.NoError(t, store.Save(b, id))

	files := snapshotDir(t, dir)
	require.Len(t, files, 1, "staging file must not be left behind")
	raw, ok := files[id+".json"]
	require.True(t, ok)

	want, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(want), raw)
	assert.True(t, strings.HasPrefix(raw, `{"header":{"height":0,`))

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, b.Header, loaded.Header)

	has, err := store.Has(id)
	require.NoError(t, err)
	assert.True(t, has)

	size, err := store.Size(id)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), size)
}

func TestFileStoreRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	b, id, err := testBuilder().Build([]types.Record{record("r1", 1)}, block.GenesisPrevHash, 0)
	require.NoError(t, err)
	require.NoError(t, store.Save(b, id))
	before := snapshotDir(t, dir)

	other := *b
	other.Body = []types.Value{"different"}
	err = store.Save(&other, id)
	require.Error(t, err)
	assert.True(t, chainerrors.IsCode(err, chainerrors.ErrCodeDuplicateBlockID))
	assert.Contains(t, err.Error(), id)

	assert.Equal(t, before, snapshotDir(t, dir))
}

func TestPublishNoReplaceReportsExisting(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".x.tmp")
	final := filepath.Join(dir, "x.json")
	require.NoError(t, os.WriteFile(tmp, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(final, []byte("old"), 0o644))

	err := publishNoReplace(tmp, final)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFileStorePersistenceFailure(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "blocks")
	require.NoError(t, os.WriteFile(dir, []byte("not a dir"), 0o644))
	store := NewFileStore(dir)

	b, id, err := testBuilder().Build([]types.Record{record("r1", 1)}, block.GenesisPrevHash, 0)
	require.NoError(t, err)

	err = store.Save(b, id)
	require.Error(t, err)
	assert.True(t, chainerrors.IsCode(err, chainerrors.ErrCodePersistenceFailure))
}

func stubFS(t *testing.T, remove func(string) error, sync func(string) error) {
	t.Helper()
	origRemove, origSync := removeFile, syncBlockDir
	t.Cleanup(func() { removeFile, syncBlockDir = origRemove, origSync })
	if remove != nil {
		removeFile = remove
	}
	if sync != nil {
		syncBlockDir = sync
	}
}

func TestLinkPublishIgnoresStagingCleanupFailure(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".x.tmp")
	final := filepath.Join(dir, "x.json")
	require.NoError(t, os.WriteFile(tmp, []byte("block"), 0o644))
	stubFS(t, func(string) error { return errors.New("unlink refused") }, nil)

	require.NoError(t, linkPublish(tmp, final))
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "block", string(data))
}

func TestFileStoreWithdrawsUnsyncedBlock(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	stubFS(t, nil, func(string) error { return errors.New("fsync failed") })

	b, id, err := testBuilder().Build([]types.Record{record("r1", 1)}, block.GenesisPrevHash, 0)
	require.NoError(t, err)

	err = store.Save(b, id)
	require.Error(t, err)
	assert.True(t, chainerrors.IsCode(err, chainerrors.ErrCodePersistenceFailure))
	assert.Empty(t, snapshotDir(t, dir))
}

func TestFileStoreKeepsBlockItCannotWithdraw(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	stubFS(t,
		func(string) error { return errors.New("unlink refused") },
		func(string) error { return errors.New("fsync failed") },
	)

	b, id, err := testBuilder().Build([]types.Record{record("r1", 1)}, block.GenesisPrevHash, 0)
	require.NoError(t, err)

	require.NoError(t, store.Save(b, id))
	has, err := store.Has(id)
	require.NoError(t, err)
	assert.True(t, has)

	head, err := NewIndexer(dir).GetHead()
	require.NoError(t, err)
	assert.Equal(t, id, head.ID)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())
	b, _, err := testBuilder().Build(nil, block.GenesisPrevHash, 0)
	require.NoError(t, err)

	for _, id := range []string{"", ".hidden", "../escape", `a\b`, "abc", strings.Repeat("z", 64)} {
		err := store.Save(b, id)
		assert.True(t, chainerrors.IsCode(err, chainerrors.ErrCodePersistenceFailure), id)
	}
	assert.True(t, chainerrors.IsCode(store.Save(nil, "abc"), chainerrors.ErrCodePersistenceFailure))
}

func TestGetHeadEmpty(t *testing.T) {
	root := t.TempDir()

	for _, dir := range []string{filepath.Join(root, "missing"), root} {
		head, err := NewIndexer(dir).GetHead()
		require.NoError(t, err)
		assert.True(t, head.Empty())
		assert.Nil(t, head.Block)
		assert.Equal(t, int64(-1), head.Height)
		assert.Equal(t, "N/A", head.ID)
		assert.Equal(t, int64(0), head.NextHeight())
	}
}

func TestGetHeadPicksMaxHeight(t *testing.T) {
	dir := t.TempDir()
	ids := buildChain(t, NewFileStore(dir), 4)

	// noise that must not be taken for blocks
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".staging.tmp"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	head, err := NewIndexer(dir).GetHead()
	require.NoError(t, err)
	assert.Equal(t, int64(3), head.Height)
	assert.Equal(t, ids[3], head.ID)
	assert.Equal(t, ids[2], head.Block.Header.PreviousBlock)
}

func TestGetHeadUsesFileNameAsID(t *testing.T) {
	dir := t.TempDir()
	ids := buildChain(t, NewFileStore(dir), 1)
	require.NoError(t, os.Rename(filepath.Join(dir, ids[0]+".json"), filepath.Join(dir, "renamed.json")))

	head, err := NewIndexer(dir).GetHead()
	require.NoError(t, err)
	assert.Equal(t, "renamed", head.ID)
}

func TestGetHeadCorruptBlock(t *testing.T) {
	cases := map[string]string{
		"garbage":        `{"header":`,
		"missing-height": `{"header":{"timestamp":1,"previousblock":"N/A","hash":"h"},"body":[]}`,
		"no-header":      `{"body":[]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			buildChain(t, NewFileStore(dir), 2)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(content), 0o644))

			head, err := NewIndexer(dir).GetHead()
			require.Error(t, err)
			assert.Nil(t, head)
			assert.ErrorIs(t, err, chainerrors.ErrCorruptChainState)
			assert.Contains(t, err.Error(), "key=bad")
		})
	}
}

func TestGetHeadTieIsCorruption(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ids := buildChain(t, store, 2)

	fork, forkID, err := testBuilder().Build([]types.Record{record("fork", 9)}, ids[0], 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(fork, forkID))

	_, err = NewIndexer(dir).GetHead()
	require.Error(t, err)
	assert.True(t, chainerrors.IsCode(err, chainerrors.ErrCodeCorruptChainState))
	assert.Contains(t, err.Error(), ids[1])
	assert.Contains(t, err.Error(), forkID)
	assert.Contains(t, err.Error(), "height=1")
}

func TestGetHeadTieBelowMaxIsFine(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ids := buildChain(t, store, 3)

	fork, forkID, err := testBuilder().Build([]types.Record{record("fork", 9)}, ids[0], 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(fork, forkID))

	head, err := NewIndexer(dir).GetHead()
	require.NoError(t, err)
	assert.Equal(t, ids[2], head.ID)
}
