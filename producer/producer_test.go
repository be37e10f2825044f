package producer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/blockarchive/block"
	"github.com/mezonai/blockarchive/blockstore"
	"github.com/mezonai/blockarchive/config"
	"github.com/mezonai/blockarchive/db"
	chainerrors "github.com/mezonai/blockarchive/errors"
	"github.com/mezonai/blockarchive/mempool"
	"github.com/mezonai/blockarchive/types"
)

var fixedTime = time.Unix(1700000000, 0)

func fixedBuilder() *block.Builder {
	return block.NewBuilder(block.WithClock(func() time.Time { return fixedTime }))
}

func newStoreConfig(t *testing.T) config.StoreConfig {
	t.Helper()
	cfg := config.Default().Store.Resolve(t.TempDir())
	for _, dir := range []string{cfg.PendingDir, cfg.ProcessedDir, cfg.BlocksDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return cfg
}

func newProducer(t *testing.T, cfg config.StoreConfig, opts ...Option) *Producer {
	t.Helper()
	p, err := NewProducer(cfg, append([]Option{WithBuilder(fixedBuilder())}, opts...)...)
	require.NoError(t, err)
	return p
}

func deposit(t *testing.T, cfg config.StoreConfig, key string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PendingDir, key), []byte(content), 0o644))
}

// snapshot captures every file of the three stores as relative path -> content.
func snapshot(t *testing.T, cfg config.StoreConfig) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, dir := range []string{cfg.PendingDir, cfg.ProcessedDir, cfg.BlocksDir} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			out[filepath.Join(filepath.Base(dir), e.Name())] = string(data)
		}
	}
	return out
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) Save(*block.Block, string) error {
	w.calls++
	return chainerrors.NewError(chainerrors.ErrCodePersistenceFailure, "disk full")
}

// flakyArchiver archives everything except the keys in fail.
type flakyArchiver struct {
	inner *mempool.Archiver
	fail  map[string]bool
}

func (a *flakyArchiver) Archive(keys []string) error {
	var ok, bad []string
	for _, k := range keys {
		if a.fail[k] {
			bad = append(bad, k)
		} else {
			ok = append(ok, k)
		}
	}
	if err := a.inner.Archive(ok); err != nil {
		return err
	}
	if len(bad) > 0 {
		return chainerrors.NewError(chainerrors.ErrCodePartialArchiveFailure, "%d of %d records archived", len(ok), len(keys)).
			WithRemaining(bad)
	}
	return nil
}

func TestGenesisThenSecondBlock(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)

	deposit(t, cfg, "r1", `{"v":1}`)
	first := p.RunCycle(context.Background())
	require.NoError(t, first.Err)
	assert.True(t, first.OK())
	assert.Equal(t, 1, first.BlocksCreated)
	assert.Equal(t, 1, first.RecordCount)
	assert.Equal(t, int64(0), first.Height)

	genesis, err := blockstore.NewFileStore(cfg.BlocksDir).Load(first.BlockID)
	require.NoError(t, err)
	assert.Equal(t, "N/A", genesis.Header.PreviousBlock)
	assert.Equal(t, int64(0), genesis.Header.Height)
	assert.Equal(t, []string{"r1"}, names(t, cfg.ProcessedDir))
	assert.Empty(t, names(t, cfg.PendingDir))

	deposit(t, cfg, "r2", `{"v":2}`)
	second := p.RunCycle(context.Background())
	require.NoError(t, second.Err)
	assert.Equal(t, int64(1), second.Height)

	next, err := blockstore.NewFileStore(cfg.BlocksDir).Load(second.BlockID)
	require.NoError(t, err)
	assert.Equal(t, first.BlockID, next.Header.PreviousBlock)
	assert.Equal(t, []string{"r1", "r2"}, names(t, cfg.ProcessedDir))

	report, err := blockstore.Verify(cfg.BlocksDir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Blocks)
}

func TestEmptyPoolIsNoop(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	before := snapshot(t, cfg)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, res.Empty())
	assert.Equal(t, chainerrors.ErrCodeEmptyPool, res.Code())
	assert.Equal(t, 0, res.BlocksCreated)
	assert.Equal(t, 0, res.RecordCount)
	assert.Equal(t, "no pending records", res.String())

	assert.Equal(t, before, snapshot(t, cfg))
}

func TestSaveFailureArchivesNothing(t *testing.T) {
	cfg := newStoreConfig(t)
	writer := &failingWriter{}
	p := newProducer(t, cfg, WithBlockWriter(writer))

	deposit(t, cfg, "a", `{"v":1}`)
	deposit(t, cfg, "b", `{"v":2}`)
	before := snapshot(t, cfg)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, chainerrors.IsCode(res.Err, chainerrors.ErrCodePersistenceFailure))
	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, 0, res.BlocksCreated)
	assert.Equal(t, 2, res.RecordCount)

	assert.Equal(t, before, snapshot(t, cfg))
	assert.Equal(t, []string{"a", "b"}, names(t, cfg.PendingDir))
	assert.Empty(t, names(t, cfg.ProcessedDir))
}

func TestDuplicateBlockIDIsRejected(t *testing.T) {
	cfg := newStoreConfig(t)
	deposit(t, cfg, "r1", `{"v":1}`)

	// store the exact block this cycle will build somewhere the head scan cannot see
	records, _, err := mempool.NewRecordPool(cfg.PendingDir).LoadPending()
	require.NoError(t, err)
	blk, id, err := fixedBuilder().Build(records, block.GenesisPrevHash, 0)
	require.NoError(t, err)
	shadow := blockstore.NewFileStore(filepath.Join(t.TempDir(), "shadow"))
	require.NoError(t, shadow.Save(blk, id))
	shadowFiles := names(t, shadow.Dir())

	p := newProducer(t, cfg, WithBlockWriter(shadow))
	before := snapshot(t, cfg)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, chainerrors.IsCode(res.Err, chainerrors.ErrCodeDuplicateBlockID))
	assert.Contains(t, res.Err.Error(), id)

	assert.Equal(t, before, snapshot(t, cfg))
	assert.Equal(t, shadowFiles, names(t, shadow.Dir()))
}

func TestPartialArchiveKeepsBlockAndReportsRemainder(t *testing.T) {
	cfg := newStoreConfig(t)
	archiver := &flakyArchiver{
		inner: mempool.NewArchiver(cfg.PendingDir, cfg.ProcessedDir),
		fail:  map[string]bool{"b": true},
	}
	p := newProducer(t, cfg, WithArchiver(archiver))

	deposit(t, cfg, "a", `1`)
	deposit(t, cfg, "b", `2`)
	deposit(t, cfg, "c", `3`)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.Equal(t, 1, res.BlocksCreated)
	assert.NotEmpty(t, res.BlockID)
	assert.False(t, res.OK())
	assert.Equal(t, []string{"b"}, chainerrors.RemainingKeys(res.Err))
	assert.Contains(t, res.String(), "created block")

	assert.Equal(t, []string{"b"}, names(t, cfg.PendingDir))
	assert.Equal(t, []string{"a", "c"}, names(t, cfg.ProcessedDir))

	// retry only the remainder, through the archiver alone
	archiver.fail = nil
	require.NoError(t, p.Archive(chainerrors.RemainingKeys(res.Err)))
	assert.Empty(t, names(t, cfg.PendingDir))
	assert.Equal(t, []string{"a", "b", "c"}, names(t, cfg.ProcessedDir))

	head, err := blockstore.NewIndexer(cfg.BlocksDir).GetHead()
	require.NoError(t, err)
	assert.Equal(t, res.BlockID, head.ID)
	assert.Len(t, head.Block.Body, 3)
}

func TestCorruptChainStopsCycle(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	deposit(t, cfg, "r1", `{"v":1}`)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.BlocksDir, "broken.json"), []byte(`{"header":{}}`), 0o644))
	before := snapshot(t, cfg)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.True(t, chainerrors.IsCode(res.Err, chainerrors.ErrCodeCorruptChainState))
	assert.Contains(t, res.Err.Error(), "broken")
	assert.Equal(t, before, snapshot(t, cfg))
}

func TestCancelledContextDoesNothing(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	deposit(t, cfg, "r1", `{"v":1}`)
	before := snapshot(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.RunCycle(ctx)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, res.BlocksCreated)
	assert.Equal(t, before, snapshot(t, cfg))
}

func TestChainGrowsOneHeightPerCycle(t *testing.T) {
	cfg := newStoreConfig(t)
	now := fixedTime
	builder := block.NewBuilder(block.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	p := newProducer(t, cfg, WithBuilder(builder))

	var (
		ids       []string
		deposited []string
	)
	for cycle := 0; cycle < 6; cycle++ {
		for i := 0; i <= cycle%3; i++ {
			key := fmt.Sprintf("c%02d-r%d", cycle, i)
			deposit(t, cfg, key, fmt.Sprintf(`{"cycle":%d,"i":%d}`, cycle, i))
			deposited = append(deposited, key)
		}

		res := p.RunCycle(context.Background())
		require.NoError(t, res.Err)
		assert.Equal(t, int64(cycle), res.Height)
		assert.Equal(t, cycle%3+1, res.RecordCount)

		blk, err := blockstore.NewFileStore(cfg.BlocksDir).Load(res.BlockID)
		require.NoError(t, err)
		if cycle == 0 {
			assert.Equal(t, block.GenesisPrevHash, blk.Header.PreviousBlock)
		} else {
			assert.Equal(t, ids[cycle-1], blk.Header.PreviousBlock)
		}
		ids = append(ids, res.BlockID)
	}

	// every deposited record archived exactly once, none left pending
	assert.Empty(t, names(t, cfg.PendingDir))
	assert.Equal(t, deposited, names(t, cfg.ProcessedDir))

	total := 0
	for _, id := range ids {
		blk, err := blockstore.NewFileStore(cfg.BlocksDir).Load(id)
		require.NoError(t, err)
		total += len(blk.Body)
	}
	assert.Equal(t, len(deposited), total)

	report, err := blockstore.Verify(cfg.BlocksDir)
	require.NoError(t, err)
	assert.Equal(t, len(ids), report.Blocks)
	assert.Equal(t, ids[len(ids)-1], report.Head.ID)
}

func TestHeightIndexFollowsCycles(t *testing.T) {
	cfg := newStoreConfig(t)
	provider, err := db.NewMemLevelDBProvider()
	require.NoError(t, err)
	idx, err := blockstore.NewHeightIndex(provider)
	require.NoError(t, err)
	defer idx.Close()

	p := newProducer(t, cfg, WithHeightIndex(idx))
	deposit(t, cfg, "r1", `1`)
	first := p.RunCycle(context.Background())
	require.NoError(t, first.Err)
	deposit(t, cfg, "r2", `2`)
	second := p.RunCycle(context.Background())
	require.NoError(t, second.Err)

	id, ok, err := idx.Lookup(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.BlockID, id)

	height, headID, ok, err := idx.Head()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), height)
	assert.Equal(t, second.BlockID, headID)
}

func TestNewProducerRejectsBadConfig(t *testing.T) {
	_, err := NewProducer(config.StoreConfig{PendingDir: "x", ProcessedDir: "x", BlocksDir: "b"})
	assert.Error(t, err)
}

func TestBlockBodyMatchesPendingOrder(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	deposit(t, cfg, "b", `"second"`)
	deposit(t, cfg, "a", `"first"`)
	deposit(t, cfg, "c", `"third"`)

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)

	blk, err := blockstore.NewFileStore(cfg.BlocksDir).Load(res.BlockID)
	require.NoError(t, err)
	assert.Equal(t, []types.Value{"first", "second", "third"}, blk.Body)
}

func TestInvalidUTF8RecordIsNotPacked(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	deposit(t, cfg, "r1", "\"a\xffb\"")
	before := snapshot(t, cfg)

	res := p.RunCycle(context.Background())
	require.Error(t, res.Err)
	assert.Equal(t, 0, res.BlocksCreated)
	assert.Contains(t, res.Err.Error(), "invalid UTF-8")
	assert.Equal(t, before, snapshot(t, cfg))
}

func TestSavedBlocksRehashAfterReload(t *testing.T) {
	cfg := newStoreConfig(t)
	p := newProducer(t, cfg)
	pool := mempool.NewRecordPool(cfg.PendingDir)

	require.NoError(t, pool.Add("r1", "a\xffb"))
	deposit(t, cfg, "r2", `{"z":{"b":1,"a":[2,1]},"html":"<a&b>","big":123456789012345678901234567890}`)
	deposit(t, cfg, "r3", `"\u0001 😀 �"`)

	res := p.RunCycle(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.BlocksCreated)

	report, err := blockstore.Verify(cfg.BlocksDir)
	require.NoError(t, err)
	assert.Equal(t, res.BlockID, report.Head.ID)
}
