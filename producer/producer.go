package producer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/blockarchive/block"
	"github.com/mezonai/blockarchive/blockstore"
	"github.com/mezonai/blockarchive/common"
	"github.com/mezonai/blockarchive/config"
	chainerrors "github.com/mezonai/blockarchive/errors"
	"github.com/mezonai/blockarchive/logx"
	"github.com/mezonai/blockarchive/mempool"
	"github.com/mezonai/blockarchive/monitoring"
	"github.com/mezonai/blockarchive/types"
)

// RecordSource supplies the pending batch and the keys it was read from.
type RecordSource interface {
	LoadPending() ([]types.Record, []string, error)
}

// BlockWriter persists a block under its id and never overwrites.
type BlockWriter interface {
	Save(b *block.Block, id string) error
}

// RecordArchiver retires consumed records.
type RecordArchiver interface {
	Archive(keys []string) error
}

// Producer runs production cycles: find the head, load the pending batch, build a
// block on top of the head, save it, then archive the consumed records.
type Producer struct {
	mu sync.Mutex

	head     blockstore.HeadReader
	pool     RecordSource
	builder  *block.Builder
	store    BlockWriter
	archiver RecordArchiver
	index    *blockstore.HeightIndex
}

type Option func(*Producer)

func WithBuilder(b *block.Builder) Option {
	return func(p *Producer) { p.builder = b }
}

func WithHeadReader(h blockstore.HeadReader) Option {
	return func(p *Producer) { p.head = h }
}

func WithRecordSource(s RecordSource) Option {
	return func(p *Producer) { p.pool = s }
}

func WithBlockWriter(w BlockWriter) Option {
	return func(p *Producer) { p.store = w }
}

func WithArchiver(a RecordArchiver) Option {
	return func(p *Producer) { p.archiver = a }
}

// WithHeightIndex keeps idx up to date after every saved block.
func WithHeightIndex(idx *blockstore.HeightIndex) Option {
	return func(p *Producer) { p.index = idx }
}

// NewProducer wires the file-backed components for the given store locations.
// Options replace individual components.
func NewProducer(cfg config.StoreConfig, opts ...Option) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	p := &Producer{
		head:     blockstore.NewIndexer(cfg.BlocksDir),
		pool:     mempool.NewRecordPool(cfg.PendingDir),
		builder:  block.NewBuilder(),
		store:    blockstore.NewFileStore(cfg.BlocksDir),
		archiver: mempool.NewArchiver(cfg.PendingDir, cfg.ProcessedDir),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RunCycle produces at most one block. It never retries; the result carries the
// error kind for the caller to act on. Records are archived only after the block
// holding them has been saved.
func (p *Producer) RunCycle(ctx context.Context) CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res := p.runCycle(ctx)
	monitoring.RecordCycle(outcomeOf(res), time.Since(start))
	res.log()
	return res
}

func (p *Producer) runCycle(ctx context.Context) CycleResult {
	if err := ctx.Err(); err != nil {
		return CycleResult{Height: blockstore.NoHeight, Err: err}
	}

	head, err := p.head.GetHead()
	if err != nil {
		return CycleResult{Height: blockstore.NoHeight, Err: err}
	}

	records, keys, err := p.pool.LoadPending()
	if err != nil {
		return CycleResult{Height: head.Height, Err: fmt.Errorf("load pending records: %w", err)}
	}
	monitoring.SetPendingPoolSize(len(records))
	if len(records) == 0 {
		return CycleResult{
			Height: head.Height,
			Err:    chainerrors.NewError(chainerrors.ErrCodeEmptyPool, "no pending records"),
		}
	}

	height := head.NextHeight()
	blk, id, err := p.builder.Build(records, head.ID, height)
	if err != nil {
		return CycleResult{Height: head.Height, RecordCount: len(records), Err: err}
	}

	// last point a cancellation is honoured; past here save and archive run as a pair
	if err := ctx.Err(); err != nil {
		return CycleResult{Height: head.Height, RecordCount: len(records), Err: err}
	}

	if err := p.store.Save(blk, id); err != nil {
		return CycleResult{Height: head.Height, RecordCount: len(records), Err: err}
	}

	res := CycleResult{
		BlocksCreated: 1,
		RecordCount:   len(records),
		BlockID:       id,
		Height:        height,
	}
	monitoring.SetBlockHeight(height)
	monitoring.RecordRecordsInBlock(len(records))
	if raw, err := blk.Encode(); err == nil {
		monitoring.RecordBlockSizeBytes(int64(len(raw)))
	}

	if p.index != nil {
		if err := p.index.Record(height, id); err != nil {
			logx.Warn("PRODUCER", "Failed to update height index at ", height, ": ", err)
		}
	}

	if err := p.archiver.Archive(keys); err != nil {
		monitoring.AddArchiveRemaining(len(chainerrors.RemainingKeys(err)))
		res.Err = err
	}
	return res
}

// Archive re-runs the archiver alone, for retrying the keys a partial archive
// failure left behind.
func (p *Producer) Archive(keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.archiver.Archive(keys)
	if err != nil {
		monitoring.AddArchiveRemaining(len(chainerrors.RemainingKeys(err)))
	}
	return err
}

func outcomeOf(res CycleResult) monitoring.CycleOutcome {
	if res.Err == nil {
		return monitoring.CycleBlockCreated
	}
	switch chainerrors.CodeOf(res.Err) {
	case chainerrors.ErrCodeEmptyPool:
		return monitoring.CycleEmptyPool
	case chainerrors.ErrCodeCorruptChainState:
		return monitoring.CycleCorruptChain
	case chainerrors.ErrCodeDuplicateBlockID:
		return monitoring.CycleDuplicateBlock
	case chainerrors.ErrCodePersistenceFailure:
		return monitoring.CyclePersistFailed
	case chainerrors.ErrCodePartialArchiveFailure:
		return monitoring.CyclePartialArchive
	default:
		return monitoring.CycleOtherError
	}
}

func (r CycleResult) log() {
	switch {
	case r.Err == nil:
		logx.Info("PRODUCER", "Created block ", common.ShortID(r.BlockID), " at height ", r.Height, " with ", r.RecordCount, " records")
	case r.Empty():
		logx.Info("PRODUCER", "No pending records")
	default:
		logx.Error("PRODUCER", "Cycle failed: ", r.Err)
	}
}
