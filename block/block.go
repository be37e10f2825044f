package block

import (
	"fmt"
	"time"

	"github.com/mezonai/blockarchive/common"
	"github.com/mezonai/blockarchive/jsonx"
	"github.com/mezonai/blockarchive/types"
)

// GenesisPrevHash is the previous-block reference of the block at height 0.
const GenesisPrevHash = "N/A"

type BlockHeader struct {
	Height        int64  `json:"height"`        // 0 for genesis
	Timestamp     int64  `json:"timestamp"`     // unix seconds at assembly
	PreviousBlock string `json:"previousblock"` // id of the parent, GenesisPrevHash for genesis
	Hash          string `json:"hash"`          // body hash
}

// Block is the persisted unit. Body keeps the batch load order.
type Block struct {
	Header BlockHeader   `json:"header"`
	Body   []types.Value `json:"body"`
}

// HeaderBytes is the canonical header encoding the block id is computed over.
func (b *Block) HeaderBytes() ([]byte, error) {
	return jsonx.MarshalCanonical(&b.Header)
}

// BodyBytes is the canonical body encoding the body hash is computed over.
func (b *Block) BodyBytes() ([]byte, error) {
	return encodeBody(b.Body)
}

// ComputeID hashes the header. It is the key the block is stored under.
func (b *Block) ComputeID() (string, error) {
	raw, err := b.HeaderBytes()
	if err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	return common.Hash(raw), nil
}

// ComputeBodyHash hashes the body as stored.
func (b *Block) ComputeBodyHash() (string, error) {
	raw, err := b.BodyBytes()
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return common.Hash(raw), nil
}

// Encode returns the canonical encoding of the whole block as written to disk.
func (b *Block) Encode() ([]byte, error) {
	return jsonx.MarshalCanonical(b)
}

// IsGenesis reports whether b starts the chain.
func (b *Block) IsGenesis() bool {
	return b.Header.Height == 0 && b.Header.PreviousBlock == GenesisPrevHash
}

func encodeBody(body []types.Value) ([]byte, error) {
	// a nil body encodes as null; keep an empty batch hashing like []
	if body == nil {
		body = []types.Value{}
	}
	return jsonx.MarshalCanonical(body)
}

// Clock supplies the header timestamp.
type Clock func() time.Time
