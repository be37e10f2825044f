package block

import (
	"errors"
	"fmt"

	"github.com/mezonai/blockarchive/jsonx"
	"github.com/mezonai/blockarchive/types"
)

var (
	ErrMissingHeader  = errors.New("block has no header")
	ErrMissingHeight  = errors.New("block header has no height")
	ErrNegativeHeight = errors.New("block header has negative height")
)

// storedBlock mirrors Block with optional fields so absent values can be told apart
// from zero values.
type storedBlock struct {
	Header *struct {
		Height        *int64 `json:"height"`
		Timestamp     int64  `json:"timestamp"`
		PreviousBlock string `json:"previousblock"`
		Hash          string `json:"hash"`
	} `json:"header"`
	Body []types.Value `json:"body"`
}

// Decode parses a stored block. Numbers inside the body stay json.Number so the
// body re-encodes to the bytes it was hashed from.
func Decode(data []byte) (*Block, error) {
	var sb storedBlock
	if err := jsonx.UnmarshalCanonical(data, &sb); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	if sb.Header == nil {
		return nil, ErrMissingHeader
	}
	if sb.Header.Height == nil {
		return nil, ErrMissingHeight
	}
	if *sb.Header.Height < 0 {
		return nil, ErrNegativeHeight
	}

	return &Block{
		Header: BlockHeader{
			Height:        *sb.Header.Height,
			Timestamp:     sb.Header.Timestamp,
			PreviousBlock: sb.Header.PreviousBlock,
			Hash:          sb.Header.Hash,
		},
		Body: sb.Body,
	}, nil
}
