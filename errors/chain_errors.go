package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ChainErrorCode classifies every failure a production cycle can report.
type ChainErrorCode string

const (
	// No pending records. Not a failure, the caller treats it as "nothing to do".
	ErrCodeEmptyPool ChainErrorCode = "empty_pool"

	// Block store holds an unreadable block, a block without height, or two
	// blocks sharing the maximum height.
	ErrCodeCorruptChainState ChainErrorCode = "corrupt_chain_state"

	// Computed block id is already present in the block store.
	ErrCodeDuplicateBlockID ChainErrorCode = "duplicate_block_id"

	// Block write did not complete durably.
	ErrCodePersistenceFailure ChainErrorCode = "persistence_failure"

	// Some consumed records were not moved to the archived store.
	ErrCodePartialArchiveFailure ChainErrorCode = "partial_archive_failure"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrEmptyPool             = &ChainError{Code: ErrCodeEmptyPool}
	ErrCorruptChainState     = &ChainError{Code: ErrCodeCorruptChainState}
	ErrDuplicateBlockID      = &ChainError{Code: ErrCodeDuplicateBlockID}
	ErrPersistenceFailure    = &ChainError{Code: ErrCodePersistenceFailure}
	ErrPartialArchiveFailure = &ChainError{Code: ErrCodePartialArchiveFailure}
)

// ChainError carries the kind of failure plus enough location detail (store, key,
// height) to diagnose it from a log line.
type ChainError struct {
	Code    ChainErrorCode `json:"code"`
	Message string         `json:"message"`
	Store   string         `json:"store,omitempty"`
	Key     string         `json:"key,omitempty"`
	Height  *int64         `json:"height,omitempty"`

	// Remaining lists the keys a partial archive left behind, in input order.
	Remaining []string `json:"remaining,omitempty"`

	Err error `json:"-"`
}

// NewError creates a ChainError with the given code and message.
func NewError(code ChainErrorCode, format string, args ...interface{}) *ChainError {
	return &ChainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ChainError) WithStore(store string) *ChainError {
	e.Store = store
	return e
}

func (e *ChainError) WithKey(key string) *ChainError {
	e.Key = key
	return e
}

func (e *ChainError) WithHeight(height int64) *ChainError {
	e.Height = &height
	return e
}

func (e *ChainError) WithRemaining(keys []string) *ChainError {
	e.Remaining = append([]string(nil), keys...)
	return e
}

// Wrap attaches the underlying cause.
func (e *ChainError) Wrap(err error) *ChainError {
	e.Err = err
	return e
}

// Error implements the error interface
func (e *ChainError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	var details []string
	if e.Store != "" {
		details = append(details, "store="+e.Store)
	}
	if e.Key != "" {
		details = append(details, "key="+e.Key)
	}
	if e.Height != nil {
		details = append(details, fmt.Sprintf("height=%d", *e.Height))
	}
	if len(e.Remaining) > 0 {
		details = append(details, "remaining="+strings.Join(e.Remaining, ","))
	}
	if len(details) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(details, " "))
		sb.WriteString(")")
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Is matches any ChainError with the same code.
func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first ChainError in err's chain, or "" if none.
func CodeOf(err error) ChainErrorCode {
	var ce *ChainError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ChainErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// RemainingKeys returns the keys left behind by a partial archive failure.
func RemainingKeys(err error) []string {
	var ce *ChainError
	if stderrors.As(err, &ce) && ce.Code == ErrCodePartialArchiveFailure {
		return ce.Remaining
	}
	return nil
}
