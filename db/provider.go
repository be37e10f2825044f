package db

// DatabaseProvider abstracts the low-level key-value operations the height index
// needs, so the index does not depend on a concrete backend.
type DatabaseProvider interface {
	// Get retrieves a value by key. A missing key yields nil, nil.
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair
	Put(key, value []byte) error

	// Delete removes a key-value pair
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// Close closes the database connection
	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with iteration capabilities
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix iterates over all key-value pairs with the given prefix in key
	// order. The callback returns false to stop.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch provides atomic batch operations
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	Reset()
}
