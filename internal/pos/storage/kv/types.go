// Package kv declares the ordered key-value engine contract the chain store is built on.
package kv

type (
	// Reader reads committed or transaction-local state. Get returns (nil, nil) for a missing key.
	// Returned slices are owned by the caller.
	Reader interface {
		Get(key []byte) ([]byte, error)
		Has(key []byte) (bool, error)
		// Iterate visits keys carrying prefix in ascending order, starting at the first key >= start.
		// Iteration stops when fn returns false or an error.
		Iterate(prefix, start []byte, fn func(key, value []byte) (bool, error)) error
	}

	Writer interface {
		Put(key, value []byte) error
		Delete(key []byte) error
	}

	// Tx is a write transaction. Rollback after Commit is a no-op so it can always be deferred.
	Tx interface {
		Reader
		Writer
		Commit() error
		Rollback() error
	}

	Engine interface {
		Reader
		Writer
		Begin() (Tx, error)
		Close() error
	}
)
