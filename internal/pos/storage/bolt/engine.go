// Package bolt implements the kv engine on bbolt. All keys live in a single bucket so the ordered
// prefix layout of the store maps directly onto bbolt's cursor order.
package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
	bolt "go.etcd.io/bbolt"
)

var chainBucket = []byte("chain")

// Engine is a bbolt backed kv.Engine.
type Engine struct {
	db *bolt.DB
}

var _ kv.Engine = (*Engine)(nil)

// Open opens or creates the database file at path.
func Open(path string) (*Engine, error) {
	if path == "" {
		return nil, errors.New("bolt database path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chainBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		value = get(tx.Bucket(chainBucket), key)
		return nil
	})
	return value, err
}

func (e *Engine) Has(key []byte) (bool, error) {
	var found bool
	err := e.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(chainBucket).Get(key) != nil
		return nil
	})
	return found, err
}

func (e *Engine) Iterate(prefix, start []byte, fn func(key, value []byte) (bool, error)) error {
	return e.db.View(func(tx *bolt.Tx) error {
		return iterate(tx.Bucket(chainBucket), prefix, start, fn)
	})
}

func (e *Engine) Put(key, value []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainBucket).Put(key, value)
	})
}

func (e *Engine) Delete(key []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainBucket).Delete(key)
	})
}

// Begin starts a writable bbolt transaction. bbolt allows one writer at a time.
func (e *Engine) Begin() (kv.Tx, error) {
	tx, err := e.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("begin bolt transaction: %w", err)
	}
	return &transaction{tx: tx, bucket: tx.Bucket(chainBucket)}, nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

type transaction struct {
	tx       *bolt.Tx
	bucket   *bolt.Bucket
	isClosed bool
}

var errClosedTx = errors.New("bolt transaction already closed")

func (t *transaction) Get(key []byte) ([]byte, error) {
	if t.isClosed {
		return nil, errClosedTx
	}
	return get(t.bucket, key), nil
}

func (t *transaction) Has(key []byte) (bool, error) {
	if t.isClosed {
		return false, errClosedTx
	}
	return t.bucket.Get(key) != nil, nil
}

func (t *transaction) Iterate(prefix, start []byte, fn func(key, value []byte) (bool, error)) error {
	if t.isClosed {
		return errClosedTx
	}
	return iterate(t.bucket, prefix, start, fn)
}

func (t *transaction) Put(key, value []byte) error {
	if t.isClosed {
		return errClosedTx
	}
	return t.bucket.Put(key, value)
}

func (t *transaction) Delete(key []byte) error {
	if t.isClosed {
		return errClosedTx
	}
	return t.bucket.Delete(key)
}

func (t *transaction) Commit() error {
	if t.isClosed {
		return errClosedTx
	}
	t.isClosed = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit bolt transaction: %w", err)
	}
	return nil
}

func (t *transaction) Rollback() error {
	if t.isClosed {
		return nil
	}
	t.isClosed = true
	return t.tx.Rollback()
}

// get copies the value out of the memory-mapped page, which is only valid during the transaction.
func get(bucket *bolt.Bucket, key []byte) []byte {
	v := bucket.Get(key)
	if v == nil {
		return nil
	}
	return append([]byte{}, v...)
}

func iterate(bucket *bolt.Bucket, prefix, start []byte, fn func(key, value []byte) (bool, error)) error {
	seek := prefix
	if bytes.Compare(start, prefix) > 0 {
		seek = start
	}
	c := bucket.Cursor()
	for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		more, err := fn(append([]byte(nil), k...), append([]byte(nil), v...))
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
