// Package leveldb implements the kv engine on goleveldb.
package leveldb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Engine is a goleveldb backed kv.Engine.
type Engine struct {
	db *leveldb.DB
}

var _ kv.Engine = (*Engine)(nil)

// Open opens or creates the database at path. An empty path keeps the database in memory.
func Open(path string) (*Engine, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, &opt.Options{})
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	return get(e.db.Get(key, nil))
}

func (e *Engine) Has(key []byte) (bool, error) {
	return e.db.Has(key, nil)
}

func (e *Engine) Iterate(prefix, start []byte, fn func(key, value []byte) (bool, error)) error {
	return iterate(e.db.NewIterator(rangeFor(prefix, start), nil), fn)
}

func (e *Engine) Put(key, value []byte) error {
	return e.db.Put(key, value, nil)
}

func (e *Engine) Delete(key []byte) error {
	return e.db.Delete(key, nil)
}

// Begin opens a leveldb transaction. Writes outside the transaction block until it ends.
func (e *Engine) Begin() (kv.Tx, error) {
	tr, err := e.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("open leveldb transaction: %w", err)
	}
	return &transaction{tr: tr}, nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

type transaction struct {
	tr       *leveldb.Transaction
	isClosed bool
}

func (t *transaction) Get(key []byte) ([]byte, error) {
	if t.isClosed {
		return nil, errClosedTx
	}
	return get(t.tr.Get(key, nil))
}

func (t *transaction) Has(key []byte) (bool, error) {
	if t.isClosed {
		return false, errClosedTx
	}
	return t.tr.Has(key, nil)
}

func (t *transaction) Iterate(prefix, start []byte, fn func(key, value []byte) (bool, error)) error {
	if t.isClosed {
		return errClosedTx
	}
	return iterate(t.tr.NewIterator(rangeFor(prefix, start), nil), fn)
}

func (t *transaction) Put(key, value []byte) error {
	if t.isClosed {
		return errClosedTx
	}
	return t.tr.Put(key, value, nil)
}

func (t *transaction) Delete(key []byte) error {
	if t.isClosed {
		return errClosedTx
	}
	return t.tr.Delete(key, nil)
}

func (t *transaction) Commit() error {
	if t.isClosed {
		return errClosedTx
	}
	t.isClosed = true
	if err := t.tr.Commit(); err != nil {
		t.tr.Discard()
		return fmt.Errorf("commit leveldb transaction: %w", err)
	}
	return nil
}

func (t *transaction) Rollback() error {
	if t.isClosed {
		return nil
	}
	t.isClosed = true
	t.tr.Discard()
	return nil
}

var errClosedTx = errors.New("leveldb transaction already closed")

func get(value []byte, err error) ([]byte, error) {
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func rangeFor(prefix, start []byte) *util.Range {
	r := util.BytesPrefix(prefix)
	if bytes.Compare(start, r.Start) > 0 {
		r.Start = start
	}
	return r
}

func iterate(it iterator.Iterator, fn func(key, value []byte) (bool, error)) error {
	defer it.Release()
	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		value := append([]byte(nil), it.Value()...)
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return it.Error()
}
