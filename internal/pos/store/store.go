// Package store implements chain.ChainStore on an ordered key-value engine.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/bolt"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/leveldb"
	"go.uber.org/zap"
)

const (
	EngineLevelDB = "leveldb"
	EngineBolt    = "bolt"
)

// Config selects the backing engine. An empty Engine means leveldb; an empty Path keeps a leveldb
// database in memory.
type Config struct {
	Engine string
	Path   string
}

type readWriter interface {
	kv.Reader
	kv.Writer
}

// Store is a chain.ChainStore. It is safe for concurrent use; while a batch is open every operation,
// from any goroutine, runs inside the batch transaction.
type Store struct {
	engine  kv.Engine
	params  params.Params
	metrics Metrics
	logger  *zap.Logger

	mu           sync.Mutex
	closed       bool
	batch        kv.Tx
	chainHead    *model.StoredBlock
	verifiedHead *model.StoredBlock
	// heads as they were when the batch began, restored on abort
	savedChainHead    *model.StoredBlock
	savedVerifiedHead *model.StoredBlock
}

var _ chain.ChainStore = (*Store)(nil)

// Open opens the engine named by cfg and loads the persisted heads.
func Open(cfg Config, p params.Params, metrics Metrics, logger *zap.Logger) (*Store, error) {
	var (
		engine kv.Engine
		err    error
	)
	switch cfg.Engine {
	case EngineLevelDB, "":
		engine, err = leveldb.Open(cfg.Path)
	case EngineBolt:
		engine, err = bolt.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	s, err := New(engine, p, metrics, logger)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened engine.
func New(engine kv.Engine, p params.Params, metrics Metrics, logger *zap.Logger) (*Store, error) {
	if engine == nil {
		return nil, errors.New("store engine is required")
	}
	if metrics == nil {
		return nil, errors.New("store metrics are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		engine:  engine,
		params:  p,
		metrics: metrics,
		logger:  logger.Named("store"),
	}
	if err := s.loadHeads(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close rolls back an open batch and closes the engine.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.batch != nil {
		if err := s.batch.Rollback(); err != nil {
			s.logger.Warn("rollback open batch on close", zap.Error(err))
		}
		s.batch = nil
	}
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return chain.ErrClosed
	}
	return nil
}

func (s *Store) reader() kv.Reader {
	if s.batch != nil {
		return s.batch
	}
	return s.engine
}

// update runs fn inside the open batch, or inside its own transaction when there is none.
func (s *Store) update(fn func(rw readWriter) error) (err error) {
	if s.batch != nil {
		return fn(s.batch)
	}

	tx, err := s.engine.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && err == nil {
			err = fmt.Errorf("rollback transaction: %w", rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func corrupt(what string, hash chainhash.Hash, err error) error {
	return fmt.Errorf("decode %s %s: %w: %w", what, hash, chain.ErrCorruptRecord, err)
}
