package store

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/codec"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
	"go.uber.org/zap"
)

// Get returns the block stored under hash, or nil when it is unknown. The heads are served from memory.
func (s *Store) Get(hash chainhash.Hash) (block *model.StoredBlock, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return nil, err
	}
	if s.chainHead != nil && s.chainHead.Hash == hash {
		return s.chainHead, nil
	}
	if s.verifiedHead != nil && s.verifiedHead.Hash == hash {
		return s.verifiedHead, nil
	}
	return getBlock(s.reader(), hash)
}

// Put stores block without touching its undo data or its parent link. The block's own next pointer is
// kept when the record already exists.
func (s *Store) Put(block *model.StoredBlock) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.update(func(rw readWriter) error {
		return putBlock(rw, block)
	})
}

// PutUndoable stores block with its undo data and points the parent's next link at it.
func (s *Store) PutUndoable(block *model.StoredBlock, undo *model.UndoableBlock) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_undoable", err, started)
	}()

	payload, err := codec.EncodeUndoBlock(undo)
	if err != nil {
		return fmt.Errorf("encode undo block %s: %w", block.Hash, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.update(func(rw readWriter) error {
		if err := putBlock(rw, block); err != nil {
			return err
		}
		if err := rw.Put(undoKey(block.Hash), payload); err != nil {
			return fmt.Errorf("put undo block %s: %w", block.Hash, err)
		}
		return s.linkParent(rw, block)
	})
}

// GetOnceUndoable returns the block only while it still carries undo data.
func (s *Store) GetOnceUndoable(hash chainhash.Hash) (block *model.StoredBlock, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_once_undoable", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return nil, err
	}
	r := s.reader()
	ok, err := r.Has(undoKey(hash))
	if err != nil {
		return nil, fmt.Errorf("has undo block %s: %w", hash, err)
	}
	if !ok {
		return nil, nil
	}
	return getBlock(r, hash)
}

// GetUndoBlock returns the undo data of hash. Missing undo data is chain.ErrRecordNotFound.
func (s *Store) GetUndoBlock(hash chainhash.Hash) (undo *model.UndoableBlock, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_undo_block", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return nil, err
	}
	payload, err := s.reader().Get(undoKey(hash))
	if err != nil {
		return nil, fmt.Errorf("get undo block %s: %w", hash, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("undo block %s: %w", hash, chain.ErrRecordNotFound)
	}
	undo, err = codec.DecodeUndoBlock(payload)
	if err != nil {
		return nil, corrupt("undo block", hash, err)
	}
	return undo, nil
}

// NextHash returns the hash of the linked child of hash. The flag is false when no child is linked.
func (s *Store) NextHash(hash chainhash.Hash) (next chainhash.Hash, linked bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("next_hash", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return next, false, err
	}
	payload, err := s.reader().Get(blockKey(hash))
	if err != nil {
		return next, false, fmt.Errorf("get block %s: %w", hash, err)
	}
	if payload == nil {
		return next, false, fmt.Errorf("block %s: %w", hash, chain.ErrRecordNotFound)
	}
	next, err = codec.NextHash(payload)
	if err != nil {
		return next, false, corrupt("block", hash, err)
	}
	return next, next != (chainhash.Hash{}), nil
}

func (s *Store) linkParent(rw readWriter, block *model.StoredBlock) error {
	if !block.HasParent() || s.params.IsGenesis(block.Hash) {
		return nil
	}
	parent := block.PrevHash()
	payload, err := rw.Get(blockKey(parent))
	if err != nil {
		return fmt.Errorf("get parent %s: %w", parent, err)
	}
	if payload == nil || codec.IsPrunedRecord(payload) {
		s.logger.Debug("parent not linkable", zap.Stringer("parent", parent), zap.Stringer("block", block.Hash))
		return nil
	}
	linked, err := codec.WithNextHash(payload, block.Hash)
	if err != nil {
		return corrupt("block", parent, err)
	}
	if err := rw.Put(blockKey(parent), linked); err != nil {
		return fmt.Errorf("link parent %s: %w", parent, err)
	}
	return nil
}

func getBlock(r kv.Reader, hash chainhash.Hash) (*model.StoredBlock, error) {
	payload, err := r.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	if payload == nil {
		return nil, nil
	}
	block, _, err := codec.DecodeStoredBlock(hash, payload)
	if err != nil {
		return nil, corrupt("block", hash, err)
	}
	if block.Pruned {
		return block, nil
	}

	v2, err := r.Get(modifierV2Key(hash))
	if err != nil {
		return nil, fmt.Errorf("get stake modifier v2 %s: %w", hash, err)
	}
	if v2 != nil {
		if len(v2) != chainhash.HashSize {
			return nil, fmt.Errorf("stake modifier v2 %s has %d bytes: %w", hash, len(v2), chain.ErrCorruptRecord)
		}
		copy(block.StakeModifierV2[:], v2)
	}
	return block, nil
}

func putBlock(rw readWriter, block *model.StoredBlock) error {
	key := blockKey(block.Hash)

	var next chainhash.Hash
	existing, err := rw.Get(key)
	if err != nil {
		return fmt.Errorf("get block %s: %w", block.Hash, err)
	}
	if existing != nil {
		if next, err = codec.NextHash(existing); err != nil {
			return corrupt("block", block.Hash, err)
		}
	}

	payload, err := codec.EncodeStoredBlock(block, next)
	if err != nil {
		return fmt.Errorf("encode block %s: %w", block.Hash, err)
	}
	if err := rw.Put(key, payload); err != nil {
		return fmt.Errorf("put block %s: %w", block.Hash, err)
	}
	if block.Pruned {
		return nil
	}

	v2 := append([]byte(nil), block.StakeModifierV2[:]...)
	if err := rw.Put(modifierV2Key(block.Hash), v2); err != nil {
		return fmt.Errorf("put stake modifier v2 %s: %w", block.Hash, err)
	}
	if err := rw.Put(heightKey(block.Height, block.Hash), heightMarker); err != nil {
		return fmt.Errorf("index block %s at height %d: %w", block.Hash, block.Height, err)
	}
	return nil
}
