package store

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"go.uber.org/zap"
)

// ChainHead returns the best known block, or nil on an empty store.
func (s *Store) ChainHead() (*model.StoredBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.chainHead, nil
}

// VerifiedChainHead returns the best fully verified block, or nil on an empty store.
func (s *Store) VerifiedChainHead() (*model.StoredBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.verifiedHead, nil
}

// SetChainHead moves the chain head to block.
func (s *Store) SetChainHead(block *model.StoredBlock) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("set_chain_head", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	err = s.update(func(rw readWriter) error {
		return rw.Put(settingKey(settingChainHead), block.Hash.CloneBytes())
	})
	if err != nil {
		return fmt.Errorf("persist chain head %s: %w", block.Hash, err)
	}
	s.chainHead = block
	s.logger.Debug("chain head set", zap.Stringer("hash", block.Hash), zap.Uint32("height", block.Height))
	return nil
}

// SetVerifiedChainHead moves the verified head to block, raising the chain head when block is above it.
// Once the head passes the prune threshold everything deeper than MinimumStoreDepth is pruned.
func (s *Store) SetVerifiedChainHead(block *model.StoredBlock) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("set_verified_chain_head", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}

	raise := s.chainHead == nil || block.Height > s.chainHead.Height
	autoPrune := block.Height > s.params.PruneThreshold()
	pruned := 0
	err = s.update(func(rw readWriter) error {
		if err := rw.Put(settingKey(settingVerifiedHead), block.Hash.CloneBytes()); err != nil {
			return fmt.Errorf("persist verified head: %w", err)
		}
		if raise {
			if err := rw.Put(settingKey(settingChainHead), block.Hash.CloneBytes()); err != nil {
				return fmt.Errorf("persist chain head: %w", err)
			}
		}
		if !autoPrune {
			return nil
		}
		var err error
		pruned, err = s.prune(rw, block.Height-s.params.MinimumStoreDepth)
		return err
	})
	if err != nil {
		return fmt.Errorf("set verified head %s: %w", block.Hash, err)
	}

	s.verifiedHead = block
	if raise {
		s.chainHead = block
	}
	if pruned > 0 {
		s.logger.Info("pruned blocks", zap.Int("count", pruned), zap.Uint32("below", block.Height-s.params.MinimumStoreDepth))
	}
	return nil
}

func (s *Store) loadHeads() error {
	chainHead, err := s.loadHead(settingChainHead)
	if err != nil {
		return err
	}
	verifiedHead, err := s.loadHead(settingVerifiedHead)
	if err != nil {
		return err
	}
	s.chainHead, s.verifiedHead = chainHead, verifiedHead

	if chainHead != nil && verifiedHead != nil {
		s.logger.Info("loaded chain heads",
			zap.Uint32("chain_height", chainHead.Height),
			zap.Uint32("verified_height", verifiedHead.Height))
	}
	return nil
}

func (s *Store) loadHead(name string) (*model.StoredBlock, error) {
	value, err := s.engine.Get(settingKey(name))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	if value == nil {
		return nil, nil
	}

	hash, err := chainhash.NewHash(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, chain.ErrCorruptRecord, err)
	}
	block, err := getBlock(s.engine, *hash)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if block == nil {
		return nil, fmt.Errorf("%s %s: %w", name, hash, chain.ErrRecordNotFound)
	}
	return block, nil
}
