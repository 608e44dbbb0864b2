package store

import (
	"fmt"
	"time"

	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
)

// BeginBatch opens a write transaction that every following operation joins until CommitBatch or
// AbortBatch. Only one batch can be open.
func (s *Store) BeginBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.batch != nil {
		return chain.ErrBatchActive
	}
	tx, err := s.engine.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	s.batch = tx
	s.savedChainHead, s.savedVerifiedHead = s.chainHead, s.verifiedHead
	return nil
}

// CommitBatch commits the open batch. A failed commit leaves nothing applied and restores the heads.
func (s *Store) CommitBatch() (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("commit_batch", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return chain.ErrNoBatch
	}
	tx := s.batch
	s.batch = nil
	if err = tx.Commit(); err != nil {
		s.restoreHeads()
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// AbortBatch discards every write made since BeginBatch.
func (s *Store) AbortBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return chain.ErrNoBatch
	}
	tx := s.batch
	s.batch = nil
	s.restoreHeads()
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("abort batch: %w", err)
	}
	return nil
}

// Batch runs fn inside a batch. The batch is committed when fn succeeds and aborted on error or panic.
func (s *Store) Batch(fn func() error) (err error) {
	if err = s.BeginBatch(); err != nil {
		return err
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if abortErr := s.AbortBatch(); abortErr != nil && err == nil {
			err = abortErr
		}
	}()

	if err = fn(); err != nil {
		return err
	}
	finished = true
	return s.CommitBatch()
}

func (s *Store) restoreHeads() {
	s.chainHead, s.verifiedHead = s.savedChainHead, s.savedVerifiedHead
	s.savedChainHead, s.savedVerifiedHead = nil, nil
}
