package store

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/codec"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
)

// GetUnspentOutput returns the output (hash, index), or nil when it is not in the set. model.AnyIndex
// returns the lowest stored index of the transaction.
func (s *Store) GetUnspentOutput(hash chainhash.Hash, index uint32) (out *model.UnspentOutput, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_unspent_output", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return nil, err
	}

	var payload []byte
	if index == model.AnyIndex {
		payload, err = firstOutput(s.reader(), hash)
	} else {
		payload, err = s.reader().Get(outputKey(hash, index))
	}
	if err != nil {
		return nil, fmt.Errorf("get unspent output %s:%d: %w", hash, index, err)
	}
	if payload == nil {
		return nil, nil
	}

	out, err = codec.DecodeUnspentOutput(hash, payload)
	if err != nil {
		return nil, corrupt("unspent output", hash, err)
	}
	if out.TxTime == 0 {
		return nil, fmt.Errorf("unspent output %s:%d has zero tx time: %w", hash, out.Index, chain.ErrCorruptRecord)
	}
	return out, nil
}

// AddUnspentOutput inserts out. An output already in the set is chain.ErrDuplicateUnspentOutput.
func (s *Store) AddUnspentOutput(out *model.UnspentOutput) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("add_unspent_output", err, started)
	}()

	if out.Index == model.AnyIndex {
		return fmt.Errorf("unspent output %s: index %d is reserved", out.TxHash, out.Index)
	}
	payload, err := codec.EncodeUnspentOutput(out)
	if err != nil {
		return fmt.Errorf("encode unspent output %s:%d: %w", out.TxHash, out.Index, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.update(func(rw readWriter) error {
		key := outputKey(out.TxHash, out.Index)
		exists, err := rw.Has(key)
		if err != nil {
			return fmt.Errorf("has unspent output %s:%d: %w", out.TxHash, out.Index, err)
		}
		if exists {
			return fmt.Errorf("add %s:%d: %w", out.TxHash, out.Index, chain.ErrDuplicateUnspentOutput)
		}
		if err := rw.Put(key, payload); err != nil {
			return fmt.Errorf("put unspent output %s:%d: %w", out.TxHash, out.Index, err)
		}
		return nil
	})
}

// RemoveUnspentOutput deletes out. An output not in the set is chain.ErrMissingUnspentOutput.
func (s *Store) RemoveUnspentOutput(out *model.UnspentOutput) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("remove_unspent_output", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.update(func(rw readWriter) error {
		key := outputKey(out.TxHash, out.Index)
		exists, err := rw.Has(key)
		if err != nil {
			return fmt.Errorf("has unspent output %s:%d: %w", out.TxHash, out.Index, err)
		}
		if !exists {
			return fmt.Errorf("remove %s:%d: %w", out.TxHash, out.Index, chain.ErrMissingUnspentOutput)
		}
		if err := rw.Delete(key); err != nil {
			return fmt.Errorf("delete unspent output %s:%d: %w", out.TxHash, out.Index, err)
		}
		return nil
	})
}

// HasUnspentOutputs reports whether any output of hash with an index below count is still unspent.
func (s *Store) HasUnspentOutputs(hash chainhash.Hash, count uint32) (found bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("has_unspent_outputs", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err = s.reader().Iterate(outputPrefix(hash), nil, func(key, _ []byte) (bool, error) {
		index, err := outputIndex(key)
		if err != nil {
			return false, err
		}
		// keys are ordered by index, so the first one decides
		found = index < count
		return false, nil
	})
	if err != nil {
		return false, fmt.Errorf("scan unspent outputs of %s: %w", hash, err)
	}
	return found, nil
}

func firstOutput(r kv.Reader, hash chainhash.Hash) ([]byte, error) {
	var payload []byte
	err := r.Iterate(outputPrefix(hash), nil, func(_, value []byte) (bool, error) {
		payload = value
		return false, nil
	})
	return payload, err
}
