package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/codec"
	"github.com/goodnatureofminers/stakecore/internal/pos/storage/kv"
	"go.uber.org/zap"
)

// Prune replaces every block below belowHeight, except height 0, with a timestamp placeholder and drops
// its undo data. The pruned-height mark only moves up.
func (s *Store) Prune(belowHeight uint32) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("prune", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkOpen(); err != nil {
		return err
	}
	if s.verifiedHead != nil && belowHeight > s.verifiedHead.Height {
		return fmt.Errorf("prune below %d: above verified head %d", belowHeight, s.verifiedHead.Height)
	}

	pruned := 0
	err = s.update(func(rw readWriter) error {
		var err error
		pruned, err = s.prune(rw, belowHeight)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune below %d: %w", belowHeight, err)
	}
	s.logger.Info("pruned blocks", zap.Int("count", pruned), zap.Uint32("below", belowHeight))
	return nil
}

// PrunedHeight returns the height below which blocks have been pruned.
func (s *Store) PrunedHeight() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return prunedHeight(s.reader())
}

type heightEntry struct {
	key  []byte
	hash chainhash.Hash
}

func (s *Store) prune(rw readWriter, below uint32) (int, error) {
	mark, err := prunedHeight(rw)
	if err != nil {
		return 0, err
	}

	// The index only holds full records, so blocks stored below the mark after an earlier prune are
	// still found. Genesis keeps its full record.
	var entries []heightEntry
	err = rw.Iterate([]byte{prefixHeight}, heightStart(1), func(key, _ []byte) (bool, error) {
		height, hash, err := parseHeightKey(key)
		if err != nil {
			return false, err
		}
		if height >= below {
			return false, nil
		}
		entries = append(entries, heightEntry{key: key, hash: hash})
		return true, nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan height index: %w", err)
	}

	for _, e := range entries {
		if err := pruneBlock(rw, e.hash); err != nil {
			return 0, err
		}
		if err := rw.Delete(e.key); err != nil {
			return 0, fmt.Errorf("delete height index of %s: %w", e.hash, err)
		}
	}

	if below > mark {
		if err := rw.Put(settingKey(settingPrunedHeight), binary.BigEndian.AppendUint32(nil, below)); err != nil {
			return 0, fmt.Errorf("persist pruned height: %w", err)
		}
	}
	return len(entries), nil
}

func pruneBlock(rw readWriter, hash chainhash.Hash) error {
	payload, err := rw.Get(blockKey(hash))
	if err != nil {
		return fmt.Errorf("get block %s: %w", hash, err)
	}
	if payload != nil && !codec.IsPrunedRecord(payload) {
		ts, err := codec.BlockTime(payload)
		if err != nil {
			return corrupt("block", hash, err)
		}
		if err := rw.Put(blockKey(hash), codec.EncodePrunedBlock(ts)); err != nil {
			return fmt.Errorf("put placeholder %s: %w", hash, err)
		}
	}
	if err := rw.Delete(undoKey(hash)); err != nil {
		return fmt.Errorf("delete undo block %s: %w", hash, err)
	}
	if err := rw.Delete(modifierV2Key(hash)); err != nil {
		return fmt.Errorf("delete stake modifier v2 %s: %w", hash, err)
	}
	return nil
}

func prunedHeight(r kv.Reader) (uint32, error) {
	value, err := r.Get(settingKey(settingPrunedHeight))
	if err != nil {
		return 0, fmt.Errorf("get pruned height: %w", err)
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 4 {
		return 0, fmt.Errorf("pruned height has %d bytes: %w", len(value), chain.ErrCorruptRecord)
	}
	return binary.BigEndian.Uint32(value), nil
}
