package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/consensus"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/internal/pos/service"
	"github.com/goodnatureofminers/stakecore/internal/pos/store"
	"go.uber.org/zap"
)

const (
	blockVersion = 7
	blockReward  = 50 * btcutil.SatoshiPerBitcoin
)

// anyoneCanSpend is OP_TRUE.
var anyoneCanSpend = []byte{0x51}

// generate extends the verified chain with count work blocks, bootstrapping a genesis block first when
// the store is empty. Networks with checkpoints are refused since their blocks cannot be mined here.
func generate(ctx context.Context, p params.Params, st *store.Store, validator *service.BlockValidator, count uint32, logger *zap.Logger) error {
	if len(p.Checkpoints) > 0 {
		return fmt.Errorf("generate is not available on %s", p.Name)
	}

	tip, err := st.VerifiedChainHead()
	if err != nil {
		return err
	}
	if tip == nil {
		if tip, err = validator.Bootstrap(genesisBlock(p, time.Now().Unix())); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	difficulty := consensus.NewDifficultyEngine(p, st)
	for i := uint32(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		block, err := nextWorkBlock(difficulty, tip, tip.Time()+p.TargetSpacing)
		if err != nil {
			return err
		}
		if tip, err = validator.Accept(block); err != nil {
			if service.IsRejection(err) {
				return fmt.Errorf("generated block rejected: %w", err)
			}
			return err
		}
	}

	logger.Info("blocks generated",
		zap.Uint32("count", count),
		zap.Stringer("tip", tip.Hash),
		zap.Uint32("height", tip.Height))
	return nil
}

func genesisBlock(p params.Params, ts int64) *model.Block {
	cb := coinbaseTx(0, ts)
	return &model.Block{
		Header: wire.BlockHeader{
			Version:    blockVersion,
			MerkleRoot: cb.TxHash(),
			Timestamp:  time.Unix(ts, 0),
			Bits:       p.PowLimitBits,
		},
		Transactions: []*model.Transaction{cb},
	}
}

func nextWorkBlock(difficulty *consensus.DifficultyEngine, prev *model.StoredBlock, ts int64) (*model.Block, error) {
	if prev == nil {
		return nil, errors.New("no parent block")
	}
	target, err := difficulty.NextTarget(prev)
	if err != nil {
		return nil, fmt.Errorf("next target after %s: %w", prev.Hash, err)
	}
	cb := coinbaseTx(prev.Height+1, ts)
	return &model.Block{
		Header: wire.BlockHeader{
			Version:    blockVersion,
			PrevBlock:  prev.Hash,
			MerkleRoot: cb.TxHash(),
			Timestamp:  time.Unix(ts, 0),
			Bits:       blockchain.BigToCompact(target),
		},
		Transactions: []*model.Transaction{cb},
	}, nil
}

func coinbaseTx(height uint32, ts int64) *model.Transaction {
	return &model.Transaction{
		Version: 1,
		Time:    uint32(ts),
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
			SignatureScript:  []byte{byte(height), byte(height >> 8), byte(height >> 16), 0x51},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: blockReward, PkScript: anyoneCanSpend}},
	}
}
