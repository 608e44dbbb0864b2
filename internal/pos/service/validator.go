// Package service runs candidate blocks through the consensus engines and commits the accepted ones.
package service

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/consensus"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/internal/pos/stake"
	"go.uber.org/zap"
)

// BlockValidator checks candidate blocks against their parent and connects the valid ones to the store.
type BlockValidator struct {
	params     params.Params
	store      chain.ChainStore
	difficulty *consensus.DifficultyEngine
	modifiers  *stake.ModifierEngine
	kernels    *stake.KernelValidator
	metrics    Metrics
	logger     *zap.Logger

	// serializes Accept so validate-and-connect runs against a stable tip
	mu sync.Mutex
}

// NewBlockValidator wires the consensus engines to store.
func NewBlockValidator(p params.Params, store chain.ChainStore, metrics Metrics, logger *zap.Logger) *BlockValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("validator")
	modifiers := stake.NewModifierEngine(p, store, logger)
	return &BlockValidator{
		params:     p,
		store:      store,
		difficulty: consensus.NewDifficultyEngine(p, store),
		modifiers:  modifiers,
		kernels:    stake.NewKernelValidator(p, store, store, modifiers, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// Bootstrap stores genesis as the first verified block of an empty store. Its modifier is zero and
// counts as generated; its V2 modifier is zero.
func (v *BlockValidator) Bootstrap(genesis *model.Block) (*model.StoredBlock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	head, err := v.store.VerifiedChainHead()
	if err != nil {
		return nil, fmt.Errorf("verified head: %w", err)
	}
	if head != nil {
		return nil, fmt.Errorf("store already holds verified head %s", head.Hash)
	}
	hash := genesis.Hash()
	if len(v.params.Checkpoints) > 0 && !v.params.IsGenesis(hash) {
		return nil, fmt.Errorf("genesis %s does not match the %s checkpoint", hash, v.params.Name)
	}

	stored := model.NewStoredBlock(genesis.Header, 0, blockchain.CalcWork(genesis.Header.Bits), model.StakeFields{
		Generated:  true,
		EntropyBit: stake.EntropyBit(hash),
	})
	if err := v.connect(genesis, stored); err != nil {
		return nil, err
	}
	v.logger.Info("genesis stored", zap.Stringer("hash", hash))
	return stored, nil
}

// Accept validates block against its stored parent and connects it.
func (v *BlockValidator) Accept(block *model.Block) (*model.StoredBlock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prevHash := block.Header.PrevBlock
	prev, err := v.store.Get(prevHash)
	if err != nil {
		return nil, fmt.Errorf("get parent %s: %w", prevHash, err)
	}
	if prev == nil {
		return nil, fmt.Errorf("parent %s of %s: %w", prevHash, block.Hash(), chain.ErrRecordNotFound)
	}

	stored, err := v.Validate(prev, block)
	if err != nil {
		return nil, err
	}
	if err := v.connect(block, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Validate runs the difficulty, stake modifier and kernel checks for block as a child of prev and
// returns the record to persist. Rejections are consensus.RuleError values; stake.IsFatal errors mean
// the stored chain is unusable.
func (v *BlockValidator) Validate(prev *model.StoredBlock, block *model.Block) (stored *model.StoredBlock, err error) {
	started := time.Now()
	defer func() {
		v.observe("validate", err, started)
	}()

	hash := block.Hash()
	if block.Header.PrevBlock != prev.Hash {
		return nil, fmt.Errorf("block %s does not extend %s", hash, prev.Hash)
	}
	if err := chain.RequireFull(prev); err != nil {
		return nil, err
	}

	if err := v.difficulty.Verify(prev, &block.Header); err != nil {
		return nil, fmt.Errorf("difficulty of %s: %w", hash, err)
	}

	modifier, err := v.modifiers.Compute(prev, &block.Header)
	if err != nil {
		if stake.IsFatal(err) {
			v.logger.Error("stake modifier unavailable", zap.Stringer("block", hash), zap.Error(err))
		}
		return nil, fmt.Errorf("stake modifier of %s: %w", hash, err)
	}

	fields := model.StakeFields{
		Modifier:   modifier.Value,
		Generated:  modifier.Generated,
		EntropyBit: modifier.EntropyBit,
	}
	kernel := hash
	if coinStake := block.CoinStake(); coinStake != nil {
		proof, err := v.kernels.VerifyKernel(prev, coinStake, block.Header.Bits)
		if err != nil {
			return nil, fmt.Errorf("kernel of %s: %w", hash, err)
		}
		fields.IsStake = true
		fields.ProofHash = proof
		fields.StakeTime = uint64(coinStake.Time)
		kernel = coinStake.TxIn[0].PreviousOutPoint.Hash
	}
	fields.ModifierV2 = stake.ComputeModifierV2(kernel, prev.StakeModifierV2)

	work := new(big.Int).Add(prev.ChainWork, blockchain.CalcWork(block.Header.Bits))
	stored = model.NewStoredBlock(block.Header, prev.Height+1, work, fields)

	v.logger.Debug("block validated",
		zap.Stringer("hash", hash),
		zap.Uint32("height", stored.Height),
		zap.Bool("stake", fields.IsStake),
		zap.Uint64("modifier", fields.Modifier),
		zap.Bool("generated", fields.Generated))
	return stored, nil
}

// Connect persists stored, the validated record of block. A block on top of the verified head has its
// outputs applied and becomes the new verified head, all in one batch. Any other block is kept with its
// transaction list as undo data and only moves the chain head when it carries more work.
func (v *BlockValidator) Connect(block *model.Block, stored *model.StoredBlock) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connect(block, stored)
}

func (v *BlockValidator) connect(block *model.Block, stored *model.StoredBlock) (err error) {
	started := time.Now()
	defer func() {
		v.observe("connect", err, started)
	}()

	verified, err := v.store.VerifiedChainHead()
	if err != nil {
		return fmt.Errorf("verified head: %w", err)
	}
	extendsVerified := (verified == nil && !stored.HasParent()) ||
		(verified != nil && verified.Hash == stored.PrevHash())

	err = v.store.Batch(func() error {
		if !extendsVerified {
			return v.storeSideBlock(block, stored)
		}
		changes, err := applyOutputs(v.store, block, stored)
		if err != nil {
			return err
		}
		if err := v.store.PutUndoable(stored, model.NewUndoableChanges(changes)); err != nil {
			return err
		}
		return v.store.SetVerifiedChainHead(stored)
	})
	if err != nil {
		return fmt.Errorf("connect %s at height %d: %w", stored.Hash, stored.Height, err)
	}

	v.logger.Debug("block connected",
		zap.Stringer("hash", stored.Hash),
		zap.Uint32("height", stored.Height),
		zap.Bool("verified", extendsVerified))
	return nil
}

func (v *BlockValidator) storeSideBlock(block *model.Block, stored *model.StoredBlock) error {
	if err := v.store.PutUndoable(stored, model.NewUndoableTransactions(block.Transactions)); err != nil {
		return err
	}
	head, err := v.store.ChainHead()
	if err != nil {
		return err
	}
	if head != nil && head.ChainWork.Cmp(stored.ChainWork) >= 0 {
		return nil
	}
	return v.store.SetChainHead(stored)
}

// applyOutputs spends the inputs and adds the spendable outputs of every transaction in block and
// returns the changes as undo data.
func applyOutputs(store chain.ChainStore, block *model.Block, stored *model.StoredBlock) (model.OutputChanges, error) {
	var changes model.OutputChanges
	offsets := block.TxOffsets()
	for i, tx := range block.Transactions {
		txHash := tx.TxHash()
		if !tx.IsCoinBase() {
			for _, in := range tx.TxIn {
				prevout := in.PreviousOutPoint
				out, err := store.GetUnspentOutput(prevout.Hash, prevout.Index)
				if err != nil {
					return model.OutputChanges{}, fmt.Errorf("get input %s: %w", prevout, err)
				}
				if out == nil {
					return model.OutputChanges{}, fmt.Errorf("input %s of %s: %w", prevout, txHash, chain.ErrMissingUnspentOutput)
				}
				if err := store.RemoveUnspentOutput(out); err != nil {
					return model.OutputChanges{}, err
				}
				changes.Spent = append(changes.Spent, *out)
			}
		}

		for index, txOut := range tx.TxOut {
			if txOut.Value == 0 && len(txOut.PkScript) == 0 {
				continue
			}
			out := model.UnspentOutput{
				TxHash:    txHash,
				Index:     uint32(index),
				Value:     txOut.Value,
				Height:    stored.Height,
				Script:    txOut.PkScript,
				BlockHash: stored.Hash,
				TxTime:    uint64(tx.Time),
				TxOffset:  uint64(offsets[i]),
			}
			if err := store.AddUnspentOutput(&out); err != nil {
				return model.OutputChanges{}, err
			}
			changes.Created = append(changes.Created, out)
		}
	}
	return changes, nil
}

// IsRejection reports whether err means the block is invalid rather than that validation could not
// run.
func IsRejection(err error) bool {
	var re consensus.RuleError
	return errors.As(err, &re)
}

func (v *BlockValidator) observe(operation string, err error, started time.Time) {
	if v.metrics == nil {
		return
	}
	v.metrics.Observe(operation, err, started)
}
