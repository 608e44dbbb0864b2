package stake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/consensus"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/pkg/safe"
	"go.uber.org/zap"
)

const secondsPerDay = 24 * 60 * 60

// KernelValidator checks that a coinstake's kernel input meets the weighted stake target.
type KernelValidator struct {
	params    params.Params
	blocks    BlockReader
	outputs   OutputReader
	modifiers *ModifierEngine
	logger    *zap.Logger
}

// NewKernelValidator creates a KernelValidator.
func NewKernelValidator(
	p params.Params,
	blocks BlockReader,
	outputs OutputReader,
	modifiers *ModifierEngine,
	logger *zap.Logger,
) *KernelValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KernelValidator{
		params:    p,
		blocks:    blocks,
		outputs:   outputs,
		modifiers: modifiers,
		logger:    logger.Named("kernel"),
	}
}

// VerifyKernel checks the kernel of stakeTx, the coinstake of a child of prev claiming bits, and returns
// the proof hash. Consensus failures are consensus.RuleError values.
func (v *KernelValidator) VerifyKernel(prev *model.StoredBlock, stakeTx *model.Transaction, bits uint32) (chainhash.Hash, error) {
	if len(stakeTx.TxIn) == 0 {
		return chainhash.Hash{}, errors.New("coinstake has no inputs")
	}
	if err := chain.RequireFull(prev); err != nil {
		return chainhash.Hash{}, err
	}

	prevout := stakeTx.TxIn[0].PreviousOutPoint
	out, err := v.outputs.GetUnspentOutput(prevout.Hash, prevout.Index)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("get kernel input %s: %w", prevout, err)
	}
	if out == nil {
		return chainhash.Hash{}, consensus.NewRuleError(consensus.ErrKernelInputNotFound,
			"kernel input %s is not unspent", prevout)
	}
	if uint64(stakeTx.Time) < out.TxTime {
		return chainhash.Hash{}, consensus.NewRuleError(consensus.ErrTimeViolation,
			"coinstake time %d before kernel input time %d", stakeTx.Time, out.TxTime)
	}
	if int64(stakeTx.Time) <= v.params.ProtocolV3Time {
		return chainhash.Hash{}, consensus.NewRuleError(consensus.ErrWrongEra,
			"coinstake time %d not after protocol v3 time %d", stakeTx.Time, v.params.ProtocolV3Time)
	}

	var (
		proof  chainhash.Hash
		weight *big.Int
	)
	if prev.Height+1 < v.params.ForkHeight {
		proof, weight, err = v.kernelV1(prev, stakeTx, prevout, out)
	} else {
		proof, weight, err = v.kernelV2(prev, stakeTx, prevout, out)
	}
	if err != nil {
		return chainhash.Hash{}, err
	}

	if err := checkKernelTarget(proof, bits, weight); err != nil {
		return chainhash.Hash{}, err
	}

	v.logger.Debug("kernel accepted",
		zap.Uint32("height", prev.Height+1),
		zap.Stringer("prevout", prevout),
		zap.Stringer("value", btcutil.Amount(out.Value)),
		zap.Stringer("proof", proof))
	return proof, nil
}

// kernelV1 hashes the kernel modifier, the input's block time, tx offset, tx time and index and the stake
// time. The weight is the coin age beyond the minimum, in coin-days.
func (v *KernelValidator) kernelV1(
	prev *model.StoredBlock,
	stakeTx *model.Transaction,
	prevout wire.OutPoint,
	out *model.UnspentOutput,
) (chainhash.Hash, *big.Int, error) {
	txTime := int64(stakeTx.Time)

	facts, err := v.outputs.GetUnspentOutput(prevout.Hash, model.AnyIndex)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("get kernel transaction %s: %w", prevout.Hash, err)
	}
	if facts == nil {
		return chainhash.Hash{}, nil, consensus.NewRuleError(consensus.ErrKernelInputNotFound,
			"kernel transaction %s has no unspent outputs", prevout.Hash)
	}
	blockFrom, err := v.blocks.Get(facts.BlockHash)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("get kernel block %s: %w", facts.BlockHash, err)
	}
	if blockFrom == nil {
		return chainhash.Hash{}, nil, consensus.NewRuleError(consensus.ErrKernelInputNotFound,
			"kernel block %s not found", facts.BlockHash)
	}
	if blockFrom.Time()+v.params.StakeMinAge > txTime {
		return chainhash.Hash{}, nil, consensus.NewRuleError(consensus.ErrMinAgeViolation,
			"kernel block time %d plus min age exceeds stake time %d", blockFrom.Time(), txTime)
	}

	txPrevTime, err := safe.Int64(facts.TxTime)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("kernel tx time: %w", err)
	}
	age := max(0, txTime-txPrevTime-v.params.StakeMinAge)
	weight := new(big.Int).Mul(big.NewInt(out.Value), big.NewInt(age))
	weight.Quo(weight, big.NewInt(v.params.CoinUnit))
	weight.Quo(weight, big.NewInt(secondsPerDay))

	modifier, err := v.modifiers.KernelStakeModifier(prev, txTime)
	if err != nil {
		return chainhash.Hash{}, nil, err
	}

	blockTime, err := safe.Uint32(blockFrom.Time())
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("kernel block time: %w", err)
	}
	offset, err := safe.Uint32(facts.TxOffset)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("kernel tx offset: %w", err)
	}
	prevTime, err := safe.Uint32(facts.TxTime)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("kernel tx time: %w", err)
	}

	buf := make([]byte, 0, 8+5*4)
	buf = binary.LittleEndian.AppendUint64(buf, modifier)
	buf = binary.LittleEndian.AppendUint32(buf, blockTime)
	buf = binary.LittleEndian.AppendUint32(buf, offset)
	buf = binary.LittleEndian.AppendUint32(buf, prevTime)
	buf = binary.LittleEndian.AppendUint32(buf, prevout.Index)
	buf = binary.LittleEndian.AppendUint32(buf, stakeTx.Time)
	return chainhash.DoubleHashH(buf), weight, nil
}

// kernelV2 hashes the previous block's chained modifier with the input's tx time, hash and index and the
// stake time. The weight is the plain output value.
func (v *KernelValidator) kernelV2(
	prev *model.StoredBlock,
	stakeTx *model.Transaction,
	prevout wire.OutPoint,
	out *model.UnspentOutput,
) (chainhash.Hash, *big.Int, error) {
	height := prev.Height + 1
	var depth uint32
	if height > out.Height {
		depth = height - out.Height
	}
	if depth < v.params.StakeMinConfirmations {
		return chainhash.Hash{}, nil, consensus.NewRuleError(consensus.ErrMinConfirmationsViolation,
			"kernel input at depth %d, need %d", depth, v.params.StakeMinConfirmations)
	}

	prevTime, err := safe.Uint32(out.TxTime)
	if err != nil {
		return chainhash.Hash{}, nil, fmt.Errorf("kernel tx time: %w", err)
	}

	buf := make([]byte, 0, 2*chainhash.HashSize+3*4)
	buf = append(buf, prev.StakeModifierV2[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, prevTime)
	buf = append(buf, prevout.Hash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, prevout.Index)
	buf = binary.LittleEndian.AppendUint32(buf, stakeTx.Time)
	return chainhash.DoubleHashH(buf), big.NewInt(out.Value), nil
}

// checkKernelTarget accepts proof when, read as an integer, it does not exceed the target of bits scaled
// by weight.
func checkKernelTarget(proof chainhash.Hash, bits uint32, weight *big.Int) error {
	target := blockchain.CompactToBig(bits)
	target.Mul(target, weight)
	if blockchain.HashToBig(&proof).Cmp(target) > 0 {
		return consensus.NewRuleError(consensus.ErrProofBelowTarget,
			"kernel proof %s does not meet weighted target %064x", proof, target)
	}
	return nil
}
