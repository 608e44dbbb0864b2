// Package stake derives stake modifiers and verifies coinstake kernels.
package stake

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/consensus"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"go.uber.org/zap"
)

const selectionRounds = 64

// Modifier is the stake modifier derived for a new block.
type Modifier struct {
	Value      uint64
	Generated  bool
	EntropyBit uint8
}

// ModifierEngine computes the 64-bit stake modifier of each block from the entropy bits of a
// pseudo-randomly selected set of ancestors.
type ModifierEngine struct {
	params params.Params
	blocks BlockReader
	logger *zap.Logger
}

// NewModifierEngine creates a ModifierEngine reading ancestors from blocks.
func NewModifierEngine(p params.Params, blocks BlockReader, logger *zap.Logger) *ModifierEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModifierEngine{params: p, blocks: blocks, logger: logger.Named("stake_modifier")}
}

// EntropyBit is the low bit of hash read as an unsigned integer.
func EntropyBit(hash chainhash.Hash) uint8 {
	return hash[0] & 1
}

// SelectionIntervalSection is the width in seconds added to the selection window in round section.
func SelectionIntervalSection(p params.Params, section int) int64 {
	return p.ModifierInterval * 63 / (63 + (63-int64(section))*(p.ModifierIntervalRatio-1))
}

// SelectionInterval is the total width of all selection rounds.
func SelectionInterval(p params.Params) int64 {
	var total int64
	for section := 0; section < selectionRounds; section++ {
		total += SelectionIntervalSection(p, section)
	}
	return total
}

// ComputeModifierV2 chains the secondary modifier: the kernel is the staked output's transaction hash for a
// stake block and the block hash for a work block.
func ComputeModifierV2(kernel, prevV2 chainhash.Hash) chainhash.Hash {
	buf := make([]byte, 0, 2*chainhash.HashSize)
	buf = append(buf, kernel[:]...)
	buf = append(buf, prevV2[:]...)
	return chainhash.DoubleHashH(buf)
}

// LastGeneratedModifier returns the most recent generated modifier at or before prev and the time of the
// block that generated it.
func (e *ModifierEngine) LastGeneratedModifier(prev *model.StoredBlock) (uint64, int64, error) {
	if !prev.HasParent() {
		return 0, prev.Time(), nil
	}

	block := prev
	for {
		if err := chain.RequireFull(block); err != nil {
			return 0, 0, err
		}
		if block.GeneratedModifier {
			return block.StakeModifier, block.Time(), nil
		}
		if !block.HasParent() {
			return 0, 0, fmt.Errorf("walk from %s reached root %s: %w", prev.Hash, block.Hash, ErrGeneratedModifierNotFound)
		}
		parent, err := e.blocks.Get(block.PrevHash())
		if err != nil {
			return 0, 0, fmt.Errorf("get ancestor %s: %w", block.PrevHash(), err)
		}
		if parent == nil {
			return 0, 0, fmt.Errorf("ancestor %s missing: %w", block.PrevHash(), ErrGeneratedModifierNotFound)
		}
		block = parent
	}
}

// Compute derives the modifier of candidate, a child of prev. A new modifier is generated only when prev
// starts a new modifier interval; otherwise the last one is carried over.
func (e *ModifierEngine) Compute(prev *model.StoredBlock, candidate *wire.BlockHeader) (Modifier, error) {
	result := Modifier{EntropyBit: EntropyBit(candidate.BlockHash())}
	if err := chain.RequireFull(prev); err != nil {
		return Modifier{}, err
	}

	prevModifier, modifierTime, err := e.LastGeneratedModifier(prev)
	if err != nil {
		return Modifier{}, fmt.Errorf("last generated modifier: %w", err)
	}
	interval := e.params.ModifierInterval
	if modifierTime/interval >= prev.Time()/interval {
		result.Value = prevModifier
		return result, nil
	}

	start := (prev.Time()/interval)*interval - SelectionInterval(e.params)
	candidates, err := e.collectCandidates(prev, start)
	if err != nil {
		return Modifier{}, err
	}
	sortCandidates(candidates)

	var (
		modifier uint64
		stop     = start
		selected = make(map[chainhash.Hash]struct{}, selectionRounds)
	)
	for round := 0; round < min(selectionRounds, len(candidates)); round++ {
		stop += SelectionIntervalSection(e.params, round)
		chosen := selectCandidate(candidates, selected, stop, prevModifier)
		if chosen == nil {
			return Modifier{}, fmt.Errorf("round %d after %s: %w", round, prev.Hash, ErrStakeModifierSelectionFailed)
		}
		modifier |= uint64(EntropyBit(chosen.Hash)) << uint(round)
		selected[chosen.Hash] = struct{}{}
	}

	e.logger.Debug("generated stake modifier",
		zap.Uint32("height", prev.Height+1),
		zap.Uint64("modifier", modifier),
		zap.Int("candidates", len(candidates)))

	result.Value = modifier
	result.Generated = true
	return result, nil
}

// KernelStakeModifier returns the modifier a pre-fork kernel with timestamp txTime hashes with: the
// modifier generated roughly one selection interval after the staked coin matured.
func (e *ModifierEngine) KernelStakeModifier(prev *model.StoredBlock, txTime int64) (uint64, error) {
	if err := chain.RequireFull(prev); err != nil {
		return 0, err
	}
	window := e.params.StakeMinAge - SelectionInterval(e.params)

	modifierTime := prev.Time()
	if modifierTime+window <= txTime {
		return 0, consensus.NewRuleError(consensus.ErrKernelModifierUnavailable,
			"best block %s at height %d too old for stake time %d", prev.Hash, prev.Height, txTime)
	}

	block := prev
	for modifierTime+window > txTime {
		if !block.HasParent() {
			return 0, consensus.NewRuleError(consensus.ErrKernelModifierUnavailable,
				"kernel modifier for stake time %d reaches the root block", txTime)
		}
		parent, err := chain.Parent(e.blocks, block)
		if err != nil {
			return 0, err
		}
		if err := chain.RequireFull(parent); err != nil {
			return 0, err
		}
		block = parent
		if block.GeneratedModifier {
			modifierTime = block.Time()
		}
	}
	return block.StakeModifier, nil
}

type candidate struct {
	block *model.StoredBlock
	key   *big.Int
}

// collectCandidates walks back from prev, inclusive, while blocks are not older than start.
func (e *ModifierEngine) collectCandidates(prev *model.StoredBlock, start int64) ([]candidate, error) {
	var out []candidate
	block := prev
	for block.Time() >= start {
		if err := chain.RequireFull(block); err != nil {
			return nil, err
		}
		out = append(out, candidate{block: block, key: blockchain.HashToBig(&block.Hash)})
		if !block.HasParent() {
			break
		}
		parent, err := chain.Parent(e.blocks, block)
		if err != nil {
			return nil, fmt.Errorf("collect candidates: %w", err)
		}
		block = parent
	}
	return out, nil
}

// sortCandidates orders by time, then by hash read as an integer.
func sortCandidates(candidates []candidate) {
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if ta, tb := a.block.Time(), b.block.Time(); ta != tb {
			if ta < tb {
				return -1
			}
			return 1
		}
		return a.key.Cmp(b.key)
	})
}

// selectCandidate picks the unselected candidate with the lowest selection hash. The first unselected
// candidate is always eligible; after that the scan stops at the first candidate past stop.
func selectCandidate(candidates []candidate, selected map[chainhash.Hash]struct{}, stop int64, prevModifier uint64) *model.StoredBlock {
	var (
		chosen *model.StoredBlock
		best   *big.Int
	)
	for _, c := range candidates {
		if chosen != nil && c.block.Time() > stop {
			break
		}
		if _, ok := selected[c.block.Hash]; ok {
			continue
		}
		value := SelectionHash(c.block, prevModifier)
		if chosen == nil || value.Cmp(best) < 0 {
			chosen, best = c.block, value
		}
	}
	return chosen
}

// SelectionHash is the value a candidate competes with in a selection round. Stake blocks are divided by
// 2^32 so they are favoured over work blocks.
func SelectionHash(block *model.StoredBlock, prevModifier uint64) *big.Int {
	proof := block.KernelProofOrHash()
	buf := make([]byte, 0, chainhash.HashSize+8)
	buf = append(buf, proof[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, prevModifier)

	h := chainhash.DoubleHashH(buf)
	value := blockchain.HashToBig(&h)
	if block.IsStake {
		value.Rsh(value, 32)
	}
	return value
}
