// Package consensus holds the retarget rule and the rule error vocabulary shared by the validators.
package consensus

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
)

// DifficultyEngine computes the per-block retarget: an exponential moving average toward the target
// spacing, applied at every block.
type DifficultyEngine struct {
	params params.Params
	blocks BlockReader
}

// NewDifficultyEngine creates a DifficultyEngine reading ancestors from blocks.
func NewDifficultyEngine(p params.Params, blocks BlockReader) *DifficultyEngine {
	return &DifficultyEngine{params: p, blocks: blocks}
}

// RequiredTarget returns the target a child of prev must meet, given prev's parent.
func (e *DifficultyEngine) RequiredTarget(prev, prevPrev *model.StoredBlock) *big.Int {
	limit := e.params.PowLimit()
	spacing := e.params.TargetSpacing

	actual := prev.Time() - prevPrev.Time()
	if prev.Height > e.params.RetargetFixHeight && actual < 0 {
		actual = spacing
	}
	if prev.Time() > e.params.ProtocolV3Time && actual > 10*spacing {
		actual = 10 * spacing
	}

	interval := e.params.TargetTimespan / spacing
	target := blockchain.CompactToBig(prev.Header.Bits)
	target.Mul(target, big.NewInt((interval-1)*spacing+2*actual))
	target.Quo(target, big.NewInt((interval+1)*spacing))

	if target.Sign() <= 0 || target.Cmp(limit) > 0 {
		return limit
	}
	return target
}

// NextTarget returns the target a child of prev must meet, loading prev's parent from the store. Only
// the parent's timestamp is used, so a pruned parent is fine.
func (e *DifficultyEngine) NextTarget(prev *model.StoredBlock) (*big.Int, error) {
	if err := chain.RequireFull(prev); err != nil {
		return nil, err
	}
	if !prev.HasParent() {
		return e.params.PowLimit(), nil
	}

	prevPrev, err := e.blocks.Get(prev.PrevHash())
	if err != nil {
		return nil, fmt.Errorf("get grandparent %s: %w", prev.PrevHash(), err)
	}
	if prevPrev == nil {
		return nil, fmt.Errorf("grandparent %s of height %d: %w", prev.PrevHash(), prev.Height+1, chain.ErrRecordNotFound)
	}
	return e.RequiredTarget(prev, prevPrev), nil
}

// Verify checks the bits claimed by header, a child of prev. A mismatch is a *DifficultyMismatchError.
func (e *DifficultyEngine) Verify(prev *model.StoredBlock, header *wire.BlockHeader) error {
	target, err := e.NextTarget(prev)
	if err != nil {
		return err
	}

	calculated := MaskedCompact(target, header.Bits)
	if calculated != header.Bits {
		return &DifficultyMismatchError{Calculated: calculated, Claimed: header.Bits}
	}
	return nil
}

// MaskedCompact reduces target to the precision implied by the exponent of claimed and encodes it.
func MaskedCompact(target *big.Int, claimed uint32) uint32 {
	accuracyBytes := int(claimed>>24) - 3
	mask := big.NewInt(0xFFFFFF)
	if accuracyBytes >= 0 {
		mask.Lsh(mask, uint(accuracyBytes*8))
	} else {
		mask.Rsh(mask, uint(-accuracyBytes*8))
	}
	return blockchain.BigToCompact(new(big.Int).And(target, mask))
}
