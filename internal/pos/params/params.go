// Package params defines the immutable network parameters consumed by the consensus and storage core.
package params

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Checkpoint is a trusted height to hash anchor.
type Checkpoint struct {
	Height uint32
	Hash   chainhash.Hash
}

// Params holds the consensus constants of a network. Components receive it by value at construction
// and never mutate it.
type Params struct {
	Name string

	GenesisHash chainhash.Hash

	// PowLimitBits is the compact form of the easiest allowed target.
	PowLimitBits uint32

	// TargetTimespan and TargetSpacing drive the per-block retarget, in seconds.
	TargetTimespan int64
	TargetSpacing  int64

	// ModifierInterval is the time that must elapse before a new stake modifier is generated.
	ModifierInterval int64
	// ModifierIntervalRatio is the ratio between the last and the first selection section widths.
	ModifierIntervalRatio int64

	StakeMinAge           int64
	StakeMinConfirmations uint32

	// ForkHeight separates the V1 and V2 kernel eras.
	ForkHeight uint32
	// RetargetFixHeight is the height after which a negative block spacing is clamped.
	RetargetFixHeight uint32
	// ProtocolV3Time is the activation time of the V3 protocol rules.
	ProtocolV3Time int64

	CoinUnit int64

	// MinimumStoreDepth is the number of blocks below the verified head that keep full data.
	MinimumStoreDepth uint32

	Checkpoints []Checkpoint
}

// PowLimit returns the easiest allowed target as a big integer.
func (p Params) PowLimit() *big.Int {
	return blockchain.CompactToBig(p.PowLimitBits)
}

// Checkpoint returns the checkpoint hash registered at height.
func (p Params) Checkpoint(height uint32) (chainhash.Hash, bool) {
	for _, c := range p.Checkpoints {
		if c.Height == height {
			return c.Hash, true
		}
	}
	return chainhash.Hash{}, false
}

// IsGenesis reports whether hash is the height 0 checkpoint.
func (p Params) IsGenesis(hash chainhash.Hash) bool {
	return hash == p.GenesisHash
}

// PruneThreshold is the verified head height above which automatic pruning starts.
func (p Params) PruneThreshold() uint32 {
	return p.MinimumStoreDepth + p.ForkHeight
}

// Validate checks that the parameters are usable by the retarget and stake modifier algorithms.
func (p Params) Validate() error {
	if p.TargetSpacing <= 0 {
		return fmt.Errorf("target spacing must be positive, got %d", p.TargetSpacing)
	}
	if p.TargetTimespan < p.TargetSpacing {
		return fmt.Errorf("target timespan %d shorter than spacing %d", p.TargetTimespan, p.TargetSpacing)
	}
	if p.ModifierInterval <= 0 {
		return fmt.Errorf("modifier interval must be positive, got %d", p.ModifierInterval)
	}
	if p.ModifierIntervalRatio < 1 {
		return fmt.Errorf("modifier interval ratio must be at least 1, got %d", p.ModifierIntervalRatio)
	}
	if p.CoinUnit <= 0 {
		return fmt.Errorf("coin unit must be positive, got %d", p.CoinUnit)
	}
	if p.PowLimit().Sign() <= 0 {
		return fmt.Errorf("pow limit bits %08x decode to a non-positive target", p.PowLimitBits)
	}
	return nil
}

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(fmt.Sprintf("invalid checkpoint hash %q: %v", s, err))
	}
	return *h
}
