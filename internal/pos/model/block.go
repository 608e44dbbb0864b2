// Package model defines the domain values shared by the consensus and storage core.
package model

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// StoredBlock is a header plus its chain position and stake metadata. Values are never mutated after
// construction; the link to the next block is kept by the store in a separate index.
type StoredBlock struct {
	Hash      chainhash.Hash
	Header    wire.BlockHeader
	Height    uint32
	ChainWork *big.Int

	StakeModifier     uint64
	GeneratedModifier bool
	EntropyBit        uint8
	StakeTime         uint64
	StakeModifierV2   chainhash.Hash
	IsStake           bool
	// StakeProof is the kernel proof hash of a stake block, zero otherwise.
	StakeProof chainhash.Hash

	// Pruned marks a timestamp-only placeholder. Only Hash and Header.Timestamp are meaningful.
	Pruned bool
}

// NewStoredBlock builds a block value from its header, deriving the hash.
func NewStoredBlock(header wire.BlockHeader, height uint32, chainWork *big.Int, fields StakeFields) *StoredBlock {
	return &StoredBlock{
		Hash:              header.BlockHash(),
		Header:            header,
		Height:            height,
		ChainWork:         chainWork,
		StakeModifier:     fields.Modifier,
		GeneratedModifier: fields.Generated,
		EntropyBit:        fields.EntropyBit,
		StakeTime:         fields.StakeTime,
		StakeModifierV2:   fields.ModifierV2,
		IsStake:           fields.IsStake,
		StakeProof:        fields.ProofHash,
	}
}

// NewPrunedBlock builds the placeholder that replaces a block once it leaves the retention horizon.
func NewPrunedBlock(hash chainhash.Hash, timestamp int64) *StoredBlock {
	return &StoredBlock{
		Hash:   hash,
		Header: wire.BlockHeader{Timestamp: time.Unix(timestamp, 0)},
		Pruned: true,
	}
}

// Time returns the block timestamp in unix seconds.
func (b *StoredBlock) Time() int64 {
	return b.Header.Timestamp.Unix()
}

// PrevHash returns the parent hash.
func (b *StoredBlock) PrevHash() chainhash.Hash {
	return b.Header.PrevBlock
}

// HasParent reports whether the block links to a parent.
func (b *StoredBlock) HasParent() bool {
	return b.Header.PrevBlock != (chainhash.Hash{})
}

// KernelProofOrHash is the hash used for stake modifier selection.
func (b *StoredBlock) KernelProofOrHash() chainhash.Hash {
	if b.IsStake {
		return b.StakeProof
	}
	return b.Hash
}

// StakeFields are the values derived during validation and attached to a block before it is persisted.
type StakeFields struct {
	Modifier   uint64
	Generated  bool
	EntropyBit uint8
	StakeTime  uint64
	ModifierV2 chainhash.Hash
	IsStake    bool
	ProofHash  chainhash.Hash
}

// Block is a parsed candidate block.
type Block struct {
	Header       wire.BlockHeader
	Transactions []*Transaction
}

// Hash returns the block hash.
func (b *Block) Hash() chainhash.Hash {
	return b.Header.BlockHash()
}

// IsProofOfStake reports whether the second transaction is a coinstake.
func (b *Block) IsProofOfStake() bool {
	return len(b.Transactions) > 1 && b.Transactions[1].IsCoinStake()
}

// CoinStake returns the coinstake transaction of a stake block.
func (b *Block) CoinStake() *Transaction {
	if !b.IsProofOfStake() {
		return nil
	}
	return b.Transactions[1]
}

// TxOffsets returns the byte offset of every transaction within the serialized block.
func (b *Block) TxOffsets() []uint32 {
	offsets := make([]uint32, len(b.Transactions))
	offset := uint32(wire.MaxBlockHeaderPayload + wire.VarIntSerializeSize(uint64(len(b.Transactions))))
	for i, tx := range b.Transactions {
		offsets[i] = offset
		offset += uint32(tx.SerializeSize())
	}
	return offsets
}
