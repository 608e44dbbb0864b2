// Package chain declares the chain storage contract shared by the consensus engines and the store
// implementations.
package chain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
)

// BlockReader resolves stored blocks by hash. Get returns (nil, nil) when the hash is unknown.
type BlockReader interface {
	Get(hash chainhash.Hash) (*model.StoredBlock, error)
}

// OutputReader resolves unspent outputs. GetUnspentOutput returns (nil, nil) when the output is unknown;
// index may be model.AnyIndex.
type OutputReader interface {
	GetUnspentOutput(hash chainhash.Hash, index uint32) (*model.UnspentOutput, error)
}

// ChainStore is the persistent store of block records, undo data, the unspent output set and the chain
// head pointers.
type ChainStore interface {
	BlockReader
	OutputReader

	Put(block *model.StoredBlock) error
	PutUndoable(block *model.StoredBlock, undo *model.UndoableBlock) error
	GetOnceUndoable(hash chainhash.Hash) (*model.StoredBlock, error)
	GetUndoBlock(hash chainhash.Hash) (*model.UndoableBlock, error)
	NextHash(hash chainhash.Hash) (chainhash.Hash, bool, error)

	AddUnspentOutput(out *model.UnspentOutput) error
	RemoveUnspentOutput(out *model.UnspentOutput) error
	HasUnspentOutputs(hash chainhash.Hash, count uint32) (bool, error)

	ChainHead() (*model.StoredBlock, error)
	SetChainHead(block *model.StoredBlock) error
	VerifiedChainHead() (*model.StoredBlock, error)
	SetVerifiedChainHead(block *model.StoredBlock) error

	Prune(belowHeight uint32) error

	BeginBatch() error
	CommitBatch() error
	AbortBatch() error
	Batch(fn func() error) error

	Close() error
}
