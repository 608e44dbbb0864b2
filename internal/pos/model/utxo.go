package model

import (
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// AnyIndex asks the store for any output of a transaction instead of an exact index.
const AnyIndex uint32 = math.MaxUint32

// UnspentOutput is a spendable transaction output together with the facts about its transaction that
// the stake kernel needs.
type UnspentOutput struct {
	TxHash    chainhash.Hash
	Index     uint32
	Value     int64
	Height    uint32
	Script    []byte
	BlockHash chainhash.Hash
	// TxTime is the timestamp of the creating transaction; zero never appears in a healthy store.
	TxTime uint64
	// TxOffset is the byte offset of the creating transaction within its block.
	TxOffset uint64
}

// OutputChanges is the compact undo form of a connected block: the outputs it created and the outputs it
// spent.
type OutputChanges struct {
	Created []UnspentOutput
	Spent   []UnspentOutput
}

// UndoableBlock holds exactly one of a full transaction list or the output changes of a block.
type UndoableBlock struct {
	Transactions []*Transaction
	Changes      *OutputChanges
}

// NewUndoableTransactions builds the transaction-list variant.
func NewUndoableTransactions(txs []*Transaction) *UndoableBlock {
	if txs == nil {
		txs = []*Transaction{}
	}
	return &UndoableBlock{Transactions: txs}
}

// NewUndoableChanges builds the output-changes variant.
func NewUndoableChanges(changes OutputChanges) *UndoableBlock {
	return &UndoableBlock{Changes: &changes}
}

// HasTransactions reports which variant is populated.
func (u *UndoableBlock) HasTransactions() bool {
	return u.Changes == nil
}
