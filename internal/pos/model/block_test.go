package model

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func coinbaseTx(t uint32) *Transaction {
	return &Transaction{
		Version: 1,
		Time:    t,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
			SignatureScript:  []byte{0x51},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 0}},
	}
}

func coinstakeTx(t uint32) *Transaction {
	return &Transaction{
		Version: 1,
		Time:    t,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 2},
			SignatureScript:  []byte{0x01, 0x02, 0x03},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{
			{Value: 0},
			{Value: 1500, PkScript: []byte{0x76, 0xa9}},
		},
	}
}

func TestTransaction_SerializeRoundTrip(t *testing.T) {
	tx := coinstakeTx(1444100000)
	tx.LockTime = 9

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	require.Equal(t, tx.SerializeSize(), buf.Len())

	var got Transaction
	require.NoError(t, got.Deserialize(bytes.NewReader(buf.Bytes())))
	require.Equal(t, *tx, got)
	require.Equal(t, tx.TxHash(), got.TxHash())
}

func TestTransaction_DeserializeTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, coinstakeTx(1).Serialize(&buf))

	var got Transaction
	err := got.Deserialize(bytes.NewReader(buf.Bytes()[:buf.Len()-2]))
	require.Error(t, err)
}

func TestTransaction_Kinds(t *testing.T) {
	tests := []struct {
		name      string
		tx        *Transaction
		coinbase  bool
		coinstake bool
	}{
		{name: "coinbase", tx: coinbaseTx(1), coinbase: true},
		{name: "coinstake", tx: coinstakeTx(1), coinstake: true},
		{
			name: "regular",
			tx: &Transaction{
				TxIn:  []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x02}}}},
				TxOut: []*wire.TxOut{{Value: 10, PkScript: []byte{0x51}}},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.IsCoinBase(); got != tt.coinbase {
				t.Fatalf("IsCoinBase() = %v, want %v", got, tt.coinbase)
			}
			if got := tt.tx.IsCoinStake(); got != tt.coinstake {
				t.Fatalf("IsCoinStake() = %v, want %v", got, tt.coinstake)
			}
		})
	}
}

func TestBlock_ProofOfStakeAndOffsets(t *testing.T) {
	block := &Block{
		Header:       wire.BlockHeader{Version: 7, Timestamp: time.Unix(1444100000, 0), Bits: 0x1d00ffff},
		Transactions: []*Transaction{coinbaseTx(1444100000), coinstakeTx(1444100000)},
	}

	require.True(t, block.IsProofOfStake())
	require.Same(t, block.Transactions[1], block.CoinStake())

	offsets := block.TxOffsets()
	require.Equal(t, []uint32{81, 81 + uint32(block.Transactions[0].SerializeSize())}, offsets)

	work := &Block{Transactions: []*Transaction{coinbaseTx(1)}}
	require.False(t, work.IsProofOfStake())
	require.Nil(t, work.CoinStake())
}

func TestStoredBlock_Accessors(t *testing.T) {
	header := wire.BlockHeader{
		Version:   7,
		PrevBlock: chainhash.Hash{0xaa},
		Timestamp: time.Unix(1500000000, 0),
		Bits:      0x1b00ffff,
	}
	proof := chainhash.Hash{0x33}
	block := NewStoredBlock(header, 10, nil, StakeFields{IsStake: true, ProofHash: proof})

	require.Equal(t, header.BlockHash(), block.Hash)
	require.Equal(t, int64(1500000000), block.Time())
	require.True(t, block.HasParent())
	require.Equal(t, proof, block.KernelProofOrHash())

	pruned := NewPrunedBlock(block.Hash, block.Time())
	require.True(t, pruned.Pruned)
	require.Equal(t, block.Time(), pruned.Time())
	require.False(t, pruned.HasParent())
	require.Equal(t, block.Hash, pruned.KernelProofOrHash())
}

func TestUndoableBlock_Variants(t *testing.T) {
	txs := NewUndoableTransactions(nil)
	require.True(t, txs.HasTransactions())
	require.NotNil(t, txs.Transactions)

	changes := NewUndoableChanges(OutputChanges{Created: []UnspentOutput{{Index: 1}}})
	require.False(t, changes.HasTransactions())
	require.Len(t, changes.Changes.Created, 1)
}
