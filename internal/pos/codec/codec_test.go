package codec

import (
	"encoding/binary"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/stretchr/testify/require"
)

func sampleBlock() *model.StoredBlock {
	header := wire.BlockHeader{
		Version:    7,
		PrevBlock:  chainhash.Hash{0x01, 0x02},
		MerkleRoot: chainhash.Hash{0x03},
		Timestamp:  time.Unix(1444100064, 0),
		Bits:       0x1b00ffff,
		Nonce:      0,
	}
	return model.NewStoredBlock(header, 320001, new(big.Int).Lsh(big.NewInt(1), 70), model.StakeFields{
		Modifier:   0x0123456789abcdef,
		Generated:  true,
		EntropyBit: 1,
		StakeTime:  1444100064,
		IsStake:    true,
		ProofHash:  chainhash.Hash{0xfe, 0xed},
	})
}

func sampleOutput(index uint32) model.UnspentOutput {
	return model.UnspentOutput{
		TxHash:    chainhash.Hash{0x10, byte(index)},
		Index:     index,
		Value:     2500000000,
		Height:    319500,
		Script:    []byte{0x76, 0xa9, 0x14},
		BlockHash: chainhash.Hash{0x20},
		TxTime:    1444000000,
		TxOffset:  181,
	}
}

func TestStoredBlock_RoundTrip(t *testing.T) {
	block := sampleBlock()
	next := chainhash.Hash{0xab}

	payload, err := EncodeStoredBlock(block, next)
	require.NoError(t, err)
	require.Len(t, payload, storedBlockFixedSize+len(block.ChainWork.Bytes()))

	got, gotNext, err := DecodeStoredBlock(block.Hash, payload)
	require.NoError(t, err)
	require.Equal(t, next, gotNext)
	require.Equal(t, block.Hash, got.Hash)
	require.Equal(t, block.Header, got.Header)
	require.Equal(t, block.Height, got.Height)
	require.Equal(t, 0, block.ChainWork.Cmp(got.ChainWork))
	require.Equal(t, block.StakeModifier, got.StakeModifier)
	require.Equal(t, block.GeneratedModifier, got.GeneratedModifier)
	require.Equal(t, block.EntropyBit, got.EntropyBit)
	require.Equal(t, block.StakeTime, got.StakeTime)
	require.Equal(t, block.IsStake, got.IsStake)
	require.Equal(t, block.StakeProof, got.StakeProof)
	require.False(t, got.Pruned)
}

func TestStoredBlock_Layout(t *testing.T) {
	block := sampleBlock()
	next := chainhash.Hash{0xab}

	payload, err := EncodeStoredBlock(block, next)
	require.NoError(t, err)

	require.Equal(t, next[:], payload[:32])
	// header time sits after version, prev hash and merkle root
	require.Equal(t, uint32(1444100064), binary.LittleEndian.Uint32(payload[32+68:32+72]))
	require.Equal(t, block.Height, binary.LittleEndian.Uint32(payload[112:116]))
	require.Equal(t, block.StakeModifier, binary.LittleEndian.Uint64(payload[116:124]))
	require.Equal(t, block.StakeTime, binary.LittleEndian.Uint64(payload[124:132]))
	require.Equal(t, []byte{1, 1, 1}, payload[132:135])
	require.Equal(t, block.StakeProof[:], payload[135:167])
	require.Equal(t, block.ChainWork.Bytes(), payload[167:])
}

func TestStoredBlock_Errors(t *testing.T) {
	valid, err := EncodeStoredBlock(sampleBlock(), chainhash.Hash{})
	require.NoError(t, err)

	badFlag := append([]byte(nil), valid...)
	badFlag[133] = 7

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "short placeholder", payload: []byte{1, 2, 3}},
		{name: "truncated record", payload: valid[:100]},
		{name: "bad generated flag", payload: badFlag},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeStoredBlock(chainhash.Hash{}, tt.payload)
			if !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("DecodeStoredBlock() error = %v, want ErrMalformedRecord", err)
			}
		})
	}

	block := sampleBlock()
	block.EntropyBit = 2
	_, err = EncodeStoredBlock(block, chainhash.Hash{})
	require.Error(t, err)
}

func TestPrunedBlock(t *testing.T) {
	block := sampleBlock()
	payload := EncodePrunedBlock(block.Time())
	require.Len(t, payload, PrunedRecordSize)
	require.True(t, IsPrunedRecord(payload))

	got, next, err := DecodeStoredBlock(block.Hash, payload)
	require.NoError(t, err)
	require.True(t, got.Pruned)
	require.Equal(t, block.Time(), got.Time())
	require.Equal(t, block.Hash, got.Hash)
	require.Equal(t, chainhash.Hash{}, next)

	again, err := EncodeStoredBlock(got, chainhash.Hash{0x01})
	require.NoError(t, err)
	require.Equal(t, payload, again)
}

func TestBlockTimeAndLinking(t *testing.T) {
	block := sampleBlock()
	payload, err := EncodeStoredBlock(block, chainhash.Hash{})
	require.NoError(t, err)

	ts, err := BlockTime(payload)
	require.NoError(t, err)
	require.Equal(t, block.Time(), ts)

	ts, err = BlockTime(EncodePrunedBlock(42))
	require.NoError(t, err)
	require.Equal(t, int64(42), ts)

	next := chainhash.Hash{0x77}
	linked, err := WithNextHash(payload, next)
	require.NoError(t, err)
	gotNext, err := NextHash(linked)
	require.NoError(t, err)
	require.Equal(t, next, gotNext)
	require.Equal(t, payload[32:], linked[32:])

	origNext, err := NextHash(payload)
	require.NoError(t, err)
	require.Equal(t, chainhash.Hash{}, origNext)

	_, err = WithNextHash(EncodePrunedBlock(42), next)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestUnspentOutput_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		output model.UnspentOutput
	}{
		{name: "with script", output: sampleOutput(3)},
		{name: "empty script", output: func() model.UnspentOutput {
			o := sampleOutput(0)
			o.Script = nil
			return o
		}()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncodeUnspentOutput(&tt.output)
			require.NoError(t, err)
			require.Len(t, payload, utxoFixedSize+len(tt.output.Script))
			require.Equal(t, tt.output.Index, binary.LittleEndian.Uint32(payload[0:4]))
			require.Equal(t, tt.output.TxOffset, binary.LittleEndian.Uint64(payload[24:32]))

			got, err := DecodeUnspentOutput(tt.output.TxHash, payload)
			require.NoError(t, err)
			require.Equal(t, tt.output, *got)
		})
	}

	_, err := DecodeUnspentOutput(chainhash.Hash{}, make([]byte, utxoFixedSize-1))
	require.ErrorIs(t, err, ErrMalformedRecord)

	negative := sampleOutput(1)
	negative.Value = -1
	_, err = EncodeUnspentOutput(&negative)
	require.Error(t, err)
}

func TestUndoBlock_RoundTrip(t *testing.T) {
	tx := &model.Transaction{
		Version: 1,
		Time:    1444100000,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x05}, Index: 1},
			SignatureScript:  []byte{0x47},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 0}, {Value: 900, PkScript: []byte{0x51}}},
	}

	tests := []struct {
		name string
		undo *model.UndoableBlock
		kind byte
	}{
		{name: "transactions", undo: model.NewUndoableTransactions([]*model.Transaction{tx, tx}), kind: undoTransactions},
		{name: "no transactions", undo: model.NewUndoableTransactions(nil), kind: undoTransactions},
		{
			name: "output changes",
			undo: model.NewUndoableChanges(model.OutputChanges{
				Created: []model.UnspentOutput{sampleOutput(0), sampleOutput(1)},
				Spent:   []model.UnspentOutput{sampleOutput(7)},
			}),
			kind: undoChanges,
		},
		{name: "empty changes", undo: model.NewUndoableChanges(model.OutputChanges{
			Created: []model.UnspentOutput{},
			Spent:   []model.UnspentOutput{},
		}), kind: undoChanges},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncodeUndoBlock(tt.undo)
			require.NoError(t, err)
			require.Equal(t, tt.kind, payload[0])

			got, err := DecodeUndoBlock(payload)
			require.NoError(t, err)
			require.Equal(t, tt.undo, got)
		})
	}
}

func TestUndoBlock_Errors(t *testing.T) {
	_, err := EncodeUndoBlock(nil)
	require.Error(t, err)

	_, err = EncodeUndoBlock(&model.UndoableBlock{
		Transactions: []*model.Transaction{{}},
		Changes:      &model.OutputChanges{},
	})
	require.Error(t, err)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "unknown discriminator", payload: []byte{9}},
		{name: "missing count", payload: []byte{undoTransactions, 1}},
		{name: "missing transactions", payload: []byte{undoTransactions, 2, 0, 0, 0}},
		{name: "truncated changes", payload: []byte{undoChanges, 1, 0, 0, 0}},
		{name: "trailing bytes", payload: []byte{undoChanges, 0, 0, 0, 0, 0, 0, 0, 0, 0xff}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeUndoBlock(tt.payload); !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("DecodeUndoBlock() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}
