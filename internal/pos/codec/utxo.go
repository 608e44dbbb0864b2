package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/pkg/safe"
)

const utxoFixedSize = 4 + 4 + 8 + 8 + 8 + chainhash.HashSize

// EncodeUnspentOutput writes the output record. The transaction hash is the key and is not part of it.
func EncodeUnspentOutput(o *model.UnspentOutput) ([]byte, error) {
	value, err := safe.Uint64(o.Value)
	if err != nil {
		return nil, fmt.Errorf("output value: %w", err)
	}

	out := make([]byte, 0, utxoFixedSize+len(o.Script))
	out = binary.LittleEndian.AppendUint32(out, o.Index)
	out = binary.LittleEndian.AppendUint32(out, o.Height)
	out = binary.LittleEndian.AppendUint64(out, value)
	out = binary.LittleEndian.AppendUint64(out, o.TxTime)
	out = binary.LittleEndian.AppendUint64(out, o.TxOffset)
	out = append(out, o.BlockHash[:]...)
	out = append(out, o.Script...)
	return out, nil
}

// DecodeUnspentOutput reads an output record stored for txHash.
func DecodeUnspentOutput(txHash chainhash.Hash, payload []byte) (*model.UnspentOutput, error) {
	if len(payload) < utxoFixedSize {
		return nil, fmt.Errorf("%w: output record has %d bytes, want at least %d",
			ErrMalformedRecord, len(payload), utxoFixedSize)
	}

	r := newReader(payload)
	o := &model.UnspentOutput{
		TxHash: txHash,
		Index:  r.uint32("index"),
		Height: r.uint32("height"),
	}
	value := r.uint64("value")
	o.TxTime = r.uint64("tx time")
	o.TxOffset = r.uint64("tx offset")
	o.BlockHash = r.hash("block hash")
	if script := r.rest(); len(script) > 0 {
		o.Script = append([]byte(nil), script...)
	}
	if r.err != nil {
		return nil, r.err
	}

	v, err := safe.Int64(value)
	if err != nil {
		return nil, fmt.Errorf("%w: output value: %v", ErrMalformedRecord, err)
	}
	o.Value = v
	return o, nil
}
