package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/pkg/safe"
)

const (
	undoChanges      byte = 0
	undoTransactions byte = 1
)

// EncodeUndoBlock writes the undo payload: a discriminator followed by the transaction list or the output
// change set.
func EncodeUndoBlock(u *model.UndoableBlock) ([]byte, error) {
	if u == nil {
		return nil, errors.New("nil undo block")
	}
	if u.Changes != nil && len(u.Transactions) > 0 {
		return nil, errors.New("undo block carries both transactions and output changes")
	}

	var buf bytes.Buffer
	if u.HasTransactions() {
		count, err := safe.Uint32(len(u.Transactions))
		if err != nil {
			return nil, fmt.Errorf("transaction count: %w", err)
		}
		buf.WriteByte(undoTransactions)
		buf.Write(binary.LittleEndian.AppendUint32(nil, count))
		for i, tx := range u.Transactions {
			if err := tx.Serialize(&buf); err != nil {
				return nil, fmt.Errorf("serialize transaction %d: %w", i, err)
			}
		}
		return buf.Bytes(), nil
	}

	buf.WriteByte(undoChanges)
	if err := writeOutputs(&buf, u.Changes.Created); err != nil {
		return nil, fmt.Errorf("created outputs: %w", err)
	}
	if err := writeOutputs(&buf, u.Changes.Spent); err != nil {
		return nil, fmt.Errorf("spent outputs: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeUndoBlock reads a payload written by EncodeUndoBlock.
func DecodeUndoBlock(payload []byte) (*model.UndoableBlock, error) {
	r := newReader(payload)
	kind := r.uint8("discriminator")
	if r.err != nil {
		return nil, r.err
	}

	switch kind {
	case undoTransactions:
		count := r.uint32("transaction count")
		if r.err != nil {
			return nil, r.err
		}
		body := bytes.NewReader(r.rest())
		txs := make([]*model.Transaction, 0, min(count, 1024))
		for i := uint32(0); i < count; i++ {
			tx := &model.Transaction{}
			if err := tx.Deserialize(body); err != nil {
				return nil, fmt.Errorf("%w: transaction %d: %v", ErrMalformedRecord, i, err)
			}
			txs = append(txs, tx)
		}
		if body.Len() != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after transactions", ErrMalformedRecord, body.Len())
		}
		return model.NewUndoableTransactions(txs), nil
	case undoChanges:
		created, err := readOutputs(r, "created")
		if err != nil {
			return nil, err
		}
		spent, err := readOutputs(r, "spent")
		if err != nil {
			return nil, err
		}
		if r.remaining() != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after output changes", ErrMalformedRecord, r.remaining())
		}
		return model.NewUndoableChanges(model.OutputChanges{Created: created, Spent: spent}), nil
	default:
		return nil, fmt.Errorf("%w: unknown undo discriminator %d", ErrMalformedRecord, kind)
	}
}

func writeOutputs(buf *bytes.Buffer, outs []model.UnspentOutput) error {
	count, err := safe.Uint32(len(outs))
	if err != nil {
		return err
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, count))
	for i := range outs {
		record, err := EncodeUnspentOutput(&outs[i])
		if err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		size, err := safe.Uint32(len(record))
		if err != nil {
			return fmt.Errorf("output %d size: %w", i, err)
		}
		buf.Write(outs[i].TxHash[:])
		buf.Write(binary.LittleEndian.AppendUint32(nil, size))
		buf.Write(record)
	}
	return nil
}

func readOutputs(r *reader, field string) ([]model.UnspentOutput, error) {
	count := r.uint32(field + " count")
	if r.err != nil {
		return nil, r.err
	}
	outs := make([]model.UnspentOutput, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		txHash := r.hash(field + " tx hash")
		size := r.uint32(field + " record size")
		record := r.take(int(size), field+" record")
		if r.err != nil {
			return nil, r.err
		}
		out, err := DecodeUnspentOutput(txHash, record)
		if err != nil {
			return nil, fmt.Errorf("%s output %d: %w", field, i, err)
		}
		outs = append(outs, *out)
	}
	return outs, nil
}
