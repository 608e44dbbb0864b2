package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// maxTxItems bounds input and output counts while decoding untrusted payloads.
const maxTxItems = wire.MaxBlockPayload / 9

// Transaction is a proof-of-stake transaction. Unlike bitcoin it carries its own timestamp right after
// the version.
type Transaction struct {
	Version  int32
	Time     uint32
	TxIn     []*wire.TxIn
	TxOut    []*wire.TxOut
	LockTime uint32
}

// TxHash returns the double SHA-256 of the serialized transaction.
func (tx *Transaction) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	_ = tx.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// IsCoinBase reports whether the transaction has a single null-outpoint input.
func (tx *Transaction) IsCoinBase() bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prev := tx.TxIn[0].PreviousOutPoint
	return prev.Index == wire.MaxPrevOutIndex && prev.Hash == (chainhash.Hash{})
}

// IsCoinStake reports whether the transaction is a coinstake: a real first input and an empty first
// output followed by at least one more output.
func (tx *Transaction) IsCoinStake() bool {
	if len(tx.TxIn) == 0 || len(tx.TxOut) < 2 {
		return false
	}
	prev := tx.TxIn[0].PreviousOutPoint
	if prev.Index == wire.MaxPrevOutIndex && prev.Hash == (chainhash.Hash{}) {
		return false
	}
	first := tx.TxOut[0]
	return first.Value == 0 && len(first.PkScript) == 0
}

// SerializeSize returns the number of bytes Serialize writes.
func (tx *Transaction) SerializeSize() int {
	n := 4 + 4 + 4 +
		wire.VarIntSerializeSize(uint64(len(tx.TxIn))) +
		wire.VarIntSerializeSize(uint64(len(tx.TxOut)))
	for _, in := range tx.TxIn {
		n += chainhash.HashSize + 4 + 4 +
			wire.VarIntSerializeSize(uint64(len(in.SignatureScript))) + len(in.SignatureScript)
	}
	for _, out := range tx.TxOut {
		n += 8 + wire.VarIntSerializeSize(uint64(len(out.PkScript))) + len(out.PkScript)
	}
	return n
}

// Serialize writes the transaction in its on-chain encoding.
func (tx *Transaction) Serialize(w io.Writer) error {
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(tx.Version))
	if _, err := w.Write(scratch[:4]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(scratch[:4], tx.Time)
	if _, err := w.Write(scratch[:4]); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if _, err := w.Write(in.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(scratch[:4], in.PreviousOutPoint.Index)
		if _, err := w.Write(scratch[:4]); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, in.SignatureScript); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(scratch[:4], in.Sequence)
		if _, err := w.Write(scratch[:4]); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		binary.LittleEndian.PutUint64(scratch[:], uint64(out.Value))
		if _, err := w.Write(scratch[:]); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, out.PkScript); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	_, err := w.Write(scratch[:4])
	return err
}

// Deserialize reads a transaction written by Serialize.
func (tx *Transaction) Deserialize(r io.Reader) error {
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	tx.Version = int32(binary.LittleEndian.Uint32(scratch[:4]))
	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return fmt.Errorf("read time: %w", err)
	}
	tx.Time = binary.LittleEndian.Uint32(scratch[:4])

	inCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("read input count: %w", err)
	}
	if inCount > maxTxItems {
		return fmt.Errorf("input count %d exceeds limit", inCount)
	}
	tx.TxIn = make([]*wire.TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		in := &wire.TxIn{}
		if _, err := io.ReadFull(r, in.PreviousOutPoint.Hash[:]); err != nil {
			return fmt.Errorf("read input %d outpoint: %w", i, err)
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return fmt.Errorf("read input %d index: %w", i, err)
		}
		in.PreviousOutPoint.Index = binary.LittleEndian.Uint32(scratch[:4])
		in.SignatureScript, err = wire.ReadVarBytes(r, 0, wire.MaxBlockPayload, "signature script")
		if err != nil {
			return fmt.Errorf("read input %d script: %w", i, err)
		}
		if len(in.SignatureScript) == 0 {
			in.SignatureScript = nil
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return fmt.Errorf("read input %d sequence: %w", i, err)
		}
		in.Sequence = binary.LittleEndian.Uint32(scratch[:4])
		tx.TxIn = append(tx.TxIn, in)
	}

	outCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("read output count: %w", err)
	}
	if outCount > maxTxItems {
		return fmt.Errorf("output count %d exceeds limit", outCount)
	}
	tx.TxOut = make([]*wire.TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		out := &wire.TxOut{}
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return fmt.Errorf("read output %d value: %w", i, err)
		}
		out.Value = int64(binary.LittleEndian.Uint64(scratch[:]))
		out.PkScript, err = wire.ReadVarBytes(r, 0, wire.MaxBlockPayload, "pk script")
		if err != nil {
			return fmt.Errorf("read output %d script: %w", i, err)
		}
		if len(out.PkScript) == 0 {
			out.PkScript = nil
		}
		tx.TxOut = append(tx.TxOut, out)
	}

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return fmt.Errorf("read lock time: %w", err)
	}
	tx.LockTime = binary.LittleEndian.Uint32(scratch[:4])
	return nil
}
