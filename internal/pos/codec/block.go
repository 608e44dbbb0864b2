package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
)

const (
	headerSize = wire.MaxBlockHeaderPayload
	// storedBlockFixedSize covers everything before the variable chain work.
	storedBlockFixedSize = chainhash.HashSize + headerSize + 4 + 8 + 8 + 1 + 1 + 1 + chainhash.HashSize
)

// EncodeStoredBlock writes the block record: next hash, header, height, modifier, stake time, entropy
// bit, generated flag, stake flag, kernel proof and chain work.
func EncodeStoredBlock(b *model.StoredBlock, next chainhash.Hash) ([]byte, error) {
	if b.Pruned {
		return EncodePrunedBlock(b.Time()), nil
	}
	if b.EntropyBit > 1 {
		return nil, fmt.Errorf("entropy bit %d is not 0 or 1", b.EntropyBit)
	}
	var work []byte
	if b.ChainWork != nil {
		if b.ChainWork.Sign() < 0 {
			return nil, fmt.Errorf("negative chain work %s", b.ChainWork)
		}
		work = b.ChainWork.Bytes()
	}

	buf := bytes.NewBuffer(make([]byte, 0, storedBlockFixedSize+len(work)))
	buf.Write(next[:])
	if err := b.Header.Serialize(buf); err != nil {
		return nil, fmt.Errorf("serialize header: %w", err)
	}

	out := buf.Bytes()
	out = binary.LittleEndian.AppendUint32(out, b.Height)
	out = binary.LittleEndian.AppendUint64(out, b.StakeModifier)
	out = binary.LittleEndian.AppendUint64(out, b.StakeTime)
	out = append(out, b.EntropyBit, boolByte(b.GeneratedModifier), boolByte(b.IsStake))
	out = append(out, b.StakeProof[:]...)
	out = append(out, work...)
	return out, nil
}

// DecodeStoredBlock reads a block record stored under hash. Placeholders decode as pruned blocks with a
// zero next hash.
func DecodeStoredBlock(hash chainhash.Hash, payload []byte) (*model.StoredBlock, chainhash.Hash, error) {
	if len(payload) <= PrunedRecordSize {
		ts, err := DecodePrunedBlock(payload)
		if err != nil {
			return nil, chainhash.Hash{}, err
		}
		return model.NewPrunedBlock(hash, ts), chainhash.Hash{}, nil
	}
	if len(payload) < storedBlockFixedSize {
		return nil, chainhash.Hash{}, fmt.Errorf("%w: block record has %d bytes, want at least %d",
			ErrMalformedRecord, len(payload), storedBlockFixedSize)
	}

	r := newReader(payload)
	next := r.hash("next hash")

	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(r.take(headerSize, "header"))); err != nil {
		return nil, chainhash.Hash{}, fmt.Errorf("%w: header: %v", ErrMalformedRecord, err)
	}

	b := &model.StoredBlock{
		Hash:          hash,
		Header:        header,
		Height:        r.uint32("height"),
		StakeModifier: r.uint64("stake modifier"),
		StakeTime:     r.uint64("stake time"),
		EntropyBit:    r.uint8("entropy bit"),
	}
	generated := r.uint8("generated flag")
	stake := r.uint8("stake flag")
	b.StakeProof = r.hash("stake proof")
	b.ChainWork = new(big.Int).SetBytes(r.rest())
	if r.err != nil {
		return nil, chainhash.Hash{}, r.err
	}

	if b.EntropyBit > 1 {
		return nil, chainhash.Hash{}, fmt.Errorf("%w: entropy bit %d", ErrMalformedRecord, b.EntropyBit)
	}
	var err error
	if b.GeneratedModifier, err = byteBool(generated, "generated"); err != nil {
		return nil, chainhash.Hash{}, err
	}
	if b.IsStake, err = byteBool(stake, "stake"); err != nil {
		return nil, chainhash.Hash{}, err
	}
	return b, next, nil
}

// EncodePrunedBlock writes a timestamp-only placeholder.
func EncodePrunedBlock(timestamp int64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, PrunedRecordSize), uint64(timestamp))
}

// DecodePrunedBlock reads a placeholder written by EncodePrunedBlock.
func DecodePrunedBlock(payload []byte) (int64, error) {
	if len(payload) != PrunedRecordSize {
		return 0, fmt.Errorf("%w: placeholder has %d bytes, want %d", ErrMalformedRecord, len(payload), PrunedRecordSize)
	}
	return int64(binary.LittleEndian.Uint64(payload)), nil
}

// IsPrunedRecord reports whether payload is a placeholder.
func IsPrunedRecord(payload []byte) bool {
	return len(payload) <= PrunedRecordSize
}

// BlockTime extracts the timestamp from either a full record or a placeholder without decoding the rest.
func BlockTime(payload []byte) (int64, error) {
	if IsPrunedRecord(payload) {
		return DecodePrunedBlock(payload)
	}
	if len(payload) < chainhash.HashSize+headerSize {
		return 0, fmt.Errorf("%w: block record has %d bytes", ErrMalformedRecord, len(payload))
	}
	// header: version(4) prev(32) merkle(32) time(4)
	off := chainhash.HashSize + 4 + 2*chainhash.HashSize
	return int64(binary.LittleEndian.Uint32(payload[off : off+4])), nil
}

// NextHash returns the next-block pointer of a full record. Placeholders have none.
func NextHash(payload []byte) (chainhash.Hash, error) {
	var next chainhash.Hash
	if IsPrunedRecord(payload) {
		return next, nil
	}
	if len(payload) < chainhash.HashSize {
		return next, fmt.Errorf("%w: block record has %d bytes", ErrMalformedRecord, len(payload))
	}
	copy(next[:], payload[:chainhash.HashSize])
	return next, nil
}

// WithNextHash returns a copy of a full record with its next-block pointer replaced.
func WithNextHash(payload []byte, next chainhash.Hash) ([]byte, error) {
	if IsPrunedRecord(payload) {
		return nil, fmt.Errorf("%w: cannot link a pruned placeholder", ErrMalformedRecord)
	}
	if len(payload) < storedBlockFixedSize {
		return nil, fmt.Errorf("%w: block record has %d bytes", ErrMalformedRecord, len(payload))
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	copy(out[:chainhash.HashSize], next[:])
	return out, nil
}
