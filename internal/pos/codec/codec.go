// Package codec encodes the persisted record layouts: stored blocks, pruned placeholders, undo payloads
// and unspent outputs. All integers are little-endian. Functions are pure and never touch storage.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrMalformedRecord is returned for payloads that do not match the expected layout.
var ErrMalformedRecord = errors.New("malformed record")

// PrunedRecordSize is the size of a timestamp-only placeholder. Payloads of this size or smaller decode as
// placeholders.
const PrunedRecordSize = 8

// reader walks a payload and remembers the first short read.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: %s needs %d bytes, %d left", ErrMalformedRecord, field, n, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8(field string) uint8 {
	b := r.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint32(field string) uint32 {
	b := r.take(4, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64(field string) uint64 {
	b := r.take(8, field)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) hash(field string) chainhash.Hash {
	var h chainhash.Hash
	if b := r.take(chainhash.HashSize, field); b != nil {
		copy(h[:], b)
	}
	return h
}

func (r *reader) rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func byteBool(b uint8, field string) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s flag %d", ErrMalformedRecord, field, b)
	}
}
