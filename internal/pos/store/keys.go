package store

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Key prefixes. Every record type lives in its own ordered range of the engine keyspace.
const (
	prefixBlock      byte = 'b'
	prefixUndo       byte = 'u'
	prefixModifierV2 byte = 'v'
	prefixHeight     byte = 'h'
	prefixOutput     byte = 'o'
	prefixSetting    byte = 's'
)

const (
	settingChainHead    = "chainhead"
	settingVerifiedHead = "verifiedchainhead"
	settingPrunedHeight = "prunedheight"
)

// heightMarker is the value of a height index entry; the key carries all the information.
var heightMarker = []byte{1}

func hashKey(prefix byte, hash chainhash.Hash) []byte {
	key := make([]byte, 0, 1+chainhash.HashSize)
	key = append(key, prefix)
	return append(key, hash[:]...)
}

func blockKey(hash chainhash.Hash) []byte      { return hashKey(prefixBlock, hash) }
func undoKey(hash chainhash.Hash) []byte       { return hashKey(prefixUndo, hash) }
func modifierV2Key(hash chainhash.Hash) []byte { return hashKey(prefixModifierV2, hash) }

// heightKey orders blocks by big-endian height so the prune walk is a forward range scan.
func heightKey(height uint32, hash chainhash.Hash) []byte {
	key := heightStart(height)
	return append(key, hash[:]...)
}

func heightStart(height uint32) []byte {
	key := make([]byte, 0, 1+4+chainhash.HashSize)
	key = append(key, prefixHeight)
	return binary.BigEndian.AppendUint32(key, height)
}

func parseHeightKey(key []byte) (uint32, chainhash.Hash, error) {
	var hash chainhash.Hash
	if len(key) != 1+4+chainhash.HashSize || key[0] != prefixHeight {
		return 0, hash, fmt.Errorf("malformed height index key %x", key)
	}
	copy(hash[:], key[5:])
	return binary.BigEndian.Uint32(key[1:5]), hash, nil
}

// outputKey orders the outputs of a transaction by big-endian index, so the first key under
// outputPrefix is the lowest index.
func outputKey(txHash chainhash.Hash, index uint32) []byte {
	return binary.BigEndian.AppendUint32(outputPrefix(txHash), index)
}

func outputPrefix(txHash chainhash.Hash) []byte {
	key := make([]byte, 0, 1+chainhash.HashSize+4)
	key = append(key, prefixOutput)
	return append(key, txHash[:]...)
}

func outputIndex(key []byte) (uint32, error) {
	if len(key) != 1+chainhash.HashSize+4 {
		return 0, fmt.Errorf("malformed output key %x", key)
	}
	return binary.BigEndian.Uint32(key[1+chainhash.HashSize:]), nil
}

func settingKey(name string) []byte {
	return append([]byte{prefixSetting}, name...)
}
