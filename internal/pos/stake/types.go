package stake

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	BlockReader interface {
		Get(hash chainhash.Hash) (*model.StoredBlock, error)
	}

	OutputReader interface {
		GetUnspentOutput(hash chainhash.Hash, index uint32) (*model.UnspentOutput, error)
	}
)
