package consensus

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	BlockReader interface {
		Get(hash chainhash.Hash) (*model.StoredBlock, error)
	}
)
