package chain

import (
	"fmt"

	"github.com/goodnatureofminers/stakecore/internal/pos/model"
)

// Parent loads the parent of block. A missing parent is ErrRecordNotFound.
func Parent(r BlockReader, block *model.StoredBlock) (*model.StoredBlock, error) {
	if block.Pruned {
		return nil, fmt.Errorf("parent of %s: %w", block.Hash, ErrPrunedBlock)
	}
	parent, err := r.Get(block.PrevHash())
	if err != nil {
		return nil, fmt.Errorf("get parent %s of %s: %w", block.PrevHash(), block.Hash, err)
	}
	if parent == nil {
		return nil, fmt.Errorf("parent %s of %s: %w", block.PrevHash(), block.Hash, ErrRecordNotFound)
	}
	return parent, nil
}

// RequireFull fails with ErrPrunedBlock when block is a placeholder.
func RequireFull(block *model.StoredBlock) error {
	if block.Pruned {
		return fmt.Errorf("block %s: %w", block.Hash, ErrPrunedBlock)
	}
	return nil
}
