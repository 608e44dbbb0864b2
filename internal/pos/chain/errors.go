package chain

import "errors"

// Store errors. They fail the single operation that raised them.
var (
	ErrRecordNotFound         = errors.New("record not found")
	ErrDuplicateUnspentOutput = errors.New("unspent output already exists")
	ErrMissingUnspentOutput   = errors.New("unspent output does not exist")
	ErrCorruptRecord          = errors.New("corrupt record")
	// ErrPrunedBlock is returned when a walk needs header or stake fields of a pruned placeholder.
	ErrPrunedBlock = errors.New("block has been pruned")
	ErrBatchActive = errors.New("batch already active")
	ErrNoBatch     = errors.New("no active batch")
	ErrClosed      = errors.New("store is closed")
)
