package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/stakecore/internal/pos/chain"
	"github.com/goodnatureofminers/stakecore/internal/pos/model"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/internal/pos/stake"
	"github.com/goodnatureofminers/stakecore/pkg/workerpool"
	"go.uber.org/zap"
)

const defaultAuditWorkers = 4

// ModifierMismatch is a stored block whose stake modifier differs from the recomputed one.
type ModifierMismatch struct {
	Height   uint32
	Hash     chainhash.Hash
	Stored   stake.Modifier
	Computed stake.Modifier
}

// AuditReport summarizes an audit run. Skipped counts blocks whose selection window reaches pruned
// history.
type AuditReport struct {
	Checked    int
	Skipped    int
	Mismatches []ModifierMismatch
}

// ModifierAuditor recomputes the stake modifiers of recent verified blocks and compares them with the
// stored values.
type ModifierAuditor struct {
	store     chain.ChainStore
	modifiers *stake.ModifierEngine
	workers   int
	metrics   Metrics
	logger    *zap.Logger
}

// NewModifierAuditor creates a ModifierAuditor running on workers goroutines.
func NewModifierAuditor(p params.Params, store chain.ChainStore, workers int, metrics Metrics, logger *zap.Logger) *ModifierAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = defaultAuditWorkers
	}
	logger = logger.Named("auditor")
	return &ModifierAuditor{
		store:     store,
		modifiers: stake.NewModifierEngine(p, store, logger),
		workers:   workers,
		metrics:   metrics,
		logger:    logger,
	}
}

type auditPair struct {
	prev  *model.StoredBlock
	block *model.StoredBlock
}

type auditResult struct {
	mismatch *ModifierMismatch
	skipped  bool
}

// Audit checks up to depth blocks ending at the verified head. The walk stops early at the genesis
// block or at the first pruned ancestor.
func (a *ModifierAuditor) Audit(ctx context.Context, depth uint32) (report AuditReport, err error) {
	started := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.Observe("audit", err, started)
		}
	}()

	pairs, err := a.collect(ctx, depth)
	if err != nil {
		return AuditReport{}, err
	}

	results, err := workerpool.Map(ctx, a.workers, pairs, a.check)
	if err != nil {
		return AuditReport{}, err
	}

	for _, r := range results {
		switch {
		case r.skipped:
			report.Skipped++
			continue
		case r.mismatch != nil:
			m := *r.mismatch
			report.Mismatches = append(report.Mismatches, m)
			a.logger.Warn("stake modifier mismatch",
				zap.Uint32("height", m.Height),
				zap.Stringer("hash", m.Hash),
				zap.Uint64("stored", m.Stored.Value),
				zap.Uint64("computed", m.Computed.Value))
		}
		report.Checked++
	}
	a.logger.Info("modifier audit finished",
		zap.Int("checked", report.Checked),
		zap.Int("skipped", report.Skipped),
		zap.Int("mismatches", len(report.Mismatches)))
	return report, nil
}

func (a *ModifierAuditor) check(_ context.Context, p auditPair) (auditResult, error) {
	computed, err := a.modifiers.Compute(p.prev, &p.block.Header)
	if errors.Is(err, chain.ErrPrunedBlock) {
		return auditResult{skipped: true}, nil
	}
	if err != nil {
		return auditResult{}, fmt.Errorf("recompute modifier of %s: %w", p.block.Hash, err)
	}

	stored := stake.Modifier{
		Value:      p.block.StakeModifier,
		Generated:  p.block.GeneratedModifier,
		EntropyBit: p.block.EntropyBit,
	}
	if computed == stored {
		return auditResult{}, nil
	}
	return auditResult{mismatch: &ModifierMismatch{
		Height:   p.block.Height,
		Hash:     p.block.Hash,
		Stored:   stored,
		Computed: computed,
	}}, nil
}

// collect walks back from the verified head pairing each block with its parent.
func (a *ModifierAuditor) collect(ctx context.Context, depth uint32) ([]auditPair, error) {
	block, err := a.store.VerifiedChainHead()
	if err != nil {
		return nil, fmt.Errorf("verified head: %w", err)
	}
	if block == nil {
		return nil, nil
	}

	var pairs []auditPair
	for uint32(len(pairs)) < depth && block.HasParent() && !block.Pruned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, err := chain.Parent(a.store, block)
		if err != nil {
			return nil, err
		}
		if prev.Pruned {
			break
		}
		pairs = append(pairs, auditPair{prev: prev, block: block})
		block = prev
	}
	return pairs, nil
}
