// Package main inspects and maintains a chain store: it shows the heads, prunes old blocks, audits
// stake modifiers and can extend a local test chain.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/stakecore/internal/clock"
	"github.com/goodnatureofminers/stakecore/internal/metrics"
	"github.com/goodnatureofminers/stakecore/internal/pos/params"
	"github.com/goodnatureofminers/stakecore/internal/pos/service"
	"github.com/goodnatureofminers/stakecore/internal/pos/store"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type config struct {
	Engine       string        `long:"engine" env:"STAKECORE_ENGINE" description:"store engine (leveldb or bolt)" default:"leveldb"`
	Path         string        `long:"path" env:"STAKECORE_PATH" description:"store path" required:"true"`
	Network      string        `long:"network" env:"STAKECORE_NETWORK" description:"network name (mainnet or regtest)" default:"mainnet"`
	MetricsAddr  string        `long:"metrics-addr" env:"STAKECORE_METRICS_ADDR" description:"address for metrics server, empty to disable"`
	PruneBelow   uint32        `long:"below" env:"STAKECORE_PRUNE_BELOW" description:"prune: height below which blocks are pruned"`
	AuditDepth   uint32        `long:"depth" env:"STAKECORE_AUDIT_DEPTH" description:"audit: number of blocks to recompute" default:"1000"`
	AuditWorkers int           `long:"workers" env:"STAKECORE_AUDIT_WORKERS" description:"audit: worker count" default:"4"`
	AuditEvery   time.Duration `long:"every" env:"STAKECORE_AUDIT_EVERY" description:"audit: repeat interval, zero audits once"`
	Blocks       uint32        `long:"blocks" env:"STAKECORE_BLOCKS" description:"generate: number of work blocks to add" default:"10"`

	Args struct {
		Command string `positional-arg-name:"command" description:"heads, prune, audit or generate"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("chainstore failed", zap.String("command", cfg.Args.Command), zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	p, ok := params.ByName(cfg.Network)
	if !ok {
		return fmt.Errorf("unknown network %q", cfg.Network)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("network %s: %w", p.Name, err)
	}
	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, logger)
	}

	st, err := store.Open(store.Config{Engine: cfg.Engine, Path: cfg.Path}, p, metrics.NewChainStore(p.Name), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	switch cfg.Args.Command {
	case "heads":
		return showHeads(st, logger)
	case "prune":
		return prune(st, cfg.PruneBelow, logger)
	case "audit":
		auditor := service.NewModifierAuditor(p, st, cfg.AuditWorkers, metrics.NewValidator(p.Name), logger)
		return clock.Repeat(ctx, cfg.AuditEvery, func(ctx context.Context) error {
			return audit(ctx, auditor, cfg.AuditDepth)
		})
	case "generate":
		validator := service.NewBlockValidator(p, st, metrics.NewValidator(p.Name), logger)
		return generate(ctx, p, st, validator, cfg.Blocks, logger)
	default:
		return fmt.Errorf("unknown command %q", cfg.Args.Command)
	}
}

func showHeads(st *store.Store, logger *zap.Logger) error {
	head, err := st.ChainHead()
	if err != nil {
		return err
	}
	verified, err := st.VerifiedChainHead()
	if err != nil {
		return err
	}
	pruned, err := st.PrunedHeight()
	if err != nil {
		return err
	}
	if head == nil || verified == nil {
		logger.Info("store is empty")
		return nil
	}
	logger.Info("chain heads",
		zap.Stringer("chain_head", head.Hash),
		zap.Uint32("chain_height", head.Height),
		zap.Stringer("chain_work", head.ChainWork),
		zap.Stringer("verified_head", verified.Hash),
		zap.Uint32("verified_height", verified.Height),
		zap.Uint32("pruned_height", pruned))
	return nil
}

func prune(st *store.Store, below uint32, logger *zap.Logger) error {
	if below == 0 {
		return errors.New("--below is required for prune")
	}
	if err := st.Prune(below); err != nil {
		return err
	}
	pruned, err := st.PrunedHeight()
	if err != nil {
		return err
	}
	logger.Info("prune finished", zap.Uint32("pruned_height", pruned))
	return nil
}

func audit(ctx context.Context, auditor *service.ModifierAuditor, depth uint32) error {
	report, err := auditor.Audit(ctx, depth)
	if err != nil {
		return err
	}
	if len(report.Mismatches) > 0 {
		return fmt.Errorf("%d of %d stake modifiers differ from the recomputed values", len(report.Mismatches), report.Checked)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
