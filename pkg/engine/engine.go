// Package engine wires the feeds, store, cache, speculative state, and
// detector together with typed channels. Producers write into the
// channels; every consumer loop below is explicit.
package engine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/cache"
	"github.com/solana-zh/solarb/pkg/config"
	"github.com/solana-zh/solarb/pkg/detector"
	"github.com/solana-zh/solarb/pkg/feed"
	"github.com/solana-zh/solarb/pkg/sol"
	"github.com/solana-zh/solarb/pkg/state"
	"github.com/solana-zh/solarb/pkg/store"
)

const (
	updateBuffer      = 8192
	opportunityBuffer = 256
	fetchBuffer       = 128

	// confirmRemovalGrace keeps confirmed pending entries for shred dedup.
	confirmRemovalGrace = 2 * time.Second

	crossVenueScanInterval = 250 * time.Millisecond
)

// Engine owns the core components and their run loops.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	Store    *store.AccountStore
	Cache    *cache.Cache
	Spec     *state.Manager
	Detector *detector.Detector

	// Inbound channels, fed by the external block and shred feeds.
	AccountUpdates  chan feed.AccountUpdate
	BlockTxs        chan feed.BlockTransaction
	RawTransactions chan feed.RawTransaction

	// Opportunities is the outbound event stream.
	Opportunities chan pkg.Opportunity

	fetcher       *sol.Client
	fetchRequests chan []solana.PublicKey
}

// New assembles an engine. fetcher may be nil when no RPC warmup is wanted.
func New(cfg *config.Config, fetcher *sol.Client, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:             cfg,
		log:             log,
		fetcher:         fetcher,
		AccountUpdates:  make(chan feed.AccountUpdate, updateBuffer),
		BlockTxs:        make(chan feed.BlockTransaction, updateBuffer),
		RawTransactions: make(chan feed.RawTransaction, updateBuffer),
		Opportunities:   make(chan pkg.Opportunity, opportunityBuffer),
		fetchRequests:   make(chan []solana.PublicKey, fetchBuffer),
	}

	e.Store = store.NewAccountStore()
	e.Cache = cache.New(e.Store, log.Named("cache"), e.requestFetch)
	e.Spec = state.NewManager(cfg.MaxPendingAge(), cfg.MaxPendingSize, confirmRemovalGrace, log.Named("state"))
	e.Detector = detector.New(cfg, e.Store, e.Cache, e.Spec, e.Opportunities, log.Named("detector"))
	return e
}

func (e *Engine) requestFetch(keys []solana.PublicKey) {
	select {
	case e.fetchRequests <- keys:
	default:
		e.log.Warn("fetch queue full, dropping request", zap.Int("keys", len(keys)))
	}
}

// Run drives the consumer loops until the context ends.
func (e *Engine) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return e.runAccountLoop(ctx) })
	group.Go(func() error { return e.runBlockTxLoop(ctx) })
	group.Go(func() error { return e.runPendingLoop(ctx) })
	group.Go(func() error { return e.runScanLoop(ctx) })
	if e.fetcher != nil {
		group.Go(func() error { return e.runFetchLoop(ctx) })
	}

	return group.Wait()
}

func (e *Engine) runAccountLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-e.AccountUpdates:
			if !e.Store.Apply(update) {
				e.Cache.Counters().DroppedUpdates.Add(1)
				continue
			}
			rec, _ := e.Store.Get(update.Pubkey)
			e.Cache.OnAccountWrite(update.Pubkey, rec)
			e.Spec.SetConfirmedSlot(update.Slot, time.Now())
		}
	}
}

func (e *Engine) runBlockTxLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tx := <-e.BlockTxs:
			if tx.Success {
				e.Spec.Confirm(tx.Signature, tx.Slot, time.Now())
			} else {
				e.Spec.Fail(tx.Signature)
			}
		}
	}
}

func (e *Engine) runPendingLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-e.RawTransactions:
			pending, err := feed.ParsePendingTransaction(raw)
			if err != nil {
				e.Cache.Counters().DecodeErrors.Add(1)
				e.log.Debug("pending transaction parse failed", zap.Error(err))
				continue
			}
			if !e.Spec.AddPending(pending) {
				continue
			}
			e.Detector.OnPendingTransaction(pending)
		}
	}
}

func (e *Engine) runScanLoop(ctx context.Context) error {
	ticker := time.NewTicker(crossVenueScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Detector.ScanCrossVenue()
		}
	}
}

// runFetchLoop services the cache's missing-account requests through the
// rate-limited RPC client. Fetched accounts enter the store with the
// response slot and write version zero, so any streamed version of the same
// slot wins.
func (e *Engine) runFetchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case keys := <-e.fetchRequests:
			results, err := e.fetcher.GetMultipleAccountsWithOpts(ctx, keys)
			if err != nil {
				e.log.Warn("account fetch failed", zap.Int("keys", len(keys)), zap.Error(err))
				continue
			}
			for i, value := range results.Value {
				if value == nil || i >= len(keys) {
					continue
				}
				update := feed.AccountUpdate{
					Pubkey:     keys[i],
					Owner:      value.Owner,
					Data:       value.Data.GetBinary(),
					Lamports:   value.Lamports,
					Executable: value.Executable,
					RentEpoch:  value.RentEpoch.Uint64(),
					Slot:       results.Context.Slot,
				}
				if e.Store.Apply(update) {
					rec, _ := e.Store.Get(update.Pubkey)
					e.Cache.OnAccountWrite(update.Pubkey, rec)
				}
			}
		}
	}
}
