package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg/config"
	"github.com/solana-zh/solarb/pkg/engine"
	"github.com/solana-zh/solarb/pkg/sol"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("SOLARB_CONFIG"))
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := sol.NewClient(cfg.RPCEndpoint, cfg.RPCRateLimit)
	if clock, err := fetcher.GetClock(ctx); err != nil {
		log.Warn("could not seed confirmed slot from clock sysvar", zap.Error(err))
	} else {
		log.Info("clock sysvar", zap.Uint64("slot", clock.Slot), zap.Uint64("epoch", clock.Epoch))
	}

	eng := engine.New(cfg, fetcher, log)

	go func() {
		for op := range eng.Opportunities {
			log.Info("opportunity",
				zap.String("id", op.ID),
				zap.String("type", string(op.Type)),
				zap.String("input", op.InputAmount.String()),
				zap.String("profit", op.ExpectedProfit.String()),
				zap.Int64("profit_bps", op.ProfitBps),
				zap.Float64("confidence", op.Confidence),
				zap.Uint64("expiry_slot", op.ExpirySlot))
		}
	}()

	log.Info("engine starting",
		zap.Strings("venues", cfg.EnabledVenues),
		zap.Int64("min_profit_lamports", cfg.MinProfitLamports),
		zap.Int64("min_spread_bps", cfg.MinSpreadBps))

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("engine stopped", zap.Error(err))
	}
}
