package cache

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/store"
)

func (c *Cache) refreshPumpGlobalConfig(rec *store.AccountRecord) {
	var cfg pump.GlobalConfig
	if err := cfg.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("pump global config decode failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.pumpFee = cfg.TotalFeeBps()
	c.pumpFeeSet = true
	for _, entry := range c.pools {
		if entry.Venue == pkg.VenuePumpSwap {
			entry.mu.Lock()
			if entry.CP != nil {
				entry.CP.FeeBps = c.pumpFee
			}
			entry.mu.Unlock()
		}
	}
	c.mu.Unlock()
}

func (c *Cache) refreshPumpPool(key solana.PublicKey, rec *store.AccountRecord) {
	var pool pump.AMMPool
	if err := pool.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("pump pool decode failed", zap.Stringer("pool", key), zap.Error(err))
		return
	}
	pool.PoolId = key

	feeBps, _ := c.PumpFeeBps()
	meta := &CPPoolMeta{
		BaseVault:  pool.PoolBaseTokenAccount,
		QuoteVault: pool.PoolQuoteTokenAccount,
		BaseMint:   pool.BaseMint,
		QuoteMint:  pool.QuoteMint,
		FeeBps:     feeBps,
	}

	entry := c.upsertEntry(key, pkg.VenuePumpSwap)
	entry.mu.Lock()
	entry.CP = meta
	entry.Slot = rec.Slot
	entry.WriteVersion = rec.WriteVersion
	entry.Dirty = false
	entry.mu.Unlock()

	c.mu.Lock()
	c.vaultOwner[pool.PoolBaseTokenAccount] = key
	c.vaultOwner[pool.PoolQuoteTokenAccount] = key
	c.indexMintPair(pool.BaseMint, pool.QuoteMint, key)
	c.mu.Unlock()
}

func (c *Cache) refreshV4Pool(key solana.PublicKey, rec *store.AccountRecord) {
	var pool raydium.AMMPool
	if err := pool.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("raydium v4 pool decode failed", zap.Stringer("pool", key), zap.Error(err))
		return
	}
	pool.PoolId = key

	meta := &CPPoolMeta{
		BaseVault:        pool.BaseVault,
		QuoteVault:       pool.QuoteVault,
		BaseMint:         pool.BaseMint,
		QuoteMint:        pool.QuoteMint,
		FeeNumerator:     pool.SwapFeeNumerator,
		FeeDenominator:   pool.SwapFeeDenominator,
		OpenOrders:       pool.OpenOrders,
		BaseNeedTakePnl:  pool.BaseNeedTakePnl,
		QuoteNeedTakePnl: pool.QuoteNeedTakePnl,
	}

	entry := c.upsertEntry(key, pkg.VenueRaydiumV4)
	entry.mu.Lock()
	entry.CP = meta
	entry.Slot = rec.Slot
	entry.WriteVersion = rec.WriteVersion
	entry.Dirty = false
	entry.mu.Unlock()

	c.mu.Lock()
	c.vaultOwner[pool.BaseVault] = key
	c.vaultOwner[pool.QuoteVault] = key
	c.indexMintPair(pool.BaseMint, pool.QuoteMint, key)
	c.mu.Unlock()
}

func (c *Cache) refreshAmmConfig(key solana.PublicKey, rec *store.AccountRecord) {
	var cfg raydium.AmmConfig
	if err := cfg.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("amm config decode failed", zap.Stringer("config", key), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.ammConfigFee[key] = cfg.TradeFeeRate
	affected := make([]*PoolEntry, 0)
	for _, entry := range c.pools {
		if entry.Venue == pkg.VenueRaydiumClmm && entry.CLMM != nil && entry.CLMM.AmmConfig == key {
			affected = append(affected, entry)
		}
	}
	c.mu.Unlock()

	for _, entry := range affected {
		entry.mu.Lock()
		entry.CLMM.Snapshot.FeeRate = cfg.TradeFeeRate
		// The pool may have been waiting on this config to go live.
		entry.Dirty = false
		entry.mu.Unlock()
	}
}

func (c *Cache) refreshCLMMPool(key solana.PublicKey, rec *store.AccountRecord) {
	var pool raydium.CLMMPool
	if err := pool.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("clmm pool decode failed", zap.Stringer("pool", key), zap.Error(err))
		return
	}
	pool.PoolId = key

	feeRate, haveFee := c.AmmConfigFeeRate(pool.AmmConfig)
	arrayKeys := pool.RequiredTickArrayKeys(neighborArrays)

	meta := &CLMMPoolMeta{
		AmmConfig:     pool.AmmConfig,
		Vault0:        pool.TokenVault0,
		Vault1:        pool.TokenVault1,
		Mint0:         pool.TokenMint0,
		Mint1:         pool.TokenMint1,
		TickSpacing:   pool.TickSpacing,
		Snapshot:      pool.Snapshot(feeRate),
		TickArrayKeys: arrayKeys,
	}

	entry := c.upsertEntry(key, pkg.VenueRaydiumClmm)

	var previous []solana.PublicKey
	entry.mu.Lock()
	if entry.CLMM != nil {
		previous = entry.CLMM.TickArrayKeys
	}
	entry.CLMM = meta
	entry.Slot = rec.Slot
	entry.WriteVersion = rec.WriteVersion
	// Without the AmmConfig fee the simulation would undercharge; stay
	// dirty until it arrives.
	entry.Dirty = !haveFee
	entry.mu.Unlock()

	c.mu.Lock()
	c.vaultOwner[pool.TokenVault0] = key
	c.vaultOwner[pool.TokenVault1] = key
	for _, arrayKey := range arrayKeys {
		c.tickArrayOwner[arrayKey] = key
	}
	c.indexMintPair(pool.TokenMint0, pool.TokenMint1, key)
	c.mu.Unlock()

	c.rebuildTickList(entry)
	c.requestMissing(arrayKeys, previous, pool.AmmConfig, haveFee)
}

func (c *Cache) refreshLbPair(key solana.PublicKey, rec *store.AccountRecord) {
	var pool meteora.LbPair
	if err := pool.Decode(rec.Data); err != nil {
		c.counters.DecodeErrors.Add(1)
		c.log.Warn("lb pair decode failed", zap.Stringer("pool", key), zap.Error(err))
		return
	}
	pool.PoolId = key

	arrayKeys := pool.RequiredBinArrayKeys(neighborArrays)
	meta := &DLMMPoolMeta{
		ReserveX:     pool.ReserveX,
		ReserveY:     pool.ReserveY,
		MintX:        pool.TokenXMint,
		MintY:        pool.TokenYMint,
		Snapshot:     pool.Snapshot(),
		BinArrayKeys: arrayKeys,
	}

	entry := c.upsertEntry(key, pkg.VenueMeteoraDlmm)

	var previous []solana.PublicKey
	entry.mu.Lock()
	if entry.DLMM != nil {
		previous = entry.DLMM.BinArrayKeys
	}
	entry.DLMM = meta
	entry.Slot = rec.Slot
	entry.WriteVersion = rec.WriteVersion
	entry.Dirty = false
	entry.mu.Unlock()

	c.mu.Lock()
	c.vaultOwner[pool.ReserveX] = key
	c.vaultOwner[pool.ReserveY] = key
	for _, arrayKey := range arrayKeys {
		c.binArrayOwner[arrayKey] = key
	}
	c.indexMintPair(pool.TokenXMint, pool.TokenYMint, key)
	c.mu.Unlock()

	c.rebuildBinMap(entry)
	c.requestMissing(arrayKeys, previous, solana.PublicKey{}, true)
}

func (c *Cache) upsertEntry(key solana.PublicKey, venue pkg.VenueName) *PoolEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pools[key]
	if !ok {
		entry = &PoolEntry{Key: key, Venue: venue}
		c.pools[key] = entry
	}
	return entry
}

// requestMissing asks the external fetcher for newly required accounts the
// store does not hold yet.
func (c *Cache) requestMissing(required, previous []solana.PublicKey, ammConfig solana.PublicKey, haveFee bool) {
	if c.requestFetch == nil {
		return
	}

	known := make(map[solana.PublicKey]struct{}, len(previous))
	for _, key := range previous {
		known[key] = struct{}{}
	}

	missing := make([]solana.PublicKey, 0, len(required)+1)
	if !haveFee && !ammConfig.IsZero() {
		missing = append(missing, ammConfig)
	}
	for _, key := range required {
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := c.store.GetData(key); ok {
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) > 0 {
		c.requestFetch(missing)
	}
}
