package cache

import (
	"sort"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
)

func (c *Cache) onTickArrayWrite(key solana.PublicKey) {
	c.mu.RLock()
	poolKey, ok := c.tickArrayOwner[key]
	entry := c.pools[poolKey]
	c.mu.RUnlock()
	if !ok || entry == nil {
		return
	}
	c.rebuildTickList(entry)
}

func (c *Cache) onBinArrayWrite(key solana.PublicKey) {
	c.mu.RLock()
	poolKey, ok := c.binArrayOwner[key]
	entry := c.pools[poolKey]
	c.mu.RUnlock()
	if !ok || entry == nil {
		return
	}
	c.rebuildBinMap(entry)
}

// rebuildTickList reaggregates a CLMM pool's tick list from every held
// tick array: liquidity_net summed per tick index (duplicate indices across
// deliveries collapse), zero-liquidity ticks excluded, sorted ascending.
// The list is built as a new value and swapped in under the pool lock.
func (c *Cache) rebuildTickList(entry *PoolEntry) {
	entry.mu.Lock()
	meta := entry.CLMM
	entry.mu.Unlock()
	if meta == nil {
		return
	}

	type aggTick struct {
		net   cosmath.Int
		gross cosmath.Int
	}
	agg := make(map[int32]*aggTick)

	for _, arrayKey := range meta.TickArrayKeys {
		data, ok := c.store.GetData(arrayKey)
		if !ok {
			continue
		}
		var array raydium.TickArray
		if err := array.Decode(data); err != nil {
			c.counters.DecodeErrors.Add(1)
			c.log.Warn("tick array decode failed", zap.Stringer("array", arrayKey), zap.Error(err))
			continue
		}
		for _, tick := range array.Ticks {
			if tick.LiquidityGross.IsZero() {
				continue
			}
			gross := cosmath.NewIntFromBigInt(tick.LiquidityGross.Big())
			if existing, ok := agg[tick.Tick]; ok {
				existing.net = existing.net.Add(tick.LiquidityNet)
				existing.gross = existing.gross.Add(gross)
			} else {
				agg[tick.Tick] = &aggTick{net: tick.LiquidityNet, gross: gross}
			}
		}
	}

	ticks := make([]raydium.TickEntry, 0, len(agg))
	for index, tick := range agg {
		ticks = append(ticks, raydium.TickEntry{Index: index, LiquidityNet: tick.net})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Index < ticks[j].Index })

	entry.mu.Lock()
	entry.Ticks = ticks
	entry.mu.Unlock()
}

// rebuildBinMap reaggregates a DLMM pool's bin map from every held bin
// array, keeping bins with liquidity on at least one side. Bins from
// disjoint arrays coexist under their bin ids.
func (c *Cache) rebuildBinMap(entry *PoolEntry) {
	entry.mu.Lock()
	meta := entry.DLMM
	entry.mu.Unlock()
	if meta == nil {
		return
	}

	bins := make(map[int32]meteora.BinLiquidity)
	for _, arrayKey := range meta.BinArrayKeys {
		data, ok := c.store.GetData(arrayKey)
		if !ok {
			continue
		}
		var array meteora.BinArray
		if err := array.Decode(data); err != nil {
			c.counters.DecodeErrors.Add(1)
			c.log.Warn("bin array decode failed", zap.Stringer("array", arrayKey), zap.Error(err))
			continue
		}
		lower := array.LowerBinId()
		for i, bin := range array.Bins {
			if bin.AmountX == 0 && bin.AmountY == 0 {
				continue
			}
			bins[lower+int32(i)] = bin
		}
	}

	entry.mu.Lock()
	entry.Bins = bins
	entry.mu.Unlock()
}
