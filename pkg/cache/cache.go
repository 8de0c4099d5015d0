// Package cache keeps decoded, simulation-ready pool state for every
// tracked pool: venue-tagged metadata plus pre-aggregated tick lists and
// bin maps, refreshed from the account store on every relevant write.
package cache

import (
	"bytes"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/store"
)

// neighborArrays is how many tick/bin arrays are kept on each side of the
// current price.
const neighborArrays = 2

// CPPoolMeta is the cached record of a constant-product pool.
type CPPoolMeta struct {
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
	BaseMint   solana.PublicKey
	QuoteMint  solana.PublicKey

	// PumpSwap: combined bps from the GlobalConfig.
	FeeBps uint64
	// Raydium V4: numerator/denominator pair from the pool header.
	FeeNumerator   uint64
	FeeDenominator uint64

	// Raydium V4: open-orders funds count toward the reserves, pending
	// PnL counts against them.
	OpenOrders       solana.PublicKey
	BaseNeedTakePnl  uint64
	QuoteNeedTakePnl uint64
}

// CLMMPoolMeta is the cached record of a concentrated-liquidity pool.
type CLMMPoolMeta struct {
	AmmConfig     solana.PublicKey
	Vault0        solana.PublicKey
	Vault1        solana.PublicKey
	Mint0         solana.PublicKey
	Mint1         solana.PublicKey
	TickSpacing   uint16
	Snapshot      raydium.CLMMSnapshot
	TickArrayKeys []solana.PublicKey
}

// DLMMPoolMeta is the cached record of a liquidity-book pool.
type DLMMPoolMeta struct {
	ReserveX     solana.PublicKey
	ReserveY     solana.PublicKey
	MintX        solana.PublicKey
	MintY        solana.PublicKey
	Snapshot     meteora.DLMMSnapshot
	BinArrayKeys []solana.PublicKey
}

// PoolEntry is one pool's cached state. The per-pool mutex keeps tick-array
// reaggregation from blocking simulations of other pools.
type PoolEntry struct {
	mu sync.Mutex

	Key   solana.PublicKey
	Venue pkg.VenueName

	Slot         uint64
	WriteVersion uint64
	Dirty        bool

	CP   *CPPoolMeta
	CLMM *CLMMPoolMeta
	DLMM *DLMMPoolMeta

	// Ticks is the aggregated tick list, rebuilt as a fresh value on every
	// tick-array change; outstanding simulations keep their old reference.
	Ticks []raydium.TickEntry
	// Bins is the aggregated bin map, same publication discipline.
	Bins map[int32]meteora.BinLiquidity
}

// View copies the entry's swap-relevant state under the pool lock.
type View struct {
	Key   solana.PublicKey
	Venue pkg.VenueName
	Slot  uint64
	CP    *CPPoolMeta
	CLMM  *CLMMPoolMeta
	DLMM  *DLMMPoolMeta
	Ticks []raydium.TickEntry
	Bins  map[int32]meteora.BinLiquidity
}

// View snapshots the entry. Aggregates are shared by reference: they are
// never mutated after publication. Dirty entries return ok=false.
func (e *PoolEntry) View() (View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Dirty || (e.CP == nil && e.CLMM == nil && e.DLMM == nil) {
		return View{}, false
	}
	return View{
		Key:   e.Key,
		Venue: e.Venue,
		Slot:  e.Slot,
		CP:    e.CP,
		CLMM:  e.CLMM,
		DLMM:  e.DLMM,
		Ticks: e.Ticks,
		Bins:  e.Bins,
	}, true
}

// Invalidate marks the entry stale so simulations skip it until the next
// header refresh.
func (e *PoolEntry) Invalidate() {
	e.mu.Lock()
	e.Dirty = true
	e.mu.Unlock()
}

// MintPair is an unordered mint pair used to group pools across venues.
type MintPair struct {
	Lo solana.PublicKey
	Hi solana.PublicKey
}

// NewMintPair normalizes the pair ordering.
func NewMintPair(a, b solana.PublicKey) MintPair {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return MintPair{Lo: a, Hi: b}
	}
	return MintPair{Lo: b, Hi: a}
}

// Cache is the hot-path cache over the account store.
type Cache struct {
	mu sync.RWMutex

	store *store.AccountStore
	log   *zap.Logger

	pools          map[solana.PublicKey]*PoolEntry
	tickArrayOwner map[solana.PublicKey]solana.PublicKey
	binArrayOwner  map[solana.PublicKey]solana.PublicKey
	vaultOwner     map[solana.PublicKey]solana.PublicKey
	byMintPair     map[MintPair][]solana.PublicKey

	// ammConfigFee caches decoded CLMM trade fee rates by config key.
	ammConfigFee map[solana.PublicKey]uint32
	// pumpFee is the GlobalConfig-sourced fee; zero until observed.
	pumpFee    uint64
	pumpFeeSet bool

	// requestFetch asks an external fetcher to deliver accounts the cache
	// needs but the store does not hold.
	requestFetch func([]solana.PublicKey)

	counters Counters
}

// New creates a cache over the given store. requestFetch may be nil.
func New(accountStore *store.AccountStore, log *zap.Logger, requestFetch func([]solana.PublicKey)) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		store:          accountStore,
		log:            log,
		pools:          make(map[solana.PublicKey]*PoolEntry),
		tickArrayOwner: make(map[solana.PublicKey]solana.PublicKey),
		binArrayOwner:  make(map[solana.PublicKey]solana.PublicKey),
		vaultOwner:     make(map[solana.PublicKey]solana.PublicKey),
		byMintPair:     make(map[MintPair][]solana.PublicKey),
		ammConfigFee:   make(map[solana.PublicKey]uint32),
		requestFetch:   requestFetch,
	}
}

// Counters reports ingestion-boundary outcomes.
func (c *Cache) Counters() *Counters {
	return &c.counters
}

// Entry returns the cached entry for a pool key.
func (c *Cache) Entry(key solana.PublicKey) (*PoolEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.pools[key]
	return entry, ok
}

// PoolForAccount maps any registered pool, vault, tick-array, or bin-array
// key to its owning pool.
func (c *Cache) PoolForAccount(key solana.PublicKey) (solana.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.pools[key]; ok {
		return key, true
	}
	if owner, ok := c.vaultOwner[key]; ok {
		return owner, true
	}
	if owner, ok := c.tickArrayOwner[key]; ok {
		return owner, true
	}
	if owner, ok := c.binArrayOwner[key]; ok {
		return owner, true
	}
	return solana.PublicKey{}, false
}

// PoolsByMintPair returns the pool keys registered under the unordered
// mint pair.
func (c *Cache) PoolsByMintPair(a, b solana.PublicKey) []solana.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byMintPair[NewMintPair(a, b)]
}

// MintPairs lists every pair with at least min registered pools.
func (c *Cache) MintPairs(min int) map[MintPair][]solana.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[MintPair][]solana.PublicKey)
	for pair, keys := range c.byMintPair {
		if len(keys) >= min {
			out[pair] = keys
		}
	}
	return out
}

// PumpFeeBps returns the GlobalConfig fee once it has been observed.
func (c *Cache) PumpFeeBps() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pumpFee, c.pumpFeeSet
}

// AmmConfigFeeRate returns the cached trade fee for a CLMM AmmConfig key.
func (c *Cache) AmmConfigFeeRate(key solana.PublicKey) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fee, ok := c.ammConfigFee[key]
	return fee, ok
}

func (c *Cache) indexMintPair(a, b, poolKey solana.PublicKey) {
	pair := NewMintPair(a, b)
	for _, existing := range c.byMintPair[pair] {
		if existing == poolKey {
			return
		}
	}
	c.byMintPair[pair] = append(c.byMintPair[pair], poolKey)
}

// OnAccountWrite refreshes cached state after the store accepted a write.
// The record's owner and discriminator decide the refresh path.
func (c *Cache) OnAccountWrite(key solana.PublicKey, rec *store.AccountRecord) {
	if rec == nil || rec.Deleted {
		return
	}

	switch rec.Owner {
	case pump.PumpSwapProgramID:
		if key == pump.PumpGlobalConfig {
			c.refreshPumpGlobalConfig(rec)
			return
		}
		if len(rec.Data) >= pump.PoolDataSize && bytes.Equal(rec.Data[:8], pump.PoolDiscriminator[:]) {
			c.refreshPumpPool(key, rec)
		}
	case raydium.RAYDIUM_AMM_PROGRAM_ID:
		if len(rec.Data) == raydium.AMMPoolDataSize {
			c.refreshV4Pool(key, rec)
		}
	case raydium.RAYDIUM_CLMM_PROGRAM_ID:
		if len(rec.Data) < 8 {
			return
		}
		switch {
		case bytes.Equal(rec.Data[:8], raydium.CLMMPoolDiscriminator[:]):
			c.refreshCLMMPool(key, rec)
		case bytes.Equal(rec.Data[:8], raydium.AmmConfigDiscriminator[:]):
			c.refreshAmmConfig(key, rec)
		case bytes.Equal(rec.Data[:8], raydium.TickArrayDiscriminator[:]):
			c.onTickArrayWrite(key)
		}
	case meteora.MeteoraProgramID:
		if len(rec.Data) < 8 {
			return
		}
		switch {
		case bytes.Equal(rec.Data[:8], meteora.LbPairDiscriminator[:]):
			c.refreshLbPair(key, rec)
		case bytes.Equal(rec.Data[:8], meteora.BinArrayDiscriminator[:]):
			c.onBinArrayWrite(key)
		}
	}
}
