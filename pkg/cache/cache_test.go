package cache

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/store"
)

type fixture struct {
	store *store.AccountStore
	cache *Cache
	// fetched collects the keys the cache asked the external fetcher for.
	fetched []solana.PublicKey
}

func newFixture() *fixture {
	f := &fixture{store: store.NewAccountStore()}
	f.cache = New(f.store, nil, func(keys []solana.PublicKey) {
		f.fetched = append(f.fetched, keys...)
	})
	return f
}

func (f *fixture) apply(t *testing.T, key, owner solana.PublicKey, data []byte, slot uint64) {
	t.Helper()
	u := store.Update{
		Pubkey:   key,
		Owner:    owner,
		Data:     data,
		Lamports: 1,
		Slot:     slot,
	}
	require.True(t, f.store.Apply(u))
	rec, _ := f.store.Get(key)
	f.cache.OnAccountWrite(key, rec)
}

func encodePumpGlobalConfig(lpBps, protocolBps uint64) []byte {
	data := make([]byte, 200)
	binary.LittleEndian.PutUint64(data[40:48], lpBps)
	binary.LittleEndian.PutUint64(data[48:56], protocolBps)
	return data
}

func encodePumpPool(baseMint, quoteMint, baseVault, quoteVault solana.PublicKey) []byte {
	data := make([]byte, pump.PoolDataSize)
	copy(data[:8], pump.PoolDiscriminator[:])
	copy(data[43:75], baseMint[:])
	copy(data[75:107], quoteMint[:])
	copy(data[139:171], baseVault[:])
	copy(data[171:203], quoteVault[:])
	return data
}

func TestPumpPoolRefresh(t *testing.T) {
	f := newFixture()

	baseMint := solana.NewWallet().PublicKey()
	quoteMint := solana.NewWallet().PublicKey()
	baseVault := solana.NewWallet().PublicKey()
	quoteVault := solana.NewWallet().PublicKey()
	poolKey := solana.NewWallet().PublicKey()

	f.apply(t, pump.PumpGlobalConfig, pump.PumpSwapProgramID, encodePumpGlobalConfig(20, 10), 5)
	f.apply(t, poolKey, pump.PumpSwapProgramID, encodePumpPool(baseMint, quoteMint, baseVault, quoteVault), 6)

	entry, ok := f.cache.Entry(poolKey)
	require.True(t, ok)
	view, ok := entry.View()
	require.True(t, ok)
	assert.Equal(t, pkg.VenuePumpSwap, view.Venue)
	assert.Equal(t, uint64(30), view.CP.FeeBps)
	assert.Equal(t, uint64(6), view.Slot)

	owner, ok := f.cache.PoolForAccount(baseVault)
	require.True(t, ok)
	assert.Equal(t, poolKey, owner)

	assert.Equal(t, []solana.PublicKey{poolKey}, f.cache.PoolsByMintPair(baseMint, quoteMint))
	assert.Equal(t, []solana.PublicKey{poolKey}, f.cache.PoolsByMintPair(quoteMint, baseMint))
}

func TestPumpFeeArrivingAfterPool(t *testing.T) {
	f := newFixture()
	poolKey := solana.NewWallet().PublicKey()

	f.apply(t, poolKey, pump.PumpSwapProgramID, encodePumpPool(
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()), 1)
	f.apply(t, pump.PumpGlobalConfig, pump.PumpSwapProgramID, encodePumpGlobalConfig(25, 5), 2)

	entry, _ := f.cache.Entry(poolKey)
	view, ok := entry.View()
	require.True(t, ok)
	assert.Equal(t, uint64(30), view.CP.FeeBps)
}

func encodeCLMMPool(ammConfig, mint0, mint1, vault0, vault1 solana.PublicKey, tickSpacing uint16, tickCurrent int32, liquidity uint64, sqrtPrice *big.Int) []byte {
	data := make([]byte, raydium.CLMMPoolDataSize)
	copy(data[:8], raydium.CLMMPoolDiscriminator[:])
	copy(data[9:41], ammConfig[:])
	copy(data[73:105], mint0[:])
	copy(data[105:137], mint1[:])
	copy(data[137:169], vault0[:])
	copy(data[169:201], vault1[:])
	binary.LittleEndian.PutUint16(data[235:237], tickSpacing)
	binary.LittleEndian.PutUint64(data[237:245], liquidity)
	lo := new(big.Int).And(sqrtPrice, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(sqrtPrice, 64).Uint64()
	binary.LittleEndian.PutUint64(data[253:261], lo)
	binary.LittleEndian.PutUint64(data[261:269], hi)
	binary.LittleEndian.PutUint32(data[269:273], uint32(tickCurrent))
	// Mark every tick array initialized.
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint64(data[904+i*8:912+i*8], ^uint64(0))
	}
	return data
}

func encodeAmmConfig(tradeFeeRate uint32) []byte {
	data := make([]byte, raydium.AmmConfigDataSize)
	copy(data[:8], raydium.AmmConfigDiscriminator[:])
	binary.LittleEndian.PutUint32(data[47:51], tradeFeeRate)
	return data
}

func encodeTickArray(poolId solana.PublicKey, startIndex int32, ticks map[int32]int64) []byte {
	data := make([]byte, raydium.TickArrayDataSize)
	copy(data[:8], raydium.TickArrayDiscriminator[:])
	copy(data[8:40], poolId[:])
	binary.LittleEndian.PutUint32(data[40:44], uint32(startIndex))
	slot := 0
	for tick, net := range ticks {
		offset := 44 + slot*168
		binary.LittleEndian.PutUint32(data[offset:], uint32(tick))
		neg := net < 0
		mag := uint64(net)
		if neg {
			mag = uint64(-net)
		}
		if neg {
			// Two's complement of a small magnitude.
			binary.LittleEndian.PutUint64(data[offset+4:], ^mag+1)
			binary.LittleEndian.PutUint64(data[offset+12:], ^uint64(0))
		} else {
			binary.LittleEndian.PutUint64(data[offset+4:], mag)
		}
		// liquidity_gross = |net| so the tick counts as initialized.
		binary.LittleEndian.PutUint64(data[offset+20:], mag)
		slot++
	}
	return data
}

func TestCLMMTickAggregation(t *testing.T) {
	f := newFixture()

	ammConfig := solana.NewWallet().PublicKey()
	poolKey := solana.NewWallet().PublicKey()
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 64)

	poolData := encodeCLMMPool(ammConfig,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		1, 0, 1_000_000, sqrtPrice)

	// The pool arrives before its fee config: it must not be simulatable
	// yet, and the config must be requested from the fetcher.
	f.apply(t, poolKey, raydium.RAYDIUM_CLMM_PROGRAM_ID, poolData, 10)

	entry, ok := f.cache.Entry(poolKey)
	require.True(t, ok)
	_, ok = entry.View()
	assert.False(t, ok, "pool without a fee rate must stay dirty")
	assert.Contains(t, f.fetched, ammConfig)

	f.apply(t, ammConfig, raydium.RAYDIUM_CLMM_PROGRAM_ID, encodeAmmConfig(500), 10)

	view, ok := entry.View()
	require.True(t, ok)
	assert.Equal(t, uint32(500), view.CLMM.Snapshot.FeeRate)

	// Two arrays carrying the same tick index: liquidity_net sums.
	arrayA := raydium.GetPdaTickArrayAddress(raydium.RAYDIUM_CLMM_PROGRAM_ID, poolKey, -60)
	arrayB := raydium.GetPdaTickArrayAddress(raydium.RAYDIUM_CLMM_PROGRAM_ID, poolKey, 0)
	f.apply(t, arrayA, raydium.RAYDIUM_CLMM_PROGRAM_ID, encodeTickArray(poolKey, -60, map[int32]int64{-10: 5}), 11)
	f.apply(t, arrayB, raydium.RAYDIUM_CLMM_PROGRAM_ID, encodeTickArray(poolKey, 0, map[int32]int64{-10: 7, 30: 4}), 12)

	view, ok = entry.View()
	require.True(t, ok)
	require.Len(t, view.Ticks, 2)
	assert.Equal(t, int32(-10), view.Ticks[0].Index)
	assert.Equal(t, "12", view.Ticks[0].LiquidityNet.String())
	assert.Equal(t, int32(30), view.Ticks[1].Index)
	assert.Equal(t, "4", view.Ticks[1].LiquidityNet.String())
}

func encodeLbPair(mintX, mintY, reserveX, reserveY solana.PublicKey, activeId int32, binStep, baseFactor uint16) []byte {
	data := make([]byte, meteora.LbPairDataSize)
	copy(data[:8], meteora.LbPairDiscriminator[:])
	binary.LittleEndian.PutUint16(data[8:10], baseFactor)
	binary.LittleEndian.PutUint32(data[76:80], uint32(activeId))
	binary.LittleEndian.PutUint16(data[80:82], binStep)
	copy(data[88:120], mintX[:])
	copy(data[120:152], mintY[:])
	copy(data[152:184], reserveX[:])
	copy(data[184:216], reserveY[:])
	return data
}

func encodeBinArray(lbPair solana.PublicKey, index int64, bins map[int]uint64) []byte {
	data := make([]byte, meteora.BinArrayDataSize)
	copy(data[:8], meteora.BinArrayDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], uint64(index))
	copy(data[24:56], lbPair[:])
	for slot, amountY := range bins {
		offset := 56 + slot*144
		binary.LittleEndian.PutUint64(data[offset+8:], amountY)
	}
	return data
}

func TestDLMMBinAggregation(t *testing.T) {
	f := newFixture()
	poolKey := solana.NewWallet().PublicKey()

	f.apply(t, poolKey, meteora.MeteoraProgramID, encodeLbPair(
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		35, 25, 5000), 20)

	entry, ok := f.cache.Entry(poolKey)
	require.True(t, ok)
	view, ok := entry.View()
	require.True(t, ok)
	assert.Equal(t, int32(35), view.DLMM.Snapshot.ActiveId)
	assert.Empty(t, view.Bins)

	arrayZero, _ := meteora.DeriveBinArrayPDA(poolKey, 0)
	arrayOne, _ := meteora.DeriveBinArrayPDA(poolKey, 1)
	f.apply(t, arrayZero, meteora.MeteoraProgramID, encodeBinArray(poolKey, 0, map[int]uint64{35: 1000, 36: 2000}), 21)
	f.apply(t, arrayOne, meteora.MeteoraProgramID, encodeBinArray(poolKey, 1, map[int]uint64{0: 3000}), 22)

	view, ok = entry.View()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), view.Bins[35].AmountY)
	assert.Equal(t, uint64(2000), view.Bins[36].AmountY)
	assert.Equal(t, uint64(3000), view.Bins[70].AmountY)
	assert.Len(t, view.Bins, 3)
}

func TestInvalidateSkipsSimulation(t *testing.T) {
	f := newFixture()
	poolKey := solana.NewWallet().PublicKey()

	f.apply(t, poolKey, pump.PumpSwapProgramID, encodePumpPool(
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()), 1)

	entry, _ := f.cache.Entry(poolKey)
	entry.Invalidate()
	_, ok := entry.View()
	assert.False(t, ok)

	// A fresh header refresh clears the flag.
	f.apply(t, poolKey, pump.PumpSwapProgramID, encodePumpPool(
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()), 2)
	_, ok = entry.View()
	assert.True(t, ok)
}
