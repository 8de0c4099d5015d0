package detector

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/anchor"
	"github.com/solana-zh/solarb/pkg/cache"
	"github.com/solana-zh/solarb/pkg/config"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/sol"
	"github.com/solana-zh/solarb/pkg/state"
	"github.com/solana-zh/solarb/pkg/store"
)

type harness struct {
	store    *store.AccountStore
	cache    *cache.Cache
	spec     *state.Manager
	detector *Detector
	out      chan pkg.Opportunity
}

func testConfig() *config.Config {
	return &config.Config{
		MinProfitLamports:   1000,
		MinProfitBps:        10,
		MinProfitPct:        0.001,
		GasBudgetLamports:   1000,
		TipBudgetLamports:   1000,
		MaxPositionLamports: 1_000_000_000,
		EnabledVenues: []string{
			string(pkg.VenuePumpSwap),
			string(pkg.VenueRaydiumV4),
			string(pkg.VenueRaydiumClmm),
			string(pkg.VenueMeteoraDlmm),
		},
		MinSpreadBps:     20,
		MaxPendingAgeMs:  5000,
		MaxPendingSize:   10000,
		ExpirySlotBuffer: 5,
		MinConfidence:    0.8,
	}
}

func newHarness(cfg *config.Config) *harness {
	h := &harness{
		store: store.NewAccountStore(),
		out:   make(chan pkg.Opportunity, 16),
	}
	h.cache = cache.New(h.store, nil, nil)
	h.spec = state.NewManager(cfg.MaxPendingAge(), cfg.MaxPendingSize, time.Second, nil)
	h.detector = New(cfg, h.store, h.cache, h.spec, h.out, nil)
	return h
}

func (h *harness) apply(t *testing.T, key, owner solana.PublicKey, data []byte, slot uint64) {
	t.Helper()
	require.True(t, h.store.Apply(store.Update{
		Pubkey: key, Owner: owner, Data: data, Lamports: 1, Slot: slot,
	}))
	rec, _ := h.store.Get(key)
	h.cache.OnAccountWrite(key, rec)
}

func (h *harness) applyVault(t *testing.T, key solana.PublicKey, amount uint64, slot uint64) {
	t.Helper()
	data := make([]byte, sol.TokenAccountDataSize)
	binary.LittleEndian.PutUint64(data[64:72], amount)
	h.apply(t, key, solana.TokenProgramID, data, slot)
}

// mintPairKeys returns two mints with a deterministic unordered ordering:
// the first sorts low, so spot prices are quoted as second-per-first.
func mintPairKeys() (solana.PublicKey, solana.PublicKey) {
	var base, quote solana.PublicKey
	base[0] = 0x01
	quote[0] = 0x02
	base[31] = 1
	quote[31] = 1
	return base, quote
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

func encodeV4Pool(baseMint, quoteMint, baseVault, quoteVault solana.PublicKey, feeNum, feeDen uint64) []byte {
	data := make([]byte, raydium.AMMPoolDataSize)
	binary.LittleEndian.PutUint64(data[176:184], feeNum)
	binary.LittleEndian.PutUint64(data[184:192], feeDen)
	copy(data[336:368], baseVault[:])
	copy(data[368:400], quoteVault[:])
	copy(data[400:432], baseMint[:])
	copy(data[432:464], quoteMint[:])
	return data
}

// crossVenueFixture builds scenario: a Raydium V4 pool at 1000 quote/base
// and a PumpSwap pool at 1005 quote/base, a 50 bps spread.
func crossVenueFixture(t *testing.T, h *harness) (v4Pool, pumpPool solana.PublicKey) {
	baseMint, quoteMint := mintPairKeys()

	v4Pool = solana.NewWallet().PublicKey()
	v4Base := solana.NewWallet().PublicKey()
	v4Quote := solana.NewWallet().PublicKey()
	pumpPool = solana.NewWallet().PublicKey()
	pumpBase := solana.NewWallet().PublicKey()
	pumpQuote := solana.NewWallet().PublicKey()

	cfgData := make([]byte, 200)
	h.apply(t, pump.PumpGlobalConfig, pump.PumpSwapProgramID, cfgData, 1)

	h.apply(t, v4Pool, raydium.RAYDIUM_AMM_PROGRAM_ID, encodeV4Pool(baseMint, quoteMint, v4Base, v4Quote, 0, 10_000), 2)
	h.apply(t, pumpPool, pump.PumpSwapProgramID, encodePumpPool(baseMint, quoteMint, pumpBase, pumpQuote), 3)

	h.applyVault(t, v4Base, 1_000_000_000, 4)
	h.applyVault(t, v4Quote, 1_000_000_000_000, 4)
	h.applyVault(t, pumpBase, 1_000_000_000, 5)
	h.applyVault(t, pumpQuote, 1_005_000_000_000, 5)
	return v4Pool, pumpPool
}

func TestCrossVenueSpreadEmitsOpportunity(t *testing.T) {
	h := newHarness(testConfig())
	v4Pool, pumpPool := crossVenueFixture(t, h)

	h.detector.ScanCrossVenue()

	select {
	case op := <-h.out:
		assert.Equal(t, pkg.OpportunityCrossVenue, op.Type)
		require.Len(t, op.Path, 2)
		// Buy on the cheap V4 pool, sell on the rich PumpSwap pool.
		assert.Equal(t, v4Pool, op.Path[0].Pool)
		assert.Equal(t, pkg.VenueRaydiumV4, op.Path[0].Venue)
		assert.Equal(t, pumpPool, op.Path[1].Pool)
		assert.Equal(t, pkg.VenuePumpSwap, op.Path[1].Venue)
		assert.True(t, op.ExpectedProfit.IsPositive())
		assert.GreaterOrEqual(t, op.ProfitBps, int64(10))
		assert.GreaterOrEqual(t, op.Confidence, 0.8)
		assert.NotEmpty(t, op.ID)
	default:
		t.Fatal("expected a cross-venue opportunity")
	}
}

func TestCrossVenueGatesRejectUnprofitable(t *testing.T) {
	cfg := testConfig()
	// A tip budget larger than any possible edge kills the round trip.
	cfg.TipBudgetLamports = 100_000_000_000
	h := newHarness(cfg)
	crossVenueFixture(t, h)

	h.detector.ScanCrossVenue()
	select {
	case op := <-h.out:
		t.Fatalf("unexpected opportunity %s", op.ID)
	default:
	}

	// Rejected pairings are not re-probed while state is unchanged.
	h.detector.ScanCrossVenue()
	select {
	case op := <-h.out:
		t.Fatalf("unexpected opportunity after rejection %s", op.ID)
	default:
	}
}

func TestCrossVenueRespectsMinSpread(t *testing.T) {
	cfg := testConfig()
	cfg.MinSpreadBps = 100 // the fixture only offers 50 bps
	h := newHarness(cfg)
	crossVenueFixture(t, h)

	h.detector.ScanCrossVenue()
	select {
	case op := <-h.out:
		t.Fatalf("unexpected opportunity %s", op.ID)
	default:
	}
}

func TestPendingPumpSellProducesDelta(t *testing.T) {
	h := newHarness(testConfig())
	_, pumpPool := crossVenueFixture(t, h)

	entry, ok := h.cache.Entry(pumpPool)
	require.True(t, ok)
	view, ok := entry.View()
	require.True(t, ok)

	ixData := make([]byte, 24)
	copy(ixData[:8], anchor.GetDiscriminator("global", "sell"))
	binary.LittleEndian.PutUint64(ixData[8:16], 10_000_000) // base in
	binary.LittleEndian.PutUint64(ixData[16:24], 0)

	var sig solana.Signature
	sig[0] = 9
	tx := &state.PendingTransaction{
		Signature: sig,
		SeenSlot:  50,
		SeenAt:    time.Now(),
		Status:    state.StatusPending,
		Instructions: []state.DecodedInstruction{
			{
				ProgramKey: pump.PumpSwapProgramID,
				Data:       ixData,
				Accounts:   []solana.PublicKey{pumpPool},
			},
		},
		WriteKeys: []solana.PublicKey{pumpPool},
	}

	h.detector.OnPendingTransaction(tx)

	delta, ok := h.spec.Deltas.Get(sig)
	require.True(t, ok)
	assert.InDelta(t, 0.9, delta.Confidence, 1e-9)
	assert.Equal(t, uint64(55), delta.ExpirySlot)

	// Both vault images are predicted: base grows, quote shrinks.
	basePredicted, ok := delta.PredictedData[view.CP.BaseVault]
	require.True(t, ok)
	baseAmount, err := sol.TokenAccountAmount(basePredicted)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_010_000_000), baseAmount)

	quotePredicted, ok := delta.PredictedData[view.CP.QuoteVault]
	require.True(t, ok)
	quoteAmount, err := sol.TokenAccountAmount(quotePredicted)
	require.NoError(t, err)
	assert.Less(t, quoteAmount, uint64(1_005_000_000_000))

	// Predicted state never enters the account store.
	stored, _ := h.store.GetData(view.CP.QuoteVault)
	storedAmount, err := sol.TokenAccountAmount(stored)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_005_000_000_000), storedAmount)
}

func TestDisabledVenueIsIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.EnabledVenues = []string{string(pkg.VenueRaydiumV4)}
	h := newHarness(cfg)
	_, pumpPool := crossVenueFixture(t, h)

	ixData := make([]byte, 24)
	copy(ixData[:8], anchor.GetDiscriminator("global", "sell"))
	binary.LittleEndian.PutUint64(ixData[8:16], 10_000_000)

	var sig solana.Signature
	sig[0] = 3
	h.detector.OnPendingTransaction(&state.PendingTransaction{
		Signature: sig,
		SeenSlot:  50,
		SeenAt:    time.Now(),
		Status:    state.StatusPending,
		Instructions: []state.DecodedInstruction{
			{ProgramKey: pump.PumpSwapProgramID, Data: ixData, Accounts: []solana.PublicKey{pumpPool}},
		},
	})

	_, ok := h.spec.Deltas.Get(sig)
	assert.False(t, ok)
}
