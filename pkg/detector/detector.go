// Package detector turns pending swaps and cross-venue price spreads into
// opportunity events. It reads confirmed state through the account store
// and hot-path cache, and speculative predictions through the delta map
// only; nothing here writes confirmed state.
package detector

import (
	"sync"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/anchor"
	"github.com/solana-zh/solarb/pkg/cache"
	"github.com/solana-zh/solarb/pkg/config"
	"github.com/solana-zh/solarb/pkg/pool/meteora"
	"github.com/solana-zh/solarb/pkg/pool/pump"
	"github.com/solana-zh/solarb/pkg/pool/raydium"
	"github.com/solana-zh/solarb/pkg/state"
	"github.com/solana-zh/solarb/pkg/store"
)

// Simulation confidence by venue family.
const (
	cpConfidence   = 0.9
	clmmConfidence = 0.95
	dlmmConfidence = 0.95
)

// v4SwapBaseIn is the Raydium V4 swap opcode (the program is not an Anchor
// program; its instructions are tagged by a single leading byte).
const v4SwapBaseIn = 9

// rejectKey identifies a probed pool pairing for rejection dedup.
type rejectKey struct {
	A solana.PublicKey
	B solana.PublicKey
}

// Detector composes the simulators into backrun and cross-venue detection.
type Detector struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.AccountStore
	cache *cache.Cache
	spec  *state.Manager
	out   chan<- pkg.Opportunity

	venueByProgram map[solana.PublicKey]pkg.VenueName
	swapDiscs      map[pkg.VenueName]anchor.DiscriminatorSet

	mu sync.Mutex
	// rejected remembers the max slot at which a pool pairing failed the
	// gates; it is not re-probed until some involved pool advances.
	rejected map[rejectKey]uint64
}

// New builds a detector emitting opportunities on out.
func New(cfg *config.Config, accountStore *store.AccountStore, hotCache *cache.Cache, spec *state.Manager, out chan<- pkg.Opportunity, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		cfg:   cfg,
		log:   log,
		store: accountStore,
		cache: hotCache,
		spec:  spec,
		out:   out,
		venueByProgram: map[solana.PublicKey]pkg.VenueName{
			pump.PumpSwapProgramID:          pkg.VenuePumpSwap,
			raydium.RAYDIUM_AMM_PROGRAM_ID:  pkg.VenueRaydiumV4,
			raydium.RAYDIUM_CLMM_PROGRAM_ID: pkg.VenueRaydiumClmm,
			meteora.MeteoraProgramID:        pkg.VenueMeteoraDlmm,
		},
		swapDiscs: map[pkg.VenueName]anchor.DiscriminatorSet{
			pkg.VenuePumpSwap:    anchor.NewDiscriminatorSet("buy", "sell"),
			pkg.VenueRaydiumClmm: anchor.NewDiscriminatorSet("swap", "swap_v2"),
			pkg.VenueMeteoraDlmm: anchor.NewDiscriminatorSet("swap", "swap2", "swap_exact_out", "swap_with_price_impact"),
		},
		rejected: make(map[rejectKey]uint64),
	}
}

// OnPendingTransaction simulates every recognized pending swap against the
// confirmed cache, publishes the resulting speculative delta, and probes
// the affected pools for backrun paths.
func (d *Detector) OnPendingTransaction(tx *state.PendingTransaction) {
	delta := &state.SpeculativeDelta{
		Signature:     tx.Signature,
		PredictedData: make(map[solana.PublicKey][]byte),
		MintDeltas:    make(map[solana.PublicKey]cosmath.Int),
		ExpirySlot:    tx.SeenSlot + d.cfg.ExpirySlotBuffer,
	}

	affected := make([]solana.PublicKey, 0, 1)
	for i := range tx.Instructions {
		inst := &tx.Instructions[i]
		venue, ok := d.venueByProgram[inst.ProgramKey]
		if !ok {
			continue
		}
		if !d.cfg.VenueEnabled(venue) {
			continue
		}
		poolKey, ok := d.poolForInstruction(inst, tx)
		if !ok {
			continue
		}
		if d.simulatePendingSwap(venue, poolKey, inst, delta) {
			affected = append(affected, poolKey)
		}
	}

	if len(delta.PredictedData) > 0 {
		d.spec.Deltas.Set(delta)
	}

	for _, poolKey := range affected {
		d.probeBackrun(poolKey, tx.SeenSlot, delta.Confidence)
	}
}

// poolForInstruction resolves the pool an instruction touches, through the
// instruction's own accounts first and the transaction's write set second.
func (d *Detector) poolForInstruction(inst *state.DecodedInstruction, tx *state.PendingTransaction) (solana.PublicKey, bool) {
	for _, key := range inst.Accounts {
		if poolKey, ok := d.cache.PoolForAccount(key); ok {
			return poolKey, true
		}
	}
	for _, key := range tx.WriteKeys {
		if poolKey, ok := d.cache.PoolForAccount(key); ok {
			return poolKey, true
		}
	}
	return solana.PublicKey{}, false
}

// probeBackrun probes the affected pool's mint pair for a profitable path
// and emits a backrun opportunity if one survives the gates.
func (d *Detector) probeBackrun(poolKey solana.PublicKey, seenSlot uint64, confidence float64) {
	entry, ok := d.cache.Entry(poolKey)
	if !ok {
		return
	}
	view, ok := entry.View()
	if !ok {
		d.cache.Counters().StaleSkips.Add(1)
		return
	}

	mintA, mintB := viewMints(view)
	pools := d.cache.PoolsByMintPair(mintA, mintB)
	if len(pools) < 2 {
		return
	}
	d.probePair(cache.NewMintPair(mintA, mintB), pools, pkg.OpportunityBackrun, confidence, seenSlot)
}

// ScanCrossVenue sweeps every mint pair quoted on two or more venues.
func (d *Detector) ScanCrossVenue() {
	for pair, pools := range d.cache.MintPairs(2) {
		d.probePair(pair, pools, pkg.OpportunityCrossVenue, clmmConfidence, d.spec.Deltas.ConfirmedSlot())
	}
}

func (d *Detector) emit(op pkg.Opportunity) {
	select {
	case d.out <- op:
	default:
		d.log.Warn("opportunity channel full, dropping", zap.String("id", op.ID))
	}
}

func newOpportunityID() string {
	return uuid.NewString()
}

func viewMints(view cache.View) (solana.PublicKey, solana.PublicKey) {
	switch {
	case view.CP != nil:
		return view.CP.BaseMint, view.CP.QuoteMint
	case view.CLMM != nil:
		return view.CLMM.Mint0, view.CLMM.Mint1
	case view.DLMM != nil:
		return view.DLMM.MintX, view.DLMM.MintY
	}
	return solana.PublicKey{}, solana.PublicKey{}
}

// markRejected records that a pairing failed the gates at maxSlot.
func (d *Detector) markRejected(a, b solana.PublicKey, maxSlot uint64) {
	d.mu.Lock()
	d.rejected[rejectKey{A: a, B: b}] = maxSlot
	d.mu.Unlock()
}

// rejectedAt reports whether the pairing was already rejected at maxSlot.
func (d *Detector) rejectedAt(a, b solana.PublicKey, maxSlot uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, ok := d.rejected[rejectKey{A: a, B: b}]
	return ok && slot == maxSlot
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
