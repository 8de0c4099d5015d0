package pkg

import (
	"errors"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// VenueName represents the string name of a swap venue
type VenueName string

const (
	VenuePumpSwap    VenueName = "pumpswap"
	VenueRaydiumV4   VenueName = "raydium_v4"
	VenueRaydiumClmm VenueName = "raydium_clmm"
	VenueMeteoraDlmm VenueName = "meteora_dlmm"
)

// OpportunityType classifies how an opportunity was found
type OpportunityType string

const (
	OpportunityBackrun      OpportunityType = "backrun"
	OpportunityCrossVenue   OpportunityType = "cross_venue_arb"
	OpportunitySandwich     OpportunityType = "sandwich"
	OpportunityJitLiquidity OpportunityType = "jit_liquidity"
	OpportunityPureArb      OpportunityType = "pure_arb"
)

// SwapLeg is one hop of an arbitrage path.
type SwapLeg struct {
	Venue      VenueName
	Pool       solana.PublicKey
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	AmountIn   math.Int
	AmountOut  math.Int
}

// Opportunity is the outbound event emitted by the detector.
type Opportunity struct {
	ID             string
	Type           OpportunityType
	Path           []SwapLeg
	InputAmount    math.Int
	ExpectedOutput math.Int
	// ExpectedProfit is in lamports and may be negative before gating.
	ExpectedProfit math.Int
	ProfitBps      int64
	Confidence     float64
	DetectedAt     time.Time
	ExpirySlot     uint64
}

// Decode errors, emitted only at the ingestion boundary.
var (
	ErrWrongLength      = errors.New("wrong account data length")
	ErrBadDiscriminator = errors.New("unknown account discriminator")
	ErrFieldOutOfRange  = errors.New("account field out of range")
)

// Stale-state errors: the cache lags the pool header. The pool's cached
// record is invalidated and the simulation skipped.
var (
	ErrAggregatedBinUnderflow = errors.New("aggregated bin reserve underflow")
	ErrLiquidityUnderflow     = errors.New("tick crossing drove liquidity negative")
	ErrVaultReadMissing       = errors.New("vault account not in store")
)

// Math invariant violations. Seeing one is a programmer error; the
// simulation aborts and must not be retried silently.
var (
	ErrDivByZero                    = errors.New("division by zero")
	ErrStepConsumedExceedsRemaining = errors.New("step consumed more than remaining input")
)

// Configuration errors.
var (
	ErrUnknownProgramKey = errors.New("program key not mapped to a venue")
	ErrVenueDisabled     = errors.New("venue is disabled")
)
