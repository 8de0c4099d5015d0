// Package raydium implements the Raydium V4 AMM and CLMM account layouts
// and swap simulators.
package raydium

import (
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

// AMMPool holds the fields of the 752-byte Raydium V4 pool account the
// engine reads. Field offsets follow the on-chain LIQUIDITY_STATE_LAYOUT_V4.
type AMMPool struct {
	Status             uint64
	BaseDecimal        uint64
	QuoteDecimal       uint64
	SwapFeeNumerator   uint64
	SwapFeeDenominator uint64
	// Pending PnL is subtracted from vault balances to get the effective
	// reserves.
	BaseNeedTakePnl  uint64
	QuoteNeedTakePnl uint64

	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
	BaseMint   solana.PublicKey
	QuoteMint  solana.PublicKey
	OpenOrders solana.PublicKey
	MarketId   solana.PublicKey

	PoolId solana.PublicKey
}

func (pool *AMMPool) VenueName() pkg.VenueName {
	return pkg.VenueRaydiumV4
}

func (pool *AMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_AMM_PROGRAM_ID
}

func (pool *AMMPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *AMMPool) GetTokens() (baseMint, quoteMint string) {
	return pool.BaseMint.String(), pool.QuoteMint.String()
}

// Decode extracts the tracked fields at their fixed offsets. The V4 layout
// has no discriminator; the length is the only shape check available.
func (pool *AMMPool) Decode(data []byte) error {
	if len(data) < AMMPoolDataSize {
		return fmt.Errorf("raydium v4 pool: expected %d bytes, got %d: %w", AMMPoolDataSize, len(data), pkg.ErrWrongLength)
	}

	pool.Status = binary.LittleEndian.Uint64(data[0:8])
	pool.BaseDecimal = binary.LittleEndian.Uint64(data[32:40])
	pool.QuoteDecimal = binary.LittleEndian.Uint64(data[40:48])
	pool.SwapFeeNumerator = binary.LittleEndian.Uint64(data[176:184])
	pool.SwapFeeDenominator = binary.LittleEndian.Uint64(data[184:192])
	pool.BaseNeedTakePnl = binary.LittleEndian.Uint64(data[192:200])
	pool.QuoteNeedTakePnl = binary.LittleEndian.Uint64(data[200:208])

	pool.BaseVault = solana.PublicKeyFromBytes(data[336:368])
	pool.QuoteVault = solana.PublicKeyFromBytes(data[368:400])
	pool.BaseMint = solana.PublicKeyFromBytes(data[400:432])
	pool.QuoteMint = solana.PublicKeyFromBytes(data[432:464])
	pool.OpenOrders = solana.PublicKeyFromBytes(data[496:528])
	pool.MarketId = solana.PublicKeyFromBytes(data[528:560])

	if pool.SwapFeeDenominator == 0 {
		return fmt.Errorf("raydium v4 pool: zero fee denominator: %w", pkg.ErrFieldOutOfRange)
	}
	return nil
}

// SimulateSwapV4 runs the V4 exact-input swap: the fee is floored off the
// input before the constant-product step. The algebraic single-expression
// shortcut rounds differently for small amounts and is deliberately not
// used.
func SimulateSwapV4(inReserve, outReserve, amountIn cosmath.Int, feeNumerator, feeDenominator uint64) (amountOut, fee cosmath.Int, err error) {
	if feeDenominator == 0 {
		return cosmath.Int{}, cosmath.Int{}, pkg.ErrDivByZero
	}
	if amountIn.IsNegative() {
		return cosmath.Int{}, cosmath.Int{}, fmt.Errorf("amount in %s: %w", amountIn, pkg.ErrFieldOutOfRange)
	}

	fee = amountIn.MulRaw(int64(feeNumerator)).QuoRaw(int64(feeDenominator))
	netIn := amountIn.Sub(fee)

	denominator := inReserve.Add(netIn)
	if denominator.IsZero() {
		return cosmath.Int{}, cosmath.Int{}, pkg.ErrDivByZero
	}
	amountOut = outReserve.Mul(netIn).Quo(denominator)
	return amountOut, fee, nil
}
