package pump

import (
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/solana-zh/solarb/pkg"
)

// SwapResult is the outcome of one constant-product simulation.
type SwapResult struct {
	AmountOut cosmath.Int
	Fee       cosmath.Int
	// OutBeforeFee is the gross constant-product output; the fee is carved
	// out of it on the sell side.
	OutBeforeFee    cosmath.Int
	NewBaseReserve  cosmath.Int
	NewQuoteReserve cosmath.Int
}

// SimulateSell swaps base for quote. The fee is taken from the gross
// output: gross = floor(quote * in / (base + in)), fee = floor(gross * bps
// / 10000). The two fee placements are not algebraically interchangeable
// under floor division, so each direction reproduces its own on-chain
// formula.
func SimulateSell(baseReserve, quoteReserve, amountIn cosmath.Int, feeBps uint64) (*SwapResult, error) {
	if baseReserve.IsZero() && amountIn.IsZero() {
		return nil, pkg.ErrDivByZero
	}
	if amountIn.IsNegative() {
		return nil, fmt.Errorf("amount in %s: %w", amountIn, pkg.ErrFieldOutOfRange)
	}

	denominator := baseReserve.Add(amountIn)
	if denominator.IsZero() {
		return nil, pkg.ErrDivByZero
	}
	grossOut := quoteReserve.Mul(amountIn).Quo(denominator)
	fee := grossOut.MulRaw(int64(feeBps)).QuoRaw(FeeDenominator)

	return &SwapResult{
		AmountOut:       grossOut.Sub(fee),
		Fee:             fee,
		OutBeforeFee:    grossOut,
		NewBaseReserve:  baseReserve.Add(amountIn),
		NewQuoteReserve: quoteReserve.Sub(grossOut),
	}, nil
}

// SimulateBuy swaps quote for base. The fee is taken from the input with a
// ceiling adjustment: net = floor(in * 10000 / (10000 + bps)), bumped by
// one when ceil(net * bps / 10000) + net still falls short of the input.
func SimulateBuy(baseReserve, quoteReserve, amountIn cosmath.Int, feeBps uint64) (*SwapResult, error) {
	if amountIn.IsNegative() {
		return nil, fmt.Errorf("amount in %s: %w", amountIn, pkg.ErrFieldOutOfRange)
	}

	bps := cosmath.NewIntFromUint64(feeBps)
	denom := cosmath.NewInt(FeeDenominator)

	netIn := amountIn.Mul(denom).Quo(denom.Add(bps))
	feeOnNet := netIn.Mul(bps).Add(denom.Sub(cosmath.OneInt())).Quo(denom)
	if feeOnNet.Add(netIn).LT(amountIn) {
		netIn = netIn.Add(cosmath.OneInt())
	}

	denominator := quoteReserve.Add(netIn)
	if denominator.IsZero() {
		return nil, pkg.ErrDivByZero
	}
	amountOut := baseReserve.Mul(netIn).Quo(denominator)

	return &SwapResult{
		AmountOut:       amountOut,
		Fee:             amountIn.Sub(netIn),
		OutBeforeFee:    amountOut,
		NewBaseReserve:  baseReserve.Sub(amountOut),
		NewQuoteReserve: quoteReserve.Add(netIn),
	}, nil
}

// SolveBuyExactOut finds the smallest quote input within maxIn whose
// simulated buy yields at least desiredOut, using the simulator itself as
// the oracle. Returns false when even maxIn cannot reach the target.
func SolveBuyExactOut(baseReserve, quoteReserve, desiredOut, maxIn cosmath.Int, feeBps uint64) (cosmath.Int, bool) {
	lo := cosmath.ZeroInt()
	hi := maxIn

	best := cosmath.ZeroInt()
	found := false
	for i := 0; i < 64; i++ {
		mid := lo.Add(hi).QuoRaw(2)
		res, err := SimulateBuy(baseReserve, quoteReserve, mid, feeBps)
		if err == nil && res.AmountOut.GTE(desiredOut) {
			best = mid
			found = true
			hi = mid
		} else {
			lo = mid.Add(cosmath.OneInt())
		}
		if lo.GT(hi) {
			break
		}
	}
	return best, found
}
