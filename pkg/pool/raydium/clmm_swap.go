package raydium

import (
	"fmt"
	"sort"

	cosmath "cosmossdk.io/math"
	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/fixedpoint"
)

// TickEntry is one initialized tick of the aggregated tick list: sorted
// ascending, de-duplicated by summing liquidity_net per tick index.
type TickEntry struct {
	Index        int32
	LiquidityNet cosmath.Int
}

// CLMMSnapshot is the swap-relevant pool state at simulation entry.
type CLMMSnapshot struct {
	SqrtPriceX64 cosmath.Int
	TickCurrent  int32
	Liquidity    cosmath.Int
	// FeeRate is the trade fee per 1_000_000, from the pool's AmmConfig.
	FeeRate uint32
}

// CLMMSwapResult reports a tick-traversing exact-input swap.
type CLMMSwapResult struct {
	AmountIn       cosmath.Int
	AmountOut      cosmath.Int
	FeeAmount      cosmath.Int
	SqrtPriceAfter cosmath.Int
	TickAfter      int32
	LiquidityAfter cosmath.Int
	TicksCrossed   int
}

var q64 = cosmath.NewIntFromBigInt(fixedpoint.QOne)

// SimulateCLMMExactIn walks the aggregated tick list from the snapshot
// price until the gross input is consumed, liquidity runs out, or the
// price limit is reached.
func SimulateCLMMExactIn(snap CLMMSnapshot, ticks []TickEntry, amountIn cosmath.Int, zeroForOne bool, sqrtPriceLimit *cosmath.Int) (*CLMMSwapResult, error) {
	result := &CLMMSwapResult{
		AmountIn:       cosmath.ZeroInt(),
		AmountOut:      cosmath.ZeroInt(),
		FeeAmount:      cosmath.ZeroInt(),
		SqrtPriceAfter: snap.SqrtPriceX64,
		TickAfter:      snap.TickCurrent,
		LiquidityAfter: snap.Liquidity,
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return result, nil
	}

	limit := fixedpoint.MinSqrtPriceX64
	if !zeroForOne {
		limit = fixedpoint.MaxSqrtPriceX64
	}
	if sqrtPriceLimit != nil {
		limit = *sqrtPriceLimit
	}

	remaining := amountIn
	sqrtPrice := snap.SqrtPriceX64
	tick := snap.TickCurrent
	liquidity := snap.Liquidity

	for steps := 0; remaining.IsPositive() && liquidity.IsPositive() && !sqrtPrice.Equal(limit); steps++ {
		if steps >= MaxSwapSteps {
			break
		}

		entryIdx, hasEntry := nextInitializedTick(ticks, tick, zeroForOne)
		targetTick := int32(MIN_TICK)
		if !zeroForOne {
			targetTick = MAX_TICK
		}
		if hasEntry {
			targetTick = ticks[entryIdx].Index
			if targetTick < MIN_TICK {
				targetTick = MIN_TICK
			} else if targetTick > MAX_TICK {
				targetTick = MAX_TICK
			}
		}

		tickSqrt, err := fixedpoint.SqrtPriceAtTick(targetTick)
		if err != nil {
			return nil, err
		}

		sqrtTarget := tickSqrt
		atTickBoundary := true
		if (zeroForOne && tickSqrt.LT(limit)) || (!zeroForOne && tickSqrt.GT(limit)) {
			sqrtTarget = limit
			atTickBoundary = false
		}

		step, err := swapStepExactIn(sqrtPrice, sqrtTarget, liquidity, remaining, snap.FeeRate, zeroForOne)
		if err != nil {
			return nil, err
		}

		consumed := step.amountIn.Add(step.feeAmount)
		if consumed.GT(remaining) {
			return nil, fmt.Errorf("clmm step consumed %s of %s: %w", consumed, remaining, pkg.ErrStepConsumedExceedsRemaining)
		}
		remaining = remaining.Sub(consumed)
		result.AmountOut = result.AmountOut.Add(step.amountOut)
		result.FeeAmount = result.FeeAmount.Add(step.feeAmount)

		reachedBoundary := atTickBoundary && step.sqrtPriceNext.Equal(tickSqrt)
		sqrtPrice = step.sqrtPriceNext

		if reachedBoundary {
			if hasEntry {
				net := ticks[entryIdx].LiquidityNet
				if zeroForOne {
					liquidity = liquidity.Sub(net)
					tick = targetTick - 1
				} else {
					liquidity = liquidity.Add(net)
					tick = targetTick
				}
				if liquidity.IsNegative() {
					return nil, fmt.Errorf("crossing tick %d: %w", targetTick, pkg.ErrLiquidityUnderflow)
				}
				result.TicksCrossed++
			} else {
				// Domain boundary: nothing to cross, nowhere further to go.
				break
			}
		} else if !sqrtPrice.Equal(sqrtTarget) {
			// Swap ended mid-range.
			break
		}
	}

	tickAfter, err := fixedpoint.TickAtSqrtPrice(sqrtPrice)
	if err != nil {
		return nil, err
	}

	result.AmountIn = amountIn.Sub(remaining)
	result.SqrtPriceAfter = sqrtPrice
	result.TickAfter = tickAfter
	result.LiquidityAfter = liquidity
	return result, nil
}

// nextInitializedTick finds the aggregated-list entry the traversal moves
// toward: the greatest index <= tick going down, the smallest index > tick
// going up.
func nextInitializedTick(ticks []TickEntry, tick int32, zeroForOne bool) (int, bool) {
	if zeroForOne {
		i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > tick })
		if i == 0 {
			return 0, false
		}
		return i - 1, true
	}
	i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > tick })
	if i == len(ticks) {
		return 0, false
	}
	return i, true
}

type swapStep struct {
	sqrtPriceNext cosmath.Int
	amountIn      cosmath.Int
	amountOut     cosmath.Int
	feeAmount     cosmath.Int
}

// swapStepExactIn advances the price within one liquidity range. Rounding
// is load-bearing: input deltas round up, output deltas round down, the
// consume-to-target fee rounds up, and the partial-range fee is the
// residual of the gross remaining input.
func swapStepExactIn(sqrtCurrent, sqrtTarget, liquidity, remaining cosmath.Int, feeRate uint32, zeroForOne bool) (*swapStep, error) {
	feeRateInt := cosmath.NewInt(int64(feeRate))
	netRate := FEE_RATE_DENOMINATOR.Sub(feeRateInt)

	remainingLessFee, err := fixedpoint.MulDivFloor(remaining, netRate, FEE_RATE_DENOMINATOR)
	if err != nil {
		return nil, err
	}

	var amountToTarget cosmath.Int
	if zeroForOne {
		amountToTarget, err = tokenAmount0Delta(sqrtTarget, sqrtCurrent, liquidity, true)
	} else {
		amountToTarget, err = tokenAmount1Delta(sqrtCurrent, sqrtTarget, liquidity, true)
	}
	if err != nil {
		return nil, err
	}

	step := &swapStep{}
	if remainingLessFee.GTE(amountToTarget) {
		step.sqrtPriceNext = sqrtTarget
		step.amountIn = amountToTarget
		step.feeAmount, err = fixedpoint.MulDivCeil(step.amountIn, feeRateInt, netRate)
		if err != nil {
			return nil, err
		}
	} else {
		step.sqrtPriceNext, err = nextSqrtPriceFromInput(sqrtCurrent, liquidity, remainingLessFee, zeroForOne)
		if err != nil {
			return nil, err
		}
		if zeroForOne {
			step.amountIn, err = tokenAmount0Delta(step.sqrtPriceNext, sqrtCurrent, liquidity, true)
		} else {
			step.amountIn, err = tokenAmount1Delta(sqrtCurrent, step.sqrtPriceNext, liquidity, true)
		}
		if err != nil {
			return nil, err
		}
		step.feeAmount = remaining.Sub(step.amountIn)
	}

	if zeroForOne {
		step.amountOut, err = tokenAmount1Delta(step.sqrtPriceNext, sqrtCurrent, liquidity, false)
	} else {
		step.amountOut, err = tokenAmount0Delta(sqrtCurrent, step.sqrtPriceNext, liquidity, false)
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

// tokenAmount0Delta is the canonical Δx between two sqrt-prices.
func tokenAmount0Delta(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if !sqrtA.IsPositive() {
		return cosmath.Int{}, pkg.ErrDivByZero
	}

	numerator1 := liquidity.Mul(q64)
	numerator2 := sqrtB.Sub(sqrtA)

	if roundUp {
		inner, err := fixedpoint.MulDivCeil(numerator1, numerator2, sqrtB)
		if err != nil {
			return cosmath.Int{}, err
		}
		return fixedpoint.MulDivCeil(inner, cosmath.OneInt(), sqrtA)
	}
	inner, err := fixedpoint.MulDivFloor(numerator1, numerator2, sqrtB)
	if err != nil {
		return cosmath.Int{}, err
	}
	return inner.Quo(sqrtA), nil
}

// tokenAmount1Delta is the canonical Δy between two sqrt-prices.
func tokenAmount1Delta(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := sqrtB.Sub(sqrtA)
	if roundUp {
		return fixedpoint.MulDivCeil(liquidity, diff, q64)
	}
	return fixedpoint.MulDivFloor(liquidity, diff, q64)
}

// nextSqrtPriceFromInput moves the sqrt-price by a net input amount,
// rounding so the pool never under-collects.
func nextSqrtPriceFromInput(sqrtPrice, liquidity, amount cosmath.Int, zeroForOne bool) (cosmath.Int, error) {
	if !sqrtPrice.IsPositive() || !liquidity.IsPositive() {
		return cosmath.Int{}, pkg.ErrDivByZero
	}
	if amount.IsZero() {
		return sqrtPrice, nil
	}

	if zeroForOne {
		numerator1 := liquidity.Mul(q64)
		denominator := numerator1.Add(amount.Mul(sqrtPrice))
		if denominator.GTE(numerator1) {
			return fixedpoint.MulDivCeil(numerator1, sqrtPrice, denominator)
		}
		return fixedpoint.MulDivCeil(numerator1, cosmath.OneInt(), numerator1.Quo(sqrtPrice).Add(amount))
	}

	return sqrtPrice.Add(amount.Mul(q64).Quo(liquidity)), nil
}
