package meteora

import (
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/solana-zh/solarb/pkg"
	"github.com/solana-zh/solarb/pkg/fixedpoint"
)

// Direction of a DLMM swap.
type Direction int

const (
	SwapXToY Direction = iota
	SwapYToX
)

// FeeMode selects which side of the trade carries the fee.
type FeeMode int

const (
	FeeOnOutput FeeMode = iota
	FeeOnInput
)

// DLMMSnapshot is the swap-relevant lb-pair state at simulation entry.
type DLMMSnapshot struct {
	ActiveId              int32
	BinStep               uint16
	BaseFactor            uint16
	VariableFeeControl    uint32
	VolatilityAccumulator uint32
	ProtocolShare         uint16
}

// DLMMSwapResult reports a bin-traversing swap.
type DLMMSwapResult struct {
	AmountIn      cosmath.Int
	AmountOut     cosmath.Int
	TotalFee      cosmath.Int
	ProtocolFee   cosmath.Int
	LpFee         cosmath.Int
	BinsTraversed int
	EndBinId      int32
}

var q128 = new(big.Int).Lsh(big.NewInt(1), 128)

// binStepBasis returns (1 + bin_step/10000) in Q64.64.
func binStepBasis(binStep uint16) *big.Int {
	bps := new(big.Int).Lsh(big.NewInt(int64(binStep)), ScaleOffset)
	bps.Div(bps, big.NewInt(BasisPointMax))
	return new(big.Int).Add(One, bps)
}

// PriceOfBin returns the bin price (1 + bin_step/10000)^bin_id in Q64.64.
// Negative ids raise the reciprocal basis instead.
func PriceOfBin(binId int32, binStep uint16) *big.Int {
	basis := binStepBasis(binStep)
	if binId >= 0 {
		return fixedpoint.PowQ64(basis, uint32(binId))
	}
	inverse := new(big.Int).Div(q128, basis)
	return fixedpoint.PowQ64(inverse, uint32(-int64(binId)))
}

// SimulateDLMM walks the bin map from the active bin, consuming liquidity
// bin by bin under the dynamic fee. The price cursor advances by one basis
// multiplication or division per bin instead of recomputing the power.
func SimulateDLMM(snap DLMMSnapshot, bins map[int32]BinLiquidity, amountIn uint64, dir Direction, feeMode FeeMode) (*DLMMSwapResult, error) {
	feeNumer := FeeNumerator(snap.BaseFactor, snap.BinStep, snap.VariableFeeControl, snap.VolatilityAccumulator)
	basis := binStepBasis(snap.BinStep)
	price := PriceOfBin(snap.ActiveId, snap.BinStep)

	remaining := new(big.Int).SetUint64(amountIn)
	totalOut := new(big.Int)
	totalFee := new(big.Int)
	binId := snap.ActiveId
	traversed := 0

	for remaining.Sign() > 0 && traversed < MaxBinsTraversed {
		bin := bins[binId]
		outReserve := bin.AmountY
		if dir == SwapYToX {
			outReserve = bin.AmountX
		}

		if outReserve > 0 {
			maxIn := maxInputForBin(outReserve, price, dir)

			inConsumed := new(big.Int).Set(remaining)
			if inConsumed.Cmp(maxIn) > 0 {
				inConsumed.Set(maxIn)
			}

			var fee, outToUser, outBefore *big.Int
			switch feeMode {
			case FeeOnInput:
				fee = new(big.Int).Mul(inConsumed, feeNumer)
				fee.Add(fee, new(big.Int).Sub(FeeDenominator, big.NewInt(1)))
				fee.Div(fee, FeeDenominator)
				netIn := new(big.Int).Sub(inConsumed, fee)
				outBefore = outputBeforeFee(netIn, price, dir)
				outToUser = outBefore
			default:
				outBefore = outputBeforeFee(inConsumed, price, dir)
				fee = new(big.Int).Mul(outBefore, feeNumer)
				fee.Div(fee, FeeDenominator)
				outToUser = new(big.Int).Sub(outBefore, fee)
			}

			if outBefore.Cmp(new(big.Int).SetUint64(outReserve)) > 0 {
				return nil, fmt.Errorf("bin %d holds %d, step needs %s: %w", binId, outReserve, outBefore, pkg.ErrAggregatedBinUnderflow)
			}

			remaining.Sub(remaining, inConsumed)
			totalOut.Add(totalOut, outToUser)
			totalFee.Add(totalFee, fee)

			if remaining.Sign() == 0 {
				break
			}
		}

		if dir == SwapXToY {
			binId++
			price = new(big.Int).Mul(price, basis)
			price.Rsh(price, ScaleOffset)
		} else {
			binId--
			price = new(big.Int).Lsh(price, ScaleOffset)
			price.Div(price, basis)
		}
		traversed++

		if binId < MinBinID || binId > MaxBinID {
			break
		}
	}

	consumed := new(big.Int).Sub(new(big.Int).SetUint64(amountIn), remaining)
	protocolFee, lpFee := SplitProtocolFee(totalFee, snap.ProtocolShare)

	return &DLMMSwapResult{
		AmountIn:      cosmath.NewIntFromBigInt(consumed),
		AmountOut:     cosmath.NewIntFromBigInt(totalOut),
		TotalFee:      cosmath.NewIntFromBigInt(totalFee),
		ProtocolFee:   cosmath.NewIntFromBigInt(protocolFee),
		LpFee:         cosmath.NewIntFromBigInt(lpFee),
		BinsTraversed: traversed,
		EndBinId:      binId,
	}, nil
}

// maxInputForBin is the largest gross input whose output stays within the
// bin's output-side reserve.
func maxInputForBin(outReserve uint64, price *big.Int, dir Direction) *big.Int {
	reservePlusOne := new(big.Int).Add(new(big.Int).SetUint64(outReserve), big.NewInt(1))
	if dir == SwapXToY {
		max := new(big.Int).Lsh(reservePlusOne, ScaleOffset)
		max.Sub(max, big.NewInt(1))
		return max.Div(max, price)
	}
	max := new(big.Int).Mul(reservePlusOne, price)
	max.Sub(max, big.NewInt(1))
	return max.Rsh(max, ScaleOffset)
}

// outputBeforeFee converts an input amount through the bin price.
func outputBeforeFee(amountIn, price *big.Int, dir Direction) *big.Int {
	if dir == SwapXToY {
		out := new(big.Int).Mul(amountIn, price)
		return out.Rsh(out, ScaleOffset)
	}
	out := new(big.Int).Lsh(amountIn, ScaleOffset)
	return out.Div(out, price)
}
