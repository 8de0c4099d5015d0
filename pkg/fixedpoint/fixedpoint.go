// Package fixedpoint provides the Q64.64 integer math shared by the
// concentrated-liquidity simulators. No floating point is used anywhere.
package fixedpoint

import (
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/solana-zh/solarb/pkg"
)

// Tick domain accepted by the sqrt-price ladder.
const (
	MinTick = -443636
	MaxTick = 443636
)

var (
	// QOne is 1.0 in Q64.64.
	QOne = new(big.Int).Lsh(big.NewInt(1), 64)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	q128One    = new(big.Int).Lsh(big.NewInt(1), 128)
	lo64Mask   = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
)

// MinSqrtPriceX64 and MaxSqrtPriceX64 are the ladder's own values at the
// tick domain edges, so the range checks agree with SqrtPriceAtTick to the
// last bit.
var (
	MinSqrtPriceX64 = mustSqrtPriceAtTick(MinTick)
	MaxSqrtPriceX64 = mustSqrtPriceAtTick(MaxTick)
)

func mustSqrtPriceAtTick(tick int32) cosmath.Int {
	price, err := SqrtPriceAtTick(tick)
	if err != nil {
		panic(err)
	}
	return price
}

// MulDivFloor returns floor(a * b / denominator).
func MulDivFloor(a, b, denominator cosmath.Int) (cosmath.Int, error) {
	if denominator.IsZero() {
		return cosmath.Int{}, pkg.ErrDivByZero
	}
	return a.Mul(b).Quo(denominator), nil
}

// MulDivCeil returns ceil(a * b / denominator).
func MulDivCeil(a, b, denominator cosmath.Int) (cosmath.Int, error) {
	if denominator.IsZero() {
		return cosmath.Int{}, pkg.ErrDivByZero
	}
	numerator := a.Mul(b).Add(denominator.Sub(cosmath.OneInt()))
	return numerator.Quo(denominator), nil
}

// tickLadder holds the constant multipliers of the canonical sqrt-price
// ladder. Each entry is 2^128 * sqrt(1.0001^-mask).
var tickLadder = []struct {
	mask uint32
	mul  *big.Int
}{
	{0x2, mustHex("fff97272373d413259a46990580e213a")},
	{0x4, mustHex("fff2e50f5f656932ef12357cf3c7fdcc")},
	{0x8, mustHex("ffe5caca7e10e4e61c3624eaa0941cd0")},
	{0x10, mustHex("ffcb9843d60f6159c9db58835c926644")},
	{0x20, mustHex("ff973b41fa98c081472e6896dfb254c0")},
	{0x40, mustHex("ff2ea16466c96a3843ec78b326b52861")},
	{0x80, mustHex("fe5dee046a99a2a811c461f1969c3053")},
	{0x100, mustHex("fcbe86c7900a88aedcffc83b479aa3a4")},
	{0x200, mustHex("f987a7253ac413176f2b074cf7815e54")},
	{0x400, mustHex("f3392b0822b70005940c7a398e4b70f3")},
	{0x800, mustHex("e7159475a2c29b7443b29c7fa6e889d9")},
	{0x1000, mustHex("d097f3bdfd2022b8845ad8f792aa5825")},
	{0x2000, mustHex("a9f746462d870fdf8a65dc1f90e061e5")},
	{0x4000, mustHex("70d869a156d2a1b890bb3df62baf32f7")},
	{0x8000, mustHex("31be135f97d08fd981231505542fcfa6")},
	{0x10000, mustHex("9aa508b5b7a84e1c677de54f3e99bc9")},
	{0x20000, mustHex("5d6af8dedb81196699c329225ee604")},
	{0x40000, mustHex("2216e584f5fa1ea926041bedfe98")},
}

var ladderSeed = mustHex("fffcb933bd6fad37aa2d162d1a594001")

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic(fmt.Sprintf("bad ladder constant %q", s))
	}
	return v
}

// SqrtPriceAtTick returns sqrt(1.0001^tick) in Q64.64. The ladder runs in
// Q128 over the magnitude of the tick, inverts once for positive ticks, and
// narrows to Q64 rounding up whenever the discarded low 64 bits are nonzero.
func SqrtPriceAtTick(tick int32) (cosmath.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return cosmath.Int{}, fmt.Errorf("tick %d: %w", tick, pkg.ErrFieldOutOfRange)
	}

	abs := uint32(tick)
	if tick < 0 {
		abs = uint32(-int64(tick))
	}

	ratio := new(big.Int)
	if abs&0x1 != 0 {
		ratio.Set(ladderSeed)
	} else {
		ratio.Set(q128One)
	}
	for _, step := range tickLadder {
		if abs&step.mask != 0 {
			ratio.Mul(ratio, step.mul)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	low := new(big.Int).And(ratio, lo64Mask)
	ratio.Rsh(ratio, 64)
	if low.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return cosmath.NewIntFromBigInt(ratio), nil
}

// TickAtSqrtPrice returns the greatest tick whose sqrt-price is <= the
// input, by binary search over SqrtPriceAtTick.
func TickAtSqrtPrice(sqrtPriceX64 cosmath.Int) (int32, error) {
	if sqrtPriceX64.LT(MinSqrtPriceX64) || sqrtPriceX64.GT(MaxSqrtPriceX64) {
		return 0, fmt.Errorf("sqrt price %s: %w", sqrtPriceX64, pkg.ErrFieldOutOfRange)
	}

	lo, hi := int32(MinTick), int32(MaxTick)
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		sp, err := SqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if sp.LTE(sqrtPriceX64) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// PowQ64 raises a Q64.64 base to a non-negative integer power by repeated
// squaring, flooring after every multiplication.
func PowQ64(baseQ64 *big.Int, exp uint32) *big.Int {
	result := new(big.Int).Set(QOne)
	current := new(big.Int).Set(baseQ64)
	for exp > 0 {
		if exp&1 == 1 {
			result.Mul(result, current)
			result.Rsh(result, 64)
		}
		exp >>= 1
		if exp > 0 {
			current.Mul(current, current)
			current.Rsh(current, 64)
		}
	}
	return result
}
