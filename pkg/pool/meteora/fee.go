package meteora

import "math/big"

// FeeNumerator composes the dynamic swap fee in the 10^17 domain:
// base_factor * bin_step * 10^9 plus variable_fee_control * (accumulator *
// bin_step)^2, capped at 10^16 (a 10% fee).
func FeeNumerator(baseFactor, binStep uint16, variableFeeControl, volatilityAccumulator uint32) *big.Int {
	base := new(big.Int).SetUint64(uint64(baseFactor) * uint64(binStep))
	base.Mul(base, BaseFeeScale)

	if variableFeeControl != 0 {
		vfaBin := new(big.Int).SetUint64(uint64(volatilityAccumulator) * uint64(binStep))
		vfaBin.Mul(vfaBin, vfaBin)
		vfaBin.Mul(vfaBin, new(big.Int).SetUint64(uint64(variableFeeControl)))
		base.Add(base, vfaBin)
	}

	if base.Cmp(MaxFeeNumerator) > 0 {
		return new(big.Int).Set(MaxFeeNumerator)
	}
	return base
}

// SplitProtocolFee divides a total fee into the protocol's share (floored)
// and the LP remainder.
func SplitProtocolFee(totalFee *big.Int, protocolShare uint16) (protocolFee, lpFee *big.Int) {
	protocolFee = new(big.Int).Mul(totalFee, new(big.Int).SetUint64(uint64(protocolShare)))
	protocolFee.Div(protocolFee, big.NewInt(BasisPointMax))
	lpFee = new(big.Int).Sub(totalFee, protocolFee)
	return protocolFee, lpFee
}
