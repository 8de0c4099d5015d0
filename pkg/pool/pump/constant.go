package pump

import "github.com/gagliardetto/solana-go"

const (
	// PoolDataSize is the minimum size of a PumpSwap pool account. Newer
	// pools append a 32-byte coin creator after the lp supply.
	PoolDataSize = 211

	// GlobalConfigMinSize covers the fields read from the GlobalConfig
	// account: admin, lp fee bps, protocol fee bps, disable flags.
	GlobalConfigMinSize = 57

	// FeeDenominator is the basis-point denominator for PumpSwap fees.
	FeeDenominator = 10000
)

var (
	PumpSwapProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	PumpGlobalConfig  = solana.MustPublicKeyFromBase58("ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw")

	// PoolDiscriminator is the first 8 bytes of every PumpSwap pool account.
	PoolDiscriminator = [8]byte{0xf1, 0x9a, 0x6d, 0x04, 0x11, 0xb1, 0x6d, 0xbc}
)
