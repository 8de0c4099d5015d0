package meteora

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Program IDs.
var (
	MeteoraProgramID = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
)

// Account discriminators.
var (
	LbPairDiscriminator   = [8]byte{0x21, 0x0b, 0x31, 0x62, 0xb5, 0x65, 0xb1, 0x0d}
	BinArrayDiscriminator = [8]byte{0x5c, 0x8e, 0x5c, 0xdc, 0x05, 0x94, 0x46, 0xb5}
)

// Account sizes in bytes.
const (
	LbPairDataSize     = 904
	binArrayHeaderSize = 56
	binSize            = 144
	BinArrayDataSize   = binArrayHeaderSize + MaxBinPerArray*binSize
)

// Bin domain constants.
const (
	MaxBinPerArray = 70
	MinBinID       = -443636
	MaxBinID       = 443636

	// MaxBinsTraversed caps one simulation's bin walk.
	MaxBinsTraversed = 512

	BinArraySeed = "bin_array"

	BasisPointMax = 10000
	ScaleOffset   = 64

	// MinBinStep and MaxBinStep bound the LbPair bin_step field.
	MinBinStep = 1
	MaxBinStep = 500
)

// Fee domain: numerators are scaled by 10^17; the base fee lifts the
// venue's 10^8-scaled base rate into that domain, and the total is capped
// at 10% of the swap.
var (
	FeeDenominator  = new(big.Int).SetUint64(100_000_000_000_000_000)
	MaxFeeNumerator = new(big.Int).SetUint64(10_000_000_000_000_000)
	BaseFeeScale    = new(big.Int).SetUint64(1_000_000_000)
)

// One is 1.0 in Q64.64.
var One = new(big.Int).Lsh(big.NewInt(1), ScaleOffset)
