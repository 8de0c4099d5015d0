package meteora

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

// BinArray is one 70-bin chunk of an lb-pair's bin space. Only the per-bin
// reserve amounts are decoded; fee and reward bookkeeping is skipped.
type BinArray struct {
	Index  int64
	LbPair solana.PublicKey
	Bins   [MaxBinPerArray]BinLiquidity
}

// BinLiquidity is the token liquidity of one bin.
type BinLiquidity struct {
	AmountX uint64
	AmountY uint64
}

// Decode parses the bin array account.
func (b *BinArray) Decode(data []byte) error {
	if len(data) < BinArrayDataSize {
		return fmt.Errorf("bin array: expected %d bytes, got %d: %w", BinArrayDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], BinArrayDiscriminator[:]) {
		return fmt.Errorf("bin array: %w", pkg.ErrBadDiscriminator)
	}

	b.Index = int64(binary.LittleEndian.Uint64(data[8:16]))
	b.LbPair = solana.PublicKeyFromBytes(data[24:56])

	offset := binArrayHeaderSize
	for i := 0; i < MaxBinPerArray; i++ {
		b.Bins[i] = BinLiquidity{
			AmountX: binary.LittleEndian.Uint64(data[offset : offset+8]),
			AmountY: binary.LittleEndian.Uint64(data[offset+8 : offset+16]),
		}
		offset += binSize
	}
	return nil
}

// LowerBinId is the bin id of the array's first slot.
func (b *BinArray) LowerBinId() int32 {
	return int32(b.Index) * MaxBinPerArray
}

// BinIDToBinArrayIndex floors a bin id to its owning array index.
func BinIDToBinArrayIndex(binID int32) int64 {
	quotient := binID / MaxBinPerArray
	remainder := binID % MaxBinPerArray
	if binID < 0 && remainder != 0 {
		quotient--
	}
	return int64(quotient)
}

// DeriveBinArrayPDA derives a bin array account for the given lb pair and
// array index. The index seed is a little-endian signed 64-bit integer.
func DeriveBinArrayPDA(lbPair solana.PublicKey, binArrayIndex int64) (solana.PublicKey, uint8) {
	binArrayIndexBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(binArrayIndexBytes, uint64(binArrayIndex))

	seeds := [][]byte{
		[]byte(BinArraySeed),
		lbPair.Bytes(),
		binArrayIndexBytes,
	}
	pda, bump, err := solana.FindProgramAddress(seeds, MeteoraProgramID)
	if err != nil {
		return solana.PublicKey{}, 0
	}
	return pda, bump
}
