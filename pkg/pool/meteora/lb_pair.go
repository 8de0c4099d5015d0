// Package meteora implements the Meteora DLMM account layouts, the dynamic
// fee schedule, and the bin-traversing swap simulator.
package meteora

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

// LbPair holds the fields of the 904-byte lb-pair account the engine reads.
type LbPair struct {
	// Static fee parameters
	BaseFactor               uint16
	FilterPeriod             uint16
	DecayPeriod              uint16
	ReductionFactor          uint16
	VariableFeeControl       uint32
	MaxVolatilityAccumulator uint32
	MinBinId                 int32
	MaxBinId                 int32
	ProtocolShare            uint16
	BaseFeePowerFactor       uint8

	// Volatility state
	VolatilityAccumulator uint32
	VolatilityReference   uint32
	IndexReference        int32
	LastUpdateTimestamp   int64

	PairType       uint8
	ActiveId       int32
	BinStep        uint16
	Status         uint8
	ActivationType uint8

	TokenXMint solana.PublicKey
	TokenYMint solana.PublicKey
	ReserveX   solana.PublicKey
	ReserveY   solana.PublicKey

	BinArrayBitmap [16]uint64

	PoolId solana.PublicKey
}

func (pool *LbPair) VenueName() pkg.VenueName {
	return pkg.VenueMeteoraDlmm
}

func (pool *LbPair) GetProgramID() solana.PublicKey {
	return MeteoraProgramID
}

func (pool *LbPair) GetID() string {
	return pool.PoolId.String()
}

func (pool *LbPair) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenXMint.String(), pool.TokenYMint.String()
}

// Decode parses the lb-pair account at its fixed offsets.
func (pool *LbPair) Decode(data []byte) error {
	if len(data) < LbPairDataSize {
		return fmt.Errorf("lb pair: expected %d bytes, got %d: %w", LbPairDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], LbPairDiscriminator[:]) {
		return fmt.Errorf("lb pair: %w", pkg.ErrBadDiscriminator)
	}

	pool.BaseFactor = binary.LittleEndian.Uint16(data[8:10])
	pool.FilterPeriod = binary.LittleEndian.Uint16(data[10:12])
	pool.DecayPeriod = binary.LittleEndian.Uint16(data[12:14])
	pool.ReductionFactor = binary.LittleEndian.Uint16(data[14:16])
	pool.VariableFeeControl = binary.LittleEndian.Uint32(data[16:20])
	pool.MaxVolatilityAccumulator = binary.LittleEndian.Uint32(data[20:24])
	pool.MinBinId = int32(binary.LittleEndian.Uint32(data[24:28]))
	pool.MaxBinId = int32(binary.LittleEndian.Uint32(data[28:32]))
	pool.ProtocolShare = binary.LittleEndian.Uint16(data[32:34])
	pool.BaseFeePowerFactor = data[34]

	pool.VolatilityAccumulator = binary.LittleEndian.Uint32(data[40:44])
	pool.VolatilityReference = binary.LittleEndian.Uint32(data[44:48])
	pool.IndexReference = int32(binary.LittleEndian.Uint32(data[48:52]))
	pool.LastUpdateTimestamp = int64(binary.LittleEndian.Uint64(data[56:64]))

	pool.PairType = data[75]
	pool.ActiveId = int32(binary.LittleEndian.Uint32(data[76:80]))
	pool.BinStep = binary.LittleEndian.Uint16(data[80:82])
	pool.Status = data[82]
	pool.ActivationType = data[86]

	pool.TokenXMint = solana.PublicKeyFromBytes(data[88:120])
	pool.TokenYMint = solana.PublicKeyFromBytes(data[120:152])
	pool.ReserveX = solana.PublicKeyFromBytes(data[152:184])
	pool.ReserveY = solana.PublicKeyFromBytes(data[184:216])

	for i := 0; i < 16; i++ {
		pool.BinArrayBitmap[i] = binary.LittleEndian.Uint64(data[584+i*8 : 592+i*8])
	}

	if pool.BinStep < MinBinStep || pool.BinStep > MaxBinStep {
		return fmt.Errorf("lb pair: bin step %d: %w", pool.BinStep, pkg.ErrFieldOutOfRange)
	}
	if pool.ActiveId < MinBinID || pool.ActiveId > MaxBinID {
		return fmt.Errorf("lb pair: active id %d: %w", pool.ActiveId, pkg.ErrFieldOutOfRange)
	}
	return nil
}

// Snapshot captures the swap-relevant pair state.
func (pool *LbPair) Snapshot() DLMMSnapshot {
	return DLMMSnapshot{
		ActiveId:              pool.ActiveId,
		BinStep:               pool.BinStep,
		BaseFactor:            pool.BaseFactor,
		VariableFeeControl:    pool.VariableFeeControl,
		VolatilityAccumulator: pool.VolatilityAccumulator,
		ProtocolShare:         pool.ProtocolShare,
	}
}

// RequiredBinArrayKeys lists the bin array accounts covering the active bin
// plus count arrays on each side.
func (pool *LbPair) RequiredBinArrayKeys(count int) []solana.PublicKey {
	center := BinIDToBinArrayIndex(pool.ActiveId)
	keys := make([]solana.PublicKey, 0, 2*count+1)
	for i := -int64(count); i <= int64(count); i++ {
		pda, _ := DeriveBinArrayPDA(pool.PoolId, center+i)
		keys = append(keys, pda)
	}
	return keys
}
