package raydium

import (
	"bytes"
	"encoding/binary"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
	"lukechampine.com/uint128"
)

// CLMMPool holds the fields of the 1544-byte concentrated-liquidity pool
// account the engine reads.
type CLMMPool struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	Liquidity      uint128.Uint128
	SqrtPriceX64   uint128.Uint128
	TickCurrent    int32
	Status         uint8
	// TickArrayBitmap marks which tick arrays near the current price are
	// initialized; it filters the required-account set.
	TickArrayBitmap [16]uint64

	PoolId solana.PublicKey
}

func (pool *CLMMPool) VenueName() pkg.VenueName {
	return pkg.VenueRaydiumClmm
}

func (pool *CLMMPool) GetProgramID() solana.PublicKey {
	return RAYDIUM_CLMM_PROGRAM_ID
}

func (pool *CLMMPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *CLMMPool) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenMint0.String(), pool.TokenMint1.String()
}

// Decode parses the pool account, checking length and discriminator.
func (pool *CLMMPool) Decode(data []byte) error {
	if len(data) < CLMMPoolDataSize {
		return fmt.Errorf("clmm pool: expected %d bytes, got %d: %w", CLMMPoolDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], CLMMPoolDiscriminator[:]) {
		return fmt.Errorf("clmm pool: %w", pkg.ErrBadDiscriminator)
	}

	pool.Bump = data[8]
	pool.AmmConfig = solana.PublicKeyFromBytes(data[9:41])
	pool.Owner = solana.PublicKeyFromBytes(data[41:73])
	pool.TokenMint0 = solana.PublicKeyFromBytes(data[73:105])
	pool.TokenMint1 = solana.PublicKeyFromBytes(data[105:137])
	pool.TokenVault0 = solana.PublicKeyFromBytes(data[137:169])
	pool.TokenVault1 = solana.PublicKeyFromBytes(data[169:201])
	pool.ObservationKey = solana.PublicKeyFromBytes(data[201:233])
	pool.MintDecimals0 = data[233]
	pool.MintDecimals1 = data[234]
	pool.TickSpacing = binary.LittleEndian.Uint16(data[235:237])
	pool.Liquidity = parseUint128LE(data[237:253])
	pool.SqrtPriceX64 = parseUint128LE(data[253:269])
	pool.TickCurrent = int32(binary.LittleEndian.Uint32(data[269:273]))
	pool.Status = data[389]
	for i := 0; i < 16; i++ {
		pool.TickArrayBitmap[i] = binary.LittleEndian.Uint64(data[904+i*8 : 912+i*8])
	}

	if pool.TickCurrent < MIN_TICK || pool.TickCurrent > MAX_TICK {
		return fmt.Errorf("clmm pool: tick %d: %w", pool.TickCurrent, pkg.ErrFieldOutOfRange)
	}
	if pool.TickSpacing == 0 {
		return fmt.Errorf("clmm pool: zero tick spacing: %w", pkg.ErrFieldOutOfRange)
	}
	return nil
}

// Snapshot captures the swap-relevant pool state, paired with an AmmConfig
// trade fee rate.
func (pool *CLMMPool) Snapshot(feeRate uint32) CLMMSnapshot {
	return CLMMSnapshot{
		SqrtPriceX64: cosmath.NewIntFromBigInt(pool.SqrtPriceX64.Big()),
		TickCurrent:  pool.TickCurrent,
		Liquidity:    cosmath.NewIntFromBigInt(pool.Liquidity.Big()),
		FeeRate:      feeRate,
	}
}

// AmmConfig is the 117-byte fee configuration account shared by CLMM pools
// of the same tier.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
}

// Decode parses the AmmConfig account. A trade fee rate at or above the
// denominator would consume every step's entire input and never advance, so
// it is rejected here.
func (cfg *AmmConfig) Decode(data []byte) error {
	if len(data) < AmmConfigDataSize {
		return fmt.Errorf("amm config: expected %d bytes, got %d: %w", AmmConfigDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], AmmConfigDiscriminator[:]) {
		return fmt.Errorf("amm config: %w", pkg.ErrBadDiscriminator)
	}

	cfg.Bump = data[8]
	cfg.Index = binary.LittleEndian.Uint16(data[9:11])
	cfg.Owner = solana.PublicKeyFromBytes(data[11:43])
	cfg.ProtocolFeeRate = binary.LittleEndian.Uint32(data[43:47])
	cfg.TradeFeeRate = binary.LittleEndian.Uint32(data[47:51])
	cfg.TickSpacing = binary.LittleEndian.Uint16(data[51:53])
	cfg.FundFeeRate = binary.LittleEndian.Uint32(data[53:57])

	if cosmath.NewInt(int64(cfg.TradeFeeRate)).GTE(FEE_RATE_DENOMINATOR) {
		return fmt.Errorf("amm config: trade fee rate %d: %w", cfg.TradeFeeRate, pkg.ErrFieldOutOfRange)
	}
	return nil
}

func parseUint128LE(data []byte) uint128.Uint128 {
	lo := binary.LittleEndian.Uint64(data[:8])
	hi := binary.LittleEndian.Uint64(data[8:])
	return uint128.New(lo, hi)
}
