package raydium

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
	"lukechampine.com/uint128"
)

const (
	tickArrayHeaderSize = 44 // discriminator + pool id + start index
	tickStateSize       = 168
)

// TickState is one decoded tick of a tick array.
type TickState struct {
	Tick int32
	// LiquidityNet is a signed 128-bit value on chain.
	LiquidityNet   cosmath.Int
	LiquidityGross uint128.Uint128
}

// TickArray is a fixed run of 60 ticks owned by a CLMM pool.
type TickArray struct {
	PoolId               solana.PublicKey
	StartTickIndex       int32
	Ticks                [TICK_ARRAY_SIZE]TickState
	InitializedTickCount uint8
}

// Decode parses the 10240-byte tick array account.
func (t *TickArray) Decode(data []byte) error {
	if len(data) < TickArrayDataSize {
		return fmt.Errorf("tick array: expected %d bytes, got %d: %w", TickArrayDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], TickArrayDiscriminator[:]) {
		return fmt.Errorf("tick array: %w", pkg.ErrBadDiscriminator)
	}

	t.PoolId = solana.PublicKeyFromBytes(data[8:40])
	t.StartTickIndex = int32(binary.LittleEndian.Uint32(data[40:44]))

	offset := tickArrayHeaderSize
	for i := 0; i < TICK_ARRAY_SIZE; i++ {
		t.Ticks[i] = TickState{
			Tick:           int32(binary.LittleEndian.Uint32(data[offset:])),
			LiquidityNet:   parseInt128LE(data[offset+4 : offset+20]),
			LiquidityGross: parseUint128LE(data[offset+20 : offset+36]),
		}
		offset += tickStateSize
	}
	t.InitializedTickCount = data[offset]
	return nil
}

// parseInt128LE reads a little-endian two's-complement i128.
func parseInt128LE(data []byte) cosmath.Int {
	u := parseUint128LE(data)
	v := u.Big()
	if u.Hi>>63 == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return cosmath.NewIntFromBigInt(v)
}

// TickCount is the tick span of one array for a given spacing.
func TickCount(tickSpacing int64) int64 {
	return tickSpacing * TICK_ARRAY_SIZE
}

// TickArrayStartIndex floors a tick to the start index of its array.
func TickArrayStartIndex(tick, tickSpacing int64) int64 {
	ticksInArray := TickCount(tickSpacing)
	start := tick / ticksInArray
	if tick < 0 && tick%ticksInArray != 0 {
		start--
	}
	return start * ticksInArray
}

// GetPdaTickArrayAddress derives the tick array account for a start index.
// The index seed is serialized big-endian; a little-endian seed derives a
// different, wrong address.
func GetPdaTickArrayAddress(programId, poolId solana.PublicKey, startIndex int64) solana.PublicKey {
	startIndexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(startIndexBytes, uint32(int32(startIndex)))
	seeds := [][]byte{
		[]byte("tick_array"), poolId.Bytes(), startIndexBytes,
	}
	pk, _, _ := solana.FindProgramAddress(seeds, programId)
	return pk
}

// IsTickArrayInitialized consults the pool's bitmap for a start index
// within the default bitmap range; start indexes outside it are reported as
// initialized so they are still requested.
func IsTickArrayInitialized(bitmap [16]uint64, startIndex, tickSpacing int64) bool {
	multiplier := TickCount(tickSpacing)
	compressed := startIndex/multiplier + 512
	if compressed < 0 || compressed >= 1024 {
		return true
	}
	wordPos := compressed / 64
	bitPos := uint(compressed % 64)
	return bitmap[wordPos]&(1<<bitPos) != 0
}

// RequiredTickArrayKeys lists the tick array accounts the simulator needs
// around the current tick: the current array plus count neighbors on each
// side, filtered through the initialization bitmap.
func (pool *CLMMPool) RequiredTickArrayKeys(count int) []solana.PublicKey {
	spacing := int64(pool.TickSpacing)
	current := TickArrayStartIndex(int64(pool.TickCurrent), spacing)
	span := TickCount(spacing)

	keys := make([]solana.PublicKey, 0, 2*count+1)
	for i := -int64(count); i <= int64(count); i++ {
		start := current + i*span
		if start < MIN_TICK-span || start > MAX_TICK {
			continue
		}
		if !IsTickArrayInitialized(pool.TickArrayBitmap, start, spacing) {
			continue
		}
		keys = append(keys, GetPdaTickArrayAddress(RAYDIUM_CLMM_PROGRAM_ID, pool.PoolId, start))
	}
	return keys
}
