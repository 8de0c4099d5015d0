package raydium

import (
	"encoding/binary"
	"math/big"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/solana-zh/solarb/pkg"
)

func putInt128LE(dst []byte, v *big.Int) {
	val := new(big.Int).Set(v)
	if val.Sign() < 0 {
		val.Add(val, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	lo := new(big.Int).And(val, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(val, 64).Uint64()
	binary.LittleEndian.PutUint64(dst[0:8], lo)
	binary.LittleEndian.PutUint64(dst[8:16], hi)
}

// encodeTestTickArray builds a raw tick array with the given initialized
// ticks in its leading slots; every other slot stays zero.
func encodeTestTickArray(poolId solana.PublicKey, startIndex int32, ticks []TickState) []byte {
	data := make([]byte, TickArrayDataSize)
	copy(data[:8], TickArrayDiscriminator[:])
	copy(data[8:40], poolId[:])
	binary.LittleEndian.PutUint32(data[40:44], uint32(startIndex))

	for i, tick := range ticks {
		offset := tickArrayHeaderSize + i*tickStateSize
		binary.LittleEndian.PutUint32(data[offset:], uint32(tick.Tick))
		putInt128LE(data[offset+4:offset+20], tick.LiquidityNet.BigInt())
		binary.LittleEndian.PutUint64(data[offset+20:offset+28], tick.LiquidityGross.Lo)
		binary.LittleEndian.PutUint64(data[offset+28:offset+36], tick.LiquidityGross.Hi)
	}
	data[tickArrayHeaderSize+TICK_ARRAY_SIZE*tickStateSize] = uint8(len(ticks))
	return data
}

func TestTickArrayDecode(t *testing.T) {
	poolId := solana.NewWallet().PublicKey()
	ticks := []TickState{
		{Tick: -120, LiquidityNet: cosmath.NewInt(-7_000_000), LiquidityGross: uint128.From64(7_000_000)},
		{Tick: -60, LiquidityNet: cosmath.NewInt(5_000_000), LiquidityGross: uint128.From64(5_000_000)},
	}
	data := encodeTestTickArray(poolId, -120, ticks)

	var array TickArray
	require.NoError(t, array.Decode(data))
	assert.Equal(t, poolId, array.PoolId)
	assert.Equal(t, int32(-120), array.StartTickIndex)
	assert.Equal(t, uint8(2), array.InitializedTickCount)

	assert.Equal(t, int32(-120), array.Ticks[0].Tick)
	assert.Equal(t, "-7000000", array.Ticks[0].LiquidityNet.String())
	assert.Equal(t, int32(-60), array.Ticks[1].Tick)
	assert.Equal(t, "5000000", array.Ticks[1].LiquidityNet.String())
	assert.Equal(t, uint64(5_000_000), array.Ticks[1].LiquidityGross.Lo)

	var short TickArray
	assert.ErrorIs(t, short.Decode(make([]byte, 128)), pkg.ErrWrongLength)
}
