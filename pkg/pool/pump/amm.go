package pump

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

// AMMPool is the decoded PumpSwap pool account.
type AMMPool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LpMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LpSupply              uint64
	CoinCreator           solana.PublicKey

	PoolId solana.PublicKey
}

func (pool *AMMPool) VenueName() pkg.VenueName {
	return pkg.VenuePumpSwap
}

func (pool *AMMPool) GetProgramID() solana.PublicKey {
	return PumpSwapProgramID
}

func (pool *AMMPool) GetID() string {
	return pool.PoolId.String()
}

func (pool *AMMPool) GetTokens() (baseMint, quoteMint string) {
	return pool.BaseMint.String(), pool.QuoteMint.String()
}

// Decode parses the raw pool account bytes.
func (pool *AMMPool) Decode(data []byte) error {
	if len(data) < PoolDataSize {
		return fmt.Errorf("pump pool: expected at least %d bytes, got %d: %w", PoolDataSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:8], PoolDiscriminator[:]) {
		return fmt.Errorf("pump pool: %w", pkg.ErrBadDiscriminator)
	}

	pool.PoolBump = data[8]
	pool.Index = binary.LittleEndian.Uint16(data[9:11])

	offset := 11
	pool.Creator = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.BaseMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.QuoteMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.LpMint = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.PoolBaseTokenAccount = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.PoolQuoteTokenAccount = solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	pool.LpSupply = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	if len(data) >= offset+32 {
		pool.CoinCreator = solana.PublicKeyFromBytes(data[offset : offset+32])
	} else {
		pool.CoinCreator = solana.PublicKey{}
	}

	return nil
}

// GlobalConfig carries the authoritative fee parameters for every PumpSwap
// pool. Market-cap fee tiers are applied by callers, never here.
type GlobalConfig struct {
	Admin                  solana.PublicKey
	LpFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
	DisableFlags           uint8
}

// Decode parses the GlobalConfig account bytes.
func (cfg *GlobalConfig) Decode(data []byte) error {
	if len(data) < GlobalConfigMinSize {
		return fmt.Errorf("pump global config: expected at least %d bytes, got %d: %w", GlobalConfigMinSize, len(data), pkg.ErrWrongLength)
	}
	cfg.Admin = solana.PublicKeyFromBytes(data[8:40])
	cfg.LpFeeBasisPoints = binary.LittleEndian.Uint64(data[40:48])
	cfg.ProtocolFeeBasisPoints = binary.LittleEndian.Uint64(data[48:56])
	cfg.DisableFlags = data[56]
	return nil
}

// TotalFeeBps is the combined swap fee in basis points.
func (cfg *GlobalConfig) TotalFeeBps() uint64 {
	return cfg.LpFeeBasisPoints + cfg.ProtocolFeeBasisPoints
}
