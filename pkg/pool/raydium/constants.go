package raydium

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

var (
	RAYDIUM_AMM_PROGRAM_ID  = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RAYDIUM_CLMM_PROGRAM_ID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
)

// Account sizes in bytes.
const (
	AMMPoolDataSize   = 752
	CLMMPoolDataSize  = 1544
	AmmConfigDataSize = 117
	TickArrayDataSize = 10240
	OpenOrdersSize    = 3228
)

// Account discriminators (CLMM accounts are Anchor accounts; the V4 pool
// and OpenBook market are not).
var (
	CLMMPoolDiscriminator  = [8]byte{0xf7, 0xed, 0xe3, 0xf5, 0xd7, 0xc3, 0xde, 0x46}
	AmmConfigDiscriminator = [8]byte{0xda, 0xf4, 0x21, 0x68, 0xcb, 0xcb, 0x2b, 0x6f}
	TickArrayDiscriminator = [8]byte{0xc0, 0x9b, 0x55, 0xcd, 0x31, 0xf9, 0x81, 0x2a}

	// OpenOrdersMagic is the 5-byte ASCII prefix of OpenBook accounts.
	OpenOrdersMagic = []byte("serum")
)

// Tick domain constants.
const (
	TICK_ARRAY_SIZE = 60
	MIN_TICK        = -443636
	MAX_TICK        = 443636

	// MaxSwapSteps caps the CLMM traversal loop.
	MaxSwapSteps = 10000
)

// FEE_RATE_DENOMINATOR scales the CLMM trade fee rate (fee per 1_000_000).
var FEE_RATE_DENOMINATOR = cosmath.NewInt(1_000_000)
