package raydium

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

// OpenOrders is the slice of an OpenBook open-orders account a V4 pool's
// reserve math needs: funds parked on the order book still back the pool.
type OpenOrders struct {
	Market          solana.PublicKey
	Owner           solana.PublicKey
	BaseTokenFree   uint64
	BaseTokenTotal  uint64
	QuoteTokenFree  uint64
	QuoteTokenTotal uint64
}

// Decode parses the open-orders account. OpenBook accounts carry a 5-byte
// ASCII "serum" prefix instead of an Anchor discriminator.
func (o *OpenOrders) Decode(data []byte) error {
	if len(data) < OpenOrdersSize {
		return fmt.Errorf("open orders: expected %d bytes, got %d: %w", OpenOrdersSize, len(data), pkg.ErrWrongLength)
	}
	if !bytes.Equal(data[:5], OpenOrdersMagic) {
		return fmt.Errorf("open orders: %w", pkg.ErrBadDiscriminator)
	}

	o.Market = solana.PublicKeyFromBytes(data[13:45])
	o.Owner = solana.PublicKeyFromBytes(data[45:77])
	o.BaseTokenFree = binary.LittleEndian.Uint64(data[77:85])
	o.BaseTokenTotal = binary.LittleEndian.Uint64(data[85:93])
	o.QuoteTokenFree = binary.LittleEndian.Uint64(data[93:101])
	o.QuoteTokenTotal = binary.LittleEndian.Uint64(data[101:109])
	return nil
}
