package sol

import (
	"encoding/binary"
	"fmt"

	"github.com/solana-zh/solarb/pkg"
)

const (
	// TokenAccountDataSize is the size of a classic SPL token account.
	TokenAccountDataSize = 165

	// tokenAmountOffset is where the little-endian u64 balance sits.
	tokenAmountOffset = 64

	// mintExtensionStart is where Token-2022 TLV extensions begin in a mint
	// account.
	mintExtensionStart = 82

	transferFeeExtensionType   = 1
	transferFeeExtensionLength = 108
)

// TokenAccountAmount reads the balance of an SPL token account.
func TokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < TokenAccountDataSize {
		return 0, fmt.Errorf("token account: expected %d bytes, got %d: %w", TokenAccountDataSize, len(data), pkg.ErrWrongLength)
	}
	return binary.LittleEndian.Uint64(data[tokenAmountOffset : tokenAmountOffset+8]), nil
}

// PatchTokenAccountAmount returns a copy of the token account bytes with
// the balance replaced; speculative deltas publish predicted vault images
// this way.
func PatchTokenAccountAmount(data []byte, amount uint64) ([]byte, error) {
	if len(data) < TokenAccountDataSize {
		return nil, fmt.Errorf("token account: expected %d bytes, got %d: %w", TokenAccountDataSize, len(data), pkg.ErrWrongLength)
	}
	patched := make([]byte, len(data))
	copy(patched, data)
	binary.LittleEndian.PutUint64(patched[tokenAmountOffset:tokenAmountOffset+8], amount)
	return patched, nil
}

// TransferFeeBpsFromMint scans a Token-2022 mint for an active transfer
// fee. The scan advances one byte at a time rather than hopping TLV
// lengths, because padding entries of type 0 with length 256 appear in real
// mints and break sequential walks. Returns (0, false) when the mint
// carries no transfer fee.
func TransferFeeBpsFromMint(data []byte) (uint16, bool) {
	for i := mintExtensionStart; i+4+transferFeeExtensionLength <= len(data); i++ {
		extType := binary.LittleEndian.Uint16(data[i : i+2])
		extLen := binary.LittleEndian.Uint16(data[i+2 : i+4])
		if extType != transferFeeExtensionType || extLen != transferFeeExtensionLength {
			continue
		}

		ext := data[i+4 : i+4+transferFeeExtensionLength]
		olderEpoch := binary.LittleEndian.Uint64(ext[72:80])
		olderBps := binary.LittleEndian.Uint16(ext[88:90])
		newerEpoch := binary.LittleEndian.Uint64(ext[90:98])
		newerBps := binary.LittleEndian.Uint16(ext[106:108])

		if newerEpoch >= olderEpoch {
			return newerBps, true
		}
		return olderBps, true
	}
	return 0, false
}
