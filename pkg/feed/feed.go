// Package feed defines the typed inbound messages the engine consumes and
// parses raw shred-feed transactions into pending-transaction records. The
// feeds themselves (sockets, reconnects, envelope decoding) live outside
// the core; each producer writes into a typed channel.
package feed

import (
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/solarb/pkg/state"
	"github.com/solana-zh/solarb/pkg/store"
)

// AccountUpdate is a confirmed account write from the block feed.
type AccountUpdate = store.Update

// BlockTransaction is a confirmed block transaction status.
type BlockTransaction struct {
	Signature solana.Signature
	Slot      uint64
	Success   bool
}

// RawTransaction is an undecoded shred-feed transaction.
type RawTransaction struct {
	Bytes    []byte
	SeenSlot uint64
	SeenAt   time.Time
}

// ParsePendingTransaction decodes raw transaction bytes into the pending
// schema: signature, per-instruction program key and discriminator, and the
// read/write account key sets. Lookup-table indexes beyond the static key
// list cannot be resolved pre-confirmation and are carried as indexes only.
func ParsePendingTransaction(raw RawTransaction) (*state.PendingTransaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw.Bytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("transaction has no signatures")
	}

	msg := &tx.Message
	keys := msg.AccountKeys

	pending := &state.PendingTransaction{
		Signature: tx.Signatures[0],
		SeenSlot:  raw.SeenSlot,
		SeenAt:    raw.SeenAt,
		Raw:       raw.Bytes,
		Status:    state.StatusPending,
	}

	for i, key := range keys {
		if isWritableIndex(msg, i) {
			pending.WriteKeys = append(pending.WriteKeys, key)
		} else {
			pending.ReadKeys = append(pending.ReadKeys, key)
		}
	}

	for _, ci := range msg.Instructions {
		decoded := state.DecodedInstruction{
			Data:           ci.Data,
			AccountIndexes: ci.Accounts,
		}
		if int(ci.ProgramIDIndex) < len(keys) {
			decoded.ProgramKey = keys[ci.ProgramIDIndex]
		}
		if len(ci.Data) >= 8 {
			copy(decoded.Discriminator[:], ci.Data[:8])
		}
		for _, idx := range ci.Accounts {
			if int(idx) < len(keys) {
				decoded.Accounts = append(decoded.Accounts, keys[idx])
			}
		}
		pending.Instructions = append(pending.Instructions, decoded)
	}

	return pending, nil
}

// isWritableIndex applies the message-header account ordering: writable
// signers, readonly signers, writable non-signers, readonly non-signers.
func isWritableIndex(msg *solana.Message, index int) bool {
	header := msg.Header
	numSigners := int(header.NumRequiredSignatures)
	numKeys := len(msg.AccountKeys)

	if index < numSigners {
		return index < numSigners-int(header.NumReadonlySignedAccounts)
	}
	return index < numKeys-int(header.NumReadonlyUnsignedAccounts)
}
