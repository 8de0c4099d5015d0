package state

import (
	"sync"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// SpeculativeDelta is the predicted effect of one pending transaction on
// confirmed state. Deltas live in this side map only and never enter the
// account store.
type SpeculativeDelta struct {
	Signature solana.Signature
	// PredictedData maps account keys to their predicted post-transaction
	// payloads (vault token accounts with patched balances).
	PredictedData map[solana.PublicKey][]byte
	// MintDeltas are signed token flows per mint.
	MintDeltas map[solana.PublicKey]cosmath.Int
	Confidence float64
	ExpirySlot uint64
}

// DeltaMap holds speculative deltas keyed by source signature and expires
// them as the confirmed slot advances.
type DeltaMap struct {
	mu            sync.RWMutex
	deltas        map[solana.Signature]*SpeculativeDelta
	confirmedSlot uint64
}

func NewDeltaMap() *DeltaMap {
	return &DeltaMap{
		deltas: make(map[solana.Signature]*SpeculativeDelta),
	}
}

// Set stores a delta unless it is already expired.
func (m *DeltaMap) Set(delta *SpeculativeDelta) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delta.ExpirySlot <= m.confirmedSlot {
		return false
	}
	m.deltas[delta.Signature] = delta
	return true
}

// Get returns the delta for a source signature, hiding expired entries.
func (m *DeltaMap) Get(sig solana.Signature) (*SpeculativeDelta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delta, ok := m.deltas[sig]
	if !ok || delta.ExpirySlot <= m.confirmedSlot {
		return nil, false
	}
	return delta, true
}

// Remove drops the delta for a confirmed or failed transaction.
func (m *DeltaMap) Remove(sig solana.Signature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deltas, sig)
}

// SetConfirmedSlot advances the confirmed slot and removes every delta at
// or past expiry.
func (m *DeltaMap) SetConfirmedSlot(slot uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot <= m.confirmedSlot {
		return
	}
	m.confirmedSlot = slot
	for sig, delta := range m.deltas {
		if delta.ExpirySlot <= slot {
			delete(m.deltas, sig)
		}
	}
}

// ConfirmedSlot returns the highest confirmed slot seen.
func (m *DeltaMap) ConfirmedSlot() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.confirmedSlot
}

// Len reports how many live deltas are held.
func (m *DeltaMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deltas)
}
