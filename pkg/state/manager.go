package state

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Manager couples the pending queue with the delta map so transaction
// outcomes retire both sides together.
type Manager struct {
	Queue  *PendingQueue
	Deltas *DeltaMap
	log    *zap.Logger
}

// NewManager builds a manager with the given queue limits.
func NewManager(maxAge time.Duration, maxSize int, grace time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		Queue:  NewPendingQueue(maxAge, maxSize, grace),
		Deltas: NewDeltaMap(),
		log:    log,
	}
}

// AddPending enqueues a parsed pending transaction.
func (m *Manager) AddPending(tx *PendingTransaction) bool {
	return m.Queue.Add(tx)
}

// Confirm retires a transaction that landed: its delta is no longer
// speculative, and the confirmed slot advances.
func (m *Manager) Confirm(sig solana.Signature, slot uint64, now time.Time) {
	m.Queue.Confirm(sig, now)
	m.Deltas.Remove(sig)
	m.SetConfirmedSlot(slot, now)
}

// Fail retires a transaction that did not land.
func (m *Manager) Fail(sig solana.Signature) {
	m.Queue.Fail(sig)
	m.Deltas.Remove(sig)
}

// SetConfirmedSlot expires stale deltas and sweeps the queue.
func (m *Manager) SetConfirmedSlot(slot uint64, now time.Time) {
	m.Deltas.SetConfirmedSlot(slot)
	m.Queue.Sweep(now)
}
