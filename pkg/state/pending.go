// Package state tracks pre-confirmation state: the pending-transaction
// queue and the speculative deltas derived from it. Nothing in this package
// ever writes to the confirmed account store.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// TxStatus is the lifecycle state of a pending transaction.
type TxStatus uint8

const (
	StatusPending TxStatus = iota
	StatusConfirmed
	StatusFailed
	StatusExpired
)

// DecodedInstruction is one instruction of a pending transaction.
type DecodedInstruction struct {
	ProgramKey    solana.PublicKey
	Discriminator [8]byte
	Data          []byte
	// AccountIndexes index into the transaction's account key list.
	AccountIndexes []uint16
	// Accounts are the resolved keys, in instruction order.
	Accounts []solana.PublicKey
}

// PendingTransaction is a shred-feed transaction awaiting confirmation.
type PendingTransaction struct {
	Signature    solana.Signature
	SeenSlot     uint64
	SeenAt       time.Time
	Raw          []byte
	Instructions []DecodedInstruction
	ReadKeys     []solana.PublicKey
	WriteKeys    []solana.PublicKey
	Status       TxStatus
}

// PendingQueue holds pending transactions keyed by signature with a
// secondary index from write-account key to writers.
type PendingQueue struct {
	mu sync.RWMutex

	maxAge  time.Duration
	maxSize int
	// grace keeps confirmed entries around briefly so duplicate shred
	// deliveries dedup against them.
	grace time.Duration

	txs      map[solana.Signature]*PendingTransaction
	byWriter map[solana.PublicKey]map[solana.Signature]struct{}
	order    []solana.Signature
	removeAt map[solana.Signature]time.Time
}

// NewPendingQueue creates a queue with the given age and size caps.
func NewPendingQueue(maxAge time.Duration, maxSize int, grace time.Duration) *PendingQueue {
	return &PendingQueue{
		maxAge:   maxAge,
		maxSize:  maxSize,
		grace:    grace,
		txs:      make(map[solana.Signature]*PendingTransaction),
		byWriter: make(map[solana.PublicKey]map[solana.Signature]struct{}),
		removeAt: make(map[solana.Signature]time.Time),
	}
}

// Add inserts a transaction, first evicting entries past max-age and, if
// the queue is still full, the oldest entry. Re-adding a known signature is
// a no-op and reports false.
func (q *PendingQueue) Add(tx *PendingTransaction) bool {
	now := tx.SeenAt

	q.mu.Lock()
	defer q.mu.Unlock()

	q.sweepLocked(now)

	if _, ok := q.txs[tx.Signature]; ok {
		return false
	}

	for len(q.txs) >= q.maxSize && len(q.order) > 0 {
		q.removeLocked(q.order[0])
	}

	q.txs[tx.Signature] = tx
	q.order = append(q.order, tx.Signature)
	for _, key := range tx.WriteKeys {
		writers, ok := q.byWriter[key]
		if !ok {
			writers = make(map[solana.Signature]struct{})
			q.byWriter[key] = writers
		}
		writers[tx.Signature] = struct{}{}
	}
	return true
}

// Get returns a pending transaction by signature.
func (q *PendingQueue) Get(sig solana.Signature) (*PendingTransaction, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	tx, ok := q.txs[sig]
	return tx, ok
}

// Confirm marks the transaction confirmed and schedules its removal after
// the grace period.
func (q *PendingQueue) Confirm(sig solana.Signature, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	tx, ok := q.txs[sig]
	if !ok {
		return
	}
	tx.Status = StatusConfirmed
	q.removeAt[sig] = now.Add(q.grace)
}

// Fail removes the transaction immediately.
func (q *PendingQueue) Fail(sig solana.Signature) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if tx, ok := q.txs[sig]; ok {
		tx.Status = StatusFailed
		q.removeLocked(sig)
	}
}

// PendingWritersTo returns the still-pending transactions writing the key,
// seen-time ascending.
func (q *PendingQueue) PendingWritersTo(key solana.PublicKey) []*PendingTransaction {
	q.mu.RLock()
	defer q.mu.RUnlock()

	writers := q.byWriter[key]
	out := make([]*PendingTransaction, 0, len(writers))
	for sig := range writers {
		tx, ok := q.txs[sig]
		if !ok || tx.Status != StatusPending {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeenAt.Before(out[j].SeenAt) })
	return out
}

// Sweep evicts entries past max-age and confirmed entries past their grace
// period.
func (q *PendingQueue) Sweep(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked(now)
}

// Len reports how many transactions are held, in any status.
func (q *PendingQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.txs)
}

func (q *PendingQueue) sweepLocked(now time.Time) {
	cutoff := now.Add(-q.maxAge)
	for len(q.order) > 0 {
		tx, ok := q.txs[q.order[0]]
		if !ok {
			q.order = q.order[1:]
			continue
		}
		if tx.Status == StatusPending && tx.SeenAt.Before(cutoff) {
			tx.Status = StatusExpired
			q.removeLocked(tx.Signature)
			continue
		}
		break
	}
	for sig, deadline := range q.removeAt {
		if !deadline.After(now) {
			q.removeLocked(sig)
		}
	}
}

func (q *PendingQueue) removeLocked(sig solana.Signature) {
	tx, ok := q.txs[sig]
	if !ok {
		return
	}
	delete(q.txs, sig)
	delete(q.removeAt, sig)
	for _, key := range tx.WriteKeys {
		if writers, ok := q.byWriter[key]; ok {
			delete(writers, sig)
			if len(writers) == 0 {
				delete(q.byWriter, key)
			}
		}
	}
	for i, ordered := range q.order {
		if ordered == sig {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}
