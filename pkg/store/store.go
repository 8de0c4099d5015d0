// Package store holds the confirmed account state: a version-ordered,
// single-writer many-reader byte store.
package store

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Update is one confirmed account write from the block feed.
type Update struct {
	Pubkey       solana.PublicKey
	Owner        solana.PublicKey
	Data         []byte
	Lamports     uint64
	Executable   bool
	RentEpoch    uint64
	Slot         uint64
	WriteVersion uint64
}

// AccountRecord is the stored state of one account. Records are immutable
// after publication; an accepted update replaces the record wholesale, so
// readers never observe torn state.
type AccountRecord struct {
	Data         []byte
	Owner        solana.PublicKey
	Lamports     uint64
	Slot         uint64
	WriteVersion uint64
	Executable   bool
	RentEpoch    uint64
	Deleted      bool
}

// newerThan orders records by (slot, write_version).
func (r *AccountRecord) newerThan(slot, writeVersion uint64) bool {
	if r.Slot != slot {
		return r.Slot > slot
	}
	return r.WriteVersion > writeVersion
}

// AccountStore maps keys to their latest records. For any key the stored
// record carries the greatest (slot, write_version) ever observed; older
// deliveries are dropped silently.
type AccountStore struct {
	mu      sync.RWMutex
	records map[solana.PublicKey]*AccountRecord

	// tracked limits storage to an interest set when non-nil.
	tracked map[solana.PublicKey]struct{}
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		records: make(map[solana.PublicKey]*AccountRecord),
	}
}

// Track enables interest tracking and adds keys to the tracked set. Before
// the first call every key is stored.
func (s *AccountStore) Track(keys ...solana.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracked == nil {
		s.tracked = make(map[solana.PublicKey]struct{}, len(keys))
	}
	for _, key := range keys {
		s.tracked[key] = struct{}{}
	}
}

// Apply stores the update unless an equal-or-newer record exists. A zero
// lamport balance or empty payload tombstones the account and releases its
// data buffer.
func (s *AccountStore) Apply(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracked != nil {
		if _, ok := s.tracked[u.Pubkey]; !ok {
			return false
		}
	}

	if prev, ok := s.records[u.Pubkey]; ok {
		if prev.Slot == u.Slot && prev.WriteVersion == u.WriteVersion {
			return false
		}
		if prev.newerThan(u.Slot, u.WriteVersion) {
			return false
		}
	}

	rec := &AccountRecord{
		Data:         u.Data,
		Owner:        u.Owner,
		Lamports:     u.Lamports,
		Slot:         u.Slot,
		WriteVersion: u.WriteVersion,
		Executable:   u.Executable,
		RentEpoch:    u.RentEpoch,
	}
	if u.Lamports == 0 || len(u.Data) == 0 {
		rec.Deleted = true
		rec.Data = nil
	}
	s.records[u.Pubkey] = rec
	return true
}

// Get returns the current record. The record is shared and must not be
// mutated.
func (s *AccountStore) Get(key solana.PublicKey) (*AccountRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

// GetData returns the account's data buffer without copying. Deleted
// accounts report false.
func (s *AccountStore) GetData(key solana.PublicKey) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || rec.Deleted {
		return nil, false
	}
	return rec.Data, true
}

// Snapshot captures the requested keys' records (sharing data buffers) and
// the maximum slot observed across them.
func (s *AccountStore) Snapshot(keys []solana.PublicKey) (map[solana.PublicKey]*AccountRecord, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[solana.PublicKey]*AccountRecord, len(keys))
	maxSlot := uint64(0)
	for _, key := range keys {
		rec, ok := s.records[key]
		if !ok {
			continue
		}
		out[key] = rec
		if rec.Slot > maxSlot {
			maxSlot = rec.Slot
		}
	}
	return out, maxSlot
}

// Len reports how many records are held.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
