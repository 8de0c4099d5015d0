package store

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(key solana.PublicKey, slot, writeVersion uint64, data []byte) Update {
	return Update{
		Pubkey:       key,
		Owner:        solana.TokenProgramID,
		Data:         data,
		Lamports:     1_000_000,
		Slot:         slot,
		WriteVersion: writeVersion,
	}
}

func TestApplyKeepsNewestVersion(t *testing.T) {
	s := NewAccountStore()
	key := solana.NewWallet().PublicKey()

	assert.True(t, s.Apply(update(key, 10, 1, []byte{1})))
	assert.True(t, s.Apply(update(key, 10, 2, []byte{2})))
	assert.True(t, s.Apply(update(key, 11, 0, []byte{3})))

	// Out-of-order deliveries are dropped silently.
	assert.False(t, s.Apply(update(key, 10, 9, []byte{4})))
	assert.False(t, s.Apply(update(key, 11, 0, []byte{5})))

	rec, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, uint64(11), rec.Slot)
	assert.Equal(t, []byte{3}, rec.Data)
}

func TestReapplySameUpdateIsNoop(t *testing.T) {
	s := NewAccountStore()
	key := solana.NewWallet().PublicKey()

	u := update(key, 5, 7, []byte{42})
	assert.True(t, s.Apply(u))
	assert.False(t, s.Apply(u))

	rec, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte{42}, rec.Data)
}

func TestTombstone(t *testing.T) {
	s := NewAccountStore()
	key := solana.NewWallet().PublicKey()

	require.True(t, s.Apply(update(key, 1, 0, []byte{1, 2, 3})))

	dead := update(key, 2, 0, []byte{1})
	dead.Lamports = 0
	require.True(t, s.Apply(dead))

	rec, ok := s.Get(key)
	require.True(t, ok)
	assert.True(t, rec.Deleted)
	assert.Nil(t, rec.Data)

	_, ok = s.GetData(key)
	assert.False(t, ok)
}

func TestSnapshotSharesBuffersAndReportsMaxSlot(t *testing.T) {
	s := NewAccountStore()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()

	payload := []byte{9, 9, 9}
	require.True(t, s.Apply(update(a, 3, 0, payload)))
	require.True(t, s.Apply(update(b, 8, 0, []byte{1})))

	snap, maxSlot := s.Snapshot([]solana.PublicKey{a, b, missing})
	assert.Len(t, snap, 2)
	assert.Equal(t, uint64(8), maxSlot)

	// The snapshot shares the stored buffer rather than copying it.
	data, ok := s.GetData(a)
	require.True(t, ok)
	assert.Same(t, &data[0], &snap[a].Data[0])
}

func TestInterestTracking(t *testing.T) {
	s := NewAccountStore()
	wanted := solana.NewWallet().PublicKey()
	ignored := solana.NewWallet().PublicKey()

	s.Track(wanted)
	assert.True(t, s.Apply(update(wanted, 1, 0, []byte{1})))
	assert.False(t, s.Apply(update(ignored, 1, 0, []byte{1})))
	assert.Equal(t, 1, s.Len())
}
