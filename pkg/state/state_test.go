package state

import (
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigN(n byte) solana.Signature {
	var sig solana.Signature
	sig[0] = n
	return sig
}

func pendingTx(n byte, seenAt time.Time, writes ...solana.PublicKey) *PendingTransaction {
	return &PendingTransaction{
		Signature: sigN(n),
		SeenSlot:  100,
		SeenAt:    seenAt,
		WriteKeys: writes,
		Status:    StatusPending,
	}
}

func TestQueueAddAndDedup(t *testing.T) {
	q := NewPendingQueue(5*time.Second, 10, time.Second)
	now := time.Now()

	assert.True(t, q.Add(pendingTx(1, now)))
	assert.False(t, q.Add(pendingTx(1, now)))
	assert.Equal(t, 1, q.Len())
}

func TestQueueMaxAgeEviction(t *testing.T) {
	q := NewPendingQueue(5*time.Second, 10, time.Second)
	start := time.Now()

	require.True(t, q.Add(pendingTx(1, start)))
	require.True(t, q.Add(pendingTx(2, start.Add(6*time.Second))))

	_, ok := q.Get(sigN(1))
	assert.False(t, ok, "entry past max-age is evicted on the next add")
	_, ok = q.Get(sigN(2))
	assert.True(t, ok)
}

func TestQueueSizeCapEvictsOldest(t *testing.T) {
	q := NewPendingQueue(time.Hour, 3, time.Second)
	now := time.Now()

	for i := byte(1); i <= 4; i++ {
		require.True(t, q.Add(pendingTx(i, now.Add(time.Duration(i)*time.Millisecond))))
	}

	assert.Equal(t, 3, q.Len())
	_, ok := q.Get(sigN(1))
	assert.False(t, ok)
	_, ok = q.Get(sigN(4))
	assert.True(t, ok)
}

func TestPendingWritersToSortedBySeenTime(t *testing.T) {
	q := NewPendingQueue(time.Hour, 10, time.Second)
	key := solana.NewWallet().PublicKey()
	now := time.Now()

	require.True(t, q.Add(pendingTx(2, now.Add(20*time.Millisecond), key)))
	require.True(t, q.Add(pendingTx(1, now.Add(10*time.Millisecond), key)))
	require.True(t, q.Add(pendingTx(3, now.Add(30*time.Millisecond))))

	writers := q.PendingWritersTo(key)
	require.Len(t, writers, 2)
	assert.Equal(t, sigN(1), writers[0].Signature)
	assert.Equal(t, sigN(2), writers[1].Signature)
}

func TestConfirmGraceThenRemoval(t *testing.T) {
	q := NewPendingQueue(time.Hour, 10, time.Second)
	now := time.Now()
	key := solana.NewWallet().PublicKey()

	require.True(t, q.Add(pendingTx(1, now, key)))
	q.Confirm(sigN(1), now)

	// Still present for dedup, but no longer a pending writer.
	tx, ok := q.Get(sigN(1))
	require.True(t, ok)
	assert.Equal(t, StatusConfirmed, tx.Status)
	assert.Empty(t, q.PendingWritersTo(key))

	q.Sweep(now.Add(2 * time.Second))
	_, ok = q.Get(sigN(1))
	assert.False(t, ok)
}

func TestFailRemovesImmediately(t *testing.T) {
	q := NewPendingQueue(time.Hour, 10, time.Second)
	require.True(t, q.Add(pendingTx(1, time.Now())))
	q.Fail(sigN(1))
	_, ok := q.Get(sigN(1))
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func delta(n byte, expirySlot uint64) *SpeculativeDelta {
	return &SpeculativeDelta{
		Signature:     sigN(n),
		PredictedData: map[solana.PublicKey][]byte{},
		MintDeltas:    map[solana.PublicKey]cosmath.Int{},
		Confidence:    0.9,
		ExpirySlot:    expirySlot,
	}
}

func TestDeltaExpiryOnSlotAdvance(t *testing.T) {
	m := NewDeltaMap()
	require.True(t, m.Set(delta(1, 105)))
	require.True(t, m.Set(delta(2, 110)))

	m.SetConfirmedSlot(105)
	_, ok := m.Get(sigN(1))
	assert.False(t, ok, "delta with expiry_slot <= confirmed slot is gone")
	_, ok = m.Get(sigN(2))
	assert.True(t, ok)

	// Already-expired deltas are refused outright.
	assert.False(t, m.Set(delta(3, 104)))
	assert.Equal(t, 1, m.Len())
}

func TestManagerRetiresDeltaWithTransaction(t *testing.T) {
	m := NewManager(time.Hour, 10, time.Second, nil)
	now := time.Now()

	require.True(t, m.AddPending(pendingTx(1, now)))
	require.True(t, m.Deltas.Set(delta(1, 200)))

	m.Confirm(sigN(1), 150, now)
	_, ok := m.Deltas.Get(sigN(1))
	assert.False(t, ok)
	assert.Equal(t, uint64(150), m.Deltas.ConfirmedSlot())

	require.True(t, m.AddPending(pendingTx(2, now)))
	require.True(t, m.Deltas.Set(delta(2, 200)))
	m.Fail(sigN(2))
	_, ok = m.Deltas.Get(sigN(2))
	assert.False(t, ok)
	_, ok = m.Queue.Get(sigN(2))
	assert.False(t, ok)
}
