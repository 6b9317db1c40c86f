package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepPromotesDelayedJobs(t *testing.T) {
	q, fc := newTestQueue(t)
	id := q.Put("default", 10, 5*time.Second, 60*time.Second, []byte("x"))

	_, ok := q.PeekReady("default")
	assert.False(t, ok, "job should start delayed, not ready")

	fc.advance(5 * time.Second)
	q.sweepOnce()

	j, ok := q.PeekReady("default")
	require.True(t, ok)
	assert.Equal(t, id, j.ID)
}

func TestSweepExpiresTTRToTail(t *testing.T) {
	q, fc := newTestQueue(t)
	q.cfg.Requeue = RequeueTail

	first := q.Put("default", 10, 0, time.Second, []byte("first"))
	h := q.NewHolder()
	outcome, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)
	require.Equal(t, first, outcome.Job.ID)

	second := q.Put("default", 10, 0, 60*time.Second, []byte("second"))

	fc.advance(2 * time.Second)
	q.sweepOnce()

	// first's TTR expired and it requeues behind second (tail position),
	// so second is now the ready head.
	j, ok := q.PeekReady("default")
	require.True(t, ok)
	assert.Equal(t, second, j.ID)

	q.Delete(q.NewHolder(), second)
	j, ok = q.PeekReady("default")
	require.True(t, ok)
	assert.Equal(t, first, j.ID)
	assert.EqualValues(t, 1, q.jobTimeouts)
}

func TestSweepExpiresTTRToHead(t *testing.T) {
	q, fc := newTestQueue(t)
	q.cfg.Requeue = RequeueHead

	first := q.Put("default", 10, 0, time.Second, []byte("first"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	second := q.Put("default", 10, 0, 60*time.Second, []byte("second"))

	fc.advance(2 * time.Second)
	q.sweepOnce()

	j, ok := q.PeekReady("default")
	require.True(t, ok)
	assert.Equal(t, first, j.ID, "RequeueHead puts the expired job ahead of second")
}

func TestSweepBuriesAfterMaxTimeouts(t *testing.T) {
	q, fc := newTestQueue(t)
	q.cfg.MaxTimeouts = 1

	id := q.Put("default", 10, 0, time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	fc.advance(2 * time.Second)
	q.sweepOnce()

	_, ok = q.PeekReady("default")
	assert.False(t, ok, "job should be buried, not ready, past MaxTimeouts")

	j, ok := q.PeekBuried("default")
	require.True(t, ok)
	assert.Equal(t, id, j.ID)
}

func TestSweepWakesWaiterOnPauseExpiry(t *testing.T) {
	q, fc := newTestQueue(t)
	q.Put("default", 10, 0, 60*time.Second, []byte("x"))

	require.True(t, q.PauseTube("default", 5*time.Second))

	h := q.NewHolder()
	_, ok, waiter := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.False(t, ok, "reserve should block while default is paused")
	require.NotNil(t, waiter)

	select {
	case <-waiter.Wait():
		t.Fatal("waiter fired before the tube's pause lapsed")
	default:
	}

	fc.advance(5 * time.Second)
	q.sweepOnce()

	select {
	case outcome := <-waiter.Wait():
		assert.Equal(t, ReserveOK, outcome.Kind)
		require.NotNil(t, outcome.Job)
	default:
		t.Fatal("waiter was not woken once the tube's pause expired")
	}
}

func TestDeadlineSoonFlagging(t *testing.T) {
	q, fc := newTestQueue(t)
	q.Put("default", 10, 0, 2*time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	assert.False(t, q.DeadlineSoon(h))

	fc.advance(1500 * time.Millisecond)
	q.sweepOnce()
	assert.True(t, q.DeadlineSoon(h))
}
