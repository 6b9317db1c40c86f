package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(t *testing.T) (*Queue, *fakeClock) {
	t.Helper()
	q := New(Config{MaxJobSize: 1 << 16}, nil, nil)
	fc := &fakeClock{t: time.Now()}
	q.now = fc.now
	return q, fc
}

func TestPutAndReserveImmediate(t *testing.T) {
	q, _ := newTestQueue(t)
	id := q.Put("default", 10, 0, 60*time.Second, []byte("payload"))

	h := q.NewHolder()
	outcome, ok, waiter := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)
	require.Nil(t, waiter)
	assert.Equal(t, id, outcome.Job.ID)
	assert.Equal(t, "payload", string(outcome.Job.Data))
}

func TestReserveBlocksThenWakesOnPut(t *testing.T) {
	q, _ := newTestQueue(t)
	h := q.NewHolder()

	_, ok, waiter := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.False(t, ok)
	require.NotNil(t, waiter)

	id := q.Put("default", 10, 0, 60*time.Second, []byte("x"))

	select {
	case outcome := <-waiter.Wait():
		assert.Equal(t, id, outcome.Job.ID)
	default:
		t.Fatal("waiter was not woken by Put")
	}
}

func TestReleaseReturnsJobToReady(t *testing.T) {
	q, _ := newTestQueue(t)
	q.Put("default", 10, 0, 60*time.Second, []byte("x"))
	h := q.NewHolder()
	outcome, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	require.True(t, q.Release(h, outcome.Job.ID, 20, 0))

	h2 := q.NewHolder()
	outcome2, ok, _ := q.Reserve(h2, []string{"default"}, false, time.Time{})
	require.True(t, ok)
	assert.Equal(t, outcome.Job.ID, outcome2.Job.ID)
}

func TestBuryThenKickReturnsToReady(t *testing.T) {
	q, _ := newTestQueue(t)
	id := q.Put("default", 10, 0, 60*time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	require.True(t, q.Bury(h, id, 5))
	_, ok, w := q.Reserve(q.NewHolder(), []string{"default"}, false, time.Time{})
	assert.False(t, ok, "buried job must not be reservable")
	// Withdraw that reserve so its waiter does not take the kicked job.
	if w != nil {
		q.CancelWait(w)
	}

	n := q.KickTube("default", 10)
	assert.EqualValues(t, 1, n)

	outcome, ok, _ := q.Reserve(q.NewHolder(), []string{"default"}, false, time.Time{})
	require.True(t, ok)
	assert.Equal(t, id, outcome.Job.ID)
}

func TestTouchExtendsDeadline(t *testing.T) {
	q, fc := newTestQueue(t)
	id := q.Put("default", 10, 0, 2*time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	fc.advance(1900 * time.Millisecond)
	require.True(t, q.Touch(h, id))

	fc.advance(1900 * time.Millisecond)
	q.sweepOnce()

	// Still reserved: the touch should have reset the TTR clock, so the
	// sweep must not have requeued it to ready.
	_, stillReady := q.PeekReady("default")
	assert.False(t, stillReady, "touched job should not have been TTR-expired back to ready")
	require.True(t, q.Delete(h, id))
}

func TestDeleteRequiresReservingHolder(t *testing.T) {
	q, _ := newTestQueue(t)
	id := q.Put("default", 10, 0, 60*time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	other := q.NewHolder()
	assert.False(t, q.Delete(other, id))
	assert.True(t, q.Delete(h, id))
}

func TestDisconnectReleasesReservedJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	id := q.Put("default", 10, 0, 60*time.Second, []byte("x"))
	h := q.NewHolder()
	_, ok, _ := q.Reserve(h, []string{"default"}, false, time.Time{})
	require.True(t, ok)

	q.Disconnect(h, "default", []string{"default"})

	outcome, ok, _ := q.Reserve(q.NewHolder(), []string{"default"}, false, time.Time{})
	require.True(t, ok, "job must be back in ready after disconnect")
	assert.Equal(t, id, outcome.Job.ID)
}

func TestTubeIsDestroyedWhenEmptyAndUnreferenced(t *testing.T) {
	q, _ := newTestQueue(t)
	q.IncUse("scratch")
	assert.True(t, q.TubeExists("scratch"))
	q.DecUse("scratch")
	assert.False(t, q.TubeExists("scratch"))
}
