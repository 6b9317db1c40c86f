package tube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadySetOrdersByPriorityThenInsertion(t *testing.T) {
	s := newReadySet()
	s.Put(1, 100)
	s.Put(2, 50)
	s.Put(3, 50)

	id, ok := s.TakeHead()
	require.True(t, ok)
	assert.EqualValues(t, 2, id, "lower priority wins; same priority: earlier insertion wins")

	id, ok = s.TakeHead()
	require.True(t, ok)
	assert.EqualValues(t, 3, id, "remaining priority-50 job precedes the priority-100 one")

	id, ok = s.TakeHead()
	require.True(t, ok)
	assert.EqualValues(t, 1, id)
}

func TestReadySetPutAtHeadBeatsEarlierSamePriority(t *testing.T) {
	s := newReadySet()
	s.Put(1, 50)
	s.PutAtHead(2, 50)

	id, ok := s.TakeHead()
	require.True(t, ok)
	assert.EqualValues(t, 2, id)
}

func TestReadySetTakeByID(t *testing.T) {
	s := newReadySet()
	s.Put(1, 10)
	s.Put(2, 10)
	require.True(t, s.Take(1))
	assert.False(t, s.Take(1), "double-take is a no-op")

	id, ok := s.Peek()
	require.True(t, ok)
	assert.EqualValues(t, 2, id)
}

func TestDelayedSetOrdersByUntilThenID(t *testing.T) {
	s := newDelayedSet()
	now := time.Now()
	s.Put(5, now.Add(2*time.Second))
	s.Put(1, now.Add(1*time.Second))
	s.Put(2, now.Add(1*time.Second))

	id, _, ok := s.Peek()
	require.True(t, ok)
	assert.EqualValues(t, 1, id)

	s.TakeHead()
	id, _, ok = s.Peek()
	require.True(t, ok)
	assert.EqualValues(t, 2, id)
}
