package tube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuriedQueueFIFO(t *testing.T) {
	q := newBuriedQueue()
	q.PutTail(1)
	q.PutTail(2)
	q.PutTail(3)

	assert.Equal(t, []uint64{1, 2, 3}, q.IDs())

	require.True(t, q.Take(2))
	assert.Equal(t, []uint64{1, 3}, q.IDs())

	id, ok := q.TakeHead()
	require.True(t, ok)
	assert.EqualValues(t, 1, id)
	assert.Equal(t, 1, q.Len())
}
