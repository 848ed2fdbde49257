package queue

import (
	"testing"

	"github.com/cmccoy/gopiece/task"
	"github.com/stretchr/testify/require"
)

func TestPushBackPreservesFIFOOrderAmongRemaining(t *testing.T) {
	q := New(8)

	a := task.New(0, 16, [20]byte{'a'})
	b := task.New(1, 16, [20]byte{'b'})
	c := task.New(2, 16, [20]byte{'c'})

	q.Push(a)
	q.Push(b)
	q.Push(c)

	got, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, a, got)

	q.Push(a) // a's peer didn't have the piece; put it back at the tail

	got, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, b, got)

	got, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, c, got)

	got, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, a, got)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestLenTracksPendingItems(t *testing.T) {
	q := New(4)
	require.Equal(t, 0, q.Len())

	q.Push(task.New(0, 16, [20]byte{}))
	require.Equal(t, 1, q.Len())

	q.Pop()
	require.Equal(t, 0, q.Len())
}

func TestCloseThenPopDrainsRemainingThenReturnsFalse(t *testing.T) {
	q := New(2)
	q.Push(task.New(0, 16, [20]byte{}))
	q.Close()

	_, ok := q.Pop()
	require.True(t, ok)

	_, ok = q.Pop()
	require.False(t, ok)
}
