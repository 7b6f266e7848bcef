package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationQueueFIFO(t *testing.T) {
	q := NewReservationQueue()
	r1 := q.Enqueue("B001", "M01", day0)
	r2 := q.Enqueue("B001", "M02", days(1))
	q.Enqueue("B002", "M03", days(1))

	head, ok := q.PeekHead("B001")
	require.True(t, ok)
	assert.Equal(t, r1.ID, head.ID)
	assert.Less(t, r1.Seq, r2.Seq)
	assert.Equal(t, 1, q.Position("B001", "M01"))
	assert.Equal(t, 2, q.Position("B001", "M02"))
	assert.Equal(t, 0, q.Position("B001", "M03"))

	require.NoError(t, q.Cancel(r1))
	head, ok = q.PeekHead("B001")
	require.True(t, ok)
	assert.Equal(t, r2.ID, head.ID)
	assert.Equal(t, 1, q.Position("B001", "M02"))

	require.NoError(t, q.Complete(r2))
	assert.False(t, q.HasActive("B001"))
	assert.True(t, q.HasActive("B002"))

	history := q.History("B001")
	require.Len(t, history, 2)
	assert.Equal(t, ReservationCancelled, history[0].Status)
	assert.Equal(t, ReservationCompleted, history[1].Status)
}

func TestReservationTerminalStates(t *testing.T) {
	q := NewReservationQueue()

	cancelled := q.Enqueue("B001", "M01", day0)
	require.NoError(t, q.Cancel(cancelled))
	assert.ErrorIs(t, q.Complete(cancelled), ErrInvalidOperation)
	assert.ErrorIs(t, q.Cancel(cancelled), ErrInvalidOperation)
	assert.Equal(t, ReservationCancelled, cancelled.Status)

	completed := q.Enqueue("B001", "M02", day0)
	require.NoError(t, q.Complete(completed))
	assert.ErrorIs(t, q.Cancel(completed), ErrInvalidOperation)
	assert.Equal(t, ReservationCompleted, completed.Status)
}

func TestReservationLookup(t *testing.T) {
	q := NewReservationQueue()
	r := q.Enqueue("B001", "M01", day0.Add(15*time.Hour))

	got, err := q.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, day0, got.ReservationDate)

	_, err = q.Get("missing")
	assert.True(t, IsKind(err, KindNotFound))

	active, ok := q.ActiveFor("B001", "M01")
	require.True(t, ok)
	assert.Same(t, r, active)
	_, ok = q.ActiveFor("B001", "M02")
	assert.False(t, ok)
}

func TestHistoryReturnsCopies(t *testing.T) {
	q := NewReservationQueue()
	q.Enqueue("B001", "M01", day0)

	h := q.History("B001")
	h[0].Status = ReservationCancelled

	head, ok := q.PeekHead("B001")
	require.True(t, ok)
	assert.Equal(t, ReservationActive, head.Status)
}
