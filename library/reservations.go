package library

import (
	"time"

	"github.com/google/uuid"
)

// ReservationQueue holds one FIFO waitlist per book. Cancelled and completed
// reservations stay in the list for history; PeekHead skips them.
type ReservationQueue struct {
	byBook  map[string][]*Reservation
	byID    map[string]*Reservation
	nextSeq uint64
	newID   func() string
}

func NewReservationQueue() *ReservationQueue {
	return &ReservationQueue{
		byBook: make(map[string][]*Reservation),
		byID:   make(map[string]*Reservation),
		newID:  uuid.NewString,
	}
}

// Enqueue appends an ACTIVE reservation for bookID to the back of its queue.
func (q *ReservationQueue) Enqueue(bookID, membershipID string, date time.Time) *Reservation {
	q.nextSeq++
	r := &Reservation{
		ID:              q.newID(),
		BookID:          bookID,
		MembershipID:    membershipID,
		ReservationDate: Day(date),
		Seq:             q.nextSeq,
		Status:          ReservationActive,
	}
	q.byBook[bookID] = append(q.byBook[bookID], r)
	q.byID[r.ID] = r
	return r
}

// PeekHead returns the oldest ACTIVE reservation for bookID.
func (q *ReservationQueue) PeekHead(bookID string) (*Reservation, bool) {
	for _, r := range q.byBook[bookID] {
		if r.Status == ReservationActive {
			return r, true
		}
	}
	return nil, false
}

// ActiveFor returns membershipID's oldest ACTIVE reservation for bookID.
func (q *ReservationQueue) ActiveFor(bookID, membershipID string) (*Reservation, bool) {
	for _, r := range q.byBook[bookID] {
		if r.Status == ReservationActive && r.MembershipID == membershipID {
			return r, true
		}
	}
	return nil, false
}

// HasActive reports whether anyone is still waiting on bookID.
func (q *ReservationQueue) HasActive(bookID string) bool {
	_, ok := q.PeekHead(bookID)
	return ok
}

// Position returns the 1-based place of membershipID among the ACTIVE
// reservations for bookID, or 0.
func (q *ReservationQueue) Position(bookID, membershipID string) int {
	pos := 0
	for _, r := range q.byBook[bookID] {
		if r.Status != ReservationActive {
			continue
		}
		pos++
		if r.MembershipID == membershipID {
			return pos
		}
	}
	return 0
}

// Cancel moves an ACTIVE reservation to CANCELLED.
func (q *ReservationQueue) Cancel(r *Reservation) error {
	if r.Status != ReservationActive {
		return invalidOperation("reservation.cancel", r.ID, "reservation is "+string(r.Status))
	}
	r.Status = ReservationCancelled
	return nil
}

// Complete moves an ACTIVE reservation to COMPLETED once the book is issued to
// the reserving member.
func (q *ReservationQueue) Complete(r *Reservation) error {
	if r.Status != ReservationActive {
		return invalidOperation("reservation.complete", r.ID, "reservation is "+string(r.Status))
	}
	r.Status = ReservationCompleted
	return nil
}

// Get looks a reservation up by id.
func (q *ReservationQueue) Get(id string) (*Reservation, error) {
	r, ok := q.byID[id]
	if !ok {
		return nil, notFound("reservation.get", id, "no such reservation")
	}
	return r, nil
}

// History returns copies of every reservation ever made for bookID, oldest first.
func (q *ReservationQueue) History(bookID string) []Reservation {
	list := q.byBook[bookID]
	out := make([]Reservation, 0, len(list))
	for _, r := range list {
		out = append(out, *r)
	}
	return out
}

// restore re-inserts a reservation from a snapshot. Callers feed them in Seq order.
func (q *ReservationQueue) restore(r *Reservation) {
	q.byBook[r.BookID] = append(q.byBook[r.BookID], r)
	q.byID[r.ID] = r
	if r.Seq > q.nextSeq {
		q.nextSeq = r.Seq
	}
}
