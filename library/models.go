package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanPeriodDays is fixed; loans are not renewable.
const (
	LoanPeriodDays = 14
)

// FineRatePerDay is charged for every whole day a loan runs past its due date.
var FineRatePerDay = decimal.NewFromInt(1)

// BookStatus is the availability state of a single physical copy.
type BookStatus string

const (
	StatusAvailable BookStatus = "AVAILABLE"
	StatusIssued    BookStatus = "ISSUED"
	StatusReserved  BookStatus = "RESERVED"
	StatusLost      BookStatus = "LOST"
)

// ReservationStatus tracks a reservation through its life. Records are never
// deleted, only moved out of ACTIVE.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

// Author is referenced from books by name.
type Author struct {
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// Publisher is referenced from books by name.
type Publisher struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Book represents one physical copy in the catalog. Authors and Publisher hold
// names only; the Catalog resolves them.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ISBN      string     `json:"isbn"`
	Authors   []string   `json:"authors"`
	Publisher string     `json:"publisher,omitempty"`
	Status    BookStatus `json:"status"`
}

func (b *Book) clone() Book {
	c := *b
	c.Authors = append([]string(nil), b.Authors...)
	return c
}

// Loan links one book to one member for a fixed period. DueDate never changes
// after creation; ReturnDate is nil while the loan is open.
type Loan struct {
	ID           string     `json:"id"`
	BookID       string     `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	MembershipID string     `json:"membership_id"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

// Reservation is one entry in a book's waitlist.
type Reservation struct {
	ID              string            `json:"id"`
	BookID          string            `json:"book_id"`
	MembershipID    string            `json:"membership_id"`
	ReservationDate time.Time         `json:"reservation_date"`
	Seq             uint64            `json:"seq"`
	Status          ReservationStatus `json:"status"`
}

// Fine is the record form of an overdue charge. Charges accrue straight into
// Member.FineAmount; the record exists for reporting only.
type Fine struct {
	ID         string          `json:"id"`
	LoanID     string          `json:"loan_id"`
	Amount     decimal.Decimal `json:"amount"`
	IssuedDate time.Time       `json:"issued_date"`
	Paid       bool            `json:"paid"`
}

// MarkPaid flags the fine as settled.
func (f *Fine) MarkPaid() { f.Paid = true }

// LoanSummary is one row of a member's loan listing.
type LoanSummary struct {
	LoanID      string          `json:"loan_id"`
	BookID      string          `json:"book_id"`
	BookTitle   string          `json:"book_title"`
	DueDate     time.Time       `json:"due_date"`
	Returned    bool            `json:"returned"`
	CurrentFine decimal.Decimal `json:"current_fine"`
}

// Day truncates t to its calendar day, in UTC. All circulation dates are days.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b (negative if b is earlier).
func daysBetween(a, b time.Time) int64 {
	return int64(Day(b).Sub(Day(a)).Hours() / 24)
}
