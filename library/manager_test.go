package library

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	attrs map[string]any
}

// recordingLogger keeps every entry so tests can assert on what was logged.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.add("DEBUG", msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.add("INFO", msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.add("WARN", msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.add("ERROR", msg, args) }

func (r *recordingLogger) add(level, msg string, args []any) {
	attrs := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			attrs[k] = args[i+1]
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg, attrs: attrs})
}

func (r *recordingLogger) find(msg string) []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logEntry
	for _, e := range r.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingLogger) notifications(typ NotificationType) []logEntry {
	var out []logEntry
	for _, e := range r.find("notification.sent") {
		if e.attrs["type"] == string(typ) {
			out = append(out, e)
		}
	}
	return out
}

func newTestManager(t *testing.T, opts ...Option) (*LibraryManager, *recordingLogger) {
	t.Helper()
	rec := &recordingLogger{}
	mgr := NewLibraryManager(NewLibrary("City Library", "123 Library Street"), append([]Option{WithLogger(rec)}, opts...)...)

	books := []NewBook{
		{ID: "B001", Title: "Effective Java", ISBN: "9780134685991", AuthorName: "Joshua Bloch", AuthorBio: "Java Programming Expert", PublisherName: "O'Reilly", PublisherAddress: "New york"},
		{ID: "B002", Title: "Learn Python", ISBN: "9780134685991", AuthorName: "Joshua Bloch", PublisherName: "O'Reilly"},
		{ID: "B003", Title: "Sql Mastery", ISBN: "9780134685991", AuthorName: "Joshua Bloch", PublisherName: "Ruksar Appa"},
	}
	for _, b := range books {
		_, err := mgr.AddBook(b)
		require.NoError(t, err)
	}
	require.NoError(t, mgr.RegisterMember("01", "Ali", "ali@example.com", "555-0101", "M01"))
	require.NoError(t, mgr.RegisterMember("02", "Cushuu", "cushu@example.com", "555-0101", "M02"))
	require.NoError(t, mgr.RegisterMember("03", "Dana", "", "", "M03"))
	return mgr, rec
}

func bookStatus(t *testing.T, mgr *LibraryManager, id string) BookStatus {
	t.Helper()
	b, err := mgr.Book(id)
	require.NoError(t, err)
	return b.Status
}

// openLoansFor counts open loans on bookID across every member.
func openLoansFor(mgr *LibraryManager, bookID string) int {
	n := 0
	for _, l := range mgr.Library().ledger.OpenLoans() {
		if l.BookID == bookID {
			n++
		}
	}
	return n
}

func TestAddBookDuplicate(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.AddBook(NewBook{ID: "B001", Title: "Copy"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 3, mgr.CatalogSize())

	a, ok := mgr.Author("Joshua Bloch")
	require.True(t, ok)
	assert.Equal(t, "Java Programming Expert", a.Bio)
	p, ok := mgr.Publisher("O'Reilly")
	require.True(t, ok)
	assert.Equal(t, "New york", p.Address)
	assert.Len(t, mgr.BooksByPublisher("Ruksar Appa"), 1)
	assert.Len(t, mgr.BooksByAuthor("Joshua Bloch"), 3)
}

func TestBorrowAndReturnOnTime(t *testing.T) {
	mgr, rec := newTestManager(t)

	loanID, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)
	assert.NotEmpty(t, loanID)
	assert.Equal(t, StatusIssued, bookStatus(t, mgr, "B001"))
	assert.Equal(t, 1, openLoansFor(mgr, "B001"))

	fine, err := mgr.ReturnBook("B001", "M01", days(14))
	require.NoError(t, err)
	assert.True(t, fine.IsZero())
	assert.Equal(t, StatusAvailable, bookStatus(t, mgr, "B001"))
	assert.Equal(t, 0, openLoansFor(mgr, "B001"))

	m, err := mgr.Member("M01")
	require.NoError(t, err)
	assert.True(t, m.FineAmount.IsZero())
	assert.Equal(t, 0, m.OpenLoans)
	assert.Empty(t, rec.notifications(NotifyFineAlert))
}

func TestReturnLateChargesFine(t *testing.T) {
	mgr, rec := newTestManager(t)

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)

	fine, err := mgr.ReturnBook("B001", "M01", days(20))
	require.NoError(t, err)
	assert.True(t, fine.Equal(decimal.NewFromInt(6)), "fine = %s", fine)

	m, err := mgr.Member("M01")
	require.NoError(t, err)
	assert.Equal(t, "6", m.FineAmount.String())

	alerts := rec.notifications(NotifyFineAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, "M01", alerts[0].attrs["recipient"])
	assert.Contains(t, alerts[0].attrs["message"], "6 day(s) late")

	// Paying more than is owed changes nothing.
	balance, err := mgr.PayFine("M01", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, "6", balance.String())

	balance, err = mgr.PayFine("M01", decimal.NewFromInt(6))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestFinesAccumulateAcrossLoans(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)
	_, err = mgr.Borrow("B002", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.ReturnBook("B001", "M01", days(16))
	require.NoError(t, err)
	_, err = mgr.ReturnBook("B002", "M01", days(17))
	require.NoError(t, err)

	m, err := mgr.Member("M01")
	require.NoError(t, err)
	assert.Equal(t, "5", m.FineAmount.String())
}

func TestBorrowIssuedBook(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.Borrow("B001", "M02", days(1))
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = mgr.Borrow("B001", "M01", days(1))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, openLoansFor(mgr, "B001"))

	m, err := mgr.Member("M02")
	require.NoError(t, err)
	assert.Equal(t, 0, m.OpenLoans)
}

func TestBorrowUnknownIDs(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B999", "M01", day0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Borrow("B001", "M999", day0)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, StatusAvailable, bookStatus(t, mgr, "B001"))
	assert.Empty(t, mgr.Library().ledger.OpenLoans())
}

func TestBorrowLostBook(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Library().catalog.byID["B003"].MarkLost()

	_, err := mgr.Borrow("B003", "M01", day0)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StatusLost, bookStatus(t, mgr, "B003"))
}

func TestReturnWithoutOpenLoan(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.ReturnBook("B001", "M01", day0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.ReturnBook("B001", "M02", days(3))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StatusIssued, bookStatus(t, mgr, "B001"))

	_, err = mgr.ReturnBook("B001", "M01", days(3))
	require.NoError(t, err)
	_, err = mgr.ReturnBook("B001", "M01", days(4))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaxOpenLoans(t *testing.T) {
	mgr, _ := newTestManager(t, WithMaxOpenLoans(1))

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.Borrow("B002", "M01", day0)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StatusAvailable, bookStatus(t, mgr, "B002"))

	_, err = mgr.ReturnBook("B001", "M01", days(1))
	require.NoError(t, err)
	_, err = mgr.Borrow("B002", "M01", days(1))
	assert.NoError(t, err)
}

func TestReserveAndBorrowByReserver(t *testing.T) {
	mgr, _ := newTestManager(t)

	resID, err := mgr.Reserve("B001", "M01", day0)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, bookStatus(t, mgr, "B001"))
	assert.Equal(t, 1, mgr.QueuePosition("B001", "M01"))

	_, err = mgr.Reserve("B001", "M02", day0)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = mgr.Borrow("B001", "M01", days(1))
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, bookStatus(t, mgr, "B001"))

	queue := mgr.ReservationQueue("B001")
	require.Len(t, queue, 1)
	assert.Equal(t, resID, queue[0].ID)
	assert.Equal(t, ReservationCompleted, queue[0].Status)

	m, err := mgr.Member("M01")
	require.NoError(t, err)
	require.Len(t, m.Reservations, 1)
	assert.Equal(t, ReservationCompleted, m.Reservations[0].Status)
}

func TestReserveUnavailable(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.Reserve("B001", "M02", day0)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, mgr.ReservationQueue("B001"))

	_, err = mgr.Reserve("B404", "M02", day0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Reserve("B002", "M404", day0)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Reserving does not stop other members from borrowing the copy.
func TestReservedBookBorrowedByAnotherMember(t *testing.T) {
	mgr, rec := newTestManager(t)

	_, err := mgr.Reserve("B001", "M01", day0)
	require.NoError(t, err)

	_, err = mgr.Borrow("B001", "M02", days(1))
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, bookStatus(t, mgr, "B001"))

	queue := mgr.ReservationQueue("B001")
	require.Len(t, queue, 1)
	assert.Equal(t, ReservationActive, queue[0].Status)
	assert.Len(t, rec.find("circulation.reserved_book_borrowed"), 1)
}

// A return puts the copy back on the shelf even while someone is waiting.
func TestReturnIgnoresWaitingReservation(t *testing.T) {
	mgr, rec := newTestManager(t)

	_, err := mgr.Reserve("B001", "M01", day0)
	require.NoError(t, err)
	_, err = mgr.Borrow("B001", "M02", days(1))
	require.NoError(t, err)

	_, err = mgr.ReturnBook("B001", "M02", days(5))
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, bookStatus(t, mgr, "B001"))
	assert.Equal(t, 1, mgr.QueuePosition("B001", "M01"))

	avail := rec.notifications(NotifyReservationAvailable)
	require.Len(t, avail, 1)
	assert.Equal(t, "M01", avail[0].attrs["recipient"])
}

func TestCancelReservation(t *testing.T) {
	mgr, _ := newTestManager(t)

	resID, err := mgr.Reserve("B001", "M01", day0)
	require.NoError(t, err)

	require.NoError(t, mgr.CancelReservation(resID))
	assert.Equal(t, StatusAvailable, bookStatus(t, mgr, "B001"))
	assert.Equal(t, 0, mgr.QueuePosition("B001", "M01"))

	assert.ErrorIs(t, mgr.CancelReservation(resID), ErrInvalidOperation)
	assert.ErrorIs(t, mgr.CancelReservation("nope"), ErrNotFound)
	assert.ErrorIs(t, mgr.CancelReservationFor("B001", "M01"), ErrNotFound)

	// The history keeps the cancelled entry.
	queue := mgr.ReservationQueue("B001")
	require.Len(t, queue, 1)
	assert.Equal(t, ReservationCancelled, queue[0].Status)
}

func TestCancelReservationForIssuedBook(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Reserve("B001", "M01", day0)
	require.NoError(t, err)
	_, err = mgr.Borrow("B001", "M02", day0)
	require.NoError(t, err)

	require.NoError(t, mgr.CancelReservationFor("B001", "M01"))
	assert.Equal(t, StatusIssued, bookStatus(t, mgr, "B001"))
}

func TestRemoveBookKeepsLoanTitle(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B002", "M01", day0)
	require.NoError(t, err)
	require.NoError(t, mgr.RemoveBook("B002"))
	assert.ErrorIs(t, mgr.RemoveBook("B002"), ErrNotFound)
	assert.Equal(t, 2, mgr.CatalogSize())

	loans, err := mgr.ListLoans("M01", days(1))
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Learn Python", loans[0].BookTitle)

	fine, err := mgr.ReturnBook("B002", "M01", days(15))
	require.NoError(t, err)
	assert.Equal(t, "1", fine.String())
}

func TestListLoansAndLoanFine(t *testing.T) {
	mgr, _ := newTestManager(t)

	first, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)
	second, err := mgr.Borrow("B002", "M01", days(2))
	require.NoError(t, err)
	_, err = mgr.ReturnBook("B001", "M01", days(18))
	require.NoError(t, err)

	loans, err := mgr.ListLoans("M01", days(20))
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, first, loans[0].LoanID)
	assert.True(t, loans[0].Returned)
	assert.Equal(t, "4", loans[0].CurrentFine.String())
	assert.Equal(t, second, loans[1].LoanID)
	assert.False(t, loans[1].Returned)
	assert.Equal(t, "4", loans[1].CurrentFine.String())

	// Projecting the fine does not charge it.
	fine, err := mgr.LoanFine(second, days(30))
	require.NoError(t, err)
	assert.Equal(t, "14", fine.String())
	m, err := mgr.Member("M01")
	require.NoError(t, err)
	assert.Equal(t, "4", m.FineAmount.String())

	_, err = mgr.LoanFine("missing", day0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.ListLoans("M404", day0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueReminders(t *testing.T) {
	mgr, rec := newTestManager(t, WithReminderWindow(2))

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)
	_, err = mgr.Borrow("B002", "M02", days(5))
	require.NoError(t, err)

	assert.Empty(t, mgr.DueReminders(days(10)))

	got := mgr.DueReminders(days(12))
	require.Len(t, got, 1)
	assert.Equal(t, "M01", got[0].RecipientID)
	assert.Equal(t, NotifyDueReminder, got[0].Type)
	assert.Contains(t, got[0].Message, "is due on 2024-03-15")

	got = mgr.SendDueReminders(days(18))
	require.Len(t, got, 2)
	assert.Equal(t, "M01", got[0].RecipientID)
	assert.Contains(t, got[0].Message, "4 day(s) overdue")
	assert.Equal(t, "M02", got[1].RecipientID)
	assert.Len(t, rec.notifications(NotifyDueReminder), 2)

	_, err = mgr.ReturnBook("B001", "M01", days(18))
	require.NoError(t, err)
	got = mgr.DueReminders(days(18))
	require.Len(t, got, 1)
	assert.Equal(t, "M02", got[0].RecipientID)
}

func TestRegisterDuplicateMember(t *testing.T) {
	mgr, _ := newTestManager(t)

	err := mgr.RegisterMember("09", "Other", "", "", "M01")
	assert.ErrorIs(t, err, ErrDuplicateID)

	members := mgr.ListMembers()
	require.Len(t, members, 3)
	assert.Equal(t, "Ali", members[0].Name)
	assert.Equal(t, "M03", members[2].MembershipID)
}

func TestAuthenticateLibrarian(t *testing.T) {
	mgr, rec := newTestManager(t)
	require.NoError(t, mgr.AddLibrarian("L01", "Boss", "boss@example.com", "555-0202", "E01", "changeme"))
	assert.ErrorIs(t, mgr.AddLibrarian("L02", "Other", "", "", "E01", "x"), ErrDuplicateID)

	lb, err := mgr.AuthenticateLibrarian("E01", "changeme")
	require.NoError(t, err)
	assert.Equal(t, "Boss", lb.Name)
	assert.Len(t, rec.find("session.login"), 1)

	_, err = mgr.AuthenticateLibrarian("E01", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = mgr.AuthenticateLibrarian("E99", "changeme")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Len(t, rec.find("librarian.auth_failed"), 2)

	mgr.Logout(lb)
	logout := rec.find("session.logout")
	require.Len(t, logout, 1)
	assert.Equal(t, "E01", logout[0].attrs["id"])
}

func TestSearchThroughManager(t *testing.T) {
	mgr, _ := newTestManager(t)

	assert.Len(t, mgr.SearchByTitle("", true), 3)
	assert.Len(t, mgr.SearchByTitle("SQL", true), 1)
	assert.Empty(t, mgr.SearchByTitle("SQL", false))
	assert.Len(t, mgr.SearchByAuthor("bloch", true), 3)

	b, err := mgr.SearchByISBN("9780134685991")
	require.NoError(t, err)
	assert.Equal(t, "B001", b.ID)

	for _, b := range mgr.ListBooks() {
		assert.True(t, strings.HasPrefix(b.ID, "B"))
	}
}

func TestReaddRemovedBookWhileOnLoan(t *testing.T) {
	mgr, _ := newTestManager(t)

	_, err := mgr.Borrow("B001", "M01", day0)
	require.NoError(t, err)
	require.NoError(t, mgr.RemoveBook("B001"))

	_, err = mgr.AddBook(NewBook{ID: "B001", Title: "Effective Java"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = mgr.Borrow("B001", "M02", days(1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, openLoansFor(mgr, "B001"))

	_, err = mgr.ReturnBook("B001", "M01", days(2))
	require.NoError(t, err)
	_, err = mgr.AddBook(NewBook{ID: "B001", Title: "Effective Java"})
	require.NoError(t, err)
	_, err = mgr.Borrow("B001", "M02", days(3))
	require.NoError(t, err)
	assert.Equal(t, 1, openLoansFor(mgr, "B001"))

	_, err = RestoreLibrary(mgr.Library().Snapshot())
	assert.NoError(t, err)
}

// checkLoanConsistency asserts one open loan per book at most, and that a
// catalog book is ISSUED exactly when it has an open loan.
func checkLoanConsistency(t *testing.T, mgr *LibraryManager, step int, bookIDs []string) {
	t.Helper()
	for _, id := range bookIDs {
		n := openLoansFor(mgr, id)
		require.LessOrEqual(t, n, 1, "step %d: book %s has %d open loans", step, id, n)

		b, err := mgr.Book(id)
		if err != nil {
			continue
		}
		require.Equal(t, n == 1, b.Status == StatusIssued, "step %d: book %s is %s with %d open loans", step, id, b.Status, n)
	}
}

func TestCirculationSequenceKeepsOneOpenLoan(t *testing.T) {
	bookIDs := []string{"B001", "B002", "B003"}
	memberIDs := []string{"M01", "M02", "M03"}

	scripted := []struct {
		op, book, member string
	}{
		{"borrow", "B001", "M01"},
		{"remove", "B001", ""},
		{"add", "B001", ""},
		{"borrow", "B001", "M02"},
		{"reserve", "B002", "M01"},
		{"borrow", "B002", "M02"},
		{"return", "B001", "M01"},
		{"add", "B001", ""},
		{"borrow", "B001", "M02"},
		{"cancel", "B002", "M01"},
		{"return", "B002", "M02"},
		{"reserve", "B002", "M03"},
		{"remove", "B002", ""},
		{"add", "B002", ""},
		{"borrow", "B002", "M03"},
	}

	mgr, _ := newTestManager(t)
	apply := func(step int, op, book, member string) {
		var err error
		today := days(step)
		switch op {
		case "borrow":
			_, err = mgr.Borrow(book, member, today)
		case "return":
			_, err = mgr.ReturnBook(book, member, today)
		case "reserve":
			_, err = mgr.Reserve(book, member, today)
		case "cancel":
			err = mgr.CancelReservationFor(book, member)
		case "remove":
			err = mgr.RemoveBook(book)
		case "add":
			_, err = mgr.AddBook(NewBook{ID: book, Title: "Title " + book})
		}
		if err != nil {
			require.NotEmpty(t, KindOf(err), "step %d %s %s %s: %v", step, op, book, member, err)
		}
		checkLoanConsistency(t, mgr, step, bookIDs)
	}

	for i, s := range scripted {
		apply(i, s.op, s.book, s.member)
	}

	ops := []string{"borrow", "return", "reserve", "cancel", "remove", "add"}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		apply(len(scripted)+i,
			ops[rng.Intn(len(ops))],
			bookIDs[rng.Intn(len(bookIDs))],
			memberIDs[rng.Intn(len(memberIDs))])
	}

	_, err := RestoreLibrary(mgr.Library().Snapshot())
	assert.NoError(t, err)
}
