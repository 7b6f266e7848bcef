package library

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LibraryManager coordinates every operation that touches more than one
// entity. Each method either completes fully or returns an *OpError with no
// state changed. It is not safe for concurrent use; a concurrent deployment
// would serialize Borrow and ReturnBook per book id.
type LibraryManager struct {
	lib *Library
	log Logger

	maxOpenLoans   int
	reminderWindow int
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithLogger sets the logger; the default discards.
func WithLogger(log Logger) Option {
	return func(lm *LibraryManager) {
		if log != nil {
			lm.log = log
		}
	}
}

// WithMaxOpenLoans caps open loans per member. Zero disables the cap.
func WithMaxOpenLoans(n int) Option {
	return func(lm *LibraryManager) { lm.maxOpenLoans = n }
}

// WithReminderWindow sets how many days before the due date a reminder goes out.
func WithReminderWindow(days int) Option {
	return func(lm *LibraryManager) { lm.reminderWindow = days }
}

// NewLibraryManager wraps lib.
func NewLibraryManager(lib *Library, opts ...Option) *LibraryManager {
	lm := &LibraryManager{
		lib:            lib,
		log:            discardLogger(),
		reminderWindow: 2,
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// Library exposes the aggregate for persistence.
func (lm *LibraryManager) Library() *Library { return lm.lib }

// ------------------ Book helpers ------------------

// NewBook is the librarian's input for AddBook.
type NewBook struct {
	ID               string
	Title            string
	ISBN             string
	AuthorName       string
	AuthorBio        string
	PublisherName    string
	PublisherAddress string
}

// AddBook appends a new AVAILABLE copy to the catalog and returns its id. The
// id of a removed book cannot be reused while that book is still on loan.
func (lm *LibraryManager) AddBook(in NewBook) (string, error) {
	if loan, ok := lm.lib.ledger.OpenLoanFor(in.ID); ok {
		return "", &OpError{Op: "catalog.add", Kind: KindDuplicateID, ID: in.ID, Msg: "book id is still on open loan " + loan.ID}
	}
	book := &Book{
		ID:        in.ID,
		Title:     in.Title,
		ISBN:      in.ISBN,
		Publisher: in.PublisherName,
		Status:    StatusAvailable,
	}
	if in.AuthorName != "" {
		book.Authors = []string{in.AuthorName}
	}
	if err := lm.lib.catalog.Add(book); err != nil {
		return "", err
	}
	lm.lib.catalog.AddAuthor(Author{Name: in.AuthorName, Bio: in.AuthorBio})
	lm.lib.catalog.AddPublisher(Publisher{Name: in.PublisherName, Address: in.PublisherAddress})

	lm.log.Info("catalog.book_added", "book_id", book.ID, "title", book.Title)
	return book.ID, nil
}

// RemoveBook deletes a book from the catalog. Loans already made keep their
// own copy of the title.
func (lm *LibraryManager) RemoveBook(bookID string) error {
	if err := lm.lib.catalog.Remove(bookID); err != nil {
		lm.log.Warn("catalog.remove_failed", "book_id", bookID, "err", err)
		return err
	}
	lm.log.Info("catalog.book_removed", "book_id", bookID)
	return nil
}

// Book returns a copy of one catalog entry.
func (lm *LibraryManager) Book(bookID string) (Book, error) { return lm.lib.catalog.Get(bookID) }

// ListBooks returns the whole catalog.
func (lm *LibraryManager) ListBooks() []Book { return lm.lib.catalog.All() }

// CatalogSize is the number of books in the catalog.
func (lm *LibraryManager) CatalogSize() int { return lm.lib.catalog.Len() }

// Author resolves an author record by name.
func (lm *LibraryManager) Author(name string) (Author, bool) { return lm.lib.catalog.Author(name) }

// Publisher resolves a publisher record by name.
func (lm *LibraryManager) Publisher(name string) (Publisher, bool) {
	return lm.lib.catalog.Publisher(name)
}

// ------------------ Search ------------------

func (lm *LibraryManager) SearchByTitle(sub string, caseInsensitive bool) []Book {
	return lm.lib.catalog.SearchByTitle(sub, caseInsensitive)
}

func (lm *LibraryManager) SearchByAuthor(sub string, caseInsensitive bool) []Book {
	return lm.lib.catalog.SearchByAuthor(sub, caseInsensitive)
}

func (lm *LibraryManager) SearchByISBN(isbn string) (Book, error) {
	return lm.lib.catalog.SearchByISBN(isbn)
}

func (lm *LibraryManager) BooksByAuthor(name string) []Book { return lm.lib.catalog.BooksByAuthor(name) }

func (lm *LibraryManager) BooksByPublisher(name string) []Book {
	return lm.lib.catalog.BooksByPublisher(name)
}

// ------------------ Accounts ------------------

// RegisterMember creates a borrowing account.
func (lm *LibraryManager) RegisterMember(userID, name, email, phone, membershipID string) error {
	m := &Member{
		Person:       Person{UserID: userID, Name: name, Email: email, Phone: phone},
		MembershipID: membershipID,
		fineAmount:   decimal.Zero,
	}
	if err := lm.lib.registerMember(m); err != nil {
		return err
	}
	lm.log.Info("member.registered", "membership_id", membershipID, "name", name)
	return nil
}

// AddLibrarian creates a staff account with a bcrypt-hashed password.
func (lm *LibraryManager) AddLibrarian(userID, name, email, phone, employeeID, password string) error {
	lb := &Librarian{
		Person:     Person{UserID: userID, Name: name, Email: email, Phone: phone},
		EmployeeID: employeeID,
	}
	if password != "" {
		if err := lb.SetPassword(password); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}
	if err := lm.lib.addLibrarian(lb); err != nil {
		return err
	}
	lm.log.Info("librarian.added", "employee_id", employeeID, "name", name)
	return nil
}

// AuthenticateLibrarian checks a librarian's credentials and logs them in.
// Unknown ids and wrong passwords fail the same way.
func (lm *LibraryManager) AuthenticateLibrarian(employeeID, password string) (*Librarian, error) {
	lb, err := lm.lib.librarian(employeeID)
	if err == nil {
		err = lb.CheckPassword(password)
	}
	if err != nil {
		lm.log.Warn("librarian.auth_failed", "employee_id", employeeID)
		return nil, err
	}
	lm.Login(lb)
	return lb, nil
}

// Login records the start of a session for either kind of account.
func (lm *LibraryManager) Login(a Account) {
	switch a.Role() {
	case RoleLibrarian:
		lm.log.Info("session.login", "role", a.Role().String(), "employee_id", a.AccountID(), "name", a.Contact().Name)
	default:
		lm.log.Info("session.login", "role", a.Role().String(), "membership_id", a.AccountID(), "name", a.Contact().Name)
	}
}

// Logout records the end of a session.
func (lm *LibraryManager) Logout(a Account) {
	lm.log.Info("session.logout", "role", a.Role().String(), "id", a.AccountID())
}

// MemberSummary is a read-only view of a member account.
type MemberSummary struct {
	Person
	MembershipID string          `json:"membership_id"`
	FineAmount   decimal.Decimal `json:"fine_amount"`
	OpenLoans    int             `json:"open_loans"`
	Reservations []Reservation   `json:"reservations"`
}

func summarize(m *Member) MemberSummary {
	return MemberSummary{
		Person:       m.Person,
		MembershipID: m.MembershipID,
		FineAmount:   m.fineAmount,
		OpenLoans:    m.OpenLoanCount(),
		Reservations: m.Reservations(),
	}
}

// Member returns a summary of one member.
func (lm *LibraryManager) Member(membershipID string) (MemberSummary, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return MemberSummary{}, err
	}
	return summarize(m), nil
}

// ListMembers returns all members in registration order.
func (lm *LibraryManager) ListMembers() []MemberSummary {
	out := make([]MemberSummary, 0, len(lm.lib.memberOrder))
	for _, m := range lm.lib.memberOrder {
		out = append(out, summarize(m))
	}
	return out
}

// ------------------ Circulation ------------------

// Borrow issues bookID to membershipID and returns the new loan id. Any member
// may borrow a RESERVED book; if the borrower holds an active reservation on
// it, that reservation is completed, otherwise the queue is left as is.
func (lm *LibraryManager) Borrow(bookID, membershipID string, today time.Time) (string, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return "", err
	}
	book, err := lm.lib.catalog.get(bookID)
	if err != nil {
		return "", err
	}
	if !book.CanIssue() {
		return "", unavailable("circulation.borrow", bookID, "book is "+string(book.Status))
	}
	if _, open := lm.lib.ledger.OpenLoanFor(bookID); open {
		return "", unavailable("circulation.borrow", bookID, "book is already on loan")
	}
	if err := m.CheckEligibility(lm.maxOpenLoans); err != nil {
		return "", err
	}

	wasReserved := book.Status == StatusReserved
	if err := book.Issue(); err != nil {
		return "", err
	}
	loan, err := lm.lib.ledger.CreateLoan(book, m, today)
	if err != nil {
		return "", err
	}

	if r, ok := lm.lib.reservations.ActiveFor(bookID, membershipID); ok {
		// ActiveFor only returns ACTIVE reservations, which always complete.
		_ = lm.lib.reservations.Complete(r)
		lm.log.Info("reservation.completed", "reservation_id", r.ID, "book_id", bookID, "membership_id", membershipID)
	} else if wasReserved {
		lm.log.Warn("circulation.reserved_book_borrowed", "book_id", bookID, "membership_id", membershipID)
	}

	lm.log.Info("circulation.borrow",
		"loan_id", loan.ID,
		"book_id", bookID,
		"membership_id", membershipID,
		"due", loan.DueDate.Format(time.DateOnly),
	)
	return loan.ID, nil
}

// ReturnBook closes membershipID's open loan for bookID and returns the fine
// charged, which is also added to the member's balance. The book goes back to
// AVAILABLE even when someone is waiting for it.
func (lm *LibraryManager) ReturnBook(bookID, membershipID string, today time.Time) (decimal.Decimal, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return decimal.Zero, err
	}
	loan, err := lm.lib.ledger.FindOpenLoan(m, bookID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := loan.Close(today); err != nil {
		return decimal.Zero, err
	}
	if book, err := lm.lib.catalog.get(bookID); err == nil {
		book.MakeAvailable()
	}

	fine := loan.CalculateFine(today)
	m.accrueFine(fine)

	lm.log.Info("circulation.return",
		"loan_id", loan.ID,
		"book_id", bookID,
		"membership_id", membershipID,
		"fine", fine.StringFixed(2),
	)

	if fine.IsPositive() {
		newNotification(m, NotifyFineAlert, today,
			"%q was returned %d day(s) late. Fine charged: $%s, balance: $%s",
			loan.BookTitle, loan.DaysOverdue(today), fine.StringFixed(2), m.fineAmount.StringFixed(2),
		).Send(lm.log)
	}
	if head, ok := lm.lib.reservations.PeekHead(bookID); ok {
		if waiting, err := lm.lib.member(head.MembershipID); err == nil {
			newNotification(waiting, NotifyReservationAvailable, today,
				"%q has been returned and is on the shelf", loan.BookTitle,
			).Send(lm.log)
		}
	}
	return fine, nil
}

// Reserve puts an AVAILABLE book on hold for membershipID and returns the
// reservation id.
func (lm *LibraryManager) Reserve(bookID, membershipID string, today time.Time) (string, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return "", err
	}
	book, err := lm.lib.catalog.get(bookID)
	if err != nil {
		return "", err
	}
	if err := book.Reserve(); err != nil {
		return "", err
	}

	r := lm.lib.reservations.Enqueue(bookID, membershipID, today)
	m.addReservation(r)

	lm.log.Info("reservation.created", "reservation_id", r.ID, "book_id", bookID, "membership_id", membershipID)
	return r.ID, nil
}

// CancelReservation cancels one reservation by id.
func (lm *LibraryManager) CancelReservation(reservationID string) error {
	r, err := lm.lib.reservations.Get(reservationID)
	if err != nil {
		return err
	}
	if err := lm.lib.reservations.Cancel(r); err != nil {
		return err
	}
	lm.releaseHold(r.BookID)

	lm.log.Info("reservation.cancelled", "reservation_id", r.ID, "book_id", r.BookID, "membership_id", r.MembershipID)
	return nil
}

// CancelReservationFor cancels membershipID's active reservation on bookID.
func (lm *LibraryManager) CancelReservationFor(bookID, membershipID string) error {
	if _, err := lm.lib.member(membershipID); err != nil {
		return err
	}
	r, ok := lm.lib.reservations.ActiveFor(bookID, membershipID)
	if !ok {
		return notFound("circulation.cancel_reservation", bookID, "no active reservation for member "+membershipID)
	}
	return lm.CancelReservation(r.ID)
}

// releaseHold returns a RESERVED book to the shelf once nobody waits for it.
func (lm *LibraryManager) releaseHold(bookID string) {
	book, err := lm.lib.catalog.get(bookID)
	if err != nil || book.Status != StatusReserved {
		return
	}
	if !lm.lib.reservations.HasActive(bookID) {
		book.MakeAvailable()
	}
}

// ReservationQueue returns the full reservation history for bookID.
func (lm *LibraryManager) ReservationQueue(bookID string) []Reservation {
	return lm.lib.reservations.History(bookID)
}

// QueuePosition is membershipID's 1-based place in bookID's waitlist, or 0.
func (lm *LibraryManager) QueuePosition(bookID, membershipID string) int {
	return lm.lib.reservations.Position(bookID, membershipID)
}

// ------------------ Fines ------------------

// PayFine reduces membershipID's balance by amount and returns the new balance.
func (lm *LibraryManager) PayFine(membershipID string, amount decimal.Decimal) (decimal.Decimal, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := m.PayFine(amount)
	if err != nil {
		return balance, err
	}
	lm.log.Info("fine.paid", "membership_id", membershipID, "amount", amount.StringFixed(2), "balance", balance.StringFixed(2))
	return balance, nil
}

// LoanFine is the fine a loan owes as of asOf, without charging it.
func (lm *LibraryManager) LoanFine(loanID string, asOf time.Time) (decimal.Decimal, error) {
	loan, err := lm.lib.ledger.Get(loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return loan.CalculateFine(asOf), nil
}

// ListLoans lists a member's loans, oldest first, with each loan's fine as of asOf.
func (lm *LibraryManager) ListLoans(membershipID string, asOf time.Time) ([]LoanSummary, error) {
	m, err := lm.lib.member(membershipID)
	if err != nil {
		return nil, err
	}
	out := make([]LoanSummary, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, LoanSummary{
			LoanID:      l.ID,
			BookID:      l.BookID,
			BookTitle:   l.BookTitle,
			DueDate:     l.DueDate,
			Returned:    !l.IsOpen(),
			CurrentFine: l.CalculateFine(asOf),
		})
	}
	return out, nil
}

// ------------------ Notifications ------------------

// DueReminders builds a reminder for every open loan that is overdue or due
// within the reminder window as of asOf, earliest due date first.
func (lm *LibraryManager) DueReminders(asOf time.Time) []Notification {
	open := lm.lib.ledger.OpenLoans()
	sort.Slice(open, func(i, j int) bool {
		if open[i].DueDate.Equal(open[j].DueDate) {
			return open[i].ID < open[j].ID
		}
		return open[i].DueDate.Before(open[j].DueDate)
	})

	var out []Notification
	for _, l := range open {
		m, err := lm.lib.member(l.MembershipID)
		if err != nil {
			continue
		}
		daysLeft := daysBetween(asOf, l.DueDate)
		switch {
		case l.IsOverdue(asOf):
			out = append(out, newNotification(m, NotifyDueReminder, asOf,
				"%q is %d day(s) overdue; fine so far $%s", l.BookTitle, l.DaysOverdue(asOf), l.CalculateFine(asOf).StringFixed(2)))
		case daysLeft <= int64(lm.reminderWindow):
			out = append(out, newNotification(m, NotifyDueReminder, asOf,
				"%q is due on %s", l.BookTitle, l.DueDate.Format(time.DateOnly)))
		}
	}
	return out
}

// SendDueReminders sends DueReminders(asOf) and returns what went out.
func (lm *LibraryManager) SendDueReminders(asOf time.Time) []Notification {
	reminders := lm.DueReminders(asOf)
	for _, n := range reminders {
		n.Send(lm.log)
	}
	return reminders
}
