package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool { return l.ReturnDate == nil }

// effectiveDate is the return date of a closed loan, otherwise asOf.
func (l *Loan) effectiveDate(asOf time.Time) time.Time {
	if l.ReturnDate != nil {
		return *l.ReturnDate
	}
	return Day(asOf)
}

// IsOverdue reports whether the loan ran past its due date as of asOf. For a
// closed loan the return date is used instead of asOf.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	return l.effectiveDate(asOf).After(l.DueDate)
}

// DaysOverdue returns the whole days past due, or 0.
func (l *Loan) DaysOverdue(asOf time.Time) int64 {
	if !l.IsOverdue(asOf) {
		return 0
	}
	return daysBetween(l.DueDate, l.effectiveDate(asOf))
}

// CalculateFine returns what the loan owes as of asOf. It has no side effects:
// on an open loan it projects today's fine, on a closed loan it is frozen at
// the return date.
func (l *Loan) CalculateFine(asOf time.Time) decimal.Decimal {
	days := l.DaysOverdue(asOf)
	if days == 0 {
		return decimal.Zero
	}
	return FineRatePerDay.Mul(decimal.NewFromInt(days))
}

// Close records the return date. A loan closes at most once.
func (l *Loan) Close(returnDate time.Time) error {
	if !l.IsOpen() {
		return invalidOperation("loan.close", l.ID, "already returned")
	}
	d := Day(returnDate)
	l.ReturnDate = &d
	return nil
}

// LoanLedger creates loans and indexes them by id. Loans themselves live in
// their member's loan sequence.
type LoanLedger struct {
	byID  map[string]*Loan
	newID func() string
}

func NewLoanLedger() *LoanLedger {
	return &LoanLedger{
		byID:  make(map[string]*Loan),
		newID: uuid.NewString,
	}
}

// CreateLoan opens a loan of book to m starting today. The book must already be
// ISSUED by the status machine.
func (lg *LoanLedger) CreateLoan(book *Book, m *Member, today time.Time) (*Loan, error) {
	if book.Status != StatusIssued {
		return nil, invalidOperation("ledger.create_loan", book.ID, "book is not issued")
	}

	issue := Day(today)
	loan := &Loan{
		ID:           lg.newID(),
		BookID:       book.ID,
		BookTitle:    book.Title,
		MembershipID: m.MembershipID,
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, LoanPeriodDays),
	}
	lg.byID[loan.ID] = loan
	m.addLoan(loan)
	return loan, nil
}

// Get looks a loan up by id.
func (lg *LoanLedger) Get(loanID string) (*Loan, error) {
	loan, ok := lg.byID[loanID]
	if !ok {
		return nil, notFound("ledger.get", loanID, "no such loan")
	}
	return loan, nil
}

// FindOpenLoan returns m's open loan for bookID.
func (lg *LoanLedger) FindOpenLoan(m *Member, bookID string) (*Loan, error) {
	for _, loan := range m.loans {
		if loan.IsOpen() && loan.BookID == bookID {
			return loan, nil
		}
	}
	return nil, notFound("ledger.find_open_loan", bookID, "no open loan for member "+m.MembershipID)
}

// OpenLoanFor returns the open loan on bookID, whoever holds it.
func (lg *LoanLedger) OpenLoanFor(bookID string) (*Loan, bool) {
	for _, loan := range lg.byID {
		if loan.IsOpen() && loan.BookID == bookID {
			return loan, true
		}
	}
	return nil, false
}

// OpenLoans returns every open loan in the ledger, in no particular order.
func (lg *LoanLedger) OpenLoans() []*Loan {
	var open []*Loan
	for _, loan := range lg.byID {
		if loan.IsOpen() {
			open = append(open, loan)
		}
	}
	return open
}

// track indexes a loan restored from a snapshot.
func (lg *LoanLedger) track(loan *Loan) {
	lg.byID[loan.ID] = loan
}
