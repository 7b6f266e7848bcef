package library

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Role tells the two kinds of account apart.
type Role int

const (
	RoleMember Role = iota + 1
	RoleLibrarian
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleLibrarian:
		return "librarian"
	default:
		return "unknown"
	}
}

// Person holds the contact details shared by every account.
type Person struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Account is implemented by Member and Librarian.
type Account interface {
	Role() Role
	Contact() Person
	AccountID() string
}

// Member is a borrowing account. It owns its loans (in insertion order), its
// reservations and a running fine balance that never goes negative.
type Member struct {
	Person
	MembershipID string

	loans        []*Loan
	reservations []*Reservation
	fineAmount   decimal.Decimal
}

func (m *Member) Role() Role        { return RoleMember }
func (m *Member) Contact() Person   { return m.Person }
func (m *Member) AccountID() string { return m.MembershipID }

// FineAmount is the outstanding balance.
func (m *Member) FineAmount() decimal.Decimal { return m.fineAmount }

// Loans returns copies of the member's loans, oldest first.
func (m *Member) Loans() []Loan {
	out := make([]Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, *l)
	}
	return out
}

// OpenLoanCount counts loans not yet returned.
func (m *Member) OpenLoanCount() int {
	n := 0
	for _, l := range m.loans {
		if l.IsOpen() {
			n++
		}
	}
	return n
}

// Reservations returns copies of the member's reservations, oldest first.
func (m *Member) Reservations() []Reservation {
	out := make([]Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, *r)
	}
	return out
}

// CheckEligibility enforces the open-loan limit; maxOpenLoans <= 0 means no limit.
func (m *Member) CheckEligibility(maxOpenLoans int) error {
	if maxOpenLoans > 0 && m.OpenLoanCount() >= maxOpenLoans {
		return unavailable("member.eligibility", m.MembershipID, "loan limit reached")
	}
	return nil
}

// PayFine settles part or all of the balance and returns what is left.
func (m *Member) PayFine(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || amount.GreaterThan(m.fineAmount) {
		return m.fineAmount, &OpError{
			Op:   "member.pay_fine",
			Kind: KindInvalidAmount,
			ID:   m.MembershipID,
			Msg:  "amount must be positive and at most " + m.fineAmount.StringFixed(2),
		}
	}
	m.fineAmount = m.fineAmount.Sub(amount)
	return m.fineAmount, nil
}

func (m *Member) addLoan(l *Loan) { m.loans = append(m.loans, l) }

func (m *Member) addReservation(r *Reservation) { m.reservations = append(m.reservations, r) }

func (m *Member) accrueFine(amount decimal.Decimal) {
	if amount.IsPositive() {
		m.fineAmount = m.fineAmount.Add(amount)
	}
}

// Librarian is a staff account allowed to change the catalog.
type Librarian struct {
	Person
	EmployeeID   string
	PasswordHash string
}

func (l *Librarian) Role() Role        { return RoleLibrarian }
func (l *Librarian) Contact() Person   { return l.Person }
func (l *Librarian) AccountID() string { return l.EmployeeID }

// SetPassword stores a bcrypt hash of password.
func (l *Librarian) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	l.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares password against the stored hash.
func (l *Librarian) CheckPassword(password string) error {
	if l.PasswordHash == "" {
		return &OpError{Op: "librarian.auth", Kind: KindUnauthorized, ID: l.EmployeeID, Msg: "no password set"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(password)); err != nil {
		return &OpError{Op: "librarian.auth", Kind: KindUnauthorized, ID: l.EmployeeID, Msg: "invalid credentials"}
	}
	return nil
}
