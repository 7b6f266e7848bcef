package library

// Library is the single in-process aggregate owning every circulation entity.
// Nothing outside this package holds a pointer into it.
type Library struct {
	Name    string
	Address string

	catalog      *Catalog
	members      map[string]*Member
	memberOrder  []*Member
	librarians   map[string]*Librarian
	ledger       *LoanLedger
	reservations *ReservationQueue
}

// NewLibrary returns an empty library.
func NewLibrary(name, address string) *Library {
	return &Library{
		Name:         name,
		Address:      address,
		catalog:      NewCatalog(),
		members:      make(map[string]*Member),
		librarians:   make(map[string]*Librarian),
		ledger:       NewLoanLedger(),
		reservations: NewReservationQueue(),
	}
}

func (l *Library) registerMember(m *Member) error {
	if _, ok := l.members[m.MembershipID]; ok {
		return &OpError{Op: "library.register_member", Kind: KindDuplicateID, ID: m.MembershipID, Msg: "membership id already registered"}
	}
	l.members[m.MembershipID] = m
	l.memberOrder = append(l.memberOrder, m)
	return nil
}

func (l *Library) addLibrarian(lb *Librarian) error {
	if _, ok := l.librarians[lb.EmployeeID]; ok {
		return &OpError{Op: "library.add_librarian", Kind: KindDuplicateID, ID: lb.EmployeeID, Msg: "employee id already registered"}
	}
	l.librarians[lb.EmployeeID] = lb
	return nil
}

func (l *Library) member(membershipID string) (*Member, error) {
	m, ok := l.members[membershipID]
	if !ok {
		return nil, notFound("library.member", membershipID, "no such member")
	}
	return m, nil
}

func (l *Library) librarian(employeeID string) (*Librarian, error) {
	lb, ok := l.librarians[employeeID]
	if !ok {
		return nil, &OpError{Op: "library.librarian", Kind: KindUnauthorized, ID: employeeID, Msg: "invalid credentials"}
	}
	return lb, nil
}

// LibrarianCount is the number of staff accounts.
func (l *Library) LibrarianCount() int { return len(l.librarians) }
