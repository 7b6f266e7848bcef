package library

import (
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// LibraryData represents the complete library state for persistence.
type LibraryData struct {
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Books        []Book          `json:"books"`
	Authors      []Author        `json:"authors"`
	Publishers   []Publisher     `json:"publishers"`
	Members      []MemberData    `json:"members"`
	Librarians   []LibrarianData `json:"librarians"`
	Loans        []Loan          `json:"loans"`
	Reservations []Reservation   `json:"reservations"`
}

// MemberData is a member without its loans and reservations, which are
// stored separately and reattached on restore.
type MemberData struct {
	Person
	MembershipID string          `json:"membership_id"`
	FineAmount   decimal.Decimal `json:"fine_amount"`
}

type LibrarianData struct {
	Person
	EmployeeID   string `json:"employee_id"`
	PasswordHash string `json:"-"`
}

// Snapshot copies the whole library state. Loans come out grouped by member in
// each member's insertion order; reservations in queue order.
func (l *Library) Snapshot() LibraryData {
	data := LibraryData{
		Name:    l.Name,
		Address: l.Address,
		Books:   l.catalog.All(),
	}

	for _, a := range l.catalog.authors {
		data.Authors = append(data.Authors, a)
	}
	sort.Slice(data.Authors, func(i, j int) bool { return data.Authors[i].Name < data.Authors[j].Name })
	for _, p := range l.catalog.publishers {
		data.Publishers = append(data.Publishers, p)
	}
	sort.Slice(data.Publishers, func(i, j int) bool { return data.Publishers[i].Name < data.Publishers[j].Name })

	for _, m := range l.memberOrder {
		data.Members = append(data.Members, MemberData{
			Person:       m.Person,
			MembershipID: m.MembershipID,
			FineAmount:   m.fineAmount,
		})
		data.Loans = append(data.Loans, m.Loans()...)
	}

	for _, lb := range l.librarians {
		data.Librarians = append(data.Librarians, LibrarianData{
			Person:       lb.Person,
			EmployeeID:   lb.EmployeeID,
			PasswordHash: lb.PasswordHash,
		})
	}
	sort.Slice(data.Librarians, func(i, j int) bool { return data.Librarians[i].EmployeeID < data.Librarians[j].EmployeeID })

	for _, list := range l.reservations.byBook {
		for _, r := range list {
			data.Reservations = append(data.Reservations, *r)
		}
	}
	sort.Slice(data.Reservations, func(i, j int) bool { return data.Reservations[i].Seq < data.Reservations[j].Seq })

	return data
}

// RestoreLibrary rebuilds a Library from a snapshot. It rejects snapshots that
// break the one-open-loan-per-book rule or reference unknown members.
func RestoreLibrary(data LibraryData) (*Library, error) {
	l := NewLibrary(data.Name, data.Address)

	for i := range data.Books {
		b := data.Books[i].clone()
		if err := l.catalog.Add(&b); err != nil {
			return nil, fmt.Errorf("restore book: %w", err)
		}
	}
	for _, a := range data.Authors {
		l.catalog.AddAuthor(a)
	}
	for _, p := range data.Publishers {
		l.catalog.AddPublisher(p)
	}

	for _, md := range data.Members {
		m := &Member{Person: md.Person, MembershipID: md.MembershipID, fineAmount: md.FineAmount}
		if m.fineAmount.IsNegative() {
			return nil, fmt.Errorf("restore member %s: negative fine balance", md.MembershipID)
		}
		if err := l.registerMember(m); err != nil {
			return nil, fmt.Errorf("restore member: %w", err)
		}
	}
	for _, ld := range data.Librarians {
		lb := &Librarian{Person: ld.Person, EmployeeID: ld.EmployeeID, PasswordHash: ld.PasswordHash}
		if err := l.addLibrarian(lb); err != nil {
			return nil, fmt.Errorf("restore librarian: %w", err)
		}
	}

	openByBook := make(map[string]string)
	for i := range data.Loans {
		loan := data.Loans[i]
		m, err := l.member(loan.MembershipID)
		if err != nil {
			return nil, fmt.Errorf("restore loan %s: %w", loan.ID, err)
		}
		if loan.IsOpen() {
			if other, ok := openByBook[loan.BookID]; ok {
				return nil, fmt.Errorf("restore loan %s: book %s already on open loan %s", loan.ID, loan.BookID, other)
			}
			openByBook[loan.BookID] = loan.ID
		}
		m.addLoan(&loan)
		l.ledger.track(&loan)
	}

	for _, b := range l.catalog.books {
		_, open := openByBook[b.ID]
		switch {
		case b.Status == StatusIssued && !open:
			return nil, fmt.Errorf("restore book %s: ISSUED without an open loan", b.ID)
		case open && b.Status != StatusIssued && b.Status != StatusLost:
			return nil, fmt.Errorf("restore book %s: %s but on open loan %s", b.ID, b.Status, openByBook[b.ID])
		}
	}

	rs := append([]Reservation(nil), data.Reservations...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Seq < rs[j].Seq })
	for i := range rs {
		r := rs[i]
		m, err := l.member(r.MembershipID)
		if err != nil {
			return nil, fmt.Errorf("restore reservation %s: %w", r.ID, err)
		}
		l.reservations.restore(&r)
		m.addReservation(&r)
	}

	return l, nil
}

// ExportJSON writes the library snapshot as indented JSON. Password hashes are
// left out.
func (l *Library) ExportJSON(w io.Writer) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l.Snapshot()); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
