package library

// The book status machine:
//
//	AVAILABLE -> RESERVED -> ISSUED -> AVAILABLE
//	AVAILABLE ------------> ISSUED
//	any ------------------> LOST (terminal)
//
// It knows nothing about loans or waitlists; the LibraryManager keeps those
// consistent with the status.

// IsAvailable reports whether the copy is on the shelf and unclaimed.
func (b *Book) IsAvailable() bool { return b.Status == StatusAvailable }

// CanIssue reports whether Issue would succeed.
func (b *Book) CanIssue() bool {
	return b.Status == StatusAvailable || b.Status == StatusReserved
}

// Reserve moves an AVAILABLE copy to RESERVED.
func (b *Book) Reserve() error {
	if !b.IsAvailable() {
		return unavailable("book.reserve", b.ID, "not available")
	}
	b.Status = StatusReserved
	return nil
}

// Issue moves an AVAILABLE or RESERVED copy to ISSUED.
func (b *Book) Issue() error {
	if !b.CanIssue() {
		return unavailable("book.issue", b.ID, "not available for issuing")
	}
	b.Status = StatusIssued
	return nil
}

// MakeAvailable puts the copy back on the shelf. A LOST copy stays LOST.
func (b *Book) MakeAvailable() {
	if b.Status == StatusLost {
		return
	}
	b.Status = StatusAvailable
}

// MarkLost sinks the copy into LOST from any state.
func (b *Book) MarkLost() { b.Status = StatusLost }
