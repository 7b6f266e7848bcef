package library

import (
	"errors"
	"testing"
)

func TestBookTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    BookStatus
		action  func(*Book) error
		want    BookStatus
		wantErr error
	}{
		{"reserve available", StatusAvailable, (*Book).Reserve, StatusReserved, nil},
		{"reserve issued", StatusIssued, (*Book).Reserve, StatusIssued, ErrUnavailable},
		{"reserve reserved", StatusReserved, (*Book).Reserve, StatusReserved, ErrUnavailable},
		{"reserve lost", StatusLost, (*Book).Reserve, StatusLost, ErrUnavailable},
		{"issue available", StatusAvailable, (*Book).Issue, StatusIssued, nil},
		{"issue reserved", StatusReserved, (*Book).Issue, StatusIssued, nil},
		{"issue issued", StatusIssued, (*Book).Issue, StatusIssued, ErrUnavailable},
		{"issue lost", StatusLost, (*Book).Issue, StatusLost, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{ID: "B1", Status: tt.from}
			err := tt.action(b)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if b.Status != tt.want {
				t.Fatalf("status: want %s, got %s", tt.want, b.Status)
			}
		})
	}
}

func TestMakeAvailable(t *testing.T) {
	for _, from := range []BookStatus{StatusAvailable, StatusIssued, StatusReserved} {
		b := &Book{Status: from}
		b.MakeAvailable()
		if b.Status != StatusAvailable {
			t.Fatalf("from %s: got %s", from, b.Status)
		}
	}

	lost := &Book{Status: StatusLost}
	lost.MakeAvailable()
	if lost.Status != StatusLost {
		t.Fatalf("lost book came back as %s", lost.Status)
	}
}

func TestMarkLostIsTerminal(t *testing.T) {
	b := &Book{ID: "B1", Status: StatusIssued}
	b.MarkLost()
	if b.IsAvailable() || b.CanIssue() {
		t.Fatalf("lost book should not be available or issuable")
	}
	if err := b.Reserve(); err == nil {
		t.Fatalf("expected reserve of a lost book to fail")
	}
}
