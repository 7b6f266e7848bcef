package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store persists library snapshots in SQLite so the CLI keeps state between
// runs. Every Save replaces the previous snapshot in one transaction.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func OpenStore(dbPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the DB.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            title TEXT NOT NULL,
            isbn TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS book_authors (
            book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            author_name TEXT NOT NULL,
            PRIMARY KEY (book_id, position)
        );`,
		`CREATE TABLE IF NOT EXISTS authors (
            name TEXT PRIMARY KEY,
            bio TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS publishers (
            name TEXT PRIMARY KEY,
            address TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            membership_id TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            fine_amount TEXT NOT NULL DEFAULT '0'
        );`,
		`CREATE TABLE IF NOT EXISTS librarians (
            employee_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            book_id TEXT NOT NULL,
            book_title TEXT NOT NULL,
            membership_id TEXT NOT NULL REFERENCES members(membership_id),
            issue_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT
        );`,
		// At most one open loan per book.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open_book ON loans(book_id) WHERE return_date IS NULL;`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id TEXT PRIMARY KEY,
            seq INTEGER NOT NULL,
            book_id TEXT NOT NULL,
            membership_id TEXT NOT NULL REFERENCES members(membership_id),
            reservation_date TEXT NOT NULL,
            status TEXT NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// Save replaces the stored snapshot with data.
func (s *Store) Save(data LibraryData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"loans", "reservations", "book_authors", "books", "authors", "publishers", "members", "librarians"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	meta := map[string]string{
		"library_name":    data.Name,
		"library_address": data.Address,
		"saved_at":        time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	for i, b := range data.Books {
		if _, err := tx.Exec(`INSERT INTO books(id,seq,title,isbn,publisher,status) VALUES(?,?,?,?,?,?)`,
			b.ID, i, b.Title, b.ISBN, b.Publisher, string(b.Status)); err != nil {
			return fmt.Errorf("save book %s: %w", b.ID, err)
		}
		for pos, name := range b.Authors {
			if _, err := tx.Exec(`INSERT INTO book_authors(book_id,position,author_name) VALUES(?,?,?)`, b.ID, pos, name); err != nil {
				return fmt.Errorf("save book author: %w", err)
			}
		}
	}
	for _, a := range data.Authors {
		if _, err := tx.Exec(`INSERT INTO authors(name,bio) VALUES(?,?)`, a.Name, a.Bio); err != nil {
			return fmt.Errorf("save author: %w", err)
		}
	}
	for _, p := range data.Publishers {
		if _, err := tx.Exec(`INSERT INTO publishers(name,address) VALUES(?,?)`, p.Name, p.Address); err != nil {
			return fmt.Errorf("save publisher: %w", err)
		}
	}
	for i, m := range data.Members {
		if _, err := tx.Exec(`INSERT INTO members(membership_id,seq,user_id,name,email,phone,fine_amount) VALUES(?,?,?,?,?,?,?)`,
			m.MembershipID, i, m.UserID, m.Name, m.Email, m.Phone, m.FineAmount.String()); err != nil {
			return fmt.Errorf("save member %s: %w", m.MembershipID, err)
		}
	}
	for _, lb := range data.Librarians {
		if _, err := tx.Exec(`INSERT INTO librarians(employee_id,user_id,name,email,phone,password_hash) VALUES(?,?,?,?,?,?)`,
			lb.EmployeeID, lb.UserID, lb.Name, lb.Email, lb.Phone, lb.PasswordHash); err != nil {
			return fmt.Errorf("save librarian %s: %w", lb.EmployeeID, err)
		}
	}
	for _, l := range data.Loans {
		var ret sql.NullString
		if l.ReturnDate != nil {
			ret = sql.NullString{String: l.ReturnDate.Format(time.DateOnly), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO loans(id,book_id,book_title,membership_id,issue_date,due_date,return_date) VALUES(?,?,?,?,?,?,?)`,
			l.ID, l.BookID, l.BookTitle, l.MembershipID,
			l.IssueDate.Format(time.DateOnly), l.DueDate.Format(time.DateOnly), ret); err != nil {
			return fmt.Errorf("save loan %s: %w", l.ID, err)
		}
	}
	for _, r := range data.Reservations {
		if _, err := tx.Exec(`INSERT INTO reservations(id,seq,book_id,membership_id,reservation_date,status) VALUES(?,?,?,?,?,?)`,
			r.ID, r.Seq, r.BookID, r.MembershipID, r.ReservationDate.Format(time.DateOnly), string(r.Status)); err != nil {
			return fmt.Errorf("save reservation %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// Load reads the stored snapshot. ok is false when nothing was ever saved.
func (s *Store) Load() (data LibraryData, ok bool, err error) {
	var savedAt string
	err = s.db.QueryRow(`SELECT value FROM meta WHERE key='saved_at'`).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return LibraryData{}, false, nil
	}
	if err != nil {
		return LibraryData{}, false, err
	}

	_ = s.db.QueryRow(`SELECT value FROM meta WHERE key='library_name'`).Scan(&data.Name)
	_ = s.db.QueryRow(`SELECT value FROM meta WHERE key='library_address'`).Scan(&data.Address)

	if data.Books, err = s.loadBooks(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Authors, err = s.loadAuthors(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Publishers, err = s.loadPublishers(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Members, err = s.loadMembers(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Librarians, err = s.loadLibrarians(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Loans, err = s.loadLoans(); err != nil {
		return LibraryData{}, false, err
	}
	if data.Reservations, err = s.loadReservations(); err != nil {
		return LibraryData{}, false, err
	}
	return data, true, nil
}

func (s *Store) loadBooks() ([]Book, error) {
	rows, err := s.db.Query(`SELECT id,title,isbn,publisher,status FROM books ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var status string
		if err := rows.Scan(&b.ID, &b.Title, &b.ISBN, &b.Publisher, &status); err != nil {
			return nil, err
		}
		b.Status = BookStatus(status)
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range books {
		if books[i].Authors, err = s.loadBookAuthors(books[i].ID); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (s *Store) loadBookAuthors(bookID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT author_name FROM book_authors WHERE book_id=? ORDER BY position`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Store) loadAuthors() ([]Author, error) {
	rows, err := s.db.Query(`SELECT name,bio FROM authors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.Name, &a.Bio); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) loadPublishers() ([]Publisher, error) {
	rows, err := s.db.Query(`SELECT name,address FROM publishers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Publisher
	for rows.Next() {
		var p Publisher
		if err := rows.Scan(&p.Name, &p.Address); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadMembers() ([]MemberData, error) {
	rows, err := s.db.Query(`SELECT membership_id,user_id,name,email,phone,fine_amount FROM members ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberData
	for rows.Next() {
		var m MemberData
		var fine string
		if err := rows.Scan(&m.MembershipID, &m.UserID, &m.Name, &m.Email, &m.Phone, &fine); err != nil {
			return nil, err
		}
		if m.FineAmount, err = decimal.NewFromString(fine); err != nil {
			return nil, fmt.Errorf("member %s fine: %w", m.MembershipID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) loadLibrarians() ([]LibrarianData, error) {
	rows, err := s.db.Query(`SELECT employee_id,user_id,name,email,phone,password_hash FROM librarians ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LibrarianData
	for rows.Next() {
		var lb LibrarianData
		if err := rows.Scan(&lb.EmployeeID, &lb.UserID, &lb.Name, &lb.Email, &lb.Phone, &lb.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

func (s *Store) loadLoans() ([]Loan, error) {
	rows, err := s.db.Query(`SELECT id,book_id,book_title,membership_id,issue_date,due_date,return_date FROM loans ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		var l Loan
		var issue, due string
		var ret sql.NullString
		if err := rows.Scan(&l.ID, &l.BookID, &l.BookTitle, &l.MembershipID, &issue, &due, &ret); err != nil {
			return nil, err
		}
		if l.IssueDate, err = parseDay(issue); err != nil {
			return nil, err
		}
		if l.DueDate, err = parseDay(due); err != nil {
			return nil, err
		}
		if ret.Valid {
			d, err := parseDay(ret.String)
			if err != nil {
				return nil, err
			}
			l.ReturnDate = &d
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) loadReservations() ([]Reservation, error) {
	rows, err := s.db.Query(`SELECT id,seq,book_id,membership_id,reservation_date,status FROM reservations ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		var date, status string
		if err := rows.Scan(&r.ID, &r.Seq, &r.BookID, &r.MembershipID, &date, &status); err != nil {
			return nil, err
		}
		if r.ReservationDate, err = parseDay(date); err != nil {
			return nil, err
		}
		r.Status = ReservationStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
