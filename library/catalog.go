package library

import (
	"strings"
)

// Catalog is the in-memory book index. Searches return copies; the live books
// are only reachable through the LibraryManager.
type Catalog struct {
	books      []*Book
	byID       map[string]*Book
	authors    map[string]Author
	publishers map[string]Publisher
}

func NewCatalog() *Catalog {
	return &Catalog{
		byID:       make(map[string]*Book),
		authors:    make(map[string]Author),
		publishers: make(map[string]Publisher),
	}
}

// Add appends book to the catalog. Book ids are unique; ISBNs are not.
func (c *Catalog) Add(book *Book) error {
	if _, ok := c.byID[book.ID]; ok {
		return &OpError{Op: "catalog.add", Kind: KindDuplicateID, ID: book.ID, Msg: "book id already in catalog"}
	}
	if book.Status == "" {
		book.Status = StatusAvailable
	}
	c.books = append(c.books, book)
	c.byID[book.ID] = book
	return nil
}

// AddAuthor records or updates author details. An empty bio keeps a known one.
func (c *Catalog) AddAuthor(a Author) {
	if a.Name == "" {
		return
	}
	if old, ok := c.authors[a.Name]; ok && a.Bio == "" {
		a.Bio = old.Bio
	}
	c.authors[a.Name] = a
}

// AddPublisher records or updates publisher details.
func (c *Catalog) AddPublisher(p Publisher) {
	if p.Name == "" {
		return
	}
	if old, ok := c.publishers[p.Name]; ok && p.Address == "" {
		p.Address = old.Address
	}
	c.publishers[p.Name] = p
}

// Remove deletes the book with id.
func (c *Catalog) Remove(id string) error {
	if _, ok := c.byID[id]; !ok {
		return notFound("catalog.remove", id, "no such book")
	}
	delete(c.byID, id)
	for i, b := range c.books {
		if b.ID == id {
			c.books = append(c.books[:i], c.books[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Catalog) get(id string) (*Book, error) {
	b, ok := c.byID[id]
	if !ok {
		return nil, notFound("catalog.get", id, "no such book")
	}
	return b, nil
}

// Get returns a copy of the book with id.
func (c *Catalog) Get(id string) (Book, error) {
	b, err := c.get(id)
	if err != nil {
		return Book{}, err
	}
	return b.clone(), nil
}

// Len is the number of books in the catalog.
func (c *Catalog) Len() int { return len(c.books) }

// All returns copies of every book in insertion order.
func (c *Catalog) All() []Book {
	return c.filter(func(*Book) bool { return true })
}

// SearchByTitle matches title substrings. An empty substring matches every book.
func (c *Catalog) SearchByTitle(sub string, caseInsensitive bool) []Book {
	return c.filter(func(b *Book) bool {
		return containsFold(b.Title, sub, caseInsensitive)
	})
}

// SearchByAuthor matches books with any author name containing sub.
func (c *Catalog) SearchByAuthor(sub string, caseInsensitive bool) []Book {
	return c.filter(func(b *Book) bool {
		for _, a := range b.Authors {
			if containsFold(a, sub, caseInsensitive) {
				return true
			}
		}
		return false
	})
}

// SearchByISBN returns the first book whose ISBN equals isbn exactly.
func (c *Catalog) SearchByISBN(isbn string) (Book, error) {
	for _, b := range c.books {
		if b.ISBN == isbn {
			return b.clone(), nil
		}
	}
	return Book{}, notFound("catalog.search_isbn", isbn, "no book with this isbn")
}

// BooksByAuthor is the reverse author index: books listing exactly name.
func (c *Catalog) BooksByAuthor(name string) []Book {
	return c.filter(func(b *Book) bool {
		for _, a := range b.Authors {
			if a == name {
				return true
			}
		}
		return false
	})
}

// BooksByPublisher is the reverse publisher index.
func (c *Catalog) BooksByPublisher(name string) []Book {
	return c.filter(func(b *Book) bool { return b.Publisher == name })
}

// Author resolves an author name.
func (c *Catalog) Author(name string) (Author, bool) {
	a, ok := c.authors[name]
	return a, ok
}

// Publisher resolves a publisher name.
func (c *Catalog) Publisher(name string) (Publisher, bool) {
	p, ok := c.publishers[name]
	return p, ok
}

func (c *Catalog) filter(keep func(*Book) bool) []Book {
	out := make([]Book, 0)
	for _, b := range c.books {
		if keep(b) {
			out = append(out, b.clone())
		}
	}
	return out
}

func containsFold(s, sub string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	return strings.Contains(s, sub)
}
