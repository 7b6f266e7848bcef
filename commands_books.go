package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
)

func (a *app) bookCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "book",
		Short: "Manage and search the catalog",
	}
	c.AddCommand(a.bookAddCmd(), a.bookRemoveCmd(), a.bookListCmd(), a.bookSearchCmd(), a.bookQueueCmd())
	return c
}

func (a *app) bookAddCmd() *cobra.Command {
	var in library.NewBook
	var employee string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog (librarian)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Title) == "" {
				return fmt.Errorf("--id and --title are required")
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				if err := a.authenticateLibrarian(mgr, employee); err != nil {
					return err
				}
				id, err := mgr.AddBook(in)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]string{"book_id": id})
				}
				a.printf("Added book %s: %s\n", id, in.Title)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ID, "id", "", "Book id (unique)")
	f.StringVar(&in.Title, "title", "", "Title")
	f.StringVar(&in.ISBN, "isbn", "", "ISBN")
	f.StringVar(&in.AuthorName, "author", "", "Author name")
	f.StringVar(&in.AuthorBio, "author-bio", "", "Author bio")
	f.StringVar(&in.PublisherName, "publisher", "", "Publisher name")
	f.StringVar(&in.PublisherAddress, "publisher-address", "", "Publisher address")
	f.StringVar(&employee, "employee", "", "Librarian employee id")
	return cmd
}

func (a *app) bookRemoveCmd() *cobra.Command {
	var employee string

	cmd := &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book from the catalog (librarian)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				if err := a.authenticateLibrarian(mgr, employee); err != nil {
					return err
				}
				if err := mgr.RemoveBook(args[0]); err != nil {
					return err
				}
				a.printf("Removed book %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "Librarian employee id")
	return cmd
}

func (a *app) bookListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				return a.printBooks(mgr.ListBooks())
			})
		},
	}
}

func (a *app) bookSearchCmd() *cobra.Command {
	var title, author, isbn string
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search by --title, --author or --isbn",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := 0
			for _, name := range []string{"title", "author", "isbn"} {
				if cmd.Flags().Changed(name) {
					set++
				}
			}
			if set != 1 {
				return fmt.Errorf("give exactly one of --title, --author, --isbn")
			}

			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				switch {
				case cmd.Flags().Changed("isbn"):
					b, err := mgr.SearchByISBN(isbn)
					if err != nil {
						return err
					}
					return a.printBooks([]library.Book{b})
				case cmd.Flags().Changed("author"):
					return a.printBooks(mgr.SearchByAuthor(author, !caseSensitive))
				default:
					return a.printBooks(mgr.SearchByTitle(title, !caseSensitive))
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "Title substring")
	f.StringVar(&author, "author", "", "Author name substring")
	f.StringVar(&isbn, "isbn", "", "Exact ISBN")
	f.BoolVar(&caseSensitive, "case-sensitive", false, "Match case exactly")
	return cmd
}

func (a *app) bookQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue <book-id>",
		Short: "Show the reservation history of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				book, err := mgr.Book(args[0])
				if err != nil {
					return err
				}
				queue := mgr.ReservationQueue(book.ID)
				if a.jsonOut {
					return a.printJSON(queue)
				}

				a.printf("Reservations for '%s' (%s):\n", book.Title, book.Status)
				if len(queue) == 0 {
					a.printf("No reservations for this book.\n")
					return nil
				}
				a.printf("%-5s %-12s %-12s %-10s\n", "Seq", "Member", "Date", "Status")
				a.printf("%s\n", strings.Repeat("-", 45))
				for _, r := range queue {
					a.printf("%-5d %-12s %-12s %-10s\n", r.Seq, r.MembershipID, r.ReservationDate.Format("2006-01-02"), r.Status)
				}
				return nil
			})
		},
	}
}

func (a *app) printBooks(books []library.Book) error {
	if a.jsonOut {
		return a.printJSON(books)
	}
	if len(books) == 0 {
		a.printf("No books found.\n")
		return nil
	}

	a.printf("%-8s %-30s %-15s %-25s %-10s\n", "ID", "Title", "ISBN", "Author", "Status")
	a.printf("%s\n", strings.Repeat("-", 92))
	for _, b := range books {
		a.printf("%-8s %-30s %-15s %-25s %-10s\n",
			b.ID,
			truncateString(b.Title, 30),
			b.ISBN,
			truncateString(strings.Join(b.Authors, ", "), 25),
			b.Status)
	}
	return nil
}
