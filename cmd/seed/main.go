package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-circulation/library"
	"library-circulation/logging"
)

//go:embed default_seed.yaml
var defaultSeed []byte

type seedFile struct {
	Library struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
	} `yaml:"library"`
	Authors    []library.Author    `yaml:"authors"`
	Publishers []library.Publisher `yaml:"publishers"`
	Books      []struct {
		ID        string `yaml:"id"`
		Title     string `yaml:"title"`
		ISBN      string `yaml:"isbn"`
		Author    string `yaml:"author"`
		Publisher string `yaml:"publisher"`
	} `yaml:"books"`
	Members []struct {
		UserID       string `yaml:"user_id"`
		Name         string `yaml:"name"`
		Email        string `yaml:"email"`
		Phone        string `yaml:"phone"`
		MembershipID string `yaml:"membership_id"`
	} `yaml:"members"`
	Librarians []struct {
		UserID     string `yaml:"user_id"`
		Name       string `yaml:"name"`
		Email      string `yaml:"email"`
		Phone      string `yaml:"phone"`
		EmployeeID string `yaml:"employee_id"`
		Password   string `yaml:"password"`
	} `yaml:"librarians"`
}

func main() {
	if err := newSeedCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newSeedCmd(out io.Writer) *cobra.Command {
	var dbPath, seedPath string

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Create a fresh library database from a YAML seed file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			raw := defaultSeed
			if seedPath != "" {
				b, err := os.ReadFile(seedPath)
				if err != nil {
					return fmt.Errorf("read seed file: %w", err)
				}
				raw = b
			}
			var seed seedFile
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			return run(out, dbPath, seed)
		},
	}
	cmd.SetOut(out)

	cmd.Flags().StringVar(&dbPath, "db", "library.db", "SQLite database to (re)create")
	cmd.Flags().StringVar(&seedPath, "file", "", "Seed YAML (defaults to the built-in sample library)")
	return cmd
}

func run(out io.Writer, dbPath string, seed seedFile) error {
	// Clean up any existing database files
	fmt.Fprintln(out, "Cleaning up existing database files...")
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", file, err)
		}
	}

	store, err := library.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	lib := library.NewLibrary(seed.Library.Name, seed.Library.Address)
	mgr := library.NewLibraryManager(lib, library.WithLogger(logging.Discard()))

	bios := make(map[string]string, len(seed.Authors))
	for _, a := range seed.Authors {
		bios[a.Name] = a.Bio
	}
	addresses := make(map[string]string, len(seed.Publishers))
	for _, p := range seed.Publishers {
		addresses[p.Name] = p.Address
	}

	successCount, errorCount := 0, 0
	for _, b := range seed.Books {
		fmt.Fprintf(out, "Importing: %s by %s... ", b.Title, b.Author)
		_, err := mgr.AddBook(library.NewBook{
			ID:               b.ID,
			Title:            b.Title,
			ISBN:             b.ISBN,
			AuthorName:       b.Author,
			AuthorBio:        bios[b.Author],
			PublisherName:    b.Publisher,
			PublisherAddress: addresses[b.Publisher],
		})
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %s)\n", b.ID)
		successCount++
	}

	for _, m := range seed.Members {
		if err := mgr.RegisterMember(m.UserID, m.Name, m.Email, m.Phone, m.MembershipID); err != nil {
			fmt.Fprintf(out, "Member %s: ERROR - %v\n", m.MembershipID, err)
			errorCount++
		}
	}
	for _, l := range seed.Librarians {
		if err := mgr.AddLibrarian(l.UserID, l.Name, l.Email, l.Phone, l.EmployeeID, l.Password); err != nil {
			fmt.Fprintf(out, "Librarian %s: ERROR - %v\n", l.EmployeeID, err)
			errorCount++
		}
	}

	if err := store.Save(lib.Snapshot()); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Members: %d, librarians: %d\n", len(mgr.ListMembers()), lib.LibrarianCount())
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Fprintln(out, "\nImported books:")
		fmt.Fprintf(out, "%-6s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Fprintln(out, strings.Repeat("-", 88))
		for _, book := range mgr.ListBooks() {
			fmt.Fprintf(out, "%-6s %-50s %-30s\n", book.ID, truncateString(book.Title, 50), truncateString(strings.Join(book.Authors, ", "), 30))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
