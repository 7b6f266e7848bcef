package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-circulation/config"
	"library-circulation/library"
	"library-circulation/logging"
)

// env is everything the commands touch outside the library itself.
type env struct {
	stdout       io.Writer
	stderr       io.Writer
	now          func() time.Time
	readPassword func(prompt string) (string, error)
}

func defaultEnv() *env {
	return &env{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		now:          time.Now,
		readPassword: readPassword,
	}
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func main() {
	e := defaultEnv()
	if err := newRootCmd(e).Execute(); err != nil {
		if kind := library.KindOf(err); kind != "" {
			fmt.Fprintf(e.stderr, "Error [%s]: %v\n", kind, err)
		} else {
			fmt.Fprintf(e.stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries the global flags into every command.
type app struct {
	env *env

	configPath string
	dbPath     string
	date       string
	jsonOut    bool
	debug      bool
}

func newRootCmd(e *env) *cobra.Command {
	a := &app{env: e}

	cmd := &cobra.Command{
		Use:           "library",
		Short:         "Lending-library circulation: books, members, loans, reservations and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&a.date, "date", "", "Business date as YYYY-MM-DD (defaults to today)")
	pf.BoolVar(&a.jsonOut, "json", false, "Print results as JSON")
	pf.BoolVar(&a.debug, "debug", false, "Debug logging")

	cmd.AddCommand(
		a.bookCmd(),
		a.memberCmd(),
		a.librarianCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.reserveCmd(),
		a.cancelReservationCmd(),
		a.payCmd(),
		a.loansCmd(),
		a.fineCmd(),
		a.remindCmd(),
		a.exportCmd(),
	)
	return cmd
}

// today resolves --date.
func (a *app) today() (time.Time, error) {
	if a.date == "" {
		return library.Day(a.env.now()), nil
	}
	t, err := time.Parse(time.DateOnly, a.date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", a.date)
	}
	return t, nil
}

// withManager loads config, logger and stored state, runs fn, and saves the
// state again when mutates is set and fn succeeded.
func (a *app) withManager(cmd *cobra.Command, mutates bool, fn func(mgr *library.LibraryManager) error) error {
	cfg, err := config.Load(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}

	log, cleanup, err := logging.Setup(logging.Config{
		Path:   cfg.Log.Path,
		Debug:  cfg.Log.Debug || a.debug,
		Stderr: a.env.stderr,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer func() { _ = cleanup() }()

	store, err := library.OpenStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	data, ok, err := store.Load()
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	lib := library.NewLibrary(cfg.Library.Name, cfg.Library.Address)
	if ok {
		if lib, err = library.RestoreLibrary(data); err != nil {
			return err
		}
	}

	mgr := library.NewLibraryManager(lib,
		library.WithLogger(log),
		library.WithMaxOpenLoans(cfg.Policy.MaxOpenLoans),
		library.WithReminderWindow(cfg.Policy.ReminderWindowDays),
	)

	if err := fn(mgr); err != nil {
		return err
	}
	if !mutates {
		return nil
	}
	if err := store.Save(lib.Snapshot()); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	log.Debug("store.saved", "path", cfg.Database.Path)
	return nil
}

// authenticateLibrarian prompts for and verifies a librarian's password.
func (a *app) authenticateLibrarian(mgr *library.LibraryManager, employeeID string) error {
	if employeeID == "" {
		return &library.OpError{Op: "cli.auth", Kind: library.KindUnauthorized, Msg: "--employee is required for librarian operations"}
	}
	password, err := a.env.readPassword("Password for employee " + employeeID + ": ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	_, err = mgr.AuthenticateLibrarian(employeeID, password)
	return err
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.env.stdout, string(b))
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.env.stdout, format, args...)
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
