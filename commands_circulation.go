package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"library-circulation/library"
)

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <book-id> <membership-id>",
		Short: "Lend a book to a member for 14 days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				loanID, err := mgr.Borrow(args[0], args[1], today)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]string{"loan_id": loanID})
				}
				book, _ := mgr.Book(args[0])
				a.printf("Book '%s' issued to %s, loan %s, due %s\n",
					book.Title, args[1], loanID, today.AddDate(0, 0, library.LoanPeriodDays).Format("2006-01-02"))
				return nil
			})
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <book-id> <membership-id>",
		Short: "Return a borrowed book and charge any overdue fine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				fine, err := mgr.ReturnBook(args[0], args[1], today)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]any{"fine_charged": fine})
				}
				if fine.IsPositive() {
					a.printf("Book returned late. Fine incurred: $%s\n", fine.StringFixed(2))
				} else {
					a.printf("Book returned on time.\n")
				}
				return nil
			})
		},
	}
}

func (a *app) reserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <book-id> <membership-id>",
		Short: "Reserve an available book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				id, err := mgr.Reserve(args[0], args[1], today)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]any{
						"reservation_id": id,
						"position":       mgr.QueuePosition(args[0], args[1]),
					})
				}
				a.printf("Book %s reserved for %s (reservation %s)\n", args[0], args[1], id)
				return nil
			})
		},
	}
}

func (a *app) cancelReservationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-reservation <book-id> <membership-id>",
		Short: "Cancel a member's active reservation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				if err := mgr.CancelReservationFor(args[0], args[1]); err != nil {
					return err
				}
				a.printf("Reservation for book %s cancelled for %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func (a *app) payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <membership-id> <amount>",
		Short: "Pay part or all of a member's fine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return &library.OpError{Op: "cli.pay", Kind: library.KindInvalidAmount, Msg: fmt.Sprintf("%q is not a number", args[1])}
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				balance, err := mgr.PayFine(args[0], amount)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]any{"balance": balance})
				}
				a.printf("Paid $%s. Remaining fine: $%s\n", amount.StringFixed(2), balance.StringFixed(2))
				return nil
			})
		},
	}
}

func (a *app) loansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loans <membership-id>",
		Short: "List a member's loans with their current fines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				loans, err := mgr.ListLoans(args[0], today)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(loans)
				}
				if len(loans) == 0 {
					a.printf("No loans for %s.\n", args[0])
					return nil
				}
				a.printf("%-36s %-30s %-12s %-9s %s\n", "Loan", "Title", "Due", "Returned", "Fine")
				a.printf("%s\n", strings.Repeat("-", 100))
				for _, l := range loans {
					a.printf("%-36s %-30s %-12s %-9t %s\n",
						l.LoanID, truncateString(l.BookTitle, 30), l.DueDate.Format("2006-01-02"), l.Returned, l.CurrentFine.StringFixed(2))
				}
				return nil
			})
		},
	}
}

func (a *app) fineCmd() *cobra.Command {
	var employee string

	cmd := &cobra.Command{
		Use:   "fine <loan-id>",
		Short: "Calculate the fine a loan owes as of --date (librarian)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				if err := a.authenticateLibrarian(mgr, employee); err != nil {
					return err
				}
				fine, err := mgr.LoanFine(args[0], today)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(map[string]any{"loan_id": args[0], "fine": fine})
				}
				a.printf("Fine for loan %s as of %s: $%s\n", args[0], today.Format("2006-01-02"), fine.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "Librarian employee id")
	return cmd
}

func (a *app) remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due-date reminders for loans due soon or overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				reminders := mgr.SendDueReminders(today)
				if a.jsonOut {
					return a.printJSON(reminders)
				}
				for _, r := range reminders {
					a.printf("%s: %s\n", r.RecipientID, r.Message)
				}
				a.printf("%d reminder(s) sent.\n", len(reminders))
				return nil
			})
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole library state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				if out == "" {
					return mgr.Library().ExportJSON(a.env.stdout)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := mgr.Library().ExportJSON(f); err != nil {
					return err
				}
				a.printf("Exported library to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to stdout)")
	return cmd
}
