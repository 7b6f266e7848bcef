package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
)

func (a *app) memberCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "member",
		Short: "Register and inspect members",
	}
	c.AddCommand(a.memberRegisterCmd(), a.memberShowCmd(), a.memberListCmd())
	return c
}

func (a *app) memberRegisterCmd() *cobra.Command {
	var userID, name, email, phone, membershipID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(membershipID) == "" || strings.TrimSpace(name) == "" {
				return fmt.Errorf("--membership-id and --name are required")
			}
			if userID == "" {
				userID = membershipID
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				if err := mgr.RegisterMember(userID, name, email, phone, membershipID); err != nil {
					return err
				}
				a.printf("Registered member '%s' with membership id %s\n", name, membershipID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&userID, "user-id", "", "User id (defaults to the membership id)")
	f.StringVar(&name, "name", "", "Name")
	f.StringVar(&email, "email", "", "Email")
	f.StringVar(&phone, "phone", "", "Phone")
	f.StringVar(&membershipID, "membership-id", "", "Membership id (unique)")
	return cmd
}

func (a *app) memberShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <membership-id>",
		Short: "Show a member's balance, open loans and reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				m, err := mgr.Member(args[0])
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(m)
				}
				a.printf("%s (%s)\n", m.Name, m.MembershipID)
				a.printf("Email: %s  Phone: %s\n", m.Email, m.Phone)
				a.printf("Outstanding fine: $%s\n", m.FineAmount.StringFixed(2))
				a.printf("Open loans: %d\n", m.OpenLoans)
				for _, r := range m.Reservations {
					a.printf("Reservation %s on book %s: %s\n", r.ID, r.BookID, r.Status)
				}
				return nil
			})
		},
	}
}

func (a *app) memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(cmd, false, func(mgr *library.LibraryManager) error {
				members := mgr.ListMembers()
				if a.jsonOut {
					return a.printJSON(members)
				}
				if len(members) == 0 {
					a.printf("No members registered.\n")
					return nil
				}
				a.printf("%-12s %-30s %-10s %-10s\n", "Membership", "Name", "Loans", "Fine")
				a.printf("%s\n", strings.Repeat("-", 65))
				for _, m := range members {
					a.printf("%-12s %-30s %-10d %-10s\n", m.MembershipID, truncateString(m.Name, 30), m.OpenLoans, m.FineAmount.StringFixed(2))
				}
				return nil
			})
		},
	}
}

func (a *app) librarianCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "librarian",
		Short: "Manage staff accounts",
	}
	c.AddCommand(a.librarianAddCmd())
	return c
}

func (a *app) librarianAddCmd() *cobra.Command {
	var userID, name, email, phone, employeeID, as string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a librarian; once one exists, another librarian must authorize with --as",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(employeeID) == "" || strings.TrimSpace(name) == "" {
				return fmt.Errorf("--employee-id and --name are required")
			}
			if userID == "" {
				userID = employeeID
			}
			return a.withManager(cmd, true, func(mgr *library.LibraryManager) error {
				if mgr.Library().LibrarianCount() > 0 {
					if err := a.authenticateLibrarian(mgr, as); err != nil {
						return err
					}
				}
				password, err := a.env.readPassword(fmt.Sprintf("Enter password for %s: ", name))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				if strings.TrimSpace(password) == "" {
					return fmt.Errorf("password cannot be empty")
				}
				if err := mgr.AddLibrarian(userID, name, email, phone, employeeID, password); err != nil {
					return err
				}
				a.printf("Added librarian '%s' with employee id %s\n", name, employeeID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&userID, "user-id", "", "User id (defaults to the employee id)")
	f.StringVar(&name, "name", "", "Name")
	f.StringVar(&email, "email", "", "Email")
	f.StringVar(&phone, "phone", "", "Phone")
	f.StringVar(&employeeID, "employee-id", "", "Employee id (unique)")
	f.StringVar(&as, "as", "", "Employee id of the authorizing librarian")
	return cmd
}
