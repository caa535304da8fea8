package main

import (
	"fmt"
	"os"

	"github.com/Cherishclears/library-backend/services"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func newOverdueCmd(a *app) *cobra.Command {
	var mark bool

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue borrows, or mark them OVERDUE with --mark",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, closeBus := a.eventBus(mark)
			defer closeBus()

			svc := services.NewBorrowService(a.db, events, a.loanDays())
			if mark {
				n, err := svc.MarkOverdue(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("⏰ Marked %d borrows overdue\n", n)
			}

			borrows, err := svc.ListOverdue(cmd.Context())
			if err != nil {
				return err
			}
			if len(borrows) == 0 {
				a.printf("No overdue borrows\n")
				return nil
			}
			a.printf("%-6s %-16s %-40s %-10s %-10s\n", "ID", "Reader", "Book", "Due", "Status")
			for _, b := range borrows {
				reader, title := "?", "?"
				if b.User != nil {
					reader = b.User.Username
				}
				if b.Book != nil {
					title = b.Book.Title
				}
				a.printf("%-6d %-16s %-40s %-10s %-10s\n", b.ID, reader, truncate(title, 40), b.DueDate, b.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mark, "mark", false, "move APPROVED borrows past their due date to OVERDUE")
	return cmd
}

// eventBus connects to NATS_URL so a running server sees the overdue events
func (a *app) eventBus(publish bool) (*services.EventBus, func()) {
	url := os.Getenv("NATS_URL")
	if !publish || url == "" {
		return nil, func() {}
	}
	nc, err := nats.Connect(url, nats.Name("libctl"))
	if err != nil {
		a.printf("⚠️  NATS unavailable at %s, events will not be published: %v\n", url, err)
		return nil, func() {}
	}
	return services.NewEventBus(nc), func() {
		if err := nc.Drain(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to drain NATS connection: %v\n", err)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
