package main

import (
	"fmt"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/spf13/cobra"
)

func newDBInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dbinfo",
		Short: "Show database time, timezone and row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dbInfo()
		},
	}
}

func (a *app) dbInfo() error {
	dialect := a.db.Dialector.Name()
	a.printf("Driver: %s\n", dialect)

	if dialect == "postgres" {
		var dbTime time.Time
		if err := a.db.Raw("SELECT NOW()").Scan(&dbTime).Error; err != nil {
			return fmt.Errorf("failed to read database time: %w", err)
		}
		var tz string
		if err := a.db.Raw("SHOW timezone").Scan(&tz).Error; err != nil {
			return fmt.Errorf("failed to read database timezone: %w", err)
		}
		a.printf("Database time: %s\n", dbTime.Format(time.RFC3339))
		a.printf("Database timezone: %s\n", tz)
	} else {
		var dbTime string
		if err := a.db.Raw("SELECT datetime('now')").Scan(&dbTime).Error; err != nil {
			return fmt.Errorf("failed to read database time: %w", err)
		}
		a.printf("Database time (UTC): %s\n", dbTime)
	}
	a.printf("Server time: %s\n", time.Now().Format(time.RFC3339))

	counts := []struct {
		name  string
		model interface{}
	}{
		{"users", &models.User{}},
		{"books", &models.Book{}},
		{"borrows", &models.Borrow{}},
	}
	for _, c := range counts {
		var n int64
		if err := a.db.Model(c.model).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count %s: %w", c.name, err)
		}
		a.printf("%-8s %d\n", c.name+":", n)
	}
	return nil
}
