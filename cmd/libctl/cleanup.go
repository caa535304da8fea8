package main

import (
	"fmt"

	"github.com/Cherishclears/library-backend/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newCleanupCmd(a *app) *cobra.Command {
	var includeUsers bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all borrows and books, optionally users too",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cleanup(includeUsers)
		},
	}
	cmd.Flags().BoolVar(&includeUsers, "users", false, "also delete every user account")
	return cmd
}

func (a *app) cleanup(includeUsers bool) error {
	a.printf("🧹 Starting cleanup...\n")

	all := a.db.Session(&gorm.Session{AllowGlobalUpdate: true})

	// Borrows first, they reference books and users
	targets := []struct {
		name  string
		model interface{}
	}{
		{"borrows", &models.Borrow{}},
		{"books", &models.Book{}},
	}
	if includeUsers {
		targets = append(targets, struct {
			name  string
			model interface{}
		}{"users", &models.User{}})
	}

	for _, target := range targets {
		result := all.Delete(target.model)
		if result.Error != nil {
			return fmt.Errorf("failed to delete %s: %w", target.name, result.Error)
		}
		a.printf("✅ Deleted %d %s\n", result.RowsAffected, target.name)
	}
	return nil
}
