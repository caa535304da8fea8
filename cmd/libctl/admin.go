package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Cherishclears/library-backend/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newCreateAdminCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := a.readPassword("Admin password: ")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = p
			}

			user, err := services.NewUserService(a.db).EnsureAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			a.printf("✅ %s (id %d) is an admin\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (prompted when empty)")
	return cmd
}

// readPassword masks input on a terminal and falls back to a plain line otherwise
func (a *app) readPassword(prompt string) (string, error) {
	a.printf("%s", prompt)
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		a.printf("\n")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
