// Command libctl runs maintenance tasks against the library database.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Cherishclears/library-backend/config"
	"github.com/Cherishclears/library-backend/database"
	"github.com/Cherishclears/library-backend/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app is shared by every subcommand. Tests preset db so nothing connects.
type app struct {
	cfg config.Config
	db  *gorm.DB
	out io.Writer
	in  io.Reader
}

func main() {
	a := &app{out: os.Stdout, in: os.Stdin}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	database.Close()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Library backend maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
	}
	root.SetOut(a.out)
	root.SetIn(a.in)

	root.AddCommand(
		newSeedCmd(a),
		newCleanupCmd(a),
		newCreateAdminCmd(a),
		newOverdueCmd(a),
		newDBInfoCmd(a),
	)
	return root
}

func (a *app) connect() error {
	if a.db != nil {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(a.out, "No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Setup(cfg.Env, cfg.LogLevel)

	if err := database.Connect(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cfg = cfg
	a.db = database.DB
	return nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
