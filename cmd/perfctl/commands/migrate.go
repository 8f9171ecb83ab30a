package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"perfeval/internal/platform/db"
)

type MigrateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	databaseURL string
	down        bool
}

// NewMigrateCommand returns the schema migration command.
func NewMigrateCommand(rootCmd *RootCommand, app *kingpin.Application) *MigrateCommand {
	c := &MigrateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("migrate", "Apply (or revert) the embedded database migrations.")
	c.Cmd.Flag("database-url", "Postgres connection URL.").Envar("DATABASE_URL").Required().StringVar(&c.databaseURL)
	c.Cmd.Flag("down", "Revert every migration instead of applying.").BoolVar(&c.down)

	return c
}

func (c MigrateCommand) Name() string { return c.Cmd.FullCommand() }

func (c MigrateCommand) Run(_ context.Context) error {
	sqlDB, err := db.Open(c.databaseURL)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB, c.rootCmd.Logger)
	if err != nil {
		return err
	}
	if c.down {
		return m.Down()
	}
	return m.Up()
}
