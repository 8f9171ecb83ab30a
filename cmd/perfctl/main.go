package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"perfeval/cmd/perfctl/commands"
	"perfeval/internal/platform/logger"
)

// Run parses args and executes the selected command.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("perfctl", "Performance evaluation tooling.")
	app.Writer(stdout)
	app.ErrorWriter(stderr)
	rootCmd := commands.NewRootCommand(app)

	scoreCmd := commands.NewScoreCommand(rootCmd, app)
	profilesCmd := commands.NewProfilesCommand(rootCmd, app)
	migrateCmd := commands.NewMigrateCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		scoreCmd.Name():    scoreCmd,
		profilesCmd.Name(): profilesCmd,
		migrateCmd.Name():  migrateCmd,
	}

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	level := "warn"
	if rootCmd.Debug {
		level = "debug"
	}
	log := logger.NewWriter(level, rootCmd.LogEncoding, stderr)
	defer func() { _ = log.Sync() }()
	rootCmd.Logger = log

	var g run.Group
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(func() error {
			<-signalCtx.Done()
			log.Debug("termination signal received")
			return nil
		}, func(error) {
			signalCancel()
		})
	}
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(func() error {
			if err := cmds[cmdName].Run(ctx); err != nil {
				return fmt.Errorf("%q command failed: %w", cmdName, err)
			}
			return nil
		}, func(error) {
			cancel()
		})
	}

	return g.Run()
}

func main() {
	if err := Run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

