package commands

import (
	"context"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"perfeval/internal/domain/scoring"
)

// Command is a perfctl subcommand.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand holds the global flags and I/O shared by every command.
type RootCommand struct {
	Debug        bool
	LogEncoding  string
	ProfilesFile string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug logging.").BoolVar(&c.Debug)
	app.Flag("log-encoding", "Log encoding.").Default("console").EnumVar(&c.LogEncoding, "console", "json")
	app.Flag("profiles", "Scoring profiles YAML file.").Envar("SCORING_PROFILES_FILE").StringVar(&c.ProfilesFile)

	return c
}

// Registry returns the built-in profiles, extended by the profiles file
// when one is set.
func (c RootCommand) Registry() (*scoring.Registry, error) {
	reg := scoring.NewRegistry()
	if c.ProfilesFile == "" {
		return reg, nil
	}
	if err := reg.Load(c.ProfilesFile); err != nil {
		return nil, err
	}
	return reg, nil
}
