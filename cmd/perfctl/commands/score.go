package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"perfeval/internal/domain/scoring"
)

type ScoreCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	tasksFile string
	profile   string
	asOf      string
	month     int
	year      int
}

// NewScoreCommand returns the offline scoring command.
func NewScoreCommand(rootCmd *RootCommand, app *kingpin.Application) *ScoreCommand {
	c := &ScoreCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("score", "Score a JSON list of tasks and print the result.")
	c.Cmd.Flag("tasks", "JSON file with the task records ('-' reads stdin).").Required().StringVar(&c.tasksFile)
	c.Cmd.Flag("profile", "Scoring profile name (default profile when empty).").StringVar(&c.profile)
	c.Cmd.Flag("as-of", "Evaluation time as YYYY-MM-DD (defaults to now or the end of --month).").StringVar(&c.asOf)
	c.Cmd.Flag("month", "Only score tasks created or completed in this month (1-12).").IntVar(&c.month)
	c.Cmd.Flag("year", "Year for --month.").IntVar(&c.year)

	return c
}

func (c ScoreCommand) Name() string { return c.Cmd.FullCommand() }

func (c ScoreCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	reg, err := c.rootCmd.Registry()
	if err != nil {
		return fmt.Errorf("could not load profiles: %w", err)
	}
	profile, err := reg.Get(c.profile)
	if err != nil {
		return err
	}

	records, err := c.readTasks()
	if err != nil {
		return err
	}

	asOf := time.Now().UTC()
	if c.month != 0 {
		if c.month < 1 || c.month > 12 || c.year == 0 {
			return fmt.Errorf("--month must be 1-12 and needs --year")
		}
		window := scoring.MonthWindow(c.year, time.Month(c.month), time.UTC)
		records = scoring.FilterPeriod(records, window)
		if window.End.Before(asOf) {
			asOf = window.End
		}
	}
	if c.asOf != "" {
		if asOf, err = time.Parse("2006-01-02", c.asOf); err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	logger.Debug("scoring tasks", zap.Int("tasks", len(records)), zap.String("profile", profile.Name), zap.Time("asOf", asOf))
	result := scoring.Compute(records, profile, scoring.WithAsOf(asOf))

	enc := json.NewEncoder(c.rootCmd.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (c ScoreCommand) readTasks() ([]scoring.TaskRecord, error) {
	var raw []byte
	var err error
	if c.tasksFile == "-" {
		raw, err = readAll(c.rootCmd.Stdin)
	} else {
		raw, err = os.ReadFile(c.tasksFile)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read tasks: %w", err)
	}
	var records []scoring.TaskRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("could not parse tasks: %w", err)
	}
	return records, nil
}
