package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"

	"perfeval/internal/domain/scoring"
)

type ProfilesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewProfilesCommand returns the command that validates and lists profiles.
func NewProfilesCommand(rootCmd *RootCommand, app *kingpin.Application) *ProfilesCommand {
	c := &ProfilesCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("profiles", "Validate the profiles file and list every scoring profile.")
	return c
}

func (c ProfilesCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfilesCommand) Run(_ context.Context) error {
	reg, err := c.rootCmd.Registry()
	if err != nil {
		return fmt.Errorf("invalid profiles: %w", err)
	}

	w := tabwriter.NewWriter(c.rootCmd.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT\tWEIGHTS\tON-TIME DEFAULT")
	for _, p := range reg.List() {
		isDefault := ""
		if p.Name == reg.DefaultName() {
			isDefault = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", p.Name, isDefault, formatWeights(p.Weights), p.EmptyOnTimeDefault)
	}
	return w.Flush()
}

func formatWeights(weights map[scoring.Metric]float64) string {
	parts := make([]string, 0, len(weights))
	for m, w := range weights {
		parts = append(parts, fmt.Sprintf("%s=%.2f", m, w))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
