package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/scoring"
)

const tasksJSON = `[
  {"status":"completed","createdAt":"2024-03-01T09:00:00Z","completedAt":"2024-03-05T17:00:00Z","difficulty":"high"},
  {"status":"pending","createdAt":"2024-03-10T09:00:00Z"},
  {"status":"pending","createdAt":"2024-04-02T09:00:00Z"}
]`

const profilesYAML = `
default: delivery
profiles:
  - name: delivery
    weights:
      completion: 0.5
      onTime: 0.5
    emptyOnTimeDefault: 100
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScoreCommand(t *testing.T) {
	tasks := writeFile(t, "tasks.json", tasksJSON)
	profiles := writeFile(t, "profiles.yaml", profilesYAML)

	tests := map[string]struct {
		args       []string
		expScore   int
		expProfile string
		expTotal   int
	}{
		"Whole file with the profiles file default": {args: []string{"--profiles", profiles, "score", "--tasks", tasks}, expScore: 67, expProfile: "delivery", expTotal: 3},
		"One month only":                            {args: []string{"--profiles", profiles, "score", "--tasks", tasks, "--month", "3", "--year", "2024"}, expScore: 75, expProfile: "delivery", expTotal: 2},
		"Built-in profile":                          {args: []string{"score", "--tasks", tasks, "--profile", "standard", "--as-of", "2024-04-30"}, expScore: 13, expProfile: scoring.ProfileStandard, expTotal: 3},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := Run(context.Background(), append([]string{"perfctl"}, test.args...), nil, &stdout, &stderr)
			require.NoError(t, err, stderr.String())

			var result scoring.Result
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
			assert.Equal(t, test.expScore, result.Score)
			assert.Equal(t, test.expProfile, result.Profile)
			assert.Equal(t, test.expTotal, result.Details.TotalTasks)
		})
	}
}

func TestScoreCommandErrors(t *testing.T) {
	tasks := writeFile(t, "tasks.json", tasksJSON)

	tests := map[string][]string{
		"Unknown profile":    {"perfctl", "score", "--tasks", tasks, "--profile", "nope"},
		"Month without year": {"perfctl", "score", "--tasks", tasks, "--month", "3"},
		"Missing tasks file": {"perfctl", "score", "--tasks", filepath.Join(t.TempDir(), "none.json")},
		"Malformed tasks":    {"perfctl", "score", "--tasks", writeFile(t, "bad.json", `{"status":`)},
		"Missing tasks flag": {"perfctl", "score"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, Run(context.Background(), args, nil, &stdout, &stderr))
		})
	}
}

func TestProfilesCommand(t *testing.T) {
	profiles := writeFile(t, "profiles.yaml", profilesYAML)

	var stdout, stderr bytes.Buffer
	require.NoError(t, Run(context.Background(), []string{"perfctl", "--profiles", profiles, "profiles"}, nil, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "delivery")
	assert.Contains(t, out, scoring.ProfileStandard)
	assert.Contains(t, out, "completion=0.50,onTime=0.50")

	bad := writeFile(t, "bad.yaml", "profiles:\n  - name: broken\n    weights:\n      completion: 0.2\n")
	assert.Error(t, Run(context.Background(), []string{"perfctl", "--profiles", bad, "profiles"}, nil, &stdout, &stderr))
}

func TestMigrateCommandErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	tests := map[string][]string{
		"Missing database url":   {"perfctl", "migrate"},
		"Malformed database url": {"perfctl", "migrate", "--database-url", "postgres://%zz"},
		"Unknown flag":           {"perfctl", "migrate", "--database-url", "postgres://localhost/db", "--sideways"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, Run(context.Background(), args, nil, &stdout, &stderr))
		})
	}
}
