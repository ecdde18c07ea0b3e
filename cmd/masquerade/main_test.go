package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/integrations/sqldb"
	"github.com/TFMV/masquerade/pkg/writers"
	"github.com/TFMV/masquerade/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestFunctionsCommand(t *testing.T) {
	out, err := execute(t, "functions", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "randomDate")
	assert.Contains(t, out, "start:string, end:string, format:string")
	assert.Contains(t, out, "randomUUID")
}

func TestGenerateCommand(t *testing.T) {
	out, err := execute(t, "generate", "randomStringFromPattern",
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--param", `pattern=[a-z]{5}@test\.com`, "--count", "4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Regexp(t, regexp.MustCompile(`^[a-z]{5}@test\.com$`), l)
	}

	_, err = execute(t, "generate", "doesNotExist", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "unknown function")

	_, err = execute(t, "generate", "randomWords", "--param", "count")
	assert.ErrorContains(t, err, "must be name=value")
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"pattern=a=b", "count=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pattern": "a=b", "count": "3"}, got)

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")

	store, err := sqldb.Open(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, born TEXT)")
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err = store.Exec(ctx, "INSERT INTO users VALUES (?, ?, ?)", i, fmt.Sprintf("user%d@corp.com", i), "1990-01-01")
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	cfgPath := filepath.Join(dir, "masquerade.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
database:
  driver: sqlite
  dsn: %q
anonymizer:
  limit: 2
  workers: 1
  seed: 42
tables:
  - name: users
    primary_key: id
    columns:
      - name: email
        function: randomStringFromPattern
        params: {pattern: '[a-z]{5}@test\.com'}
      - name: born
        function: randomDate
        params: {start: "1950-01-01", end: "2000-01-01", format: "yyyy-MM-dd"}
`, dbPath)), 0644))

	changeLog := filepath.Join(dir, "changes.json")
	reportJSON := filepath.Join(dir, "report.json")

	// A dry run leaves the table untouched and records every value.
	out, err := execute(t, "run", "--config", cfgPath, "--log-file", filepath.Join(dir, "masquerade.log"),
		"--no-spinner", "--dry-run", "--change-log", changeLog, "--report-json", reportJSON)
	require.NoError(t, err, out)
	assert.Contains(t, out, "users")

	data, err := os.ReadFile(changeLog)
	require.NoError(t, err)
	var changes []writers.Change
	require.NoError(t, json.Unmarshal(data, &changes))
	assert.Len(t, changes, 10)

	data, err = os.ReadFile(reportJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rows_updated": 5`)

	store, err = sqldb.Open(ctx, "sqlite", dbPath)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.Query(ctx, "SELECT email FROM users WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, "user1@corp.com", rows[0][0])

	// A real run rewrites every row.
	_, err = execute(t, "run", "--config", cfgPath, "--no-spinner")
	require.NoError(t, err)
	rows, err = store.Query(ctx, "SELECT email, born FROM users ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.Regexp(t, `^[a-z]{5}@test\.com$`, r[0])
		assert.Regexp(t, `^19[5-9]\d-\d\d-\d\d$`, r[1])
	}

	// Unknown tables are rejected before connecting.
	_, err = execute(t, "run", "--config", cfgPath, "--no-spinner", "--table", "orders")
	assert.ErrorContains(t, err, "unknown tables")
}

func TestRunCommandReportsFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "masquerade.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
database:
  driver: sqlite
  dsn: %q
tables:
  - name: missing
    primary_key: id
    columns:
      - name: email
        function: randomUUID
`, filepath.Join(dir, "empty.db"))), 0644))

	metricsPath := filepath.Join(dir, "metrics.json")
	out, err := execute(t, "run", "--config", cfgPath, "--no-spinner", "--log-file", filepath.Join(dir, "masquerade.log"),
		"--metrics-file", metricsPath)
	assert.True(t, errors.Is(err, errRunFailed), "got %v", err)
	assert.Contains(t, out, "aborted")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"missing"`)
}

func TestRunCommandRequiresConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestServeRegistry(t *testing.T) {
	families, err := newServeRegistry().Gather()
	require.NoError(t, err)
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.GetName()
	}
	assert.Contains(t, names, "go_goroutines")
}
