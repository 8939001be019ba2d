package scheduler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "generator.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestRunnerSuccess(t *testing.T) {
	script := writeScript(t, "echo \"input=$1\"\necho \"Returned stats: {'total': 3}\"\necho warn >&2\n")
	runner := NewRunner(Config{Interpreter: "sh", Script: script})

	result, err := runner.Run(context.Background(), "timetable_input.xlsx")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "input=timetable_input.xlsx")
	assert.Equal(t, "warn\n", result.Stderr)

	stats, err := ParseStats(result.Stdout)
	require.NoError(t, err)
	assert.Equal(t, float64(3), stats["total"])
}

func TestRunnerNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo partial\necho boom >&2\nexit 3\n")
	runner := NewRunner(Config{Interpreter: "sh", Script: script})

	_, err := runner.Run(context.Background(), "in.xlsx")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "boom\n", exitErr.Stderr)
	assert.Equal(t, "partial\n", exitErr.Stdout)
	assert.False(t, exitErr.TimedOut)
}

func TestRunnerSpawnFailure(t *testing.T) {
	runner := NewRunner(Config{Interpreter: filepath.Join(t.TempDir(), "missing-interpreter"), Script: "x.py"})

	_, err := runner.Run(context.Background(), "in.xlsx")
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
}

func TestRunnerTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5\n")
	runner := NewRunner(Config{Interpreter: "sh", Script: script, Timeout: 100 * time.Millisecond})

	_, err := runner.Run(context.Background(), "in.xlsx")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.TimedOut)
}

func TestParseStatsPythonLiterals(t *testing.T) {
	out := "Loading...\nReturned stats: {'teachers': 4, 'valid': True, 'note': 'None left', 'conflicts': None}\nReturned stats: {'teachers': 9}\n"

	stats, err := ParseStats(out)
	require.NoError(t, err)
	assert.Equal(t, float64(4), stats["teachers"])
	assert.Equal(t, true, stats["valid"])
	assert.Equal(t, "None left", stats["note"])
	assert.Nil(t, stats["conflicts"])
}

func TestParseStatsMissingOrInvalid(t *testing.T) {
	_, err := ParseStats("nothing useful here\n")
	assert.ErrorIs(t, err, ErrNoStats)

	_, err = ParseStats("Returned stats: {'a': <object>}\n")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoStats)
}
