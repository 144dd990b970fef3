package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenarios copies the passing scenarios and their topologies into a
// temp dir so golden files can be rewritten.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"pipeline.yaml", "chain.hcl"} {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	for _, name := range []string{"pipeline.yaml", "chain.yaml"} {
		data, err := os.ReadFile(filepath.Join("testdata", "scenarios", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(scenarios, name), data, 0644))
	}
	return scenarios
}

func TestTestPassingScenarios(t *testing.T) {
	out, err := executeTest(t, "text", "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ pipeline")
	assert.Contains(t, out, "✓ chain")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestSingleFile(t *testing.T) {
	out, err := executeTest(t, "text", "testdata/scenarios/pipeline.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestFilter(t *testing.T) {
	out, err := executeTest(t, "text", "testdata/scenarios", "--filter", "pipe*")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ pipeline")
	assert.NotContains(t, out, "chain")
}

func TestTestFailingScenario(t *testing.T) {
	out, err := executeTest(t, "text", "testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestFailingScenarioJSON(t *testing.T) {
	out, err := executeTest(t, "json", "testdata/scenarios", "testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string         `json:"status"`
		Data   TestResult     `json:"data"`
		Error  *ResponseError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	for _, s := range resp.Data.Scenarios {
		if s.Name == "wrong_count" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
			continue
		}
		assert.True(t, s.Pass, s.Name)
		assert.Equal(t, "test-run", s.RunID)
	}
}

func TestTestGoldenMismatch(t *testing.T) {
	scenarios := copyScenarios(t)
	golden := filepath.Join(scenarios, "golden", "pipeline.golden")
	require.NoError(t, os.MkdirAll(filepath.Dir(golden), 0755))
	require.NoError(t, os.WriteFile(golden, []byte("scenario: pipeline\n"), 0644))

	out, err := executeTest(t, "text", filepath.Join(scenarios, "pipeline.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ pipeline")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestUpdateWritesGolden(t *testing.T) {
	scenarios := copyScenarios(t)

	out, err := executeTest(t, "text", scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pipeline (golden updated)")

	got, err := os.ReadFile(filepath.Join(scenarios, "golden", "pipeline.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "scenarios", "golden", "pipeline.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// a second run compares against the fresh golden files
	_, err = executeTest(t, "text", scenarios)
	require.NoError(t, err)
}

func TestTestNoScenarios(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestMissingPath(t *testing.T) {
	_, err := executeTest(t, "text", "testdata/nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
