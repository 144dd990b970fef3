package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidTopology(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/pipeline.yaml", "testdata/chain.hcl")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ testdata/pipeline.yaml")
	assert.Contains(t, out, "✓ testdata/chain.hcl")
	assert.Contains(t, out, "topology: chain")
	assert.Contains(t, out, "  src.out -> mid.in")
}

func TestValidateValidTopologyJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/pipeline.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Reports, 1)
	assert.Equal(t, "pipeline", resp.Data.Reports[0].Name)
	assert.Equal(t, 2, resp.Data.Reports[0].Automata)
	assert.Equal(t, 1, resp.Data.Reports[0].Bindings)
}

func TestValidateInvalidTopology(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ testdata/broken.yaml [INVALID]")
	assert.Contains(t, out, "ghost")
}

func TestValidateInvalidTopologyJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/broken.yaml")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *ResponseError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INVALID_TOPOLOGY", resp.Error.Code)
	require.Len(t, resp.Data.Reports, 1)
	assert.False(t, resp.Data.Reports[0].Valid)
	assert.NotEmpty(t, resp.Data.Reports[0].Errors)
}

func TestValidateMissingFile(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/pipeline.yaml", "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Contains(t, out, "✓ testdata/pipeline.yaml")
	assert.Contains(t, out, "✗ testdata/nope.yaml [NOT_FOUND]")
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
}
