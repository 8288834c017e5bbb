package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var formsDir = filepath.Join("testdata", "forms")

func scriptPath(name string) string {
	return filepath.Join("testdata", "scripts", name)
}

// captureOutput routes stdout and stderr of cmd to buffers.
func captureOutput(cmd *cobra.Command) (stdout *bytes.Buffer) {
	stdout = &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	return stdout
}

// execute runs cmd with args and returns stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	stdout := captureOutput(cmd)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// decodeResponse decodes a JSON CLIResponse and re-decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// writeConfig writes a single-file CUE configuration into a temp dir.
func writeConfig(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "forms.cue"), src))
	return dir
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
