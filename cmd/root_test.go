package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/testutil"
)

// writeConfig writes the default config without console logging. An empty
// sqlitePath selects the in-memory datastore.
func writeConfig(t *testing.T, sqlitePath string) string {
	t.Helper()
	cfg := string(conf.DefaultConfigYAML())
	if sqlitePath == "" {
		cfg = strings.Replace(cfg, "type: sqlite", "type: memory", 1)
	} else {
		cfg = strings.Replace(cfg, "path: trapwatch.db", "path: "+sqlitePath, 1)
	}
	cfg = strings.Replace(cfg, "console: true", "console: false", 1)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, writeConfig(t, ""), args...)
}

func executeWith(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := RootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestEvaluateJSON(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(imgPath, testutil.GoodImage(t), 0o600))

	out, err := execute(t, "evaluate",
		"--camera", "north",
		"--time", "2024-05-01T06:30:00Z",
		imgPath,
		"-p", "Deer:0.9",
		"-p", "Fox:0.05")
	require.NoError(t, err)

	var d detection.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "Deer", d.Species)
	assert.InDelta(t, 0.15, d.Threshold, 1e-9, "per species threshold from the default config")
	assert.Len(t, d.AllPredictions, 2)
	assert.NotContains(t, d.Reasons, detection.ReasonUndecodable)
}

func TestEvaluateYAMLWithoutImage(t *testing.T) {
	out, err := execute(t, "evaluate", "--camera", "north", "--output", "yaml", "--no-history", "-p", "person:0.8")
	require.NoError(t, err)

	var d detection.Decision
	require.NoError(t, yaml.Unmarshal([]byte(out), &d))
	assert.Equal(t, "Human", d.Species)
	assert.Contains(t, d.Reasons, detection.ReasonUndecodable)
}

func TestEvaluateDoesNotCreateDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "trapwatch.db")

	out, err := executeWith(t, writeConfig(t, dbPath), "evaluate", "--camera", "north", "-p", "Deer:0.9")
	require.NoError(t, err)

	var d detection.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Contains(t, d.Reasons, detection.ReasonNoHistory)
	assert.NoFileExists(t, dbPath)
	assert.NoDirExists(t, filepath.Dir(dbPath))
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad prediction", []string{"-p", "Deer"}},
		{"bad time", []string{"-p", "Deer:0.5", "--time", "noon"}},
		{"bad output", []string{"-p", "Deer:0.5", "--output", "xml"}},
		{"out of range confidence", []string{"-p", "Deer:1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"evaluate", "--camera", "north", "--no-history"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t,
				errors.IsCategory(err, errors.CategoryValidation) || errors.IsCategory(err, errors.CategoryContract),
				"unexpected error: %v", err)
		})
	}
}

func TestEvaluateRequiresCamera(t *testing.T) {
	_, err := execute(t, "evaluate", "-p", "Deer:0.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camera")
}

func TestVersion(t *testing.T) {
	root := RootCommand("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "1.2.3")
}
