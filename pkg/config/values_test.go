package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// valuesFrom loads values from the embedded defaults plus the given local and global files.
func valuesFrom(localPath, globalPath string) (Values, error) {
	layers, err := readLayers(defaultsFS, localPath, globalPath)
	if err != nil {
		return Values{}, err
	}
	return loadValues(layers)
}

func TestLoadValues_EmbeddedOnly(t *testing.T) {
	values, err := valuesFrom("", "")
	require.NoError(t, err)

	assert.Equal(t, 8080, values.Port)
	assert.True(t, values.PortSet)
	assert.InDelta(t, 0.9, values.SuccessProbability, 1e-9)
	assert.Equal(t, 1500, values.SubmitLatencyMs)
	assert.Equal(t, 2000, values.ResetDelayMs)
	assert.False(t, values.DarkMode)
	assert.True(t, values.DarkModeSet)
	assert.Empty(t, values.ActivityLog)
	assert.Empty(t, values.SampleData)
}

func TestLoadValues_GlobalOnly(t *testing.T) {
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "config")

	configContent := `
port = 9090
success_probability = 0.5
activity_log = /var/log/deals.txt
`
	require.NoError(t, os.WriteFile(globalConfig, []byte(configContent), 0o600))

	values, err := valuesFrom("", globalConfig)
	require.NoError(t, err)

	assert.Equal(t, 9090, values.Port)
	assert.InDelta(t, 0.5, values.SuccessProbability, 1e-9)
	assert.Equal(t, "/var/log/deals.txt", values.ActivityLog)

	// not set in global, embedded wins
	assert.Equal(t, 1500, values.SubmitLatencyMs)
	assert.Equal(t, 2000, values.ResetDelayMs)
}

func TestLoadValues_LocalOverridesGlobal(t *testing.T) {
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "global-config")
	localConfig := filepath.Join(tmpDir, "local-config")

	globalContent := `
port = 9090
reset_delay_ms = 5000
sample_data = global.yml
`
	require.NoError(t, os.WriteFile(globalConfig, []byte(globalContent), 0o600))

	localContent := `
port = 7070
sample_data = local.yml
dark_mode = true
`
	require.NoError(t, os.WriteFile(localConfig, []byte(localContent), 0o600))

	values, err := valuesFrom(localConfig, globalConfig)
	require.NoError(t, err)

	assert.Equal(t, 7070, values.Port)
	assert.Equal(t, "local.yml", values.SampleData)
	assert.True(t, values.DarkMode)
	assert.Equal(t, 5000, values.ResetDelayMs, "global kept when local does not set it")
}

func TestLoadValues_ExplicitZeroValues(t *testing.T) {
	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "global-config")
	localConfig := filepath.Join(tmpDir, "local-config")
	require.NoError(t, os.WriteFile(globalConfig, []byte("dark_mode = true\nsuccess_probability = 0.7\n"), 0o600))
	require.NoError(t, os.WriteFile(localConfig,
		[]byte("dark_mode = false\nsuccess_probability = 0\nsubmit_latency_ms = 0\nreset_delay_ms = 0\n"), 0o600))

	values, err := valuesFrom(localConfig, globalConfig)
	require.NoError(t, err)

	assert.False(t, values.DarkMode)
	assert.Zero(t, values.SuccessProbability)
	assert.True(t, values.SuccessProbabilitySet)
	assert.Zero(t, values.SubmitLatencyMs)
	assert.True(t, values.SubmitLatencyMsSet)
	assert.Zero(t, values.ResetDelayMs)
}

func TestLoadValues_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "port not a number", content: "port = abc", errMsg: "invalid port"},
		{name: "port out of range", content: "port = 70000", errMsg: "must be 1-65535"},
		{name: "probability not a number", content: "success_probability = high", errMsg: "invalid success_probability"},
		{name: "probability above one", content: "success_probability = 1.5", errMsg: "must be 0..1"},
		{name: "negative latency", content: "submit_latency_ms = -1", errMsg: "invalid submit_latency_ms"},
		{name: "negative reset delay", content: "reset_delay_ms = -10", errMsg: "invalid reset_delay_ms"},
		{name: "bad bool", content: "dark_mode = sometimes", errMsg: "invalid dark_mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			_, err := valuesFrom(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Contains(t, err.Error(), "local config")
		})
	}
}

func TestLoadValues_NonExistentFile(t *testing.T) {
	values, err := valuesFrom("/nonexistent/local", "/nonexistent/global")
	require.NoError(t, err)
	assert.Equal(t, 8080, values.Port)
}

func TestLoadValues_AllCommentedConfigFallsBackToEmbedded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := "# port = 1234\n\r\n   # dark_mode = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	values, err := valuesFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, 8080, values.Port)
	assert.False(t, values.DarkMode)
}

func TestValues_mergeFrom(t *testing.T) {
	dst := Values{Port: 8080, PortSet: true, ActivityLog: "a.txt", DarkMode: true, DarkModeSet: true}
	src := Values{SampleData: "s.yml", DarkMode: false, DarkModeSet: true}
	dst.mergeFrom(&src)

	assert.Equal(t, 8080, dst.Port, "unset port does not override")
	assert.Equal(t, "a.txt", dst.ActivityLog, "empty path does not override")
	assert.Equal(t, "s.yml", dst.SampleData)
	assert.False(t, dst.DarkMode, "explicit false overrides")
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "logs/a.txt"), expandTilde("~/logs/a.txt"))
	assert.Equal(t, "/abs/a.txt", expandTilde("/abs/a.txt"))
	assert.Equal(t, "~user/a.txt", expandTilde("~user/a.txt"))
	assert.Empty(t, expandTilde(""))
}
