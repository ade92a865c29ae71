package ascs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ascs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
sink_ases: 4
source_ases: 2
max_clients: 3
log_level: debug
caching: false
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, config.SinkASEs)
	assert.Equal(t, 2, config.SourceASEs)
	assert.Equal(t, 3, config.MaxClients)
	assert.Equal(t, "debug", config.LogLevel)
	assert.False(t, config.Caching)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().TraceFile, config.TraceFile)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeTempConfig(t, "sink_ases: 0\nsource_ases: 0\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTempConfig(t, "max_clients: 0\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTempConfig(t, "sink_ases: [nonsense\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
