package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DATA_DIR", "/var/lib/analytics")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
storage:
  data_dir: "${TEST_DATA_DIR}"
kafka:
  enabled: true
  brokers:
    - "broker:9092"
  topic: "events"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/var/lib/analytics", cfg.Storage.DataDir)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"broker:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
