package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"flowlens/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_YAML(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
rules:
  - name: ddos
    enabled: true
    severity: CRITICAL
    thresholds:
      packet_rate: 2500
      max_duration: 0.05
  - name: wrong_ttl
    enabled: false
`)
	got, err := rules.LoadRules(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ddos", got[0].Name)
	assert.Equal(t, 2500.0, got[0].Threshold("packet_rate", 0))
	assert.Equal(t, 0.05, got[0].Threshold("max_duration", 0))
	assert.False(t, got[1].Enabled)
	assert.Equal(t, 254.0, got[1].Threshold("high", 254))
}

func TestLoadRules_JSON(t *testing.T) {
	path := writeFile(t, "rules.json", `{"rules":[{"name":"packet_size","enabled":true,"thresholds":{"min_packets":50}}]}`)
	got, err := rules.LoadRules(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 50.0, got[0].Threshold("min_packets", 100))
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := rules.LoadRules("")
	assert.Error(t, err)

	_, err = rules.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
