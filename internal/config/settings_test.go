package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViper_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := NewViper("")
	require.NoError(t, err)

	s, err := New(v).Load()
	require.NoError(t, err)
	assert.Equal(t, "interface", s.Scan.LoopbackPolicy)
	assert.Equal(t, int64(1024), s.Scan.MaxInFlight)
	assert.Equal(t, "session", s.ICMP.Engine)
	assert.False(t, s.Neighbors.MDNS)
	assert.Empty(t, s.Neighbors.Services)
	assert.Equal(t, 3*time.Second, s.Neighbors.Timeout)
	assert.Empty(t, s.Store.Path)
	assert.Empty(t, s.Metrics.Textfile)
	assert.Equal(t, 10, s.Log.MaxSizeMB)
	assert.Equal(t, 10*time.Second, s.Hardware.Timeout)
}

func TestNewViper_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scan:
  loopback_policy: address
  max_in_flight: 64
icmp:
  engine: pinger
neighbors:
  mdns: true
  services: [_ssh._tcp]
store:
  path: /tmp/history.db
`), 0o600))

	v, err := NewViper(path)
	require.NoError(t, err)
	s, err := New(v).Load()
	require.NoError(t, err)

	assert.Equal(t, "address", s.Scan.LoopbackPolicy)
	assert.Equal(t, int64(64), s.Scan.MaxInFlight)
	assert.Equal(t, "pinger", s.ICMP.Engine)
	assert.True(t, s.Neighbors.MDNS)
	assert.Equal(t, []string{"_ssh._tcp"}, s.Neighbors.Services)
	assert.Equal(t, "/tmp/history.db", s.Store.Path)
	// Unset keys keep their defaults.
	assert.Equal(t, 3, s.Log.MaxBackups)
}

func TestNewViper_MissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewViper_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUBNETSWEEP_STORE_PATH", "/data/sweeps.db")
	t.Setenv("SUBNETSWEEP_ICMP_ENGINE", "pinger")

	v, err := NewViper("")
	require.NoError(t, err)
	s, err := New(v).Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/sweeps.db", s.Store.Path)
	assert.Equal(t, "pinger", s.ICMP.Engine)
}

func TestLoad_RejectsNegativeMaxInFlight(t *testing.T) {
	v, err := NewViper(writeSettings(t, "scan:\n  max_in_flight: -1\n"))
	require.NoError(t, err)
	_, err = New(v).Load()
	assert.Error(t, err)
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subnetsweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
