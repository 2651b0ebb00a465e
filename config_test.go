package placeholder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigurationAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
device_name: ph0
subnet: 10.0.1.0/24
name: A
`)

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)
	require.Equal(t, "tun", cfg.DeviceType)
	require.EqualValues(t, defaultPort, cfg.Port)
	require.Equal(t, "10.0.1.0/24", cfg.SubnetPrefix().String())
}

func TestLoadConfigurationRejectsTapDeviceType(t *testing.T) {
	path := writeConfig(t, `
device_name: ph0
device_type: tap
subnet: 10.0.1.0/24
name: A
`)

	_, err := LoadConfiguration(path)
	require.Error(t, err)
}

func TestLoadConfigurationRejectsMissingName(t *testing.T) {
	path := writeConfig(t, `
device_name: ph0
subnet: 10.0.1.0/24
`)

	_, err := LoadConfiguration(path)
	require.Error(t, err)
}

func TestLoadConfigurationRejectsInvalidSubnet(t *testing.T) {
	path := writeConfig(t, `
device_name: ph0
subnet: not-a-cidr
name: A
`)

	_, err := LoadConfiguration(path)
	require.Error(t, err)
}

func TestLoadConfigurationParsesServers(t *testing.T) {
	path := writeConfig(t, `
device_name: ph0
subnet: 10.0.1.0/24
name: A
servers:
  - address: 192.0.2.1
    port: 7654
    name: B
`)

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	require.Equal(t, "B", cfg.Servers[0].Name)
	require.EqualValues(t, 7654, cfg.Servers[0].Port)
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
