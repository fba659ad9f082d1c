package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "natnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_ip: 10.0.0.5\nuse_multicast: false\n"), 0o600))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", cfg.ServerIP)
	require.False(t, cfg.UseMulticast)
	require.Equal(t, DefaultConfig().DataPort, cfg.DataPort)
}

func TestConfigValidateRejectsBadPorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CommandPort = 0
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRequiresMulticastGroupWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseMulticast = true
	cfg.MulticastGroup = ""
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRequiresPositiveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = 0
	require.Error(t, cfg.Validate())
	cfg.ConnectTimeout = time.Second
	require.NoError(t, cfg.Validate())
}
