package natnettest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/client"
	"github.com/natnetgo/natnet/natnet/version"
)

func TestFakeServerCompletesHandshake(t *testing.T) {
	srv, err := NewServer("FakeMotive", version.Must(version.New(3, 1, 0, 0)), version.Must(version.New(3, 1, 0, 0)))
	require.NoError(t, err)
	defer srv.Close()

	cfg := client.DefaultConfig()
	cfg.ServerIP = "127.0.0.1"
	cfg.LocalIP = "127.0.0.1"
	cfg.UseMulticast = false
	cfg.CommandPort = srv.CommandPort()
	cfg.DataPort = srv.DataPort()
	cfg.ConnectTimeout = 2 * time.Second

	c, err := client.Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, "FakeMotive", c.ServerInfo().ApplicationName)
}

func TestFakeServerRecordsCommands(t *testing.T) {
	srv, err := NewServer("FakeMotive", version.Must(version.New(3, 1, 0, 0)), version.Must(version.New(3, 1, 0, 0)))
	require.NoError(t, err)
	defer srv.Close()

	cfg := client.DefaultConfig()
	cfg.ServerIP = "127.0.0.1"
	cfg.LocalIP = "127.0.0.1"
	cfg.UseMulticast = false
	cfg.CommandPort = srv.CommandPort()
	cfg.DataPort = srv.DataPort()
	cfg.ConnectTimeout = 2 * time.Second

	c, err := client.Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SendCommand("TimelinePlay")
	require.NoError(t, err)

	select {
	case cmd := <-srv.Commands:
		require.Equal(t, "TimelinePlay", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command to reach fake server")
	}
}
