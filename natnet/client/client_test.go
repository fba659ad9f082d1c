package client

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

// fakeServer is a minimal NatNet server stand-in: it owns a command socket
// and a data socket and replies to CONNECT/KEEPALIVE with a canned
// SERVERINFO, recording every command payload it receives.
type fakeServer struct {
	t          *testing.T
	commandConn *net.UDPConn
	dataConn    *net.UDPConn

	serverVersion   version.Version
	protocolVersion version.Version

	receivedCommands chan string
	clientAddr       chan *net.UDPAddr
}

func newFakeServer(t *testing.T, serverVersion, protocolVersion version.Version) *fakeServer {
	t.Helper()
	commandConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	dataConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)

	fs := &fakeServer{
		t:                t,
		commandConn:      commandConn,
		dataConn:         dataConn,
		serverVersion:    serverVersion,
		protocolVersion:  protocolVersion,
		receivedCommands: make(chan string, 64),
		clientAddr:       make(chan *net.UDPAddr, 1),
	}
	go fs.serve()
	t.Cleanup(func() {
		commandConn.Close()
		dataConn.Close()
	})
	return fs
}

func (fs *fakeServer) commandPort() int { return fs.commandConn.LocalAddr().(*net.UDPAddr).Port }
func (fs *fakeServer) dataPort() int    { return fs.dataConn.LocalAddr().(*net.UDPAddr).Port }

func (fs *fakeServer) serve() {
	buf := make([]byte, 65536)
	for {
		n, addr, err := fs.commandConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		select {
		case fs.clientAddr <- addr:
		default:
		}
		id, _, payload, err := wire.DecodeCommand(buf[:n])
		if err != nil {
			continue
		}
		switch id {
		case wire.MessageConnect, wire.MessageKeepAlive:
			_, _ = fs.commandConn.WriteToUDP(fs.serverInfoPacket(), addr)
		case wire.MessageRequest:
			fs.receivedCommands <- payload
			_, _ = fs.commandConn.WriteToUDP(fs.responsePacket(), addr)
		}
	}
}

func (fs *fakeServer) serverInfoPacket() []byte {
	body := make([]byte, 256+4+4)
	copy(body, "FakeMotive")
	sv := fs.serverVersion
	body[256] = sv.Major()
	body[257] = sv.Minor()
	body[258] = sv.Revision()
	body[259] = sv.Build()
	pv := fs.protocolVersion
	body[260] = pv.Major()
	body[261] = pv.Minor()
	body[262] = pv.Revision()
	body[263] = pv.Build()

	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(wire.MessageServerInfo))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	return out
}

func (fs *fakeServer) responsePacket() []byte {
	return wire.EncodeCommand(wire.MessageResponse, "")
}

func testConfig(fs *fakeServer) Config {
	cfg := DefaultConfig()
	cfg.ServerIP = "127.0.0.1"
	cfg.LocalIP = "127.0.0.1"
	cfg.UseMulticast = false
	cfg.CommandPort = fs.commandPort()
	cfg.DataPort = fs.dataPort()
	cfg.ConnectTimeout = 2 * time.Second
	return cfg
}

func TestOpenCompletesHandshake(t *testing.T) {
	fs := newFakeServer(t, version.Must(version.New(3, 1, 0, 0)), version.Must(version.New(3, 1, 0, 0)))
	c, err := Open(testConfig(fs))
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, StateReady, c.State())
	require.True(t, c.Connected())
	require.Equal(t, "FakeMotive", c.ServerInfo().ApplicationName)
	require.True(t, c.ProtocolVersion().Equal(version.Must(version.New(3, 1, 0, 0))))
}

func TestOpenTimesOutWithoutServer(t *testing.T) {
	unreachable, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	port := unreachable.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, unreachable.Close())

	cfg := DefaultConfig()
	cfg.ServerIP = "127.0.0.1"
	cfg.LocalIP = "127.0.0.1"
	cfg.UseMulticast = false
	cfg.CommandPort = port
	cfg.DataPort = port + 1
	cfg.ConnectTimeout = 300 * time.Millisecond

	_, err = Open(cfg)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestUpdateSyncRejectedWhileAsyncRunning(t *testing.T) {
	fs := newFakeServer(t, version.Must(version.New(3, 1, 0, 0)), version.Must(version.New(3, 1, 0, 0)))
	c, err := Open(testConfig(fs))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.RunAsync(ctx))
	defer c.StopAsync()

	err = c.UpdateSync()
	require.Error(t, err)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestSetProtocolVersionSendsRenegotiationSequence(t *testing.T) {
	fs := newFakeServer(t, version.Must(version.New(4, 0, 0, 0)), version.Must(version.New(4, 1, 0, 0)))
	c, err := Open(testConfig(fs))
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.CanChangeProtocolVersion())

	done := make(chan error, 1)
	go func() { done <- c.SetProtocolVersion(version.Must(version.New(3, 1))) }()

	var commands []string
	for i := 0; i < 6; i++ {
		select {
		case cmd := <-fs.receivedCommands:
			commands = append(commands, cmd)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for command %d, got %v so far", i, commands)
		}
	}
	require.NoError(t, <-done)

	require.Equal(t, []string{
		"Bitstream,3.1",
		"TimelinePlay",
		"TimelinePlay",
		"TimelineStop",
		"SetPlaybackCurrentFrame,0",
		"TimelineStop",
	}, commands)
	require.True(t, c.ProtocolVersion().Equal(version.Must(version.New(3, 1))))
}

func TestSetProtocolVersionRejectedOnOldServer(t *testing.T) {
	fs := newFakeServer(t, version.Must(version.New(3, 0, 0, 0)), version.Must(version.New(3, 0, 0, 0)))
	c, err := Open(testConfig(fs))
	require.NoError(t, err)
	defer c.Close()

	require.False(t, c.CanChangeProtocolVersion())
	err = c.SetProtocolVersion(version.Must(version.New(2, 7)))
	require.Error(t, err)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}
