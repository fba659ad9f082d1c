package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

func TestDecodeServerInfoS1(t *testing.T) {
	// S1: application_name="Motive", server_version=3.0.0.0, protocol_version=3.1.0.0
	b := (&packetBuilder{}).strStatic("Motive", applicationNameFieldWidth)
	b.buf = append(b.buf, 3, 0, 0, 0)
	b.buf = append(b.buf, 3, 1, 0, 0)
	buf := wire.NewBuffer(b.bytes())

	info, err := DecodeServerInfo(buf, version.Version{})
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.Equal(t, "Motive", info.ApplicationName)
	require.True(t, info.NatNetProtocolVersion.Equal(version.Must(version.New(3, 1, 0, 0))))
	require.True(t, info.ServerVersion.Equal(version.Must(version.New(3, 0, 0, 0))))
}
