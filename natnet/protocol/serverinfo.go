package protocol

import (
	"fmt"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

// applicationNameFieldWidth is the fixed width of ServerInfo's
// null-terminated application-name field.
const applicationNameFieldWidth = 256

// ServerInfo is the handshake record: who the server is, what product
// version it runs, and which NatNet wire version it will speak.
type ServerInfo struct {
	ApplicationName       string
	ServerVersion         version.Version
	NatNetProtocolVersion version.Version
}

// DecodeServerInfo reads the SERVERINFO body. currentProtocolVersion is
// accepted for symmetry with the other decoders' (buffer, version)
// signature but is not consulted: ServerInfo's own layout never branches on
// protocol version.
func DecodeServerInfo(buf *wire.Buffer, _ version.Version) (ServerInfo, error) {
	appName, err := buf.ReadStringBounded(applicationNameFieldWidth, true)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server info application name: %w", err)
	}

	serverVersionBytes, err := readFourBytes(buf)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server info server version: %w", err)
	}
	protocolVersionBytes, err := readFourBytes(buf)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server info protocol version: %w", err)
	}

	serverVersion, err := version.New(serverVersionBytes[:]...)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server info server version: %w", err)
	}
	protocolVersion, err := version.New(protocolVersionBytes[:]...)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("server info protocol version: %w", err)
	}

	return ServerInfo{
		ApplicationName:       appName,
		ServerVersion:         serverVersion,
		NatNetProtocolVersion: protocolVersion,
	}, nil
}

func readFourBytes(buf *wire.Buffer) ([4]uint8, error) {
	var out [4]uint8
	for i := range out {
		b, err := buf.ReadUint8()
		if err != nil {
			return out, err
		}
		out[i] = b
	}
	return out, nil
}
