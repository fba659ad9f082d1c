// Package natnettest provides a fake NatNet server for integration-style
// tests of the client package and the CLI: a real pair of UDP sockets that
// speak just enough of the protocol to exercise a handshake, model
// definitions, and a stream of frames.
package natnettest

import (
	"encoding/binary"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

// Server is a minimal stand-in for a Motive/NatNet server: it answers
// CONNECT and KEEPALIVE with a canned SERVERINFO, records every REQUEST
// command it receives, and can push raw FRAMEOFDATA/MODELDEF payloads to
// the client whenever a test asks it to.
type Server struct {
	ApplicationName string
	ServerVersion   version.Version
	ProtocolVersion version.Version

	commandConn *net.UDPConn
	dataConn    *net.UDPConn

	mu         sync.Mutex
	clientAddr *net.UDPAddr

	Commands chan string
}

// NewServer binds a command and a data socket on 127.0.0.1 with OS-assigned
// ports and starts answering requests. Call Close when done.
func NewServer(appName string, serverVersion, protocolVersion version.Version) (*Server, error) {
	commandConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		return nil, err
	}
	dataConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		commandConn.Close()
		return nil, err
	}

	s := &Server{
		ApplicationName: appName,
		ServerVersion:   serverVersion,
		ProtocolVersion: protocolVersion,
		commandConn:     commandConn,
		dataConn:        dataConn,
		Commands:        make(chan string, 256),
	}
	go s.serve()
	return s, nil
}

// CommandPort is the bound port of the fake command socket.
func (s *Server) CommandPort() int { return s.commandConn.LocalAddr().(*net.UDPAddr).Port }

// DataPort is the bound port of the fake data socket.
func (s *Server) DataPort() int { return s.dataConn.LocalAddr().(*net.UDPAddr).Port }

// Close releases both sockets.
func (s *Server) Close() {
	s.commandConn.Close()
	s.dataConn.Close()
}

func (s *Server) serve() {
	buf := make([]byte, 65536)
	for {
		n, addr, err := s.commandConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.clientAddr = addr
		s.mu.Unlock()

		id, _, payload, err := wire.DecodeCommand(buf[:n])
		if err != nil {
			log.Debugf("natnettest: malformed command: %v", err)
			continue
		}
		switch id {
		case wire.MessageConnect, wire.MessageKeepAlive:
			_, _ = s.commandConn.WriteToUDP(s.serverInfoPacket(), addr)
		case wire.MessageRequest:
			select {
			case s.Commands <- payload:
			default:
			}
			_, _ = s.commandConn.WriteToUDP(wire.EncodeCommand(wire.MessageResponse, ""), addr)
		case wire.MessageRequestModelDef:
			// PushModelDef sends the body explicitly; nothing to do here.
		}
	}
}

func (s *Server) serverInfoPacket() []byte {
	body := make([]byte, 256+4+4)
	copy(body, s.ApplicationName)
	writeVersionBytes(body[256:260], s.ServerVersion)
	writeVersionBytes(body[260:264], s.ProtocolVersion)

	out := make([]byte, wire.HeaderSize+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(wire.MessageServerInfo))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[wire.HeaderSize:], body)
	return out
}

func writeVersionBytes(dst []byte, v version.Version) {
	dst[0] = v.Major()
	dst[1] = v.Minor()
	dst[2] = v.Revision()
	dst[3] = v.Build()
}

// PushFrame sends a raw FRAMEOFDATA body (already encoded by the caller) to
// the client's data socket. The client's address is learned from its most
// recent command; PushFrame is a no-op until one has arrived.
func (s *Server) PushFrame(body []byte) error {
	return s.push(s.dataConn, wire.MessageFrameOfData, body)
}

// PushModelDef sends a raw MODELDEF body to the client's command socket.
func (s *Server) PushModelDef(body []byte) error {
	return s.push(s.commandConn, wire.MessageModelDef, body)
}

func (s *Server) push(conn *net.UDPConn, id wire.MessageID, body []byte) error {
	s.mu.Lock()
	addr := s.clientAddr
	s.mu.Unlock()
	if addr == nil {
		return nil
	}
	out := make([]byte, wire.HeaderSize+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[wire.HeaderSize:], body)
	_, err := conn.WriteToUDP(out, addr)
	return err
}
