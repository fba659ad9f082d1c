package client

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/natnetgo/natnet/natnet/wire"
)

const recvBufferSize = 64 * 1024

// transport owns the command and data UDP sockets and the low-level
// send/receive path. It has no notion of protocol state; Client layers the
// handshake and dispatch on top.
type transport struct {
	cfg Config

	commandConn *net.UDPConn
	dataConn    *net.UDPConn
	serverAddr  *net.UDPAddr
}

// openTransport creates and binds both sockets per spec.md §4.E's creation
// policy: SO_REUSEADDR on both, SO_BROADCAST on the command socket in
// multicast mode, and an IP_ADD_MEMBERSHIP join on the data socket in
// multicast mode (or in unicast mode when a non-broadcast group is
// configured — the guard on MulticastGroup != "255.255.255.255" is kept
// unexplained, see spec.md §9).
func openTransport(cfg Config) (*transport, error) {
	serverAddr := &net.UDPAddr{IP: net.ParseIP(cfg.ServerIP), Port: cfg.CommandPort}

	commandConn, err := listenUDPReuseAddr(commandBindAddr(cfg))
	if err != nil {
		return nil, &NetworkError{SocketRole: "command", Multicast: cfg.UseMulticast, Err: err}
	}
	if cfg.UseMulticast {
		if err := setSocketOption(commandConn, func(fd int) error {
			return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
		}); err != nil {
			commandConn.Close()
			return nil, &NetworkError{SocketRole: "command", Multicast: cfg.UseMulticast, Err: err}
		}
	}

	dataConn, err := listenUDPReuseAddr(dataBindAddr(cfg))
	if err != nil {
		commandConn.Close()
		return nil, &NetworkError{SocketRole: "data", Multicast: cfg.UseMulticast, Err: err}
	}
	if shouldJoinMulticastGroup(cfg) {
		if err := joinMulticastGroup(dataConn, cfg.MulticastGroup, cfg.LocalIP); err != nil {
			commandConn.Close()
			dataConn.Close()
			return nil, &NetworkError{SocketRole: "data", Multicast: cfg.UseMulticast, Err: err}
		}
	}

	// Start with no read deadline; receive sets a fresh one before every read.
	_ = commandConn.SetReadDeadline(time.Time{})
	_ = dataConn.SetReadDeadline(time.Time{})

	return &transport{cfg: cfg, commandConn: commandConn, dataConn: dataConn, serverAddr: serverAddr}, nil
}

func commandBindAddr(cfg Config) *net.UDPAddr {
	if cfg.UseMulticast {
		return &net.UDPAddr{Port: 0}
	}
	return &net.UDPAddr{IP: net.ParseIP(cfg.LocalIP), Port: 0}
}

func dataBindAddr(cfg Config) *net.UDPAddr {
	if cfg.UseMulticast {
		return &net.UDPAddr{Port: cfg.DataPort}
	}
	return &net.UDPAddr{Port: 0}
}

func shouldJoinMulticastGroup(cfg Config) bool {
	if cfg.UseMulticast {
		return true
	}
	return cfg.MulticastGroup != "" && cfg.MulticastGroup != broadcastAddress
}

// listenUDPReuseAddr binds a UDP socket with SO_REUSEADDR set before bind,
// so multiple clients on the same host can share a multicast group/port
// (spec.md §4.E).
func listenUDPReuseAddr(addr *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", addr.String())
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}

func setSocketOption(conn *net.UDPConn, f func(fd int) error) error {
	sc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := sc.Control(func(fd uintptr) {
		sockErr = f(int(fd))
	}); err != nil {
		return err
	}
	return sockErr
}

func joinMulticastGroup(conn *net.UDPConn, group, iface string) error {
	groupIP := net.ParseIP(group).To4()
	ifaceIP := net.ParseIP(iface).To4()
	if groupIP == nil || ifaceIP == nil {
		return fmt.Errorf("invalid multicast group %q or interface %q", group, iface)
	}
	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], groupIP)
	copy(mreq.Interface[:], ifaceIP)
	return setSocketOption(conn, func(fd int) error {
		return unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
	})
}

// close shuts down both sockets. Safe to call on a partially-opened
// transport.
func (t *transport) close() {
	if t.commandConn != nil {
		_ = t.commandConn.Close()
	}
	if t.dataConn != nil {
		_ = t.dataConn.Close()
	}
}

// sendCommand frames and sends a command on the command socket, returning
// the number of bytes written.
func (t *transport) sendCommand(id wire.MessageID, payload string) (int, error) {
	data := wire.EncodeCommand(id, payload)
	n, err := t.commandConn.WriteToUDP(data, t.serverAddr)
	if err != nil {
		return 0, &NetworkError{SocketRole: "command", Multicast: t.cfg.UseMulticast, Err: err}
	}
	log.Debugf("natnet: sent command id=%d payload=%q to %s", id, payload, t.serverAddr)
	return n, nil
}

// recvResult is the outcome of one non-blocking-ish receive attempt.
type recvResult struct {
	buf *wire.Buffer
	ok  bool
}

// receive reads one datagram from conn, bounded by timeout. The deadline is
// set fresh on every call — spec.md §4.F/§5 call for each receive to block
// for up to timeout (0.1s in the connect poll and in async pump mode, an
// immediate/non-blocking check in the sync drain loop), not for a deadline
// set once and left to expire. A timeout or would-block condition is
// reported as !ok, nil error (spec.md §7: absorbed unless the stop-flag
// says otherwise, which is the caller's concern, not transport's).
func receive(conn *net.UDPConn, timeout time.Duration) (recvResult, error) {
	if timeout <= 0 {
		_ = conn.SetReadDeadline(time.Now())
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}

	buf := make([]byte, recvBufferSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return recvResult{}, nil
		}
		return recvResult{}, err
	}
	if n == 0 {
		return recvResult{}, nil
	}
	return recvResult{buf: wire.NewBuffer(buf[:n]), ok: true}, nil
}
