// Package client implements the NatNet session state machine: handshake,
// protocol-version negotiation, and the synchronous and asynchronous pump
// modes described in spec.md §4.F-§5.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/natnetgo/natnet/natnet/protocol"
	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

const (
	connectPollInterval    = 100 * time.Millisecond
	asyncSocketTimeout     = 100 * time.Millisecond
	renegotiationFirstPause = 100 * time.Millisecond
	renegotiationFinalPause = 2 * time.Second
)

// Client is a NatNet session: two UDP sockets, a handshake, and the
// decoded-record events application code subscribes to.
type Client struct {
	cfg Config
	tr  *transport

	mu              sync.Mutex
	state           State
	serverInfo      *protocol.ServerInfo
	protocolVersion version.Version

	onFrame       *Event[protocol.DataFrame]
	onDescription *Event[protocol.DataDescriptions]

	asyncMu     sync.Mutex
	asyncCancel context.CancelFunc
	asyncGroup  *errgroup.Group
}

// Open creates a Client and blocks until the handshake completes or
// cfg.ConnectTimeout elapses. Equivalent to OpenContext(context.Background(), cfg).
func Open(cfg Config) (*Client, error) {
	return OpenContext(context.Background(), cfg)
}

// OpenContext is Open, but the handshake wait also stops early if ctx is
// canceled.
func OpenContext(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		state:         StateInit,
		onFrame:       NewEvent[protocol.DataFrame](),
		onDescription: NewEvent[protocol.DataDescriptions](),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// WithClient opens a Client, runs fn, and guarantees Close on every exit
// path including a panic or error from fn — the scoped-use pattern spec.md
// §4.F calls for.
func WithClient(ctx context.Context, cfg Config, fn func(*Client) error) error {
	c, err := OpenContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// connect runs the INIT -> OPENING -> AWAITING_SERVERINFO -> READY
// handshake: open both sockets, send CONNECT, then poll the command socket
// for SERVERINFO, sending a KEEPALIVE each pass when not using multicast
// (spec.md §4.F).
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateOpening)

	tr, err := openTransport(c.cfg)
	if err != nil {
		c.setState(StateClosed)
		return err
	}
	c.tr = tr

	c.setState(StateAwaitingServerInfo)
	if _, err := c.tr.sendCommand(wire.MessageConnect, ""); err != nil {
		c.Shutdown()
		return err
	}

	deadline := time.Now().Add(c.cfg.ConnectTimeout)
	for c.ServerInfo() == nil {
		select {
		case <-ctx.Done():
			c.Shutdown()
			return ctx.Err()
		default:
		}

		if !c.cfg.UseMulticast {
			if _, err := c.tr.sendCommand(wire.MessageKeepAlive, ""); err != nil {
				c.Shutdown()
				return err
			}
		}

		if err := c.pumpOnce(c.tr.commandConn, connectPollInterval); err != nil {
			c.Shutdown()
			return err
		}
		if c.ServerInfo() != nil {
			break
		}
		if time.Now().After(deadline) {
			c.Shutdown()
			return &TimeoutError{Timeout: c.cfg.ConnectTimeout.String()}
		}
	}

	c.setState(StateReady)
	return nil
}

// pumpOnce reads at most one datagram from conn and dispatches it. A
// timed-out read is silently absorbed: the caller decides whether to retry
// or give up.
func (c *Client) pumpOnce(conn *net.UDPConn, timeout time.Duration) error {
	res, err := receive(conn, timeout)
	if err != nil {
		return &NetworkError{SocketRole: "recv", Multicast: c.cfg.UseMulticast, Err: err}
	}
	if !res.ok {
		return nil
	}
	return c.processMessage(res.buf)
}

// processMessage decodes one packet's header and dispatches the body by
// message id (spec.md §4.F, §6). Messages that arrive before the handshake
// completes, other than SERVERINFO itself, are logged and dropped.
func (c *Client) processMessage(buf *wire.Buffer) error {
	header, err := wire.ReadHeader(buf)
	if err != nil {
		return &ProtocolError{Msg: "reading message header", Err: err}
	}
	if header.BodyLength != uint16(buf.Remaining()) {
		log.Warnf("natnet: message id=%d declares body length %d but %d bytes remain",
			header.MessageID, header.BodyLength, buf.Remaining())
	}

	if header.MessageID != wire.MessageServerInfo && !c.Connected() {
		log.Warnf("natnet: dropping message id=%d received before handshake completed", header.MessageID)
		return nil
	}

	switch header.MessageID {
	case wire.MessageServerInfo:
		info, err := protocol.DecodeServerInfo(buf, version.Version{})
		if err != nil {
			return &ProtocolError{Msg: "decoding SERVERINFO", Err: err}
		}
		c.mu.Lock()
		c.serverInfo = &info
		if c.protocolVersion.Len() == 0 {
			c.protocolVersion = info.NatNetProtocolVersion
		}
		c.mu.Unlock()
		log.Infof("natnet: connected to %s (server %s, protocol %s)",
			info.ApplicationName, info.ServerVersion, info.NatNetProtocolVersion)

	case wire.MessageFrameOfData:
		frame, err := protocol.DecodeDataFrame(buf, c.ProtocolVersion())
		if err != nil {
			return &ProtocolError{Msg: "decoding FRAMEOFDATA", Err: err}
		}
		c.onFrame.Invoke(frame)

	case wire.MessageModelDef:
		desc, err := protocol.DecodeDataDescriptions(buf, c.ProtocolVersion())
		if err != nil {
			return &ProtocolError{Msg: "decoding MODELDEF", Err: err}
		}
		c.onDescription.Invoke(desc)

	case wire.MessageMessageString:
		str, err := buf.ReadString()
		if err != nil {
			return &ProtocolError{Msg: "decoding MESSAGESTRING", Err: err}
		}
		log.Infof("natnet: server message: %s", str)

	case wire.MessageUnrecognizedRequest:
		log.Warn("natnet: server reported our request as unrecognized")

	default:
		log.Debugf("natnet: ignoring message id=%d", header.MessageID)
	}
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the Client's current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether both sockets are open and the handshake has
// completed.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr != nil && c.serverInfo != nil
}

// ServerInfo returns the handshake record captured from SERVERINFO, or nil
// before the handshake completes and after Shutdown or Close.
func (c *Client) ServerInfo() *protocol.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// ProtocolVersion returns the wire version currently in effect for
// decoding FRAMEOFDATA/MODELDEF payloads.
func (c *Client) ProtocolVersion() version.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocolVersion
}

// CanChangeProtocolVersion reports whether SetProtocolVersion is allowed:
// the server must advertise protocol >= 4 and the transport must be
// unicast (spec.md §4.F).
func (c *Client) CanChangeProtocolVersion() bool {
	info := c.ServerInfo()
	if info == nil {
		return false
	}
	return info.NatNetProtocolVersion.GreaterOrEqual(version.Must(version.New(4))) && !c.cfg.UseMulticast
}

// OnFrame returns the event subscribers attach to for decoded DataFrames.
func (c *Client) OnFrame() *Event[protocol.DataFrame] { return c.onFrame }

// OnDescription returns the event subscribers attach to for decoded
// DataDescriptions.
func (c *Client) OnDescription() *Event[protocol.DataDescriptions] { return c.onDescription }

// RequestModelDef asks the server to publish a MODELDEF message.
func (c *Client) RequestModelDef() error {
	if !c.Connected() {
		return &StateError{Msg: "not connected to a server"}
	}
	_, err := c.tr.sendCommand(wire.MessageRequestModelDef, "")
	return err
}

// SendCommand forwards an arbitrary scripting command string to the
// server's command socket and returns the number of bytes sent. Like the
// reference client this method does not wait for or interpret the
// server's RESPONSE payload: "success" here means the local send-side call
// did not error, matching the upstream client's byte-count-as-acknowledgement
// behavior (see spec.md §4.F).
func (c *Client) SendCommand(command string) (int, error) {
	if !c.Connected() {
		return 0, &StateError{Msg: "not connected to a server"}
	}
	return c.tr.sendCommand(wire.MessageRequest, command)
}

// SetProtocolVersion requests the server switch to a different NatNet wire
// version, truncated to major.minor, then runs the fixed recovery sequence
// spec.md §4.F documents (preserved exactly, including its apparent
// redundancy — see spec.md §9).
func (c *Client) SetProtocolVersion(desired version.Version) error {
	if !c.CanChangeProtocolVersion() {
		return &StateError{Msg: "server does not support changing the NatNet protocol version"}
	}

	desired = desired.Truncate(2)
	if desired.Equal(c.ProtocolVersion().Truncate(2)) {
		return nil
	}

	if _, err := c.SendCommand(fmt.Sprintf("Bitstream,%s", desired)); err != nil {
		return &ProtocolError{Msg: "failed to set NatNet protocol version", Err: err}
	}

	c.mu.Lock()
	c.protocolVersion = desired
	c.mu.Unlock()

	if _, err := c.SendCommand("TimelinePlay"); err != nil {
		return &ProtocolError{Msg: "protocol version recovery sequence failed", Err: err}
	}
	time.Sleep(renegotiationFirstPause)

	for _, cmd := range []string{"TimelinePlay", "TimelineStop", "SetPlaybackCurrentFrame,0", "TimelineStop"} {
		if _, err := c.SendCommand(cmd); err != nil {
			return &ProtocolError{Msg: "protocol version recovery sequence failed", Err: err}
		}
	}
	time.Sleep(renegotiationFinalPause)

	return nil
}

// UpdateSync drains one pass of both sockets and dispatches whatever
// messages were waiting. It is the synchronous pump mode (spec.md §5) and
// must not be called while RunAsync is active.
func (c *Client) UpdateSync() error {
	c.asyncMu.Lock()
	running := c.asyncCancel != nil
	c.asyncMu.Unlock()
	if running {
		return &StateError{Msg: "cannot call UpdateSync while RunAsync is active"}
	}
	if !c.Connected() {
		return &StateError{Msg: "not connected to a server"}
	}

	for {
		res, err := receive(c.tr.dataConn, 0)
		if err != nil {
			return &NetworkError{SocketRole: "data", Multicast: c.cfg.UseMulticast, Err: err}
		}
		if !res.ok {
			break
		}
		if err := c.processMessage(res.buf); err != nil {
			return err
		}
	}

	if !c.cfg.UseMulticast {
		if _, err := c.tr.sendCommand(wire.MessageKeepAlive, ""); err != nil {
			return &NetworkError{SocketRole: "command", Multicast: c.cfg.UseMulticast, Err: err}
		}
	}
	for {
		res, err := receive(c.tr.commandConn, 0)
		if err != nil {
			return &NetworkError{SocketRole: "command", Multicast: c.cfg.UseMulticast, Err: err}
		}
		if !res.ok {
			break
		}
		if err := c.processMessage(res.buf); err != nil {
			return err
		}
	}
	return nil
}

// RunAsync starts background goroutines pumping both sockets until ctx is
// canceled or StopAsync is called. Concurrent calls to UpdateSync are
// rejected while a RunAsync is active (spec.md §5).
func (c *Client) RunAsync(ctx context.Context) error {
	c.asyncMu.Lock()
	if c.asyncCancel != nil {
		c.asyncMu.Unlock()
		return &StateError{Msg: "RunAsync is already active"}
	}
	if !c.Connected() {
		c.asyncMu.Unlock()
		return &StateError{Msg: "not connected to a server"}
	}
	asyncCtx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(asyncCtx)
	c.asyncCancel = cancel
	c.asyncGroup = g
	c.asyncMu.Unlock()

	g.Go(func() error { return c.socketWorker(gCtx, c.tr.dataConn, "data") })
	g.Go(func() error { return c.socketWorker(gCtx, c.tr.commandConn, "command") })

	return nil
}

// StopAsync cancels the goroutines started by RunAsync and waits for them
// to exit.
func (c *Client) StopAsync() error {
	c.asyncMu.Lock()
	cancel := c.asyncCancel
	g := c.asyncGroup
	c.asyncCancel = nil
	c.asyncGroup = nil
	c.asyncMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return g.Wait()
}

// socketWorker loops reading conn until ctx is canceled, dispatching each
// decoded message. A read timeout is normal (spec.md §5's bounded poll) and
// is not treated as an error; it just gives the loop a chance to observe
// ctx.Done(). On the command socket in unicast mode, each pass also sends a
// KEEPALIVE first: Motive silently drops a unicast client that stops
// sending them, so the async pump has to keep the handshake's cadence going
// for as long as it runs (spec.md §4.F/§5).
func (c *Client) socketWorker(ctx context.Context, conn *net.UDPConn, role string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if role == "command" && !c.cfg.UseMulticast {
			if _, err := c.tr.sendCommand(wire.MessageKeepAlive, ""); err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				return &NetworkError{SocketRole: role, Multicast: c.cfg.UseMulticast, Err: err}
			}
		}

		res, err := receive(conn, asyncSocketTimeout)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return &NetworkError{SocketRole: role, Multicast: c.cfg.UseMulticast, Err: err}
		}
		if !res.ok {
			continue
		}
		if err := c.processMessage(res.buf); err != nil {
			log.Errorf("natnet: %s socket worker: %v", role, err)
		}
	}
}

// Shutdown tears down the transport without running the RunAsync
// teardown path; used internally when the handshake itself fails.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.state = StateClosed
	c.serverInfo = nil
	c.mu.Unlock()
	if c.tr != nil {
		c.tr.close()
	}
}

// Close stops any active RunAsync pump, sends DISCONNECT if the handshake
// had completed, and releases both sockets. Close is idempotent.
func (c *Client) Close() error {
	_ = c.StopAsync()

	if c.Connected() {
		_, _ = c.tr.sendCommand(wire.MessageDisconnect, "")
	}
	c.Shutdown()
	return nil
}
