package wire

import (
	"encoding/binary"
	"fmt"
)

// MessageID identifies a NatNet message on the wire; see the id table in
// spec.md §6.
type MessageID uint16

// Message ids understood by both the client and the server.
const (
	MessageConnect             MessageID = 0
	MessageServerInfo          MessageID = 1
	MessageRequest             MessageID = 2
	MessageResponse            MessageID = 3
	MessageRequestModelDef     MessageID = 4
	MessageModelDef            MessageID = 5
	MessageRequestFrameOfData  MessageID = 6
	MessageFrameOfData         MessageID = 7
	MessageMessageString       MessageID = 8
	MessageDisconnect          MessageID = 9
	MessageKeepAlive           MessageID = 10
	MessageUnrecognizedRequest MessageID = 100
)

// Header is the 4-byte id + body-length prefix carried by every packet.
type Header struct {
	MessageID  MessageID
	BodyLength uint16
}

// ReadHeader consumes the 4-byte message-id + body-length header from buf.
func ReadHeader(buf *Buffer) (Header, error) {
	id, err := buf.ReadUint16()
	if err != nil {
		return Header{}, fmt.Errorf("reading message id: %w", err)
	}
	bodyLength, err := buf.ReadUint16()
	if err != nil {
		return Header{}, fmt.Errorf("reading body length: %w", err)
	}
	return Header{MessageID: MessageID(id), BodyLength: bodyLength}, nil
}

// EncodeCommand builds the wire bytes for a command sent to the server: a
// 4-byte little-endian header (message id, body length = len(payload)+1)
// followed by the UTF-8 payload and a trailing NUL.
//
// Per spec.md §4.E, REQUEST_MODELDEF, REQUEST_FRAMEOFDATA and KEEPALIVE
// always carry an empty payload, and CONNECT always carries "Ping",
// regardless of what the caller passes in.
func EncodeCommand(id MessageID, payload string) []byte {
	switch id {
	case MessageRequestModelDef, MessageRequestFrameOfData, MessageKeepAlive:
		payload = ""
	case MessageConnect:
		payload = "Ping"
	}

	body := make([]byte, 0, len(payload)+1)
	body = append(body, payload...)
	body = append(body, 0)

	out := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[HeaderSize:], body)
	return out
}

// DecodeCommand parses bytes produced by EncodeCommand back into their
// id, declared body length, and payload (without the trailing NUL). It is
// used by tests exercising the command-framing round-trip property, and by
// the fake server harness in internal/natnettest.
func DecodeCommand(data []byte) (id MessageID, bodyLength uint16, payload string, err error) {
	buf := NewBuffer(data)
	rawID, err := buf.ReadUint16()
	if err != nil {
		return 0, 0, "", fmt.Errorf("reading message id: %w", err)
	}
	rawLen, err := buf.ReadUint16()
	if err != nil {
		return 0, 0, "", fmt.Errorf("reading body length: %w", err)
	}
	str, err := buf.ReadString()
	if err != nil {
		return 0, 0, "", fmt.Errorf("reading payload: %w", err)
	}
	return MessageID(rawID), rawLen, str, nil
}
