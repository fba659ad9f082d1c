package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFramingRoundTrip(t *testing.T) {
	cases := []struct {
		id      MessageID
		payload string
	}{
		{MessageRequest, "TimelinePlay"},
		{MessageRequest, "Bitstream,3.0"},
		{MessageConnect, "ignored-forced-to-ping"},
		{MessageKeepAlive, "ignored-forced-to-empty"},
		{MessageRequestModelDef, "ignored-forced-to-empty"},
		{MessageRequestFrameOfData, "ignored-forced-to-empty"},
	}

	for _, tc := range cases {
		encoded := EncodeCommand(tc.id, tc.payload)
		id, bodyLength, payload, err := DecodeCommand(encoded)
		require.NoError(t, err)
		require.Equal(t, tc.id, id)

		expectedPayload := tc.payload
		switch tc.id {
		case MessageConnect:
			expectedPayload = "Ping"
		case MessageKeepAlive, MessageRequestModelDef, MessageRequestFrameOfData:
			expectedPayload = ""
		}
		require.Equal(t, expectedPayload, payload)
		require.Equal(t, uint16(len(expectedPayload)+1), bodyLength)
	}
}

func TestReadHeader(t *testing.T) {
	buf := NewBuffer([]byte{0x07, 0x00, 0x10, 0x00, 0xAA})
	h, err := ReadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, MessageFrameOfData, h.MessageID)
	require.Equal(t, uint16(0x10), h.BodyLength)
	require.Equal(t, 4, buf.Pos())
}
