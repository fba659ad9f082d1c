package natnetutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/protocol"
)

func TestPrintRigidBodiesRendersEveryRow(t *testing.T) {
	var buf bytes.Buffer
	valid := true
	bodies := []protocol.RigidBody{
		{ID: 1, Position: protocol.Vec3{1, 2, 3}, Orientation: protocol.Vec4{0, 0, 0, 1}, TrackingValid: &valid},
		{ID: 2, Position: protocol.Vec3{4, 5, 6}, Orientation: protocol.Vec4{0, 0, 0, 1}},
	}
	PrintRigidBodies(&buf, bodies)
	out := buf.String()
	require.Contains(t, out, "1")
	require.Contains(t, out, "2")
}

func TestPrintMarkerSetsRendersEveryRow(t *testing.T) {
	var buf bytes.Buffer
	sets := []protocol.MarkerSet{
		{ModelName: "All", Positions: []protocol.Vec3{{0, 0, 0}, {1, 1, 1}}},
	}
	PrintMarkerSets(&buf, sets)
	require.Contains(t, buf.String(), "All")
}
