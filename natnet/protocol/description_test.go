package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/wire"
)

func TestRigidBodyDescriptionV30NoEmbeddedMarkers(t *testing.T) {
	// S2 modeldef: id=7, name="Hand", parent=0, pos=(0,0,0), no markers at v3
	b := (&packetBuilder{}).
		str("Hand").
		u32(7).
		u32(0).
		f32(0).f32(0).f32(0).
		u32(0) // marker description count
	buf := wire.NewBuffer(b.bytes())

	rbd, err := DecodeRigidBodyDescription(buf, v(3, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.NotNil(t, rbd.Name)
	require.Equal(t, "Hand", *rbd.Name)
	require.EqualValues(t, 7, rbd.ID)
	require.NotNil(t, rbd.Markers)
	require.Len(t, rbd.Markers, 0)
}

func TestRigidBodyDescriptionPre20NoName(t *testing.T) {
	b := (&packetBuilder{}).
		u32(3).
		u32(0).
		f32(1).f32(1).f32(1)
	buf := wire.NewBuffer(b.bytes())

	rbd, err := DecodeRigidBodyDescription(buf, v(1, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.Nil(t, rbd.Name)
	require.Len(t, rbd.Markers, 0, "markers empty (not absent) below 3.0, embedded in frame instead")
}

func TestDataDescriptionsUnknownTagStopsProcessing(t *testing.T) {
	// S6: dataset_count=3, item[1] has unknown tag=9
	item0 := (&packetBuilder{}).u32(uint32(datasetMarkerSet)).str("Feet").u32(0)
	b := (&packetBuilder{}).u32(3)
	b.buf = append(b.buf, item0.bytes()...)
	b.u32(9) // unknown tag for item 1; no further bytes are a valid decode of item 2 either
	buf := wire.NewBuffer(b.bytes())

	descs, err := DecodeDataDescriptions(buf, v(3, 0))
	require.NoError(t, err)
	require.Len(t, descs.MarkerSets, 1)
	require.Equal(t, "Feet", descs.MarkerSets[0].Name)
	require.Len(t, descs.RigidBodies, 0)
}

func TestForcePlateDescriptionAbsentBelowV3(t *testing.T) {
	buf := wire.NewBuffer(nil)
	desc, err := DecodeForcePlateDescription(buf, v(2, 9))
	require.NoError(t, err)
	require.Equal(t, ForcePlateDescription{}, desc)
	require.Equal(t, 0, buf.Pos(), "decoder must not consume bytes when the section is absent")
}
