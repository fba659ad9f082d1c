package protocol

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

// packetBuilder assembles little-endian test fixtures field by field.
type packetBuilder struct {
	buf []byte
}

func (p *packetBuilder) u16(v uint16) *packetBuilder {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	p.buf = append(p.buf, b...)
	return p
}

func (p *packetBuilder) u32(v uint32) *packetBuilder {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	p.buf = append(p.buf, b...)
	return p
}

func (p *packetBuilder) u64(v uint64) *packetBuilder {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	p.buf = append(p.buf, b...)
	return p
}

func (p *packetBuilder) f32(v float32) *packetBuilder {
	return p.u32(math.Float32bits(v))
}

func (p *packetBuilder) f64(v float64) *packetBuilder {
	return p.u64(math.Float64bits(v))
}

func (p *packetBuilder) str(s string) *packetBuilder {
	p.buf = append(p.buf, s...)
	p.buf = append(p.buf, 0)
	return p
}

func (p *packetBuilder) strStatic(s string, width int) *packetBuilder {
	field := make([]byte, width)
	copy(field, s)
	p.buf = append(p.buf, field...)
	return p
}

func (p *packetBuilder) bytes() []byte { return p.buf }

func v(components ...uint8) version.Version { return version.Must(version.New(components...)) }

func TestRigidBodyV30TrackingValidAndAbsentMarkers(t *testing.T) {
	// S2: RigidBody(id=7, pos=(1,2,3), rot=(0,0,0,1)), marker_error=0.01, param=0x01
	b := (&packetBuilder{}).
		u32(7).
		f32(1).f32(2).f32(3).
		f32(0).f32(0).f32(0).f32(1).
		f32(0.01).
		u16(0x01)
	buf := wire.NewBuffer(b.bytes())

	rb, err := DecodeRigidBody(buf, v(3, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining(), "cursor must land exactly on the declared wire width")
	require.Nil(t, rb.Markers, "markers must be absent at protocol >= 3.0")
	require.NotNil(t, rb.TrackingValid)
	require.True(t, *rb.TrackingValid)
	require.NotNil(t, rb.MarkerError)
	require.InDelta(t, 0.01, *rb.MarkerError, 1e-6)
}

func TestRigidBodyPre30EmbeddedMarkers(t *testing.T) {
	b := (&packetBuilder{}).
		u32(1).
		f32(0).f32(0).f32(0).
		f32(0).f32(0).f32(0).f32(1).
		u32(1).                // marker count
		f32(1).f32(2).f32(3). // marker position
		u32(42).               // marker id
		f32(5).                // marker size
		f32(0.25)               // marker_error (present at protocol >= 2.0)
	buf := wire.NewBuffer(b.bytes())

	rb, err := DecodeRigidBody(buf, v(2, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.Len(t, rb.Markers, 1)
	require.NotNil(t, rb.Markers[0].ID)
	require.Equal(t, uint32(42), *rb.Markers[0].ID)
	require.Nil(t, rb.TrackingValid, "tracking_valid absent below 2.6")
	require.NotNil(t, rb.MarkerError)
	require.InDelta(t, 0.25, *rb.MarkerError, 1e-6)
}

func TestLabeledMarkerFlags(t *testing.T) {
	// S3: id=(2<<16)|5, param=0x21 -> active=true, occluded=true, rest false
	id := uint32(2)<<16 | 5
	b := (&packetBuilder{}).
		u32(id).
		f32(0).f32(0).f32(0).
		f32(1.5).
		u16(0x21)
	buf := wire.NewBuffer(b.bytes())

	lm, err := DecodeLabeledMarker(buf, v(2, 6))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.EqualValues(t, 2, lm.ModelID())
	require.EqualValues(t, 5, lm.MarkerID())
	require.True(t, lm.Active())
	require.True(t, lm.Occluded())
	require.False(t, lm.PointCloudSolved())
	require.False(t, lm.ModelSolved())
	require.False(t, lm.HasModel())
	require.False(t, lm.Unlabeled())
}

func TestFrameSuffixV30HiResStamps(t *testing.T) {
	b := (&packetBuilder{}).
		u32(100).u32(0).
		f64(1.5).
		u64(10).u64(20).u64(30).
		u16(0x01)
	buf := wire.NewBuffer(b.bytes())

	suffix, err := DecodeFrameSuffix(buf, v(3, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.InDelta(t, 1.5, suffix.Timestamp, 1e-9)
	require.NotNil(t, suffix.CameraMidExposure)
	require.EqualValues(t, 10, *suffix.CameraMidExposure)
	require.True(t, suffix.IsRecording)
	require.False(t, suffix.TrackedModelsChanged)
}

func TestFrameSuffixPre27Float32Timestamp(t *testing.T) {
	b := (&packetBuilder{}).
		u32(1).u32(0).
		f32(2.5).
		u16(0)
	buf := wire.NewBuffer(b.bytes())

	suffix, err := DecodeFrameSuffix(buf, v(2, 6))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.Nil(t, suffix.CameraMidExposure)
	require.InDelta(t, 2.5, suffix.Timestamp, 1e-6)
}

func TestDataFrameSectionsAbsentBelowMinVersion(t *testing.T) {
	b := (&packetBuilder{}).
		u32(1).  // frame number
		u32(0).  // marker sets count
		u32(0).  // unlabeled marker count
		u32(0).  // rigid bodies count
		// no skeletons/labeled markers/force plates/devices at v2.0
		u32(0).u32(0). // timecode, timecode_sub
		f32(0).        // timestamp (f32 below 2.7)
		u16(0)         // param
	buf := wire.NewBuffer(b.bytes())

	frame, err := DecodeDataFrame(buf, v(2, 0))
	require.NoError(t, err)
	require.Equal(t, 0, buf.Remaining())
	require.Nil(t, frame.Skeletons)
	require.Nil(t, frame.LabeledMarkers)
	require.Nil(t, frame.ForcePlates)
	require.Nil(t, frame.Devices)
	require.NotNil(t, frame.MarkerSets, "marker_sets is always present, even when empty")
}

func TestDataFrameVersionMonotonicityEarlierFieldsIdentical(t *testing.T) {
	base := (&packetBuilder{}).
		u32(9).
		u32(0).
		u32(0).
		u32(0)
	v21 := append(append([]byte{}, base.bytes()...), (&packetBuilder{}).u32(0).bytes()...) // + skeletons count
	suffixBytes := (&packetBuilder{}).u32(0).u32(0).f32(0).u16(0).bytes()

	frame20, err := DecodeDataFrame(wire.NewBuffer(append(append([]byte{}, base.bytes()...), suffixBytes...)), v(2, 0))
	require.NoError(t, err)
	frame21, err := DecodeDataFrame(wire.NewBuffer(append(v21, suffixBytes...)), v(2, 1))
	require.NoError(t, err)

	require.Equal(t, frame20.Prefix, frame21.Prefix)
	require.Nil(t, frame20.Skeletons)
	require.NotNil(t, frame21.Skeletons)
	require.Len(t, frame21.Skeletons, 0)
}
