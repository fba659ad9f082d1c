// Package protocol implements the versioned NatNet wire decoders: one pure
// function per record type, each a function of a wire.Buffer and the
// server's advertised protocol version. See spec.md §3-4 for the field
// tables these decoders implement.
package protocol

import "github.com/natnetgo/natnet/natnet/version"

// Vec3 is a dense little-endian 3-float position, in declaration order.
type Vec3 [3]float32

// Vec4 is a dense little-endian 4-float quaternion (x, y, z, w).
type Vec4 [4]float32

// FramePrefix is the fixed-width header at the start of every DataFrame.
type FramePrefix struct {
	FrameNumber uint32
}

// MarkerSet is a named group of 3-D marker positions belonging to one
// tracked model.
type MarkerSet struct {
	ModelName string
	Positions []Vec3
}

// RigidBodyMarker is a single marker embedded in a RigidBody, only present
// on the wire for protocol versions below 3.0 (at 3.0+ marker layout moved
// into the description).
type RigidBodyMarker struct {
	Position Vec3
	// ID is nil for protocol versions below 2.0, where no marker id was sent.
	ID *uint32
	// Size is nil for protocol versions below 2.0.
	Size *float32
}

// RigidBody is a tracked object's pose, plus version-gated extras.
type RigidBody struct {
	ID          uint32
	Position    Vec3
	Orientation Vec4
	// Markers is nil (absent) at protocol version >= 3.0, where marker data
	// lives in the description instead; it is non-nil (possibly empty) below
	// 3.0.
	Markers []RigidBodyMarker
	// MarkerError is nil below protocol version 2.0.
	MarkerError *float32
	// TrackingValid is nil below protocol version 2.6.
	TrackingValid *bool
}

// Skeleton is an ordered collection of named rigid bodies.
type Skeleton struct {
	ID          uint32
	RigidBodies []RigidBody
}

// Labeled marker status bits, derived from LabeledMarker.Param.
const (
	labeledMarkerOccluded        = 0x01
	labeledMarkerPointCloudSolve = 0x02
	labeledMarkerModelSolved     = 0x04
	labeledMarkerHasModel        = 0x08
	labeledMarkerUnlabeled       = 0x10
	labeledMarkerActive          = 0x20
)

// LabeledMarker is a 3-D point whose packed id encodes (model, marker) plus
// status bits.
type LabeledMarker struct {
	// PackedID's high 16 bits are the model id, low 16 bits the marker id.
	PackedID uint32
	Position Vec3
	Size     float32
	// Param is nil below protocol version 2.6; the status-flag accessors
	// below all report false when Param is nil.
	Param *uint16
	// Residual is nil below protocol version 3.0.
	Residual *float32
}

// ModelID is the high 16 bits of PackedID.
func (m LabeledMarker) ModelID() uint32 { return m.PackedID >> 16 }

// MarkerID is the low 16 bits of PackedID.
func (m LabeledMarker) MarkerID() uint32 { return m.PackedID & 0x0000ffff }

func (m LabeledMarker) flag(mask uint16) bool {
	if m.Param == nil {
		return false
	}
	return *m.Param&mask != 0
}

// Occluded reports whether the marker was occluded this frame.
func (m LabeledMarker) Occluded() bool { return m.flag(labeledMarkerOccluded) }

// PointCloudSolved reports whether the marker was solved from the point cloud.
func (m LabeledMarker) PointCloudSolved() bool { return m.flag(labeledMarkerPointCloudSolve) }

// ModelSolved reports whether the marker was solved using the model.
func (m LabeledMarker) ModelSolved() bool { return m.flag(labeledMarkerModelSolved) }

// HasModel reports whether the marker belongs to a tracked model.
func (m LabeledMarker) HasModel() bool { return m.flag(labeledMarkerHasModel) }

// Unlabeled reports whether the marker carries no label.
func (m LabeledMarker) Unlabeled() bool { return m.flag(labeledMarkerUnlabeled) }

// Active reports whether the marker is an active (LED) marker.
func (m LabeledMarker) Active() bool { return m.flag(labeledMarkerActive) }

// ForcePlate is a per-channel array of floating-point samples for one frame.
type ForcePlate struct {
	ID       uint32
	Channels [][]float32
}

// Device is a per-channel array of floating-point samples for one frame,
// from a non-force-plate peripheral (e.g. an analog/digital I/O box).
type Device struct {
	ID       uint32
	Channels [][]float32
}

// FrameSuffix is the fixed trailer appended to every DataFrame.
type FrameSuffix struct {
	Timecode    uint32
	TimecodeSub uint32
	// Timestamp is read as float32 below protocol version 2.7 and float64
	// at 2.7+; it is always widened to float64 here.
	Timestamp float64
	// CameraMidExposure, DataReceived and Transmit are nil below protocol
	// version 3.0.
	CameraMidExposure *uint64
	DataReceived      *uint64
	Transmit          *uint64
	Param             uint16
	IsRecording       bool
	TrackedModelsChanged bool
}

// DataFrame is one decoded frame of tracking data. Each slice field is nil
// when the server's protocol version is below that field's minimum version
// (an "absent" section per spec.md §3), and non-nil (possibly zero-length)
// otherwise.
type DataFrame struct {
	Prefix           FramePrefix
	MarkerSets       []MarkerSet
	UnlabeledMarkers []Vec3
	RigidBodies      []RigidBody
	// Skeletons is absent below protocol version 2.1.
	Skeletons []Skeleton
	// LabeledMarkers is absent below protocol version 2.3.
	LabeledMarkers []LabeledMarker
	// ForcePlates is absent below protocol version 2.9.
	ForcePlates []ForcePlate
	// Devices is absent below protocol version 2.11.
	Devices []Device
	Suffix  FrameSuffix
}

// minVersion thresholds for DataFrame's optional sections, per spec.md §3.
var (
	minVersionSkeletons      = version.Must(version.New(2, 1))
	minVersionLabeledMarkers = version.Must(version.New(2, 3))
	minVersionForcePlates    = version.Must(version.New(2, 9))
	minVersionDevices        = version.Must(version.New(2, 11))

	minVersionMarkerError        = version.Must(version.New(2))
	minVersionTrackingValid      = version.Must(version.New(2, 6))
	minVersionRigidBodyMarkerIDs = version.Must(version.New(2))
	minVersionEmbeddedMarkersGone = version.Must(version.New(3))

	minVersionLabeledMarkerParam    = version.Must(version.New(2, 6))
	minVersionLabeledMarkerResidual = version.Must(version.New(3))

	minVersionTimestampF64  = version.Must(version.New(2, 7))
	minVersionHiResStamps   = version.Must(version.New(3))

	minVersionDescriptionName      = version.Must(version.New(2))
	minVersionEmbeddedMarkerDescs  = version.Must(version.New(3))
	minVersionMarkerDescNames      = version.Must(version.New(4))
	minVersionForcePlateDeviceDesc = version.Must(version.New(3))
)
