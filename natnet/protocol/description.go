package protocol

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

// MarkerSetDescription names the markers that make up one tracked model.
type MarkerSetDescription struct {
	Name        string
	MarkerNames []string
}

// RigidBodyMarkerDescription describes one marker attached to a rigid body,
// as carried in descriptions from protocol version 3.0 onward.
type RigidBodyMarkerDescription struct {
	// Name is nil below protocol version 4.0.
	Name        *string
	ActiveLabel uint32
	Position    Vec3
}

// RigidBodyDescription is the static definition of a tracked rigid body.
type RigidBodyDescription struct {
	// Name is nil below protocol version 2.0.
	Name     *string
	ID       uint32
	ParentID uint32
	Position Vec3
	// Markers is empty below protocol version 3.0 (marker layout lived in
	// the frame instead), not absent: a RigidBodyDescription always exists
	// once decoded.
	Markers []RigidBodyMarkerDescription
}

// SkeletonDescription is an ordered collection of named rigid body
// descriptions.
type SkeletonDescription struct {
	Name                  string
	ID                    uint32
	RigidBodyDescriptions []RigidBodyDescription
}

// ForcePlateDescription is the static layout of one force plate. It is only
// ever produced for protocol version >= 3.0.
type ForcePlateDescription struct {
	ID               uint32
	SerialNumber     string
	Width            float32
	Length           float32
	Position         Vec3
	CalibrationMatrix [12][12]float32
	Corners          [4]Vec3
	PlateType        uint32
	ChannelDataType  uint32
	ChannelNames     []string
}

// DeviceDescription is the static description of a peripheral device. It is
// only ever produced for protocol version >= 3.0.
type DeviceDescription struct {
	ID              uint32
	Name            string
	SerialNumber    string
	DeviceType      uint32
	ChannelDataType uint32
	ChannelNames    []string
}

// CameraDescription is the static pose of one tracking camera.
type CameraDescription struct {
	Name        string
	Position    Vec3
	Orientation Vec4
}

// DataDescriptions is the static scene: six ordered collections populated
// from a single tagged stream (spec.md §4.C).
type DataDescriptions struct {
	MarkerSets  []MarkerSetDescription
	RigidBodies []RigidBodyDescription
	Skeletons   []SkeletonDescription
	ForcePlates []ForcePlateDescription
	Devices     []DeviceDescription
	Cameras     []CameraDescription
}

// datasetTag identifies which of the six description types a tagged
// DataDescriptions item holds.
type datasetTag uint32

const (
	datasetMarkerSet  datasetTag = 0
	datasetRigidBody  datasetTag = 1
	datasetSkeleton   datasetTag = 2
	datasetForcePlate datasetTag = 3
	datasetDevice     datasetTag = 4
	datasetCamera     datasetTag = 5
)

// DecodeMarkerSetDescription reads a model name and its marker name list.
func DecodeMarkerSetDescription(buf *wire.Buffer, _ version.Version) (MarkerSetDescription, error) {
	name, err := buf.ReadString()
	if err != nil {
		return MarkerSetDescription{}, fmt.Errorf("marker set description name: %w", err)
	}
	count, err := buf.ReadUint32()
	if err != nil {
		return MarkerSetDescription{}, fmt.Errorf("marker set description %q marker count: %w", name, err)
	}
	names := make([]string, count)
	for i := range names {
		n, err := buf.ReadString()
		if err != nil {
			return MarkerSetDescription{}, fmt.Errorf("marker set description %q marker %d name: %w", name, i, err)
		}
		names[i] = n
	}
	return MarkerSetDescription{Name: name, MarkerNames: names}, nil
}

// decodeRigidBodyMarkerDescriptions reads the count-prefixed, columnar
// marker-description array: all positions, then all active labels, then
// (from version 4.0) all names.
func decodeRigidBodyMarkerDescriptions(buf *wire.Buffer, wireVersion version.Version) ([]RigidBodyMarkerDescription, error) {
	count, err := buf.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("marker description count: %w", err)
	}
	positions := make([]Vec3, count)
	for i := range positions {
		p, err := readVec3(buf)
		if err != nil {
			return nil, fmt.Errorf("marker description %d position: %w", i, err)
		}
		positions[i] = p
	}
	activeLabels := make([]uint32, count)
	for i := range activeLabels {
		l, err := buf.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("marker description %d active label: %w", i, err)
		}
		activeLabels[i] = l
	}
	names := make([]*string, count)
	if wireVersion.GreaterOrEqual(minVersionMarkerDescNames) {
		for i := range names {
			n, err := buf.ReadString()
			if err != nil {
				return nil, fmt.Errorf("marker description %d name: %w", i, err)
			}
			names[i] = &n
		}
	}

	out := make([]RigidBodyMarkerDescription, count)
	for i := range out {
		out[i] = RigidBodyMarkerDescription{Name: names[i], ActiveLabel: activeLabels[i], Position: positions[i]}
	}
	return out, nil
}

// DecodeRigidBodyDescription reads one rigid body's static definition.
func DecodeRigidBodyDescription(buf *wire.Buffer, wireVersion version.Version) (RigidBodyDescription, error) {
	var name *string
	if wireVersion.GreaterOrEqual(minVersionDescriptionName) {
		n, err := buf.ReadString()
		if err != nil {
			return RigidBodyDescription{}, fmt.Errorf("rigid body description name: %w", err)
		}
		name = &n
	}

	id, err := buf.ReadUint32()
	if err != nil {
		return RigidBodyDescription{}, fmt.Errorf("rigid body description id: %w", err)
	}
	parentID, err := buf.ReadUint32()
	if err != nil {
		return RigidBodyDescription{}, fmt.Errorf("rigid body description %d parent id: %w", id, err)
	}
	pos, err := readVec3(buf)
	if err != nil {
		return RigidBodyDescription{}, fmt.Errorf("rigid body description %d position: %w", id, err)
	}

	markers := []RigidBodyMarkerDescription{}
	if wireVersion.GreaterOrEqual(minVersionEmbeddedMarkerDescs) {
		markers, err = decodeRigidBodyMarkerDescriptions(buf, wireVersion)
		if err != nil {
			return RigidBodyDescription{}, fmt.Errorf("rigid body description %d: %w", id, err)
		}
	}

	return RigidBodyDescription{Name: name, ID: id, ParentID: parentID, Position: pos, Markers: markers}, nil
}

// DecodeSkeletonDescription reads a skeleton's name, id and its ordered
// rigid body descriptions.
func DecodeSkeletonDescription(buf *wire.Buffer, wireVersion version.Version) (SkeletonDescription, error) {
	name, err := buf.ReadString()
	if err != nil {
		return SkeletonDescription{}, fmt.Errorf("skeleton description name: %w", err)
	}
	id, err := buf.ReadUint32()
	if err != nil {
		return SkeletonDescription{}, fmt.Errorf("skeleton description %q id: %w", name, err)
	}
	count, err := buf.ReadUint32()
	if err != nil {
		return SkeletonDescription{}, fmt.Errorf("skeleton description %q rigid body count: %w", name, err)
	}
	bodies := make([]RigidBodyDescription, count)
	for i := range bodies {
		rb, err := DecodeRigidBodyDescription(buf, wireVersion)
		if err != nil {
			return SkeletonDescription{}, fmt.Errorf("skeleton description %q rigid body %d: %w", name, i, err)
		}
		bodies[i] = rb
	}
	return SkeletonDescription{Name: name, ID: id, RigidBodyDescriptions: bodies}, nil
}

// DecodeForcePlateDescription reads one force plate's static layout. It
// returns (zero-value, nil) for protocol versions below 3.0; callers must
// check wireVersion before relying on the result being present, mirroring
// how DataDescriptions.ForcePlates is only ever populated at 3.0+.
func DecodeForcePlateDescription(buf *wire.Buffer, wireVersion version.Version) (ForcePlateDescription, error) {
	if wireVersion.Less(minVersionForcePlateDeviceDesc) {
		return ForcePlateDescription{}, nil
	}

	id, err := buf.ReadUint32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description id: %w", err)
	}
	serial, err := buf.ReadString()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d serial: %w", id, err)
	}
	width, err := buf.ReadFloat32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d width: %w", id, err)
	}
	length, err := buf.ReadFloat32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d length: %w", id, err)
	}
	origin, err := readVec3(buf)
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d origin: %w", id, err)
	}

	calFlat, err := buf.ReadFloat32Array(12 * 12)
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d calibration matrix: %w", id, err)
	}
	var cal [12][12]float32
	for row := 0; row < 12; row++ {
		copy(cal[row][:], calFlat[row*12:(row+1)*12])
	}

	cornersFlat, err := buf.ReadFloat32Array(4 * 3)
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d corners: %w", id, err)
	}
	var corners [4]Vec3
	for i := 0; i < 4; i++ {
		corners[i] = Vec3{cornersFlat[i*3], cornersFlat[i*3+1], cornersFlat[i*3+2]}
	}

	plateType, err := buf.ReadUint32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d plate type: %w", id, err)
	}
	channelDataType, err := buf.ReadUint32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d channel data type: %w", id, err)
	}
	channelCount, err := buf.ReadUint32()
	if err != nil {
		return ForcePlateDescription{}, fmt.Errorf("force plate description %d channel count: %w", id, err)
	}
	channels := make([]string, channelCount)
	for i := range channels {
		c, err := buf.ReadString()
		if err != nil {
			return ForcePlateDescription{}, fmt.Errorf("force plate description %d channel %d name: %w", id, i, err)
		}
		channels[i] = c
	}

	return ForcePlateDescription{
		ID: id, SerialNumber: serial, Width: width, Length: length, Position: origin,
		CalibrationMatrix: cal, Corners: corners, PlateType: plateType,
		ChannelDataType: channelDataType, ChannelNames: channels,
	}, nil
}

// DecodeDeviceDescription reads one device's static description. Like
// DecodeForcePlateDescription, it yields a zero value below protocol
// version 3.0.
func DecodeDeviceDescription(buf *wire.Buffer, wireVersion version.Version) (DeviceDescription, error) {
	if wireVersion.Less(minVersionForcePlateDeviceDesc) {
		return DeviceDescription{}, nil
	}

	id, err := buf.ReadUint32()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description id: %w", err)
	}
	name, err := buf.ReadString()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description %d name: %w", id, err)
	}
	serial, err := buf.ReadString()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description %d serial: %w", id, err)
	}
	deviceType, err := buf.ReadUint32()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description %d type: %w", id, err)
	}
	channelDataType, err := buf.ReadUint32()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description %d channel data type: %w", id, err)
	}
	channelCount, err := buf.ReadUint32()
	if err != nil {
		return DeviceDescription{}, fmt.Errorf("device description %d channel count: %w", id, err)
	}
	channels := make([]string, channelCount)
	for i := range channels {
		c, err := buf.ReadString()
		if err != nil {
			return DeviceDescription{}, fmt.Errorf("device description %d channel %d name: %w", id, i, err)
		}
		channels[i] = c
	}

	return DeviceDescription{
		ID: id, Name: name, SerialNumber: serial, DeviceType: deviceType,
		ChannelDataType: channelDataType, ChannelNames: channels,
	}, nil
}

// DecodeCameraDescription reads one camera's name and pose.
func DecodeCameraDescription(buf *wire.Buffer, _ version.Version) (CameraDescription, error) {
	name, err := buf.ReadString()
	if err != nil {
		return CameraDescription{}, fmt.Errorf("camera description name: %w", err)
	}
	pos, err := readVec3(buf)
	if err != nil {
		return CameraDescription{}, fmt.Errorf("camera description %q position: %w", name, err)
	}
	orientation, err := readVec4(buf)
	if err != nil {
		return CameraDescription{}, fmt.Errorf("camera description %q orientation: %w", name, err)
	}
	return CameraDescription{Name: name, Position: pos, Orientation: orientation}, nil
}

// DecodeDataDescriptions reads the tagged dataset stream (spec.md §4.C). An
// unknown tag stops processing further items, logs a warning naming the
// stop position, and returns everything decoded up to that point.
func DecodeDataDescriptions(buf *wire.Buffer, wireVersion version.Version) (DataDescriptions, error) {
	var out DataDescriptions

	datasetCount, err := buf.ReadUint32()
	if err != nil {
		return DataDescriptions{}, fmt.Errorf("dataset count: %w", err)
	}

	for i := uint32(0); i < datasetCount; i++ {
		rawTag, err := buf.ReadUint32()
		if err != nil {
			return DataDescriptions{}, fmt.Errorf("dataset %d/%d tag: %w", i+1, datasetCount, err)
		}

		switch datasetTag(rawTag) {
		case datasetMarkerSet:
			d, err := DecodeMarkerSetDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d marker set: %w", i+1, datasetCount, err)
			}
			out.MarkerSets = append(out.MarkerSets, d)
		case datasetRigidBody:
			d, err := DecodeRigidBodyDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d rigid body: %w", i+1, datasetCount, err)
			}
			out.RigidBodies = append(out.RigidBodies, d)
		case datasetSkeleton:
			d, err := DecodeSkeletonDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d skeleton: %w", i+1, datasetCount, err)
			}
			out.Skeletons = append(out.Skeletons, d)
		case datasetForcePlate:
			d, err := DecodeForcePlateDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d force plate: %w", i+1, datasetCount, err)
			}
			if wireVersion.GreaterOrEqual(minVersionForcePlateDeviceDesc) {
				out.ForcePlates = append(out.ForcePlates, d)
			}
		case datasetDevice:
			d, err := DecodeDeviceDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d device: %w", i+1, datasetCount, err)
			}
			if wireVersion.GreaterOrEqual(minVersionForcePlateDeviceDesc) {
				out.Devices = append(out.Devices, d)
			}
		case datasetCamera:
			d, err := DecodeCameraDescription(buf, wireVersion)
			if err != nil {
				return DataDescriptions{}, fmt.Errorf("dataset %d/%d camera: %w", i+1, datasetCount, err)
			}
			out.Cameras = append(out.Cameras, d)
		default:
			log.Warnf("natnet: unknown dataset type %d at %d/%d bytes (%d/%d datasets), stopping",
				rawTag, buf.Pos(), buf.Len(), i+1, datasetCount)
			return out, nil
		}
	}

	return out, nil
}
