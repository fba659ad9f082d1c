package protocol

import (
	"fmt"

	"github.com/natnetgo/natnet/natnet/version"
	"github.com/natnetgo/natnet/natnet/wire"
)

func readVec3(buf *wire.Buffer) (Vec3, error) {
	vals, err := buf.ReadFloat32Array(3)
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{vals[0], vals[1], vals[2]}, nil
}

func readVec4(buf *wire.Buffer) (Vec4, error) {
	vals, err := buf.ReadFloat32Array(4)
	if err != nil {
		return Vec4{}, err
	}
	return Vec4{vals[0], vals[1], vals[2], vals[3]}, nil
}

// DecodeFramePrefix reads the 4-byte frame sequence number.
func DecodeFramePrefix(buf *wire.Buffer, _ version.Version) (FramePrefix, error) {
	n, err := buf.ReadUint32()
	if err != nil {
		return FramePrefix{}, fmt.Errorf("frame prefix: %w", err)
	}
	return FramePrefix{FrameNumber: n}, nil
}

// DecodeMarkerSet reads a named model and its ordered marker positions.
func DecodeMarkerSet(buf *wire.Buffer, _ version.Version) (MarkerSet, error) {
	name, err := buf.ReadString()
	if err != nil {
		return MarkerSet{}, fmt.Errorf("marker set name: %w", err)
	}
	count, err := buf.ReadUint32()
	if err != nil {
		return MarkerSet{}, fmt.Errorf("marker set count: %w", err)
	}
	positions := make([]Vec3, count)
	for i := range positions {
		pos, err := readVec3(buf)
		if err != nil {
			return MarkerSet{}, fmt.Errorf("marker set %q position %d: %w", name, i, err)
		}
		positions[i] = pos
	}
	return MarkerSet{ModelName: name, Positions: positions}, nil
}

// DecodeRigidBody reads one rigid body pose, with its version-gated legacy
// marker list, marker_error, and tracking_valid bit.
func DecodeRigidBody(buf *wire.Buffer, wireVersion version.Version) (RigidBody, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return RigidBody{}, fmt.Errorf("rigid body id: %w", err)
	}
	pos, err := readVec3(buf)
	if err != nil {
		return RigidBody{}, fmt.Errorf("rigid body %d position: %w", id, err)
	}
	rot, err := readVec4(buf)
	if err != nil {
		return RigidBody{}, fmt.Errorf("rigid body %d orientation: %w", id, err)
	}

	var markers []RigidBodyMarker
	if wireVersion.Less(minVersionEmbeddedMarkersGone) {
		count, err := buf.ReadUint32()
		if err != nil {
			return RigidBody{}, fmt.Errorf("rigid body %d marker count: %w", id, err)
		}
		positions := make([]Vec3, count)
		for i := range positions {
			p, err := readVec3(buf)
			if err != nil {
				return RigidBody{}, fmt.Errorf("rigid body %d marker %d position: %w", id, i, err)
			}
			positions[i] = p
		}

		markers = make([]RigidBodyMarker, count)
		if wireVersion.GreaterOrEqual(minVersionRigidBodyMarkerIDs) {
			for i := range markers {
				markerID, err := buf.ReadUint32()
				if err != nil {
					return RigidBody{}, fmt.Errorf("rigid body %d marker %d id: %w", id, i, err)
				}
				markers[i].ID = &markerID
			}
			for i := range markers {
				size, err := buf.ReadFloat32()
				if err != nil {
					return RigidBody{}, fmt.Errorf("rigid body %d marker %d size: %w", id, i, err)
				}
				markers[i].Size = &size
			}
		}
		for i := range markers {
			markers[i].Position = positions[i]
		}
	}

	var markerError *float32
	if wireVersion.GreaterOrEqual(minVersionMarkerError) {
		v, err := buf.ReadFloat32()
		if err != nil {
			return RigidBody{}, fmt.Errorf("rigid body %d marker error: %w", id, err)
		}
		markerError = &v
	}

	var trackingValid *bool
	if wireVersion.GreaterOrEqual(minVersionTrackingValid) {
		param, err := buf.ReadUint16()
		if err != nil {
			return RigidBody{}, fmt.Errorf("rigid body %d tracking param: %w", id, err)
		}
		valid := param&0x01 != 0
		trackingValid = &valid
	}

	return RigidBody{
		ID:            id,
		Position:      pos,
		Orientation:   rot,
		Markers:       markers,
		MarkerError:   markerError,
		TrackingValid: trackingValid,
	}, nil
}

// DecodeSkeleton reads an id and its ordered rigid bodies.
func DecodeSkeleton(buf *wire.Buffer, wireVersion version.Version) (Skeleton, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return Skeleton{}, fmt.Errorf("skeleton id: %w", err)
	}
	count, err := buf.ReadUint32()
	if err != nil {
		return Skeleton{}, fmt.Errorf("skeleton %d rigid body count: %w", id, err)
	}
	bodies := make([]RigidBody, count)
	for i := range bodies {
		rb, err := DecodeRigidBody(buf, wireVersion)
		if err != nil {
			return Skeleton{}, fmt.Errorf("skeleton %d rigid body %d: %w", id, i, err)
		}
		bodies[i] = rb
	}
	return Skeleton{ID: id, RigidBodies: bodies}, nil
}

// DecodeLabeledMarker reads one labeled-marker record.
func DecodeLabeledMarker(buf *wire.Buffer, wireVersion version.Version) (LabeledMarker, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return LabeledMarker{}, fmt.Errorf("labeled marker id: %w", err)
	}
	pos, err := readVec3(buf)
	if err != nil {
		return LabeledMarker{}, fmt.Errorf("labeled marker %d position: %w", id, err)
	}
	size, err := buf.ReadFloat32()
	if err != nil {
		return LabeledMarker{}, fmt.Errorf("labeled marker %d size: %w", id, err)
	}

	var param *uint16
	if wireVersion.GreaterOrEqual(minVersionLabeledMarkerParam) {
		p, err := buf.ReadUint16()
		if err != nil {
			return LabeledMarker{}, fmt.Errorf("labeled marker %d param: %w", id, err)
		}
		param = &p
	}

	var residual *float32
	if wireVersion.GreaterOrEqual(minVersionLabeledMarkerResidual) {
		r, err := buf.ReadFloat32()
		if err != nil {
			return LabeledMarker{}, fmt.Errorf("labeled marker %d residual: %w", id, err)
		}
		residual = &r
	}

	return LabeledMarker{PackedID: id, Position: pos, Size: size, Param: param, Residual: residual}, nil
}

func readChannelArrays(buf *wire.Buffer) ([][]float32, error) {
	channelCount, err := buf.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("channel count: %w", err)
	}
	channels := make([][]float32, channelCount)
	for i := range channels {
		sampleCount, err := buf.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("channel %d sample count: %w", i, err)
		}
		samples, err := buf.ReadFloat32Array(int(sampleCount))
		if err != nil {
			return nil, fmt.Errorf("channel %d samples: %w", i, err)
		}
		channels[i] = samples
	}
	return channels, nil
}

// DecodeForcePlate reads one force plate's per-channel sample arrays.
func DecodeForcePlate(buf *wire.Buffer, _ version.Version) (ForcePlate, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return ForcePlate{}, fmt.Errorf("force plate id: %w", err)
	}
	channels, err := readChannelArrays(buf)
	if err != nil {
		return ForcePlate{}, fmt.Errorf("force plate %d: %w", id, err)
	}
	return ForcePlate{ID: id, Channels: channels}, nil
}

// DecodeDevice reads one device's per-channel sample arrays.
func DecodeDevice(buf *wire.Buffer, _ version.Version) (Device, error) {
	id, err := buf.ReadUint32()
	if err != nil {
		return Device{}, fmt.Errorf("device id: %w", err)
	}
	channels, err := readChannelArrays(buf)
	if err != nil {
		return Device{}, fmt.Errorf("device %d: %w", id, err)
	}
	return Device{ID: id, Channels: channels}, nil
}

// DecodeFrameSuffix reads the frame trailer: timecode, timestamp (widened
// to float64 regardless of wire width), the optional hi-res stamps, and the
// recording/changed flags.
func DecodeFrameSuffix(buf *wire.Buffer, wireVersion version.Version) (FrameSuffix, error) {
	timecode, err := buf.ReadUint32()
	if err != nil {
		return FrameSuffix{}, fmt.Errorf("timecode: %w", err)
	}
	timecodeSub, err := buf.ReadUint32()
	if err != nil {
		return FrameSuffix{}, fmt.Errorf("timecode sub: %w", err)
	}

	var timestamp float64
	if wireVersion.GreaterOrEqual(minVersionTimestampF64) {
		timestamp, err = buf.ReadFloat64()
	} else {
		var f32 float32
		f32, err = buf.ReadFloat32()
		timestamp = float64(f32)
	}
	if err != nil {
		return FrameSuffix{}, fmt.Errorf("timestamp: %w", err)
	}

	var cameraMidExposure, dataReceived, transmit *uint64
	if wireVersion.GreaterOrEqual(minVersionHiResStamps) {
		v, err := buf.ReadUint64()
		if err != nil {
			return FrameSuffix{}, fmt.Errorf("camera mid-exposure stamp: %w", err)
		}
		cameraMidExposure = &v

		v, err = buf.ReadUint64()
		if err != nil {
			return FrameSuffix{}, fmt.Errorf("data received stamp: %w", err)
		}
		dataReceived = &v

		v, err = buf.ReadUint64()
		if err != nil {
			return FrameSuffix{}, fmt.Errorf("transmit stamp: %w", err)
		}
		transmit = &v
	}

	param, err := buf.ReadUint16()
	if err != nil {
		return FrameSuffix{}, fmt.Errorf("frame param: %w", err)
	}

	return FrameSuffix{
		Timecode:             timecode,
		TimecodeSub:          timecodeSub,
		Timestamp:            timestamp,
		CameraMidExposure:    cameraMidExposure,
		DataReceived:         dataReceived,
		Transmit:             transmit,
		Param:                param,
		IsRecording:          param&0x01 != 0,
		TrackedModelsChanged: param&0x02 != 0,
	}, nil
}

// DecodeDataFrame walks the DataFrame field list in declaration order per
// spec.md §4.C: a field whose minimum version exceeds wireVersion is left
// absent (nil), without consuming any bytes.
func DecodeDataFrame(buf *wire.Buffer, wireVersion version.Version) (DataFrame, error) {
	var frame DataFrame
	var err error

	frame.Prefix, err = DecodeFramePrefix(buf, wireVersion)
	if err != nil {
		return DataFrame{}, err
	}

	frame.MarkerSets, err = decodeCountedSlice(buf, func() (MarkerSet, error) {
		return DecodeMarkerSet(buf, wireVersion)
	})
	if err != nil {
		return DataFrame{}, fmt.Errorf("marker sets: %w", err)
	}

	unlabeledCount, err := buf.ReadUint32()
	if err != nil {
		return DataFrame{}, fmt.Errorf("unlabeled marker count: %w", err)
	}
	frame.UnlabeledMarkers = make([]Vec3, unlabeledCount)
	for i := range frame.UnlabeledMarkers {
		v, err := readVec3(buf)
		if err != nil {
			return DataFrame{}, fmt.Errorf("unlabeled marker %d: %w", i, err)
		}
		frame.UnlabeledMarkers[i] = v
	}

	frame.RigidBodies, err = decodeCountedSlice(buf, func() (RigidBody, error) {
		return DecodeRigidBody(buf, wireVersion)
	})
	if err != nil {
		return DataFrame{}, fmt.Errorf("rigid bodies: %w", err)
	}

	if wireVersion.GreaterOrEqual(minVersionSkeletons) {
		frame.Skeletons, err = decodeCountedSlice(buf, func() (Skeleton, error) {
			return DecodeSkeleton(buf, wireVersion)
		})
		if err != nil {
			return DataFrame{}, fmt.Errorf("skeletons: %w", err)
		}
	}

	if wireVersion.GreaterOrEqual(minVersionLabeledMarkers) {
		frame.LabeledMarkers, err = decodeCountedSlice(buf, func() (LabeledMarker, error) {
			return DecodeLabeledMarker(buf, wireVersion)
		})
		if err != nil {
			return DataFrame{}, fmt.Errorf("labeled markers: %w", err)
		}
	}

	if wireVersion.GreaterOrEqual(minVersionForcePlates) {
		frame.ForcePlates, err = decodeCountedSlice(buf, func() (ForcePlate, error) {
			return DecodeForcePlate(buf, wireVersion)
		})
		if err != nil {
			return DataFrame{}, fmt.Errorf("force plates: %w", err)
		}
	}

	if wireVersion.GreaterOrEqual(minVersionDevices) {
		frame.Devices, err = decodeCountedSlice(buf, func() (Device, error) {
			return DecodeDevice(buf, wireVersion)
		})
		if err != nil {
			return DataFrame{}, fmt.Errorf("devices: %w", err)
		}
	}

	frame.Suffix, err = DecodeFrameSuffix(buf, wireVersion)
	if err != nil {
		return DataFrame{}, fmt.Errorf("frame suffix: %w", err)
	}

	return frame, nil
}

// decodeCountedSlice reads a u32 count then decodes that many elements with
// read, returning a non-nil (possibly zero-length) slice.
func decodeCountedSlice[T any](buf *wire.Buffer, read func() (T, error)) ([]T, error) {
	count, err := buf.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	out := make([]T, count)
	for i := range out {
		v, err := read()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
