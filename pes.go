package tsmux

import "bytes"

// PES stream_id values (spec §4.4), dispatched from StreamType rather than
// hand-picked per call site, grounded in data_pes.go's StreamID* constants
// and hasPESOptionalHeader/IsVideoStream dispatch.
const (
	streamIDVideo        uint8 = 0xE0
	streamIDAudio         uint8 = 0xC0
	streamIDPrivateStream1 uint8 = 0xFC // used here for SCTE-35 per spec §4.4
)

// PTS/DTS presence flags (spec §4.4).
const (
	ptsDTSFlagsNone uint8 = 0b00
	ptsDTSFlagsPTS  uint8 = 0b10
	ptsDTSFlagsBoth uint8 = 0b11
)

// streamIDForStreamType derives the PES stream_id from a resolved codec
// identity (spec §4.4).
func streamIDForStreamType(rst ResolvedStreamType) uint8 {
	switch rst {
	case ResolvedH264, ResolvedH265:
		return streamIDVideo
	case ResolvedSCTE35:
		return streamIDPrivateStream1
	default:
		return streamIDAudio
	}
}

// isVideoStreamID reports whether PES_packet_length must be left
// unbounded (0) per spec §4.4.
func isVideoStreamID(streamID uint8) bool { return streamID == streamIDVideo }

// PESOptionalHeader carries the PTS/DTS presence and values this engine
// cares about (spec §4.4); ESCR, ES rate, DSM trick mode, and the other
// teacher-side optional fields are out of scope per spec.md §1.
type PESOptionalHeader struct {
	PTSDTSIndicator uint8 // ptsDTSFlags{None,PTS,Both}
	PTS             *ClockReference
	DTS             *ClockReference
}

// PESHeader is a decoded (or about-to-be-encoded) PES packet header (spec
// §4.4), grounded in data_pes.go's PESHeader/PESOptionalHeader trimmed to
// the fields spec.md names.
type PESHeader struct {
	StreamID       uint8
	PacketLength   uint16
	OptionalHeader *PESOptionalHeader
}

// ninetyKHzFromHost converts a host-timescale timestamp to the 90 kHz wire
// timescale, flooring toward zero (spec §4.4, Timestamp conversion). If
// epoch is non-nil, ts is first made relative to it.
func ninetyKHzFromHost(ts int64, hostTimescale int64, epoch *int64) uint64 {
	if epoch != nil {
		ts -= *epoch
	}
	if hostTimescale <= 0 {
		hostTimescale = 1
	}
	v := ts * 90000 / hostTimescale
	if v < 0 {
		return 0
	}
	return uint64(v) & ninetyKHzMask
}

// encodePESHeaderAndOptional writes packet_start_code_prefix, stream_id,
// PES_packet_length and (when present) the optional header with PTS/DTS,
// returning the encoded bytes.
func encodePESHeaderAndOptional(h *PESHeader) ([]byte, error) {
	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	bw.writeN(uint32(0x000001), 24)
	bw.writeU8(h.StreamID)
	bw.writeU16(h.PacketLength)

	opt := h.OptionalHeader
	if opt == nil {
		opt = &PESOptionalHeader{}
	}
	bw.writeN(uint8(0b10), 2) // marker bits
	bw.writeN(uint8(0), 2)    // PES_scrambling_control
	bw.writeBool(false)       // PES_priority
	bw.writeBool(false)       // data_alignment_indicator
	bw.writeBool(false)       // copyright
	bw.writeBool(false)       // original_or_copy

	bw.writeN(opt.PTSDTSIndicator, 2)
	bw.writeBool(false) // ESCR_flag
	bw.writeBool(false) // ES_rate_flag
	bw.writeBool(false) // DSM_trick_mode_flag
	bw.writeBool(false) // additional_copy_info_flag
	bw.writeBool(false) // PES_CRC_flag
	bw.writeBool(false) // PES_extension_flag

	headerDataLength := pesOptionalHeaderDataLength(opt.PTSDTSIndicator)
	bw.writeU8(headerDataLength)

	switch opt.PTSDTSIndicator {
	case ptsDTSFlagsPTS:
		writePTSOrDTSGroup(bw, 0b0010, opt.PTS)
	case ptsDTSFlagsBoth:
		writePTSOrDTSGroup(bw, 0b0011, opt.PTS)
		writePTSOrDTSGroup(bw, 0b0001, opt.DTS)
	}

	if err := bw.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pesOptionalHeaderDataLength(ptsDTSIndicator uint8) uint8 {
	switch ptsDTSIndicator {
	case ptsDTSFlagsPTS:
		return 5
	case ptsDTSFlagsBoth:
		return 10
	default:
		return 0
	}
}

// writePTSOrDTSGroup writes one 5-byte PTS/DTS group with the given
// 4-bit leading flag ('0010', '0011', or '0001') per H.222.0 §2.4.3.6.
func writePTSOrDTSGroup(bw *bitsWriter, flag uint8, cr *ClockReference) {
	base := uint64(0)
	if cr != nil {
		base = cr.Base
	}
	bw.writeN(flag, 4)
	bw.writeN(uint8(base>>30)&0x7, 3)
	bw.writeBool(true)
	bw.writeN(uint16(base>>15)&0x7FFF, 15)
	bw.writeBool(true)
	bw.writeN(uint16(base)&0x7FFF, 15)
	bw.writeBool(true)
}

// EncodePESPayload builds the full PES payload (header through elementary
// data) for one access unit (spec §4.4). hostTimescale is the number of
// host ticks per second au.PTS/au.DTS are expressed in; epoch, if non-nil,
// is subtracted before conversion to the 90 kHz wire timescale (spec §4.10,
// PTS/DTS epoch-offset rule).
func EncodePESPayload(au *AccessUnit, hostTimescale int64, epoch *int64) ([]byte, error) {
	streamID := streamIDForStreamType(ResolveStreamType(au.StreamType, au.Descriptors))

	var opt *PESOptionalHeader
	switch {
	case au.PTS != nil && au.DTS != nil:
		pts := clockReferenceFromNinetyKHz(ninetyKHzFromHost(*au.PTS, hostTimescale, epoch))
		dts := clockReferenceFromNinetyKHz(ninetyKHzFromHost(*au.DTS, hostTimescale, epoch))
		opt = &PESOptionalHeader{PTSDTSIndicator: ptsDTSFlagsBoth, PTS: &pts, DTS: &dts}
	case au.PTS != nil:
		pts := clockReferenceFromNinetyKHz(ninetyKHzFromHost(*au.PTS, hostTimescale, epoch))
		opt = &PESOptionalHeader{PTSDTSIndicator: ptsDTSFlagsPTS, PTS: &pts}
	default:
		opt = &PESOptionalHeader{PTSDTSIndicator: ptsDTSFlagsNone}
	}

	headerLen := 9 + int(pesOptionalHeaderDataLength(opt.PTSDTSIndicator))
	var packetLength uint16
	if !isVideoStreamID(streamID) {
		total := headerLen - 6 + len(au.Payload)
		if total <= 0xFFFF {
			packetLength = uint16(total)
		}
	}

	hdr := &PESHeader{StreamID: streamID, PacketLength: packetLength, OptionalHeader: opt}
	head, err := encodePESHeaderAndOptional(hdr)
	if err != nil {
		return nil, err
	}
	return append(head, au.Payload...), nil
}

// DecodePESHeader parses a PES header from the start of data (the leading
// TS packet's payload for one access unit) and returns it alongside the
// byte offset at which elementary-stream data begins. Per spec §4.4, the
// elementary-stream bytes themselves are not copied; callers slice data[off:].
func DecodePESHeader(data []byte) (*PESHeader, int, error) {
	r := NewBitReader(data)
	prefix := r.ReadBits(24)
	if prefix != 0x000001 {
		return nil, 0, ErrPESBadStartCode
	}
	h := &PESHeader{}
	h.StreamID = r.ReadU8()
	h.PacketLength = r.ReadU16BE()

	r.ReadBits(2) // marker bits
	r.ReadBits(2) // PES_scrambling_control
	r.ReadBool()  // PES_priority
	r.ReadBool()  // data_alignment_indicator
	r.ReadBool()  // copyright
	r.ReadBool()  // original_or_copy

	ptsDTSIndicator := uint8(r.ReadBits(2))
	r.ReadBool() // ESCR_flag
	r.ReadBool() // ES_rate_flag
	r.ReadBool() // DSM_trick_mode_flag
	r.ReadBool() // additional_copy_info_flag
	r.ReadBool() // PES_CRC_flag
	r.ReadBool() // PES_extension_flag

	headerDataLength := int(r.ReadU8())
	headerDataStart := r.BitsRead()

	opt := &PESOptionalHeader{PTSDTSIndicator: ptsDTSIndicator}
	switch ptsDTSIndicator {
	case ptsDTSFlagsPTS:
		pts := readPTSOrDTSGroup(r)
		opt.PTS = &pts
	case ptsDTSFlagsBoth:
		pts := readPTSOrDTSGroup(r)
		dts := readPTSOrDTSGroup(r)
		opt.PTS = &pts
		opt.DTS = &dts
	}
	h.OptionalHeader = opt

	if r.Err() != nil {
		return nil, 0, r.Err()
	}
	off := int(headerDataStart)/8 + headerDataLength
	return h, off, nil
}

func readPTSOrDTSGroup(r *BitReader) ClockReference {
	r.ReadBits(4) // leading flag, already dispatched by caller
	high := r.ReadBits(3)
	r.ReadBool() // marker
	mid := r.ReadBits(15)
	r.ReadBool() // marker
	low := r.ReadBits(15)
	r.ReadBool() // marker
	base := high<<30 | mid<<15 | low
	return clockReferenceFromNinetyKHz(base)
}
