package tsmux

import "errors"

// Sentinel errors returned at construction boundaries (spec §7,
// ValidationError) and from APIs where failure is a caller mistake rather
// than a stream anomaly. Anomalies observed while parsing or muxing a live
// stream never use these: they become counters, dropped units or a nil
// result instead (see ContinuityTracker, SectionAssembler, Tr101290Analyzer).
var (
	ErrPacketTooShort       = errors.New("tsmux: packet shorter than the configured packet size")
	ErrPacketBadSyncByte    = errors.New("tsmux: packet does not start with sync byte 0x47")
	ErrPacketBadAFLength    = errors.New("tsmux: adaptation field length overruns the packet")
	ErrSectionTooLong       = errors.New("tsmux: PSI section_length exceeds 1021")
	ErrSectionBadCRC        = errors.New("tsmux: PSI section CRC-32/MPEG-2 mismatch")
	ErrSectionNotSyntax     = errors.New("tsmux: PSI section has section_syntax_indicator == 0")
	ErrMuxerPIDReserved     = errors.New("tsmux: PID is in a reserved range")
	ErrMuxerPIDDuplicate    = errors.New("tsmux: PID is used by more than one role")
	ErrMuxerPIDOutOfRange   = errors.New("tsmux: PID is outside the custom range 0x0010..0x1FFE")
	ErrMuxerBadInterval     = errors.New("tsmux: interval must be positive")
	ErrMuxerNoElementary    = errors.New("tsmux: at least one elementary stream is required")
	ErrMuxerStreamNotFound  = errors.New("tsmux: elementary stream PID not found")
	ErrMuxerStreamExists    = errors.New("tsmux: elementary stream PID already registered")
	ErrBitReaderMisaligned  = errors.New("tsmux: byte-aligned read requested at a non-byte bit offset")
	ErrBitReaderOutOfRange  = errors.New("tsmux: read_bits n outside 1..32")
	ErrPESBadStartCode      = errors.New("tsmux: PES packet_start_code_prefix is not 0x000001")
)
