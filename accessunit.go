package tsmux

// AccessUnit is one codec-level frame or audio sample set, carried inside
// one PES packet (spec §3, AccessUnit; GLOSSARY). Per spec §9's Open
// Questions, this is the single canonical shape: PTS/DTS are host-timescale
// ticks (the application picks the timescale; wire serialization happens in
// PesCodec), and both IsDiscontinuous/IsRandomAccessPoint/Descriptors are
// always present rather than split across historical variants.
type AccessUnit struct {
	PID                 uint16
	PTS                 *int64
	DTS                 *int64
	IsDiscontinuous     bool
	IsRandomAccessPoint bool
	StreamType          StreamType
	Descriptors         []*Descriptor
	Payload             []byte
}

// ElementaryStream is the PMT-owned description of one elementary PID
// (spec §3, ElementaryStream). The muxer advances ContinuityCounter
// monotonically per emitted packet on that PID; PMT exclusively owns its
// ElementaryStream values by index (PID), never by upward pointer (spec
// §9, Cyclic references and ownership).
type ElementaryStream struct {
	PID               uint16
	StreamType        StreamType
	Descriptors       []*Descriptor
	ContinuityCounter uint8
}
