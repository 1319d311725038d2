package tsmux

// esBuilderState is the Idle/Collecting state machine named in spec §4.8
// and §9 ("explicit enums ... transitions are pure functions of (state,
// event)").
type esBuilderState int

const (
	esBuilderIdle esBuilderState = iota
	esBuilderCollecting
)

// ElementaryStreamBuilder reassembles PES packets for one elementary PID
// into AccessUnits (spec §4.8), grounded in
// original_source/.../TSElementaryStreamBuilder.h for the one-per-PID
// shape and in data.go/data_pes.go for the actual PES reassembly logic.
// It holds only a PID and a stream-type/descriptor snapshot, never an
// upward pointer to its owning PMT (spec §9).
type ElementaryStreamBuilder struct {
	pid                   uint16
	streamType            StreamType
	descriptors           []*Descriptor
	state                 esBuilderState
	buf                   []byte
	headerOffset          int
	declaredTotal         int // 0 means unbounded (video, PES_packet_length == 0)
	discontinuous         bool
	randomAccess          bool
	DiscardedPacketCount  int
}

// NewElementaryStreamBuilder returns a builder for pid with no in-progress
// access unit.
func NewElementaryStreamBuilder(pid uint16) *ElementaryStreamBuilder {
	return &ElementaryStreamBuilder{pid: pid}
}

// SetStreamContext updates the stream_type/descriptor snapshot attached to
// every AccessUnit emitted from now on (spec §4.8: "carry the PMT-resolved
// stream_type and descriptor list snapshot at emission time").
func (b *ElementaryStreamBuilder) SetStreamContext(st StreamType, descriptors []*Descriptor) {
	b.streamType = st
	b.descriptors = descriptors
}

// DiscardOnGap discards any in-progress access unit on a continuity gap
// for this PID (spec §4.8: "On CC gap: discard the in-progress access unit;
// increment discarded_packet_count").
func (b *ElementaryStreamBuilder) DiscardOnGap() {
	b.state = esBuilderIdle
	b.buf = nil
	b.declaredTotal = 0
	b.DiscardedPacketCount++
}

// Feed processes one TS packet's payload for this PID. af is the packet's
// adaptation field, if any (used for discontinuity_indicator and
// random_access_indicator, spec §4.8); it may be nil. Returns every access
// unit completed as a result of this packet (normally at most one, but a
// PUSI packet that both flushes a collecting PES and immediately completes
// a new single-packet PES can yield two).
func (b *ElementaryStreamBuilder) Feed(pusi bool, payload []byte, af *AdaptationField) []*AccessUnit {
	var out []*AccessUnit
	if pusi {
		if b.state == esBuilderCollecting {
			if au := b.finalize(); au != nil {
				out = append(out, au)
			}
		}
		b.startNew(payload, af)
	} else if b.state == esBuilderCollecting {
		b.buf = append(b.buf, payload...)
	}

	if b.state == esBuilderCollecting && b.declaredTotal > 0 && len(b.buf) >= b.declaredTotal {
		if au := b.finalize(); au != nil {
			out = append(out, au)
		}
	}
	return out
}

func (b *ElementaryStreamBuilder) startNew(payload []byte, af *AdaptationField) {
	b.buf = append([]byte{}, payload...)
	b.state = esBuilderCollecting
	b.discontinuous = af != nil && af.DiscontinuityIndicator
	b.randomAccess = af != nil && af.RandomAccessIndicator
	b.headerOffset = 0
	b.declaredTotal = 0

	hdr, off, err := DecodePESHeader(b.buf)
	if err != nil {
		return
	}
	b.headerOffset = off
	if hdr.PacketLength != 0 {
		b.declaredTotal = 6 + int(hdr.PacketLength)
	}
}

// finalize emits the in-progress access unit (whatever bytes have been
// collected so far) and returns to Idle. Returns nil if no valid PES header
// was ever parsed for this collection.
func (b *ElementaryStreamBuilder) finalize() *AccessUnit {
	defer func() {
		b.state = esBuilderIdle
		b.buf = nil
		b.declaredTotal = 0
	}()

	hdr, off, err := DecodePESHeader(b.buf)
	if err != nil {
		return nil
	}
	end := len(b.buf)
	if b.declaredTotal > 0 && b.declaredTotal < end {
		end = b.declaredTotal
	}
	if off > end {
		off = end
	}
	payload := append([]byte{}, b.buf[off:end]...)

	au := &AccessUnit{
		PID:                 b.pid,
		IsDiscontinuous:     b.discontinuous,
		IsRandomAccessPoint: b.randomAccess,
		StreamType:          b.streamType,
		Descriptors:         b.descriptors,
		Payload:             payload,
	}
	if hdr.OptionalHeader != nil {
		if hdr.OptionalHeader.PTS != nil {
			v := int64(hdr.OptionalHeader.PTS.ninetyKHz())
			au.PTS = &v
		}
		if hdr.OptionalHeader.DTS != nil {
			v := int64(hdr.OptionalHeader.DTS.ninetyKHz())
			au.DTS = &v
		}
	}
	return au
}
