package tsmux

import "time"

// ClockReference is a composite 27 MHz program clock sample: Base counts
// 90 kHz ticks (33 bits), Ext counts 27 MHz ticks modulo 300 (9 bits). The
// full 27 MHz value is Base*300 + Ext (spec §3, PCR).
type ClockReference struct {
	Base uint64
	Ext  uint16
}

// newClockReference builds a ClockReference from its wire components.
func newClockReference(base uint64, ext uint16) ClockReference {
	return ClockReference{Base: base, Ext: ext}
}

// clockReferenceFromNinetyKHz builds a ClockReference carrying only the 90
// kHz component (Ext = 0), the common case for PTS/DTS which have no 27 MHz
// extension field on the wire.
func clockReferenceFromNinetyKHz(v uint64) ClockReference {
	return ClockReference{Base: v & 0x1FFFFFFFF}
}

// full27MHz returns the clock sample as a single 27 MHz tick count.
func (c ClockReference) full27MHz() uint64 { return c.Base*300 + uint64(c.Ext%300) }

// Duration returns the clock sample as a time.Duration since an arbitrary
// 27 MHz epoch of zero.
func (c ClockReference) Duration() time.Duration {
	return time.Duration(c.full27MHz() * 1000 / 27)
}

// Time returns the clock sample projected onto the Unix epoch, useful only
// for human-readable debugging output (cmd/tsprobe); callers that need
// wall-clock semantics must track their own epoch offset.
func (c ClockReference) Time() time.Time {
	return time.Unix(0, 0).Add(c.Duration())
}

// ninetyKHz returns the 90 kHz (Base) component alone, the unit PTS/DTS are
// expressed in on the wire.
func (c ClockReference) ninetyKHz() uint64 { return c.Base }

const (
	ninetyKHzMask = uint64(1)<<33 - 1
	pcrWrapMask   = uint64(1)<<33*300 - 1
)

// pcrLess reports whether a comes strictly before b, accounting for a
// single wraparound of the 33-bit*300 27MHz counter (spec §3: PCR
// monotonicity modulo wrap).
func pcrLess(a, b ClockReference) bool {
	av, bv := a.full27MHz(), b.full27MHz()
	const half = uint64(1) << 40 // about 11.3 h at 27 MHz, a little below half of the 2^33*300 wrap period
	if av <= bv {
		return bv-av < half
	}
	return av-bv > half
}
