package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodePESPayload_VideoUnboundedLength(t *testing.T) {
	pts := int64(900)
	au := &AccessUnit{
		PID:        0x0100,
		PTS:        &pts,
		StreamType: StreamTypeH264Video,
		Payload:    []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	payload, err := EncodePESPayload(au, 90000, nil)
	assert.NoError(t, err)

	hdr, off, err := DecodePESHeader(payload)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xE0), hdr.StreamID)
	assert.Equal(t, uint16(0), hdr.PacketLength)
	assert.Equal(t, ptsDTSFlagsPTS, hdr.OptionalHeader.PTSDTSIndicator)
	assert.Equal(t, au.Payload, payload[off:])
}

func TestEncodePESPayload_AudioBoundedLength(t *testing.T) {
	pts := int64(900)
	dts := int64(900)
	au := &AccessUnit{
		PID:        0x0101,
		PTS:        &pts,
		DTS:        &dts,
		StreamType: StreamTypeAACADTS,
		Payload:    make([]byte, 100),
	}
	payload, err := EncodePESPayload(au, 90000, nil)
	assert.NoError(t, err)

	hdr, off, err := DecodePESHeader(payload)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xC0), hdr.StreamID)
	assert.NotZero(t, hdr.PacketLength)
	assert.Equal(t, ptsDTSFlagsBoth, hdr.OptionalHeader.PTSDTSIndicator)
	assert.Equal(t, len(au.Payload), len(payload)-off)
}

func TestEncodePESPayload_EpochRelativePTS(t *testing.T) {
	pts := int64(190000)
	epoch := int64(90000)
	au := &AccessUnit{StreamType: StreamTypeAACADTS, PTS: &pts, Payload: []byte{0x01}}

	payload, err := EncodePESPayload(au, 90000, &epoch)
	assert.NoError(t, err)

	hdr, _, err := DecodePESHeader(payload)
	assert.NoError(t, err)
	// (190000 - 90000) host ticks at a 90000 host timescale convert 1:1 to
	// 90 kHz wire ticks.
	assert.Equal(t, uint64(100000), hdr.OptionalHeader.PTS.ninetyKHz())
}

func TestDecodePESHeader_BadStartCode(t *testing.T) {
	_, _, err := DecodePESHeader([]byte{0x00, 0x00, 0x00, 0xE0})
	assert.ErrorIs(t, err, ErrPESBadStartCode)
}

func TestStreamIDForStreamType(t *testing.T) {
	assert.Equal(t, uint8(0xE0), streamIDForStreamType(ResolvedH264))
	assert.Equal(t, uint8(0xE0), streamIDForStreamType(ResolvedH265))
	assert.Equal(t, uint8(0xFC), streamIDForStreamType(ResolvedSCTE35))
	assert.Equal(t, uint8(0xC0), streamIDForStreamType(ResolvedAACADTS))
}
