package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodePMT_RoundTrip(t *testing.T) {
	d := &PMTData{
		ProgramNumber: 1,
		VersionNumber: 2,
		PCRPID:        0x0100,
		ElementaryStreams: []*PMTElementaryStream{
			{StreamType: StreamTypeAACADTS, ElementaryPID: 0x0101},
			{StreamType: StreamTypeH264Video, ElementaryPID: 0x0100},
		},
	}
	b := encodePMT(d)

	sec := decodeSectionFrame(b)
	assert.NotNil(t, sec)
	assert.Equal(t, TableIDPMT, sec.TableID)

	got, err := decodePMTSection(sec)
	assert.NoError(t, err)
	assert.Equal(t, uint16(1), got.ProgramNumber)
	assert.Equal(t, uint16(0x0100), got.PCRPID)
	assert.Len(t, got.ElementaryStreams, 2)
	// encodePMT sorts ascending by elementary PID
	assert.Equal(t, uint16(0x0100), got.ElementaryStreams[0].ElementaryPID)
	assert.Equal(t, StreamTypeH264Video, got.ElementaryStreams[0].StreamType)
	assert.Equal(t, uint16(0x0101), got.ElementaryStreams[1].ElementaryPID)
}

func TestPMTData_ElementaryStream(t *testing.T) {
	d := &PMTData{ElementaryStreams: []*PMTElementaryStream{{ElementaryPID: 0x0150}}}

	es, ok := d.ElementaryStream(0x0150)
	assert.True(t, ok)
	assert.NotNil(t, es)

	_, ok = d.ElementaryStream(0x0151)
	assert.False(t, ok)
}

func TestPMTElementaryStream_ResolvedType(t *testing.T) {
	es := &PMTElementaryStream{StreamType: StreamTypeH264Video}
	assert.Equal(t, ResolvedH264, es.ResolvedType())
}
