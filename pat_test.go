package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodePAT_RoundTrip(t *testing.T) {
	d := &PATData{
		TransportStreamID: 7,
		VersionNumber:     3,
		Programs: []*PATProgram{
			{ProgramNumber: 2, PID: 0x0101},
			{ProgramNumber: 1, PID: 0x0100},
		},
	}
	b := encodePAT(d)

	sec := decodeSectionFrame(b)
	assert.NotNil(t, sec)
	assert.Equal(t, TableIDPAT, sec.TableID)

	got, err := decodePATSection(sec)
	assert.NoError(t, err)
	assert.Equal(t, uint16(7), got.TransportStreamID)
	assert.Equal(t, uint8(3), got.VersionNumber)
	// encodePAT sorts ascending by program number
	assert.Equal(t, []*PATProgram{
		{ProgramNumber: 1, PID: 0x0100},
		{ProgramNumber: 2, PID: 0x0101},
	}, got.Programs)
}

func TestPATData_ProgramMapPID(t *testing.T) {
	d := &PATData{Programs: []*PATProgram{{ProgramNumber: 5, PID: 0x0200}}}

	pid, ok := d.ProgramMapPID(5)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x0200), pid)

	_, ok = d.ProgramMapPID(9)
	assert.False(t, ok)
}

func TestDecodePATSection_RequiresSyntax(t *testing.T) {
	sec := &Section{TableID: TableIDPAT}
	_, err := decodePATSection(sec)
	assert.ErrorIs(t, err, ErrSectionNotSyntax)
}
