package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePSITable_DispatchesByTableID(t *testing.T) {
	patBytes := encodePAT(&PATData{Programs: []*PATProgram{{ProgramNumber: 1, PID: 0x100}}})
	sec := decodeSectionFrame(patBytes)
	table, err := DecodePSITable(sec)
	assert.NoError(t, err)
	assert.NotNil(t, table.PAT)
	assert.Nil(t, table.PMT)

	pmtBytes := encodePMT(&PMTData{PCRPID: 0x100})
	sec = decodeSectionFrame(pmtBytes)
	table, err = DecodePSITable(sec)
	assert.NoError(t, err)
	assert.NotNil(t, table.PMT)

	sdtBytes := encodeSDT(&SDTData{Actual: true})
	sec = decodeSectionFrame(sdtBytes)
	table, err = DecodePSITable(sec)
	assert.NoError(t, err)
	assert.NotNil(t, table.SDT)

	vctBytes := encodeVCT(&VCTData{Terrestrial: true})
	sec = decodeSectionFrame(vctBytes)
	table, err = DecodePSITable(sec)
	assert.NoError(t, err)
	assert.NotNil(t, table.VCT)
}

func TestDecodePSITable_UnsupportedTableID(t *testing.T) {
	sec := &Section{TableID: TableIDEIT, SectionSyntaxIndicator: true}
	_, err := DecodePSITable(sec)
	assert.ErrorIs(t, err, ErrPSIUnsupportedTable)
}

func TestDecodePSITable_RequiresSyntaxIndicator(t *testing.T) {
	sec := &Section{TableID: TableIDPAT, SectionSyntaxIndicator: false}
	_, err := DecodePSITable(sec)
	assert.ErrorIs(t, err, ErrSectionNotSyntax)
}
