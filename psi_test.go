package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSectionCRC_AcceptsValidSection(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	assert.NoError(t, ValidateSectionCRC(section))
}

func TestValidateSectionCRC_RejectsTamperedSection(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	section[len(section)-1] ^= 0xFF
	assert.ErrorIs(t, ValidateSectionCRC(section), ErrSectionBadCRC)
}

func TestValidateSectionCRC_RejectsTruncatedSection(t *testing.T) {
	assert.ErrorIs(t, ValidateSectionCRC([]byte{0x00, 0x01}), ErrSectionBadCRC)
}

func TestSectionAssembler_FeedCompletesInOnePacket(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	payload := append([]byte{0x00}, section...)

	a := NewSectionAssembler()
	sections := a.Feed(true, payload)
	assert.Len(t, sections, 1)
	assert.Equal(t, TableIDPAT, sections[0].TableID)
	assert.Zero(t, a.CRCErrors)
}

func TestSectionAssembler_FeedAcrossMultiplePackets(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	payload := append([]byte{0x00}, section...)

	a := NewSectionAssembler()
	first := a.Feed(true, payload[:5])
	assert.Empty(t, first)
	second := a.Feed(false, payload[5:])
	assert.Len(t, second, 1)
	assert.Equal(t, TableIDPAT, second[0].TableID)
}

func TestSectionAssembler_BadCRCIsCountedAndDropped(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	section[len(section)-1] ^= 0xFF
	payload := append([]byte{0x00}, section...)

	a := NewSectionAssembler()
	sections := a.Feed(true, payload)
	assert.Empty(t, sections)
	assert.Equal(t, 1, a.CRCErrors)
}

func TestSectionAssembler_ResetDiscardsInProgressSection(t *testing.T) {
	section := encodeSection(TableIDPAT, false, &SectionSyntaxHeader{CurrentNextIndicator: true}, []byte{0x00, 0x01, 0xE0, 0x20})
	payload := append([]byte{0x00}, section...)

	a := NewSectionAssembler()
	assert.Empty(t, a.Feed(true, payload[:5]))
	a.Reset()
	assert.Empty(t, a.Feed(false, payload[5:]))
}
