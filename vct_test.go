package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeVCT_RoundTrip(t *testing.T) {
	d := &VCTData{
		TransportStreamID: 9,
		VersionNumber:     1,
		Terrestrial:       true,
		ProtocolVersion:   0,
		Channels: []*VCTChannel{
			{
				ShortName:          "KABC",
				MajorChannelNumber: 7,
				MinorChannelNumber: 1,
				ProgramNumber:      1,
				ServiceType:        ATSCServiceTypeDigitalTV,
				SourceID:           42,
			},
		},
	}
	b := encodeVCT(d)

	sec := decodeSectionFrame(b)
	assert.NotNil(t, sec)
	assert.Equal(t, TableIDTVCT, sec.TableID)

	got, err := decodeVCTSection(sec)
	assert.NoError(t, err)
	assert.True(t, got.Terrestrial)
	assert.Len(t, got.Channels, 1)
	assert.Equal(t, "KABC", got.Channels[0].ShortName)
	assert.Equal(t, "7.1", got.Channels[0].ChannelNumber())
	assert.Equal(t, ATSCServiceTypeDigitalTV, got.Channels[0].ServiceType)
}

func TestEncodeVCT_CableTableID(t *testing.T) {
	d := &VCTData{Terrestrial: false}
	b := encodeVCT(d)
	sec := decodeSectionFrame(b)
	assert.Equal(t, TableIDCVCT, sec.TableID)
}

func TestVCTData_ChannelForProgramNumber(t *testing.T) {
	d := &VCTData{Channels: []*VCTChannel{{ProgramNumber: 3}}}

	c, ok := d.ChannelForProgramNumber(3)
	assert.True(t, ok)
	assert.NotNil(t, c)

	_, ok = d.ChannelForProgramNumber(4)
	assert.False(t, ok)
}

func TestUTF16BEShortNameRoundTrip(t *testing.T) {
	b := encodeUTF16BEShortName("ABC")
	assert.Len(t, b, 14)
	assert.Equal(t, "ABC", decodeUTF16BEShortName(b))
}
