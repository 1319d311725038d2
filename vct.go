package tsmux

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf16"
)

// ATSC service_type values (A/65 table 6.7), grounded in
// original_source/.../TSAtscVirtualChannelTable.h's TSAtscServiceType.
const (
	ATSCServiceTypeAnalogTV  uint8 = 0x01
	ATSCServiceTypeDigitalTV uint8 = 0x02
	ATSCServiceTypeAudio     uint8 = 0x03
	ATSCServiceTypeData      uint8 = 0x04
	ATSCServiceTypeSoftware  uint8 = 0x05
)

// VCTChannel is one channel entry in an ATSC VCT (spec §3, VCT), grounded
// in original_source/.../TSAtscVirtualChannelTable.h's TSAtscVirtualChannel.
type VCTChannel struct {
	ShortName          string // up to 7 UTF-16 code units
	MajorChannelNumber uint16 // 10 bits
	MinorChannelNumber uint16 // 10 bits
	ModulationMode     uint8
	CarrierFrequency   uint32
	ChannelTSID        uint16
	ProgramNumber      uint16
	ETMLocation        uint8 // 2 bits
	AccessControlled   bool
	Hidden             bool
	HideGuide          bool
	ServiceType        uint8 // 6 bits
	SourceID           uint16
	Descriptors        []*Descriptor
}

// ChannelNumber formats the major/minor pair as a "5.1"-style string,
// supplementing a feature spec.md's distillation dropped (SPEC_FULL §5),
// grounded in channelNumberString.
func (c *VCTChannel) ChannelNumber() string {
	return fmt.Sprintf("%d.%d", c.MajorChannelNumber, c.MinorChannelNumber)
}

// VCTData is a fully decoded ATSC VCT (TVCT or CVCT; spec §3, VCT),
// grounded in TSAtscVirtualChannelTable.
type VCTData struct {
	TransportStreamID      uint16
	VersionNumber          uint8
	Terrestrial            bool // true: TVCT (0xC8); false: CVCT (0xC9)
	ProtocolVersion        uint8
	Channels               []*VCTChannel
	AdditionalDescriptors  []*Descriptor
}

// ChannelForProgramNumber finds the channel mapped to programNumber, if
// any (grounded in channelForProgramNumber:).
func (d *VCTData) ChannelForProgramNumber(programNumber uint16) (*VCTChannel, bool) {
	for _, c := range d.Channels {
		if c.ProgramNumber == programNumber {
			return c, true
		}
	}
	return nil, false
}

func decodeUTF16BEShortName(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i])<<8 | uint16(b[i+1])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func encodeUTF16BEShortName(s string) []byte {
	units := utf16.Encode([]rune(s))
	if len(units) > 7 {
		units = units[:7]
	}
	out := make([]byte, 14)
	for i, u := range units {
		out[i*2] = byte(u >> 8)
		out[i*2+1] = byte(u)
	}
	return out
}

// decodeVCTSection parses a TVCT/CVCT section body (spec §3, VCT).
func decodeVCTSection(sec *Section) (*VCTData, error) {
	if sec.Syntax == nil {
		return nil, ErrSectionNotSyntax
	}
	d := &VCTData{
		TransportStreamID: sec.Syntax.TableIDExtension,
		VersionNumber:     sec.Syntax.VersionNumber,
		Terrestrial:       sec.TableID == TableIDTVCT,
	}
	r := NewBitReader(sec.Data)
	d.ProtocolVersion = r.ReadU8()
	numChannels := int(r.ReadU8())

	for i := 0; i < numChannels; i++ {
		c := &VCTChannel{}
		c.ShortName = decodeUTF16BEShortName(r.ReadBytes(14))
		r.ReadBits(4) // reserved
		c.MajorChannelNumber = uint16(r.ReadBits(10))
		c.MinorChannelNumber = uint16(r.ReadBits(10))
		c.ModulationMode = r.ReadU8()
		c.CarrierFrequency = r.ReadU32BE()
		c.ChannelTSID = r.ReadU16BE()
		c.ProgramNumber = r.ReadU16BE()
		c.ETMLocation = uint8(r.ReadBits(2))
		c.AccessControlled = r.ReadBool()
		c.Hidden = r.ReadBool()
		r.ReadBits(2) // reserved
		c.HideGuide = r.ReadBool()
		r.ReadBits(3) // reserved
		c.ServiceType = uint8(r.ReadBits(6))
		c.SourceID = r.ReadU16BE()
		r.ReadBits(6) // reserved
		descLen := int(r.ReadBits(10))
		c.Descriptors = parseDescriptors(r, descLen)
		d.Channels = append(d.Channels, c)
	}

	r.ReadBits(6) // reserved
	addlLen := int(r.ReadBits(10))
	d.AdditionalDescriptors = parseDescriptors(r, addlLen)

	if r.Err() != nil {
		return nil, r.Err()
	}
	return d, nil
}

// encodeVCT serializes d into a complete PSI section. Channels are sorted
// by ascending ProgramNumber for deterministic output (spec §4.6).
func encodeVCT(d *VCTData) []byte {
	channels := append([]*VCTChannel{}, d.Channels...)
	sort.Slice(channels, func(i, j int) bool { return channels[i].ProgramNumber < channels[j].ProgramNumber })

	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	bw.writeU8(d.ProtocolVersion)
	bw.writeU8(uint8(len(channels)))

	for _, c := range channels {
		bw.writeBytes(encodeUTF16BEShortName(c.ShortName))
		bw.writeN(uint8(0xF), 4) // reserved
		bw.writeN(c.MajorChannelNumber, 10)
		bw.writeN(c.MinorChannelNumber, 10)
		bw.writeU8(c.ModulationMode)
		bw.writeU32(c.CarrierFrequency)
		bw.writeU16(c.ChannelTSID)
		bw.writeU16(c.ProgramNumber)
		bw.writeN(c.ETMLocation, 2)
		bw.writeBool(c.AccessControlled)
		bw.writeBool(c.Hidden)
		bw.writeN(uint8(3), 2) // reserved
		bw.writeBool(c.HideGuide)
		bw.writeN(uint8(7), 3) // reserved
		bw.writeN(c.ServiceType, 6)
		bw.writeU16(c.SourceID)
		bw.writeN(uint8(0x3F), 6) // reserved
		bw.writeN(uint16(descriptorsLen(c.Descriptors)), 10)
		writeDescriptors(bw, c.Descriptors)
	}

	bw.writeN(uint8(0x3F), 6) // reserved
	bw.writeN(uint16(descriptorsLen(d.AdditionalDescriptors)), 10)
	writeDescriptors(bw, d.AdditionalDescriptors)

	tableID := TableIDTVCT
	if !d.Terrestrial {
		tableID = TableIDCVCT
	}
	syntax := &SectionSyntaxHeader{
		TableIDExtension:     d.TransportStreamID,
		VersionNumber:        d.VersionNumber,
		CurrentNextIndicator: true,
	}
	return encodeSection(tableID, false, syntax, buf.Bytes())
}
