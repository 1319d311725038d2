package tsmux

import (
	"bytes"
	"sort"
)

// DVB running_status values (ETSI EN 300 468 table 6), grounded in
// data_sdt.go's RunningStatus* constants.
const (
	RunningStatusUndefined          uint8 = 0
	RunningStatusNotRunning         uint8 = 1
	RunningStatusStartsInAFewSeconds uint8 = 2
	RunningStatusPausing            uint8 = 3
	RunningStatusRunning            uint8 = 4
	RunningStatusServiceOffAir      uint8 = 5
)

// SDTService is one DVB service entry (spec §3, SDT), grounded in
// data_sdt.go's SDTDataService.
type SDTService struct {
	ServiceID     uint16
	EITSchedule   bool
	EITPresentFollowing bool
	RunningStatus uint8
	FreeCAMode    bool
	Descriptors   []*Descriptor
}

// SDTData is a fully decoded SDT (spec §3, SDT), grounded in
// data_sdt.go's SDTData.
type SDTData struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	VersionNumber     uint8
	Actual            bool // table_id 0x42 (actual TS) vs 0x46 (other TS)
	Services          []*SDTService
}

// decodeSDTSection parses an SDT section body (spec §3, SDT).
func decodeSDTSection(sec *Section) (*SDTData, error) {
	if sec.Syntax == nil {
		return nil, ErrSectionNotSyntax
	}
	d := &SDTData{
		TransportStreamID: sec.Syntax.TableIDExtension,
		VersionNumber:     sec.Syntax.VersionNumber,
		Actual:            sec.TableID == TableIDSDTActual,
	}
	r := NewBitReader(sec.Data)
	d.OriginalNetworkID = r.ReadU16BE()
	r.ReadU8() // reserved

	for r.HasBits(40) {
		s := &SDTService{}
		s.ServiceID = r.ReadU16BE()
		r.ReadBits(6) // reserved
		s.EITSchedule = r.ReadBool()
		s.EITPresentFollowing = r.ReadBool()
		s.RunningStatus = uint8(r.ReadBits(3))
		s.FreeCAMode = r.ReadBool()
		descLen := int(r.ReadBits(12))
		s.Descriptors = parseDescriptors(r, descLen)
		d.Services = append(d.Services, s)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return d, nil
}

// encodeSDT serializes d into a complete PSI section. Services are sorted
// by ascending ServiceID for deterministic output (spec §4.6).
func encodeSDT(d *SDTData) []byte {
	services := append([]*SDTService{}, d.Services...)
	sort.Slice(services, func(i, j int) bool { return services[i].ServiceID < services[j].ServiceID })

	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	bw.writeU16(d.OriginalNetworkID)
	bw.writeU8(0xFF) // reserved

	for _, s := range services {
		bw.writeU16(s.ServiceID)
		bw.writeN(uint8(0x3F), 6) // reserved
		bw.writeBool(s.EITSchedule)
		bw.writeBool(s.EITPresentFollowing)
		bw.writeN(s.RunningStatus, 3)
		bw.writeBool(s.FreeCAMode)
		bw.writeN(uint16(descriptorsLen(s.Descriptors)), 12)
		writeDescriptors(bw, s.Descriptors)
	}

	tableID := TableIDSDTActual
	if !d.Actual {
		tableID = TableIDSDTOther
	}
	syntax := &SectionSyntaxHeader{
		TableIDExtension:     d.TransportStreamID,
		VersionNumber:        d.VersionNumber,
		CurrentNextIndicator: true,
	}
	return encodeSection(tableID, false, syntax, buf.Bytes())
}
