package tsmux

import (
	"bytes"
	"sort"
)

// PMTElementaryStream is one elementary stream entry owned by a PMT (spec
// §3, PMT), grounded in data_pmt.go's PMTElementaryStream.
type PMTElementaryStream struct {
	StreamType    StreamType
	ElementaryPID uint16
	Descriptors   []*Descriptor
}

// ResolvedType resolves StreamType against this stream's own descriptors
// (spec §6).
func (e *PMTElementaryStream) ResolvedType() ResolvedStreamType {
	return ResolveStreamType(e.StreamType, e.Descriptors)
}

// PMTData is a fully decoded PMT (spec §3, PMT), grounded in
// data_pmt.go's PMTData.
type PMTData struct {
	ProgramNumber      uint16
	VersionNumber      uint8
	PCRPID             uint16
	ProgramDescriptors []*Descriptor
	ElementaryStreams  []*PMTElementaryStream
}

// ElementaryStream returns the entry for pid, if any.
func (d *PMTData) ElementaryStream(pid uint16) (*PMTElementaryStream, bool) {
	for _, e := range d.ElementaryStreams {
		if e.ElementaryPID == pid {
			return e, true
		}
	}
	return nil, false
}

// decodePMTSection parses a PMT section body (spec §3, PMT).
func decodePMTSection(sec *Section) (*PMTData, error) {
	if sec.Syntax == nil {
		return nil, ErrSectionNotSyntax
	}
	d := &PMTData{
		ProgramNumber: sec.Syntax.TableIDExtension,
		VersionNumber: sec.Syntax.VersionNumber,
	}
	r := NewBitReader(sec.Data)
	r.ReadBits(3) // reserved
	d.PCRPID = uint16(r.ReadBits(13))
	r.ReadBits(4) // reserved
	programInfoLength := int(r.ReadBits(12))
	d.ProgramDescriptors = parseDescriptors(r, programInfoLength)

	for r.HasBits(40) {
		e := &PMTElementaryStream{}
		e.StreamType = StreamType(r.ReadU8())
		r.ReadBits(3) // reserved
		e.ElementaryPID = uint16(r.ReadBits(13))
		r.ReadBits(4) // reserved
		esInfoLength := int(r.ReadBits(12))
		e.Descriptors = parseDescriptors(r, esInfoLength)
		d.ElementaryStreams = append(d.ElementaryStreams, e)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return d, nil
}

// encodePMT serializes d into a complete PSI section. Elementary streams
// are sorted by ascending PID for deterministic output (spec §4.6).
func encodePMT(d *PMTData) []byte {
	streams := append([]*PMTElementaryStream{}, d.ElementaryStreams...)
	sort.Slice(streams, func(i, j int) bool { return streams[i].ElementaryPID < streams[j].ElementaryPID })

	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	bw.writeN(uint8(7), 3) // reserved
	bw.writeN(d.PCRPID, 13)
	bw.writeN(uint8(0xF), 4) // reserved
	bw.writeN(uint16(descriptorsLen(d.ProgramDescriptors)), 12)
	writeDescriptors(bw, d.ProgramDescriptors)

	for _, e := range streams {
		bw.writeU8(uint8(e.StreamType))
		bw.writeN(uint8(7), 3) // reserved
		bw.writeN(e.ElementaryPID, 13)
		bw.writeN(uint8(0xF), 4) // reserved
		bw.writeN(uint16(descriptorsLen(e.Descriptors)), 12)
		writeDescriptors(bw, e.Descriptors)
	}

	syntax := &SectionSyntaxHeader{
		TableIDExtension:     d.ProgramNumber,
		VersionNumber:        d.VersionNumber,
		CurrentNextIndicator: true,
	}
	return encodeSection(TableIDPMT, false, syntax, buf.Bytes())
}
