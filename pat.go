package tsmux

import (
	"bytes"
	"sort"
)

// PATProgram is one PAT entry (spec §3, PAT). ProgramNumber 0 identifies
// the network PID rather than a PMT PID, grounded in data_pat.go's
// PATProgram.
type PATProgram struct {
	ProgramNumber uint16
	PID           uint16
}

// PATData is a fully decoded PAT (spec §3, PAT), grounded in
// data_pat.go's PATData.
type PATData struct {
	TransportStreamID uint16
	VersionNumber     uint8
	Programs          []*PATProgram
}

// ProgramMapPID returns the PID registered for programNumber and whether it
// was found.
func (d *PATData) ProgramMapPID(programNumber uint16) (uint16, bool) {
	for _, p := range d.Programs {
		if p.ProgramNumber == programNumber {
			return p.PID, true
		}
	}
	return 0, false
}

// decodePATSection parses a PAT section body (spec §3, PAT); sec.Syntax
// must be non-nil (PAT sections always carry the long-form syntax header).
func decodePATSection(sec *Section) (*PATData, error) {
	if sec.Syntax == nil {
		return nil, ErrSectionNotSyntax
	}
	d := &PATData{
		TransportStreamID: sec.Syntax.TableIDExtension,
		VersionNumber:     sec.Syntax.VersionNumber,
	}
	r := NewBitReader(sec.Data)
	for r.HasBits(32) {
		programNumber := r.ReadU16BE()
		r.ReadBits(3) // reserved
		pid := uint16(r.ReadBits(13))
		d.Programs = append(d.Programs, &PATProgram{ProgramNumber: programNumber, PID: pid})
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return d, nil
}

// encodePAT serializes d into a complete PSI section (table_id through
// CRC-32). Programs are sorted by ascending ProgramNumber for deterministic
// output (spec §4.6).
func encodePAT(d *PATData) []byte {
	programs := append([]*PATProgram{}, d.Programs...)
	sort.Slice(programs, func(i, j int) bool { return programs[i].ProgramNumber < programs[j].ProgramNumber })

	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	for _, p := range programs {
		bw.writeU16(p.ProgramNumber)
		bw.writeN(uint8(7), 3) // reserved
		bw.writeN(p.PID, 13)
	}

	syntax := &SectionSyntaxHeader{
		TableIDExtension:     d.TransportStreamID,
		VersionNumber:        d.VersionNumber,
		CurrentNextIndicator: true,
		SectionNumber:        0,
		LastSectionNumber:    0,
	}
	return encodeSection(TableIDPAT, false, syntax, buf.Bytes())
}
