package tsmux

// CATData is a fully decoded Conditional Access Table (spec §4.9, §6: CAT
// table_id 0x01). The CA_descriptor loop is the entire section body; the
// descriptor payloads themselves are CA-system private and are preserved
// opaquely in each Descriptor's Raw field rather than interpreted, mirroring
// data.go's treatment of PIDCAT payloads as private/CA-system dependent.
type CATData struct {
	VersionNumber uint8
	Descriptors   []*Descriptor
}

// decodeCATSection parses a CAT section body (spec §4.9).
func decodeCATSection(sec *Section) (*CATData, error) {
	if sec.Syntax == nil {
		return nil, ErrSectionNotSyntax
	}
	d := &CATData{VersionNumber: sec.Syntax.VersionNumber}
	r := NewBitReader(sec.Data)
	d.Descriptors = parseDescriptors(r, len(sec.Data))
	if r.Err() != nil {
		return nil, r.Err()
	}
	return d, nil
}
