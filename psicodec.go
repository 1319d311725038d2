package tsmux

import "errors"

// ErrPSIUnsupportedTable is returned by DecodePSITable for a table_id this
// engine does not parse (spec §1, Non-goals: "full EIT/ETT/STT/RRT
// parsing"), mirroring the teacher's ErrPSIUnsupportedTable sentinel.
var ErrPSIUnsupportedTable = errors.New("tsmux: unsupported PSI table_id")

// PSITable is the decoded payload produced by PsiCodec (spec §4.6): exactly
// one of the typed fields is populated, selected by TableID, a tagged
// dispatch rather than a class hierarchy (spec §9).
type PSITable struct {
	TableID TableID
	PAT     *PATData
	CAT     *CATData
	PMT     *PMTData
	SDT     *SDTData
	VCT     *VCTData
}

// DecodePSITable dispatches a CRC-validated Section to its table-specific
// decoder (spec §4.6). Sections whose table_id isn't one of
// PAT/CAT/PMT/SDT/VCT are logged and return ErrPSIUnsupportedTable rather than a ParseError, since the table
// itself is recognized on the wire, just out of this engine's scope.
func DecodePSITable(sec *Section) (*PSITable, error) {
	if !sec.SectionSyntaxIndicator {
		return nil, ErrSectionNotSyntax
	}
	if sec.SectionLength > maxSectionLength {
		return nil, ErrSectionTooLong
	}
	switch sec.TableID {
	case TableIDPAT:
		d, err := decodePATSection(sec)
		if err != nil {
			return nil, err
		}
		return &PSITable{TableID: sec.TableID, PAT: d}, nil
	case TableIDCAT:
		d, err := decodeCATSection(sec)
		if err != nil {
			return nil, err
		}
		return &PSITable{TableID: sec.TableID, CAT: d}, nil
	case TableIDPMT:
		d, err := decodePMTSection(sec)
		if err != nil {
			return nil, err
		}
		return &PSITable{TableID: sec.TableID, PMT: d}, nil
	case TableIDSDTActual, TableIDSDTOther:
		d, err := decodeSDTSection(sec)
		if err != nil {
			return nil, err
		}
		return &PSITable{TableID: sec.TableID, SDT: d}, nil
	case TableIDTVCT, TableIDCVCT:
		d, err := decodeVCTSection(sec)
		if err != nil {
			return nil, err
		}
		return &PSITable{TableID: sec.TableID, VCT: d}, nil
	default:
		logger.Errorf("tsmux: unhandled table id 0x%02x", byte(sec.TableID))
		return nil, ErrPSIUnsupportedTable
	}
}
