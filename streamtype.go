package tsmux

// StreamType is the raw PMT stream_type byte (spec §3, PMTElementaryStream).
type StreamType uint8

const (
	StreamTypeMPEG1Audio        StreamType = 0x03
	StreamTypeMPEG2Audio        StreamType = 0x04
	StreamTypePESPrivateData    StreamType = 0x06
	StreamTypeAACADTS           StreamType = 0x0F
	StreamTypeAACLATM           StreamType = 0x11
	StreamTypeH264Video         StreamType = 0x1B
	StreamTypeH265Video         StreamType = 0x24
	StreamTypeAC3ATSC           StreamType = 0x81
	StreamTypeSCTE35            StreamType = 0x86
	StreamTypeEAC3ATSC          StreamType = 0x87
)

// ResolvedStreamType is the dispatched, human-meaningful codec identity a
// stream_type (plus, for the ambiguous 0x06 case, its descriptors) resolves
// to (spec §6, Stream type table).
type ResolvedStreamType int

const (
	ResolvedUnknown ResolvedStreamType = iota
	ResolvedMPEG1Audio
	ResolvedMPEG2Audio
	ResolvedAC3
	ResolvedEnhancedAC3
	ResolvedAC4
	ResolvedTeletext
	ResolvedSubtitles
	ResolvedSCTE35
	ResolvedAACADTS
	ResolvedAACLATM
	ResolvedH264
	ResolvedH265
)

func (r ResolvedStreamType) String() string {
	switch r {
	case ResolvedMPEG1Audio:
		return "MPEG-1 Audio"
	case ResolvedMPEG2Audio:
		return "MPEG-2 Audio"
	case ResolvedAC3:
		return "AC-3"
	case ResolvedEnhancedAC3:
		return "Enhanced AC-3"
	case ResolvedAC4:
		return "AC-4"
	case ResolvedTeletext:
		return "Teletext"
	case ResolvedSubtitles:
		return "Subtitles"
	case ResolvedSCTE35:
		return "SCTE-35"
	case ResolvedAACADTS:
		return "AAC-ADTS"
	case ResolvedAACLATM:
		return "AAC-LATM"
	case ResolvedH264:
		return "H.264"
	case ResolvedH265:
		return "H.265"
	default:
		return "Unknown"
	}
}

// ResolveStreamType maps a raw stream_type, consulting descriptors only for
// the ambiguous 0x06 (PES private data) case, per spec §6.
func ResolveStreamType(st StreamType, descriptors []*Descriptor) ResolvedStreamType {
	switch st {
	case StreamTypeMPEG1Audio:
		return ResolvedMPEG1Audio
	case StreamTypeMPEG2Audio:
		return ResolvedMPEG2Audio
	case StreamTypeAACADTS:
		return ResolvedAACADTS
	case StreamTypeAACLATM:
		return ResolvedAACLATM
	case StreamTypeH264Video:
		return ResolvedH264
	case StreamTypeH265Video:
		return ResolvedH265
	case StreamTypeAC3ATSC:
		return ResolvedAC3
	case StreamTypeSCTE35:
		return ResolvedSCTE35
	case StreamTypeEAC3ATSC:
		return ResolvedEnhancedAC3
	case StreamTypePESPrivateData:
		return resolveByDescriptors(descriptors)
	default:
		return ResolvedUnknown
	}
}

func resolveByDescriptors(descriptors []*Descriptor) ResolvedStreamType {
	for _, d := range descriptors {
		switch d.Tag {
		case DescriptorTagAC3:
			return ResolvedAC3
		case DescriptorTagEnhancedAC3:
			return ResolvedEnhancedAC3
		case DescriptorTagTeletext:
			return ResolvedTeletext
		case DescriptorTagSubtitling:
			return ResolvedSubtitles
		case DescriptorTagSCTE35CueIdentifier:
			return ResolvedSCTE35
		case DescriptorTagExtension:
			if d.Extension != nil && d.Extension.IsAC4 {
				return ResolvedAC4
			}
		}
	}
	return ResolvedUnknown
}
