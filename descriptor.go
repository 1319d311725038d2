package tsmux

// Descriptor tags this engine parses to drive stream-type resolution
// (spec §6); every other tag is preserved opaquely in Descriptor.Raw. This
// is a tagged-variant dispatch rather than a class hierarchy (spec §9),
// grounded in the shape of descriptor.go's Descriptor struct but trimmed to
// only the fields the spec lists as in scope.
type DescriptorTag uint8

const (
	DescriptorTagRegistration       DescriptorTag = 0x05
	DescriptorTagISO639Language     DescriptorTag = 0x0A
	DescriptorTagHEVCVideo          DescriptorTag = 0x38
	DescriptorTagComponent          DescriptorTag = 0x50
	DescriptorTagTeletext           DescriptorTag = 0x56
	DescriptorTagSubtitling         DescriptorTag = 0x59
	DescriptorTagAC3                DescriptorTag = 0x6A
	DescriptorTagEnhancedAC3        DescriptorTag = 0x7A
	DescriptorTagAAC                DescriptorTag = 0x7C
	DescriptorTagExtension          DescriptorTag = 0x7F
	DescriptorTagSCTE35CueIdentifier DescriptorTag = 0x8A
)

// ExtensionTagAC4 is the extension_descriptor_tag value (spec §6) that
// marks an AC-4 extension descriptor nested under DescriptorTagExtension.
const ExtensionTagAC4 = 0x15

// DescriptorAC3 covers both AC-3 (0x6A) and Enhanced AC-3 (0x7A); the two
// wire formats share this shape closely enough in the fields this engine
// cares about (grounded in data_ac3/data_eac3 parsing in descriptor.go).
type DescriptorAC3 struct {
	HasComponentType bool
	ComponentType    uint8
	HasBSID          bool
	BSID             uint8
	HasMainID        bool
	MainID           uint8
	HasASVC          bool
	ASVC             uint8
	AdditionalInfo   []byte
}

// DescriptorRegistration carries the format_identifier. It is decoded but not
// consulted by ResolveStreamType.
type DescriptorRegistration struct {
	FormatIdentifier             uint32
	AdditionalIdentificationInfo []byte
}

// DescriptorISO639Language carries a 3-byte ISO 639-2 language code plus
// audio_type.
type DescriptorISO639Language struct {
	Language []byte
	Type     uint8
}

// DescriptorAAC is the MPEG-2 AAC descriptor (0x7C): profile/level plus
// opaque additional info, enough to confirm an AAC elementary stream.
type DescriptorAAC struct {
	ProfileAndLevel uint8
	AdditionalInfo  []byte
}

// DescriptorComponent (DVB 0x50) identifies stream content/type. It is
// decoded but not consulted by ResolveStreamType.
type DescriptorComponent struct {
	StreamContentExt   uint8
	StreamContent      uint8
	ComponentType      uint8
	ComponentTag       uint8
	ISO639LanguageCode []byte
}

// DescriptorTeletext (0x56) / DescriptorSubtitling (0x59) carry a flat list
// of per-stream items; full page/composition semantics are out of scope.
type DescriptorTeletextItem struct {
	ISO639LanguageCode []byte
	Type               uint8
	Magazine           uint8
	Page               uint8
}

type DescriptorTeletext struct {
	Items []DescriptorTeletextItem
}

type DescriptorSubtitlingItem struct {
	ISO639LanguageCode []byte
	Type               uint8
	CompositionPageID  uint16
	AncillaryPageID    uint16
}

type DescriptorSubtitling struct {
	Items []DescriptorSubtitlingItem
}

// DescriptorHEVCVideo (0x38): only the 2-bit profile_space is decoded; no
// resolver in this engine inspects it.
type DescriptorHEVCVideo struct {
	ProfileSpace uint8
}

// DescriptorExtension (0x7F) dispatches on a nested tag; only AC-4
// (ExtensionTagAC4) is recognized, everything else stays in Raw.
type DescriptorExtension struct {
	ExtensionTag uint8
	IsAC4        bool
}

// DescriptorSCTE35CueIdentifier (0x8A) flags a stream as an SCTE-35 splice
// information stream (stream_type 0x86).
type DescriptorSCTE35CueIdentifier struct {
	CueStreamType uint8
}

// Descriptor is a tagged union: Tag selects which of the typed fields, if
// any, is populated. Raw always holds the descriptor's value bytes
// unmodified, so re-encoding never loses information even for tags this
// engine doesn't interpret.
type Descriptor struct {
	Tag    DescriptorTag
	Length uint8
	Raw    []byte

	Registration        *DescriptorRegistration
	ISO639Language       *DescriptorISO639Language
	AC3                  *DescriptorAC3
	AAC                  *DescriptorAAC
	Component            *DescriptorComponent
	Teletext             *DescriptorTeletext
	Subtitling           *DescriptorSubtitling
	HEVCVideo            *DescriptorHEVCVideo
	Extension            *DescriptorExtension
	SCTE35CueIdentifier  *DescriptorSCTE35CueIdentifier
}

// parseDescriptors reads a flat descriptor loop of the given total byte
// length from r (spec §4.6, descriptors appended after program/stream
// info). r must be byte-aligned.
func parseDescriptors(r *BitReader, totalLen int) []*Descriptor {
	var out []*Descriptor
	end := r.BitsRead() + int64(totalLen)*8
	for r.BitsRead() < end && r.Err() == nil {
		d := parseOneDescriptor(r)
		if d == nil {
			break
		}
		out = append(out, d)
	}
	return out
}

func parseOneDescriptor(r *BitReader) *Descriptor {
	tag := DescriptorTag(r.ReadU8())
	length := r.ReadU8()
	if r.Err() != nil {
		return nil
	}
	sub := r.SubReader(int(length))
	raw := make([]byte, len(sub.data))
	copy(raw, sub.data)

	d := &Descriptor{Tag: tag, Length: length, Raw: raw}
	switch tag {
	case DescriptorTagRegistration:
		d.Registration = &DescriptorRegistration{
			FormatIdentifier:             sub.ReadU32BE(),
			AdditionalIdentificationInfo: sub.ReadBytes(sub.RemainingBits() / 8),
		}
	case DescriptorTagISO639Language:
		d.ISO639Language = &DescriptorISO639Language{
			Language: sub.ReadBytes(3),
			Type:     sub.ReadU8(),
		}
	case DescriptorTagAC3, DescriptorTagEnhancedAC3:
		d.AC3 = parseDescriptorAC3(sub)
	case DescriptorTagAAC:
		d.AAC = &DescriptorAAC{
			ProfileAndLevel: sub.ReadU8(),
			AdditionalInfo:  sub.ReadBytes(sub.RemainingBits() / 8),
		}
	case DescriptorTagComponent:
		d.Component = parseDescriptorComponent(sub)
	case DescriptorTagTeletext:
		d.Teletext = parseDescriptorTeletext(sub)
	case DescriptorTagSubtitling:
		d.Subtitling = parseDescriptorSubtitling(sub)
	case DescriptorTagHEVCVideo:
		d.HEVCVideo = &DescriptorHEVCVideo{ProfileSpace: uint8(sub.ReadBits(2))}
	case DescriptorTagExtension:
		extTag := sub.ReadU8()
		d.Extension = &DescriptorExtension{ExtensionTag: extTag, IsAC4: extTag == ExtensionTagAC4}
	case DescriptorTagSCTE35CueIdentifier:
		d.SCTE35CueIdentifier = &DescriptorSCTE35CueIdentifier{CueStreamType: sub.ReadU8()}
	default:
		logger.Errorf("tsmux: unhandled descriptor tag 0x%02x, preserving opaquely", byte(tag))
	}
	return d
}

func parseDescriptorAC3(r *BitReader) *DescriptorAC3 {
	d := &DescriptorAC3{}
	d.HasComponentType = r.ReadBool()
	d.HasBSID = r.ReadBool()
	d.HasMainID = r.ReadBool()
	d.HasASVC = r.ReadBool()
	r.ReadBits(4) // reserved, restores byte alignment
	if d.HasComponentType {
		d.ComponentType = r.ReadU8()
	}
	if d.HasBSID {
		d.BSID = r.ReadU8()
	}
	if d.HasMainID {
		d.MainID = r.ReadU8()
	}
	if d.HasASVC {
		d.ASVC = r.ReadU8()
	}
	if r.RemainingBits() > 0 {
		d.AdditionalInfo = r.ReadBytes(r.RemainingBits() / 8)
	}
	return d
}

func parseDescriptorComponent(r *BitReader) *DescriptorComponent {
	return &DescriptorComponent{
		StreamContentExt:   uint8(r.ReadBits(4)),
		StreamContent:      uint8(r.ReadBits(4)),
		ComponentType:      r.ReadU8(),
		ComponentTag:       r.ReadU8(),
		ISO639LanguageCode: r.ReadBytes(3),
	}
}

func parseDescriptorTeletext(r *BitReader) *DescriptorTeletext {
	d := &DescriptorTeletext{}
	for r.HasBits(8 * 5) {
		lang := r.ReadBytes(3)
		typ := uint8(r.ReadBits(5))
		mag := uint8(r.ReadBits(3))
		page := r.ReadU8()
		d.Items = append(d.Items, DescriptorTeletextItem{
			ISO639LanguageCode: lang,
			Type:               typ,
			Magazine:           mag,
			Page:               page,
		})
	}
	return d
}

func parseDescriptorSubtitling(r *BitReader) *DescriptorSubtitling {
	d := &DescriptorSubtitling{}
	for r.HasBits(8 * 8) {
		lang := r.ReadBytes(3)
		typ := r.ReadU8()
		comp := r.ReadU16BE()
		anc := r.ReadU16BE()
		d.Items = append(d.Items, DescriptorSubtitlingItem{
			ISO639LanguageCode: lang,
			Type:               typ,
			CompositionPageID:  comp,
			AncillaryPageID:    anc,
		})
	}
	return d
}

// writeDescriptors serializes a descriptor loop from its Raw bytes. Since
// Raw is always populated during parsing (and must be set by callers who
// construct descriptors programmatically for the muxer), re-encoding never
// needs to special-case each typed variant.
func writeDescriptors(w *bitsWriter, descriptors []*Descriptor) {
	for _, d := range descriptors {
		w.writeU8(uint8(d.Tag))
		w.writeU8(uint8(len(d.Raw)))
		w.writeBytes(d.Raw)
	}
}

func descriptorsLen(descriptors []*Descriptor) int {
	n := 0
	for _, d := range descriptors {
		n += 2 + len(d.Raw)
	}
	return n
}
