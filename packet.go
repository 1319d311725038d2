package tsmux

import (
	"bytes"

	"github.com/asticode/go-astikit"
)

// MpegTsPacketSize is the logical TS packet size produced on output; the
// 204-byte Reed-Solomon variant is only ever accepted on input.
const MpegTsPacketSize = 188

const mpegTsPacketSizeDVB = 204

const syncByte = 0x47

// Well-known PIDs (spec §3, §6).
const (
	PIDPAT     uint16 = 0x0000
	PIDCAT     uint16 = 0x0001
	PIDTSDT    uint16 = 0x0002
	PIDSDT     uint16 = 0x0011 // DVB SI base PID, also carries BAT
	PIDATSCSI  uint16 = 0x1FFB // ATSC PSIP base PID, carries MGT/VCT/RRT/EIT/ETT/STT
	PIDNull    uint16 = 0x1FFF
)

// PacketHeader is the fixed 4-byte MPEG-TS packet header (spec §3, Packet).
type PacketHeader struct {
	TransportErrorIndicator    bool
	PayloadUnitStartIndicator  bool
	TransportPriority          bool
	PID                        uint16
	TransportScramblingControl uint8
	HasAdaptationField         bool
	HasPayload                 bool
	ContinuityCounter          uint8
}

// AdaptationField is the optional per-packet preamble (spec §3,
// AdaptationField).
type AdaptationField struct {
	Length                            int
	DiscontinuityIndicator            bool
	RandomAccessIndicator             bool
	ElementaryStreamPriorityIndicator bool
	HasPCR                            bool
	PCR                               ClockReference
	HasOPCR                           bool
	OPCR                              ClockReference
	SplicingPointFlag                 bool
	SpliceCountdown                   int8
	TransportPrivateDataFlag          bool
	PrivateData                       []byte
	HasAdaptationExtensionField       bool
	StuffingLength                    int
}

// Packet is one decoded (or about-to-be-encoded) 188-byte TS packet.
type Packet struct {
	Header          *PacketHeader
	AdaptationField *AdaptationField
	Payload         []byte
}

// DetectPacketSize scans the start of a TS byte stream for the packet size
// (188 or 204) by checking for a second sync byte at that stride, mirroring
// packet_buffer.go's autoDetectPacketSize.
func DetectPacketSize(b []byte) (int, error) {
	if len(b) == 0 || b[0] != syncByte {
		return 0, ErrPacketBadSyncByte
	}
	for _, size := range []int{MpegTsPacketSize, mpegTsPacketSizeDVB} {
		if len(b) > size && b[size] == syncByte {
			return size, nil
		}
	}
	return 0, ErrPacketTooShort
}

// DecodePacket parses one packet out of exactly packetSize bytes (188 or
// 204; the 204-byte Reed-Solomon parity trailer is discarded unread).
func DecodePacket(b []byte, packetSize int) (*Packet, error) {
	if len(b) < packetSize {
		return nil, ErrPacketTooShort
	}
	b = b[:packetSize]
	if packetSize == mpegTsPacketSizeDVB {
		b = b[:MpegTsPacketSize]
	}
	if b[0] != syncByte {
		return nil, ErrPacketBadSyncByte
	}

	r := NewBitReader(b)
	r.ReadU8() // sync byte, already verified

	hdr := &PacketHeader{}
	hdr.TransportErrorIndicator = r.ReadBool()
	hdr.PayloadUnitStartIndicator = r.ReadBool()
	hdr.TransportPriority = r.ReadBool()
	hdr.PID = uint16(r.ReadBits(13))
	hdr.TransportScramblingControl = uint8(r.ReadBits(2))
	afc := r.ReadBits(2)
	hdr.HasAdaptationField = afc == 2 || afc == 3
	hdr.HasPayload = afc == 1 || afc == 3
	hdr.ContinuityCounter = uint8(r.ReadBits(4))

	pkt := &Packet{Header: hdr}

	if hdr.HasAdaptationField {
		af, err := decodeAdaptationField(r)
		if err != nil {
			return nil, err
		}
		pkt.AdaptationField = af
	}

	if hdr.HasPayload {
		pkt.Payload = r.ReadBytes(r.RemainingBits() / 8)
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return pkt, nil
}

func decodeAdaptationField(r *BitReader) (*AdaptationField, error) {
	length := int(r.ReadU8())
	af := &AdaptationField{Length: length}
	if length == 0 {
		return af, r.Err()
	}

	startBits := r.BitsRead()
	af.DiscontinuityIndicator = r.ReadBool()
	af.RandomAccessIndicator = r.ReadBool()
	af.ElementaryStreamPriorityIndicator = r.ReadBool()
	af.HasPCR = r.ReadBool()
	af.HasOPCR = r.ReadBool()
	af.SplicingPointFlag = r.ReadBool()
	af.TransportPrivateDataFlag = r.ReadBool()
	af.HasAdaptationExtensionField = r.ReadBool()

	if af.HasPCR {
		af.PCR = decodePCR(r)
	}
	if af.HasOPCR {
		af.OPCR = decodePCR(r)
	}
	if af.SplicingPointFlag {
		af.SpliceCountdown = int8(r.ReadBits(8))
	}
	if af.TransportPrivateDataFlag {
		n := int(r.ReadU8())
		af.PrivateData = r.ReadBytes(n)
	}
	if af.HasAdaptationExtensionField {
		extLen := int(r.ReadU8())
		r.Skip(extLen * 8)
	}

	consumedBytes := int((r.BitsRead() - startBits) / 8)
	stuffing := length - consumedBytes
	if stuffing < 0 {
		return nil, ErrPacketBadAFLength
	}
	if stuffing > 0 {
		r.Skip(stuffing * 8)
		af.StuffingLength = stuffing
	}
	return af, r.Err()
}

func decodePCR(r *BitReader) ClockReference {
	// ReadBits takes at most 32 bits, so the 33-bit base is read as 32 + 1.
	base := r.ReadBits(32)<<1 | r.ReadBits(1)
	r.ReadBits(6) // reserved, always 0x3F
	ext := r.ReadBits(9)
	return newClockReference(base, uint16(ext))
}

// adaptationFieldFixedLen returns the number of bytes the adaptation
// field's flags byte plus whichever optional fields are set will occupy,
// not counting the length byte itself or stuffing.
func adaptationFieldFixedLen(af *AdaptationField) int {
	n := 1 // flags byte
	if af.HasPCR {
		n += 6
	}
	if af.HasOPCR {
		n += 6
	}
	if af.SplicingPointFlag {
		n++
	}
	if af.TransportPrivateDataFlag {
		n += 1 + len(af.PrivateData)
	}
	return n
}

// EncodePacket serializes pkt into exactly 188 bytes, synthesizing or
// growing an adaptation field to stuff the packet to 184 payload+AF bytes
// per spec §4.3 ("never after the payload").
func EncodePacket(pkt *Packet) ([]byte, error) {
	hdr := pkt.Header
	payload := pkt.Payload
	if len(payload) > 184 {
		return nil, ErrPacketBadAFLength
	}

	af := pkt.AdaptationField
	remaining := 184 - len(payload)

	var afLenByte int
	hasAF := af != nil
	zeroLengthAF := false

	switch {
	case hasAF:
		fixedLen := adaptationFieldFixedLen(af)
		stuffing := remaining - 1 - fixedLen
		if stuffing < 0 {
			return nil, ErrPacketBadAFLength
		}
		afLenByte = fixedLen + stuffing
		af.StuffingLength = stuffing
	case remaining == 1:
		hasAF = true
		zeroLengthAF = true
		afLenByte = 0
	case remaining > 1:
		hasAF = true
		af = &AdaptationField{}
		stuffing := remaining - 2
		afLenByte = 1 + stuffing
		af.StuffingLength = stuffing
	}

	hasPayload := len(payload) > 0

	var afc uint8
	switch {
	case hasAF && hasPayload:
		afc = 3
	case hasAF && !hasPayload:
		afc = 2
	default:
		afc = 1
	}

	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	_ = w.Write(uint8(syncByte))
	_ = w.Write(hdr.TransportErrorIndicator)
	_ = w.Write(hdr.PayloadUnitStartIndicator)
	_ = w.Write(hdr.TransportPriority)
	_ = w.WriteN(hdr.PID, 13)
	_ = w.WriteN(hdr.TransportScramblingControl, 2)
	_ = w.WriteN(afc, 2)
	_ = w.WriteN(hdr.ContinuityCounter, 4)

	if hasAF {
		_ = w.Write(uint8(afLenByte))
		if !zeroLengthAF {
			writeAdaptationFieldBody(w, af)
		}
	}
	if hasPayload {
		_ = w.Write(payload)
	}

	b := buf.Bytes()
	if len(b) != MpegTsPacketSize {
		return nil, ErrPacketBadAFLength
	}
	return b, nil
}

func writeAdaptationFieldBody(w *astikit.BitsWriter, af *AdaptationField) {
	_ = w.Write(af.DiscontinuityIndicator)
	_ = w.Write(af.RandomAccessIndicator)
	_ = w.Write(af.ElementaryStreamPriorityIndicator)
	_ = w.Write(af.HasPCR)
	_ = w.Write(af.HasOPCR)
	_ = w.Write(af.SplicingPointFlag)
	_ = w.Write(af.TransportPrivateDataFlag)
	_ = w.Write(false) // adaptation_field_extension_flag: extensions are out of scope on encode

	if af.HasPCR {
		writePCR(w, af.PCR)
	}
	if af.HasOPCR {
		writePCR(w, af.OPCR)
	}
	if af.SplicingPointFlag {
		_ = w.WriteN(uint8(af.SpliceCountdown), 8)
	}
	if af.TransportPrivateDataFlag {
		_ = w.Write(uint8(len(af.PrivateData)))
		_ = w.Write(af.PrivateData)
	}
	if af.StuffingLength > 0 {
		_ = w.Write(bytes.Repeat([]byte{0xFF}, af.StuffingLength))
	}
}

func writePCR(w *astikit.BitsWriter, c ClockReference) {
	_ = w.WriteN(c.Base, 33)
	_ = w.WriteN(uint8(0x3F), 6)
	_ = w.WriteN(c.Ext, 9)
}

// packetizePayload splits a PES (or PSI) payload into one or more 188-byte
// TS packets for pid, per spec §4.3. PCR, when non-nil, is placed in the
// adaptation field of the first packet, with RandomAccessIndicator set iff
// randomAccess. It returns the encoded packets and the continuity counter
// to use for the packet after the last one emitted.
func packetizePayload(pid uint16, startCC uint8, payload []byte, forcePUSI bool, pcr *ClockReference, randomAccess bool) ([][]byte, uint8, error) {
	var out [][]byte
	cc := startCC
	offset := 0
	first := true

	for first || offset < len(payload) {
		var af *AdaptationField
		if first && pcr != nil {
			af = &AdaptationField{HasPCR: true, PCR: *pcr, RandomAccessIndicator: randomAccess}
		}

		avail := 184
		if af != nil {
			avail -= 1 + adaptationFieldFixedLen(af)
		}

		remainingPayload := payload[offset:]
		n := len(remainingPayload)
		isLast := n <= avail
		if !isLast {
			n = avail
		}
		chunk := remainingPayload[:n]

		pkt := &Packet{
			Header: &PacketHeader{
				PayloadUnitStartIndicator: first && forcePUSI,
				PID:                       pid,
				HasPayload:                true,
				ContinuityCounter:         cc,
			},
			AdaptationField: af,
			Payload:         chunk,
		}

		b, err := EncodePacket(pkt)
		if err != nil {
			return nil, cc, err
		}
		out = append(out, b)

		cc = (cc + 1) % 16
		offset += n
		first = false
		if isLast {
			break
		}
	}
	return out, cc, nil
}

// nullPacket returns a stuffing packet on PIDNull with an all-0xFF payload.
func nullPacket() []byte {
	payload := bytes.Repeat([]byte{0xFF}, 184)
	b, err := EncodePacket(&Packet{
		Header: &PacketHeader{PID: PIDNull, HasPayload: true},
		Payload: payload,
	})
	if err != nil {
		// 0xFF-filled 184-byte payload on a fixed-size packet never
		// fails to encode.
		panic(err)
	}
	return b
}
