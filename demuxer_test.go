package tsmux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func patPackets(t *testing.T, d *PATData) []byte {
	t.Helper()
	pkts, _, err := packetizePayload(PIDPAT, 0, psiPayloadWithPointer(encodePAT(d)), true, nil, false)
	assert.NoError(t, err)
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}

func pmtPackets(t *testing.T, pid uint16, d *PMTData) []byte {
	t.Helper()
	pkts, _, err := packetizePayload(pid, 0, psiPayloadWithPointer(encodePMT(d)), true, nil, false)
	assert.NoError(t, err)
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}

func esPackets(t *testing.T, pid uint16, au *AccessUnit) []byte {
	t.Helper()
	payload, err := EncodePESPayload(au, 90000, nil)
	assert.NoError(t, err)
	pkts, _, err := packetizePayload(pid, 0, payload, true, nil, au.IsRandomAccessPoint)
	assert.NoError(t, err)
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}

func TestDemuxer_PATThenPMTThenAccessUnit(t *testing.T) {
	dmx := NewDemuxer(ModeDVB)

	var gotPAT *PATData
	dmx.OnPAT = func(cur, prev *PATData) { gotPAT = cur }
	var gotPMT *PMTData
	dmx.OnPMT = func(pid uint16, cur, prev *PMTData) { gotPMT = cur }
	var gotAUs []*AccessUnit
	dmx.OnAccessUnit = func(au *AccessUnit) { gotAUs = append(gotAUs, au) }

	pat := &PATData{TransportStreamID: 1, Programs: []*PATProgram{{ProgramNumber: 1, PID: 0x0020}}}
	// Packet-size detection needs a second sync byte one packet after the
	// first, so a null packet follows the single PAT packet.
	stream := append(patPackets(t, pat), nullPacket()...)
	assert.NoError(t, dmx.Demux(stream, 0))
	assert.NotNil(t, gotPAT)
	assert.Equal(t, uint16(1), gotPAT.TransportStreamID)

	pmt := &PMTData{
		ProgramNumber: 1,
		PCRPID:        0x0100,
		ElementaryStreams: []*PMTElementaryStream{
			{StreamType: StreamTypeH264Video, ElementaryPID: 0x0100},
		},
	}
	stream = pmtPackets(t, 0x0020, pmt)
	assert.NoError(t, dmx.Demux(stream, 10))
	assert.NotNil(t, gotPMT)
	assert.Len(t, gotPMT.ElementaryStreams, 1)

	pts := int64(900)
	au := &AccessUnit{PID: 0x0100, PTS: &pts, StreamType: StreamTypeH264Video, Payload: []byte{0x01, 0x02, 0x03}}
	stream = esPackets(t, 0x0100, au)
	assert.NoError(t, dmx.Demux(stream, 20))

	// A video PES is unbounded (PES_packet_length 0), so its access unit is
	// emitted only when the next PUSI packet on the PID arrives.
	next := int64(4500)
	nextAU := &AccessUnit{PID: 0x0100, PTS: &next, StreamType: StreamTypeH264Video, Payload: []byte{0x04}}
	payload, err := EncodePESPayload(nextAU, 90000, nil)
	assert.NoError(t, err)
	pkts, _, err := packetizePayload(0x0100, 1, payload, true, nil, false)
	assert.NoError(t, err)
	assert.NoError(t, dmx.Demux(pkts[0], 30))
	assert.Len(t, gotAUs, 1)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, gotAUs[0].Payload)
}

func catPackets(t *testing.T, descriptors []*Descriptor) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	writeDescriptors(bw, descriptors)
	assert.NoError(t, bw.Err())
	syntax := &SectionSyntaxHeader{CurrentNextIndicator: true}
	section := encodeSection(TableIDCAT, false, syntax, buf.Bytes())
	pkts, _, err := packetizePayload(PIDCAT, 0, psiPayloadWithPointer(section), true, nil, false)
	assert.NoError(t, err)
	var out []byte
	for _, p := range pkts {
		out = append(out, p...)
	}
	return out
}

func TestDemuxer_DispatchesCATOnPIDCAT(t *testing.T) {
	dmx := NewDemuxer(ModeDVB)

	var gotCAT *CATData
	dmx.OnCAT = func(cur, prev *CATData) { gotCAT = cur }

	ca := encodeRawDescriptor(DescriptorTagRegistration, []byte{'C', 'A', 'S', '1'})
	r := NewBitReader(ca)
	descs := parseDescriptors(r, len(ca))

	// A null packet after the CAT packet gives packet-size detection its
	// second sync byte.
	assert.NoError(t, dmx.Demux(append(catPackets(t, descs), nullPacket()...), 0))
	assert.NotNil(t, gotCAT)
	assert.Len(t, gotCAT.Descriptors, 1)
	assert.Equal(t, DescriptorTagRegistration, gotCAT.Descriptors[0].Tag)
}

func TestDemuxer_ResyncCollapsesGarbageIntoOneObservation(t *testing.T) {
	dmx := NewDemuxer(ModeDVB)
	dmx.Analyzer = NewTr101290Analyzer()

	pat := &PATData{TransportStreamID: 1}
	valid := patPackets(t, pat)

	// Prime packet-size detection with a clean chunk first (DetectPacketSize
	// requires its input to begin on a sync byte and to hold a second one a
	// packet later, hence the trailing null packet).
	assert.NoError(t, dmx.Demux(append(append([]byte{}, valid...), nullPacket()...), 0))

	garbage := make([]byte, 10)
	for i := range garbage {
		garbage[i] = byte(0xAA)
	}
	stream := append(append([]byte{}, garbage...), valid...)
	stream = append(stream, valid...)

	assert.NoError(t, dmx.Demux(stream, 10))
	assert.Equal(t, uint64(1), dmx.Analyzer.Stats.TsSyncLoss)
	assert.Equal(t, uint64(1), dmx.Analyzer.Stats.SyncByteError)
}

func TestDemuxer_CCGapDiscardsInProgressAccessUnit(t *testing.T) {
	dmx := NewDemuxer(ModeDVB)

	pat := &PATData{TransportStreamID: 1, Programs: []*PATProgram{{ProgramNumber: 1, PID: 0x0020}}}
	assert.NoError(t, dmx.Demux(patPackets(t, pat), 0))

	pmt := &PMTData{
		ProgramNumber: 1,
		PCRPID:        0x0100,
		ElementaryStreams: []*PMTElementaryStream{
			{StreamType: StreamTypeH264Video, ElementaryPID: 0x0100},
		},
	}
	assert.NoError(t, dmx.Demux(pmtPackets(t, 0x0020, pmt), 10))

	pts := int64(900)
	payload, err := EncodePESPayload(&AccessUnit{PID: 0x0100, PTS: &pts, StreamType: StreamTypeH264Video, Payload: make([]byte, 400)}, 90000, nil)
	assert.NoError(t, err)
	pkts, _, err := packetizePayload(0x0100, 0, payload, true, nil, false)
	assert.NoError(t, err)
	assert.Greater(t, len(pkts), 1)

	var gotAUs []*AccessUnit
	dmx.OnAccessUnit = func(au *AccessUnit) { gotAUs = append(gotAUs, au) }

	// feed the first packet, then skip a CC value to force a gap before the
	// remaining packets arrive.
	assert.NoError(t, dmx.Demux(pkts[0], 20))
	tampered := append([]byte{}, pkts[1]...)
	tampered[3] = (tampered[3] & 0xF0) | ((tampered[3] + 2) & 0x0F)
	assert.NoError(t, dmx.Demux(tampered, 30))

	assert.Empty(t, gotAUs)
	b, ok := dmx.esBuilders[0x0100]
	assert.True(t, ok)
	assert.Equal(t, 1, b.DiscardedPacketCount)
}
