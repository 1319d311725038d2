package tsmux

import "sort"

// Custom (non-reserved) PID range (spec §4.10, §6).
const (
	customPIDMin uint16 = 0x0010
	customPIDMax uint16 = 0x1FFE
)

// MuxerSettings configures a Muxer at construction time; it is immutable
// afterwards (spec §4.10, §3 Lifecycles), grounded in muxer.go's
// construction-time PID bookkeeping and
// original_source/.../TSMuxer.h's TSMuxerSettings.
type MuxerSettings struct {
	ProgramNumber        uint16
	TransportStreamID    uint16
	PMTPID               uint16
	PCRPID               uint16
	VideoPID             uint16
	AudioPID             uint16
	PSIIntervalMs        uint64
	PCRIntervalMs        uint64
	TargetBitrateKbps    uint64 // 0 selects VBR mode
	MaxQueuedAccessUnits int    // 0 disables the bound
}

func isReservedPID(pid uint16) bool {
	if pid >= 0x0010 && pid <= 0x001F {
		return true
	}
	return pid == PIDATSCSI
}

func validateMuxerPID(pid uint16) error {
	if pid < customPIDMin || pid > customPIDMax {
		return ErrMuxerPIDOutOfRange
	}
	if isReservedPID(pid) {
		return ErrMuxerPIDReserved
	}
	return nil
}

// Validate checks the settings per spec §4.10/§6/§7 (ValidationError).
func (s MuxerSettings) Validate() error {
	for _, pid := range []uint16{s.PMTPID, s.PCRPID, s.VideoPID, s.AudioPID} {
		if err := validateMuxerPID(pid); err != nil {
			return err
		}
	}
	seen := map[uint16]bool{}
	for _, pid := range []uint16{s.PMTPID, s.VideoPID, s.AudioPID} {
		if seen[pid] {
			return ErrMuxerPIDDuplicate
		}
		seen[pid] = true
	}
	if s.PSIIntervalMs == 0 || s.PCRIntervalMs == 0 {
		return ErrMuxerBadInterval
	}
	return nil
}

// Muxer is the output pipeline: an access-unit queue, PCR generation, PSI
// scheduling, CBR pacing and null stuffing (spec §4.10), grounded in
// muxer.go's PAT/PMT generation and PID-registry shape plus
// original_source/.../TSMuxer.h's settings/feed-API shape. The CBR/VBR
// scheduler, PCR insertion and bounded queue are SPEC_FULL additions the
// teacher's muxer never had (SPEC_FULL.md §4.10).
type Muxer struct {
	settings MuxerSettings

	streams map[uint16]*ElementaryStream
	pmtPID  uint16

	patVersion uint8
	pmtVersion uint8
	patCC      uint8
	pmtCC      uint8

	queue        []*AccessUnit
	DroppedCount int

	lastEmittedPCR       *ClockReference
	PCRNonMonotonicCount int

	epoch         *int64
	hostTimescale int64

	lastPSIEmitUs int64
	lastPCREmitUs int64
	virtualTimeUs int64
	emittedBytes  uint64
	wallClockMs   uint64

	// OnPacketBytes is invoked once per emitted 188-byte packet, in
	// emission order (spec §5, §6).
	OnPacketBytes func([]byte)
}

// NewMuxer validates settings and returns a Muxer with no elementary
// streams registered yet. hostTimescale is the number of host ticks per
// second the AccessUnits passed to EnqueueAccessUnit express PTS/DTS in
// (spec §4.4).
func NewMuxer(settings MuxerSettings, hostTimescale int64) (*Muxer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if hostTimescale <= 0 {
		hostTimescale = 90000
	}
	return &Muxer{
		settings:      settings,
		streams:       map[uint16]*ElementaryStream{},
		pmtPID:        settings.PMTPID,
		hostTimescale: hostTimescale,
		lastPSIEmitUs: -1 << 60,
		lastPCREmitUs: -1 << 60,
	}, nil
}

// AddElementaryStream registers an elementary stream, bumping the PMT
// version (spec §3, Lifecycles).
func (m *Muxer) AddElementaryStream(es ElementaryStream) error {
	if err := validateMuxerPID(es.PID); err != nil {
		return err
	}
	if _, exists := m.streams[es.PID]; exists {
		return ErrMuxerStreamExists
	}
	m.streams[es.PID] = &es
	m.pmtVersion++
	return nil
}

// RemoveElementaryStream retires an elementary stream, bumping the PMT
// version.
func (m *Muxer) RemoveElementaryStream(pid uint16) error {
	if _, ok := m.streams[pid]; !ok {
		return ErrMuxerStreamNotFound
	}
	delete(m.streams, pid)
	m.pmtVersion++
	return nil
}

// EnqueueAccessUnit appends au to the bounded output queue. If the queue is
// at capacity the oldest entry is dropped (spec §4.10, §7 QueueOverflow);
// this never emits anything by itself.
func (m *Muxer) EnqueueAccessUnit(au *AccessUnit) {
	if m.epoch == nil && au.PTS != nil {
		e := *au.PTS
		m.epoch = &e
	}
	m.queue = append(m.queue, au)
	if m.settings.MaxQueuedAccessUnits > 0 && len(m.queue) > m.settings.MaxQueuedAccessUnits {
		m.queue = m.queue[1:]
		m.DroppedCount++
	}
}

// Start confirms the muxer is ready to emit (spec §7, ValidationError): at
// least one elementary stream must be registered. Elementary streams are
// registered via AddElementaryStream after NewMuxer returns (spec §3,
// Lifecycles), so this construction-boundary check is deferred to the point
// just before the caller starts ticking rather than folded into NewMuxer
// itself.
func (m *Muxer) Start() error {
	if len(m.streams) == 0 {
		return ErrMuxerNoElementary
	}
	return nil
}

func (m *Muxer) buildPAT() *PATData {
	return &PATData{
		TransportStreamID: m.settings.TransportStreamID,
		VersionNumber:     m.patVersion,
		Programs: []*PATProgram{
			{ProgramNumber: m.settings.ProgramNumber, PID: m.settings.PMTPID},
		},
	}
}

func (m *Muxer) buildPMT() *PMTData {
	streams := make([]*PMTElementaryStream, 0, len(m.streams))
	for _, es := range m.streams {
		streams = append(streams, &PMTElementaryStream{
			StreamType:    es.StreamType,
			ElementaryPID: es.PID,
			Descriptors:   es.Descriptors,
		})
	}
	sort.Slice(streams, func(i, j int) bool { return streams[i].ElementaryPID < streams[j].ElementaryPID })
	return &PMTData{
		ProgramNumber:     m.settings.ProgramNumber,
		VersionNumber:     m.pmtVersion,
		PCRPID:            m.settings.PCRPID,
		ElementaryStreams: streams,
	}
}

func (m *Muxer) emit(b []byte) {
	if m.OnPacketBytes != nil {
		m.OnPacketBytes(b)
	}
	m.emittedBytes += uint64(len(b))
	if m.settings.TargetBitrateKbps > 0 {
		m.virtualTimeUs = int64(m.emittedBytes) * 8 * 1000 / int64(m.settings.TargetBitrateKbps)
	}
}

func (m *Muxer) emitPSI(nowUs int64) {
	pat := encodePAT(m.buildPAT())
	pkts, cc, _ := packetizePayload(PIDPAT, m.patCC, psiPayloadWithPointer(pat), true, nil, false)
	m.patCC = cc
	for _, p := range pkts {
		m.emit(p)
	}

	pmt := encodePMT(m.buildPMT())
	pkts, cc, _ = packetizePayload(m.pmtPID, m.pmtCC, psiPayloadWithPointer(pmt), true, nil, false)
	m.pmtCC = cc
	for _, p := range pkts {
		m.emit(p)
	}
	m.lastPSIEmitUs = nowUs
}

func (m *Muxer) pcrFromUs(us int64) ClockReference {
	full27 := us * 27
	return newClockReference(uint64(full27/300)&ninetyKHzMask, uint16(full27%300))
}

// recordPCREmission tracks the PCR monotonicity invariant (spec §3, §8:
// "PCR is monotonically non-decreasing modulo wrap") across every PCR this
// muxer emits, whether carried on a dedicated PCR-only packet or piggybacked
// on the PCR PID's access units.
func (m *Muxer) recordPCREmission(cr ClockReference) {
	if m.lastEmittedPCR != nil && pcrLess(cr, *m.lastEmittedPCR) {
		m.PCRNonMonotonicCount++
	}
	m.lastEmittedPCR = &cr
}

func (m *Muxer) emitPCROnly(nowUs int64) {
	cr := m.pcrFromUs(nowUs)
	m.recordPCREmission(cr)
	af := &AdaptationField{HasPCR: true, PCR: cr}
	pkt := &Packet{
		Header:          &PacketHeader{PID: m.settings.PCRPID, HasPayload: false},
		AdaptationField: af,
	}
	b, err := EncodePacket(pkt)
	if err == nil {
		m.emit(b)
	}
	m.lastPCREmitUs = nowUs
}

// dtsVirtualUs converts an access unit's DTS (falling back to PTS) to
// microseconds on the same timeline as virtualTimeUs/wall clock.
func (m *Muxer) dtsVirtualUs(au *AccessUnit) int64 {
	ts := au.DTS
	if ts == nil {
		ts = au.PTS
	}
	if ts == nil {
		return 0
	}
	ninetyKHz := int64(ninetyKHzFromHost(*ts, m.hostTimescale, m.epoch))
	return ninetyKHz * 100 / 9
}

func (m *Muxer) stream(pid uint16) *ElementaryStream { return m.streams[pid] }

func (m *Muxer) emitAccessUnit(au *AccessUnit, nowUs int64) {
	es := m.stream(au.PID)
	var cc uint8
	if es != nil {
		cc = es.ContinuityCounter
	}

	var pcr *ClockReference
	if au.PID == m.settings.PCRPID {
		cr := m.pcrFromUs(nowUs)
		m.recordPCREmission(cr)
		pcr = &cr
		m.lastPCREmitUs = nowUs
	}

	payload, err := EncodePESPayload(au, m.hostTimescale, m.epoch)
	if err != nil {
		return
	}
	pkts, newCC, err := packetizePayload(au.PID, cc, payload, true, pcr, au.IsRandomAccessPoint)
	if err != nil {
		return
	}
	if es != nil {
		es.ContinuityCounter = newCC
	}
	for _, p := range pkts {
		m.emit(p)
	}
}

func (m *Muxer) dequeueReady(nowUs int64) *AccessUnit {
	if len(m.queue) == 0 {
		return nil
	}
	head := m.queue[0]
	if m.dtsVirtualUs(head) > nowUs {
		return nil
	}
	m.queue = m.queue[1:]
	return head
}

// Tick advances the muxer by elapsedMs wall-clock milliseconds, emitting
// packets via OnPacketBytes (spec §4.10). In CBR mode
// (TargetBitrateKbps > 0) the packet budget is computed from the target
// bitrate and slots are filled PSI-first, then PCR, then queued access
// units, then null stuffing. The budget counts emitted packets, so a PSI
// slot (PAT plus PMT) uses two packets of it. In VBR mode any due PSI is emitted and the
// whole queue is drained, with PCR derived from the wall clock.
func (m *Muxer) Tick(elapsedMs uint64) {
	m.wallClockMs += elapsedMs

	if m.settings.TargetBitrateKbps == 0 {
		m.tickVBR()
		return
	}

	budget := int64(m.settings.TargetBitrateKbps) * int64(elapsedMs) / (8 * 188)
	start := m.emittedBytes
	for int64((m.emittedBytes-start)/MpegTsPacketSize) < budget {
		nowUs := m.virtualTimeUs
		switch {
		case nowUs-m.lastPSIEmitUs >= int64(m.settings.PSIIntervalMs)*1000:
			m.emitPSI(nowUs)
		case nowUs-m.lastPCREmitUs >= int64(m.settings.PCRIntervalMs)*1000:
			m.emitPCROnly(nowUs)
		default:
			if au := m.dequeueReady(nowUs); au != nil {
				m.emitAccessUnit(au, nowUs)
			} else {
				m.emit(nullPacket())
			}
		}
	}
}

func (m *Muxer) tickVBR() {
	nowUs := int64(m.wallClockMs) * 1000
	if nowUs-m.lastPSIEmitUs >= int64(m.settings.PSIIntervalMs)*1000 {
		m.emitPSI(nowUs)
	}
	if nowUs-m.lastPCREmitUs >= int64(m.settings.PCRIntervalMs)*1000 {
		m.emitPCROnly(nowUs)
	}
	for len(m.queue) > 0 {
		au := m.queue[0]
		m.queue = m.queue[1:]
		m.emitAccessUnit(au, nowUs)
	}
}
