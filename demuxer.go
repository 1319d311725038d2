package tsmux

// DemuxerMode selects which SI/PSIP table family the demuxer watches for a
// service list (spec §3, Lifecycles: "constructed with a mode (DVB|ATSC)"),
// grounded in original_source/.../TSDemuxer.h's TSDemuxerMode.
type DemuxerMode int

const (
	ModeDVB DemuxerMode = iota
	ModeATSC
)

// pidRole distinguishes how a PID is currently being dispatched, derived
// from PAT+PMT and updated on each version change (spec §4.9).
type pidRole int

const (
	pidRoleNone pidRole = iota
	pidRolePSI
	pidRoleElementary
)

// Demuxer is the top-level input pipeline: framing, packet decode, CC
// check and dispatch to section or PES assembly (spec §4.9), grounded in
// demuxer.go's packet buffer/program map shape and
// original_source/.../TSDemuxer.h's mode/delegate-callback shape. All entry
// points must be called from one goroutine per instance (spec §5).
type Demuxer struct {
	mode       DemuxerMode
	packetSize int
	detected   bool
	pending    []byte

	pat      *PATData
	cat      *CATData
	pmts     map[uint16]*PMTData // PMT PID -> PMTData
	sdt      *SDTData
	vct      *VCTData

	continuity map[uint16]*ContinuityTracker
	assemblers map[uint16]*SectionAssembler
	esBuilders map[uint16]*ElementaryStreamBuilder
	pidRoles   map[uint16]pidRole

	Analyzer *Tr101290Analyzer

	OnPAT        func(current, previous *PATData)
	OnCAT        func(current, previous *CATData)
	OnPMT        func(pid uint16, current, previous *PMTData)
	OnSDT        func(current, previous *SDTData)
	OnVCT        func(current, previous *VCTData)
	OnAccessUnit func(au *AccessUnit)

	// OnPacket, if set, is invoked once per decoded packet before
	// continuity/section/PES dispatch, for callers that want the raw
	// framing layer (e.g. cmd/tsprobe's packets mode).
	OnPacket func(pkt *Packet)
}

// NewDemuxer returns a Demuxer with no tables discovered yet.
func NewDemuxer(mode DemuxerMode) *Demuxer {
	return &Demuxer{
		mode:       mode,
		pmts:       map[uint16]*PMTData{},
		continuity: map[uint16]*ContinuityTracker{},
		assemblers: map[uint16]*SectionAssembler{},
		esBuilders: map[uint16]*ElementaryStreamBuilder{},
		pidRoles:   map[uint16]pidRole{},
	}
}

func (d *Demuxer) continuityTracker(pid uint16) *ContinuityTracker {
	t, ok := d.continuity[pid]
	if !ok {
		t = NewContinuityTracker()
		d.continuity[pid] = t
	}
	return t
}

func (d *Demuxer) assembler(pid uint16) *SectionAssembler {
	a, ok := d.assemblers[pid]
	if !ok {
		a = NewSectionAssembler()
		d.assemblers[pid] = a
	}
	return a
}

func (d *Demuxer) setPIDRole(pid uint16, role pidRole) {
	if d.pidRoles[pid] == role {
		return
	}
	// A filter change resets the tracker to avoid false gaps from stale
	// state (spec §4.7).
	d.pidRoles[pid] = role
	d.continuityTracker(pid).Reset()
}

// Demux consumes chunk, decoding and dispatching every complete packet it
// contains. Until the packet size has been detected, which needs a sync byte
// at offset 0 and a second one 188 or 204 bytes later, input is buffered and
// nothing is decoded. arrivalTimeMs must be monotonic non-decreasing across calls on
// this instance (spec §5, §6).
func (d *Demuxer) Demux(chunk []byte, arrivalTimeMs uint64) error {
	data := append(d.pending, chunk...)
	d.pending = nil

	if !d.detected {
		size, err := DetectPacketSize(data)
		if err != nil {
			d.pending = data
			return nil
		}
		d.packetSize = size
		d.detected = true
	}

	offset := 0
	for offset < len(data) {
		if data[offset] != syncByte {
			next, ok := d.resync(data, offset)
			if d.Analyzer != nil {
				d.Analyzer.ObserveSyncByte(false)
			}
			if !ok {
				offset = len(data)
				break
			}
			offset = next
			continue
		}
		if offset+d.packetSize > len(data) {
			break
		}
		if d.Analyzer != nil {
			d.Analyzer.ObserveSyncByte(true)
		}
		d.processPacket(data[offset:offset+d.packetSize], arrivalTimeMs)
		offset += d.packetSize
	}

	d.pending = append([]byte{}, data[offset:]...)
	return nil
}

// resync scans forward from offset for the next sync byte at the detected
// packet stride (spec §4.9: "resync by scanning forward for 0x47 at
// stride = packet_size"). The whole skipped span is reported to the
// analyzer as one corrupted-sync observation (spec scenario 1).
func (d *Demuxer) resync(data []byte, offset int) (int, bool) {
	for i := offset + 1; i+d.packetSize <= len(data); i++ {
		if data[i] != syncByte {
			continue
		}
		if i+d.packetSize < len(data) && data[i+d.packetSize] != syncByte {
			continue
		}
		return i, true
	}
	return 0, false
}

func (d *Demuxer) processPacket(raw []byte, nowMs uint64) {
	pkt, err := DecodePacket(raw, d.packetSize)
	if err != nil {
		return
	}
	hdr := pkt.Header

	if d.OnPacket != nil {
		d.OnPacket(pkt)
	}

	ccGap := false
	if hdr.HasPayload {
		res := d.continuityTracker(hdr.PID).Check(hdr.ContinuityCounter)
		if res.Result == ContinuityGap {
			ccGap = true
			if a, ok := d.esBuilders[hdr.PID]; ok {
				a.DiscardOnGap()
			}
			if a, ok := d.assemblers[hdr.PID]; ok {
				a.Reset()
			}
		}
	}

	var completed []Tr101290CompletedSection
	if hdr.HasPayload {
		switch d.pidRoles[hdr.PID] {
		case pidRoleElementary:
			d.feedElementary(hdr.PID, hdr.PayloadUnitStartIndicator, pkt.Payload, pkt.AdaptationField)
		default:
			completed = d.feedSection(hdr.PID, hdr.PayloadUnitStartIndicator, pkt.Payload)
		}
	}

	if d.Analyzer != nil {
		d.Analyzer.Analyze(hdr.PID, hdr.TransportScramblingControl, Tr101290AnalyzeContext{
			PAT:               d.pat,
			PMTs:              d.pmts,
			NowMs:             nowMs,
			CompletedSections: completed,
			CCGap:             ccGap,
		})
	}
}

func (d *Demuxer) isPSIPID(pid uint16) bool {
	switch pid {
	case PIDPAT:
		return true
	case PIDCAT:
		return true
	case PIDSDT:
		return d.mode == ModeDVB
	case PIDATSCSI:
		return d.mode == ModeATSC
	}
	if _, ok := d.pmts[pid]; ok {
		return true
	}
	return d.isPMTPID(pid)
}

func (d *Demuxer) isPMTPID(pid uint16) bool {
	if d.pat == nil {
		return false
	}
	for _, p := range d.pat.Programs {
		if p.ProgramNumber != 0 && p.PID == pid {
			return true
		}
	}
	return false
}

func (d *Demuxer) feedSection(pid uint16, pusi bool, payload []byte) []Tr101290CompletedSection {
	if !d.isPSIPID(pid) {
		return nil
	}
	sections := d.assembler(pid).Feed(pusi, payload)
	var completed []Tr101290CompletedSection
	for _, sec := range sections {
		completed = append(completed, Tr101290CompletedSection{PID: pid, Section: sec})
		d.dispatchSection(pid, sec)
	}
	return completed
}

func (d *Demuxer) dispatchSection(pid uint16, sec *Section) {
	table, err := DecodePSITable(sec)
	if err != nil {
		return
	}
	switch {
	case table.PAT != nil:
		prev := d.pat
		d.pat = table.PAT
		d.reconcilePMTPIDs()
		if d.OnPAT != nil {
			d.OnPAT(d.pat, prev)
		}
	case table.CAT != nil:
		prev := d.cat
		d.cat = table.CAT
		if d.OnCAT != nil {
			d.OnCAT(d.cat, prev)
		}
	case table.PMT != nil:
		prev := d.pmts[pid]
		d.pmts[pid] = table.PMT
		d.reconcileElementaryPIDs(pid, table.PMT)
		if d.OnPMT != nil {
			d.OnPMT(pid, table.PMT, prev)
		}
	case table.SDT != nil:
		prev := d.sdt
		d.sdt = table.SDT
		if d.OnSDT != nil {
			d.OnSDT(d.sdt, prev)
		}
	case table.VCT != nil:
		prev := d.vct
		d.vct = table.VCT
		if d.OnVCT != nil {
			d.OnVCT(d.vct, prev)
		}
	}
}

// reconcilePMTPIDs creates section assemblers for newly-referenced PMT PIDs
// and retires ones no longer in the current PAT (spec §4.9).
func (d *Demuxer) reconcilePMTPIDs() {
	wanted := map[uint16]bool{}
	for _, p := range d.pat.Programs {
		if p.ProgramNumber == 0 {
			continue
		}
		wanted[p.PID] = true
		d.setPIDRole(p.PID, pidRolePSI)
	}
	for pid := range d.pmts {
		if !wanted[pid] {
			delete(d.pmts, pid)
			delete(d.assemblers, pid)
			delete(d.continuity, pid)
			delete(d.pidRoles, pid)
		}
	}
}

// reconcileElementaryPIDs creates/destroys ElementaryStreamBuilders so the
// builder set always matches the PMT's current elementary stream PID set
// (spec §3, Lifecycles: "Elementary stream objects are owned by their PMT
// and destroyed when the PMT version changes the PID set").
func (d *Demuxer) reconcileElementaryPIDs(pmtPID uint16, pmt *PMTData) {
	wanted := map[uint16]*PMTElementaryStream{}
	for _, es := range pmt.ElementaryStreams {
		wanted[es.ElementaryPID] = es
	}

	for pid, es := range wanted {
		b, ok := d.esBuilders[pid]
		if !ok {
			b = NewElementaryStreamBuilder(pid)
			d.esBuilders[pid] = b
		}
		b.SetStreamContext(es.StreamType, es.Descriptors)
		d.setPIDRole(pid, pidRoleElementary)
	}

	for pid := range d.esBuilders {
		if belongsToOtherPMT(d.pmts, pmtPID, pid) {
			continue
		}
		if _, ok := wanted[pid]; !ok {
			delete(d.esBuilders, pid)
			delete(d.continuity, pid)
			delete(d.pidRoles, pid)
		}
	}
}

func belongsToOtherPMT(pmts map[uint16]*PMTData, exclude, pid uint16) bool {
	for otherPMTPID, pmt := range pmts {
		if otherPMTPID == exclude {
			continue
		}
		if _, ok := pmt.ElementaryStream(pid); ok {
			return true
		}
	}
	return false
}

func (d *Demuxer) feedElementary(pid uint16, pusi bool, payload []byte, af *AdaptationField) {
	b, ok := d.esBuilders[pid]
	if !ok {
		return
	}
	for _, au := range b.Feed(pusi, payload, af) {
		if d.OnAccessUnit != nil {
			d.OnAccessUnit(au)
		}
	}
}

// PAT returns the most recently observed PAT, or nil.
func (d *Demuxer) PAT() *PATData { return d.pat }

// CAT returns the most recently observed CAT, or nil.
func (d *Demuxer) CAT() *CATData { return d.cat }

// PMTs returns the current PMT PID -> PMTData view.
func (d *Demuxer) PMTs() map[uint16]*PMTData { return d.pmts }

// SDT returns the most recently observed SDT (DVB mode), or nil.
func (d *Demuxer) SDT() *SDTData { return d.sdt }

// VCT returns the most recently observed VCT (ATSC mode), or nil.
func (d *Demuxer) VCT() *VCTData { return d.vct }
