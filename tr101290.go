package tsmux

// syncState is the TS-layer synchronization state machine named in spec
// §9 ("explicit enums for ... Sync (Unsynced/Syncing(k)/Synced)").
type syncState int

const (
	syncStateSynced syncState = iota
	syncStateSyncing
	syncStateUnsynced
)

// Tr101290Stats holds the ETSI TR 101 290 Priority-1 compliance counters
// (spec §4.11), grounded almost verbatim in
// original_source/.../TSTr101290Statistics.h's TSTr10129Prio1. Counters are
// monotonic; callers read and Reset() explicitly (spec §7: "Counters are
// never reset by normal operation").
type Tr101290Stats struct {
	TsSyncLoss    uint64
	SyncByteError uint64
	PatError      uint64
	CcError       uint64
	PmtError      uint64
	PidError      uint64
}

// Reset zeroes every counter.
func (s *Tr101290Stats) Reset() { *s = Tr101290Stats{} }

// Tr101290CompletedSection pairs a just-completed PSI section with the PID
// it completed on, grounded in
// original_source/.../TSTr101290CompletedSection.h.
type Tr101290CompletedSection struct {
	PID     uint16
	Section *Section
}

// Tr101290AnalyzeContext is the per-packet input to Tr101290Analyzer.Analyze
// (spec §4.11), grounded in
// original_source/.../TSTr101290AnalyzeContext.h, extended with CCGap
// (the continuity-tracker verdict for this packet's PID) since the original
// delegate model signaled continuity errors through a separate callback
// that has no equivalent in this engine's single entry-point design.
type Tr101290AnalyzeContext struct {
	PAT               *PATData
	PMTs              map[uint16]*PMTData // keyed by PMT PID
	NowMs             uint64
	CompletedSections []Tr101290CompletedSection
	CCGap             bool
}

// Tr101290Analyzer tracks Priority-1 compliance counters against the
// current PAT/PMT view and wall-clock timestamps (spec §4.11). It never
// causes demuxing to fail (spec §7): every anomaly only increments a
// counter.
type Tr101290Analyzer struct {
	Stats Tr101290Stats

	sync              syncState
	syncRun           int
	lastPATSeenMs     uint64
	havePAT           bool
	lastSectionSeenMs map[uint16]uint64 // PSI PID -> last time a section completed
	lastPacketSeenMs  map[uint16]uint64 // elementary PID -> last time a packet arrived
}

// NewTr101290Analyzer returns an analyzer that assumes sync is already
// acquired, matching a continuously-running receiver's expected starting
// condition (DESIGN.md documents this Open Question resolution).
func NewTr101290Analyzer() *Tr101290Analyzer {
	return &Tr101290Analyzer{
		sync:              syncStateSynced,
		lastSectionSeenMs: map[uint16]uint64{},
		lastPacketSeenMs:  map[uint16]uint64{},
	}
}

// ObserveSyncByte reports whether the sync byte for the packet (or, for a
// resync event spanning multiple garbage bytes, for the whole collapsed
// event) was valid (spec §4.11, ts_sync_loss/sync_byte_error; scenario 1).
func (a *Tr101290Analyzer) ObserveSyncByte(valid bool) {
	if valid {
		switch a.sync {
		case syncStateSynced:
			// already synced, nothing to do
		case syncStateSyncing:
			a.syncRun++
			if a.syncRun >= 5 {
				a.sync = syncStateSynced
				a.syncRun = 0
			}
		case syncStateUnsynced:
			a.sync = syncStateSyncing
			a.syncRun = 1
		}
		return
	}

	a.Stats.SyncByteError++
	switch a.sync {
	case syncStateSynced:
		a.sync = syncStateUnsynced
		a.syncRun = 0
		a.Stats.TsSyncLoss++
	case syncStateSyncing:
		a.sync = syncStateUnsynced
		a.syncRun = 0
	case syncStateUnsynced:
		// still unsynced, no new transition
	}
}

const (
	patTimeoutMs = 500
	pmtTimeoutMs = 500
	pidTimeoutMs = 5000
)

// Analyze folds one packet's observations into the running counters (spec
// §4.11). pid is the packet's PID; scramblingControl is its
// transport_scrambling_control field.
func (a *Tr101290Analyzer) Analyze(pid uint16, scramblingControl uint8, ctx Tr101290AnalyzeContext) {
	if ctx.CCGap {
		a.Stats.CcError++
	}

	for _, cs := range ctx.CompletedSections {
		a.lastSectionSeenMs[cs.PID] = ctx.NowMs
		if cs.PID == PIDPAT {
			a.havePAT = true
			a.lastPATSeenMs = ctx.NowMs
			if cs.Section.TableID != TableIDPAT {
				a.Stats.PatError++
			}
		}
		if ctx.PAT != nil {
			for _, p := range ctx.PAT.Programs {
				if p.ProgramNumber != 0 && p.PID == cs.PID && cs.Section.TableID != TableIDPMT {
					a.Stats.PmtError++
				}
			}
		}
	}

	if pid == PIDPAT {
		if scramblingControl != 0 {
			a.Stats.PatError++
		}
	}
	if a.havePAT && ctx.NowMs > a.lastPATSeenMs && ctx.NowMs-a.lastPATSeenMs > patTimeoutMs {
		a.Stats.PatError++
		a.lastPATSeenMs = ctx.NowMs // avoid re-incrementing every subsequent packet within the same gap
	}

	if ctx.PAT != nil {
		for _, p := range ctx.PAT.Programs {
			if p.ProgramNumber == 0 {
				continue
			}
			if pid == p.PID && scramblingControl != 0 {
				a.Stats.PmtError++
			}
			last, seen := a.lastSectionSeenMs[p.PID]
			if seen && ctx.NowMs > last && ctx.NowMs-last > pmtTimeoutMs {
				a.Stats.PmtError++
				a.lastSectionSeenMs[p.PID] = ctx.NowMs
			}
		}
	}

	if pid != PIDNull {
		a.lastPacketSeenMs[pid] = ctx.NowMs
	}
	for _, pmt := range ctx.PMTs {
		for _, es := range pmt.ElementaryStreams {
			last, seen := a.lastPacketSeenMs[es.ElementaryPID]
			if seen && ctx.NowMs > last && ctx.NowMs-last > pidTimeoutMs {
				a.Stats.PidError++
				a.lastPacketSeenMs[es.ElementaryPID] = ctx.NowMs
			}
		}
	}
}
