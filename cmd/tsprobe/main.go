// Command tsprobe inspects an MPEG-TS file, mirroring the teacher's
// cmd/astits-probe <data|packets|default> command dispatch: "packets" dumps
// raw packet framing, "data" dumps PAT/CAT/PMT/SDT/VCT/access-unit events
// filtered by a -d whitelist, and the default command prints a summary plus
// the final TR 101 290 report.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/pkg/profile"

	"github.com/broadcastlabs/tsmux"
)

var (
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	inputPath       = flag.String("i", "", "the input TS file path")
	modeFlag        = flag.String("mode", "dvb", "service-list mode: dvb or atsc")
	dataTypes       = astikit.NewFlagStrings()
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <data|packets|default>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(dataTypes, "d", "the datatypes whitelist for the data command (all, pat, cat, pmt, sdt, vct, au)")
	cmd := astikit.FlagCmd()
	flag.Parse()

	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	if err := run(cmd); err != nil {
		log.Fatal(fmt.Errorf("tsprobe: %w", err))
	}
}

func run(cmd string) error {
	if *inputPath == "" {
		return errors.New("use -i to indicate an input path")
	}
	f, err := os.Open(*inputPath)
	if err != nil {
		return fmt.Errorf("opening %s failed: %w", *inputPath, err)
	}
	defer f.Close()

	mode := tsmux.ModeDVB
	if *modeFlag == "atsc" {
		mode = tsmux.ModeATSC
	}

	dmx := tsmux.NewDemuxer(mode)
	dmx.Analyzer = tsmux.NewTr101290Analyzer()

	var auCount int
	switch cmd {
	case "packets":
		wirePackets(dmx)
	case "data":
		wireData(dmx, dataTypes)
	default:
		wireSummary(dmx, &auCount)
	}

	buf := make([]byte, 188*512)
	start := time.Now()
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if derr := dmx.Demux(buf[:n], uint64(time.Since(start)/time.Millisecond)); derr != nil {
				return fmt.Errorf("demuxing failed: %w", derr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading input failed: %w", rerr)
		}
	}

	if cmd == "" || cmd == "default" {
		log.Printf("access units: %d\n", auCount)
	}
	if cmd != "packets" {
		log.Printf("TR 101 290: %+v\n", dmx.Analyzer.Stats)
	}
	return nil
}

// wirePackets logs every decoded packet's framing, mirroring the teacher's
// "packets" command.
func wirePackets(dmx *tsmux.Demuxer) {
	log.Println("Fetching packets...")
	dmx.OnPacket = func(pkt *tsmux.Packet) {
		log.Printf("PKT: %d\n", pkt.Header.PID)
		log.Printf("  Continuity Counter: %v\n", pkt.Header.ContinuityCounter)
		log.Printf("  Payload Unit Start Indicator: %v\n", pkt.Header.PayloadUnitStartIndicator)
		log.Printf("  Has Payload: %v\n", pkt.Header.HasPayload)
		log.Printf("  Has Adaptation Field: %v\n", pkt.Header.HasAdaptationField)
		log.Printf("  Transport Error Indicator: %v\n", pkt.Header.TransportErrorIndicator)
		log.Printf("  Transport Priority: %v\n", pkt.Header.TransportPriority)
		log.Printf("  Transport Scrambling Control: %v\n", pkt.Header.TransportScramblingControl)
		if pkt.Header.HasAdaptationField {
			log.Printf("  Adaptation Field: %+v\n", pkt.AdaptationField)
		}
	}
}

// wireData logs PAT/CAT/PMT/SDT/VCT/access-unit events gated by the -d
// whitelist, mirroring the teacher's "data" command's dataTypes.Map lookups.
func wireData(dmx *tsmux.Demuxer, types *astikit.FlagStrings) {
	_, all := types.Map["all"]
	want := func(name string) bool {
		if all {
			return true
		}
		_, ok := types.Map[name]
		return ok
	}

	log.Println("Fetching data...")
	dmx.OnPAT = func(cur, prev *tsmux.PATData) {
		if !want("pat") {
			return
		}
		log.Printf("PAT: transport_stream_id=%d programs=%d\n", cur.TransportStreamID, len(cur.Programs))
		for _, p := range cur.Programs {
			log.Printf("    %+v\n", p)
		}
	}
	dmx.OnCAT = func(cur, prev *tsmux.CATData) {
		if !want("cat") {
			return
		}
		log.Printf("CAT: descriptors=%d\n", len(cur.Descriptors))
	}
	dmx.OnPMT = func(pid uint16, cur, prev *tsmux.PMTData) {
		if !want("pmt") {
			return
		}
		log.Printf("PMT pid=%d: program_number=%d pcr_pid=%d\n", pid, cur.ProgramNumber, cur.PCRPID)
		for _, es := range cur.ElementaryStreams {
			log.Printf("    pid=%d stream_type=0x%02x resolved=%s\n", es.ElementaryPID, es.StreamType, es.ResolvedType())
		}
	}
	dmx.OnSDT = func(cur, prev *tsmux.SDTData) {
		if !want("sdt") {
			return
		}
		log.Printf("SDT: services=%d\n", len(cur.Services))
	}
	dmx.OnVCT = func(cur, prev *tsmux.VCTData) {
		if !want("vct") {
			return
		}
		log.Printf("VCT: channels=%d\n", len(cur.Channels))
		for _, c := range cur.Channels {
			log.Printf("    %s %q -> program %d\n", c.ChannelNumber(), c.ShortName, c.ProgramNumber)
		}
	}
	dmx.OnAccessUnit = func(au *tsmux.AccessUnit) {
		if !want("au") {
			return
		}
		log.Printf("AU: pid=%d stream_type=0x%02x bytes=%d random_access=%v\n", au.PID, au.StreamType, len(au.Payload), au.IsRandomAccessPoint)
	}
}

// wireSummary prints the running totals that the default command reports:
// each table as it's discovered, plus an access-unit count for the final
// report.
func wireSummary(dmx *tsmux.Demuxer, auCount *int) {
	dmx.OnPAT = func(cur, prev *tsmux.PATData) {
		log.Printf("PAT: transport_stream_id=%d programs=%d\n", cur.TransportStreamID, len(cur.Programs))
	}
	dmx.OnPMT = func(pid uint16, cur, prev *tsmux.PMTData) {
		log.Printf("PMT pid=%d: program_number=%d pcr_pid=%d streams=%d\n", pid, cur.ProgramNumber, cur.PCRPID, len(cur.ElementaryStreams))
		for _, es := range cur.ElementaryStreams {
			log.Printf("  pid=%d stream_type=0x%02x resolved=%s\n", es.ElementaryPID, es.StreamType, es.ResolvedType())
		}
	}
	dmx.OnSDT = func(cur, prev *tsmux.SDTData) {
		log.Printf("SDT: services=%d\n", len(cur.Services))
	}
	dmx.OnVCT = func(cur, prev *tsmux.VCTData) {
		log.Printf("VCT: channels=%d\n", len(cur.Channels))
		for _, c := range cur.Channels {
			log.Printf("  %s %q -> program %d\n", c.ChannelNumber(), c.ShortName, c.ProgramNumber)
		}
	}
	dmx.OnAccessUnit = func(au *tsmux.AccessUnit) {
		*auCount++
		if *auCount%1000 == 0 {
			log.Printf("access units so far: %d\n", *auCount)
		}
	}
}
