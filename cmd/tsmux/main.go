// Command tsmux synthesizes a small MPEG-TS file from generated access
// units, exercising Muxer in CBR mode end to end. There is no teacher
// equivalent (the teacher repo ships only a demuxing/probing CLI); this
// tool is a SPEC_FULL.md addition shaped after the teacher's
// cmd/astits-es-split in its flag layout and output-file handling.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/broadcastlabs/tsmux"
)

var (
	outputPath = flag.String("o", "", "the output TS file path")
	bitrate    = flag.Uint64("b", 3000, "target CBR bitrate in kbps (0 selects VBR)")
	durationMs = flag.Uint64("d", 2000, "duration of synthesized output, in milliseconds")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(fmt.Errorf("tsmux: %w", err))
	}
}

const (
	videoPID uint16 = 0x0100
	audioPID uint16 = 0x0101
	pmtPID   uint16 = 0x0020
)

func run() error {
	if *outputPath == "" {
		return errors.New("use -o to indicate an output path")
	}
	f, err := os.Create(*outputPath)
	if err != nil {
		return fmt.Errorf("creating %s failed: %w", *outputPath, err)
	}
	defer f.Close()

	settings := tsmux.MuxerSettings{
		ProgramNumber:        1,
		TransportStreamID:    1,
		PMTPID:               pmtPID,
		PCRPID:               videoPID,
		VideoPID:             videoPID,
		AudioPID:             audioPID,
		PSIIntervalMs:        100,
		PCRIntervalMs:        40,
		TargetBitrateKbps:    *bitrate,
		MaxQueuedAccessUnits: 256,
	}

	mux, err := tsmux.NewMuxer(settings, 90000)
	if err != nil {
		return fmt.Errorf("building muxer failed: %w", err)
	}
	if err := mux.AddElementaryStream(tsmux.ElementaryStream{
		PID:        videoPID,
		StreamType: tsmux.StreamTypeH264Video,
	}); err != nil {
		return fmt.Errorf("adding video stream failed: %w", err)
	}
	if err := mux.AddElementaryStream(tsmux.ElementaryStream{
		PID:        audioPID,
		StreamType: tsmux.StreamTypeAACADTS,
	}); err != nil {
		return fmt.Errorf("adding audio stream failed: %w", err)
	}
	if err := mux.Start(); err != nil {
		return fmt.Errorf("starting muxer failed: %w", err)
	}

	var written int
	mux.OnPacketBytes = func(b []byte) {
		if _, werr := f.Write(b); werr == nil {
			written++
		}
	}

	const tickMs = 20
	const frameIntervalMs = 40 // 25fps video
	var frameNo int64
	var pts int64

	for elapsed := uint64(0); elapsed < *durationMs; elapsed += tickMs {
		if int64(elapsed)%frameIntervalMs == 0 {
			p := pts
			mux.EnqueueAccessUnit(&tsmux.AccessUnit{
				PID:                 videoPID,
				PTS:                 &p,
				IsRandomAccessPoint: frameNo%25 == 0,
				StreamType:          tsmux.StreamTypeH264Video,
				Payload:             synthesizePayload(frameNo, 4096),
			})
			a := pts
			mux.EnqueueAccessUnit(&tsmux.AccessUnit{
				PID:        audioPID,
				PTS:        &a,
				StreamType: tsmux.StreamTypeAACADTS,
				Payload:    synthesizePayload(frameNo, 512),
			})
			frameNo++
			pts += 90000 * frameIntervalMs / 1000
		}
		mux.Tick(tickMs)
	}

	log.Printf("wrote %d packets (%d bytes) to %s\n", written, written*188, *outputPath)
	log.Printf("dropped access units: %d\n", mux.DroppedCount)
	return nil
}

func synthesizePayload(frameNo int64, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(frameNo + int64(i))
	}
	return b
}
