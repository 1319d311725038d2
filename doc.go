// Package tsmux implements the core of a bidirectional MPEG-2 Transport
// Stream multiplex engine: packet framing, PSI section assembly (PAT, PMT,
// SDT, VCT), PES access-unit reconstruction, a CBR/VBR muxer scheduler and
// an ETSI TR 101 290 Priority-1 compliance analyzer.
//
// The core is strictly synchronous: Demuxer.Demux, Muxer.Tick and
// Tr101290Analyzer.Analyze never spawn goroutines and never block on I/O.
// Callers own threading and time; every entry point takes time explicitly.
package tsmux
