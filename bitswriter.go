package tsmux

import (
	"io"

	"github.com/asticode/go-astikit"
)

// bitsWriter is a small sticky-error wrapper around astikit.BitsWriter,
// mirroring BitReader's sticky-error read side on the encode path: once a
// write fails every subsequent call becomes a no-op and Err reports the
// first failure. This keeps the PSI/PES/descriptor encoders, which issue
// dozens of field writes each, free of per-field error checks while still
// surfacing a real error to the caller.
type bitsWriter struct {
	w   *astikit.BitsWriter
	err error
}

func newBitsWriter(out io.Writer) *bitsWriter {
	return &bitsWriter{w: astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: out})}
}

func (b *bitsWriter) writeBool(v bool) {
	if b.err != nil {
		return
	}
	b.err = b.w.Write(v)
}

func (b *bitsWriter) writeU8(v uint8) {
	if b.err != nil {
		return
	}
	b.err = b.w.Write(v)
}

func (b *bitsWriter) writeU16(v uint16) {
	if b.err != nil {
		return
	}
	b.err = b.w.Write(v)
}

func (b *bitsWriter) writeU32(v uint32) {
	if b.err != nil {
		return
	}
	b.err = b.w.Write(v)
}

func (b *bitsWriter) writeN(v interface{}, n int) {
	if b.err != nil {
		return
	}
	b.err = b.w.WriteN(v, n)
}

func (b *bitsWriter) writeBytes(v []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(v)
}

func (b *bitsWriter) Err() error { return b.err }
