package tsmux

import (
	"bytes"
	"io"

	"github.com/icza/bitio"
)

// BitReader is a bounded, stack-friendly reader over an immutable byte
// slice. It never panics: out-of-bounds or misaligned reads set a sticky
// error (Err) and every subsequent read returns the zero value. Bit-level
// extraction is delegated to icza/bitio, which the rest of this package
// already depends on for PSI and PES decoding; BitReader only adds the
// bounds/alignment contract on top.
type BitReader struct {
	data []byte
	cr   *bitio.CountReader
	err  error
}

// NewBitReader wraps data for bounded reading. data is not copied and must
// outlive the BitReader.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data, cr: bitio.NewCountReader(bytes.NewReader(data))}
}

func (r *BitReader) byteAligned() bool { return r.cr.BitsCount%8 == 0 }

func (r *BitReader) readRaw(n uint8) uint64 {
	v, err := r.cr.ReadBits(n)
	if err != nil {
		r.err = err
		return 0
	}
	return v
}

// ReadBits returns the next n bits (1 <= n <= 32), MSB first, right-aligned
// in the result.
func (r *BitReader) ReadBits(n uint8) uint64 {
	if r.err != nil {
		return 0
	}
	if n < 1 || n > 32 {
		r.err = ErrBitReaderOutOfRange
		return 0
	}
	return r.readRaw(n)
}

// ReadBool reads a single bit as a boolean.
func (r *BitReader) ReadBool() bool {
	if r.err != nil {
		return false
	}
	return r.readRaw(1) == 1
}

// ReadU8 requires byte alignment.
func (r *BitReader) ReadU8() uint8 {
	if r.err != nil {
		return 0
	}
	if !r.byteAligned() {
		r.err = ErrBitReaderMisaligned
		return 0
	}
	return uint8(r.readRaw(8))
}

// ReadU16BE requires byte alignment.
func (r *BitReader) ReadU16BE() uint16 {
	if r.err != nil {
		return 0
	}
	if !r.byteAligned() {
		r.err = ErrBitReaderMisaligned
		return 0
	}
	return uint16(r.readRaw(16))
}

// ReadU32BE requires byte alignment.
func (r *BitReader) ReadU32BE() uint32 {
	if r.err != nil {
		return 0
	}
	if !r.byteAligned() {
		r.err = ErrBitReaderMisaligned
		return 0
	}
	return uint32(r.readRaw(32))
}

// ReadBytes requires byte alignment and returns n freshly allocated bytes.
func (r *BitReader) ReadBytes(n int) []byte {
	out := make([]byte, n)
	if r.err != nil {
		return out
	}
	if !r.byteAligned() {
		r.err = ErrBitReaderMisaligned
		return out
	}
	if _, err := io.ReadFull(r.cr, out); err != nil {
		r.err = err
		return make([]byte, n)
	}
	return out
}

// Skip discards nBits bits.
func (r *BitReader) Skip(nBits int) {
	for nBits > 32 && r.err == nil {
		r.readRaw(32)
		nBits -= 32
	}
	if r.err == nil && nBits > 0 {
		r.readRaw(uint8(nBits))
	}
}

// SubReader carves out the next nBytes bytes as an independent child
// BitReader and advances the parent past them. Requires byte alignment.
func (r *BitReader) SubReader(nBytes int) *BitReader {
	b := r.ReadBytes(nBytes)
	if r.err != nil {
		return NewBitReader(nil)
	}
	return NewBitReader(b)
}

// Err returns the sticky error, if any read has failed.
func (r *BitReader) Err() error { return r.err }

// BitsRead returns the number of bits consumed so far.
func (r *BitReader) BitsRead() int64 { return r.cr.BitsCount }

// RemainingBits returns the number of unread bits.
func (r *BitReader) RemainingBits() int {
	return len(r.data)*8 - int(r.cr.BitsCount)
}

// HasBits reports whether at least n more bits can be read.
func (r *BitReader) HasBits(n int) bool { return r.RemainingBits() >= n }
