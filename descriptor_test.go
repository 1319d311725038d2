package tsmux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeRawDescriptor(tag DescriptorTag, value []byte) []byte {
	return append([]byte{uint8(tag), uint8(len(value))}, value...)
}

func TestParseDescriptors_Registration(t *testing.T) {
	value := []byte{'A', 'C', '-', '3'}
	raw := encodeRawDescriptor(DescriptorTagRegistration, value)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 1)
	assert.NotNil(t, descs[0].Registration)
	assert.Equal(t, uint32(0x41432D33), descs[0].Registration.FormatIdentifier)
}

func TestParseDescriptors_ISO639Language(t *testing.T) {
	value := []byte{'e', 'n', 'g', 0x01}
	raw := encodeRawDescriptor(DescriptorTagISO639Language, value)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 1)
	assert.Equal(t, []byte("eng"), descs[0].ISO639Language.Language)
	assert.Equal(t, uint8(1), descs[0].ISO639Language.Type)
}

func TestParseDescriptors_AC3Flags(t *testing.T) {
	// component_type/bsid/mainid/asvc flags all set, one byte each follows.
	value := []byte{0xF0, 0x11, 0x22, 0x33, 0x44}
	raw := encodeRawDescriptor(DescriptorTagAC3, value)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 1)
	ac3 := descs[0].AC3
	assert.True(t, ac3.HasComponentType)
	assert.Equal(t, uint8(0x11), ac3.ComponentType)
	assert.True(t, ac3.HasBSID)
	assert.Equal(t, uint8(0x22), ac3.BSID)
	assert.True(t, ac3.HasMainID)
	assert.Equal(t, uint8(0x33), ac3.MainID)
	assert.True(t, ac3.HasASVC)
	assert.Equal(t, uint8(0x44), ac3.ASVC)
}

func TestParseDescriptors_ExtensionAC4(t *testing.T) {
	value := []byte{ExtensionTagAC4}
	raw := encodeRawDescriptor(DescriptorTagExtension, value)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 1)
	assert.True(t, descs[0].Extension.IsAC4)
}

func TestParseDescriptors_UnhandledTagKeepsRaw(t *testing.T) {
	value := []byte{0x01, 0x02, 0x03}
	raw := encodeRawDescriptor(DescriptorTag(0xF0), value)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 1)
	assert.Equal(t, value, descs[0].Raw)
}

func TestParseDescriptors_MultipleInLoop(t *testing.T) {
	a := encodeRawDescriptor(DescriptorTagISO639Language, []byte{'e', 'n', 'g', 0x00})
	b := encodeRawDescriptor(DescriptorTagAAC, []byte{0x2B})
	raw := append(append([]byte{}, a...), b...)

	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))
	assert.Len(t, descs, 2)
	assert.NotNil(t, descs[0].ISO639Language)
	assert.NotNil(t, descs[1].AAC)
	assert.Equal(t, uint8(0x2B), descs[1].AAC.ProfileAndLevel)
}

func TestWriteDescriptors_RoundTripsRawBytes(t *testing.T) {
	value := []byte{'e', 'n', 'g', 0x00}
	raw := encodeRawDescriptor(DescriptorTagISO639Language, value)
	r := NewBitReader(raw)
	descs := parseDescriptors(r, len(raw))

	buf := &bytes.Buffer{}
	bw := newBitsWriter(buf)
	writeDescriptors(bw, descs)
	assert.NoError(t, bw.Err())
	assert.Equal(t, raw, buf.Bytes())
	assert.Equal(t, len(raw), descriptorsLen(descs))
}

func TestDescriptorsLen_Empty(t *testing.T) {
	assert.Equal(t, 0, descriptorsLen(nil))
}
