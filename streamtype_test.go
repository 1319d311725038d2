package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStreamType_Direct(t *testing.T) {
	assert.Equal(t, ResolvedH264, ResolveStreamType(StreamTypeH264Video, nil))
	assert.Equal(t, ResolvedAACADTS, ResolveStreamType(StreamTypeAACADTS, nil))
	assert.Equal(t, ResolvedUnknown, ResolveStreamType(StreamType(0xEE), nil))
}

func TestResolveStreamType_PrivateDataDispatchesOnDescriptor(t *testing.T) {
	ac3 := ResolveStreamType(StreamTypePESPrivateData, []*Descriptor{{Tag: DescriptorTagAC3}})
	assert.Equal(t, ResolvedAC3, ac3)

	ac4 := ResolveStreamType(StreamTypePESPrivateData, []*Descriptor{
		{Tag: DescriptorTagExtension, Extension: &DescriptorExtension{ExtensionTag: ExtensionTagAC4, IsAC4: true}},
	})
	assert.Equal(t, ResolvedAC4, ac4)

	unknown := ResolveStreamType(StreamTypePESPrivateData, nil)
	assert.Equal(t, ResolvedUnknown, unknown)
}
