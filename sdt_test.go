package tsmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeSDT_RoundTrip(t *testing.T) {
	d := &SDTData{
		TransportStreamID: 1,
		OriginalNetworkID: 2,
		VersionNumber:     4,
		Actual:            true,
		Services: []*SDTService{
			{ServiceID: 200, RunningStatus: RunningStatusRunning, EITPresentFollowing: true},
			{ServiceID: 100, RunningStatus: RunningStatusNotRunning, FreeCAMode: true},
		},
	}
	b := encodeSDT(d)

	sec := decodeSectionFrame(b)
	assert.NotNil(t, sec)
	assert.Equal(t, TableIDSDTActual, sec.TableID)

	got, err := decodeSDTSection(sec)
	assert.NoError(t, err)
	assert.Equal(t, uint16(2), got.OriginalNetworkID)
	assert.True(t, got.Actual)
	assert.Len(t, got.Services, 2)
	// encodeSDT sorts ascending by service id
	assert.Equal(t, uint16(100), got.Services[0].ServiceID)
	assert.True(t, got.Services[0].FreeCAMode)
	assert.Equal(t, uint16(200), got.Services[1].ServiceID)
	assert.True(t, got.Services[1].EITPresentFollowing)
}

func TestEncodeSDT_OtherTableID(t *testing.T) {
	d := &SDTData{Actual: false}
	b := encodeSDT(d)
	sec := decodeSectionFrame(b)
	assert.Equal(t, TableIDSDTOther, sec.TableID)
}
