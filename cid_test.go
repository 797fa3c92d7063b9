package sdcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCID(t *testing.T) {
	c := sampleCID
	assert.Equal(t, uint8(0x1B), c.MID())
	assert.Equal(t, "SM", c.OID())
	assert.Equal(t, "EB1QT", c.PNM())
	assert.Equal(t, uint8(0x30), c.PRV())
	assert.Equal(t, uint8(3), c.Major())
	assert.Equal(t, uint8(0), c.Minor())
	assert.Equal(t, uint32(0xF1775FEA), c.PSN())
	assert.Equal(t, uint16(0x11A), c.MDT())
	assert.Equal(t, 2017, c.Year())
	assert.Equal(t, 10, c.Month())
	assert.Equal(t, uint8(0x5C), c.CRC())
	assert.True(t, c.ChecksumOK())
	assert.Equal(t, "Samsung", c.Manufacturer())
}

func TestCIDChecksum(t *testing.T) {
	c := sampleCID
	c[9] ^= 0x01
	assert.False(t, c.ChecksumOK())
}

func TestCIDString(t *testing.T) {
	s := sampleCID.String()
	assert.Contains(t, s, "MID: 0x1B (Samsung)\n")
	assert.Contains(t, s, "PNM: EB1QT\n")
	assert.Contains(t, s, "PRV: 3.0\n")
	assert.Contains(t, s, "PSN: F1775FEA\n")
	assert.Contains(t, s, "MDT: 10/2017\n")

	c := sampleCID
	c[0] = 0xEE
	assert.Empty(t, c.Manufacturer())
	assert.Contains(t, c.String(), "MID: 0xEE\n")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "00000000", Status(0).String())
	assert.Equal(t, "00000001 IDLE", Status(0x01).String())
	assert.Equal(t, "00000101 ILLEGAL,IDLE", Status(0x05).String())
	assert.Equal(t, "11111111 NO_RESPONSE", StatusNoResponse.String())

	st := Status(0x28)
	assert.True(t, st.AddressError())
	assert.True(t, st.CRCError())
	assert.False(t, st.Idle())
}

func TestStatus2(t *testing.T) {
	s := Status2(0x0120)
	assert.Equal(t, Status(0x01), s.R1())
	assert.True(t, s.WriteProtect())
	assert.False(t, s.OutOfRange())
	assert.False(t, s.Locked())
}
