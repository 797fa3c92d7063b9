package sdcard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC7(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"GO_IDLE_STATE", []byte{0x40, 0x00, 0x00, 0x00, 0x00}, 0x4A},
		{"SEND_IF_COND", []byte{0x48, 0x00, 0x00, 0x01, 0xAA}, 0x43},
		{"READ_SINGLE_BLOCK", []byte{0x51, 0x00, 0x00, 0x00, 0x00}, 0x2A},
		{"CID", sampleCID[:15], 0x5C},
		{"CSD", sampleCSD[:15], 0x2A},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CRC7(tt.data)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, got&0x80, "CRC7 is 7 bits wide")
		})
	}
}

func TestCRC7Table(t *testing.T) {
	// bitwise x^7 + x^3 + 1, shifted left by one
	for i := range 256 {
		crc := byte(i)
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x12
			} else {
				crc <<= 1
			}
		}
		assert.Equal(t, crc, crc7Table[i], "entry %d", i)
	}
}

func TestCRC16(t *testing.T) {
	ones := bytes.Repeat([]byte{0xFF}, SectorSize)
	assert.Equal(t, uint16(0x7FA1), CRC16(0, ones))
	assert.Equal(t, uint16(0x31C3), CRC16(0, []byte("123456789")))
	assert.Equal(t, uint16(0x0000), CRC16(0, make([]byte, SectorSize)))
	assert.Equal(t, uint16(0x1021), crc16Table[1])
}

func TestCRC16Seed(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")
	whole := CRC16(0, data)
	split := CRC16(CRC16(0, data[:10]), data[10:])
	assert.Equal(t, whole, split)
	assert.Equal(t, whole, CRC16(0, data), "deterministic")
}
