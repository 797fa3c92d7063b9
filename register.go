package sdcard

import "encoding/binary"

// register is a 128-bit card register in wire order: byte 0 carries bits
// 127..120. Field positions count from bit 0 at the end of the last byte.
type register [16]byte

// bits returns width bits (at most 32) starting at bit start.
func (r *register) bits(start, width uint) uint32 {
	hi := binary.BigEndian.Uint64(r[:8])
	lo := binary.BigEndian.Uint64(r[8:])

	var v uint64
	switch {
	case start >= 64:
		v = hi >> (start - 64)
	case start == 0:
		v = lo
	default:
		v = lo>>start | hi<<(64-start)
	}
	return uint32(v & (1<<width - 1))
}

func (r *register) flag(bit uint) bool {
	return r.bits(bit, 1) != 0
}

// checksumOK reports whether the CRC7 in bits 7..1 covers bytes 0..14.
func (r *register) checksumOK() bool {
	return CRC7(r[:15]) == r[15]>>1
}
