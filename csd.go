package sdcard

import (
	"fmt"
	"strings"
)

// Structure is the CSD_STRUCTURE field selecting the CSD layout.
type Structure uint8

const (
	StructureV1 Structure = 0 // SDSC (SD 1.xx, 2.00 standard capacity) or MMC
	StructureV2 Structure = 1 // SDHC and SDXC
	StructureV3 Structure = 2 // SDUC
)

func (s Structure) Valid() bool { return s <= StructureV3 }

func (s Structure) String() string {
	switch s {
	case StructureV1:
		return "v1"
	case StructureV2:
		return "v2"
	case StructureV3:
		return "v3"
	default:
		return "INVALID"
	}
}

// CSD is the Card-Specific Data register in wire order.
//
// Fields shared by every layout are methods on CSD. The capacity fields live
// in a layout-dependent region reached through V1, V2 or V3, which only
// succeed when Structure matches. [SD-PLS|5.3 CSD Register]
type CSD [16]byte

func (c *CSD) reg() *register { return (*register)(c) }

func (c CSD) Structure() Structure   { return Structure(c.reg().bits(126, 2)) }
func (c CSD) TAAC() uint8            { return uint8(c.reg().bits(112, 8)) }
func (c CSD) NSAC() uint8            { return uint8(c.reg().bits(104, 8)) }
func (c CSD) TranSpeed() uint8       { return uint8(c.reg().bits(96, 8)) }
func (c CSD) CCC() uint16            { return uint16(c.reg().bits(84, 12)) }
func (c CSD) ReadBlLen() uint8       { return uint8(c.reg().bits(80, 4)) }
func (c CSD) ReadBlPartial() bool    { return c.reg().flag(79) }
func (c CSD) WriteBlkMisalign() bool { return c.reg().flag(78) }
func (c CSD) ReadBlkMisalign() bool  { return c.reg().flag(77) }
func (c CSD) DSRImp() bool           { return c.reg().flag(76) }
func (c CSD) EraseBlkEn() bool       { return c.reg().flag(46) }
func (c CSD) SectorSize() uint8      { return uint8(c.reg().bits(39, 7)) }
func (c CSD) WPGrpSize() uint8       { return uint8(c.reg().bits(32, 7)) }
func (c CSD) WPGrpEnable() bool      { return c.reg().flag(31) }
func (c CSD) R2WFactor() uint8       { return uint8(c.reg().bits(26, 3)) }
func (c CSD) WriteBlLen() uint8      { return uint8(c.reg().bits(22, 4)) }
func (c CSD) WriteBlPartial() bool   { return c.reg().flag(21) }
func (c CSD) FileFormatGrp() bool    { return c.reg().flag(15) }
func (c CSD) Copy() bool             { return c.reg().flag(14) }
func (c CSD) PermWriteProtect() bool { return c.reg().flag(13) }
func (c CSD) TmpWriteProtect() bool  { return c.reg().flag(12) }
func (c CSD) FileFormat() uint8      { return uint8(c.reg().bits(10, 2)) }
func (c CSD) WPUPC() bool            { return c.reg().flag(9) }
func (c CSD) CRC() uint8             { return uint8(c.reg().bits(1, 7)) }
func (c CSD) ChecksumOK() bool       { return c.reg().checksumOK() }
func (c CSD) Valid() bool            { return c.Structure().Valid() }

// CSDv1 is the standard capacity layout.
type CSDv1 struct{ CSD }

func (c CSDv1) CSize() uint16      { return uint16(c.reg().bits(62, 12)) }
func (c CSDv1) VDDRCurrMin() uint8 { return uint8(c.reg().bits(59, 3)) }
func (c CSDv1) VDDRCurrMax() uint8 { return uint8(c.reg().bits(56, 3)) }
func (c CSDv1) VDDWCurrMin() uint8 { return uint8(c.reg().bits(53, 3)) }
func (c CSDv1) VDDWCurrMax() uint8 { return uint8(c.reg().bits(50, 3)) }
func (c CSDv1) CSizeMult() uint8   { return uint8(c.reg().bits(47, 3)) }

// Size returns the capacity in bytes.
func (c CSDv1) Size() uint64 {
	return uint64(c.CSize()+1) << (c.CSizeMult() + 2) << c.ReadBlLen()
}

// CSDv2 is the high capacity layout with a 22-bit C_SIZE.
type CSDv2 struct{ CSD }

func (c CSDv2) CSize() uint32 { return c.reg().bits(48, 22) }
func (c CSDv2) Size() uint64  { return (uint64(c.CSize()) + 1) * 512 << 10 }

// CSDv3 is the ultra capacity layout with a 28-bit C_SIZE.
type CSDv3 struct{ CSD }

func (c CSDv3) CSize() uint32 { return c.reg().bits(48, 28) }
func (c CSDv3) Size() uint64  { return (uint64(c.CSize()) + 1) * 512 << 10 }

func (c CSD) V1() (CSDv1, bool) { return CSDv1{c}, c.Structure() == StructureV1 }
func (c CSD) V2() (CSDv2, bool) { return CSDv2{c}, c.Structure() == StructureV2 }
func (c CSD) V3() (CSDv3, bool) { return CSDv3{c}, c.Structure() == StructureV3 }

// Size returns the capacity in bytes for the layout named by Structure, or 0
// when Structure is not a known value.
func (c CSD) Size() uint64 {
	switch c.Structure() {
	case StructureV1:
		return CSDv1{c}.Size()
	case StructureV2:
		return CSDv2{c}.Size()
	case StructureV3:
		return CSDv3{c}.Size()
	}
	return 0
}

// cSize returns C_SIZE for whichever layout applies.
func (c CSD) cSize() uint32 {
	switch c.Structure() {
	case StructureV1:
		return uint32(CSDv1{c}.CSize())
	case StructureV2:
		return CSDv2{c}.CSize()
	case StructureV3:
		return CSDv3{c}.CSize()
	}
	return 0
}

func (c CSD) String() string {
	var b strings.Builder
	field := func(tag string, format string, a ...any) {
		fmt.Fprintf(&b, "  %s: "+format+"\n", append([]any{tag}, a...)...)
	}
	field("STRUCTURE", "%s", c.Structure())
	field("TAAC", "%d", c.TAAC())
	field("NSAC", "%d", c.NSAC())
	field("TRAN_SPEED", "%d", c.TranSpeed())
	field("CCC", "0x%03X", c.CCC())
	field("READ_BL_LEN", "%d", c.ReadBlLen())
	if c.Structure() == StructureV1 {
		v1 := CSDv1{c}
		field("C_SIZE", "%d", v1.CSize())
		field("C_SIZE_MULT", "%d", v1.CSizeMult())
	} else {
		field("C_SIZE", "%d", c.cSize())
	}
	field("SIZE", "%d", c.Size())
	field("ERASE_BLK_EN", "%t", c.EraseBlkEn())
	field("SECTOR_SIZE", "%d", c.SectorSize())
	field("WP_GRP_SIZE", "%d", c.WPGrpSize())
	field("WP_GRP_ENABLE", "%t", c.WPGrpEnable())
	field("R2W_FACTOR", "%d", c.R2WFactor())
	field("WRITE_BL_LEN", "%d", c.WriteBlLen())
	field("COPY", "%t", c.Copy())
	field("PERM_WRITE_PROTECT", "%t", c.PermWriteProtect())
	field("TMP_WRITE_PROTECT", "%t", c.TmpWriteProtect())
	field("FILE_FORMAT", "%d", c.FileFormat())
	field("CRC", "0x%02X", c.CRC())
	return b.String()
}
