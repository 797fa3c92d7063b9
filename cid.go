package sdcard

import (
	"fmt"
	"strings"
)

// CID is the Card Identification register in wire order.
//
//	Samsung 32GB EVO Plus: 1b 53 4d 45 42 31 51 54 30 f1 77 5f ea 01 1a b9
//
//	1b                MID
//	53 4d             OID "SM"
//	45 42 31 51 54    PNM "EB1QT"
//	30                PRV 3.0
//	f1 77 5f ea       PSN
//	01 1a             MDT 2017/10 (low 12 bits)
//	b9                CRC7 0x5C, end bit
//
// [SD-PLS|5.2 CID Register]
type CID [16]byte

func (c *CID) reg() *register { return (*register)(c) }

// MID returns the manufacturer ID assigned by the SD Association.
func (c CID) MID() uint8 { return c[0] }

// OID returns the two character OEM/application ID.
func (c CID) OID() string { return string(c[1:3]) }

// PNM returns the five character product name.
func (c CID) PNM() string { return string(c[3:8]) }

func (c CID) PRV() uint8   { return c[8] }
func (c CID) Major() uint8 { return c[8] >> 4 }
func (c CID) Minor() uint8 { return c[8] & 0x0f }
func (c CID) PSN() uint32  { return c.reg().bits(24, 32) }
func (c CID) MDT() uint16  { return uint16(c.reg().bits(8, 12)) }
func (c CID) Year() int    { return 2000 + int(c.MDT()>>4) }
func (c CID) Month() int   { return int(c.MDT() & 0x0f) }
func (c CID) CRC() uint8   { return uint8(c.reg().bits(1, 7)) }

// ChecksumOK reports whether the stored CRC7 matches the register contents.
func (c CID) ChecksumOK() bool { return c.reg().checksumOK() }

// Manufacturer returns a vendor name for well known MIDs, or "" otherwise.
func (c CID) Manufacturer() string {
	return knownManufacturers[c.MID()]
}

func (c CID) String() string {
	var b strings.Builder
	mid := fmt.Sprintf("0x%02X", c.MID())
	if name := c.Manufacturer(); name != "" {
		mid += " (" + name + ")"
	}
	fmt.Fprintf(&b, "  MID: %s\n", mid)
	fmt.Fprintf(&b, "  OID: %s\n", c.OID())
	fmt.Fprintf(&b, "  PNM: %s\n", c.PNM())
	fmt.Fprintf(&b, "  PRV: %d.%d\n", c.Major(), c.Minor())
	fmt.Fprintf(&b, "  PSN: %08X\n", c.PSN())
	fmt.Fprintf(&b, "  MDT: %d/%d\n", c.Month(), c.Year())
	return b.String()
}
