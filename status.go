package sdcard

import (
	"fmt"
	"strings"
)

// Status is the R1 response every command returns first.
//
//	Bit | [SD-PLS|7.3.2.1 Format R1]
//	----+---------------------------
//	7   | always 0 (1 = no response)
//	6   | parameter error
//	5   | address error
//	4   | erase sequence error
//	3   | command CRC error
//	2   | illegal command
//	1   | erase reset
//	0   | in idle state
type Status byte

// StatusNoResponse is returned when no R1 appeared on the bus.
const StatusNoResponse Status = 0xFF

func (s Status) Valid() bool            { return s&(1<<7) == 0 }
func (s Status) ParameterError() bool   { return s&(1<<6) != 0 }
func (s Status) AddressError() bool     { return s&(1<<5) != 0 }
func (s Status) EraseSequenceErr() bool { return s&(1<<4) != 0 }
func (s Status) CRCError() bool         { return s&(1<<3) != 0 }
func (s Status) IllegalCommand() bool   { return s&(1<<2) != 0 }
func (s Status) EraseReset() bool       { return s&(1<<1) != 0 }
func (s Status) Idle() bool             { return s&(1<<0) != 0 }

func (s Status) String() string {
	b := fmt.Sprintf("%08b", byte(s))
	if !s.Valid() {
		return b + " NO_RESPONSE"
	}
	var f []string
	if s.ParameterError() {
		f = append(f, "PARAM")
	}
	if s.AddressError() {
		f = append(f, "ADDR")
	}
	if s.EraseSequenceErr() {
		f = append(f, "ERASE_SEQ")
	}
	if s.CRCError() {
		f = append(f, "CRC")
	}
	if s.IllegalCommand() {
		f = append(f, "ILLEGAL")
	}
	if s.EraseReset() {
		f = append(f, "ERASE_RESET")
	}
	if s.Idle() {
		f = append(f, "IDLE")
	}
	if len(f) == 0 {
		return b
	}
	return b + " " + strings.Join(f, ",")
}

// Status2 is the R2 response of SEND_STATUS: R1 in the high byte and the
// second status byte in the low byte. [SD-PLS|7.3.2.3 Format R2]
type Status2 uint16

func (s Status2) R1() Status { return Status(s >> 8) }

func (s Status2) OutOfRange() bool    { return s&(1<<7) != 0 }
func (s Status2) EraseParam() bool    { return s&(1<<6) != 0 }
func (s Status2) WriteProtect() bool  { return s&(1<<5) != 0 }
func (s Status2) CardECCFailed() bool { return s&(1<<4) != 0 }
func (s Status2) CCError() bool       { return s&(1<<3) != 0 }
func (s Status2) GeneralError() bool  { return s&(1<<2) != 0 }
func (s Status2) LockCmdFailed() bool { return s&(1<<1) != 0 }
func (s Status2) Locked() bool        { return s&(1<<0) != 0 }
func (s Status2) String() string      { return fmt.Sprintf("%s / %08b", s.R1(), byte(s)) }
