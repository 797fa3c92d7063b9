package sdcard

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Command indices. [SD-PLS|7.3.1.3 Detailed Command Description]
// Application commands carry the acmd flag and are sent after APP_CMD.
const (
	cmdGoIdleState        = 0
	cmdSendOpCond         = 1
	cmdSendIfCond         = 8
	cmdSendCSD            = 9
	cmdSendCID            = 10
	cmdStopTransmission   = 12
	cmdSendStatus         = 13
	cmdSetBlockLen        = 16
	cmdReadSingleBlock    = 17
	cmdReadMultipleBlock  = 18
	cmdSetBlockCount      = 23
	cmdWriteBlock         = 24
	cmdWriteMultipleBlock = 25
	cmdEraseWrBlkStart    = 32
	cmdEraseWrBlkEnd      = 33
	cmdErase              = 38
	cmdAppCmd             = 55
	cmdReadOCR            = 58

	acmd                   = 0x80
	acmdSDStatus           = acmd | 13
	acmdSetWrBlkEraseCount = acmd | 23
	acmdSendOpCond         = acmd | 41
)

const (
	frameSize  = 6
	statusMask = 0x7E // R1 error bits
	statusIdle = 0x01
)

// response describes what follows a command's R1.
type response struct {
	stuff int  // bytes to discard before polling for R1
	extra int  // R2/R3/R7 bytes after R1
	data  int  // data block after the response, CRC16 checked
	busy  bool // R1b: wait for the card to release DO
	// noWait skips the ready check before sending, for commands issued while
	// the card is streaming data.
	noWait bool
}

// responses lists every command whose response is not a bare R1.
var responses = map[byte]response{
	cmdSendIfCond:       {extra: 4},                           // R7
	cmdSendCSD:          {data: 16},                           // R1 + CSD
	cmdSendCID:          {data: 16},                           // R1 + CID
	cmdStopTransmission: {stuff: 1, busy: true, noWait: true}, // R1b
	cmdSendStatus:       {extra: 1},                           // R2
	cmdReadSingleBlock:  {data: SectorSize},                   // R1 + sector
	cmdErase:            {busy: true},                         // R1b
	cmdReadOCR:          {extra: 4},                           // R3
	acmdSDStatus:        {extra: 1, data: 64},                 // R2 + SD status
}

// responseSize returns how many bytes command copies into resp for cmd.
func responseSize(cmd byte) int {
	r := responses[cmd]
	return r.extra + r.data
}

func cmdName(cmd byte) string {
	if cmd&acmd != 0 {
		return fmt.Sprintf("ACMD%d", cmd&^acmd)
	}
	return fmt.Sprintf("CMD%d", cmd)
}

// frame builds the 6-byte command packet: start bits and index, big endian
// argument, CRC7 and end bit. [SD-PLS|7.3.1.1 Command Format]
func frame(index byte, arg uint32) [frameSize]byte {
	var f [frameSize]byte
	f[0] = 0x40 | index&0x3F
	binary.BigEndian.PutUint32(f[1:5], arg)
	f[5] = CRC7(f[:5])<<1 | 1
	return f
}

// command sends cmd and returns its R1.
//
// Bytes following R1 (R2, R3, R7) and then any data block are copied into
// resp, which must hold responseSize(cmd) bytes. The returned Status is
// meaningful even with a non-nil error: R1 with error bits set is returned
// alongside a *ResponseError, and StatusNoResponse accompanies timeouts and
// checksum failures.
func (c *Card) command(cmd byte, arg uint32, resp []byte) (Status, error) {
	if cmd&acmd != 0 {
		st, err := c.command(cmdAppCmd, 0, nil)
		if err != nil {
			return st, err
		}
		if st > 1 {
			c.logf("%s: APP_CMD returned %s", cmdName(cmd), st)
			return st, &ResponseError{Cmd: cmdAppCmd, Status: st}
		}
	}

	rt := responses[cmd]
	if len(resp) < rt.extra+rt.data {
		return StatusNoResponse, fmt.Errorf("sdcard: %s needs a %d byte response buffer", cmdName(cmd), rt.extra+rt.data)
	}

	t := &c.cfg.timing
	if !rt.noWait {
		if err := c.waitReady(t.ReadyPolls, t.ReadyDelay); err != nil {
			return StatusNoResponse, fmt.Errorf("%s: card busy: %w", cmdName(cmd), err)
		}
	}

	f := frame(cmd&^acmd, arg)
	if err := c.send(f[:]); err != nil {
		return StatusNoResponse, err
	}
	for range rt.stuff {
		if _, err := c.readByte(); err != nil {
			return StatusNoResponse, err
		}
	}

	st, err := c.pollResponse()
	if err != nil {
		return st, fmt.Errorf("%s: %w", cmdName(cmd), err)
	}
	// the rest of R2/R3/R7 is clocked out even when R1 reports an error
	if rt.extra > 0 {
		if err := c.recv(resp[:rt.extra]); err != nil {
			return StatusNoResponse, err
		}
	}
	mask := Status(statusMask)
	if c.initialized {
		// idle after Begin means the card went through a reset
		mask |= statusIdle
	}
	if st&mask != 0 {
		c.logf("%s(0x%08X): %s", cmdName(cmd), arg, st)
		return st, &ResponseError{Cmd: cmd, Status: st}
	}

	if rt.data > 0 {
		if err := c.receiveBlock(resp[rt.extra : rt.extra+rt.data]); err != nil {
			c.logf("%s: %v", cmdName(cmd), err)
			return StatusNoResponse, fmt.Errorf("%s: %w", cmdName(cmd), err)
		}
	}
	if rt.busy {
		polls, delay := t.ReadyPolls, t.ReadyDelay
		if cmd == cmdErase {
			polls, delay = t.ErasePolls, t.EraseDelay
		}
		if err := c.waitReady(polls, delay); err != nil {
			return StatusNoResponse, fmt.Errorf("%s: busy: %w", cmdName(cmd), err)
		}
	}
	return st, nil
}

// pollResponse reads until a byte with bit 7 clear shows up.
func (c *Card) pollResponse() (Status, error) {
	for range c.cfg.timing.ResponseBytes {
		b, err := c.readByte()
		if err != nil {
			return StatusNoResponse, err
		}
		if st := Status(b); st.Valid() {
			return st, nil
		}
	}
	return StatusNoResponse, ErrTimeout
}

// commandRetry repeats a bare R1 command until it returns want, sleeping
// delay between attempts.
func (c *Card) commandRetry(cmd byte, arg uint32, want Status, attempts int, delay time.Duration) (Status, error) {
	st := StatusNoResponse
	for i := range attempts {
		if i > 0 {
			c.cfg.sleep(delay)
		}
		var err error
		st, err = c.command(cmd, arg, nil)
		if err == nil && st == want {
			return st, nil
		}
	}
	return st, fmt.Errorf("%s: no %02X response after %d attempts, last %s: %w",
		cmdName(cmd), byte(want), attempts, st, ErrTimeout)
}
